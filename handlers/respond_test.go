package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/mmdatafocus/nowmirror_backend/nowsync"
)

func runOutcome(t *testing.T, out nowsync.Outcome, successStatus int) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

	writeOutcome(c, out, successStatus)

	var body map[string]interface{}
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("body: %v", err)
		}
	}
	return w, body
}

func TestWriteOutcomeCommitted(t *testing.T) {
	w, body := runOutcome(t, nowsync.Outcome{
		State:    nowsync.StateCommitted,
		LocalID:  "507f1f77bcf86cd799439011",
		RemoteID: "sys-1",
		Doc:      nowsync.Document{"name": "x"},
	}, http.StatusCreated)

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d", w.Code)
	}
	if body["local_id"] != "507f1f77bcf86cd799439011" || body["sys_id"] != "sys-1" {
		t.Errorf("body = %v", body)
	}
}

func TestWriteOutcomeReferenceFailed(t *testing.T) {
	w, _ := runOutcome(t, nowsync.Outcome{
		State: nowsync.StateReferenceFailed,
		Err:   &nowsync.ReferenceError{Field: "account", Entity: "account", LocalID: "x"},
	}, http.StatusCreated)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestWriteOutcomeInvalid(t *testing.T) {
	w, _ := runOutcome(t, nowsync.Outcome{
		State: nowsync.StateInvalid,
		Err:   &nowsync.MissingRemoteIDError{Op: "delete"},
	}, http.StatusOK)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestWriteOutcomeRemoteFailed(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "rejection passes remote status through",
			err:  &nowsync.RemoteError{Kind: nowsync.RemoteRejected, Status: 403, Table: "x", Message: "denied"},
			want: http.StatusForbidden,
		},
		{
			name: "remote 404 passes through",
			err:  &nowsync.RemoteError{Kind: nowsync.RemoteNotFound, Status: 404, Table: "x", Message: "gone"},
			want: http.StatusNotFound,
		},
		{
			name: "unavailable maps to bad gateway",
			err:  &nowsync.RemoteError{Kind: nowsync.RemoteUnavailable, Table: "x", Err: errors.New("timeout")},
			want: http.StatusBadGateway,
		},
		{
			name: "server error maps to bad gateway",
			err:  &nowsync.RemoteError{Kind: nowsync.RemoteServerError, Status: 500, Table: "x"},
			want: http.StatusBadGateway,
		},
		{
			name: "auth expired maps to unauthorized",
			err:  nowsync.ErrAuthExpired,
			want: http.StatusUnauthorized,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := runOutcome(t, nowsync.Outcome{State: nowsync.StateRemoteFailed, Err: tt.err}, http.StatusOK)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestWriteOutcomeLocalFailedIsPartialFailure(t *testing.T) {
	w, body := runOutcome(t, nowsync.Outcome{
		State:    nowsync.StateLocalFailed,
		LocalID:  "507f1f77bcf86cd799439011",
		RemoteID: "sys-1",
		Remote:   nowsync.Document{"sys_id": "sys-1", "name": "x"},
		Err:      errors.New("insert failed"),
	}, http.StatusCreated)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if body["state"] != "local_failed" {
		t.Errorf("state = %v", body["state"])
	}
	// The remote record must be reported, never swallowed.
	if body["sys_id"] != "sys-1" {
		t.Errorf("sys_id = %v", body["sys_id"])
	}
	if body["remote"] == nil {
		t.Error("remote payload missing from partial-failure response")
	}
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"document not found", nowsync.ErrDocumentNotFound, http.StatusNotFound},
		{"auth expired", nowsync.ErrAuthExpired, http.StatusUnauthorized},
		{"remote unavailable", &nowsync.RemoteError{Kind: nowsync.RemoteUnavailable, Table: "x"}, http.StatusBadGateway},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gin.SetMode(gin.TestMode)
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			writeError(c, tt.err)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}
