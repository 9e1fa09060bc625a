package nowsync

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestTableClientCreate(t *testing.T) {
	var gotAuth, gotPath, gotMethod string
	var gotBody Document
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotMethod = r.Method
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"result":{"sys_id":"abc123","name":"Globex"}}`))
	}))
	defer srv.Close()

	client := NewTableClient(srv.URL, 5*time.Second)
	doc, err := client.Create(context.Background(), "customer_account",
		Document{"name": "Globex"}, Credential{AccessToken: "tok-1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if doc.RemoteID() != "abc123" {
		t.Errorf("sys_id = %s", doc.RemoteID())
	}
	if gotAuth != "Bearer tok-1" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotMethod != http.MethodPost || gotPath != "/api/now/table/customer_account" {
		t.Errorf("%s %s", gotMethod, gotPath)
	}
	if gotBody["name"] != "Globex" {
		t.Errorf("body = %v", gotBody)
	}
}

func TestTableClientUpdateUsesPatch(t *testing.T) {
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.Write([]byte(`{"result":{"sys_id":"abc123"}}`))
	}))
	defer srv.Close()

	client := NewTableClient(srv.URL, 5*time.Second)
	if _, err := client.Update(context.Background(), "customer_account", "abc123",
		Document{"name": "x"}, Credential{}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if gotMethod != http.MethodPatch || gotPath != "/api/now/table/customer_account/abc123" {
		t.Errorf("%s %s", gotMethod, gotPath)
	}
}

func TestTableClientErrorClassification(t *testing.T) {
	tests := []struct {
		status   int
		body     string
		wantKind RemoteErrorKind
		wantMsg  string
	}{
		{401, `{"error":{"message":"User Not Authenticated"},"status":"failure"}`, RemoteUnauthorized, "User Not Authenticated"},
		{403, `{"error":{"message":"Operation Failed","detail":"ACL denied"},"status":"failure"}`, RemoteRejected, "Operation Failed: ACL denied"},
		{404, `{"error":{"message":"No Record found"},"status":"failure"}`, RemoteNotFound, "No Record found"},
		{500, ``, RemoteServerError, "Internal Server Error"},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			w.Write([]byte(tt.body))
		}))
		client := NewTableClient(srv.URL, 5*time.Second)
		_, err := client.Get(context.Background(), "customer_account", "abc", Credential{})
		srv.Close()

		var remErr *RemoteError
		if !errors.As(err, &remErr) {
			t.Fatalf("status %d: err = %v, want RemoteError", tt.status, err)
		}
		if remErr.Kind != tt.wantKind {
			t.Errorf("status %d: kind = %v, want %v", tt.status, remErr.Kind, tt.wantKind)
		}
		if remErr.Status != tt.status {
			t.Errorf("status %d: carried status = %d", tt.status, remErr.Status)
		}
		if remErr.Message != tt.wantMsg {
			t.Errorf("status %d: message = %q, want %q", tt.status, remErr.Message, tt.wantMsg)
		}
	}
}

func TestTableClientTimeoutIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client := NewTableClient(srv.URL, 20*time.Millisecond)
	_, err := client.Get(context.Background(), "customer_account", "abc", Credential{})

	var remErr *RemoteError
	if !errors.As(err, &remErr) {
		t.Fatalf("err = %v, want RemoteError", err)
	}
	if remErr.Kind != RemoteUnavailable {
		t.Errorf("kind = %v, want unavailable", remErr.Kind)
	}
	if remErr.Status != 0 {
		t.Errorf("status = %d, want 0 (no response)", remErr.Status)
	}
}

func TestTableClientDelete(t *testing.T) {
	var gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := NewTableClient(srv.URL, 5*time.Second)
	if err := client.Delete(context.Background(), "customer_account", "abc123", Credential{}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if gotMethod != http.MethodDelete {
		t.Errorf("method = %s", gotMethod)
	}
}

func TestTableClientList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("sysparm_query"); got != "active=true" {
			t.Errorf("query = %q", got)
		}
		w.Write([]byte(`{"result":[{"sys_id":"a"},{"sys_id":"b"}]}`))
	}))
	defer srv.Close()

	client := NewTableClient(srv.URL, 5*time.Second)
	docs, err := client.List(context.Background(), "customer_account",
		map[string][]string{"sysparm_query": {"active=true"}}, Credential{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 2 {
		t.Errorf("docs = %d, want 2", len(docs))
	}
}
