package nowsync

import (
	"context"
	"testing"
)

func TestToRemoteRefs(t *testing.T) {
	store := newFakeStore()
	seedAccount(store, "aaaaaaaaaaaaaaaaaaaaaaaa")

	tests := []struct {
		name    string
		payload Document
		wantErr bool
		want    string
	}{
		{
			name:    "plain string ref",
			payload: Document{"account": "aaaaaaaaaaaaaaaaaaaaaaaa"},
			want:    "sys-acct-1",
		},
		{
			name:    "value-wrapped ref",
			payload: Document{"account": map[string]interface{}{"value": "aaaaaaaaaaaaaaaaaaaaaaaa"}},
			want:    "sys-acct-1",
		},
		{
			name:    "missing target",
			payload: Document{"account": "bbbbbbbbbbbbbbbbbbbbbbbb"},
			wantErr: true,
		},
		{
			name:    "empty field left alone",
			payload: Document{"account": ""},
			want:    "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, resolved, err := ToRemoteRefs(context.Background(), store, tt.payload, Contact.Refs)
			if tt.wantErr {
				if !IsReferenceNotFound(err) {
					t.Fatalf("err = %v, want ReferenceError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if got, _ := out["account"].(string); got != tt.want {
				t.Errorf("account = %q, want %q", got, tt.want)
			}
			if tt.want != "" && resolved["account"] == nil {
				t.Error("resolved doc not captured")
			}
		})
	}
}

func TestToRemoteRefsRejectsUnmirroredTarget(t *testing.T) {
	store := newFakeStore()
	// Mirror document exists but has never been written remotely.
	store.put(Account.Collection, Document{FieldLocalID: "cccccccccccccccccccccccc"}, nil)

	_, _, err := ToRemoteRefs(context.Background(), store,
		Document{"account": "cccccccccccccccccccccccc"}, Contact.Refs)
	if !IsReferenceNotFound(err) {
		t.Fatalf("err = %v, want ReferenceError", err)
	}
}

func TestToRemoteRefsDoesNotMutateInput(t *testing.T) {
	store := newFakeStore()
	seedAccount(store, "aaaaaaaaaaaaaaaaaaaaaaaa")
	payload := Document{"account": "aaaaaaaaaaaaaaaaaaaaaaaa"}

	if _, _, err := ToRemoteRefs(context.Background(), store, payload, Contact.Refs); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if payload["account"] != "aaaaaaaaaaaaaaaaaaaaaaaa" {
		t.Errorf("caller payload mutated: %v", payload["account"])
	}
}

func TestToLocalRefs(t *testing.T) {
	account := Document{FieldLocalID: "aaaaaaaaaaaaaaaaaaaaaaaa", FieldRemoteID: "sys-acct-1"}
	remote := Document{
		FieldRemoteID: "sys-ct-1",
		"account":     "sys-acct-1",
		"name":        "Jane",
	}

	out := ToLocalRefs(remote, Contact.Refs, Resolved{"account": account})
	if got := out["account"]; got != "aaaaaaaaaaaaaaaaaaaaaaaa" {
		t.Errorf("account = %v, want local id", got)
	}
	if got := out["name"]; got != "Jane" {
		t.Errorf("plain field dropped: %v", got)
	}
	// Fields the resolver never saw stay as the remote sent them.
	out = ToLocalRefs(remote, Contact.Refs, Resolved{})
	if got := out["account"]; got != "sys-acct-1" {
		t.Errorf("unresolved ref rewritten: %v", got)
	}
}
