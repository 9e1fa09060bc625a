package nowsync

import (
	"context"
	"errors"
	"testing"
)

type scriptedRefresher struct {
	refreshed   int
	invalidated int
	next        Credential
	err         error
}

func (s *scriptedRefresher) Refresh(ctx context.Context, cred Credential) (Credential, error) {
	s.refreshed++
	if s.err != nil {
		return Credential{}, s.err
	}
	return s.next, nil
}

func (s *scriptedRefresher) Invalidate(ctx context.Context, cred Credential) error {
	s.invalidated++
	return nil
}

func unauthorized() error {
	return &RemoteError{Kind: RemoteUnauthorized, Status: 401, Table: "customer_account", Message: "User Not Authenticated"}
}

func TestRefreshingClientRetriesOnceAfter401(t *testing.T) {
	attempts := 0
	var seenTokens []string
	inner := &fakeRemote{
		createFn: func(table string, payload Document) (Document, error) {
			attempts++
			if attempts == 1 {
				return nil, unauthorized()
			}
			return Document{FieldRemoteID: "sys-1"}, nil
		},
	}
	refresher := &scriptedRefresher{next: Credential{AccessToken: "fresh"}}
	client := &RefreshingClient{Next: &tokenSpy{RemoteClient: inner, tokens: &seenTokens}, Tokens: refresher}

	doc, err := client.Create(context.Background(), "customer_account", Document{}, Credential{AccessToken: "stale"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if doc.RemoteID() != "sys-1" {
		t.Errorf("remote id = %s", doc.RemoteID())
	}
	if refresher.refreshed != 1 {
		t.Errorf("refreshes = %d, want 1", refresher.refreshed)
	}
	if len(seenTokens) != 2 || seenTokens[0] != "stale" || seenTokens[1] != "fresh" {
		t.Errorf("tokens = %v, want [stale fresh]", seenTokens)
	}
}

func TestRefreshingClientTerminalWhenRefreshFails(t *testing.T) {
	inner := &fakeRemote{
		createFn: func(table string, payload Document) (Document, error) {
			return nil, unauthorized()
		},
	}
	refresher := &scriptedRefresher{err: ErrAuthExpired}
	client := &RefreshingClient{Next: inner, Tokens: refresher}

	_, err := client.Create(context.Background(), "customer_account", Document{}, Credential{AccessToken: "stale"})
	if !errors.Is(err, ErrAuthExpired) {
		t.Fatalf("err = %v, want ErrAuthExpired", err)
	}
	if refresher.invalidated != 1 {
		t.Errorf("invalidations = %d, want 1", refresher.invalidated)
	}
	if len(inner.calls) != 1 {
		t.Errorf("remote calls = %d, want 1 (no retry after failed refresh)", len(inner.calls))
	}
}

func TestRefreshingClientTerminalOnSecond401(t *testing.T) {
	inner := &fakeRemote{
		createFn: func(table string, payload Document) (Document, error) {
			return nil, unauthorized()
		},
	}
	refresher := &scriptedRefresher{next: Credential{AccessToken: "fresh"}}
	client := &RefreshingClient{Next: inner, Tokens: refresher}

	_, err := client.Create(context.Background(), "customer_account", Document{}, Credential{AccessToken: "stale"})
	if !errors.Is(err, ErrAuthExpired) {
		t.Fatalf("err = %v, want ErrAuthExpired", err)
	}
	if len(inner.calls) != 2 {
		t.Errorf("remote calls = %d, want exactly 2", len(inner.calls))
	}
	if refresher.refreshed != 1 {
		t.Errorf("refreshes = %d, want exactly 1", refresher.refreshed)
	}
	if refresher.invalidated != 1 {
		t.Errorf("invalidations = %d, want 1", refresher.invalidated)
	}
}

func TestRefreshingClientPassesThroughOtherErrors(t *testing.T) {
	inner := &fakeRemote{
		createFn: func(table string, payload Document) (Document, error) {
			return nil, &RemoteError{Kind: RemoteServerError, Status: 500, Table: table}
		},
	}
	refresher := &scriptedRefresher{}
	client := &RefreshingClient{Next: inner, Tokens: refresher}

	_, err := client.Create(context.Background(), "customer_account", Document{}, Credential{})
	var remErr *RemoteError
	if !errors.As(err, &remErr) || remErr.Kind != RemoteServerError {
		t.Fatalf("err = %v, want server error passthrough", err)
	}
	if refresher.refreshed != 0 {
		t.Errorf("refresh ran for a non-401 error")
	}
}

// tokenSpy records the access token used on each call.
type tokenSpy struct {
	RemoteClient
	tokens *[]string
}

func (s *tokenSpy) Create(ctx context.Context, table string, payload Document, cred Credential) (Document, error) {
	*s.tokens = append(*s.tokens, cred.AccessToken)
	return s.RemoteClient.Create(ctx, table, payload, cred)
}
