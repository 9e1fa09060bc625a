package nowsync

import (
	"context"
	"net/url"
)

// Document is a schema-flexible mirrored record. Remote fields are carried
// verbatim; the store only interprets the bookkeeping fields below.
type Document map[string]interface{}

const (
	FieldLocalID     = "local_id"
	FieldRemoteID    = "sys_id"
	FieldExternalRef = "external_id"
)

func (d Document) LocalID() string  { s, _ := d[FieldLocalID].(string); return s }
func (d Document) RemoteID() string { s, _ := d[FieldRemoteID].(string); return s }

// Clone returns a shallow copy; enough for field rewrites that must not
// mutate the caller's payload.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Credential is the caller's bearer token for the remote system, passed per
// call so the remote side enforces its own per-user authorization.
type Credential struct {
	AccessToken  string
	RefreshToken string
	SessionID    string
}

// RemoteClient performs CRUD against the remote system's generic table API.
// Implementations must not retry automatically; the one sanctioned retry
// lives in the token-refresh wrapper.
type RemoteClient interface {
	Create(ctx context.Context, table string, payload Document, cred Credential) (Document, error)
	Get(ctx context.Context, table string, sysID string, cred Credential) (Document, error)
	Update(ctx context.Context, table string, sysID string, payload Document, cred Credential) (Document, error)
	Delete(ctx context.Context, table string, sysID string, cred Credential) error
	List(ctx context.Context, table string, query url.Values, cred Credential) ([]Document, error)
}

// MirrorStore persists mirror documents. Writes are atomic per document;
// there are no cross-document transactions — the synchronizer compensates
// at the application level instead.
type MirrorStore interface {
	Insert(ctx context.Context, collection string, doc Document, refs map[string]string) error
	FindByLocalID(ctx context.Context, collection string, localID string) (Document, error)
	FindByRemoteID(ctx context.Context, collection string, remoteID string) (Document, error)
	// UpdateFields merges fields into the stored document in one row update
	// and returns the merged document. refs replaces the ref rows for the
	// fields it names, leaving other ref fields untouched.
	UpdateFields(ctx context.Context, collection string, localID string, fields Document, refs map[string]string) (Document, error)
	Delete(ctx context.Context, collection string, localID string) error
	FindByRef(ctx context.Context, collection string, field string, refLocalID string) ([]Document, error)
}

// TokenRefresher exchanges a refresh token for a new access token, exactly
// once per failed call, and persists the rotated credential.
type TokenRefresher interface {
	Refresh(ctx context.Context, cred Credential) (Credential, error)
	Invalidate(ctx context.Context, cred Credential) error
}

const (
	EventActionCreate       = "create"
	EventActionUpdate       = "update"
	EventActionDelete       = "delete"
	EventActionRelationship = "relationship"
	EventActionCleanup      = "cleanup"
)

const (
	EventStatusCommitted     = "committed"
	EventStatusInconsistent  = "inconsistent"
	EventStatusCleanupFailed = "cleanup_failed"
)

type Event struct {
	Entity   string
	Action   string
	Status   string
	LocalID  string
	RemoteID string
	Detail   string
}

// EventRecorder feeds the sync-event outbox. Best effort: implementations
// log their own failures and never propagate them into the write path.
type EventRecorder interface {
	RecordEvent(ctx context.Context, ev Event)
}

// RefSpec names a foreign field and the entity it references. Stored values
// are local ids; values sent remotely are sys_ids.
type RefSpec struct {
	Field  string
	Entity string
}

// DependentSpec names a child entity cleaned up after a parent delete:
// children are the documents whose Field references the parent's local id.
type DependentSpec struct {
	Entity string
	Field  string
}

// EntitySpec parameterizes the synchronizer per mirrored entity type.
type EntitySpec struct {
	Name       string
	Collection string
	Table      string
	Refs       []RefSpec
	Dependents []DependentSpec
}

func (s EntitySpec) refSpec(field string) (RefSpec, bool) {
	for _, r := range s.Refs {
		if r.Field == field {
			return r, true
		}
	}
	return RefSpec{}, false
}
