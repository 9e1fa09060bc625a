package nowsync

import "errors"

// State makes the dual-write ordering explicit so failure-injection tests
// can assert on it instead of on code sequencing.
type State int

const (
	// StatePending: nothing dispatched yet.
	StatePending State = iota
	// StateRemoteOK: the remote side is mutated, the local write is next.
	StateRemoteOK
	// StateCommitted: both sides confirmed.
	StateCommitted
	// StateAborted: failed before any side effect (store read, marshaling).
	StateAborted
	// StateInvalid: client error before any side effect (e.g. sys_id missing).
	StateInvalid
	// StateReferenceFailed: a foreign field named a document that does not
	// exist locally; no remote call was made.
	StateReferenceFailed
	// StateRemoteFailed: the remote call failed; nothing written locally.
	StateRemoteFailed
	// StateLocalFailed: the remote side is mutated but the local write
	// failed. Inconsistent; surfaced for manual reconciliation, never
	// retried automatically.
	StateLocalFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRemoteOK:
		return "remote_ok"
	case StateCommitted:
		return "committed"
	case StateAborted:
		return "aborted"
	case StateInvalid:
		return "invalid"
	case StateReferenceFailed:
		return "reference_failed"
	case StateRemoteFailed:
		return "remote_failed"
	case StateLocalFailed:
		return "local_failed"
	}
	return "unknown"
}

// Outcome is the single result type for every synchronizer operation.
// Transport mapping happens at the handler boundary only.
type Outcome struct {
	State    State
	Entity   string
	LocalID  string
	RemoteID string
	// Doc is the committed local document (create/update) or the document
	// that was deleted.
	Doc Document
	// Remote carries the remote success payload when the local write failed,
	// so an operator can reconcile the orphaned remote record.
	Remote Document
	Err    error
}

// classifyFailure maps an error from a sub-step that ran before the remote
// dispatch (ref resolution, relationship sync) onto the matching exit state.
func classifyFailure(err error) State {
	var refErr *ReferenceError
	if errors.As(err, &refErr) {
		return StateReferenceFailed
	}
	if IsMissingRemoteID(err) {
		return StateInvalid
	}
	var remErr *RemoteError
	if errors.As(err, &remErr) || errors.Is(err, ErrAuthExpired) {
		return StateRemoteFailed
	}
	return StateAborted
}
