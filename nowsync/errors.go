package nowsync

import (
	"errors"
	"fmt"
)

// ErrAuthExpired means the credential was rejected even after one refresh
// attempt. Terminal; the caller must re-authenticate.
var ErrAuthExpired = errors.New("authentication expired")

// MissingRemoteIDError: the local document has no sys_id, so there is
// nothing to address on the remote side. Client error, no remote call made.
type MissingRemoteIDError struct {
	Op string
}

func (e *MissingRemoteIDError) Error() string {
	if e.Op == "delete" {
		return "cannot delete from remote: identifier missing"
	}
	return "cannot " + e.Op + " remote: identifier missing"
}

func IsMissingRemoteID(err error) bool {
	var me *MissingRemoteIDError
	return errors.As(err, &me)
}

// ErrDocumentNotFound is returned by MirrorStore lookups.
var ErrDocumentNotFound = errors.New("mirror document not found")

type RemoteErrorKind int

const (
	// RemoteUnavailable: transport failure or timeout; the call may or may
	// not have reached the remote system.
	RemoteUnavailable RemoteErrorKind = iota
	// RemoteRejected: 4xx other than 401/404.
	RemoteRejected
	// RemoteServerError: 5xx.
	RemoteServerError
	// RemoteNotFound: 404.
	RemoteNotFound
	// RemoteUnauthorized: 401; handled by the token-refresh wrapper.
	RemoteUnauthorized
)

func (k RemoteErrorKind) String() string {
	switch k {
	case RemoteUnavailable:
		return "remote_unavailable"
	case RemoteRejected:
		return "remote_rejected"
	case RemoteServerError:
		return "remote_server_error"
	case RemoteNotFound:
		return "remote_not_found"
	case RemoteUnauthorized:
		return "remote_unauthorized"
	}
	return "remote_error"
}

// RemoteError carries the remote-call failure with enough detail for the
// caller to reconcile (status class, table, remote-provided message).
type RemoteError struct {
	Kind    RemoteErrorKind
	Status  int
	Table   string
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: %s %d: %s", e.Kind, e.Table, e.Status, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Table, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Table)
}

func (e *RemoteError) Unwrap() error { return e.Err }

func classifyStatus(status int) RemoteErrorKind {
	switch {
	case status == 401:
		return RemoteUnauthorized
	case status == 404:
		return RemoteNotFound
	case status >= 400 && status < 500:
		return RemoteRejected
	default:
		return RemoteServerError
	}
}

// ReferenceError: a foreign field named a mirror document that does not
// exist locally. Client error, no side effects, never conflated with
// remote-call failures.
type ReferenceError struct {
	Field   string
	Entity  string
	LocalID string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("reference not found: field %q -> %s %q", e.Field, e.Entity, e.LocalID)
}

func IsReferenceNotFound(err error) bool {
	var re *ReferenceError
	return errors.As(err, &re)
}

func IsRemoteNotFound(err error) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.Kind == RemoteNotFound
}

func IsRemoteUnauthorized(err error) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.Kind == RemoteUnauthorized
}
