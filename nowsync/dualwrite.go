package nowsync

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mmdatafocus/nowmirror_backend/config"
	"github.com/mmdatafocus/nowmirror_backend/utils"
)

// Synchronizer orchestrates create/update/delete across the remote system
// of record and the local mirror as one logical operation with fixed
// ordering and explicit partial-failure reporting. There is no rollback
// across the remote/local boundary: the remote side holds durable state
// once created, the local side is a cache, and compensating the remote
// after a local failure is an operator action.
type Synchronizer struct {
	Remote RemoteClient
	Store  MirrorStore
	Events EventRecorder
	Logger *logrus.Logger
}

func NewSynchronizer(remote RemoteClient, store MirrorStore, events EventRecorder, logger *logrus.Logger) *Synchronizer {
	return &Synchronizer{Remote: remote, Store: store, Events: events, Logger: logger}
}

type updateOptions struct {
	beforeRemote []func(ctx context.Context, current Document) error
}

type UpdateOption func(*updateOptions)

// WithRelationshipSync runs fn before the remote update. The hook sees the
// pre-update parent state; if it fails, the remote update is not attempted.
func WithRelationshipSync(fn func(ctx context.Context, current Document) error) UpdateOption {
	return func(o *updateOptions) {
		o.beforeRemote = append(o.beforeRemote, fn)
	}
}

type CleanupFunc func(ctx context.Context, deleted Document) error

type deleteOptions struct {
	cleanups []CleanupFunc
}

type DeleteOption func(*deleteOptions)

// WithCleanup registers a best-effort dependent cleanup (relationship
// records, generated files) to run after the local delete commits. A
// cleanup failure is logged and recorded, never propagated.
func WithCleanup(fn CleanupFunc) DeleteOption {
	return func(o *deleteOptions) {
		o.cleanups = append(o.cleanups, fn)
	}
}

// Create runs the create protocol: allocate the local id, resolve foreign
// fields, remote create carrying external_id, then mirror locally.
func (s *Synchronizer) Create(ctx context.Context, spec EntitySpec, payload Document, cred Credential) Outcome {
	localID := utils.NewDocumentID()
	out := Outcome{State: StatePending, Entity: spec.Name, LocalID: localID}

	remotePayload, resolved, err := ToRemoteRefs(ctx, s.Store, payload, spec.Refs)
	if err != nil {
		out.State = classifyFailure(err)
		out.Err = err
		return out
	}

	// The local id goes out as the correlation field before the remote
	// record exists; the remote side can reference the mirror by it.
	delete(remotePayload, FieldLocalID)
	delete(remotePayload, FieldRemoteID)
	remotePayload[FieldExternalRef] = localID

	remoteRec, err := s.Remote.Create(ctx, spec.Table, remotePayload, cred)
	if err != nil {
		out.State = StateRemoteFailed
		out.Err = err
		return out
	}
	out.State = StateRemoteOK
	out.RemoteID = remoteRec.RemoteID()

	doc := ToLocalRefs(remoteRec, spec.Refs, resolved)
	doc[FieldLocalID] = localID
	doc[FieldExternalRef] = localID

	if err := s.Store.Insert(ctx, spec.Collection, doc, refsFor(spec, doc)); err != nil {
		out.State = StateLocalFailed
		out.Remote = remoteRec
		out.Err = err
		s.record(ctx, Event{
			Entity: spec.Name, Action: EventActionCreate, Status: EventStatusInconsistent,
			LocalID: localID, RemoteID: out.RemoteID, Detail: err.Error(),
		})
		s.logError("Create", spec.Name, localID, err)
		return out
	}

	out.State = StateCommitted
	out.Doc = doc
	s.record(ctx, Event{
		Entity: spec.Name, Action: EventActionCreate, Status: EventStatusCommitted,
		LocalID: localID, RemoteID: out.RemoteID,
	})
	return out
}

// Update runs the update protocol: optional relationship sync against the
// pre-update state, remote update, then the local partial update.
func (s *Synchronizer) Update(ctx context.Context, spec EntitySpec, localID string, fields Document, cred Credential, opts ...UpdateOption) Outcome {
	var options updateOptions
	for _, opt := range opts {
		opt(&options)
	}

	out := Outcome{State: StatePending, Entity: spec.Name, LocalID: localID}

	current, err := s.Store.FindByLocalID(ctx, spec.Collection, localID)
	if err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			out.State = StateReferenceFailed
			out.Err = &ReferenceError{Entity: spec.Name, LocalID: localID}
		} else {
			out.State = StateAborted
			out.Err = err
		}
		return out
	}
	remoteID := current.RemoteID()
	if remoteID == "" {
		out.State = StateInvalid
		out.Err = &MissingRemoteIDError{Op: "update"}
		return out
	}
	out.RemoteID = remoteID

	// Relationship sync must see the parent before this update lands.
	for _, hook := range options.beforeRemote {
		if err := hook(ctx, current); err != nil {
			out.State = classifyFailure(err)
			out.Err = err
			return out
		}
	}

	// The resolved targets are not needed here: mergeUpdatedFields keeps the
	// caller's local references instead of rewriting the remote echo back.
	changedRefs := activeRefs(spec, fields)
	remotePayload, _, err := ToRemoteRefs(ctx, s.Store, fields, changedRefs)
	if err != nil {
		out.State = classifyFailure(err)
		out.Err = err
		return out
	}
	delete(remotePayload, FieldLocalID)
	delete(remotePayload, FieldRemoteID)
	delete(remotePayload, FieldExternalRef)

	remoteRec, err := s.Remote.Update(ctx, spec.Table, remoteID, remotePayload, cred)
	if err != nil {
		out.State = StateRemoteFailed
		out.Err = err
		return out
	}
	out.State = StateRemoteOK

	localFields := mergeUpdatedFields(spec, fields, remoteRec)
	doc, err := s.Store.UpdateFields(ctx, spec.Collection, localID, localFields, refsForFields(changedRefs, fields))
	if err != nil {
		out.State = StateLocalFailed
		out.Remote = remoteRec
		out.Err = err
		s.record(ctx, Event{
			Entity: spec.Name, Action: EventActionUpdate, Status: EventStatusInconsistent,
			LocalID: localID, RemoteID: remoteID, Detail: err.Error(),
		})
		s.logError("Update", spec.Name, localID, err)
		return out
	}

	out.State = StateCommitted
	out.Doc = doc
	s.record(ctx, Event{
		Entity: spec.Name, Action: EventActionUpdate, Status: EventStatusCommitted,
		LocalID: localID, RemoteID: remoteID,
	})
	return out
}

// Delete runs the delete protocol with the order inverted relative to
// create: remote first, local second, dependents last (best effort).
func (s *Synchronizer) Delete(ctx context.Context, spec EntitySpec, localID string, cred Credential, opts ...DeleteOption) Outcome {
	var options deleteOptions
	for _, opt := range opts {
		opt(&options)
	}

	out := Outcome{State: StatePending, Entity: spec.Name, LocalID: localID}

	current, err := s.Store.FindByLocalID(ctx, spec.Collection, localID)
	if err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			out.State = StateReferenceFailed
			out.Err = &ReferenceError{Entity: spec.Name, LocalID: localID}
		} else {
			out.State = StateAborted
			out.Err = err
		}
		return out
	}
	remoteID := current.RemoteID()
	if remoteID == "" {
		out.State = StateInvalid
		out.Err = &MissingRemoteIDError{Op: "delete"}
		return out
	}
	out.RemoteID = remoteID

	if err := s.Remote.Delete(ctx, spec.Table, remoteID, cred); err != nil {
		out.State = StateRemoteFailed
		out.Err = err
		return out
	}
	out.State = StateRemoteOK

	if err := s.Store.Delete(ctx, spec.Collection, localID); err != nil {
		out.State = StateLocalFailed
		out.Err = err
		s.record(ctx, Event{
			Entity: spec.Name, Action: EventActionDelete, Status: EventStatusInconsistent,
			LocalID: localID, RemoteID: remoteID, Detail: err.Error(),
		})
		s.logError("Delete", spec.Name, localID, err)
		return out
	}

	out.State = StateCommitted
	out.Doc = current
	s.record(ctx, Event{
		Entity: spec.Name, Action: EventActionDelete, Status: EventStatusCommitted,
		LocalID: localID, RemoteID: remoteID,
	})

	s.cleanupDependents(ctx, spec, localID, cred)
	for _, cleanup := range options.cleanups {
		if err := cleanup(ctx, current); err != nil {
			s.record(ctx, Event{
				Entity: spec.Name, Action: EventActionCleanup, Status: EventStatusCleanupFailed,
				LocalID: localID, RemoteID: remoteID, Detail: err.Error(),
			})
			s.logError("Delete/cleanup", spec.Name, localID, err)
		}
	}
	return out
}

// cleanupDependents removes child documents referencing the deleted parent.
// Each child is handled independently; a failure is recorded and skipped,
// never rolled back into the parent deletion.
func (s *Synchronizer) cleanupDependents(ctx context.Context, spec EntitySpec, localID string, cred Credential) {
	for _, dep := range spec.Dependents {
		childSpec, ok := Registry[dep.Entity]
		if !ok {
			continue
		}
		children, err := s.Store.FindByRef(ctx, childSpec.Collection, dep.Field, localID)
		if err != nil {
			s.logError("cleanupDependents", childSpec.Name, localID, err)
			continue
		}
		for _, child := range children {
			if sysID := child.RemoteID(); sysID != "" {
				if err := s.Remote.Delete(ctx, childSpec.Table, sysID, cred); err != nil && !IsRemoteNotFound(err) {
					s.record(ctx, Event{
						Entity: childSpec.Name, Action: EventActionCleanup, Status: EventStatusCleanupFailed,
						LocalID: child.LocalID(), RemoteID: sysID, Detail: err.Error(),
					})
					s.logError("cleanupDependents", childSpec.Name, child.LocalID(), err)
					continue
				}
			}
			if err := s.Store.Delete(ctx, childSpec.Collection, child.LocalID()); err != nil {
				s.record(ctx, Event{
					Entity: childSpec.Name, Action: EventActionCleanup, Status: EventStatusCleanupFailed,
					LocalID: child.LocalID(), RemoteID: child.RemoteID(), Detail: err.Error(),
				})
				s.logError("cleanupDependents", childSpec.Name, child.LocalID(), err)
			}
		}
	}
}

// Relink repairs a LOCAL_FAILED orphan: fetch the remote record by sys_id
// and re-create (or re-point) the mirror document under its external_id.
func (s *Synchronizer) Relink(ctx context.Context, spec EntitySpec, sysID string, cred Credential) (Document, error) {
	remoteRec, err := s.Remote.Get(ctx, spec.Table, sysID, cred)
	if err != nil {
		return nil, err
	}

	localID, _ := remoteRec[FieldExternalRef].(string)
	if localID == "" {
		return nil, fmt.Errorf("remote record %s has no external_id to re-link against", sysID)
	}

	doc := remoteRec.Clone()
	doc[FieldLocalID] = localID

	if existing, err := s.Store.FindByLocalID(ctx, spec.Collection, localID); err == nil {
		merged, uerr := s.Store.UpdateFields(ctx, spec.Collection, existing.LocalID(), doc, nil)
		return merged, uerr
	}

	if err := s.Store.Insert(ctx, spec.Collection, doc, nil); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Synchronizer) record(ctx context.Context, ev Event) {
	if s.Events != nil {
		s.Events.RecordEvent(ctx, ev)
	}
}

func (s *Synchronizer) logError(funcName, entity, localID string, err error) {
	if s.Logger != nil {
		config.LogError(s.Logger, "nowsync", funcName, entity, localID, err)
	}
}

func activeRefs(spec EntitySpec, fields Document) []RefSpec {
	var out []RefSpec
	for _, ref := range spec.Refs {
		if _, ok := fields[ref.Field]; ok {
			out = append(out, ref)
		}
	}
	return out
}

func refsForFields(refs []RefSpec, fields Document) map[string]string {
	out := make(map[string]string)
	for _, ref := range refs {
		if raw, ok := fields[ref.Field]; ok {
			if id := refValue(raw); id != "" {
				out[ref.Field] = id
			}
		}
	}
	return out
}

// mergeUpdatedFields builds the local partial update: the remote echo is
// authoritative for plain fields, but foreign fields keep the caller's
// local references (a stored foreign field is never a raw sys_id).
func mergeUpdatedFields(spec EntitySpec, fields Document, remoteRec Document) Document {
	out := fields.Clone()
	for key := range fields {
		if _, isRef := spec.refSpec(key); isRef {
			continue
		}
		if v, ok := remoteRec[key]; ok {
			out[key] = v
		}
	}
	for _, meta := range []string{"sys_updated_on", "sys_updated_by", "sys_mod_count"} {
		if v, ok := remoteRec[meta]; ok {
			out[meta] = v
		}
	}
	return out
}
