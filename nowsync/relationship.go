package nowsync

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/mmdatafocus/nowmirror_backend/config"
	"github.com/mmdatafocus/nowmirror_backend/utils"
)

// RelationshipSynchronizer is the reduced dual-write for join records. It is
// invoked as a sub-step inside a parent entity's update/delete protocol,
// never standalone from a route handler. Join records have no life of their
// own: membership changes on either parent create and destroy them.
type RelationshipSynchronizer struct {
	Remote RemoteClient
	Store  MirrorStore
	Events EventRecorder
	Logger *logrus.Logger
}

func NewRelationshipSynchronizer(remote RemoteClient, store MirrorStore, events EventRecorder, logger *logrus.Logger) *RelationshipSynchronizer {
	return &RelationshipSynchronizer{Remote: remote, Store: store, Events: events, Logger: logger}
}

// Sync reconciles the join records anchored at anchorField == anchor's local
// id against the desired set of local ids on the other side. Creates go
// remote-then-local like any dual-write; removals remote-first as well. The
// first failure aborts and propagates so the parent's remote update is
// never attempted on top of a half-synced relationship set.
func (r *RelationshipSynchronizer) Sync(ctx context.Context, spec EntitySpec, anchorField, otherField string, anchor Document, desired []string, cred Credential) error {
	anchorLocal := anchor.LocalID()
	anchorRemote := anchor.RemoteID()

	anchorRef, ok := spec.refSpec(anchorField)
	if !ok {
		return errors.New("unknown anchor field " + anchorField + " on " + spec.Name)
	}
	otherRef, ok := spec.refSpec(otherField)
	if !ok {
		return errors.New("unknown field " + otherField + " on " + spec.Name)
	}
	if anchorRemote == "" {
		return &ReferenceError{Field: anchorField, Entity: anchorRef.Entity, LocalID: anchorLocal}
	}

	existing, err := r.Store.FindByRef(ctx, spec.Collection, anchorField, anchorLocal)
	if err != nil {
		return err
	}
	current := make(map[string]Document, len(existing))
	for _, rel := range existing {
		if other := refValue(rel[otherField]); other != "" {
			current[other] = rel
		}
	}
	want := make(map[string]bool, len(desired))
	for _, id := range desired {
		want[id] = true
	}

	otherSpec, ok := Registry[otherRef.Entity]
	if !ok {
		return errors.New("unknown entity " + otherRef.Entity)
	}

	for _, otherLocal := range desired {
		if _, exists := current[otherLocal]; exists {
			continue
		}
		if err := r.create(ctx, spec, anchorField, otherField, anchor, otherSpec, otherLocal, cred); err != nil {
			return err
		}
	}

	for otherLocal, rel := range current {
		if want[otherLocal] {
			continue
		}
		if err := r.remove(ctx, spec, rel, cred); err != nil {
			return err
		}
	}
	return nil
}

func (r *RelationshipSynchronizer) create(ctx context.Context, spec EntitySpec, anchorField, otherField string, anchor Document, otherSpec EntitySpec, otherLocal string, cred Credential) error {
	other, err := r.Store.FindByLocalID(ctx, otherSpec.Collection, otherLocal)
	if err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			return &ReferenceError{Field: otherField, Entity: otherSpec.Name, LocalID: otherLocal}
		}
		return err
	}
	otherRemote := other.RemoteID()
	if otherRemote == "" {
		return &ReferenceError{Field: otherField, Entity: otherSpec.Name, LocalID: otherLocal}
	}

	localID := utils.NewDocumentID()
	payload := Document{
		anchorField:      anchor.RemoteID(),
		otherField:       otherRemote,
		FieldExternalRef: localID,
	}
	remoteRec, err := r.Remote.Create(ctx, spec.Table, payload, cred)
	if err != nil {
		return err
	}

	doc := remoteRec.Clone()
	doc[FieldLocalID] = localID
	doc[FieldExternalRef] = localID
	doc[anchorField] = anchor.LocalID()
	doc[otherField] = otherLocal

	refs := map[string]string{anchorField: anchor.LocalID(), otherField: otherLocal}
	if err := r.Store.Insert(ctx, spec.Collection, doc, refs); err != nil {
		r.record(ctx, Event{
			Entity: spec.Name, Action: EventActionRelationship, Status: EventStatusInconsistent,
			LocalID: localID, RemoteID: remoteRec.RemoteID(), Detail: err.Error(),
		})
		r.logError("create", spec.Name, localID, err)
		return err
	}

	r.record(ctx, Event{
		Entity: spec.Name, Action: EventActionRelationship, Status: EventStatusCommitted,
		LocalID: localID, RemoteID: remoteRec.RemoteID(),
	})
	return nil
}

func (r *RelationshipSynchronizer) remove(ctx context.Context, spec EntitySpec, rel Document, cred Credential) error {
	if sysID := rel.RemoteID(); sysID != "" {
		if err := r.Remote.Delete(ctx, spec.Table, sysID, cred); err != nil && !IsRemoteNotFound(err) {
			return err
		}
	}
	if err := r.Store.Delete(ctx, spec.Collection, rel.LocalID()); err != nil {
		r.record(ctx, Event{
			Entity: spec.Name, Action: EventActionRelationship, Status: EventStatusInconsistent,
			LocalID: rel.LocalID(), RemoteID: rel.RemoteID(), Detail: err.Error(),
		})
		r.logError("remove", spec.Name, rel.LocalID(), err)
		return err
	}
	r.record(ctx, Event{
		Entity: spec.Name, Action: EventActionRelationship, Status: EventStatusCommitted,
		LocalID: rel.LocalID(), RemoteID: rel.RemoteID(),
	})
	return nil
}

func (r *RelationshipSynchronizer) record(ctx context.Context, ev Event) {
	if r.Events != nil {
		r.Events.RecordEvent(ctx, ev)
	}
}

func (r *RelationshipSynchronizer) logError(funcName, entity, localID string, err error) {
	if r.Logger != nil {
		config.LogError(r.Logger, "nowsync", "RelationshipSynchronizer."+funcName, entity, localID, err)
	}
}
