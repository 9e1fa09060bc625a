package nowsync

import (
	"context"
	"errors"
	"fmt"
)

// Resolved carries the local documents fetched during ref resolution, keyed
// by payload field. The dual-write path reuses them to rewrite the remote
// response back to local references without a second lookup (the remote
// system has no remote->local index).
type Resolved map[string]Document

// ToRemoteRefs rewrites every foreign field in payload from a local id to
// the referenced document's sys_id. A field naming a document that does not
// exist locally fails with ReferenceError before any remote call.
func ToRemoteRefs(ctx context.Context, store MirrorStore, payload Document, refs []RefSpec) (Document, Resolved, error) {
	out := payload.Clone()
	resolved := make(Resolved)

	for _, ref := range refs {
		raw, present := payload[ref.Field]
		if !present {
			continue
		}
		localID := refValue(raw)
		if localID == "" {
			continue
		}

		target, ok := Registry[ref.Entity]
		if !ok {
			return nil, nil, fmt.Errorf("unknown entity %q for field %q", ref.Entity, ref.Field)
		}

		doc, err := store.FindByLocalID(ctx, target.Collection, localID)
		if err != nil {
			if errors.Is(err, ErrDocumentNotFound) {
				return nil, nil, &ReferenceError{Field: ref.Field, Entity: ref.Entity, LocalID: localID}
			}
			return nil, nil, err
		}
		remoteID := doc.RemoteID()
		if remoteID == "" {
			// A mirror document without a sys_id has no remote counterpart
			// to point at; the reference is unusable.
			return nil, nil, &ReferenceError{Field: ref.Field, Entity: ref.Entity, LocalID: localID}
		}

		out[ref.Field] = remoteID
		resolved[ref.Field] = doc
	}
	return out, resolved, nil
}

// ToLocalRefs rewrites the remote record's foreign fields back to local ids
// using the documents already fetched by ToRemoteRefs. Fields the resolver
// never saw are carried verbatim.
func ToLocalRefs(remote Document, refs []RefSpec, resolved Resolved) Document {
	out := remote.Clone()
	for _, ref := range refs {
		doc, ok := resolved[ref.Field]
		if !ok {
			continue
		}
		out[ref.Field] = doc.LocalID()
	}
	return out
}

// refValue unwraps the remote system's reference shape ({"value": id}) and
// plain strings.
func refValue(raw interface{}) string {
	switch v := raw.(type) {
	case string:
		return v
	case map[string]interface{}:
		s, _ := v["value"].(string)
		return s
	case Document:
		s, _ := v["value"].(string)
		return s
	}
	return ""
}

// refsFor extracts the (field -> referenced local id) rows the store indexes
// for relational lookups.
func refsFor(spec EntitySpec, doc Document) map[string]string {
	out := make(map[string]string)
	for _, ref := range spec.Refs {
		if raw, ok := doc[ref.Field]; ok {
			if id := refValue(raw); id != "" {
				out[ref.Field] = id
			}
		}
	}
	return out
}
