package nowsync

import (
	"context"
	"strings"
	"testing"
)

func seedOffering(s *fakeStore, localID, sysID string) Document {
	doc := Document{
		FieldLocalID:  localID,
		FieldRemoteID: sysID,
		"name":        "offering " + localID[:4],
	}
	s.put(ProductOffering.Collection, doc, nil)
	return doc
}

func seedCategory(s *fakeStore, localID, sysID string) Document {
	doc := Document{
		FieldLocalID:  localID,
		FieldRemoteID: sysID,
	}
	s.put(ProductOfferingCategory.Collection, doc, nil)
	return doc
}

func TestRelationshipSyncCreatesMissing(t *testing.T) {
	remote := &fakeRemote{}
	store := newFakeStore()
	events := &fakeEvents{}
	anchor := seedOffering(store, "1111111111111111111111aa", "sys-po-1")
	seedCategory(store, "1111111111111111111111ab", "sys-cat-1")

	rels := NewRelationshipSynchronizer(remote, store, events, nil)
	err := rels.Sync(context.Background(), CatalogCategoryRelation, "source", "target",
		anchor, []string{"1111111111111111111111ab"}, Credential{})
	if err != nil {
		t.Fatalf("sync: %v", err)
	}

	// The join record carries both sys_ids remotely.
	if got := remote.lastCreatePayload["source"]; got != "sys-po-1" {
		t.Errorf("source = %v, want sys-po-1", got)
	}
	if got := remote.lastCreatePayload["target"]; got != "sys-cat-1" {
		t.Errorf("target = %v, want sys-cat-1", got)
	}
	if _, ok := remote.lastCreatePayload[FieldExternalRef].(string); !ok {
		t.Error("join record sent without external_id")
	}

	// And both local ids in the mirror.
	recs, _ := store.FindByRef(context.Background(), CatalogCategoryRelation.Collection, "source", "1111111111111111111111aa")
	if len(recs) != 1 {
		t.Fatalf("mirrored join records = %d, want 1", len(recs))
	}
	if got := recs[0]["target"]; got != "1111111111111111111111ab" {
		t.Errorf("mirrored target = %v, want local id", got)
	}
}

func TestRelationshipSyncRemovesExtra(t *testing.T) {
	remote := &fakeRemote{}
	store := newFakeStore()
	anchor := seedOffering(store, "2222222222222222222222aa", "sys-po-2")
	seedCategory(store, "2222222222222222222222ab", "sys-cat-2")
	store.put(CatalogCategoryRelation.Collection, Document{
		FieldLocalID:  "2222222222222222222222ac",
		FieldRemoteID: "sys-rel-1",
		"source":      "2222222222222222222222aa",
		"target":      "2222222222222222222222ab",
	}, map[string]string{"source": "2222222222222222222222aa", "target": "2222222222222222222222ab"})

	rels := NewRelationshipSynchronizer(remote, store, &fakeEvents{}, nil)
	if err := rels.Sync(context.Background(), CatalogCategoryRelation, "source", "target",
		anchor, nil, Credential{}); err != nil {
		t.Fatalf("sync: %v", err)
	}

	removed := false
	for _, call := range remote.calls {
		if strings.HasPrefix(call, "remote.delete:"+CatalogCategoryRelation.Table) {
			removed = true
		}
	}
	if !removed {
		t.Error("extra join record not deleted remotely")
	}
	recs, _ := store.FindByRef(context.Background(), CatalogCategoryRelation.Collection, "source", "2222222222222222222222aa")
	if len(recs) != 0 {
		t.Errorf("mirrored join records remain: %v", recs)
	}
}

func TestRelationshipSyncNoopWhenConverged(t *testing.T) {
	remote := &fakeRemote{}
	store := newFakeStore()
	anchor := seedOffering(store, "3333333333333333333333aa", "sys-po-3")
	seedCategory(store, "3333333333333333333333ab", "sys-cat-3")
	store.put(CatalogCategoryRelation.Collection, Document{
		FieldLocalID:  "3333333333333333333333ac",
		FieldRemoteID: "sys-rel-2",
		"source":      "3333333333333333333333aa",
		"target":      "3333333333333333333333ab",
	}, map[string]string{"source": "3333333333333333333333aa", "target": "3333333333333333333333ab"})

	rels := NewRelationshipSynchronizer(remote, store, &fakeEvents{}, nil)
	if err := rels.Sync(context.Background(), CatalogCategoryRelation, "source", "target",
		anchor, []string{"3333333333333333333333ab"}, Credential{}); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if len(remote.calls) != 0 {
		t.Errorf("remote touched on converged state: %v", remote.calls)
	}
}

func TestRelationshipSyncRequiresAnchorRemoteID(t *testing.T) {
	store := newFakeStore()
	anchor := Document{FieldLocalID: "4444444444444444444444aa"}
	rels := NewRelationshipSynchronizer(&fakeRemote{}, store, &fakeEvents{}, nil)

	err := rels.Sync(context.Background(), CatalogCategoryRelation, "source", "target",
		anchor, []string{"4444444444444444444444ab"}, Credential{})
	if !IsReferenceNotFound(err) {
		t.Fatalf("err = %v, want ReferenceError", err)
	}
}

func TestRelationshipSyncFailsOnMissingOtherSide(t *testing.T) {
	remote := &fakeRemote{}
	store := newFakeStore()
	anchor := seedOffering(store, "5555555555555555555555aa", "sys-po-5")

	rels := NewRelationshipSynchronizer(remote, store, &fakeEvents{}, nil)
	err := rels.Sync(context.Background(), CatalogCategoryRelation, "source", "target",
		anchor, []string{"5555555555555555555555ab"}, Credential{})
	if !IsReferenceNotFound(err) {
		t.Fatalf("err = %v, want ReferenceError", err)
	}
	if len(remote.calls) != 0 {
		t.Errorf("remote touched for unresolvable member: %v", remote.calls)
	}
}

func TestRelationshipSyncAnchoredAtCategory(t *testing.T) {
	remote := &fakeRemote{}
	store := newFakeStore()
	seedOffering(store, "7777777777777777777777aa", "sys-po-7")
	anchor := seedCategory(store, "7777777777777777777777ab", "sys-cat-7")

	rels := NewRelationshipSynchronizer(remote, store, &fakeEvents{}, nil)
	err := rels.Sync(context.Background(), CatalogCategoryRelation, "target", "source",
		anchor, []string{"7777777777777777777777aa"}, Credential{})
	if err != nil {
		t.Fatalf("sync: %v", err)
	}

	if got := remote.lastCreatePayload["target"]; got != "sys-cat-7" {
		t.Errorf("target = %v, want sys-cat-7", got)
	}
	if got := remote.lastCreatePayload["source"]; got != "sys-po-7" {
		t.Errorf("source = %v, want sys-po-7", got)
	}

	// The mirrored join record is findable from the category end.
	recs, _ := store.FindByRef(context.Background(), CatalogCategoryRelation.Collection, "target", "7777777777777777777777ab")
	if len(recs) != 1 {
		t.Fatalf("mirrored join records = %d, want 1", len(recs))
	}
	if got := recs[0]["source"]; got != "7777777777777777777777aa" {
		t.Errorf("mirrored source = %v, want local id", got)
	}
}

func TestDeleteOfferingSweepsJoinRecords(t *testing.T) {
	remote := &fakeRemote{}
	store := newFakeStore()
	seedOffering(store, "6666666666666666666666aa", "sys-po-6")
	for i, suffix := range []string{"ab", "ac"} {
		store.put(CatalogCategoryRelation.Collection, Document{
			FieldLocalID:  "6666666666666666666666" + suffix,
			FieldRemoteID: "sys-rel-" + string(rune('a'+i)),
			"source":      "6666666666666666666666aa",
		}, map[string]string{"source": "6666666666666666666666aa"})
	}

	sync := NewSynchronizer(remote, store, &fakeEvents{}, nil)
	out := sync.Delete(context.Background(), ProductOffering, "6666666666666666666666aa", Credential{})
	if out.State != StateCommitted {
		t.Fatalf("state = %v, want committed (err=%v)", out.State, out.Err)
	}
	recs, _ := store.FindByRef(context.Background(), CatalogCategoryRelation.Collection, "source", "6666666666666666666666aa")
	if len(recs) != 0 {
		t.Errorf("join records remain: %v", recs)
	}
}
