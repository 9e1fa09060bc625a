package models

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mmdatafocus/nowmirror_backend/config"
	"github.com/mmdatafocus/nowmirror_backend/nowsync"
)

const mirrorCacheTTL = 10 * time.Minute

// GormMirrorStore implements nowsync.MirrorStore on MySQL. Each document is
// one row; a write touches exactly one document row (plus its ref index),
// which is the only atomicity the synchronizer relies on.
type GormMirrorStore struct {
	DB *gorm.DB
}

func NewMirrorStore(db *gorm.DB) *GormMirrorStore {
	return &GormMirrorStore{DB: db}
}

// conn falls back to the global connection so the store can be wired into
// routes before the database finishes connecting at startup.
func (s *GormMirrorStore) conn() *gorm.DB {
	if s.DB != nil {
		return s.DB
	}
	return config.GetDB()
}

func mirrorCacheKey(collection, localID string) string {
	return "Mirror:" + collection + ":" + localID
}

func (s *GormMirrorStore) Insert(ctx context.Context, collection string, doc nowsync.Document, refs map[string]string) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	row := MirrorDocument{
		Collection: collection,
		LocalId:    doc.LocalID(),
		RemoteId:   doc.RemoteID(),
		Doc:        raw,
	}
	return s.conn().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		for field, refID := range refs {
			ref := MirrorRef{Collection: collection, LocalId: row.LocalId, Field: field, RefLocalId: refID}
			if err := tx.Create(&ref).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *GormMirrorStore) FindByLocalID(ctx context.Context, collection string, localID string) (nowsync.Document, error) {
	if config.MirrorCacheEnabled() {
		var cached nowsync.Document
		if ok, err := config.GetRedisObject(mirrorCacheKey(collection, localID), &cached); err == nil && ok {
			return cached, nil
		}
	}

	var row MirrorDocument
	err := s.conn().WithContext(ctx).
		Where("collection = ? AND local_id = ?", collection, localID).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nowsync.ErrDocumentNotFound
		}
		return nil, err
	}
	doc, err := decodeDoc(row)
	if err != nil {
		return nil, err
	}
	if config.MirrorCacheEnabled() {
		_ = config.SetRedisObject(mirrorCacheKey(collection, localID), doc, mirrorCacheTTL)
	}
	return doc, nil
}

func (s *GormMirrorStore) FindByRemoteID(ctx context.Context, collection string, remoteID string) (nowsync.Document, error) {
	var row MirrorDocument
	err := s.conn().WithContext(ctx).
		Where("collection = ? AND remote_id = ?", collection, remoteID).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nowsync.ErrDocumentNotFound
		}
		return nil, err
	}
	return decodeDoc(row)
}

func (s *GormMirrorStore) UpdateFields(ctx context.Context, collection string, localID string, fields nowsync.Document, refs map[string]string) (nowsync.Document, error) {
	var merged nowsync.Document
	err := s.conn().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row MirrorDocument
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("collection = ? AND local_id = ?", collection, localID).
			Take(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nowsync.ErrDocumentNotFound
			}
			return err
		}

		doc, err := decodeDoc(row)
		if err != nil {
			return err
		}
		for k, v := range fields {
			doc[k] = v
		}
		raw, err := json.Marshal(doc)
		if err != nil {
			return err
		}

		updates := map[string]interface{}{"doc": raw}
		if remoteID := doc.RemoteID(); remoteID != row.RemoteId {
			updates["remote_id"] = remoteID
		}
		if err := tx.Model(&MirrorDocument{}).Where("id = ?", row.ID).Updates(updates).Error; err != nil {
			return err
		}

		for field, refID := range refs {
			if err := tx.Where("collection = ? AND local_id = ? AND field = ?", collection, localID, field).
				Delete(&MirrorRef{}).Error; err != nil {
				return err
			}
			ref := MirrorRef{Collection: collection, LocalId: localID, Field: field, RefLocalId: refID}
			if err := tx.Create(&ref).Error; err != nil {
				return err
			}
		}

		merged = doc
		return nil
	})
	if err != nil {
		return nil, err
	}
	if config.MirrorCacheEnabled() {
		_ = config.RemoveRedisKey(mirrorCacheKey(collection, localID))
	}
	return merged, nil
}

func (s *GormMirrorStore) Delete(ctx context.Context, collection string, localID string) error {
	err := s.conn().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("collection = ? AND local_id = ?", collection, localID).Delete(&MirrorDocument{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nowsync.ErrDocumentNotFound
		}
		return tx.Where("collection = ? AND local_id = ?", collection, localID).Delete(&MirrorRef{}).Error
	})
	if err != nil {
		return err
	}
	if config.MirrorCacheEnabled() {
		_ = config.RemoveRedisKey(mirrorCacheKey(collection, localID))
	}
	return nil
}

func (s *GormMirrorStore) FindByRef(ctx context.Context, collection string, field string, refLocalID string) ([]nowsync.Document, error) {
	var rows []MirrorDocument
	err := s.conn().WithContext(ctx).
		Joins("JOIN mirror_refs ON mirror_refs.collection = mirror_documents.collection AND mirror_refs.local_id = mirror_documents.local_id").
		Where("mirror_documents.collection = ? AND mirror_refs.field = ? AND mirror_refs.ref_local_id = ?", collection, field, refLocalID).
		Order("mirror_documents.id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return decodeDocs(rows)
}

// List pages through a collection with an opaque id cursor.
func (s *GormMirrorStore) List(ctx context.Context, collection string, after *string, limit int) ([]nowsync.Document, *PageInfo, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	afterID := 0
	if decoded, err := DecodeCursor(after); err == nil && decoded != "" {
		if _, id := splitCursor(decoded); id > 0 {
			afterID = id
		}
	}

	var rows []MirrorDocument
	q := s.conn().WithContext(ctx).Where("collection = ?", collection)
	if afterID > 0 {
		q = q.Where("id > ?", afterID)
	}
	if err := q.Order("id ASC").Limit(limit + 1).Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	hasNext := len(rows) > limit
	if hasNext {
		rows = rows[:limit]
	}
	docs, err := decodeDocs(rows)
	if err != nil {
		return nil, nil, err
	}

	info := &PageInfo{HasNextPage: &hasNext}
	if len(rows) > 0 {
		info.StartCursor = EncodeCompositeCursor(collection, int(rows[0].ID))
		info.EndCursor = EncodeCompositeCursor(collection, int(rows[len(rows)-1].ID))
	}
	return docs, info, nil
}

func decodeDoc(row MirrorDocument) (nowsync.Document, error) {
	var doc nowsync.Document
	if err := json.Unmarshal(row.Doc, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func decodeDocs(rows []MirrorDocument) ([]nowsync.Document, error) {
	docs := make([]nowsync.Document, 0, len(rows))
	for _, row := range rows {
		doc, err := decodeDoc(row)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
