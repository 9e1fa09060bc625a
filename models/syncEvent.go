package models

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/mmdatafocus/nowmirror_backend/config"
	"github.com/mmdatafocus/nowmirror_backend/nowsync"
	"github.com/mmdatafocus/nowmirror_backend/utils"
)

const (
	OutboxPublishStatusPending    = "PENDING"
	OutboxPublishStatusProcessing = "PROCESSING"
	OutboxPublishStatusPublished  = "PUBLISHED"
	OutboxPublishStatusFailed     = "FAILED"
	OutboxPublishStatusDead       = "DEAD"
)

// SyncEvent is the outbox row behind the audit/reconciliation feed: every
// committed dual-write and every inconsistency lands here, and the
// dispatcher publishes them to Pub/Sub after the fact. Publishing is
// downstream plumbing; it never participates in the dual-write itself.
type SyncEvent struct {
	ID               uint       `gorm:"primary_key" json:"id"`
	EntityType       string     `gorm:"size:50;index" json:"entity_type"`
	Action           string     `gorm:"size:20" json:"action"`
	Status           string     `gorm:"size:20;index" json:"status"`
	LocalId          string     `gorm:"size:32;index" json:"local_id"`
	RemoteId         string     `gorm:"size:64;index" json:"remote_id"`
	Detail           string     `gorm:"type:text" json:"detail"`
	CorrelationId    string     `gorm:"size:64" json:"correlation_id"`
	PublishStatus    string     `gorm:"size:20;not null;index" json:"publish_status"`
	PublishAttempts  int        `json:"publish_attempts"`
	NextAttemptAt    *time.Time `json:"next_attempt_at"`
	LockedAt         *time.Time `json:"locked_at"`
	LockedBy         *string    `gorm:"size:64" json:"locked_by"`
	LastPublishError *string    `gorm:"type:text" json:"last_publish_error"`
	CreatedAt        time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// GormEventRecorder implements nowsync.EventRecorder. Best effort: a failed
// event write is logged and dropped, never surfaced into the write path.
type GormEventRecorder struct {
	DB     *gorm.DB
	Logger *logrus.Logger
}

func NewEventRecorder(db *gorm.DB, logger *logrus.Logger) *GormEventRecorder {
	return &GormEventRecorder{DB: db, Logger: logger}
}

func (r *GormEventRecorder) conn() *gorm.DB {
	if r.DB != nil {
		return r.DB
	}
	return config.GetDB()
}

func (r *GormEventRecorder) RecordEvent(ctx context.Context, ev nowsync.Event) {
	correlationID := ""
	if v, ok := utils.GetCorrelationIdFromContext(ctx); ok {
		correlationID = v
	}
	row := SyncEvent{
		EntityType:    ev.Entity,
		Action:        ev.Action,
		Status:        ev.Status,
		LocalId:       ev.LocalID,
		RemoteId:      ev.RemoteID,
		Detail:        ev.Detail,
		CorrelationId: correlationID,
		PublishStatus: OutboxPublishStatusPending,
	}
	if err := r.conn().WithContext(ctx).Create(&row).Error; err != nil && r.Logger != nil {
		config.LogError(r.Logger, "models", "RecordEvent", ev.Entity, ev.LocalID, err)
	}
}

// ListSyncEvents returns recent events for the ops endpoint, optionally
// filtered to a status (e.g. "inconsistent").
func ListSyncEvents(ctx context.Context, db *gorm.DB, status string, limit int) ([]SyncEvent, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := db.WithContext(ctx).Order("id DESC").Limit(limit)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var events []SyncEvent
	if err := q.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
