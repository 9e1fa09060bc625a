package models

import (
	"time"
)

// MirrorDocument is one mirrored record: the remote system's fields kept
// verbatim as JSON, keyed by the locally-generated id, with the remote
// sys_id cross-referenced for reverse lookups.
type MirrorDocument struct {
	ID         uint      `gorm:"primary_key" json:"id"`
	Collection string    `gorm:"size:64;not null;uniqueIndex:uniq_doc,priority:1;index:idx_remote,priority:1" json:"collection"`
	LocalId    string    `gorm:"size:32;not null;uniqueIndex:uniq_doc,priority:2" json:"local_id"`
	RemoteId   string    `gorm:"size:64;index:idx_remote,priority:2" json:"remote_id"`
	Doc        []byte    `gorm:"type:json" json:"doc"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// MirrorRef is the extracted foreign-field index for relational lookups
// ("all contacts whose account field equals X"). Values are local ids; raw
// remote identifiers are never stored here.
type MirrorRef struct {
	ID         uint   `gorm:"primary_key" json:"id"`
	Collection string `gorm:"size:64;not null;index:idx_ref_owner,priority:1;index:idx_ref_lookup,priority:1" json:"collection"`
	LocalId    string `gorm:"size:32;not null;index:idx_ref_owner,priority:2" json:"local_id"`
	Field      string `gorm:"size:64;not null;index:idx_ref_owner,priority:3;index:idx_ref_lookup,priority:2" json:"field"`
	RefLocalId string `gorm:"size:32;not null;index:idx_ref_lookup,priority:3" json:"ref_local_id"`
}
