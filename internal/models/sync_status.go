package models

import (
    "time"

    "github.com/google/uuid"
    "gorm.io/gorm"
)

const (
    SyncPending  = "pending"
    SyncSynced   = "synced"
    SyncConflict = "conflict"
    SyncFailed   = "failed"
)

const (
    EntityCandidate   = "candidate"
    EntityAttendance  = "attendance"
    EntityBiometric   = "biometric"
    EntityFingerprint = "fingerprint"

    // SyncTypeDevice marks the per-batch summary row written after a
    // device push, as opposed to per-record rows.
    SyncTypeDevice = "device_sync"
)

// SyncStatus is one ledger row per sync attempt. Rows are append-only; only
// the resolution fields of a conflict row are mutated, when an admin
// resolves it. The composite index is deliberately non-unique: a later push
// for an already-synced entity appends a conflict row rather than being
// rejected, and routing through conflict detection is what keeps one
// "current" row per entity.
type SyncStatus struct {
    ID         string `gorm:"type:uuid;primaryKey"`
    OperatorID string `gorm:"type:uuid;index:idx_sync_status_operator"`
    ExamID     string `gorm:"type:uuid;index:idx_sync_status_exam"`
    EntityType string `gorm:"size:16;index:idx_sync_entity,priority:1"`
    EntityID   *string `gorm:"type:uuid;index:idx_sync_entity,priority:2"`
    SyncType   string  `gorm:"size:16"`

    SyncStatus    string    `gorm:"size:16;default:pending;index:idx_sync_status_status"`
    SyncTimestamp time.Time `gorm:"index"`
    RetryCount    int

    ConflictDetected bool   `gorm:"index:idx_sync_status_conflict"`
    ConflictReason   string `gorm:"type:text"`

    Resolved   bool
    ResolvedAt *time.Time
    ResolvedBy *string `gorm:"type:uuid"`
    Resolution string  `gorm:"type:text"`

    CreatedAt time.Time
    UpdatedAt time.Time
}

func (s *SyncStatus) BeforeCreate(tx *gorm.DB) (err error) {
    if s.ID == "" {
        s.ID = uuid.NewString()
    }
    if s.SyncTimestamp.IsZero() {
        s.SyncTimestamp = time.Now().UTC()
    }
    return nil
}
