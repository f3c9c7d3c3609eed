package models

import (
    "time"

    "github.com/google/uuid"
    "gorm.io/gorm"
)

// Fingerprint keeps an opaque capture reference only. Matching fields are
// deliberately absent; fingerprint comparison is not part of this system.
type Fingerprint struct {
    ID          string `gorm:"type:uuid;primaryKey"`
    CandidateID string `gorm:"type:uuid;uniqueIndex:uniq_fingerprint_candidate_exam"`
    ExamID      string `gorm:"type:uuid;uniqueIndex:uniq_fingerprint_candidate_exam;index"`
    OperatorID  string `gorm:"type:uuid;index"`

    ImageRef        string `gorm:"type:text"` // storage URL of the captured image
    StorageLocation string // storage path/key
    CaptureDeviceID string
    ImageQuality    *float64
    Encrypted       bool `gorm:"default:true"`
    CaptureTimestamp time.Time

    CreatedAt time.Time
    UpdatedAt time.Time
}

func (f *Fingerprint) BeforeCreate(tx *gorm.DB) (err error) {
    if f.ID == "" {
        f.ID = uuid.NewString()
    }
    if f.CaptureTimestamp.IsZero() {
        f.CaptureTimestamp = time.Now().UTC()
    }
    return nil
}
