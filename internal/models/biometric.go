package models

import (
    "time"

    "github.com/google/uuid"
    "gorm.io/gorm"
)

const (
    BiometricPending  = "pending"
    BiometricVerified = "verified"
    BiometricFailed   = "failed"
)

// Biometric stores at most one live verification per candidate per exam.
// Re-verification goes through the explicit reverify path which clears the
// verified state; a repeat capture otherwise lands in the conflict queue.
type Biometric struct {
    ID          string `gorm:"type:uuid;primaryKey"`
    CandidateID string `gorm:"type:uuid;uniqueIndex:uniq_biometric_candidate_exam"`
    ExamID      string `gorm:"type:uuid;uniqueIndex:uniq_biometric_candidate_exam;index"`
    OperatorID  string `gorm:"type:uuid;index"`

    VerificationType    string `gorm:"size:16;default:face"` // face, fingerprint, both
    FaceMatchPercentage *float64
    MatchThreshold      float64 `gorm:"default:96.5"`
    Verified            bool
    Status              string `gorm:"size:16;default:pending"`
    FaceImageURL        string `gorm:"type:text"`
    EnrolledFaceImage   string `gorm:"type:text"`
    OMRSerialNumber     string `gorm:"size:50"`
    VerificationTimestamp *time.Time

    Reverified   bool
    ReverifiedAt *time.Time

    CreatedAt time.Time
    UpdatedAt time.Time
}

func (b *Biometric) BeforeCreate(tx *gorm.DB) (err error) {
    if b.ID == "" {
        b.ID = uuid.NewString()
    }
    return nil
}
