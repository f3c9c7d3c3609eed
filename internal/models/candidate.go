package models

import (
    "time"

    "github.com/google/uuid"
    "gorm.io/gorm"
)

// Candidate status progression: registered -> attendance_completed ->
// biometric_completed -> completed.
const (
    CandidateRegistered          = "registered"
    CandidateAttendanceCompleted = "attendance_completed"
    CandidateBiometricCompleted  = "biometric_completed"
    CandidateCompleted           = "completed"
)

type Candidate struct {
    ID         string `gorm:"type:uuid;primaryKey"`
    RollNo     string `gorm:"size:20;uniqueIndex:uniq_candidate_roll_exam"`
    ExamID     string `gorm:"type:uuid;uniqueIndex:uniq_candidate_roll_exam;index"`
    OMRNo      string `gorm:"size:20;index"`
    Name       string `gorm:"size:100"`
    FatherName string `gorm:"size:100"`
    DOB        *time.Time
    Gender     string `gorm:"size:10"`
    CentreCode string `gorm:"size:10;index"`
    SlotID     *string `gorm:"type:uuid"`
    PhotoURL   string  `gorm:"type:text"`

    // Biometric result cache, mutated by the verification flow.
    EnrolledFaceImage   string `gorm:"type:text"`
    OMRBarcode          string
    FaceMatchPercentage *float64
    Present             bool
    Verified            bool
    Status              string `gorm:"size:32;default:registered"`
    VerifiedBy          *string `gorm:"type:uuid"`
    VerifiedAt          *time.Time

    CreatedAt time.Time
    UpdatedAt time.Time
}

func (c *Candidate) BeforeCreate(tx *gorm.DB) (err error) {
    if c.ID == "" {
        c.ID = uuid.NewString()
    }
    return nil
}
