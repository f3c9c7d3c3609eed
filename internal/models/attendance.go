package models

import (
    "time"

    "github.com/google/uuid"
    "gorm.io/gorm"
)

const (
    AttendancePending   = "pending"
    AttendanceCompleted = "completed"
    AttendanceSkipped   = "skipped"
)

// Attendance holds one row per candidate per exam. The unique index on
// (candidate_id, exam_id) is the real duplicate guard; sync conflict
// detection pre-checks it but the constraint has the final word.
type Attendance struct {
    ID         string `gorm:"type:uuid;primaryKey"`
    CandidateID string `gorm:"type:uuid;uniqueIndex:uniq_attendance_candidate_exam"`
    ExamID     string `gorm:"type:uuid;uniqueIndex:uniq_attendance_candidate_exam;index"`
    CentreCode string `gorm:"size:10"`
    OperatorID string `gorm:"type:uuid;index"`
    Present    bool
    Status     string `gorm:"size:16;default:pending"`
    MarkedAt   time.Time

    // Checkpoint flags set by the admin markEligible action. Biometric
    // capture is refused until both are true.
    Checkpoint        bool
    BiometricEligible bool

    Corrected   bool
    CorrectedBy *string `gorm:"type:uuid"`
    CorrectedAt *time.Time
    Notes       string `gorm:"type:text"`

    CreatedAt time.Time
    UpdatedAt time.Time
}

func (a *Attendance) BeforeCreate(tx *gorm.DB) (err error) {
    if a.ID == "" {
        a.ID = uuid.NewString()
    }
    if a.MarkedAt.IsZero() {
        a.MarkedAt = time.Now().UTC()
    }
    return nil
}
