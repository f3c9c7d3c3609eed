package sync

import (
    "testing"

    "github.com/stretchr/testify/require"
    "gorm.io/driver/sqlite"
    "gorm.io/gorm"
    "gorm.io/gorm/logger"

    "github.com/nkodex/examsync_backend/internal/models"
)

func testDB(t *testing.T) *gorm.DB {
    t.Helper()
    db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
        TranslateError: true,
        Logger:         logger.Default.LogMode(logger.Silent),
    })
    require.NoError(t, err)
    sqlDB, err := db.DB()
    require.NoError(t, err)
    sqlDB.SetMaxOpenConns(1)

    require.NoError(t, db.AutoMigrate(
        &models.Exam{},
        &models.Candidate{},
        &models.Attendance{},
        &models.Biometric{},
        &models.Fingerprint{},
        &models.SyncStatus{},
    ))
    return db
}

type capturedEvents struct {
    events []Event
}

func (ce *capturedEvents) Publish(evt Event) {
    ce.events = append(ce.events, evt)
}

func testService(t *testing.T) (*Service, *capturedEvents) {
    t.Helper()
    sink := &capturedEvents{}
    return NewService(testDB(t), sink), sink
}

func seedCandidate(t *testing.T, db *gorm.DB, rollNo, examID string) *models.Candidate {
    t.Helper()
    cand := &models.Candidate{
        RollNo: rollNo,
        ExamID: examID,
        Name:   "Candidate " + rollNo,
        Status: models.CandidateRegistered,
    }
    require.NoError(t, db.Create(cand).Error)
    return cand
}

func seedAttendance(t *testing.T, db *gorm.DB, candidateID, examID, operatorID string) *models.Attendance {
    t.Helper()
    att := &models.Attendance{
        CandidateID: candidateID,
        ExamID:      examID,
        OperatorID:  operatorID,
        Present:     true,
        Status:      models.AttendanceCompleted,
    }
    require.NoError(t, db.Create(att).Error)
    return att
}
