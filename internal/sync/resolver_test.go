package sync

import (
    "testing"

    "github.com/google/uuid"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/nkodex/examsync_backend/internal/models"
)

// seedConflict pushes an attendance duplicate and returns the conflict ledger
// row id together with the surviving attendance record.
func seedConflict(t *testing.T, svc *Service) (conflictID string, att *models.Attendance, examID string) {
    t.Helper()
    examID = uuid.NewString()
    operatorID := uuid.NewString()
    cand := seedCandidate(t, svc.DB, "R001", examID)
    att = seedAttendance(t, svc.DB, cand.ID, examID, operatorID)

    det, err := svc.Detect(cand.ID, examID, models.EntityAttendance, operatorID)
    require.NoError(t, err)
    require.True(t, det.Conflict)
    return det.ConflictID, att, examID
}

func TestResolveKeepExisting(t *testing.T) {
    svc, sink := testService(t)
    conflictID, att, _ := seedConflict(t, svc)
    admin := uuid.NewString()

    resolved, err := svc.Resolve(conflictID, Resolution{
        Strategy:   StrategyKeepExisting,
        ResolvedBy: admin,
    })
    require.NoError(t, err)
    assert.Equal(t, conflictID, resolved.ID)

    var row models.SyncStatus
    require.NoError(t, svc.DB.Where("id = ?", conflictID).First(&row).Error)
    assert.True(t, row.Resolved)
    require.NotNil(t, row.ResolvedAt)
    require.NotNil(t, row.ResolvedBy)
    assert.Equal(t, admin, *row.ResolvedBy)
    assert.Equal(t, "Kept existing attendance record", row.Resolution)

    // keep_existing must not touch the record store.
    var after models.Attendance
    require.NoError(t, svc.DB.Where("id = ?", att.ID).First(&after).Error)
    assert.Equal(t, att.Present, after.Present)
    assert.Equal(t, att.Status, after.Status)
    assert.Equal(t, att.OperatorID, after.OperatorID)

    var evt *Event
    for i := range sink.events {
        if sink.events[i].Type == EventConflictResolved {
            evt = &sink.events[i]
        }
    }
    require.NotNil(t, evt)
    assert.Equal(t, conflictID, evt.ConflictID)
}

func TestResolveUseNewOverwrites(t *testing.T) {
    svc, _ := testService(t)
    conflictID, att, _ := seedConflict(t, svc)

    resolved, err := svc.Resolve(conflictID, Resolution{
        Strategy: StrategyUseNew,
        NewData: map[string]interface{}{
            "present":  false,
            "status":   models.AttendanceSkipped,
            "notes":    "operator correction after review",
            "passport": "ignored", // not a syncable field
        },
    })
    require.NoError(t, err)
    assert.Equal(t, conflictID, resolved.ID)

    var row models.SyncStatus
    require.NoError(t, svc.DB.Where("id = ?", conflictID).First(&row).Error)
    assert.True(t, row.Resolved)
    assert.Equal(t, "Replaced with new attendance record", row.Resolution)

    var after models.Attendance
    require.NoError(t, svc.DB.Where("id = ?", att.ID).First(&after).Error)
    assert.False(t, after.Present)
    assert.Equal(t, models.AttendanceSkipped, after.Status)
    assert.Equal(t, "operator correction after review", after.Notes)
    // Key fields were never in the mapping and cannot change.
    assert.Equal(t, att.CandidateID, after.CandidateID)
    assert.Equal(t, att.ExamID, after.ExamID)
}

func TestResolveUseNewWithoutData(t *testing.T) {
    svc, _ := testService(t)
    conflictID, _, _ := seedConflict(t, svc)

    _, err := svc.Resolve(conflictID, Resolution{Strategy: StrategyUseNew})
    require.Error(t, err)
    assert.True(t, IsCode(err, CodeMissingData))

    // A failed resolution leaves the conflict open.
    var row models.SyncStatus
    require.NoError(t, svc.DB.Where("id = ?", conflictID).First(&row).Error)
    assert.False(t, row.Resolved)
}

func TestResolveUseNewNoRecognizedFields(t *testing.T) {
    svc, _ := testService(t)
    conflictID, _, _ := seedConflict(t, svc)

    _, err := svc.Resolve(conflictID, Resolution{
        Strategy: StrategyUseNew,
        NewData:  map[string]interface{}{"passport": "x", "seat": 12},
    })
    require.Error(t, err)
    assert.True(t, IsCode(err, CodeMissingData))
}

func TestResolveMergeOverwrites(t *testing.T) {
    svc, _ := testService(t)
    conflictID, att, _ := seedConflict(t, svc)

    _, err := svc.Resolve(conflictID, Resolution{
        Strategy: StrategyMerge,
        NewData:  map[string]interface{}{"notes": "merged"},
    })
    require.NoError(t, err)

    var row models.SyncStatus
    require.NoError(t, svc.DB.Where("id = ?", conflictID).First(&row).Error)
    assert.Equal(t, "Merged attendance records", row.Resolution)

    var after models.Attendance
    require.NoError(t, svc.DB.Where("id = ?", att.ID).First(&after).Error)
    assert.Equal(t, "merged", after.Notes)
    // Fields absent from newData keep their stored values.
    assert.Equal(t, att.Present, after.Present)
}

func TestResolveInvalidStrategy(t *testing.T) {
    svc, _ := testService(t)
    conflictID, _, _ := seedConflict(t, svc)

    _, err := svc.Resolve(conflictID, Resolution{Strategy: "coin_toss"})
    require.Error(t, err)
    assert.True(t, IsCode(err, CodeInvalidStrategy))
}

func TestResolveNotFound(t *testing.T) {
    svc, _ := testService(t)

    _, err := svc.Resolve(uuid.NewString(), Resolution{Strategy: StrategyKeepExisting})
    require.Error(t, err)
    assert.True(t, IsCode(err, CodeNotFound))
}

func TestResolveNonConflictRow(t *testing.T) {
    svc, _ := testService(t)
    entityID := uuid.NewString()
    row := models.SyncStatus{
        OperatorID: uuid.NewString(),
        ExamID:     uuid.NewString(),
        EntityType: models.EntityAttendance,
        EntityID:   &entityID,
        SyncStatus: models.SyncSynced,
    }
    require.NoError(t, svc.DB.Create(&row).Error)

    _, err := svc.Resolve(row.ID, Resolution{Strategy: StrategyKeepExisting})
    require.Error(t, err)
    assert.True(t, IsCode(err, CodeNotAConflict))
}

func TestResolveThenConflictListShrinks(t *testing.T) {
    svc, _ := testService(t)
    conflictID, _, examID := seedConflict(t, svc)

    open, err := svc.ExamConflicts(examID)
    require.NoError(t, err)
    require.Len(t, open, 1)

    _, err = svc.Resolve(conflictID, Resolution{Strategy: StrategyKeepExisting})
    require.NoError(t, err)

    open, err = svc.ExamConflicts(examID)
    require.NoError(t, err)
    assert.Empty(t, open)
}
