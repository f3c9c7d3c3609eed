package sync

import (
    "errors"
    "testing"

    "github.com/google/uuid"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "gorm.io/gorm"

    "github.com/nkodex/examsync_backend/internal/models"
)

func TestDetectNoConflict(t *testing.T) {
    svc, sink := testService(t)
    examID := uuid.NewString()
    cand := seedCandidate(t, svc.DB, "R001", examID)

    det, err := svc.Detect(cand.ID, examID, models.EntityAttendance, uuid.NewString())
    require.NoError(t, err)
    assert.False(t, det.Conflict)
    assert.Empty(t, det.ConflictID)
    assert.Nil(t, det.Existing)

    // A clean check must not leave anything in the ledger.
    var count int64
    require.NoError(t, svc.DB.Model(&models.SyncStatus{}).Count(&count).Error)
    assert.Zero(t, count)
    assert.Empty(t, sink.events)
}

func TestDetectConflictAppendsLedgerRow(t *testing.T) {
    svc, sink := testService(t)
    examID := uuid.NewString()
    operatorID := uuid.NewString()
    cand := seedCandidate(t, svc.DB, "R001", examID)
    att := seedAttendance(t, svc.DB, cand.ID, examID, operatorID)

    det, err := svc.Detect(cand.ID, examID, models.EntityAttendance, operatorID)
    require.NoError(t, err)
    assert.True(t, det.Conflict)
    assert.NotEmpty(t, det.ConflictID)

    existing, ok := det.Existing.(*models.Attendance)
    require.True(t, ok)
    assert.Equal(t, att.ID, existing.ID)

    var row models.SyncStatus
    require.NoError(t, svc.DB.Where("id = ?", det.ConflictID).First(&row).Error)
    assert.True(t, row.ConflictDetected)
    assert.Equal(t, models.SyncConflict, row.SyncStatus)
    assert.Equal(t, models.EntityAttendance, row.EntityType)
    require.NotNil(t, row.EntityID)
    assert.Equal(t, att.ID, *row.EntityID)
    assert.Contains(t, row.ConflictReason, "Duplicate attendance record detected")
    assert.False(t, row.Resolved)

    require.Len(t, sink.events, 1)
    assert.Equal(t, EventConflictDetected, sink.events[0].Type)
    assert.Equal(t, det.ConflictID, sink.events[0].ConflictID)
}

func TestDetectConflictExactlyOneRowPerCheck(t *testing.T) {
    svc, _ := testService(t)
    examID := uuid.NewString()
    cand := seedCandidate(t, svc.DB, "R001", examID)
    seedAttendance(t, svc.DB, cand.ID, examID, uuid.NewString())

    for i := 0; i < 3; i++ {
        _, err := svc.Detect(cand.ID, examID, models.EntityAttendance, uuid.NewString())
        require.NoError(t, err)
    }

    // Every duplicate push appends its own conflict row; the ledger is a
    // history, not a latest-state table.
    var count int64
    require.NoError(t, svc.DB.Model(&models.SyncStatus{}).
        Where("conflict_detected = ?", true).Count(&count).Error)
    assert.EqualValues(t, 3, count)
}

func TestDetectCandidateByRollNo(t *testing.T) {
    svc, _ := testService(t)
    examID := uuid.NewString()
    seedCandidate(t, svc.DB, "R001", examID)

    det, err := svc.Detect("R001", examID, models.EntityCandidate, uuid.NewString())
    require.NoError(t, err)
    assert.True(t, det.Conflict)

    // Same roll number in a different exam is a different candidate.
    det, err = svc.Detect("R001", uuid.NewString(), models.EntityCandidate, uuid.NewString())
    require.NoError(t, err)
    assert.False(t, det.Conflict)
}

func TestDetectInvalidEntityType(t *testing.T) {
    svc, _ := testService(t)

    det, err := svc.Detect(uuid.NewString(), uuid.NewString(), "passport", uuid.NewString())
    require.Error(t, err)
    assert.Nil(t, det)
    assert.True(t, IsCode(err, CodeInvalidEntityType))
}

func TestReclassifyDuplicateKeyAsConflict(t *testing.T) {
    svc, _ := testService(t)
    examID := uuid.NewString()
    operatorID := uuid.NewString()
    cand := seedCandidate(t, svc.DB, "R001", examID)
    att := seedAttendance(t, svc.DB, cand.ID, examID, operatorID)

    // A writer that lost the insert race hits the unique index after a clean
    // pre-check. The violation must come back as a conflict outcome, with a
    // ledger row pointing at the winner.
    out, err := svc.reclassifyOrFail(operatorID, examID, models.EntityAttendance,
        cand.ID, "R001", gorm.ErrDuplicatedKey)
    require.NoError(t, err)
    assert.Equal(t, models.SyncConflict, out.Status)
    assert.NotEmpty(t, out.ConflictID)

    var row models.SyncStatus
    require.NoError(t, svc.DB.Where("id = ?", out.ConflictID).First(&row).Error)
    require.NotNil(t, row.EntityID)
    assert.Equal(t, att.ID, *row.EntityID)
}

func TestReclassifyUnrelatedErrorStaysFailed(t *testing.T) {
    svc, _ := testService(t)
    examID := uuid.NewString()
    operatorID := uuid.NewString()
    cand := seedCandidate(t, svc.DB, "R001", examID)

    out, err := svc.reclassifyOrFail(operatorID, examID, models.EntityAttendance,
        cand.ID, "R001", errors.New("connection reset"))
    require.Error(t, err)
    assert.Nil(t, out)
    assert.True(t, IsCode(err, CodeStore))

    var count int64
    require.NoError(t, svc.DB.Model(&models.SyncStatus{}).
        Where("sync_status = ?", models.SyncFailed).Count(&count).Error)
    assert.EqualValues(t, 1, count)
}
