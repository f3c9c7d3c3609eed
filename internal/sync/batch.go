package sync

import (
    "fmt"
    "log"
    "time"

    "github.com/nkodex/examsync_backend/internal/models"
)

// BatchPayload is one device push: everything an operator captured offline
// for one exam, in one request.
type BatchPayload struct {
    Candidates []CandidateItem  `json:"candidates"`
    Attendance []AttendanceItem `json:"attendance"`
    Biometrics []BiometricItem  `json:"biometrics"`
    Timestamp  *time.Time       `json:"timestamp"`
}

type ItemDetail struct {
    Type       string `json:"type"`
    RollNo     string `json:"rollNo"`
    Status     string `json:"status"`
    ConflictID string `json:"conflictId,omitempty"`
    Error      string `json:"error,omitempty"`
}

type BatchResult struct {
    Synced    int          `json:"synced"`
    Conflicts int          `json:"conflicts"`
    Failed    int          `json:"failed"`
    Details   []ItemDetail `json:"details"`
}

// SyncBatch routes every item through conflict detection and aggregates
// per-item outcomes. Items are independent; a failing item never aborts the
// batch. One device_sync summary ledger row is written at the end.
func (s *Service) SyncBatch(operatorID, examID string, payload BatchPayload) (*BatchResult, error) {
    result := &BatchResult{Details: make([]ItemDetail, 0, len(payload.Candidates)+len(payload.Attendance)+len(payload.Biometrics))}

    for _, item := range payload.Candidates {
        out, err := s.SyncCandidate(operatorID, examID, item)
        result.tally(models.EntityCandidate, item.RollNo.String(), out, err)
    }
    for _, item := range payload.Attendance {
        out, err := s.SyncAttendance(operatorID, examID, item)
        result.tally(models.EntityAttendance, item.RollNo.String(), out, err)
    }
    for _, item := range payload.Biometrics {
        out, err := s.SyncBiometric(operatorID, examID, item)
        result.tally(models.EntityBiometric, item.RollNo.String(), out, err)
    }

    summary := models.SyncStatus{
        OperatorID: operatorID,
        ExamID:     examID,
        EntityType: models.SyncTypeDevice,
        SyncType:   models.SyncTypeDevice,
        SyncStatus: summaryStatus(result),
        ConflictReason: fmt.Sprintf("device sync: synced=%d conflicts=%d failed=%d",
            result.Synced, result.Conflicts, result.Failed),
    }
    if payload.Timestamp != nil {
        summary.SyncTimestamp = payload.Timestamp.UTC()
    }
    if err := s.DB.Create(&summary).Error; err != nil {
        log.Printf("sync: device summary row: %v", err)
    }

    s.publish(Event{
        Type:       EventBatchCompleted,
        ExamID:     examID,
        OperatorID: operatorID,
        Synced:     result.Synced,
        Conflicts:  result.Conflicts,
        Failed:     result.Failed,
    })

    return result, nil
}

func (r *BatchResult) tally(entityType, rollNo string, out *Outcome, err error) {
    detail := ItemDetail{Type: entityType, RollNo: rollNo}
    switch {
    case err != nil:
        r.Failed++
        detail.Status = models.SyncFailed
        detail.Error = err.Error()
    case out.Status == models.SyncConflict:
        r.Conflicts++
        detail.Status = models.SyncConflict
        detail.ConflictID = out.ConflictID
    default:
        r.Synced++
        detail.Status = models.SyncSynced
    }
    r.Details = append(r.Details, detail)
}

func summaryStatus(r *BatchResult) string {
    switch {
    case r.Conflicts > 0:
        return models.SyncConflict
    case r.Failed > 0 && r.Synced == 0:
        return models.SyncFailed
    default:
        return models.SyncSynced
    }
}
