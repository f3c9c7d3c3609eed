package sync

import (
    "time"

    "github.com/nkodex/examsync_backend/internal/models"
)

type StatusSummary struct {
    Total     int `json:"total"`
    Synced    int `json:"synced"`
    Pending   int `json:"pending"`
    Conflicts int `json:"conflicts"`
    Failed    int `json:"failed"`
}

type StatusReport struct {
    Statuses []models.SyncStatus `json:"statuses"`
    Summary  StatusSummary       `json:"summary"`
}

// OperatorStatus returns the full ledger for one operator/exam pair, newest
// first, with summary counts for the device UI.
func (s *Service) OperatorStatus(operatorID, examID string) (*StatusReport, error) {
    var statuses []models.SyncStatus
    err := s.DB.Where("operator_id = ? AND exam_id = ?", operatorID, examID).
        Order("sync_timestamp DESC").Find(&statuses).Error
    if err != nil {
        return nil, storeErr("list sync statuses", err)
    }

    report := &StatusReport{Statuses: statuses}
    report.Summary.Total = len(statuses)
    for _, st := range statuses {
        switch st.SyncStatus {
        case models.SyncSynced:
            report.Summary.Synced++
        case models.SyncPending:
            report.Summary.Pending++
        case models.SyncConflict:
            report.Summary.Conflicts++
        case models.SyncFailed:
            report.Summary.Failed++
        }
    }
    return report, nil
}

// ExamConflicts lists unresolved conflicts for an exam, newest first.
func (s *Service) ExamConflicts(examID string) ([]models.SyncStatus, error) {
    var conflicts []models.SyncStatus
    err := s.DB.Where("exam_id = ? AND conflict_detected = ? AND resolved = ?", examID, true, false).
        Order("sync_timestamp DESC").Find(&conflicts).Error
    if err != nil {
        return nil, storeErr("list conflicts", err)
    }
    return conflicts, nil
}

type RetryDetail struct {
    SyncID string `json:"syncId"`
    Status string `json:"status"`
    Error  string `json:"error,omitempty"`
}

type RetryResult struct {
    Retried  int           `json:"retried"`
    Requeued int           `json:"requeued"`
    Failed   int           `json:"failed"`
    Details  []RetryDetail `json:"details"`
}

const retryBatchLimit = 50

// RetryFailed requeues failed ledger rows back to pending so the device can
// resubmit them. It does not resubmit anything itself.
func (s *Service) RetryFailed(operatorID, examID string) (*RetryResult, error) {
    var failed []models.SyncStatus
    err := s.DB.Where("operator_id = ? AND exam_id = ? AND sync_status = ?", operatorID, examID, models.SyncFailed).
        Order("sync_timestamp ASC").Limit(retryBatchLimit).Find(&failed).Error
    if err != nil {
        return nil, storeErr("list failed syncs", err)
    }

    result := &RetryResult{Retried: len(failed)}
    for _, row := range failed {
        err := s.DB.Model(&models.SyncStatus{}).Where("id = ?", row.ID).Updates(map[string]interface{}{
            "sync_status": models.SyncPending,
            "retry_count": row.RetryCount + 1,
        }).Error
        if err != nil {
            result.Failed++
            result.Details = append(result.Details, RetryDetail{SyncID: row.ID, Status: models.SyncFailed, Error: err.Error()})
            continue
        }
        result.Requeued++
        result.Details = append(result.Details, RetryDetail{SyncID: row.ID, Status: "requeued"})
    }
    return result, nil
}

type CleanupResult struct {
    DeletedCount int64     `json:"deletedCount"`
    CutoffDate   time.Time `json:"cutoffDate"`
}

// Cleanup deletes synced ledger rows older than the retention window.
// Conflict and failed rows are kept; they still need an admin's attention.
func (s *Service) Cleanup(daysToKeep int) (*CleanupResult, error) {
    if daysToKeep <= 0 {
        daysToKeep = 30
    }
    cutoff := time.Now().UTC().AddDate(0, 0, -daysToKeep)
    res := s.DB.Where("sync_status = ? AND sync_timestamp < ?", models.SyncSynced, cutoff).
        Delete(&models.SyncStatus{})
    if res.Error != nil {
        return nil, storeErr("cleanup sync records", res.Error)
    }
    return &CleanupResult{DeletedCount: res.RowsAffected, CutoffDate: cutoff}, nil
}

type Statistics struct {
    Total           int            `json:"total"`
    ByStatus        map[string]int `json:"byStatus"`
    ByType          map[string]int `json:"byType"`
    ByOperator      map[string]int `json:"byOperator"`
    TotalRetryCount int            `json:"totalRetryCount"`
    AvgRetryCount   float64        `json:"averageRetryCount"`
}

// Statistics aggregates the exam's ledger, optionally bounded to a window.
func (s *Service) Statistics(examID string, start, end *time.Time) (*Statistics, error) {
    q := s.DB.Where("exam_id = ?", examID)
    if start != nil && end != nil {
        q = q.Where("sync_timestamp BETWEEN ? AND ?", start.UTC(), end.UTC())
    }
    var rows []models.SyncStatus
    if err := q.Find(&rows).Error; err != nil {
        return nil, storeErr("load statistics", err)
    }

    stats := &Statistics{
        Total:      len(rows),
        ByStatus:   map[string]int{},
        ByType:     map[string]int{},
        ByOperator: map[string]int{},
    }
    for _, row := range rows {
        stats.ByStatus[row.SyncStatus]++
        stats.ByType[row.EntityType]++
        stats.ByOperator[row.OperatorID]++
        stats.TotalRetryCount += row.RetryCount
    }
    if len(rows) > 0 {
        stats.AvgRetryCount = float64(stats.TotalRetryCount) / float64(len(rows))
    }
    return stats, nil
}
