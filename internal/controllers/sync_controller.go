package controllers

import (
    "encoding/json"
    "io"
    "net/http"
    "strconv"
    "time"

    "github.com/gin-gonic/gin"

    "github.com/nkodex/examsync_backend/internal/models"
    "github.com/nkodex/examsync_backend/internal/sync"
)

type SyncController struct {
    Service *sync.Service
}

// SyncDevice ingests one batch push from an operator device.
// POST /sync/:examId/device
func (sc *SyncController) SyncDevice(c *gin.Context) {
    uVal, _ := c.Get("user")
    user := uVal.(models.User)
    examID := c.Param("examId")

    var payload sync.BatchPayload
    if err := c.ShouldBindJSON(&payload); err != nil {
        syncError(c, http.StatusBadRequest, err.Error(), sync.CodeValidation)
        return
    }

    result, err := sc.Service.SyncBatch(user.UserID, examID, payload)
    if err != nil {
        syncError(c, http.StatusInternalServerError, err.Error(), sync.ErrCode(err))
        return
    }

    c.JSON(http.StatusOK, gin.H{
        "success": true,
        "message": "Sync completed",
        "data":    result,
    })
}

// SyncRecord ingests a single record push.
// POST /sync/:examId/record
func (sc *SyncController) SyncRecord(c *gin.Context) {
    uVal, _ := c.Get("user")
    user := uVal.(models.User)
    examID := c.Param("examId")

    body, err := io.ReadAll(c.Request.Body)
    if err != nil {
        syncError(c, http.StatusBadRequest, "unreadable request body", sync.CodeValidation)
        return
    }

    var head struct {
        EntityType string `json:"entityType"`
    }
    if err := json.Unmarshal(body, &head); err != nil || head.EntityType == "" {
        syncError(c, http.StatusBadRequest, "entityType is required", sync.CodeValidation)
        return
    }

    switch head.EntityType {
    case models.EntityCandidate:
        var item sync.CandidateItem
        if err := json.Unmarshal(body, &item); err != nil {
            syncError(c, http.StatusBadRequest, err.Error(), sync.CodeValidation)
            return
        }
        out, err := sc.Service.SyncCandidate(user.UserID, examID, item)
        sc.respond(c, out, err)
    case models.EntityAttendance:
        var item sync.AttendanceItem
        if err := json.Unmarshal(body, &item); err != nil {
            syncError(c, http.StatusBadRequest, err.Error(), sync.CodeValidation)
            return
        }
        out, err := sc.Service.SyncAttendance(user.UserID, examID, item)
        sc.respond(c, out, err)
    case models.EntityBiometric:
        var item sync.BiometricItem
        if err := json.Unmarshal(body, &item); err != nil {
            syncError(c, http.StatusBadRequest, err.Error(), sync.CodeValidation)
            return
        }
        out, err := sc.Service.SyncBiometric(user.UserID, examID, item)
        sc.respond(c, out, err)
    case models.EntityFingerprint:
        var item sync.FingerprintItem
        if err := json.Unmarshal(body, &item); err != nil {
            syncError(c, http.StatusBadRequest, err.Error(), sync.CodeValidation)
            return
        }
        out, err := sc.Service.SyncFingerprint(user.UserID, examID, item)
        sc.respond(c, out, err)
    default:
        syncError(c, http.StatusBadRequest, "invalid entity type: "+head.EntityType, sync.CodeInvalidEntityType)
    }
}

func (sc *SyncController) respond(c *gin.Context, out *sync.Outcome, err error) {
    if err != nil {
        status := http.StatusInternalServerError
        switch sync.ErrCode(err) {
        case sync.CodeValidation, sync.CodeInvalidEntityType:
            status = http.StatusBadRequest
        case sync.CodeNotFound:
            status = http.StatusNotFound
        }
        syncError(c, status, err.Error(), sync.ErrCode(err))
        return
    }
    if out.Status == models.SyncConflict {
        c.JSON(http.StatusConflict, gin.H{
            "success":        false,
            "conflict":       true,
            "message":        "Conflict detected. Manual resolution required.",
            "conflictId":     out.ConflictID,
            "existingRecord": out.Existing,
        })
        return
    }
    c.JSON(http.StatusOK, gin.H{
        "success":  true,
        "message":  "Data synced successfully",
        "recordId": out.RecordID,
    })
}

// Status returns the operator's ledger with summary counts.
// GET /sync/:examId/status
func (sc *SyncController) Status(c *gin.Context) {
    uVal, _ := c.Get("user")
    user := uVal.(models.User)
    examID := c.Param("examId")

    report, err := sc.Service.OperatorStatus(user.UserID, examID)
    if err != nil {
        syncError(c, http.StatusInternalServerError, err.Error(), sync.ErrCode(err))
        return
    }
    c.JSON(http.StatusOK, gin.H{"success": true, "data": report})
}

// Conflicts lists unresolved conflicts for an exam. Admin only.
// GET /sync/:examId/conflicts
func (sc *SyncController) Conflicts(c *gin.Context) {
    examID := c.Param("examId")

    conflicts, err := sc.Service.ExamConflicts(examID)
    if err != nil {
        syncError(c, http.StatusInternalServerError, err.Error(), sync.ErrCode(err))
        return
    }
    c.JSON(http.StatusOK, gin.H{
        "success":   true,
        "conflicts": conflicts,
        "count":     len(conflicts),
    })
}

// Resolve applies an admin's strategy to one conflict.
// POST /sync/conflicts/:conflictId/resolve
func (sc *SyncController) Resolve(c *gin.Context) {
    uVal, _ := c.Get("user")
    user := uVal.(models.User)
    conflictID := c.Param("conflictId")

    var res sync.Resolution
    if err := c.ShouldBindJSON(&res); err != nil {
        syncError(c, http.StatusBadRequest, err.Error(), sync.CodeValidation)
        return
    }
    if res.ResolvedBy == "" {
        res.ResolvedBy = user.UserID
    }

    row, err := sc.Service.Resolve(conflictID, res)
    if err != nil {
        status := http.StatusInternalServerError
        switch sync.ErrCode(err) {
        case sync.CodeNotFound:
            status = http.StatusNotFound
        case sync.CodeNotAConflict, sync.CodeMissingData, sync.CodeInvalidStrategy:
            status = http.StatusBadRequest
        }
        syncError(c, status, err.Error(), sync.ErrCode(err))
        return
    }
    c.JSON(http.StatusOK, gin.H{
        "success":  true,
        "message":  "Conflict resolved successfully",
        "conflict": row,
    })
}

// Retry requeues the operator's failed ledger rows back to pending.
// POST /sync/:examId/retry
func (sc *SyncController) Retry(c *gin.Context) {
    uVal, _ := c.Get("user")
    user := uVal.(models.User)
    examID := c.Param("examId")

    result, err := sc.Service.RetryFailed(user.UserID, examID)
    if err != nil {
        syncError(c, http.StatusInternalServerError, err.Error(), sync.ErrCode(err))
        return
    }
    c.JSON(http.StatusOK, gin.H{"success": true, "data": result})
}

// Statistics aggregates an exam's ledger. Admin only.
// GET /sync/:examId/statistics?startDate=&endDate=
func (sc *SyncController) Statistics(c *gin.Context) {
    examID := c.Param("examId")

    var start, end *time.Time
    if v := c.Query("startDate"); v != "" {
        if t, err := time.Parse(time.RFC3339, v); err == nil {
            start = &t
        }
    }
    if v := c.Query("endDate"); v != "" {
        if t, err := time.Parse(time.RFC3339, v); err == nil {
            end = &t
        }
    }

    stats, err := sc.Service.Statistics(examID, start, end)
    if err != nil {
        syncError(c, http.StatusInternalServerError, err.Error(), sync.ErrCode(err))
        return
    }
    c.JSON(http.StatusOK, gin.H{"success": true, "data": stats})
}

// Cleanup deletes synced ledger rows older than the retention window.
// DELETE /sync/cleanup?daysToKeep=30 (admin only)
func (sc *SyncController) Cleanup(c *gin.Context) {
    days := 0
    if v := c.Query("daysToKeep"); v != "" {
        if n, err := strconv.Atoi(v); err == nil {
            days = n
        }
    }

    result, err := sc.Service.Cleanup(days)
    if err != nil {
        syncError(c, http.StatusInternalServerError, err.Error(), sync.ErrCode(err))
        return
    }
    c.JSON(http.StatusOK, gin.H{"success": true, "data": result})
}

func syncError(c *gin.Context, status int, msg, code string) {
    c.JSON(status, gin.H{
        "success": false,
        "error":   msg,
        "code":    code,
    })
}
