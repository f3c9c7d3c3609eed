package controllers

import (
    "errors"
    "net/http"
    "time"

    "github.com/gin-gonic/gin"
    "github.com/jackc/pgconn"
    "gorm.io/gorm"

    "github.com/nkodex/examsync_backend/internal/middleware"
    "github.com/nkodex/examsync_backend/internal/models"
)

type AttendanceController struct {
    DB *gorm.DB
}

type markAttendanceRequest struct {
    CandidateID string `json:"candidateId" binding:"required"`
    ExamID      string `json:"examId" binding:"required"`
    CentreCode  string `json:"centreCode"`
    Present     *bool  `json:"present"`
    Notes       string `json:"notes"`
}

// Mark creates the attendance row in pending state. One row per candidate
// per exam; a repeat mark is a 409, not an overwrite.
func (ac *AttendanceController) Mark(c *gin.Context) {
    uVal, _ := c.Get("user")
    user := uVal.(models.User)

    var req markAttendanceRequest
    if err := c.ShouldBindJSON(&req); err != nil {
        c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
        return
    }

    var cand models.Candidate
    if err := ac.DB.Where("id = ? AND exam_id = ?", req.CandidateID, req.ExamID).First(&cand).Error; err != nil {
        c.JSON(http.StatusNotFound, gin.H{"error": "candidate not found"})
        return
    }

    att := models.Attendance{
        CandidateID: req.CandidateID,
        ExamID:      req.ExamID,
        CentreCode:  req.CentreCode,
        OperatorID:  user.UserID,
        Status:      models.AttendancePending,
        Notes:       req.Notes,
    }
    if req.Present != nil {
        att.Present = *req.Present
    }
    if att.CentreCode == "" {
        att.CentreCode = cand.CentreCode
    }

    if err := ac.DB.Create(&att).Error; err != nil {
        if isUniqueViolation(err) {
            c.JSON(http.StatusConflict, gin.H{"error": "attendance already marked for this candidate"})
            return
        }
        c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
        return
    }

    c.JSON(http.StatusCreated, gin.H{"message": "attendance marked", "id": att.ID, "status": att.Status})
}

type completeAttendanceRequest struct {
    Present *bool  `json:"present"`
    Notes   string `json:"notes"`
}

// Complete transitions pending attendance to completed. This alone does not
// authorize biometric capture; the eligibility flag is a separate admin
// action.
func (ac *AttendanceController) Complete(c *gin.Context) {
    id := c.Param("attendanceId")

    var att models.Attendance
    if err := ac.DB.Where("id = ?", id).First(&att).Error; err != nil {
        c.JSON(http.StatusNotFound, gin.H{"error": "attendance not found"})
        return
    }
    if att.Status == models.AttendanceCompleted {
        c.JSON(http.StatusConflict, gin.H{"error": "attendance already completed"})
        return
    }

    var req completeAttendanceRequest
    _ = c.ShouldBindJSON(&req)

    present := att.Present
    if req.Present != nil {
        present = *req.Present
    }
    updates := map[string]interface{}{
        "status":  models.AttendanceCompleted,
        "present": present,
    }
    if req.Notes != "" {
        updates["notes"] = req.Notes
    }
    if err := ac.DB.Model(&att).Updates(updates).Error; err != nil {
        c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
        return
    }

    if err := ac.DB.Model(&models.Candidate{}).Where("id = ?", att.CandidateID).
        Updates(map[string]interface{}{"present": present, "status": models.CandidateAttendanceCompleted}).Error; err != nil {
        c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
        return
    }

    c.JSON(http.StatusOK, gin.H{"message": "attendance completed", "id": att.ID})
}

type correctAttendanceRequest struct {
    Present *bool  `json:"present"`
    Status  string `json:"status"`
    Notes   string `json:"notes"`
}

// Correct is the admin correction path; it records who corrected and when.
func (ac *AttendanceController) Correct(c *gin.Context) {
    uVal, _ := c.Get("user")
    user := uVal.(models.User)
    id := c.Param("attendanceId")

    var att models.Attendance
    if err := ac.DB.Where("id = ?", id).First(&att).Error; err != nil {
        c.JSON(http.StatusNotFound, gin.H{"error": "attendance not found"})
        return
    }

    var req correctAttendanceRequest
    if err := c.ShouldBindJSON(&req); err != nil {
        c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
        return
    }
    if req.Status != "" && req.Status != models.AttendancePending &&
        req.Status != models.AttendanceCompleted && req.Status != models.AttendanceSkipped {
        c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
        return
    }

    now := time.Now().UTC()
    updates := map[string]interface{}{
        "corrected":    true,
        "corrected_by": user.UserID,
        "corrected_at": &now,
    }
    if req.Present != nil {
        updates["present"] = *req.Present
    }
    if req.Status != "" {
        updates["status"] = req.Status
    }
    if req.Notes != "" {
        updates["notes"] = req.Notes
    }
    if err := ac.DB.Model(&att).Updates(updates).Error; err != nil {
        c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
        return
    }

    c.JSON(http.StatusOK, gin.H{"message": "attendance corrected", "id": att.ID})
}

// MarkEligible responds after the MarkBiometricEligible middleware has
// applied the checkpoint flags.
func (ac *AttendanceController) MarkEligible(c *gin.Context) {
    aVal, ok := c.Get(middleware.AttendanceKey)
    if !ok {
        c.JSON(http.StatusInternalServerError, gin.H{"error": "attendance missing from context"})
        return
    }
    att := aVal.(models.Attendance)
    c.JSON(http.StatusOK, gin.H{
        "message": "attendance marked biometric eligible",
        "attendance": gin.H{
            "id":                 att.ID,
            "candidate_id":       att.CandidateID,
            "exam_id":            att.ExamID,
            "status":             att.Status,
            "checkpoint":         att.Checkpoint,
            "biometric_eligible": att.BiometricEligible,
        },
    })
}

// ListByExam returns attendance rows for an exam, optionally filtered by
// status or operator.
func (ac *AttendanceController) ListByExam(c *gin.Context) {
    examID := c.Param("examId")

    q := ac.DB.Model(&models.Attendance{}).Where("exam_id = ?", examID)
    if status := c.Query("status"); status != "" {
        q = q.Where("status = ?", status)
    }
    if operatorID := c.Query("operator_id"); operatorID != "" {
        q = q.Where("operator_id = ?", operatorID)
    }

    var rows []models.Attendance
    if err := q.Order("marked_at DESC").Find(&rows).Error; err != nil {
        c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusOK, gin.H{"data": rows, "count": len(rows)})
}

func isUniqueViolation(err error) bool {
    if errors.Is(err, gorm.ErrDuplicatedKey) {
        return true
    }
    var pgErr *pgconn.PgError
    return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
