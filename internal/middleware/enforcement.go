package middleware

import (
    "bytes"
    "encoding/json"
    "errors"
    "io"
    "net/http"

    "github.com/gin-gonic/gin"
    "gorm.io/gorm"

    "github.com/nkodex/examsync_backend/internal/models"
)

// Error codes returned by the biometric eligibility gate.
const (
    CodeMissingParameters      = "MISSING_PARAMETERS"
    CodeAttendanceRequired     = "ATTENDANCE_REQUIRED"
    CodeOperatorMismatch       = "OPERATOR_MISMATCH"
    CodeEnforcementCheckFailed = "ENFORCEMENT_CHECK_FAILED"
    CodeAttendanceNotFound     = "ATTENDANCE_NOT_FOUND"
    CodeAttendanceNotCompleted = "ATTENDANCE_NOT_COMPLETED"
)

// AttendanceKey marks where the gate leaves the verified attendance row for
// downstream handlers.
const AttendanceKey = "attendance"

type enforcementRequest struct {
    CandidateID string `json:"candidateId"`
    OperatorID  string `json:"operatorId"`
    ExamID      string `json:"examId"`
}

// EnforceAttendanceFirst blocks biometric capture until the candidate's
// attendance is completed, flagged biometric-eligible by an admin, and the
// requesting operator is the one who marked it. Marking attendance alone
// never self-authorizes capture; the eligibility flag is a distinct admin
// action.
func EnforceAttendanceFirst(db *gorm.DB) gin.HandlerFunc {
    return func(c *gin.Context) {
        body, err := io.ReadAll(c.Request.Body)
        if err != nil {
            enforcementError(c, http.StatusBadRequest, "unreadable request body", CodeMissingParameters)
            return
        }
        // Restore the body for the downstream handler's own binding.
        c.Request.Body = io.NopCloser(bytes.NewReader(body))

        var req enforcementRequest
        if err := json.Unmarshal(body, &req); err != nil || req.CandidateID == "" || req.OperatorID == "" || req.ExamID == "" {
            enforcementError(c, http.StatusBadRequest, "candidateId, operatorId, and examId are required", CodeMissingParameters)
            return
        }

        var attendance models.Attendance
        err = db.Where("candidate_id = ? AND exam_id = ?", req.CandidateID, req.ExamID).First(&attendance).Error
        if err != nil {
            if errors.Is(err, gorm.ErrRecordNotFound) {
                enforcementError(c, http.StatusForbidden,
                    "Attendance must be completed before biometric verification", CodeAttendanceRequired)
                return
            }
            enforcementError(c, http.StatusInternalServerError, err.Error(), CodeEnforcementCheckFailed)
            return
        }

        if attendance.Status != models.AttendanceCompleted || !attendance.BiometricEligible {
            enforcementError(c, http.StatusForbidden,
                "Attendance must be completed before biometric verification", CodeAttendanceRequired)
            return
        }

        if attendance.OperatorID != req.OperatorID {
            enforcementError(c, http.StatusForbidden,
                "Biometric verification must be performed by the same operator who completed attendance", CodeOperatorMismatch)
            return
        }

        c.Set(AttendanceKey, attendance)
        c.Next()
    }
}

// MarkBiometricEligible is the admin action that opens the gate: valid only
// from completed attendance, sets checkpoint and biometricEligible.
func MarkBiometricEligible(db *gorm.DB) gin.HandlerFunc {
    return func(c *gin.Context) {
        attendanceID := c.Param("attendanceId")

        var attendance models.Attendance
        if err := db.Where("id = ?", attendanceID).First(&attendance).Error; err != nil {
            if errors.Is(err, gorm.ErrRecordNotFound) {
                enforcementError(c, http.StatusNotFound, "Attendance not found", CodeAttendanceNotFound)
                return
            }
            enforcementError(c, http.StatusInternalServerError, err.Error(), CodeEnforcementCheckFailed)
            return
        }

        if attendance.Status != models.AttendanceCompleted {
            enforcementError(c, http.StatusBadRequest,
                "Attendance must be completed before marking as biometric eligible", CodeAttendanceNotCompleted)
            return
        }

        updates := map[string]interface{}{
            "checkpoint":         true,
            "biometric_eligible": true,
        }
        if err := db.Model(&attendance).Updates(updates).Error; err != nil {
            enforcementError(c, http.StatusInternalServerError, err.Error(), CodeEnforcementCheckFailed)
            return
        }
        attendance.Checkpoint = true
        attendance.BiometricEligible = true

        c.Set(AttendanceKey, attendance)
        c.Next()
    }
}

func enforcementError(c *gin.Context, status int, msg, code string) {
    c.AbortWithStatusJSON(status, gin.H{
        "success": false,
        "error":   msg,
        "code":    code,
    })
}
