package controllers

import (
    "net/http"

    "github.com/gin-gonic/gin"
    "gorm.io/gorm"

    "github.com/nkodex/examsync_backend/internal/models"
)

type FingerprintController struct {
    DB *gorm.DB
}

type captureRequest struct {
    CandidateID     string   `json:"candidateId" binding:"required"`
    OperatorID      string   `json:"operatorId" binding:"required"`
    ExamID          string   `json:"examId" binding:"required"`
    ImageRef        string   `json:"imageRef" binding:"required"`
    StorageLocation string   `json:"storageLocation"`
    CaptureDeviceID string   `json:"captureDeviceId"`
    ImageQuality    *float64 `json:"imageQuality"`
}

// Capture stores a fingerprint image reference. Reached only through the
// attendance eligibility gate. No matching happens here or anywhere else.
func (fc *FingerprintController) Capture(c *gin.Context) {
    var req captureRequest
    if err := c.ShouldBindJSON(&req); err != nil {
        c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error(), "code": "VALIDATION_ERROR"})
        return
    }

    fp := models.Fingerprint{
        CandidateID:     req.CandidateID,
        ExamID:          req.ExamID,
        OperatorID:      req.OperatorID,
        ImageRef:        req.ImageRef,
        StorageLocation: req.StorageLocation,
        CaptureDeviceID: req.CaptureDeviceID,
        ImageQuality:    req.ImageQuality,
        Encrypted:       true,
    }
    if err := fc.DB.Create(&fp).Error; err != nil {
        if isUniqueViolation(err) {
            c.JSON(http.StatusConflict, gin.H{
                "success": false,
                "error":   "fingerprint already captured for this candidate",
                "code":    "FINGERPRINT_EXISTS",
            })
            return
        }
        c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error(), "code": "STORE_ERROR"})
        return
    }

    c.JSON(http.StatusCreated, gin.H{
        "success": true,
        "data": gin.H{
            "fingerprint_id":    fp.ID,
            "capture_timestamp": fp.CaptureTimestamp,
        },
    })
}

// Get returns the fingerprint row for a candidate/exam pair.
func (fc *FingerprintController) Get(c *gin.Context) {
    candidateID := c.Param("candidateId")
    examID := c.Param("examId")

    var fp models.Fingerprint
    if err := fc.DB.Where("candidate_id = ? AND exam_id = ?", candidateID, examID).First(&fp).Error; err != nil {
        c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "fingerprint record not found", "code": "NOT_FOUND"})
        return
    }
    c.JSON(http.StatusOK, gin.H{"success": true, "data": fp})
}
