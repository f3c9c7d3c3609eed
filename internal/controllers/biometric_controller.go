package controllers

import (
    "net/http"
    "time"

    "github.com/gin-gonic/gin"
    "gorm.io/gorm"

    "github.com/nkodex/examsync_backend/internal/models"
    "github.com/nkodex/examsync_backend/internal/recognition"
)

type BiometricController struct {
    DB             *gorm.DB
    Matcher        recognition.FaceMatcher
    MatchThreshold float64
}

type verifyRequest struct {
    CandidateID      string `json:"candidateId" binding:"required"`
    OperatorID       string `json:"operatorId" binding:"required"`
    ExamID           string `json:"examId" binding:"required"`
    FaceImageURL     string `json:"faceImageUrl" binding:"required"`
    VerificationType string `json:"verificationType"`
    OMRSerialNumber  string `json:"omrSerialNumber"`
}

// Verify runs face verification for a candidate. Reached only through the
// attendance eligibility gate. One biometric row per candidate per exam;
// repeats must go through the reverify path or the sync conflict queue.
func (bc *BiometricController) Verify(c *gin.Context) {
    var req verifyRequest
    if err := c.ShouldBindJSON(&req); err != nil {
        c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error(), "code": "VALIDATION_ERROR"})
        return
    }

    var cand models.Candidate
    if err := bc.DB.Where("id = ? AND exam_id = ?", req.CandidateID, req.ExamID).First(&cand).Error; err != nil {
        c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "candidate not found", "code": "NOT_FOUND"})
        return
    }
    if cand.EnrolledFaceImage == "" {
        c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "candidate has no enrolled face image", "code": "NO_ENROLLED_FACE"})
        return
    }

    match, err := bc.Matcher.CompareFaces(cand.EnrolledFaceImage, req.FaceImageURL)
    if err != nil {
        c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": err.Error(), "code": "FACE_MATCH_FAILED"})
        return
    }

    threshold := bc.MatchThreshold
    if threshold <= 0 {
        threshold = recognition.DefaultMatchThreshold
    }
    verified := recognition.Passes(match.MatchPercentage, threshold)

    now := time.Now().UTC()
    score := match.MatchPercentage
    bio := models.Biometric{
        CandidateID:           req.CandidateID,
        ExamID:                req.ExamID,
        OperatorID:            req.OperatorID,
        VerificationType:      req.VerificationType,
        FaceMatchPercentage:   &score,
        MatchThreshold:        threshold,
        Verified:              verified,
        FaceImageURL:          req.FaceImageURL,
        EnrolledFaceImage:     cand.EnrolledFaceImage,
        OMRSerialNumber:       req.OMRSerialNumber,
        VerificationTimestamp: &now,
    }
    if bio.VerificationType == "" {
        bio.VerificationType = "face"
    }
    if verified {
        bio.Status = models.BiometricVerified
    } else {
        bio.Status = models.BiometricFailed
    }

    if err := bc.DB.Create(&bio).Error; err != nil {
        if isUniqueViolation(err) {
            c.JSON(http.StatusConflict, gin.H{
                "success": false,
                "error":   "biometric record already exists for this candidate; use the reverify path",
                "code":    "BIOMETRIC_EXISTS",
            })
            return
        }
        c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error(), "code": "STORE_ERROR"})
        return
    }

    candUpdates := map[string]interface{}{
        "verified":              verified,
        "face_match_percentage": &score,
        "verified_by":           req.OperatorID,
        "verified_at":           &now,
    }
    if verified {
        candUpdates["status"] = models.CandidateBiometricCompleted
    }
    if err := bc.DB.Model(&cand).Updates(candUpdates).Error; err != nil {
        c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error(), "code": "STORE_ERROR"})
        return
    }

    c.JSON(http.StatusOK, gin.H{
        "success": true,
        "data": gin.H{
            "biometric_id":     bio.ID,
            "verified":         verified,
            "match_percentage": score,
            "threshold":        threshold,
            "status":           bio.Status,
        },
    })
}

// Reverify clears a candidate's verification state so a fresh capture can be
// taken. The existing row is reused; the unique constraint stays intact.
func (bc *BiometricController) Reverify(c *gin.Context) {
    candidateID := c.Param("candidateId")
    examID := c.Param("examId")

    var bio models.Biometric
    if err := bc.DB.Where("candidate_id = ? AND exam_id = ?", candidateID, examID).First(&bio).Error; err != nil {
        c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "biometric record not found", "code": "NOT_FOUND"})
        return
    }

    now := time.Now().UTC()
    err := bc.DB.Model(&bio).Updates(map[string]interface{}{
        "verified":               false,
        "status":                 models.BiometricPending,
        "face_match_percentage":  nil,
        "verification_timestamp": nil,
        "reverified":             true,
        "reverified_at":          &now,
    }).Error
    if err != nil {
        c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error(), "code": "STORE_ERROR"})
        return
    }

    if err := bc.DB.Model(&models.Candidate{}).Where("id = ?", candidateID).Updates(map[string]interface{}{
        "verified":              false,
        "face_match_percentage": nil,
        "verified_by":           nil,
        "verified_at":           nil,
    }).Error; err != nil {
        c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error(), "code": "STORE_ERROR"})
        return
    }

    c.JSON(http.StatusOK, gin.H{"success": true, "message": "reverification opened", "biometric_id": bio.ID})
}

// Get returns the biometric row for a candidate/exam pair.
func (bc *BiometricController) Get(c *gin.Context) {
    candidateID := c.Param("candidateId")
    examID := c.Param("examId")

    var bio models.Biometric
    if err := bc.DB.Where("candidate_id = ? AND exam_id = ?", candidateID, examID).First(&bio).Error; err != nil {
        c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "biometric record not found", "code": "NOT_FOUND"})
        return
    }
    c.JSON(http.StatusOK, gin.H{"success": true, "data": bio})
}
