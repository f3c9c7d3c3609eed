package controllers

import (
    "fmt"
    "net/http"
    "strconv"
    "strings"

    "github.com/gin-gonic/gin"
    "gorm.io/gorm"

    "github.com/nkodex/examsync_backend/internal/models"
)

type CandidateController struct {
    DB *gorm.DB
}

type createCandidateRequest struct {
    RollNo            string `json:"rollNo" binding:"required"`
    OMRNo             string `json:"omrNo"`
    Name              string `json:"name" binding:"required"`
    FatherName        string `json:"fatherName"`
    Gender            string `json:"gender"`
    CentreCode        string `json:"centreCode"`
    PhotoURL          string `json:"photoUrl"`
    EnrolledFaceImage string `json:"enrolledFaceImage"`
    OMRBarcode        string `json:"omrBarcode"`
}

// Create registers one candidate for an exam. Bulk registration from a
// device goes through the sync path instead.
func (cc *CandidateController) Create(c *gin.Context) {
    examID := c.Param("examId")

    var exam models.Exam
    if err := cc.DB.Where("id = ?", examID).First(&exam).Error; err != nil {
        c.JSON(http.StatusNotFound, gin.H{"error": "exam not found"})
        return
    }

    var req createCandidateRequest
    if err := c.ShouldBindJSON(&req); err != nil {
        c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
        return
    }

    cand := models.Candidate{
        RollNo:            req.RollNo,
        ExamID:            examID,
        OMRNo:             req.OMRNo,
        Name:              req.Name,
        FatherName:        req.FatherName,
        Gender:            req.Gender,
        CentreCode:        req.CentreCode,
        PhotoURL:          req.PhotoURL,
        EnrolledFaceImage: req.EnrolledFaceImage,
        OMRBarcode:        req.OMRBarcode,
        Status:            models.CandidateRegistered,
    }
    if err := cc.DB.Create(&cand).Error; err != nil {
        if isUniqueViolation(err) {
            c.JSON(http.StatusConflict, gin.H{"error": "roll number already registered for this exam"})
            return
        }
        c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusCreated, gin.H{"message": "created", "id": cand.ID})
}

// ListByExam returns candidates for an exam with the usual pagination,
// sorting, and filters.
func (cc *CandidateController) ListByExam(c *gin.Context) {
    examID := c.Param("examId")

    all := strings.EqualFold(c.Query("all"), "true") || c.Query("all") == "1"
    limit := 20
    page := 1
    if v := c.Query("limit"); v != "" {
        if n, err := strconv.Atoi(v); err == nil && n > 0 {
            limit = n
        }
    }
    if v := c.Query("page"); v != "" {
        if n, err := strconv.Atoi(v); err == nil && n > 0 {
            page = n
        }
    }

    sortBy := strings.ToLower(c.DefaultQuery("sort_by", "roll_no"))
    sortDir := strings.ToUpper(c.DefaultQuery("sort_dir", "ASC"))
    if sortDir != "ASC" && sortDir != "DESC" {
        sortDir = "ASC"
    }
    allowedSorts := map[string]string{
        "roll_no":    "roll_no",
        "name":       "name",
        "status":     "status",
        "created_at": "created_at",
    }
    sortCol, ok := allowedSorts[sortBy]
    if !ok {
        sortCol = "roll_no"
    }
    order := fmt.Sprintf("%s %s", sortCol, sortDir)

    qText := strings.TrimSpace(c.Query("q"))
    status := strings.TrimSpace(c.Query("status"))
    centre := strings.TrimSpace(c.Query("centre_code"))

    base := cc.DB.Model(&models.Candidate{}).Where("exam_id = ?", examID)
    if qText != "" {
        like := "%" + qText + "%"
        base = base.Where("roll_no LIKE ? OR name LIKE ?", like, like)
    }
    if status != "" {
        base = base.Where("status = ?", status)
    }
    if centre != "" {
        base = base.Where("centre_code = ?", centre)
    }

    var total int64
    if err := base.Count(&total).Error; err != nil {
        c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
        return
    }

    listQ := base.Session(&gorm.Session{}).Order(order)
    if !all {
        offset := (page - 1) * limit
        listQ = listQ.Offset(offset).Limit(limit)
    }
    var candidates []models.Candidate
    if err := listQ.Find(&candidates).Error; err != nil {
        c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
        return
    }

    meta := gin.H{"total": total, "all": all}
    if !all {
        meta["limit"] = limit
        meta["page"] = page
        meta["sort_by"] = sortCol
        meta["sort_dir"] = sortDir
    }
    c.JSON(http.StatusOK, gin.H{"data": candidates, "meta": meta})
}

func (cc *CandidateController) Get(c *gin.Context) {
    id := strings.TrimSpace(c.Param("id"))
    if id == "" {
        c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
        return
    }
    var cand models.Candidate
    if err := cc.DB.Where("id = ?", id).First(&cand).Error; err != nil {
        c.JSON(http.StatusNotFound, gin.H{"error": "candidate not found"})
        return
    }
    c.JSON(http.StatusOK, cand)
}
