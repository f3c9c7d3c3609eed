package controllers

import (
    "net/http"
    "strings"
    "time"

    "github.com/gin-gonic/gin"
    "gorm.io/gorm"

    "github.com/nkodex/examsync_backend/internal/models"
    "github.com/nkodex/examsync_backend/internal/utils"
)

type ExamController struct {
    DB *gorm.DB
}

type createExamRequest struct {
    Name     string     `json:"name" binding:"required"`
    ExamDate *time.Time `json:"exam_date"`
    Active   *bool      `json:"active"`
}

func (ec *ExamController) CreateExam(c *gin.Context) {
    var req createExamRequest
    if err := c.ShouldBindJSON(&req); err != nil {
        c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
        return
    }
    code, err := utils.GenerateCode(8)
    if err != nil {
        c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate exam code"})
        return
    }
    active := true
    if req.Active != nil {
        active = *req.Active
    }
    exam := models.Exam{Name: req.Name, Code: code, ExamDate: req.ExamDate, Active: active}
    if err := ec.DB.Create(&exam).Error; err != nil {
        if isUniqueViolation(err) {
            c.JSON(http.StatusConflict, gin.H{"error": "exam name already exists"})
            return
        }
        c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusCreated, gin.H{"message": "created", "id": exam.ID, "code": exam.Code})
}

func (ec *ExamController) ListExams(c *gin.Context) {
    q := ec.DB.Model(&models.Exam{}).Order("created_at DESC")
    if active := strings.TrimSpace(strings.ToLower(c.Query("active"))); active != "" {
        switch active {
        case "true", "1":
            q = q.Where("active = ?", true)
        case "false", "0":
            q = q.Where("active = ?", false)
        default:
            c.JSON(http.StatusBadRequest, gin.H{"error": "invalid active value"})
            return
        }
    }
    var exams []models.Exam
    if err := q.Find(&exams).Error; err != nil {
        c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusOK, gin.H{"data": exams})
}

func (ec *ExamController) GetExam(c *gin.Context) {
    id := strings.TrimSpace(c.Param("examId"))
    if id == "" {
        c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
        return
    }
    var exam models.Exam
    if err := ec.DB.Where("id = ?", id).First(&exam).Error; err != nil {
        c.JSON(http.StatusNotFound, gin.H{"error": "exam not found"})
        return
    }
    c.JSON(http.StatusOK, exam)
}

type updateExamRequest struct {
    Name     *string    `json:"name"`
    ExamDate *time.Time `json:"exam_date"`
    Active   *bool      `json:"active"`
}

func (ec *ExamController) UpdateExam(c *gin.Context) {
    id := strings.TrimSpace(c.Param("examId"))
    var exam models.Exam
    if err := ec.DB.Where("id = ?", id).First(&exam).Error; err != nil {
        c.JSON(http.StatusNotFound, gin.H{"error": "exam not found"})
        return
    }
    var req updateExamRequest
    if err := c.ShouldBindJSON(&req); err != nil {
        c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
        return
    }
    if req.Name != nil {
        exam.Name = *req.Name
    }
    if req.ExamDate != nil {
        exam.ExamDate = req.ExamDate
    }
    if req.Active != nil {
        exam.Active = *req.Active
    }
    if err := ec.DB.Save(&exam).Error; err != nil {
        if isUniqueViolation(err) {
            c.JSON(http.StatusConflict, gin.H{"error": "exam name already exists"})
            return
        }
        c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusOK, gin.H{"message": "updated"})
}
