package models

import (
    "time"

    "github.com/google/uuid"
    "gorm.io/gorm"
)

type Exam struct {
    ID        string `gorm:"type:uuid;primaryKey"`
    Code      string `gorm:"size:12;uniqueIndex"`
    Name      string `gorm:"uniqueIndex"`
    ExamDate  *time.Time
    Active    bool
    CreatedAt time.Time
    UpdatedAt time.Time
}

func (e *Exam) BeforeCreate(tx *gorm.DB) (err error) {
    if e.ID == "" {
        e.ID = uuid.NewString()
    }
    return nil
}
