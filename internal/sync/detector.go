package sync

import (
    "errors"
    "fmt"

    "gorm.io/gorm"

    "github.com/nkodex/examsync_backend/internal/models"
)

// Detection is the outcome of a conflict pre-check. Conflict is reported as
// a value, not an error: the caller either proceeds to create the record or
// hands the conflict id to the operator/admin for resolution.
type Detection struct {
    Conflict   bool        `json:"conflict"`
    ConflictID string      `json:"conflictId,omitempty"`
    Existing   interface{} `json:"existingRecord,omitempty"`
    Message    string      `json:"message"`
}

// Detect checks the store for an existing row of the given kind keyed by
// (candidateKey, examID). For candidate pushes candidateKey is the roll
// number; for the other kinds it is the candidate id. When a row exists a
// conflict ledger row is appended and returned; detection never merges.
func (s *Service) Detect(candidateKey, examID, entityType, operatorID string) (*Detection, error) {
    existing, existingID, err := s.findExisting(candidateKey, examID, entityType)
    if err != nil {
        return nil, err
    }
    if existing == nil {
        return &Detection{Conflict: false, Message: "No conflict detected"}, nil
    }
    return s.recordConflict(candidateKey, examID, entityType, operatorID, existing, existingID)
}

// recordConflict appends the conflict ledger row for an existing record.
// Also the landing point for writers that lose the insert race: a store
// uniqueness violation is reclassified through here instead of surfacing as
// a raw store error.
func (s *Service) recordConflict(candidateKey, examID, entityType, operatorID string, existing interface{}, existingID string) (*Detection, error) {
    row := models.SyncStatus{
        OperatorID:       operatorID,
        ExamID:           examID,
        EntityType:       entityType,
        EntityID:         &existingID,
        SyncStatus:       models.SyncConflict,
        ConflictDetected: true,
        ConflictReason:   fmt.Sprintf("Duplicate %s record detected for candidate %s", entityType, candidateKey),
    }
    if err := s.DB.Create(&row).Error; err != nil {
        return nil, storeErr("record conflict", err)
    }

    s.publish(Event{
        Type:       EventConflictDetected,
        ExamID:     examID,
        OperatorID: operatorID,
        EntityType: entityType,
        ConflictID: row.ID,
        RollNo:     candidateKey,
    })

    return &Detection{
        Conflict:   true,
        ConflictID: row.ID,
        Existing:   existing,
        Message:    fmt.Sprintf("Conflict: %s already exists for this candidate", entityType),
    }, nil
}

// findExisting returns the current record of the given kind, its id, or
// (nil, "", nil) when the key is free.
func (s *Service) findExisting(candidateKey, examID, entityType string) (interface{}, string, error) {
    switch entityType {
    case models.EntityCandidate:
        var c models.Candidate
        err := s.DB.Where("roll_no = ? AND exam_id = ?", candidateKey, examID).First(&c).Error
        if err != nil {
            return nilIfNotFound(err, "lookup candidate")
        }
        return &c, c.ID, nil

    case models.EntityAttendance:
        var a models.Attendance
        err := s.DB.Where("candidate_id = ? AND exam_id = ?", candidateKey, examID).First(&a).Error
        if err != nil {
            return nilIfNotFound(err, "lookup attendance")
        }
        return &a, a.ID, nil

    case models.EntityBiometric:
        var b models.Biometric
        err := s.DB.Where("candidate_id = ? AND exam_id = ?", candidateKey, examID).First(&b).Error
        if err != nil {
            return nilIfNotFound(err, "lookup biometric")
        }
        return &b, b.ID, nil

    case models.EntityFingerprint:
        var f models.Fingerprint
        err := s.DB.Where("candidate_id = ? AND exam_id = ?", candidateKey, examID).First(&f).Error
        if err != nil {
            return nilIfNotFound(err, "lookup fingerprint")
        }
        return &f, f.ID, nil

    default:
        return nil, "", invalidEntityTypeErr(entityType)
    }
}

func nilIfNotFound(err error, op string) (interface{}, string, error) {
    if errors.Is(err, gorm.ErrRecordNotFound) {
        return nil, "", nil
    }
    return nil, "", storeErr(op, err)
}
