package sync

import (
    "errors"
    "fmt"
    "time"

    "gorm.io/gorm"

    "github.com/nkodex/examsync_backend/internal/models"
)

const (
    StrategyKeepExisting = "keep_existing"
    StrategyUseNew       = "use_new"
    StrategyMerge        = "merge"
)

// Resolution is the admin's decision for one flagged conflict.
type Resolution struct {
    Strategy   string                 `json:"strategy" binding:"required"`
    ResolvedBy string                 `json:"resolvedBy"`
    NewData    map[string]interface{} `json:"newData"`
}

// syncFieldColumns maps device payload field names to store columns, per
// entity kind. Applied once when newData overwrites a record; unknown fields
// are dropped rather than guessed at.
var syncFieldColumns = map[string]map[string]string{
    models.EntityCandidate: {
        "omrNo":      "omr_no",
        "name":       "name",
        "fatherName": "father_name",
        "gender":     "gender",
        "centreCode": "centre_code",
        "photoUrl":   "photo_url",
        "present":    "present",
    },
    models.EntityAttendance: {
        "operatorId": "operator_id",
        "present":    "present",
        "status":     "status",
        "centreCode": "centre_code",
        "notes":      "notes",
    },
    models.EntityBiometric: {
        "operatorId":          "operator_id",
        "verificationType":    "verification_type",
        "faceMatchPercentage": "face_match_percentage",
        "matchThreshold":      "match_threshold",
        "verified":            "verified",
        "status":              "status",
        "faceImageUrl":        "face_image_url",
        "omrSerialNumber":     "omr_serial_number",
    },
    models.EntityFingerprint: {
        "operatorId":      "operator_id",
        "imageRef":        "image_ref",
        "storageLocation": "storage_location",
        "captureDeviceId": "capture_device_id",
        "imageQuality":    "image_quality",
        "encrypted":       "encrypted",
    },
}

var entityTables = map[string]string{
    models.EntityCandidate:   "candidates",
    models.EntityAttendance:  "attendances",
    models.EntityBiometric:   "biometrics",
    models.EntityFingerprint: "fingerprints",
}

// Resolve applies the chosen strategy to a flagged conflict and marks the
// ledger row resolved. merge currently has overwrite semantics, same as
// use_new; field-level reconciliation rules have never been defined for
// these single-writer records.
func (s *Service) Resolve(conflictID string, res Resolution) (*models.SyncStatus, error) {
    var conflict models.SyncStatus
    if err := s.DB.Where("id = ?", conflictID).First(&conflict).Error; err != nil {
        if errors.Is(err, gorm.ErrRecordNotFound) {
            return nil, notFoundErr("conflict %s not found", conflictID)
        }
        return nil, storeErr("lookup conflict", err)
    }
    if !conflict.ConflictDetected {
        return nil, &Error{Code: CodeNotAConflict, Message: "this is not a conflict record"}
    }

    var details string
    switch res.Strategy {
    case StrategyKeepExisting:
        details = fmt.Sprintf("Kept existing %s record", conflict.EntityType)

    case StrategyUseNew:
        if err := s.replaceRecord(&conflict, res.NewData); err != nil {
            return nil, err
        }
        details = fmt.Sprintf("Replaced with new %s record", conflict.EntityType)

    case StrategyMerge:
        if err := s.replaceRecord(&conflict, res.NewData); err != nil {
            return nil, err
        }
        details = fmt.Sprintf("Merged %s records", conflict.EntityType)

    default:
        return nil, &Error{Code: CodeInvalidStrategy, Message: fmt.Sprintf("invalid resolution strategy: %s", res.Strategy)}
    }

    now := time.Now().UTC()
    updates := map[string]interface{}{
        "resolved":    true,
        "resolved_at": &now,
        "resolution":  details,
    }
    if res.ResolvedBy != "" {
        updates["resolved_by"] = res.ResolvedBy
    }
    if err := s.DB.Model(&conflict).Updates(updates).Error; err != nil {
        return nil, storeErr("update conflict status", err)
    }

    s.publish(Event{
        Type:       EventConflictResolved,
        ExamID:     conflict.ExamID,
        OperatorID: conflict.OperatorID,
        EntityType: conflict.EntityType,
        ConflictID: conflict.ID,
    })

    return &conflict, nil
}

// replaceRecord overwrites the conflicting record's syncable fields with
// newData, restricted to the explicit field mapping for the entity kind.
func (s *Service) replaceRecord(conflict *models.SyncStatus, newData map[string]interface{}) error {
    if len(newData) == 0 {
        return &Error{Code: CodeMissingData, Message: "new data required for " + StrategyUseNew + " strategy"}
    }
    if conflict.EntityID == nil {
        return &Error{Code: CodeMissingData, Message: "conflict record has no target entity"}
    }
    columns, ok := syncFieldColumns[conflict.EntityType]
    if !ok {
        return invalidEntityTypeErr(conflict.EntityType)
    }

    updates := map[string]interface{}{}
    for field, value := range newData {
        if col, known := columns[field]; known {
            updates[col] = value
        }
    }
    if len(updates) == 0 {
        return &Error{Code: CodeMissingData, Message: "new data contains no recognized fields"}
    }

    table := entityTables[conflict.EntityType]
    if err := s.DB.Table(table).Where("id = ?", *conflict.EntityID).Updates(updates).Error; err != nil {
        return storeErr("replace "+conflict.EntityType, err)
    }
    return nil
}
