package sync

import (
    "errors"
    "log"
    "time"

    "github.com/jackc/pgconn"
    "gorm.io/gorm"

    "github.com/nkodex/examsync_backend/internal/models"
)

// Service is the sync/conflict engine. The store handle and event sink are
// injected by the process entry point so tests can substitute fakes.
type Service struct {
    DB     *gorm.DB
    Events EventSink
}

func NewService(db *gorm.DB, events EventSink) *Service {
    return &Service{DB: db, Events: events}
}

// Device payload items. Field names are the device wire format; mapping to
// store columns happens here, once, at the ingestion boundary.

type CandidateItem struct {
    RollNo     FlexibleString `json:"rollNo" binding:"required"`
    OMRNo      string     `json:"omrNo"`
    Name       string     `json:"name"`
    FatherName string     `json:"fatherName"`
    Gender     string     `json:"gender"`
    DOB        *time.Time `json:"dob"`
    CentreCode string     `json:"centreCode"`
    PhotoURL   string     `json:"photoUrl"`
}

type AttendanceItem struct {
    RollNo     FlexibleString `json:"rollNo" binding:"required"`
    Present    *bool      `json:"present"`
    Status     string     `json:"status"`
    CentreCode string     `json:"centreCode"`
    MarkedAt   *time.Time `json:"markedAt"`
    Notes      string     `json:"notes"`
}

type BiometricItem struct {
    RollNo              FlexibleString `json:"rollNo" binding:"required"`
    VerificationType    string     `json:"verificationType"`
    FaceMatchPercentage *float64   `json:"faceMatchPercentage"`
    MatchThreshold      *float64   `json:"matchThreshold"`
    Verified            bool       `json:"verified"`
    FaceImageURL        string     `json:"faceImageUrl"`
    OMRSerialNumber     string     `json:"omrSerialNumber"`
    VerifiedAt          *time.Time `json:"verifiedAt"`
}

type FingerprintItem struct {
    RollNo           FlexibleString `json:"rollNo" binding:"required"`
    ImageRef         string     `json:"imageRef"`
    StorageLocation  string     `json:"storageLocation"`
    CaptureDeviceID  string     `json:"captureDeviceId"`
    ImageQuality     *float64   `json:"imageQuality"`
    CaptureTimestamp *time.Time `json:"captureTimestamp"`
}

// Outcome of syncing one record.
type Outcome struct {
    Status     string      `json:"status"` // synced or conflict
    RecordID   string      `json:"recordId,omitempty"`
    ConflictID string      `json:"conflictId,omitempty"`
    Existing   interface{} `json:"existingRecord,omitempty"`
}

// SyncCandidate pushes one candidate master row from a device.
func (s *Service) SyncCandidate(operatorID, examID string, item CandidateItem) (*Outcome, error) {
    if item.RollNo == "" {
        return nil, s.logFailed(operatorID, examID, models.EntityCandidate, validationErr("rollNo is required"))
    }
    det, err := s.Detect(item.RollNo.String(), examID, models.EntityCandidate, operatorID)
    if err != nil {
        return nil, s.logFailed(operatorID, examID, models.EntityCandidate, err)
    }
    if det.Conflict {
        return conflictOutcome(det), nil
    }

    rec := models.Candidate{
        RollNo:     item.RollNo.String(),
        ExamID:     examID,
        OMRNo:      item.OMRNo,
        Name:       item.Name,
        FatherName: item.FatherName,
        Gender:     item.Gender,
        DOB:        item.DOB,
        CentreCode: item.CentreCode,
        PhotoURL:   item.PhotoURL,
        Status:     models.CandidateRegistered,
    }
    if err := s.DB.Create(&rec).Error; err != nil {
        return s.reclassifyOrFail(operatorID, examID, models.EntityCandidate, item.RollNo.String(), item.RollNo.String(), err)
    }
    return s.logSynced(operatorID, examID, models.EntityCandidate, rec.ID)
}

// SyncAttendance pushes one attendance row. The candidate must already exist
// for the exam (synced in the same batch or uploaded beforehand).
func (s *Service) SyncAttendance(operatorID, examID string, item AttendanceItem) (*Outcome, error) {
    cand, err := s.candidateByRoll(item.RollNo.String(), examID)
    if err != nil {
        return nil, s.logFailed(operatorID, examID, models.EntityAttendance, err)
    }
    det, err := s.Detect(cand.ID, examID, models.EntityAttendance, operatorID)
    if err != nil {
        return nil, s.logFailed(operatorID, examID, models.EntityAttendance, err)
    }
    if det.Conflict {
        return conflictOutcome(det), nil
    }

    status := item.Status
    if status == "" {
        status = models.AttendancePending
    }
    rec := models.Attendance{
        CandidateID: cand.ID,
        ExamID:      examID,
        CentreCode:  item.CentreCode,
        OperatorID:  operatorID,
        Status:      status,
        Notes:       item.Notes,
    }
    if item.Present != nil {
        rec.Present = *item.Present
    }
    if item.MarkedAt != nil {
        rec.MarkedAt = item.MarkedAt.UTC()
    }
    if err := s.DB.Create(&rec).Error; err != nil {
        return s.reclassifyOrFail(operatorID, examID, models.EntityAttendance, cand.ID, item.RollNo.String(), err)
    }

    // Refresh the candidate's presence cache; cache only, never gates sync.
    if rec.Present {
        if err := s.DB.Model(&models.Candidate{}).Where("id = ?", cand.ID).
            Update("present", true).Error; err != nil {
            log.Printf("sync: candidate presence cache update: %v", err)
        }
    }

    return s.logSynced(operatorID, examID, models.EntityAttendance, rec.ID)
}

// SyncBiometric pushes one biometric verification result captured offline.
func (s *Service) SyncBiometric(operatorID, examID string, item BiometricItem) (*Outcome, error) {
    cand, err := s.candidateByRoll(item.RollNo.String(), examID)
    if err != nil {
        return nil, s.logFailed(operatorID, examID, models.EntityBiometric, err)
    }
    det, err := s.Detect(cand.ID, examID, models.EntityBiometric, operatorID)
    if err != nil {
        return nil, s.logFailed(operatorID, examID, models.EntityBiometric, err)
    }
    if det.Conflict {
        return conflictOutcome(det), nil
    }

    rec := models.Biometric{
        CandidateID:           cand.ID,
        ExamID:                examID,
        OperatorID:            operatorID,
        VerificationType:      item.VerificationType,
        FaceMatchPercentage:   item.FaceMatchPercentage,
        Verified:              item.Verified,
        FaceImageURL:          item.FaceImageURL,
        OMRSerialNumber:       item.OMRSerialNumber,
        VerificationTimestamp: item.VerifiedAt,
    }
    if rec.VerificationType == "" {
        rec.VerificationType = "face"
    }
    if item.MatchThreshold != nil {
        rec.MatchThreshold = *item.MatchThreshold
    }
    if rec.Verified {
        rec.Status = models.BiometricVerified
    } else {
        rec.Status = models.BiometricFailed
    }
    if err := s.DB.Create(&rec).Error; err != nil {
        return s.reclassifyOrFail(operatorID, examID, models.EntityBiometric, cand.ID, item.RollNo.String(), err)
    }

    if err := s.DB.Model(&models.Candidate{}).Where("id = ?", cand.ID).Updates(map[string]interface{}{
        "verified":              rec.Verified,
        "face_match_percentage": item.FaceMatchPercentage,
    }).Error; err != nil {
        log.Printf("sync: candidate verification cache update: %v", err)
    }

    return s.logSynced(operatorID, examID, models.EntityBiometric, rec.ID)
}

// SyncFingerprint pushes one fingerprint capture reference.
func (s *Service) SyncFingerprint(operatorID, examID string, item FingerprintItem) (*Outcome, error) {
    cand, err := s.candidateByRoll(item.RollNo.String(), examID)
    if err != nil {
        return nil, s.logFailed(operatorID, examID, models.EntityFingerprint, err)
    }
    det, err := s.Detect(cand.ID, examID, models.EntityFingerprint, operatorID)
    if err != nil {
        return nil, s.logFailed(operatorID, examID, models.EntityFingerprint, err)
    }
    if det.Conflict {
        return conflictOutcome(det), nil
    }

    rec := models.Fingerprint{
        CandidateID:     cand.ID,
        ExamID:          examID,
        OperatorID:      operatorID,
        ImageRef:        item.ImageRef,
        StorageLocation: item.StorageLocation,
        CaptureDeviceID: item.CaptureDeviceID,
        ImageQuality:    item.ImageQuality,
        Encrypted:       true,
    }
    if item.CaptureTimestamp != nil {
        rec.CaptureTimestamp = item.CaptureTimestamp.UTC()
    }
    if err := s.DB.Create(&rec).Error; err != nil {
        return s.reclassifyOrFail(operatorID, examID, models.EntityFingerprint, cand.ID, item.RollNo.String(), err)
    }
    return s.logSynced(operatorID, examID, models.EntityFingerprint, rec.ID)
}

func (s *Service) candidateByRoll(rollNo, examID string) (*models.Candidate, error) {
    if rollNo == "" {
        return nil, validationErr("rollNo is required")
    }
    var cand models.Candidate
    err := s.DB.Where("roll_no = ? AND exam_id = ?", rollNo, examID).First(&cand).Error
    if err != nil {
        if errors.Is(err, gorm.ErrRecordNotFound) {
            return nil, notFoundErr("candidate %s not found for exam", rollNo)
        }
        return nil, storeErr("lookup candidate", err)
    }
    return &cand, nil
}

// reclassifyOrFail converts a store uniqueness violation on the losing side
// of a concurrent push into the regular conflict outcome. The pre-check in
// Detect is an optimization; the unique index is the actual guard.
func (s *Service) reclassifyOrFail(operatorID, examID, entityType, candidateKey, rollNo string, err error) (*Outcome, error) {
    if !isDuplicateKey(err) {
        return nil, s.logFailed(operatorID, examID, entityType, storeErr("create "+entityType, err))
    }
    existing, existingID, lookErr := s.findExisting(candidateKey, examID, entityType)
    if lookErr != nil || existing == nil {
        return nil, s.logFailed(operatorID, examID, entityType, storeErr("create "+entityType, err))
    }
    det, detErr := s.recordConflict(rollNo, examID, entityType, operatorID, existing, existingID)
    if detErr != nil {
        return nil, detErr
    }
    return conflictOutcome(det), nil
}

func isDuplicateKey(err error) bool {
    if errors.Is(err, gorm.ErrDuplicatedKey) {
        return true
    }
    var pgErr *pgconn.PgError
    return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func conflictOutcome(det *Detection) *Outcome {
    return &Outcome{Status: models.SyncConflict, ConflictID: det.ConflictID, Existing: det.Existing}
}

func (s *Service) logSynced(operatorID, examID, entityType, entityID string) (*Outcome, error) {
    row := models.SyncStatus{
        OperatorID: operatorID,
        ExamID:     examID,
        EntityType: entityType,
        EntityID:   &entityID,
        SyncStatus: models.SyncSynced,
    }
    if err := s.DB.Create(&row).Error; err != nil {
        return nil, storeErr("record sync status", err)
    }
    return &Outcome{Status: models.SyncSynced, RecordID: entityID}, nil
}

// logFailed appends a failed ledger row and hands the original error back so
// batch callers can count it without losing the message.
func (s *Service) logFailed(operatorID, examID, entityType string, cause error) error {
    row := models.SyncStatus{
        OperatorID:     operatorID,
        ExamID:         examID,
        EntityType:     entityType,
        SyncStatus:     models.SyncFailed,
        ConflictReason: cause.Error(),
    }
    if err := s.DB.Create(&row).Error; err != nil {
        log.Printf("sync: failed to log sync error: %v", err)
    }
    return cause
}
