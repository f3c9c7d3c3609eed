package sync

import "time"

// Event types pushed to admin dashboards over the websocket hub.
const (
    EventConflictDetected = "conflict_detected"
    EventConflictResolved = "conflict_resolved"
    EventBatchCompleted   = "batch_completed"
)

type Event struct {
    Type       string    `json:"type"`
    ExamID     string    `json:"exam_id"`
    OperatorID string    `json:"operator_id,omitempty"`
    EntityType string    `json:"entity_type,omitempty"`
    ConflictID string    `json:"conflict_id,omitempty"`
    RollNo     string    `json:"roll_no,omitempty"`
    Synced     int       `json:"synced,omitempty"`
    Conflicts  int       `json:"conflicts,omitempty"`
    Failed     int       `json:"failed,omitempty"`
    At         time.Time `json:"at"`
}

// EventSink receives best-effort notifications. Publishing must never block
// or fail a sync operation; the broadcast channel is unreliable by contract.
type EventSink interface {
    Publish(Event)
}

func (s *Service) publish(evt Event) {
    if s.Events == nil {
        return
    }
    if evt.At.IsZero() {
        evt.At = time.Now().UTC()
    }
    s.Events.Publish(evt)
}
