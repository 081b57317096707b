package event

import "fmt"

// Importance is the closed set of message importance levels.
type Importance string

const (
	ImportanceLow    Importance = "low"
	ImportanceNormal Importance = "normal"
	ImportanceHigh   Importance = "high"
	ImportanceUrgent Importance = "urgent"
)

func (i Importance) valid() bool {
	switch i {
	case ImportanceLow, ImportanceNormal, ImportanceHigh, ImportanceUrgent:
		return true
	}
	return false
}

// LockPurpose is the closed set of reasons a lock is held.
type LockPurpose string

const (
	PurposeRead   LockPurpose = "read"
	PurposeEdit   LockPurpose = "edit"
	PurposeDelete LockPurpose = "delete"
)

func (p LockPurpose) valid() bool {
	switch p {
	case PurposeRead, PurposeEdit, PurposeDelete:
		return true
	}
	return false
}

// CheckpointTrigger is the closed set of reasons a checkpoint was taken.
type CheckpointTrigger string

const (
	TriggerAuto         CheckpointTrigger = "auto"
	TriggerManual       CheckpointTrigger = "manual"
	TriggerError        CheckpointTrigger = "error"
	TriggerContextLimit CheckpointTrigger = "context_limit"
)

func (t CheckpointTrigger) valid() bool {
	switch t {
	case TriggerAuto, TriggerManual, TriggerError, TriggerContextLimit:
		return true
	}
	return false
}

func requireNonEmpty(field, value string) error {
	if value == "" {
		return &FieldError{Field: field, Reason: "must not be empty"}
	}
	return nil
}

func requireNonEmptySlice[T any](field string, values []T) error {
	if len(values) == 0 {
		return &FieldError{Field: field, Reason: "must contain at least one element"}
	}
	return nil
}

// FieldError reports a single validation failure (spec §4.3 InvalidEvent(field, reason)).
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid field %q: %s", e.Field, e.Reason)
}

// --- Pilot events ---

type PilotRegisteredBody struct {
	Callsign        string `json:"callsign"`
	Program         string `json:"program"`
	Model           string `json:"model"`
	TaskDescription string `json:"task_description,omitempty"`
}

func (PilotRegisteredBody) EventType() Type                 { return PilotRegistered }
func (b PilotRegisteredBody) callsignStreamID() string       { return b.Callsign }
func (b PilotRegisteredBody) Validate() error {
	if err := requireNonEmpty("callsign", b.Callsign); err != nil {
		return err
	}
	if err := requireNonEmpty("program", b.Program); err != nil {
		return err
	}
	return requireNonEmpty("model", b.Model)
}

type PilotActiveBody struct {
	Callsign string `json:"callsign"`
}

func (PilotActiveBody) EventType() Type           { return PilotActive }
func (b PilotActiveBody) callsignStreamID() string { return b.Callsign }
func (b PilotActiveBody) Validate() error          { return requireNonEmpty("callsign", b.Callsign) }

type PilotDeregisteredBody struct {
	Callsign string `json:"callsign"`
	Reason   string `json:"reason,omitempty"`
}

func (PilotDeregisteredBody) EventType() Type           { return PilotDeregistered }
func (b PilotDeregisteredBody) callsignStreamID() string { return b.Callsign }
func (b PilotDeregisteredBody) Validate() error          { return requireNonEmpty("callsign", b.Callsign) }

// --- Message events ---

type MessageSentBody struct {
	MessageID   string     `json:"message_id"`
	From        string     `json:"from"`
	To          []string   `json:"to"`
	Subject     string     `json:"subject,omitempty"`
	Body        string     `json:"body,omitempty"`
	ThreadID    string     `json:"thread_id,omitempty"`
	Importance  Importance `json:"importance,omitempty"`
	AckRequired bool       `json:"ack_required,omitempty"`
	SortieID    string     `json:"sortie_id,omitempty"`
	MissionID   string     `json:"mission_id,omitempty"`
}

func (MessageSentBody) EventType() Type                 { return MessageSent }
func (b MessageSentBody) callsignStreamID() string       { return b.From }
func (b MessageSentBody) sortieStreamID() string         { return b.SortieID }
func (b MessageSentBody) missionStreamID() string        { return b.MissionID }
func (b MessageSentBody) Validate() error {
	if err := requireNonEmpty("message_id", b.MessageID); err != nil {
		return err
	}
	if err := requireNonEmpty("from", b.From); err != nil {
		return err
	}
	if err := requireNonEmptySlice("to", b.To); err != nil {
		return err
	}
	if b.Importance != "" && !b.Importance.valid() {
		return &FieldError{Field: "importance", Reason: "must be one of low, normal, high, urgent"}
	}
	return nil
}

type MessageReadBody struct {
	MessageID string `json:"message_id"`
	Callsign  string `json:"callsign"`
}

func (MessageReadBody) EventType() Type           { return MessageRead }
func (b MessageReadBody) callsignStreamID() string { return b.Callsign }
func (b MessageReadBody) Validate() error {
	if err := requireNonEmpty("message_id", b.MessageID); err != nil {
		return err
	}
	return requireNonEmpty("callsign", b.Callsign)
}

type MessageAckedBody struct {
	MessageID string `json:"message_id"`
	Callsign  string `json:"callsign"`
}

func (MessageAckedBody) EventType() Type           { return MessageAcked }
func (b MessageAckedBody) callsignStreamID() string { return b.Callsign }
func (b MessageAckedBody) Validate() error {
	if err := requireNonEmpty("message_id", b.MessageID); err != nil {
		return err
	}
	return requireNonEmpty("callsign", b.Callsign)
}

type ThreadCreatedBody struct {
	ThreadID  string `json:"thread_id"`
	CreatedBy string `json:"created_by"`
}

func (ThreadCreatedBody) EventType() Type { return ThreadCreated }
func (b ThreadCreatedBody) Validate() error {
	if err := requireNonEmpty("thread_id", b.ThreadID); err != nil {
		return err
	}
	return requireNonEmpty("created_by", b.CreatedBy)
}

type ThreadActivityBody struct {
	ThreadID string `json:"thread_id"`
	Callsign string `json:"callsign"`
}

func (ThreadActivityBody) EventType() Type           { return ThreadActivity }
func (b ThreadActivityBody) callsignStreamID() string { return b.Callsign }
func (b ThreadActivityBody) Validate() error {
	if err := requireNonEmpty("thread_id", b.ThreadID); err != nil {
		return err
	}
	return requireNonEmpty("callsign", b.Callsign)
}

// --- Reservation events ---

type FileReservedBody struct {
	ReservationIDs []string `json:"reservation_ids"` // one id per path, same order as Paths
	Callsign       string   `json:"callsign"`
	Paths          []string `json:"paths"`
	Exclusive      bool     `json:"exclusive,omitempty"`
	Reason         string   `json:"reason,omitempty"`
	TTLMillis      int64    `json:"ttl_millis"`
	SortieID       string   `json:"sortie_id,omitempty"`
	MissionID      string   `json:"mission_id,omitempty"`
}

func (FileReservedBody) EventType() Type           { return FileReserved }
func (b FileReservedBody) callsignStreamID() string { return b.Callsign }
func (b FileReservedBody) sortieStreamID() string   { return b.SortieID }
func (b FileReservedBody) missionStreamID() string  { return b.MissionID }
func (b FileReservedBody) Validate() error {
	if err := requireNonEmpty("callsign", b.Callsign); err != nil {
		return err
	}
	if err := requireNonEmptySlice("paths", b.Paths); err != nil {
		return err
	}
	if len(b.ReservationIDs) != len(b.Paths) {
		return &FieldError{Field: "reservation_ids", Reason: "must have one id per path"}
	}
	if b.TTLMillis <= 0 {
		return &FieldError{Field: "ttl_millis", Reason: "must be positive"}
	}
	return nil
}

type FileReleasedBody struct {
	Callsign       string   `json:"callsign"`
	Paths          []string `json:"paths,omitempty"`
	ReservationIDs []string `json:"reservation_ids,omitempty"`
}

func (FileReleasedBody) EventType() Type           { return FileReleased }
func (b FileReleasedBody) callsignStreamID() string { return b.Callsign }
func (b FileReleasedBody) Validate() error {
	if err := requireNonEmpty("callsign", b.Callsign); err != nil {
		return err
	}
	if len(b.Paths) == 0 && len(b.ReservationIDs) == 0 {
		return &FieldError{Field: "paths", Reason: "either paths or reservation_ids must be provided"}
	}
	return nil
}

type FileConflictBody struct {
	Callsign        string   `json:"callsign"`
	Paths           []string `json:"paths"`
	HolderCallsign  string   `json:"holder_callsign"`
	ExpiresAtMillis int64    `json:"expires_at_millis,omitempty"`
}

func (FileConflictBody) EventType() Type           { return FileConflict }
func (b FileConflictBody) callsignStreamID() string { return b.Callsign }
func (b FileConflictBody) Validate() error {
	if err := requireNonEmpty("callsign", b.Callsign); err != nil {
		return err
	}
	if err := requireNonEmptySlice("paths", b.Paths); err != nil {
		return err
	}
	return requireNonEmpty("holder_callsign", b.HolderCallsign)
}

// --- Lock events ---

type LockAcquiredBody struct {
	LockID         string      `json:"lock_id"`
	Path           string      `json:"path"`
	NormalizedPath string      `json:"normalized_path"`
	Callsign       string      `json:"callsign"`
	Purpose        LockPurpose `json:"purpose"`
	Checksum       string      `json:"checksum,omitempty"`
	TTLMillis      int64       `json:"ttl_millis"`
}

func (LockAcquiredBody) EventType() Type           { return LockAcquired }
func (b LockAcquiredBody) callsignStreamID() string { return b.Callsign }
func (b LockAcquiredBody) Validate() error {
	if err := requireNonEmpty("lock_id", b.LockID); err != nil {
		return err
	}
	if err := requireNonEmpty("path", b.Path); err != nil {
		return err
	}
	if err := requireNonEmpty("callsign", b.Callsign); err != nil {
		return err
	}
	if !b.Purpose.valid() {
		return &FieldError{Field: "purpose", Reason: "must be one of read, edit, delete"}
	}
	if b.TTLMillis <= 0 {
		return &FieldError{Field: "ttl_millis", Reason: "must be positive"}
	}
	return nil
}

type LockReleasedBody struct {
	LockID   string `json:"lock_id"`
	Callsign string `json:"callsign"`
	Forced   bool   `json:"forced,omitempty"`
}

func (LockReleasedBody) EventType() Type           { return LockReleased }
func (b LockReleasedBody) callsignStreamID() string { return b.Callsign }
func (b LockReleasedBody) Validate() error          { return requireNonEmpty("lock_id", b.LockID) }

type LockConflictBody struct {
	Path            string `json:"path"`
	Callsign        string `json:"callsign"`
	HolderCallsign  string `json:"holder_callsign"`
	ExpiresAtMillis int64  `json:"expires_at_millis,omitempty"`
}

func (LockConflictBody) EventType() Type           { return LockConflict }
func (b LockConflictBody) callsignStreamID() string { return b.Callsign }
func (b LockConflictBody) Validate() error {
	if err := requireNonEmpty("path", b.Path); err != nil {
		return err
	}
	if err := requireNonEmpty("callsign", b.Callsign); err != nil {
		return err
	}
	return requireNonEmpty("holder_callsign", b.HolderCallsign)
}

type LockReacquiredBody struct {
	OldLockID string `json:"old_lock_id"`
	NewLockID string `json:"new_lock_id,omitempty"`
	Callsign  string `json:"callsign"`
	Path      string `json:"path"`
	Succeeded bool   `json:"succeeded"`
}

func (LockReacquiredBody) EventType() Type           { return LockReacquired }
func (b LockReacquiredBody) callsignStreamID() string { return b.Callsign }
func (b LockReacquiredBody) Validate() error {
	if err := requireNonEmpty("old_lock_id", b.OldLockID); err != nil {
		return err
	}
	return requireNonEmpty("callsign", b.Callsign)
}

// --- Sortie events ---

type SortieCreatedBody struct {
	SortieID    string   `json:"sortie_id"`
	MissionID   string   `json:"mission_id,omitempty"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Priority    int      `json:"priority,omitempty"`
	Assignee    string   `json:"assignee,omitempty"`
	Files       []string `json:"files,omitempty"`
}

func (SortieCreatedBody) EventType() Type         { return SortieCreated }
func (b SortieCreatedBody) sortieStreamID() string  { return b.SortieID }
func (b SortieCreatedBody) missionStreamID() string { return b.MissionID }
func (b SortieCreatedBody) Validate() error {
	if err := requireNonEmpty("sortie_id", b.SortieID); err != nil {
		return err
	}
	if err := requireNonEmpty("title", b.Title); err != nil {
		return err
	}
	if b.Priority < 0 || b.Priority > 3 {
		return &FieldError{Field: "priority", Reason: "must be between 0 and 3"}
	}
	return nil
}

type SortieStartedBody struct {
	SortieID string `json:"sortie_id"`
}

func (SortieStartedBody) EventType() Type          { return SortieStarted }
func (b SortieStartedBody) sortieStreamID() string { return b.SortieID }
func (b SortieStartedBody) Validate() error        { return requireNonEmpty("sortie_id", b.SortieID) }

type SortieProgressBody struct {
	SortieID        string `json:"sortie_id"`
	ProgressPercent int    `json:"progress_percent"`
}

func (SortieProgressBody) EventType() Type          { return SortieProgress }
func (b SortieProgressBody) sortieStreamID() string { return b.SortieID }
func (b SortieProgressBody) Validate() error {
	if err := requireNonEmpty("sortie_id", b.SortieID); err != nil {
		return err
	}
	if b.ProgressPercent < 0 || b.ProgressPercent > 100 {
		return &FieldError{Field: "progress_percent", Reason: "must be between 0 and 100"}
	}
	return nil
}

type SortieCompletedBody struct {
	SortieID string `json:"sortie_id"`
}

func (SortieCompletedBody) EventType() Type          { return SortieCompleted }
func (b SortieCompletedBody) sortieStreamID() string { return b.SortieID }
func (b SortieCompletedBody) Validate() error        { return requireNonEmpty("sortie_id", b.SortieID) }

type SortieBlockedBody struct {
	SortieID string `json:"sortie_id"`
	Reason   string `json:"reason"`
}

func (SortieBlockedBody) EventType() Type          { return SortieBlocked }
func (b SortieBlockedBody) sortieStreamID() string { return b.SortieID }
func (b SortieBlockedBody) Validate() error {
	if err := requireNonEmpty("sortie_id", b.SortieID); err != nil {
		return err
	}
	return requireNonEmpty("reason", b.Reason)
}

type SortieStatusChangedBody struct {
	SortieID string `json:"sortie_id"`
	From     string `json:"from"`
	To       string `json:"to"`
}

func (SortieStatusChangedBody) EventType() Type          { return SortieStatusChanged }
func (b SortieStatusChangedBody) sortieStreamID() string { return b.SortieID }
func (b SortieStatusChangedBody) Validate() error {
	if err := requireNonEmpty("sortie_id", b.SortieID); err != nil {
		return err
	}
	if err := requireNonEmpty("from", b.From); err != nil {
		return err
	}
	return requireNonEmpty("to", b.To)
}

// --- Work order events (same shape as sortie events, minus the parent mission) ---

type WorkOrderCreatedBody struct {
	WorkOrderID string `json:"work_order_id"`
	SortieID    string `json:"sortie_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Priority    int    `json:"priority,omitempty"`
	Assignee    string `json:"assignee,omitempty"`
}

func (WorkOrderCreatedBody) EventType() Type          { return WorkOrderCreated }
func (b WorkOrderCreatedBody) sortieStreamID() string { return b.SortieID }
func (b WorkOrderCreatedBody) Validate() error {
	if err := requireNonEmpty("work_order_id", b.WorkOrderID); err != nil {
		return err
	}
	if err := requireNonEmpty("sortie_id", b.SortieID); err != nil {
		return err
	}
	if err := requireNonEmpty("title", b.Title); err != nil {
		return err
	}
	if b.Priority < 0 || b.Priority > 3 {
		return &FieldError{Field: "priority", Reason: "must be between 0 and 3"}
	}
	return nil
}

type WorkOrderStartedBody struct {
	WorkOrderID string `json:"work_order_id"`
}

func (WorkOrderStartedBody) EventType() Type   { return WorkOrderStarted }
func (b WorkOrderStartedBody) Validate() error { return requireNonEmpty("work_order_id", b.WorkOrderID) }

type WorkOrderProgressBody struct {
	WorkOrderID     string `json:"work_order_id"`
	ProgressPercent int    `json:"progress_percent"`
}

func (WorkOrderProgressBody) EventType() Type { return WorkOrderProgress }
func (b WorkOrderProgressBody) Validate() error {
	if err := requireNonEmpty("work_order_id", b.WorkOrderID); err != nil {
		return err
	}
	if b.ProgressPercent < 0 || b.ProgressPercent > 100 {
		return &FieldError{Field: "progress_percent", Reason: "must be between 0 and 100"}
	}
	return nil
}

type WorkOrderCompletedBody struct {
	WorkOrderID string `json:"work_order_id"`
}

func (WorkOrderCompletedBody) EventType() Type { return WorkOrderCompleted }
func (b WorkOrderCompletedBody) Validate() error {
	return requireNonEmpty("work_order_id", b.WorkOrderID)
}

type WorkOrderBlockedBody struct {
	WorkOrderID string `json:"work_order_id"`
	Reason      string `json:"reason"`
}

func (WorkOrderBlockedBody) EventType() Type { return WorkOrderBlocked }
func (b WorkOrderBlockedBody) Validate() error {
	if err := requireNonEmpty("work_order_id", b.WorkOrderID); err != nil {
		return err
	}
	return requireNonEmpty("reason", b.Reason)
}

type WorkOrderStatusChangedBody struct {
	WorkOrderID string `json:"work_order_id"`
	From        string `json:"from"`
	To          string `json:"to"`
}

func (WorkOrderStatusChangedBody) EventType() Type { return WorkOrderStatusChanged }
func (b WorkOrderStatusChangedBody) Validate() error {
	if err := requireNonEmpty("work_order_id", b.WorkOrderID); err != nil {
		return err
	}
	if err := requireNonEmpty("from", b.From); err != nil {
		return err
	}
	return requireNonEmpty("to", b.To)
}

// --- Mission events ---

type MissionCreatedBody struct {
	MissionID   string `json:"mission_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Priority    int    `json:"priority,omitempty"`
	Creator     string `json:"creator"`
}

func (MissionCreatedBody) EventType() Type           { return MissionCreated }
func (b MissionCreatedBody) missionStreamID() string  { return b.MissionID }
func (b MissionCreatedBody) callsignStreamID() string { return b.Creator }
func (b MissionCreatedBody) Validate() error {
	if err := requireNonEmpty("mission_id", b.MissionID); err != nil {
		return err
	}
	if err := requireNonEmpty("title", b.Title); err != nil {
		return err
	}
	if err := requireNonEmpty("creator", b.Creator); err != nil {
		return err
	}
	if b.Priority < 0 || b.Priority > 3 {
		return &FieldError{Field: "priority", Reason: "must be between 0 and 3"}
	}
	return nil
}

type MissionStartedBody struct {
	MissionID string `json:"mission_id"`
}

func (MissionStartedBody) EventType() Type          { return MissionStarted }
func (b MissionStartedBody) missionStreamID() string { return b.MissionID }
func (b MissionStartedBody) Validate() error         { return requireNonEmpty("mission_id", b.MissionID) }

type MissionCompletedBody struct {
	MissionID string `json:"mission_id"`
}

func (MissionCompletedBody) EventType() Type          { return MissionCompleted }
func (b MissionCompletedBody) missionStreamID() string { return b.MissionID }
func (b MissionCompletedBody) Validate() error         { return requireNonEmpty("mission_id", b.MissionID) }

type MissionSyncedBody struct {
	MissionID        string `json:"mission_id"`
	TotalSorties     int    `json:"total_sorties"`
	CompletedSorties int    `json:"completed_sorties"`
}

func (MissionSyncedBody) EventType() Type          { return MissionSynced }
func (b MissionSyncedBody) missionStreamID() string { return b.MissionID }
func (b MissionSyncedBody) Validate() error {
	if err := requireNonEmpty("mission_id", b.MissionID); err != nil {
		return err
	}
	if b.CompletedSorties > b.TotalSorties {
		return &FieldError{Field: "completed_sorties", Reason: "must not exceed total_sorties"}
	}
	if b.TotalSorties < 0 || b.CompletedSorties < 0 {
		return &FieldError{Field: "total_sorties", Reason: "must not be negative"}
	}
	return nil
}

// --- Checkpoint events ---

// SortieSnapshot captures one sortie's state at checkpoint time.
type SortieSnapshot struct {
	SortieID        string   `json:"sortie_id"`
	Status          string   `json:"status"`
	Assignee        string   `json:"assignee,omitempty"`
	ProgressPercent int      `json:"progress_percent"`
	Files           []string `json:"files,omitempty"`
}

// LockSnapshot captures one active lock at checkpoint time.
type LockSnapshot struct {
	LockID     string      `json:"lock_id"`
	Path       string      `json:"path"`
	Holder     string      `json:"holder"`
	AcquiredAt int64       `json:"acquired_at"`
	Purpose    LockPurpose `json:"purpose"`
	TTLMillis  int64       `json:"ttl_millis"`
}

// MessageSnapshot captures one pending (unacked) message at checkpoint time.
type MessageSnapshot struct {
	MessageID string   `json:"message_id"`
	From      string   `json:"from"`
	To        []string `json:"to"`
	Subject   string   `json:"subject,omitempty"`
	SentAt    int64    `json:"sent_at"`
	Delivered bool      `json:"delivered"`
}

// RecoveryContext is the structured narrative context stored with a checkpoint.
type RecoveryContext struct {
	SortieSnapshots    []SortieSnapshot  `json:"sortie_snapshots,omitempty"`
	ActiveLocks        []LockSnapshot    `json:"active_locks,omitempty"`
	PendingMessages    []MessageSnapshot `json:"pending_messages,omitempty"`
	LastAction         string            `json:"last_action,omitempty"`
	NextSteps          []string          `json:"next_steps,omitempty"`
	Blockers           []string          `json:"blockers,omitempty"`
	FilesModified      []string          `json:"files_modified,omitempty"`
	MissionSummary     string            `json:"mission_summary,omitempty"`
	ElapsedMillis      int64             `json:"elapsed_millis,omitempty"`
	LastActivityMillis int64             `json:"last_activity_millis,omitempty"`
}

type CheckpointCreatedBody struct {
	CheckpointID    string            `json:"checkpoint_id"`
	MissionID       string            `json:"mission_id,omitempty"`
	Callsign        string            `json:"callsign"`
	Trigger         CheckpointTrigger `json:"trigger"`
	ProgressPercent int               `json:"progress_percent"`
	Summary         string            `json:"summary,omitempty"`
	RecoveryContext RecoveryContext   `json:"recovery_context"`
}

func (CheckpointCreatedBody) EventType() Type           { return CheckpointCreated }
func (b CheckpointCreatedBody) missionStreamID() string  { return b.MissionID }
func (b CheckpointCreatedBody) callsignStreamID() string { return b.Callsign }
func (b CheckpointCreatedBody) Validate() error {
	if err := requireNonEmpty("checkpoint_id", b.CheckpointID); err != nil {
		return err
	}
	if err := requireNonEmpty("callsign", b.Callsign); err != nil {
		return err
	}
	if !b.Trigger.valid() {
		return &FieldError{Field: "trigger", Reason: "must be one of auto, manual, error, context_limit"}
	}
	if b.ProgressPercent < 0 || b.ProgressPercent > 100 {
		return &FieldError{Field: "progress_percent", Reason: "must be between 0 and 100"}
	}
	return nil
}

type ContextCompactedBody struct {
	CheckpointID string `json:"checkpoint_id"`
	MissionID    string `json:"mission_id,omitempty"`
	Summary      string `json:"summary,omitempty"`
}

func (ContextCompactedBody) EventType() Type          { return ContextCompacted }
func (b ContextCompactedBody) missionStreamID() string { return b.MissionID }
func (b ContextCompactedBody) Validate() error         { return requireNonEmpty("checkpoint_id", b.CheckpointID) }

// ReacquisitionOutcome records what happened re-acquiring one lock during restore.
type ReacquisitionOutcome struct {
	Path      string `json:"path"`
	Succeeded bool   `json:"succeeded"`
	Holder    string `json:"holder,omitempty"` // set when Succeeded is false: who holds it now
}

type FleetRecoveredBody struct {
	CheckpointID string                 `json:"checkpoint_id"`
	Outcomes     []ReacquisitionOutcome `json:"outcomes,omitempty"`
}

func (FleetRecoveredBody) EventType() Type   { return FleetRecovered }
func (b FleetRecoveredBody) Validate() error { return requireNonEmpty("checkpoint_id", b.CheckpointID) }

type ContextInjectedBody struct {
	Callsign     string `json:"callsign"`
	CheckpointID string `json:"checkpoint_id"`
}

func (ContextInjectedBody) EventType() Type           { return ContextInjected }
func (b ContextInjectedBody) callsignStreamID() string { return b.Callsign }
func (b ContextInjectedBody) Validate() error {
	if err := requireNonEmpty("callsign", b.Callsign); err != nil {
		return err
	}
	return requireNonEmpty("checkpoint_id", b.CheckpointID)
}

// --- Coordination events ---

type CoordinatorDecisionBody struct {
	Callsign  string `json:"callsign"`
	Decision  string `json:"decision"`
	Rationale string `json:"rationale,omitempty"`
}

func (CoordinatorDecisionBody) EventType() Type           { return CoordinatorDecision }
func (b CoordinatorDecisionBody) callsignStreamID() string { return b.Callsign }
func (b CoordinatorDecisionBody) Validate() error {
	if err := requireNonEmpty("callsign", b.Callsign); err != nil {
		return err
	}
	return requireNonEmpty("decision", b.Decision)
}

type CoordinatorViolationBody struct {
	Entity     string `json:"entity"` // "sortie", "mission", "work_order"
	EntityID   string `json:"entity_id"`
	FromStatus string `json:"from_status,omitempty"`
	ToStatus   string `json:"to_status,omitempty"`
	Reason     string `json:"reason"`
}

func (CoordinatorViolationBody) EventType() Type { return CoordinatorViolation }
func (b CoordinatorViolationBody) Validate() error {
	if err := requireNonEmpty("entity", b.Entity); err != nil {
		return err
	}
	if err := requireNonEmpty("entity_id", b.EntityID); err != nil {
		return err
	}
	return requireNonEmpty("reason", b.Reason)
}

type PilotSpawnedBody struct {
	ParentCallsign string `json:"parent_callsign"`
	ChildCallsign  string `json:"child_callsign"`
}

func (PilotSpawnedBody) EventType() Type           { return PilotSpawned }
func (b PilotSpawnedBody) callsignStreamID() string { return b.ParentCallsign }
func (b PilotSpawnedBody) Validate() error {
	if err := requireNonEmpty("parent_callsign", b.ParentCallsign); err != nil {
		return err
	}
	return requireNonEmpty("child_callsign", b.ChildCallsign)
}

type PilotCompletedBody struct {
	Callsign string `json:"callsign"`
	Summary  string `json:"summary,omitempty"`
}

func (PilotCompletedBody) EventType() Type           { return PilotCompleted }
func (b PilotCompletedBody) callsignStreamID() string { return b.Callsign }
func (b PilotCompletedBody) Validate() error          { return requireNonEmpty("callsign", b.Callsign) }

type ReviewStartedBody struct {
	SortieID string `json:"sortie_id"`
	Reviewer string `json:"reviewer"`
}

func (ReviewStartedBody) EventType() Type           { return ReviewStarted }
func (b ReviewStartedBody) sortieStreamID() string   { return b.SortieID }
func (b ReviewStartedBody) callsignStreamID() string { return b.Reviewer }
func (b ReviewStartedBody) Validate() error {
	if err := requireNonEmpty("sortie_id", b.SortieID); err != nil {
		return err
	}
	return requireNonEmpty("reviewer", b.Reviewer)
}

type ReviewCompletedBody struct {
	SortieID string `json:"sortie_id"`
	Reviewer string `json:"reviewer"`
	Approved bool   `json:"approved,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

func (ReviewCompletedBody) EventType() Type           { return ReviewCompleted }
func (b ReviewCompletedBody) sortieStreamID() string   { return b.SortieID }
func (b ReviewCompletedBody) callsignStreamID() string { return b.Reviewer }
func (b ReviewCompletedBody) Validate() error {
	if err := requireNonEmpty("sortie_id", b.SortieID); err != nil {
		return err
	}
	return requireNonEmpty("reviewer", b.Reviewer)
}
