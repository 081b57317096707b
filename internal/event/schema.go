package event

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// requiredFields lists the wire (snake_case) fields a JSON-schema
// ingress check requires to be present before the payload is even
// unmarshaled into a Go struct. This is intentionally coarser than
// Body.Validate (no enum/range checks) — spec §9 scopes schema
// validation to trust boundaries only, with the full check still
// applied by Validate once the struct exists.
var requiredFields = map[Type][]string{
	PilotRegistered:        {"callsign", "program", "model"},
	PilotActive:            {"callsign"},
	PilotDeregistered:      {"callsign"},
	MessageSent:            {"message_id", "from", "to"},
	MessageRead:            {"message_id", "callsign"},
	MessageAcked:           {"message_id", "callsign"},
	ThreadCreated:          {"thread_id", "created_by"},
	ThreadActivity:         {"thread_id", "callsign"},
	FileReserved:           {"callsign", "paths"},
	FileReleased:           {"callsign"},
	FileConflict:           {"callsign", "paths", "holder_callsign"},
	LockAcquired:           {"lock_id", "path", "callsign", "purpose"},
	LockReleased:           {"lock_id"},
	LockConflict:           {"path", "callsign", "holder_callsign"},
	LockReacquired:         {"old_lock_id", "callsign"},
	SortieCreated:          {"sortie_id", "title"},
	SortieStarted:          {"sortie_id"},
	SortieProgress:         {"sortie_id", "progress_percent"},
	SortieCompleted:        {"sortie_id"},
	SortieBlocked:          {"sortie_id", "reason"},
	SortieStatusChanged:    {"sortie_id", "from", "to"},
	WorkOrderCreated:       {"work_order_id", "sortie_id", "title"},
	WorkOrderStarted:       {"work_order_id"},
	WorkOrderProgress:      {"work_order_id", "progress_percent"},
	WorkOrderCompleted:     {"work_order_id"},
	WorkOrderBlocked:       {"work_order_id", "reason"},
	WorkOrderStatusChanged: {"work_order_id", "from", "to"},
	MissionCreated:         {"mission_id", "title", "creator"},
	MissionStarted:         {"mission_id"},
	MissionCompleted:       {"mission_id"},
	MissionSynced:          {"mission_id", "total_sorties", "completed_sorties"},
	CheckpointCreated:      {"checkpoint_id", "callsign", "trigger"},
	ContextCompacted:       {"checkpoint_id"},
	FleetRecovered:         {"checkpoint_id"},
	ContextInjected:        {"callsign", "checkpoint_id"},
	CoordinatorDecision:    {"callsign", "decision"},
	CoordinatorViolation:   {"entity", "entity_id", "reason"},
	PilotSpawned:           {"parent_callsign", "child_callsign"},
	PilotCompleted:         {"callsign"},
	ReviewStarted:          {"sortie_id", "reviewer"},
	ReviewCompleted:        {"sortie_id", "reviewer"},
}

var (
	schemaOnce  sync.Once
	schemasByT  map[Type]*jsonschema.Schema
	schemaSetup error
)

func compileSchemas() (map[Type]*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		out := make(map[Type]*jsonschema.Schema, len(requiredFields))
		for t, required := range requiredFields {
			doc := map[string]any{
				"$id":      fmt.Sprintf("fleettools:///event/%s.json", t),
				"type":     "object",
				"required": required,
			}
			raw, err := json.Marshal(doc)
			if err != nil {
				schemaSetup = err
				return
			}
			res, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
			if err != nil {
				schemaSetup = err
				return
			}
			url := fmt.Sprintf("fleettools:///event/%s.json", t)
			if err := compiler.AddResource(url, res); err != nil {
				schemaSetup = err
				return
			}
			sch, err := compiler.Compile(url)
			if err != nil {
				schemaSetup = err
				return
			}
			out[t] = sch
		}
		schemasByT = out
	})
	return schemasByT, schemaSetup
}

// ValidateJSON checks raw against the JSON schema for event type t. It
// is only invoked from trust boundaries: JSON ingress and
// replay-from-disk (spec §9). Internal call sites build events through
// the typed constructors and rely on Body.Validate plus the Go type
// system instead.
func ValidateJSON(t Type, raw []byte) error {
	schemas, err := compileSchemas()
	if err != nil {
		return fmt.Errorf("compile event schemas: %w", err)
	}
	sch, ok := schemas[t]
	if !ok {
		return fmt.Errorf("no schema registered for event type %q", t)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return &InvalidEventError{Type: t, Field: "", Cause: fmt.Errorf("malformed json: %w", err)}
	}
	if err := sch.Validate(doc); err != nil {
		return &InvalidEventError{Type: t, Field: "", Cause: err}
	}
	return nil
}

// ValidateAndDecodeBody is the untrusted-input decode path: it runs
// ValidateJSON before DecodeBody so malformed wire payloads are
// rejected with InvalidEventError instead of reaching Go structs with
// zero-valued fields.
func ValidateAndDecodeBody(t Type, raw []byte) (Body, error) {
	if err := ValidateJSON(t, raw); err != nil {
		return nil, err
	}
	body, err := DecodeBody(t, raw)
	if err != nil {
		return nil, err
	}
	if err := body.Validate(); err != nil {
		return nil, &InvalidEventError{Type: t, Cause: err}
	}
	return body, nil
}
