package event

import (
	"encoding/json"
	"fmt"
)

// EncodeBody marshals a Body to the JSON representation stored in the
// events table's body column. Field names are snake_case on the wire
// (spec §6 "Wire representation").
func EncodeBody(b Body) ([]byte, error) {
	return json.Marshal(wireBody(b))
}

// DecodeBody unmarshals raw JSON into the Body shape for type t. This is
// the internal, trusted decode path used when reading rows back out of
// the database the store itself wrote; callers ingesting untrusted JSON
// (API ingress, replay-from-disk) should use ValidateAndDecodeBody instead
// so malformed payloads are rejected before they reach Go structs.
func DecodeBody(t Type, raw []byte) (Body, error) {
	target, err := emptyBody(t)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return nil, fmt.Errorf("decode body for %q: %w", t, err)
	}
	return derefBody(target), nil
}

// wireBody is the identity function; every body struct carries its own
// snake_case json tags, so json.Marshal already produces the wire
// shape requiredFields checks against.
func wireBody(b Body) any { return b }

func emptyBody(t Type) (any, error) {
	switch t {
	case PilotRegistered:
		return &PilotRegisteredBody{}, nil
	case PilotActive:
		return &PilotActiveBody{}, nil
	case PilotDeregistered:
		return &PilotDeregisteredBody{}, nil
	case MessageSent:
		return &MessageSentBody{}, nil
	case MessageRead:
		return &MessageReadBody{}, nil
	case MessageAcked:
		return &MessageAckedBody{}, nil
	case ThreadCreated:
		return &ThreadCreatedBody{}, nil
	case ThreadActivity:
		return &ThreadActivityBody{}, nil
	case FileReserved:
		return &FileReservedBody{}, nil
	case FileReleased:
		return &FileReleasedBody{}, nil
	case FileConflict:
		return &FileConflictBody{}, nil
	case LockAcquired:
		return &LockAcquiredBody{}, nil
	case LockReleased:
		return &LockReleasedBody{}, nil
	case LockConflict:
		return &LockConflictBody{}, nil
	case LockReacquired:
		return &LockReacquiredBody{}, nil
	case SortieCreated:
		return &SortieCreatedBody{}, nil
	case SortieStarted:
		return &SortieStartedBody{}, nil
	case SortieProgress:
		return &SortieProgressBody{}, nil
	case SortieCompleted:
		return &SortieCompletedBody{}, nil
	case SortieBlocked:
		return &SortieBlockedBody{}, nil
	case SortieStatusChanged:
		return &SortieStatusChangedBody{}, nil
	case WorkOrderCreated:
		return &WorkOrderCreatedBody{}, nil
	case WorkOrderStarted:
		return &WorkOrderStartedBody{}, nil
	case WorkOrderProgress:
		return &WorkOrderProgressBody{}, nil
	case WorkOrderCompleted:
		return &WorkOrderCompletedBody{}, nil
	case WorkOrderBlocked:
		return &WorkOrderBlockedBody{}, nil
	case WorkOrderStatusChanged:
		return &WorkOrderStatusChangedBody{}, nil
	case MissionCreated:
		return &MissionCreatedBody{}, nil
	case MissionStarted:
		return &MissionStartedBody{}, nil
	case MissionCompleted:
		return &MissionCompletedBody{}, nil
	case MissionSynced:
		return &MissionSyncedBody{}, nil
	case CheckpointCreated:
		return &CheckpointCreatedBody{}, nil
	case ContextCompacted:
		return &ContextCompactedBody{}, nil
	case FleetRecovered:
		return &FleetRecoveredBody{}, nil
	case ContextInjected:
		return &ContextInjectedBody{}, nil
	case CoordinatorDecision:
		return &CoordinatorDecisionBody{}, nil
	case CoordinatorViolation:
		return &CoordinatorViolationBody{}, nil
	case PilotSpawned:
		return &PilotSpawnedBody{}, nil
	case PilotCompleted:
		return &PilotCompletedBody{}, nil
	case ReviewStarted:
		return &ReviewStartedBody{}, nil
	case ReviewCompleted:
		return &ReviewCompletedBody{}, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", t)
	}
}

// derefBody dereferences the pointer produced by emptyBody back into
// the Body value stored on Event, so callers get value types
// consistently (matches how the factory hands out value bodies).
func derefBody(ptr any) Body {
	switch v := ptr.(type) {
	case *PilotRegisteredBody:
		return *v
	case *PilotActiveBody:
		return *v
	case *PilotDeregisteredBody:
		return *v
	case *MessageSentBody:
		return *v
	case *MessageReadBody:
		return *v
	case *MessageAckedBody:
		return *v
	case *ThreadCreatedBody:
		return *v
	case *ThreadActivityBody:
		return *v
	case *FileReservedBody:
		return *v
	case *FileReleasedBody:
		return *v
	case *FileConflictBody:
		return *v
	case *LockAcquiredBody:
		return *v
	case *LockReleasedBody:
		return *v
	case *LockConflictBody:
		return *v
	case *LockReacquiredBody:
		return *v
	case *SortieCreatedBody:
		return *v
	case *SortieStartedBody:
		return *v
	case *SortieProgressBody:
		return *v
	case *SortieCompletedBody:
		return *v
	case *SortieBlockedBody:
		return *v
	case *SortieStatusChangedBody:
		return *v
	case *WorkOrderCreatedBody:
		return *v
	case *WorkOrderStartedBody:
		return *v
	case *WorkOrderProgressBody:
		return *v
	case *WorkOrderCompletedBody:
		return *v
	case *WorkOrderBlockedBody:
		return *v
	case *WorkOrderStatusChangedBody:
		return *v
	case *MissionCreatedBody:
		return *v
	case *MissionStartedBody:
		return *v
	case *MissionCompletedBody:
		return *v
	case *MissionSyncedBody:
		return *v
	case *CheckpointCreatedBody:
		return *v
	case *ContextCompactedBody:
		return *v
	case *FleetRecoveredBody:
		return *v
	case *ContextInjectedBody:
		return *v
	case *CoordinatorDecisionBody:
		return *v
	case *CoordinatorViolationBody:
		return *v
	case *PilotSpawnedBody:
		return *v
	case *PilotCompletedBody:
		return *v
	case *ReviewStartedBody:
		return *v
	case *ReviewCompletedBody:
		return *v
	default:
		panic(fmt.Sprintf("event: unreachable body type %T", ptr))
	}
}
