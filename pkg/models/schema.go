package models

import "fmt"

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateMessageEnvelope(msg *MessageEnvelope) error {
	if msg == nil {
		return &ValidationError{
			Field:   "envelope",
			Message: "message envelope cannot be nil",
		}
	}

	if msg.ID == "" {
		return &ValidationError{
			Field:   "id",
			Message: "envelope ID is required",
		}
	}

	if msg.DomainID == "" {
		return &ValidationError{
			Field:   "domain_id",
			Message: "business domain ID is required",
		}
	}

	if msg.Timestamp.IsZero() {
		return &ValidationError{
			Field:   "timestamp",
			Message: "envelope timestamp is required",
		}
	}

	if msg.Message == nil {
		return &ValidationError{
			Field:   "message",
			Message: "envelope must carry a message",
		}
	}

	return ValidateMessage(msg.Message)
}

// ValidateMessage checks the structural invariants every inbound message must
// satisfy before it reaches the processing pipeline.
func ValidateMessage(m *Message) error {
	if m == nil {
		return &ValidationError{
			Field:   "message",
			Message: "message cannot be nil",
		}
	}

	if m.ConnectorMessageID == "" {
		return &ValidationError{
			Field:   "connector_message_id",
			Message: "connector message ID is required",
		}
	}

	if !m.Details.Direction.IsValid() {
		return &ValidationError{
			Field:   "details.direction",
			Message: fmt.Sprintf("invalid direction %q", m.Details.Direction),
		}
	}

	for i, c := range m.Confirmations {
		if !c.Type.IsValid() {
			return &ValidationError{
				Field:   fmt.Sprintf("confirmations[%d].type", i),
				Message: fmt.Sprintf("unknown evidence type %q", c.Type),
			}
		}
	}

	if m.Classify() == KindUnknown {
		return &ValidationError{
			Field:   "message",
			Message: "message is neither business message, evidence message nor evidence trigger",
		}
	}

	return nil
}
