package evidence

import (
	"context"
	"errors"
	"time"

	"courier/pkg/models"
)

// ErrMessageNotFound is returned when no business message matches the lookup.
var ErrMessageNotFound = errors.New("business message not found")

// StoredMessage is a persisted business message together with its evidence
// history and lifecycle timestamps. Confirmations are append-only; the
// confirmed/rejected timestamps are set once and never move.
type StoredMessage struct {
	ConnectorMessageID   string
	DomainID             string
	Details              models.MessageDetails
	Confirmations        []models.MessageConfirmation
	ConfirmedAt          *time.Time
	RejectedAt           *time.Time
	DeliveredToGatewayAt *time.Time
	DeliveredToBackendAt *time.Time
	CreatedAt            time.Time
}

func (m *StoredMessage) IsRejected() bool {
	return m.RejectedAt != nil
}

func (m *StoredMessage) IsConfirmed() bool {
	return m.ConfirmedAt != nil
}

// HighestPriority returns the highest evidence priority present in the
// history, 0 when the message has no evidences yet.
func (m *StoredMessage) HighestPriority() int {
	highest := 0
	for _, c := range m.Confirmations {
		if p := c.Type.Priority(); p > highest {
			highest = p
		}
	}
	return highest
}

func (m *StoredMessage) CountOfType(t models.EvidenceType) int {
	n := 0
	for _, c := range m.Confirmations {
		if c.Type == t {
			n++
		}
	}
	return n
}

func (m *StoredMessage) HasAnyOf(types ...models.EvidenceType) bool {
	for _, t := range types {
		if m.CountOfType(t) > 0 {
			return true
		}
	}
	return false
}

// Store persists business messages and their evidence lifecycle. Confirm and
// Reject are compare-and-set operations: they report false when another
// writer already decided the state, which keeps the timestamps monotonic
// across connector instances.
type Store interface {
	Save(ctx context.Context, msg *StoredMessage) error
	FindByConnectorID(ctx context.Context, domainID, connectorMessageID string) (*StoredMessage, error)

	// FindByRefID resolves the business message an evidence refers to. The
	// reference carries the message ID of the referenced side, so the lookup
	// covers backend and gateway message IDs.
	FindByRefID(ctx context.Context, domainID, refID string) (*StoredMessage, error)
	FindByConversationID(ctx context.Context, domainID, conversationID string) (*StoredMessage, error)

	AppendConfirmation(ctx context.Context, connectorMessageID string, conf models.MessageConfirmation) error
	Confirm(ctx context.Context, connectorMessageID string, at time.Time) (bool, error)
	Reject(ctx context.Context, connectorMessageID string, at time.Time) (bool, error)

	MarkDeliveredToGateway(ctx context.Context, connectorMessageID string, at time.Time) error
	MarkDeliveredToBackend(ctx context.Context, connectorMessageID string, at time.Time) error

	// Timeout scan candidates. Each finder excludes rejected messages and
	// messages already carrying an evidence of the group in question, which
	// makes repeated scans idempotent.
	FindWithoutRelayEvidence(ctx context.Context) ([]*StoredMessage, error)
	FindWithoutDeliveryEvidence(ctx context.Context) ([]*StoredMessage, error)
	FindWithoutRetrievalEvidence(ctx context.Context) ([]*StoredMessage, error)
}
