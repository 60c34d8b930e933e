package evidence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"courier/pkg/models"
)

type PostgresStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) Store {
	return &PostgresStore{db: db}
}

const messageColumns = `
	connector_message_id, domain_id, backend_message_id, gateway_message_id,
	conversation_id, ref_to_message_id, ref_to_backend_message_id, direction,
	original_sender, final_recipient,
	from_party_id, from_party_id_type, from_party_role,
	to_party_id, to_party_id_type, to_party_role,
	service_name, service_type, action, backend_link,
	confirmed_at, rejected_at, delivered_to_gateway_at, delivered_to_backend_at,
	created_at
`

func (s *PostgresStore) Save(ctx context.Context, msg *StoredMessage) error {
	query := `
		INSERT INTO messages (` + messageColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)
		ON CONFLICT (connector_message_id) DO NOTHING
	`

	d := msg.Details
	createdAt := msg.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, query,
		msg.ConnectorMessageID, msg.DomainID,
		d.BackendMessageID, d.GatewayMessageID,
		d.ConversationID, d.RefToMessageID, d.RefToBackendMessageID,
		d.Direction.String(),
		d.OriginalSender, d.FinalRecipient,
		d.FromParty.PartyID, d.FromParty.PartyIDType, d.FromParty.Role,
		d.ToParty.PartyID, d.ToParty.PartyIDType, d.ToParty.Role,
		d.Service.Name, d.Service.Type, d.Action, d.BackendLink,
		msg.ConfirmedAt, msg.RejectedAt, msg.DeliveredToGatewayAt, msg.DeliveredToBackendAt,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByConnectorID(ctx context.Context, domainID, connectorMessageID string) (*StoredMessage, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE domain_id = $1 AND connector_message_id = $2`
	return s.queryOne(ctx, query, domainID, connectorMessageID)
}

func (s *PostgresStore) FindByRefID(ctx context.Context, domainID, refID string) (*StoredMessage, error) {
	query := `
		SELECT ` + messageColumns + ` FROM messages
		WHERE domain_id = $1 AND (backend_message_id = $2 OR gateway_message_id = $2)
		ORDER BY created_at DESC
		LIMIT 1
	`
	return s.queryOne(ctx, query, domainID, refID)
}

func (s *PostgresStore) FindByConversationID(ctx context.Context, domainID, conversationID string) (*StoredMessage, error) {
	query := `
		SELECT ` + messageColumns + ` FROM messages
		WHERE domain_id = $1 AND conversation_id = $2
		ORDER BY created_at DESC
		LIMIT 1
	`
	return s.queryOne(ctx, query, domainID, conversationID)
}

func (s *PostgresStore) AppendConfirmation(ctx context.Context, connectorMessageID string, conf models.MessageConfirmation) error {
	query := `
		INSERT INTO message_confirmations (connector_message_id, evidence_type, evidence, reason, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(ctx, query, connectorMessageID, string(conf.Type), conf.Evidence, string(conf.Reason), time.Now())
	if err != nil {
		return fmt.Errorf("failed to append confirmation: %w", err)
	}
	return nil
}

func (s *PostgresStore) Confirm(ctx context.Context, connectorMessageID string, at time.Time) (bool, error) {
	query := `
		UPDATE messages SET confirmed_at = $2
		WHERE connector_message_id = $1 AND confirmed_at IS NULL AND rejected_at IS NULL
	`
	res, err := s.db.ExecContext(ctx, query, connectorMessageID, at)
	if err != nil {
		return false, fmt.Errorf("failed to confirm message: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *PostgresStore) Reject(ctx context.Context, connectorMessageID string, at time.Time) (bool, error) {
	query := `
		UPDATE messages SET rejected_at = $2
		WHERE connector_message_id = $1 AND rejected_at IS NULL
	`
	res, err := s.db.ExecContext(ctx, query, connectorMessageID, at)
	if err != nil {
		return false, fmt.Errorf("failed to reject message: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *PostgresStore) MarkDeliveredToGateway(ctx context.Context, connectorMessageID string, at time.Time) error {
	return s.markDelivered(ctx, "delivered_to_gateway_at", connectorMessageID, at)
}

func (s *PostgresStore) MarkDeliveredToBackend(ctx context.Context, connectorMessageID string, at time.Time) error {
	return s.markDelivered(ctx, "delivered_to_backend_at", connectorMessageID, at)
}

func (s *PostgresStore) markDelivered(ctx context.Context, column, connectorMessageID string, at time.Time) error {
	query := fmt.Sprintf(`UPDATE messages SET %s = $2 WHERE connector_message_id = $1 AND %s IS NULL`, column, column)
	if _, err := s.db.ExecContext(ctx, query, connectorMessageID, at); err != nil {
		return fmt.Errorf("failed to mark message delivered: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindWithoutRelayEvidence(ctx context.Context) ([]*StoredMessage, error) {
	return s.findMissingEvidence(ctx, `direction = 'BACKEND_TO_GATEWAY'`, []models.EvidenceType{
		models.EvidenceRelayREMMDAcceptance,
		models.EvidenceRelayREMMDRejection,
		models.EvidenceRelayREMMDFailure,
	})
}

func (s *PostgresStore) FindWithoutDeliveryEvidence(ctx context.Context) ([]*StoredMessage, error) {
	return s.findMissingEvidence(ctx, `TRUE`, []models.EvidenceType{
		models.EvidenceDelivery,
		models.EvidenceNonDelivery,
	})
}

func (s *PostgresStore) FindWithoutRetrievalEvidence(ctx context.Context) ([]*StoredMessage, error) {
	return s.findMissingEvidence(ctx, `
		EXISTS (
			SELECT 1 FROM message_confirmations c
			WHERE c.connector_message_id = m.connector_message_id
			AND c.evidence_type = 'DELIVERY'
		)`, []models.EvidenceType{
		models.EvidenceRetrieval,
		models.EvidenceNonRetrieval,
	})
}

func (s *PostgresStore) findMissingEvidence(ctx context.Context, condition string, group []models.EvidenceType) ([]*StoredMessage, error) {
	types := make([]string, len(group))
	for i, t := range group {
		types[i] = string(t)
	}

	query := `
		SELECT ` + messageColumns + ` FROM messages m
		WHERE m.rejected_at IS NULL
		AND ` + condition + `
		AND NOT EXISTS (
			SELECT 1 FROM message_confirmations c
			WHERE c.connector_message_id = m.connector_message_id
			AND c.evidence_type = ANY($1)
		)
		ORDER BY m.created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, pq.Array(types))
	if err != nil {
		return nil, fmt.Errorf("failed to query timeout candidates: %w", err)
	}
	defer rows.Close()

	var messages []*StoredMessage
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	for _, msg := range messages {
		if err := s.loadConfirmations(ctx, msg); err != nil {
			return nil, err
		}
	}
	return messages, nil
}

func (s *PostgresStore) queryOne(ctx context.Context, query string, args ...interface{}) (*StoredMessage, error) {
	row := s.db.QueryRowContext(ctx, query, args...)
	msg, err := scanMessage(row)
	if err == sql.ErrNoRows {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadConfirmations(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *PostgresStore) loadConfirmations(ctx context.Context, msg *StoredMessage) error {
	query := `
		SELECT evidence_type, evidence, reason
		FROM message_confirmations
		WHERE connector_message_id = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, msg.ConnectorMessageID)
	if err != nil {
		return fmt.Errorf("failed to query confirmations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var typ, reason string
		var evidence []byte
		if err := rows.Scan(&typ, &evidence, &reason); err != nil {
			return fmt.Errorf("failed to scan confirmation: %w", err)
		}
		msg.Confirmations = append(msg.Confirmations, models.MessageConfirmation{
			Type:     models.EvidenceType(typ),
			Evidence: evidence,
			Reason:   models.RejectionReason(reason),
		})
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMessage(row rowScanner) (*StoredMessage, error) {
	msg := &StoredMessage{}
	var direction string
	err := row.Scan(
		&msg.ConnectorMessageID, &msg.DomainID,
		&msg.Details.BackendMessageID, &msg.Details.GatewayMessageID,
		&msg.Details.ConversationID, &msg.Details.RefToMessageID, &msg.Details.RefToBackendMessageID,
		&direction,
		&msg.Details.OriginalSender, &msg.Details.FinalRecipient,
		&msg.Details.FromParty.PartyID, &msg.Details.FromParty.PartyIDType, &msg.Details.FromParty.Role,
		&msg.Details.ToParty.PartyID, &msg.Details.ToParty.PartyIDType, &msg.Details.ToParty.Role,
		&msg.Details.Service.Name, &msg.Details.Service.Type, &msg.Details.Action, &msg.Details.BackendLink,
		&msg.ConfirmedAt, &msg.RejectedAt, &msg.DeliveredToGatewayAt, &msg.DeliveredToBackendAt,
		&msg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	msg.Details.DomainID = msg.DomainID
	if d, perr := models.ParseMessageDirection(direction); perr == nil {
		msg.Details.Direction = d
	}
	return msg, nil
}
