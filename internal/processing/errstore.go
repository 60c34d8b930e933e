package processing

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"courier/internal/broker"
	"courier/internal/logger"
	"courier/pkg/models"
)

// ProcessingError is one failed processing attempt kept for support lookups.
type ProcessingError struct {
	ID                 string
	DomainID           string
	ConnectorMessageID string
	EnvelopeID         string
	Topic              string
	ErrorCode          models.BusinessErrorCode
	ErrorText          string
	OccurredAt         time.Time
}

type ErrorStore interface {
	Save(ctx context.Context, perr ProcessingError) error
	FindByConnectorID(ctx context.Context, domainID, connectorMessageID string) ([]ProcessingError, error)
}

type PostgresErrorStore struct {
	db *sql.DB
}

func NewErrorStore(db *sql.DB) ErrorStore {
	return &PostgresErrorStore{db: db}
}

func (s *PostgresErrorStore) Save(ctx context.Context, perr ProcessingError) error {
	if perr.ID == "" {
		perr.ID = uuid.NewString()
	}
	if perr.OccurredAt.IsZero() {
		perr.OccurredAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO processing_errors (id, domain_id, connector_message_id, envelope_id, topic, error_code, error_text, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		perr.ID, perr.DomainID, perr.ConnectorMessageID, perr.EnvelopeID, perr.Topic, string(perr.ErrorCode), perr.ErrorText, perr.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save processing error: %w", err)
	}
	return nil
}

func (s *PostgresErrorStore) FindByConnectorID(ctx context.Context, domainID, connectorMessageID string) ([]ProcessingError, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, domain_id, connector_message_id, envelope_id, topic, error_code, error_text, occurred_at
		FROM processing_errors
		WHERE domain_id = $1 AND connector_message_id = $2
		ORDER BY occurred_at ASC`,
		domainID, connectorMessageID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query processing errors: %w", err)
	}
	defer rows.Close()

	var out []ProcessingError
	for rows.Next() {
		var perr ProcessingError
		var code string
		if err := rows.Scan(&perr.ID, &perr.DomainID, &perr.ConnectorMessageID, &perr.EnvelopeID, &perr.Topic, &code, &perr.ErrorText, &perr.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan processing error: %w", err)
		}
		perr.ErrorCode = models.BusinessErrorCode(code)
		out = append(out, perr)
	}
	return out, rows.Err()
}

// WithErrorPersistence wraps a broker handler so that every failed attempt
// leaves a processing error row. Persistence failures only log; the original
// error keeps driving the broker's retry and DLQ path.
func WithErrorPersistence(store ErrorStore, topic string, log logger.Logger, next broker.HandlerFunc) broker.HandlerFunc {
	return func(ctx context.Context, env models.MessageEnvelope) error {
		err := next(ctx, env)
		if err == nil {
			return nil
		}

		connectorMessageID := ""
		if env.Message != nil {
			connectorMessageID = env.Message.ConnectorMessageID
		}
		perr := ProcessingError{
			DomainID:           env.DomainID,
			ConnectorMessageID: connectorMessageID,
			EnvelopeID:         env.ID,
			Topic:              topic,
			ErrorCode:          models.ErrorCodeOf(err),
			ErrorText:          err.Error(),
		}
		if saveErr := store.Save(ctx, perr); saveErr != nil {
			log.ErrorwCtx(ctx, "Failed to persist processing error",
				"error", saveErr,
				"envelope_id", env.ID,
			)
		}
		return err
	}
}
