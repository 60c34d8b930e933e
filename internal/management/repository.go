package management

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"courier/internal/constants"
	pkgerrors "courier/pkg/errors"
	"courier/pkg/metrics"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

func observeQuery(operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.ObserveDatabaseQuery(constants.ServiceNameManagement, "postgres", operation, status, time.Since(start))
}

type Repository interface {
	CreateRoutingRule(ctx context.Context, rule *RoutingRule) error
	ListRoutingRules(ctx context.Context, domainID string) ([]RoutingRule, error)
	GetRoutingRule(ctx context.Context, domainID, id string) (*RoutingRule, error)
	UpdateRoutingRule(ctx context.Context, rule *RoutingRule) error
	DeleteRoutingRule(ctx context.Context, domainID, id string) error

	GetDomainSettings(ctx context.Context, domainID string) (*DomainSettings, error)
	UpsertDefaultLink(ctx context.Context, domainID, defaultLink string) (*DomainSettings, error)
}

type PostgresRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) CreateRoutingRule(ctx context.Context, rule *RoutingRule) error {
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	now := time.Now()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	query := `
		INSERT INTO routing_rules (id, domain_id, description, match_clause, link_name, priority, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	start := time.Now()
	_, err := r.db.ExecContext(ctx, query,
		rule.ID, rule.DomainID, rule.Description, rule.MatchClause,
		rule.LinkName, rule.Priority, rule.Enabled, rule.CreatedAt, rule.UpdatedAt,
	)
	observeQuery("insert_routing_rule", start, err)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" {
				return pkgerrors.ErrConflict.WithCause(err).WithDetail("message", fmt.Sprintf("rule '%s' already exists in domain '%s'", rule.ID, rule.DomainID))
			}
		}
		if strings.Contains(err.Error(), "duplicate key") || strings.Contains(err.Error(), "unique constraint") {
			return pkgerrors.ErrConflict.WithCause(err).WithDetail("message", fmt.Sprintf("rule '%s' already exists in domain '%s'", rule.ID, rule.DomainID))
		}
		return fmt.Errorf("failed to create routing rule: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetRoutingRule(ctx context.Context, domainID, id string) (*RoutingRule, error) {
	query := `
		SELECT id, domain_id, description, match_clause, link_name, priority, enabled, created_at, updated_at
		FROM routing_rules
		WHERE domain_id = $1 AND id = $2
	`

	row := r.db.QueryRowContext(ctx, query, domainID, id)

	var rule RoutingRule
	err := row.Scan(
		&rule.ID, &rule.DomainID, &rule.Description, &rule.MatchClause,
		&rule.LinkName, &rule.Priority, &rule.Enabled, &rule.CreatedAt, &rule.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("routing rule not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get routing rule: %w", err)
	}

	return &rule, nil
}

func (r *PostgresRepository) ListRoutingRules(ctx context.Context, domainID string) ([]RoutingRule, error) {
	query := `
		SELECT id, domain_id, description, match_clause, link_name, priority, enabled, created_at, updated_at
		FROM routing_rules
		WHERE domain_id = $1
		ORDER BY priority ASC, created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, domainID)
	if err != nil {
		return nil, fmt.Errorf("failed to list routing rules: %w", err)
	}
	defer rows.Close()

	var rules []RoutingRule
	for rows.Next() {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		var rule RoutingRule
		if err := rows.Scan(
			&rule.ID, &rule.DomainID, &rule.Description, &rule.MatchClause,
			&rule.LinkName, &rule.Priority, &rule.Enabled, &rule.CreatedAt, &rule.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan routing rule: %w", err)
		}
		rules = append(rules, rule)
	}

	return rules, nil
}

func (r *PostgresRepository) UpdateRoutingRule(ctx context.Context, rule *RoutingRule) error {
	rule.UpdatedAt = time.Now()

	query := `
		UPDATE routing_rules
		SET description = $1, match_clause = $2, link_name = $3, priority = $4, enabled = $5, updated_at = $6
		WHERE domain_id = $7 AND id = $8
	`

	start := time.Now()
	res, err := r.db.ExecContext(ctx, query,
		rule.Description, rule.MatchClause, rule.LinkName,
		rule.Priority, rule.Enabled, rule.UpdatedAt, rule.DomainID, rule.ID,
	)
	observeQuery("update_routing_rule", start, err)
	if err != nil {
		return fmt.Errorf("failed to update routing rule: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("routing rule not found")
	}

	return nil
}

func (r *PostgresRepository) DeleteRoutingRule(ctx context.Context, domainID, id string) error {
	query := `DELETE FROM routing_rules WHERE domain_id = $1 AND id = $2`

	res, err := r.db.ExecContext(ctx, query, domainID, id)
	if err != nil {
		return fmt.Errorf("failed to delete routing rule: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("routing rule not found")
	}

	return nil
}

func (r *PostgresRepository) GetDomainSettings(ctx context.Context, domainID string) (*DomainSettings, error) {
	query := `
		SELECT domain_id, default_link, updated_at
		FROM domain_settings
		WHERE domain_id = $1
	`

	var settings DomainSettings
	err := r.db.QueryRowContext(ctx, query, domainID).Scan(
		&settings.DomainID, &settings.DefaultLink, &settings.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("domain settings not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get domain settings: %w", err)
	}

	return &settings, nil
}

func (r *PostgresRepository) UpsertDefaultLink(ctx context.Context, domainID, defaultLink string) (*DomainSettings, error) {
	query := `
		INSERT INTO domain_settings (domain_id, default_link, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (domain_id) DO UPDATE
		SET default_link = EXCLUDED.default_link, updated_at = EXCLUDED.updated_at
	`

	now := time.Now()
	start := now
	_, err := r.db.ExecContext(ctx, query, domainID, defaultLink, now)
	observeQuery("upsert_default_link", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert default link: %w", err)
	}

	return &DomainSettings{DomainID: domainID, DefaultLink: defaultLink, UpdatedAt: now}, nil
}
