package routing

import (
	"context"
	"database/sql"
	"fmt"
)

type Repository interface {
	GetActiveRules(ctx context.Context) ([]Rule, error)
	GetDefaultLinks(ctx context.Context) (map[string]string, error)
}

type PostgresRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetActiveRules(ctx context.Context) ([]Rule, error) {
	query := `
		SELECT id, domain_id, description, match_clause, link_name, priority, enabled, created_at, updated_at
		FROM routing_rules
		WHERE enabled = true
		ORDER BY domain_id, priority ASC, created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query routing rules: %w", err)
	}
	defer rows.Close()

	var rules []Rule
	for rows.Next() {
		rule := Rule{Source: SourceDatabase}
		if err := rows.Scan(
			&rule.ID,
			&rule.DomainID,
			&rule.Description,
			&rule.MatchClause,
			&rule.LinkName,
			&rule.Priority,
			&rule.Enabled,
			&rule.CreatedAt,
			&rule.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan routing rule: %w", err)
		}
		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return rules, nil
}

// GetDefaultLinks returns the per-domain fallback link used when no rule
// matches a message.
func (r *PostgresRepository) GetDefaultLinks(ctx context.Context) (map[string]string, error) {
	query := `
		SELECT domain_id, default_link
		FROM domain_settings
		WHERE default_link <> ''
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query domain settings: %w", err)
	}
	defer rows.Close()

	links := make(map[string]string)
	for rows.Next() {
		var domainID, link string
		if err := rows.Scan(&domainID, &link); err != nil {
			return nil, fmt.Errorf("failed to scan domain setting: %w", err)
		}
		links[domainID] = link
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return links, nil
}
