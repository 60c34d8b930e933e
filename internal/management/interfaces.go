package management

import (
	"context"
)

type Service interface {
	CreateRoutingRule(ctx context.Context, domainID string, req CreateRoutingRuleRequest) (*RoutingRule, error)
	ListRoutingRules(ctx context.Context, domainID string) ([]RoutingRule, error)
	GetRoutingRule(ctx context.Context, domainID, id string) (*RoutingRule, error)
	UpdateRoutingRule(ctx context.Context, domainID, id string, req UpdateRoutingRuleRequest) (*RoutingRule, error)
	DeleteRoutingRule(ctx context.Context, domainID, id string) error
	GetRuleVersions(ctx context.Context, ruleID string) ([]RuleVersion, error)
	GetAuditLogs(ctx context.Context, ruleID *string, ruleType string, limit int) ([]AuditLog, error)

	GetDefaultLink(ctx context.Context, domainID string) (*DomainSettings, error)
	SetDefaultLink(ctx context.Context, domainID string, req UpdateDefaultLinkRequest) (*DomainSettings, error)

	GetMessageStatus(ctx context.Context, domainID, connectorMessageID string) (*MessageStatus, error)
	GetMessageEvidences(ctx context.Context, domainID, connectorMessageID string) ([]ArchivedEvidenceView, error)
}
