package models

import "time"

type ConfigUpdateEvent struct {
	EventType   string                 `json:"event_type"`   // "routing_rule_updated", "domain_config_updated"
	ServiceType string                 `json:"service_type"` // "routing", "connector"
	DomainID    string                 `json:"domain_id,omitempty"`
	RuleID      string                 `json:"rule_id,omitempty"`
	Action      string                 `json:"action"` // "create", "update", "delete", "toggle"
	Timestamp   time.Time              `json:"timestamp"`
	ChangedBy   string                 `json:"changed_by,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

const (
	EventTypeRoutingRuleUpdated  = "routing_rule_updated"
	EventTypeDomainConfigUpdated = "domain_config_updated"
)

const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionToggle = "toggle"
	ActionReload = "reload"
)

const (
	ServiceTypeRouting   = "routing"
	ServiceTypeConnector = "connector"
)
