package models

import "time"

// MessageEnvelope is the broker wire format. It wraps a connector message
// with transport metadata; the envelope ID is distinct from the connector
// message ID so redeliveries of the same message stay correlatable.
type MessageEnvelope struct {
	ID        string    `json:"id"`
	DomainID  string    `json:"domain_id"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
	Message   *Message  `json:"message"`
	Metadata  Metadata  `json:"metadata"`
}

type Metadata struct {
	TraceID  string       `json:"trace_id,omitempty"`
	Routing  *RoutingInfo `json:"routing,omitempty"`
	Attempts int          `json:"attempts,omitempty"`
	DLQ      *DLQInfo     `json:"dlq,omitempty"`
}

// DLQInfo is attached when an envelope is parked on the dead letter topic.
type DLQInfo struct {
	Reason      string    `json:"reason"`
	SourceTopic string    `json:"source_topic"`
	FailedAt    time.Time `json:"failed_at"`
}

// RoutingInfo records which rule selected the backend link, for audit.
type RoutingInfo struct {
	LinkName  string    `json:"link_name"`
	RuleID    string    `json:"rule_id,omitempty"`
	DecidedAt time.Time `json:"decided_at"`
}
