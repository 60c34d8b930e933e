package management

import (
	"time"

	"courier/internal/routing"
	"courier/pkg/models"
)

type RoutingRule struct {
	ID          string    `json:"id" db:"id"`
	DomainID    string    `json:"domain_id" db:"domain_id"`
	Description string    `json:"description" db:"description"`
	MatchClause string    `json:"match_clause" db:"match_clause"`
	LinkName    string    `json:"link_name" db:"link_name"`
	Priority    int       `json:"priority" db:"priority"`
	Enabled     bool      `json:"enabled" db:"enabled"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

type CreateRoutingRuleRequest struct {
	Description string `json:"description"`
	MatchClause string `json:"match_clause" binding:"required"`
	LinkName    string `json:"link_name" binding:"required"`
	Priority    int    `json:"priority"`
	Enabled     *bool  `json:"enabled"`
}

type UpdateRoutingRuleRequest struct {
	Description *string `json:"description"`
	MatchClause *string `json:"match_clause"`
	LinkName    *string `json:"link_name"`
	Priority    *int    `json:"priority"`
	Enabled     *bool   `json:"enabled"`
}

// RuleDiagnostic is one parse problem in a submitted match clause, as
// rendered in a 400 response. Every problem found in the clause is reported,
// not just the first.
type RuleDiagnostic struct {
	Position int    `json:"position"`
	Token    string `json:"token,omitempty"`
	Message  string `json:"message"`
}

func toRuleDiagnostics(diags []routing.Diagnostic) []RuleDiagnostic {
	out := make([]RuleDiagnostic, len(diags))
	for i, d := range diags {
		out[i] = RuleDiagnostic{Position: d.Position, Token: d.Token, Message: d.Message}
	}
	return out
}

type DomainSettings struct {
	DomainID    string    `json:"domain_id" db:"domain_id"`
	DefaultLink string    `json:"default_link" db:"default_link"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

type UpdateDefaultLinkRequest struct {
	DefaultLink string `json:"default_link" binding:"required"`
}

// MessageStatus is the operator view of one business message: lifecycle
// state, evidence history and any processing errors recorded for it.
type MessageStatus struct {
	ConnectorMessageID string                   `json:"connector_message_id"`
	DomainID           string                   `json:"domain_id"`
	Direction          string                   `json:"direction"`
	BackendLink        string                   `json:"backend_link,omitempty"`
	ConversationID     string                   `json:"conversation_id,omitempty"`
	Confirmed          bool                     `json:"confirmed"`
	Rejected           bool                     `json:"rejected"`
	ConfirmedAt        *time.Time               `json:"confirmed_at,omitempty"`
	RejectedAt         *time.Time               `json:"rejected_at,omitempty"`
	CreatedAt          time.Time                `json:"created_at"`
	Evidences          []MessageEvidenceSummary `json:"evidences"`
	ProcessingErrors   []ProcessingErrorView    `json:"processing_errors,omitempty"`
}

type MessageEvidenceSummary struct {
	Type       models.EvidenceType    `json:"type"`
	Positive   bool                   `json:"positive"`
	Generated  bool                   `json:"generated"`
	Reason     models.RejectionReason `json:"reason,omitempty"`
	ReceivedAt *time.Time             `json:"received_at,omitempty"`
}

// ArchivedEvidenceView is one raw evidence payload from the archive.
type ArchivedEvidenceView struct {
	EvidenceType models.EvidenceType `json:"evidence_type"`
	Evidence     []byte              `json:"evidence,omitempty"`
	Generated    bool                `json:"generated"`
	ArchivedAt   time.Time           `json:"archived_at"`
}

type ProcessingErrorView struct {
	ErrorCode  string    `json:"error_code"`
	ErrorText  string    `json:"error_text"`
	Topic      string    `json:"topic,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
