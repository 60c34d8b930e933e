package integration

import (
	"time"

	"github.com/google/uuid"

	"courier/internal/logger"
	"courier/internal/management"
	"courier/pkg/models"
)

const (
	containerStartupTimeout = 60
	timestampDelay          = 10 * time.Millisecond
)

func createTestLogger() logger.Logger {
	return logger.NopLogger()
}

func createTestRoutingRule(domainID, matchClause, linkName string, priority int, enabled bool) *management.RoutingRule {
	return &management.RoutingRule{
		ID:          uuid.New().String(),
		DomainID:    domainID,
		Description: "integration rule",
		MatchClause: matchClause,
		LinkName:    linkName,
		Priority:    priority,
		Enabled:     enabled,
	}
}

func createTestMessageDetails(domainID, backendMessageID string) models.MessageDetails {
	return models.MessageDetails{
		DomainID:         domainID,
		BackendMessageID: backendMessageID,
		ConversationID:   uuid.New().String(),
		Direction:        models.DirectionBackendToGateway,
		OriginalSender:   "sender@example.eu",
		FinalRecipient:   "recipient@example.eu",
		FromParty:        models.Party{PartyID: "gw-alpha", PartyIDType: "urn:oasis:names:tc:ebcore:partyid-type:iso3166-1", Role: "GW"},
		ToParty:          models.Party{PartyID: "gw-beta", PartyIDType: "urn:oasis:names:tc:ebcore:partyid-type:iso3166-1", Role: "GW"},
		Service:          models.Service{Name: "EPO", Type: "urn:e-justice:service"},
		Action:           "Form_A",
	}
}
