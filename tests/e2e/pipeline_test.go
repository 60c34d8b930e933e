package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courier/internal/management"
	"courier/pkg/models"
)

const (
	kafkaBroker            = "localhost:29092"
	backendSubmissionTopic = "backend_submission"
	gatewayInboundTopic    = "gateway_inbound"
	gatewayOutboundTopic   = "gateway_outbound"
	backendLinkTopicPrefix = "backend_"
	messageWaitTimeout     = 30 * time.Second
)

func businessMessage(backendMessageID string) *models.Message {
	return &models.Message{
		ConnectorMessageID: uuid.New().String(),
		Details: models.MessageDetails{
			DomainID:         e2eDomainID,
			BackendMessageID: backendMessageID,
			ConversationID:   uuid.New().String(),
			OriginalSender:   "sender@example.eu",
			FinalRecipient:   "recipient@example.eu",
			FromParty:        models.Party{PartyID: "AT", PartyIDType: "urn:oasis:names:tc:ebcore:partyid-type:iso3166-1", Role: "GW"},
			ToParty:          models.Party{PartyID: "DE", PartyIDType: "urn:oasis:names:tc:ebcore:partyid-type:iso3166-1", Role: "GW"},
			Service:          models.Service{Name: "EPO", Type: "urn:e-justice:service"},
			Action:           "Form_A",
		},
		Content: &models.MessageContent{
			DocumentName: "form_a.xml",
			Document:     []byte("<FormA/>"),
		},
	}
}

func TestConnectorOutboundEndToEnd(t *testing.T) {
	msg := businessMessage(uuid.New().String())
	msg.Details.BackendLink = "e2e_backend"

	env := models.MessageEnvelope{
		ID:        uuid.New().String(),
		DomainID:  e2eDomainID,
		Source:    "backend",
		Timestamp: time.Now(),
		Message:   msg,
	}

	require.NoError(t, sendEnvelopeToKafka(t, backendSubmissionTopic, env))

	// The business message surfaces on the gateway outbound topic.
	forwarded := waitForEnvelope(t, gatewayOutboundTopic, func(e models.MessageEnvelope) bool {
		return e.Message != nil && e.Message.ConnectorMessageID == msg.ConnectorMessageID
	})
	require.NotNil(t, forwarded, "business message should reach the gateway topic")
	assert.NotNil(t, forwarded.Message.Content)

	// The connector confirms the submission toward the backend link.
	acceptance := waitForEnvelope(t, backendLinkTopicPrefix+"e2e_backend", func(e models.MessageEnvelope) bool {
		return e.Message != nil &&
			len(e.Message.Confirmations) == 1 &&
			e.Message.Confirmations[0].Type == models.EvidenceSubmissionAcceptance &&
			e.Message.Details.RefToBackendMessageID == msg.Details.BackendMessageID
	})
	require.NotNil(t, acceptance, "submission acceptance should reach the backend link")
	assert.NotEmpty(t, acceptance.Message.Confirmations[0].Evidence)
}

func TestConnectorInboundRouting(t *testing.T) {
	ruleID := createRoutingRule(t, management.CreateRoutingRuleRequest{
		Description: "e2e inbound rule",
		MatchClause: "equals(ServiceName, 'EPO')",
		LinkName:    "e2e_backend",
		Priority:    10,
	})
	defer deleteRoutingRule(t, ruleID)

	// Leave the connector time to pick the rule up from the config event.
	time.Sleep(3 * time.Second)

	msg := businessMessage("")
	msg.Details.GatewayMessageID = uuid.New().String()

	env := models.MessageEnvelope{
		ID:        uuid.New().String(),
		DomainID:  e2eDomainID,
		Source:    "gateway",
		Timestamp: time.Now(),
		Message:   msg,
	}

	require.NoError(t, sendEnvelopeToKafka(t, gatewayInboundTopic, env))

	delivered := waitForEnvelope(t, backendLinkTopicPrefix+"e2e_backend", func(e models.MessageEnvelope) bool {
		return e.Message != nil && e.Message.ConnectorMessageID == msg.ConnectorMessageID
	})
	require.NotNil(t, delivered, "inbound message should be routed to the backend link")
	assert.Equal(t, "e2e_backend", delivered.Message.Details.BackendLink)
	require.NotNil(t, delivered.Metadata.Routing)
	assert.Equal(t, ruleID, delivered.Metadata.Routing.RuleID)
}

func TestConnectorEvidenceFlow(t *testing.T) {
	backendMessageID := uuid.New().String()
	msg := businessMessage(backendMessageID)
	msg.Details.BackendLink = "e2e_backend"

	env := models.MessageEnvelope{
		ID:        uuid.New().String(),
		DomainID:  e2eDomainID,
		Source:    "backend",
		Timestamp: time.Now(),
		Message:   msg,
	}
	require.NoError(t, sendEnvelopeToKafka(t, backendSubmissionTopic, env))

	forwarded := waitForEnvelope(t, gatewayOutboundTopic, func(e models.MessageEnvelope) bool {
		return e.Message != nil && e.Message.ConnectorMessageID == msg.ConnectorMessageID
	})
	require.NotNil(t, forwarded)

	// The gateway reports the relay; the connector forwards it to the
	// backend link of the business message.
	relay := models.MessageEnvelope{
		ID:        uuid.New().String(),
		DomainID:  e2eDomainID,
		Source:    "gateway",
		Timestamp: time.Now(),
		Message: &models.Message{
			ConnectorMessageID: uuid.New().String(),
			Details: models.MessageDetails{
				DomainID:       e2eDomainID,
				RefToMessageID: backendMessageID,
			},
			Confirmations: []models.MessageConfirmation{
				{Type: models.EvidenceRelayREMMDAcceptance, Evidence: []byte("<RelayAcceptance/>")},
			},
		},
	}
	require.NoError(t, sendEnvelopeToKafka(t, gatewayInboundTopic, relay))

	relayed := waitForEnvelope(t, backendLinkTopicPrefix+"e2e_backend", func(e models.MessageEnvelope) bool {
		return e.Message != nil &&
			len(e.Message.Confirmations) == 1 &&
			e.Message.Confirmations[0].Type == models.EvidenceRelayREMMDAcceptance &&
			e.Message.Details.RefToBackendMessageID == backendMessageID
	})
	require.NotNil(t, relayed, "relay evidence should be forwarded to the backend")
}

func sendEnvelopeToKafka(t *testing.T, topic string, env models.MessageEnvelope) error {
	t.Helper()

	writer := &kafka.Writer{
		Addr:         kafka.TCP(kafkaBroker),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
	}
	defer writer.Close()

	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = writer.WriteMessages(ctx,
		kafka.Message{
			Key:   []byte(env.ID),
			Value: body,
			Time:  time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to write envelope: %w", err)
	}

	return nil
}

func waitForEnvelope(t *testing.T, topic string, match func(models.MessageEnvelope) bool) *models.MessageEnvelope {
	t.Helper()

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        []string{kafkaBroker},
		Topic:          topic,
		GroupID:        fmt.Sprintf("e2e-test-waiter-%s", uuid.New().String()),
		StartOffset:    kafka.FirstOffset,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
		MaxWait:        2 * time.Second,
	})
	defer reader.Close()

	ctx, cancel := context.WithTimeout(context.Background(), messageWaitTimeout)
	defer cancel()

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if err == context.DeadlineExceeded {
				return nil
			}
			time.Sleep(500 * time.Millisecond)
			continue
		}

		var envelope models.MessageEnvelope
		if err := json.Unmarshal(msg.Value, &envelope); err != nil {
			_ = reader.CommitMessages(ctx, msg)
			continue
		}

		_ = reader.CommitMessages(ctx, msg)

		if match(envelope) {
			return &envelope
		}
	}
}
