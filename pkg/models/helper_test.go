package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		msg  *Message
		want MessageKind
	}{
		{
			name: "message with content is a business message",
			msg: &Message{
				Content: &MessageContent{DocumentName: "form_a.xml", Document: []byte("<FormA/>")},
			},
			want: KindBusiness,
		},
		{
			name: "content wins even when confirmations are attached",
			msg: &Message{
				Content: &MessageContent{Document: []byte("<FormA/>")},
				Confirmations: []MessageConfirmation{
					{Type: EvidenceDelivery, Evidence: []byte("<Evidence/>")},
				},
			},
			want: KindBusiness,
		},
		{
			name: "single empty confirmation is a trigger",
			msg: &Message{
				Confirmations: []MessageConfirmation{{Type: EvidenceDelivery}},
			},
			want: KindEvidenceTrigger,
		},
		{
			name: "single confirmation with evidence bytes is an evidence message",
			msg: &Message{
				Confirmations: []MessageConfirmation{
					{Type: EvidenceDelivery, Evidence: []byte("<Evidence/>")},
				},
			},
			want: KindEvidence,
		},
		{
			name: "multiple confirmations are an evidence message even without bytes",
			msg: &Message{
				Confirmations: []MessageConfirmation{
					{Type: EvidenceDelivery},
					{Type: EvidenceRetrieval},
				},
			},
			want: KindEvidence,
		},
		{
			name: "no content and no confirmations is unknown",
			msg:  &Message{},
			want: KindUnknown,
		},
		{
			name: "nil message is unknown",
			msg:  nil,
			want: KindUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.msg.Classify())
		})
	}
}

func TestSwitchDirection(t *testing.T) {
	original := MessageDetails{
		DomainID:       "domain1",
		ConversationID: "conv-42",
		Direction:      DirectionBackendToGateway,
		OriginalSender: "sender@example.eu",
		FinalRecipient: "recipient@example.at",
		FromParty: Party{
			PartyID:     "AT",
			PartyIDType: "urn:oasis:names:tc:ebcore:partyid-type:iso3166-1",
			Role:        "GW",
			RoleType:    RoleTypeInitiator,
		},
		ToParty: Party{
			PartyID:     "DE",
			PartyIDType: "urn:oasis:names:tc:ebcore:partyid-type:iso3166-1",
			Role:        "BACKEND",
			RoleType:    RoleTypeResponder,
		},
		Service: Service{Name: "EPO", Type: "urn:e-codex:services"},
		Action:  "Form_A",
	}

	switched := original.SwitchDirection()

	t.Run("direction is reverted", func(t *testing.T) {
		assert.Equal(t, DirectionGatewayToBackend, switched.Direction)
	})

	t.Run("party identities swap while roles stay positional", func(t *testing.T) {
		assert.Equal(t, "DE", switched.FromParty.PartyID)
		assert.Equal(t, "GW", switched.FromParty.Role)
		assert.Equal(t, RoleTypeInitiator, switched.FromParty.RoleType)

		assert.Equal(t, "AT", switched.ToParty.PartyID)
		assert.Equal(t, "BACKEND", switched.ToParty.Role)
		assert.Equal(t, RoleTypeResponder, switched.ToParty.RoleType)
	})

	t.Run("sender and recipient swap", func(t *testing.T) {
		assert.Equal(t, "recipient@example.at", switched.OriginalSender)
		assert.Equal(t, "sender@example.eu", switched.FinalRecipient)
	})

	t.Run("conversation attributes are preserved", func(t *testing.T) {
		assert.Equal(t, "conv-42", switched.ConversationID)
		assert.Equal(t, "EPO", switched.Service.Name)
		assert.Equal(t, "Form_A", switched.Action)
	})

	t.Run("switching twice restores the original", func(t *testing.T) {
		assert.Equal(t, original, switched.SwitchDirection())
	})
}

func TestDirectionRevert(t *testing.T) {
	assert.Equal(t, DirectionBackendToGateway, DirectionGatewayToBackend.Revert())
	assert.Equal(t, DirectionGatewayToBackend, DirectionGatewayToBackend.Revert().Revert())
}

func TestParseMessageDirection(t *testing.T) {
	d, err := ParseMessageDirection("GATEWAY_TO_BACKEND")
	assert.NoError(t, err)
	assert.Equal(t, DirectionGatewayToBackend, d)

	_, err = ParseMessageDirection("BACKEND_TO_BACKEND")
	assert.Error(t, err)
}
