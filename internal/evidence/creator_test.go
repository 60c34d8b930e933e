package evidence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courier/pkg/models"
)

func TestCreatorNegativeEvidenceCarriesReason(t *testing.T) {
	creator := NewCreator(stubBuilder{})
	msg := &StoredMessage{ConnectorMessageID: "msg-1", DomainID: "domain-a"}

	conf, err := creator.CreateEvidence(context.Background(), models.EvidenceNonDelivery, msg, models.ReasonDeliveryTimeout)
	require.NoError(t, err)
	assert.Equal(t, models.EvidenceNonDelivery, conf.Type)
	assert.Equal(t, models.ReasonDeliveryTimeout, conf.Reason)
	assert.NotEmpty(t, conf.Evidence)
}

func TestCreatorPositiveEvidenceHasNoReason(t *testing.T) {
	creator := NewCreator(stubBuilder{})
	msg := &StoredMessage{ConnectorMessageID: "msg-2", DomainID: "domain-a"}

	conf, err := creator.CreateSubmissionAcceptance(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, models.EvidenceSubmissionAcceptance, conf.Type)
	assert.Empty(t, conf.Reason)
}

func TestCreatorRejectsBadInput(t *testing.T) {
	creator := NewCreator(stubBuilder{})
	msg := &StoredMessage{ConnectorMessageID: "msg-3", DomainID: "domain-a"}

	_, err := creator.CreateEvidence(context.Background(), "BOGUS", msg, "")
	assert.Error(t, err)

	_, err = creator.CreateEvidence(context.Background(), models.EvidenceNonDelivery, msg, "")
	assert.Error(t, err, "negative evidence needs a rejection reason")
}
