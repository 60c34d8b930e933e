package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courier/internal/evidence"
	"courier/pkg/migrations"
	"courier/pkg/models"
)

func TestEvidenceArchive_StoreAndFind(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, true, false)

	ctx := context.Background()
	require.NoError(t, migrations.EnsureMongoCollection(ctx, infra.MongoDB))

	archive := evidence.NewArchive(infra.MongoDB)
	messageID := uuid.New().String()

	docs := []evidence.ArchivedEvidence{
		{
			ConnectorMessageID: messageID,
			DomainID:           "domain-a",
			EvidenceType:       models.EvidenceSubmissionAcceptance,
			Evidence:           []byte("<evidence>accept</evidence>"),
			ArchivedAt:         time.Now().Add(-2 * time.Minute).UTC(),
		},
		{
			ConnectorMessageID: messageID,
			DomainID:           "domain-a",
			EvidenceType:       models.EvidenceNonDelivery,
			Evidence:           []byte("<evidence>non-delivery</evidence>"),
			Generated:          true,
			ArchivedAt:         time.Now().Add(-time.Minute).UTC(),
		},
		{
			ConnectorMessageID: uuid.New().String(),
			DomainID:           "domain-a",
			EvidenceType:       models.EvidenceDelivery,
		},
	}
	for _, doc := range docs {
		require.NoError(t, archive.Store(ctx, doc))
	}

	found, err := archive.FindByConnectorID(ctx, messageID)
	require.NoError(t, err)
	require.Len(t, found, 2)

	// Sorted by archival time.
	assert.Equal(t, models.EvidenceSubmissionAcceptance, found[0].EvidenceType)
	assert.Equal(t, models.EvidenceNonDelivery, found[1].EvidenceType)
	assert.True(t, found[1].Generated)
	assert.Equal(t, []byte("<evidence>non-delivery</evidence>"), found[1].Evidence)
}

func TestEvidenceArchive_FindUnknownMessage(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, true, false)

	archive := evidence.NewArchive(infra.MongoDB)

	found, err := archive.FindByConnectorID(context.Background(), uuid.New().String())
	require.NoError(t, err)
	assert.Empty(t, found)
}
