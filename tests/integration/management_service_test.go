package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courier/internal/evidence"
	"courier/internal/management"
	"courier/internal/processing"
	pkgerrors "courier/pkg/errors"
	"courier/pkg/models"
)

func newManagementService(t *testing.T, infra *TestInfra) management.Service {
	t.Helper()

	var archive evidence.Archive
	if infra.MongoDB != nil {
		archive = evidence.NewArchive(infra.MongoDB)
	}

	return management.NewService(
		management.NewRepository(infra.PostgresDB),
		management.WithVersioning(management.NewVersioningRepository(infra.PostgresDB)),
		management.WithMessageLookups(
			evidence.NewStore(infra.PostgresDB),
			archive,
			processing.NewErrorStore(infra.PostgresDB),
		),
	)
}

func TestManagementService_RuleLifecycleWithVersioning(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)

	svc := newManagementService(t, infra)
	ctx := context.Background()

	rule, err := svc.CreateRoutingRule(ctx, "domain-a", management.CreateRoutingRuleRequest{
		Description: "EPO traffic",
		MatchClause: "equals(ServiceName, 'EPO')",
		LinkName:    "backend_epo",
		Priority:    10,
	})
	require.NoError(t, err)
	require.NotEmpty(t, rule.ID)
	assert.True(t, rule.Enabled)

	newLink := "backend_epo_v2"
	updated, err := svc.UpdateRoutingRule(ctx, "domain-a", rule.ID, management.UpdateRoutingRuleRequest{
		LinkName: &newLink,
	})
	require.NoError(t, err)
	assert.Equal(t, newLink, updated.LinkName)

	versions, err := svc.GetRuleVersions(ctx, rule.ID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, 2, versions[0].Version)
	assert.Equal(t, 1, versions[1].Version)

	logs, err := svc.GetAuditLogs(ctx, &rule.ID, "routing", 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)

	require.NoError(t, svc.DeleteRoutingRule(ctx, "domain-a", rule.ID))

	logs, err = svc.GetAuditLogs(ctx, &rule.ID, "routing", 10)
	require.NoError(t, err)
	assert.Len(t, logs, 3)

	_, err = svc.GetRoutingRule(ctx, "domain-a", rule.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestManagementService_RejectsBrokenClause(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)

	svc := newManagementService(t, infra)

	_, err := svc.CreateRoutingRule(context.Background(), "domain-a", management.CreateRoutingRuleRequest{
		MatchClause: "equals(ServiceName, 'EPO'",
		LinkName:    "backend_epo",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))

	rules, err := svc.ListRoutingRules(context.Background(), "domain-a")
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestManagementService_MessageStatus(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, true, false)

	svc := newManagementService(t, infra)
	ctx := context.Background()

	store := evidence.NewStore(infra.PostgresDB)
	archive := evidence.NewArchive(infra.MongoDB)
	errStore := processing.NewErrorStore(infra.PostgresDB)

	msg := &evidence.StoredMessage{
		ConnectorMessageID: uuid.New().String(),
		DomainID:           "domain-a",
		Details:            createTestMessageDetails("domain-a", uuid.New().String()),
	}
	require.NoError(t, store.Save(ctx, msg))
	require.NoError(t, store.AppendConfirmation(ctx, msg.ConnectorMessageID, models.MessageConfirmation{
		Type:     models.EvidenceSubmissionAcceptance,
		Evidence: []byte("<evidence/>"),
	}))
	require.NoError(t, archive.Store(ctx, evidence.ArchivedEvidence{
		ConnectorMessageID: msg.ConnectorMessageID,
		DomainID:           "domain-a",
		EvidenceType:       models.EvidenceSubmissionAcceptance,
		Evidence:           []byte("<evidence/>"),
		Generated:          true,
	}))
	require.NoError(t, errStore.Save(ctx, processing.ProcessingError{
		DomainID:           "domain-a",
		ConnectorMessageID: msg.ConnectorMessageID,
		EnvelopeID:         uuid.New().String(),
		Topic:              "gateway_inbound",
		ErrorCode:          models.ErrCodeUnspecific,
		ErrorText:          "transient dispatch failure",
		OccurredAt:         time.Now().UTC(),
	}))

	status, err := svc.GetMessageStatus(ctx, "domain-a", msg.ConnectorMessageID)
	require.NoError(t, err)
	assert.Equal(t, msg.ConnectorMessageID, status.ConnectorMessageID)
	assert.Equal(t, "BACKEND_TO_GATEWAY", status.Direction)
	assert.False(t, status.Confirmed)
	require.Len(t, status.Evidences, 1)
	assert.Equal(t, models.EvidenceSubmissionAcceptance, status.Evidences[0].Type)
	assert.True(t, status.Evidences[0].Generated)
	require.Len(t, status.ProcessingErrors, 1)
	assert.Equal(t, "transient dispatch failure", status.ProcessingErrors[0].ErrorText)

	evidences, err := svc.GetMessageEvidences(ctx, "domain-a", msg.ConnectorMessageID)
	require.NoError(t, err)
	require.Len(t, evidences, 1)
	assert.Equal(t, []byte("<evidence/>"), evidences[0].Evidence)

	_, err = svc.GetMessageStatus(ctx, "domain-a", uuid.New().String())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}
