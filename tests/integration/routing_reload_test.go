package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courier/internal/config"
	"courier/internal/management"
	"courier/internal/routing"
	"courier/pkg/models"
)

// The management API and the connector share the routing tables: rules
// written through the management repository must be visible to the
// connector-side routing service after a reload.
func TestRoutingService_ReloadFromDatabase(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)

	ctx := context.Background()
	mgmtRepo := management.NewRepository(infra.PostgresDB)

	require.NoError(t, mgmtRepo.CreateRoutingRule(ctx,
		createTestRoutingRule("domain-a", "equals(ServiceName, 'EPO')", "backend_epo", 10, true)))
	require.NoError(t, mgmtRepo.CreateRoutingRule(ctx,
		createTestRoutingRule("domain-a", "equals(ServiceName, 'EPO')", "backend_disabled", 1, false)))
	_, err := mgmtRepo.UpsertDefaultLink(ctx, "domain-a", "backend_default")
	require.NoError(t, err)

	svc, err := routing.NewService(routing.NewRepository(infra.PostgresDB), config.RoutingConfig{
		Reload: config.ReloadConfig{IntervalSeconds: 60},
	}, createTestLogger())
	require.NoError(t, err)

	require.NoError(t, svc.ReloadRules(ctx, true))

	details := createTestMessageDetails("domain-a", "backend-msg-1")
	info, err := svc.ResolveLink(ctx, "domain-a", details)
	require.NoError(t, err)
	assert.Equal(t, "backend_epo", info.LinkName)

	// Disabled rules never load, even at a better priority.
	assert.NotEqual(t, "backend_disabled", info.LinkName)

	// Unmatched messages fall back to the domain default link from the
	// database.
	other := details
	other.Service = models.Service{Name: "Unknown"}
	info, err = svc.ResolveLink(ctx, "domain-a", other)
	require.NoError(t, err)
	assert.Equal(t, "backend_default", info.LinkName)
	assert.Empty(t, info.RuleID)
}

func TestRoutingService_ReloadPicksUpChanges(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)

	ctx := context.Background()
	mgmtRepo := management.NewRepository(infra.PostgresDB)

	svc, err := routing.NewService(routing.NewRepository(infra.PostgresDB), config.RoutingConfig{
		Reload: config.ReloadConfig{IntervalSeconds: 60},
	}, createTestLogger())
	require.NoError(t, err)
	require.NoError(t, svc.ReloadRules(ctx, true))

	details := createTestMessageDetails("domain-a", "backend-msg-1")
	_, err = svc.ResolveLink(ctx, "domain-a", details)
	require.ErrorIs(t, err, routing.ErrNoLink)

	rule := createTestRoutingRule("domain-a", "startswith(Action, 'Form_')", "backend_forms", 10, true)
	require.NoError(t, mgmtRepo.CreateRoutingRule(ctx, rule))

	require.NoError(t, svc.ReloadRules(ctx, true))

	info, err := svc.ResolveLink(ctx, "domain-a", details)
	require.NoError(t, err)
	assert.Equal(t, "backend_forms", info.LinkName)
	assert.Equal(t, rule.ID, info.RuleID)

	require.NoError(t, mgmtRepo.DeleteRoutingRule(ctx, "domain-a", rule.ID))
	require.NoError(t, svc.ReloadRules(ctx, true))

	_, err = svc.ResolveLink(ctx, "domain-a", details)
	require.ErrorIs(t, err, routing.ErrNoLink)
}

func TestRoutingService_InvalidClauseInDatabaseIsSkipped(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)

	ctx := context.Background()

	// A clause that never passed validation can still end up in the table;
	// the reload must skip it instead of poisoning the whole rule set.
	_, err := infra.PostgresDB.ExecContext(ctx, `
		INSERT INTO routing_rules (id, domain_id, description, match_clause, link_name, priority, enabled, created_at, updated_at)
		VALUES ('broken-rule', 'domain-a', '', 'equals(ServiceName', 'backend_broken', 1, true, NOW(), NOW())
	`)
	require.NoError(t, err)

	mgmtRepo := management.NewRepository(infra.PostgresDB)
	require.NoError(t, mgmtRepo.CreateRoutingRule(ctx,
		createTestRoutingRule("domain-a", "equals(ServiceName, 'EPO')", "backend_epo", 10, true)))

	svc, err := routing.NewService(routing.NewRepository(infra.PostgresDB), config.RoutingConfig{
		Reload: config.ReloadConfig{IntervalSeconds: 60},
	}, createTestLogger())
	require.NoError(t, err)
	require.NoError(t, svc.ReloadRules(ctx, true))

	info, err := svc.ResolveLink(ctx, "domain-a", createTestMessageDetails("domain-a", "backend-msg-1"))
	require.NoError(t, err)
	assert.Equal(t, "backend_epo", info.LinkName)
}
