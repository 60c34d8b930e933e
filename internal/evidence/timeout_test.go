package evidence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courier/internal/config"
	"courier/internal/logger"
	"courier/pkg/models"
)

type stubBuilder struct{}

func (stubBuilder) Build(_ context.Context, evidenceType models.EvidenceType, _ *StoredMessage, _ models.RejectionReason, _ string) ([]byte, error) {
	return []byte("<evidence type=\"" + string(evidenceType) + "\"/>"), nil
}

type recordingDispatcher struct {
	submitted []models.MessageConfirmation
	err       error
}

func (d *recordingDispatcher) SubmitGeneratedEvidence(_ context.Context, _ *StoredMessage, conf models.MessageConfirmation) error {
	if d.err != nil {
		return d.err
	}
	d.submitted = append(d.submitted, conf)
	return nil
}

func newTestScanner(store Store, dispatcher Dispatcher, cfg config.EvidenceConfig) *TimeoutScanner {
	log := logger.NopLogger()
	return NewTimeoutScanner(store, NewCreator(stubBuilder{}), NewLifecycle(store, log), dispatcher, cfg, log)
}

func timeoutConfig(t config.TimeoutConfig) config.EvidenceConfig {
	return config.EvidenceConfig{Timeouts: t}
}

func TestTimeoutScannerRelayTimeout(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	store := newFakeStore()
	dispatcher := &recordingDispatcher{}

	// Outbound message handed to the gateway two hours ago, no relay evidence.
	expired := storedBusinessMessage("expired", "domain-a", models.DirectionBackendToGateway, now.Add(-3*time.Hour))
	handover := now.Add(-2 * time.Hour)
	expired.DeliveredToGatewayAt = &handover
	require.NoError(t, store.Save(ctx, expired))

	// Same direction but handed over recently.
	fresh := storedBusinessMessage("fresh", "domain-a", models.DirectionBackendToGateway, now)
	require.NoError(t, store.Save(ctx, fresh))

	// Inbound messages carry no relay obligation.
	inbound := storedBusinessMessage("inbound", "domain-a", models.DirectionGatewayToBackend, now.Add(-3*time.Hour))
	require.NoError(t, store.Save(ctx, inbound))

	scanner := newTestScanner(store, dispatcher, timeoutConfig(config.TimeoutConfig{RelayTimeout: time.Hour}))
	scanner.ScanOnce(ctx, now)

	require.Len(t, dispatcher.submitted, 1)
	assert.Equal(t, models.EvidenceRelayREMMDFailure, dispatcher.submitted[0].Type)

	stored := store.get("expired")
	assert.True(t, stored.IsRejected())
	require.Len(t, stored.Confirmations, 1)
	assert.Equal(t, models.EvidenceRelayREMMDFailure, stored.Confirmations[0].Type)

	assert.False(t, store.get("fresh").IsRejected())
	assert.False(t, store.get("inbound").IsRejected())
}

func TestTimeoutScannerDeliveryTimeout(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	store := newFakeStore()
	dispatcher := &recordingDispatcher{}

	msg := storedBusinessMessage("pending", "domain-a", models.DirectionGatewayToBackend, now.Add(-2*time.Hour))
	handover := now.Add(-90 * time.Minute)
	msg.DeliveredToBackendAt = &handover
	msg.Confirmations = []models.MessageConfirmation{{Type: models.EvidenceRelayREMMDAcceptance}}
	require.NoError(t, store.Save(ctx, msg))

	scanner := newTestScanner(store, dispatcher, timeoutConfig(config.TimeoutConfig{DeliveryTimeout: time.Hour}))
	scanner.ScanOnce(ctx, now)

	require.Len(t, dispatcher.submitted, 1)
	assert.Equal(t, models.EvidenceNonDelivery, dispatcher.submitted[0].Type)
	assert.True(t, store.get("pending").IsRejected())
}

func TestTimeoutScannerRetrievalTimeout(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	store := newFakeStore()
	dispatcher := &recordingDispatcher{}

	delivered := storedBusinessMessage("delivered", "domain-a", models.DirectionBackendToGateway, now.Add(-3*time.Hour))
	delivered.Confirmations = []models.MessageConfirmation{{Type: models.EvidenceDelivery}}
	confirmedAt := now.Add(-3 * time.Hour)
	delivered.ConfirmedAt = &confirmedAt
	require.NoError(t, store.Save(ctx, delivered))

	// Not yet delivered, so no retrieval deadline applies.
	undelivered := storedBusinessMessage("undelivered", "domain-a", models.DirectionBackendToGateway, now.Add(-3*time.Hour))
	require.NoError(t, store.Save(ctx, undelivered))

	scanner := newTestScanner(store, dispatcher, timeoutConfig(config.TimeoutConfig{RetrievalTimeout: time.Hour}))
	scanner.ScanOnce(ctx, now)

	require.Len(t, dispatcher.submitted, 1)
	assert.Equal(t, models.EvidenceNonRetrieval, dispatcher.submitted[0].Type)
	assert.True(t, store.get("delivered").IsRejected())
	assert.False(t, store.get("undelivered").IsRejected())
}

func TestTimeoutScannerIdempotentAcrossRuns(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	store := newFakeStore()
	dispatcher := &recordingDispatcher{}

	msg := storedBusinessMessage("expired", "domain-a", models.DirectionBackendToGateway, now.Add(-2*time.Hour))
	require.NoError(t, store.Save(ctx, msg))

	scanner := newTestScanner(store, dispatcher, timeoutConfig(config.TimeoutConfig{RelayTimeout: time.Hour}))
	scanner.ScanOnce(ctx, now)
	scanner.ScanOnce(ctx, now.Add(time.Minute))

	// The second sweep must not produce another failure evidence: the message
	// already carries one and is rejected.
	assert.Len(t, dispatcher.submitted, 1)
	assert.Len(t, store.get("expired").Confirmations, 1)
}

func TestTimeoutScannerPerDomainOverride(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	store := newFakeStore()
	dispatcher := &recordingDispatcher{}

	slow := storedBusinessMessage("slow-domain", "domain-slow", models.DirectionBackendToGateway, now.Add(-2*time.Hour))
	require.NoError(t, store.Save(ctx, slow))
	normal := storedBusinessMessage("normal-domain", "domain-a", models.DirectionBackendToGateway, now.Add(-2*time.Hour))
	require.NoError(t, store.Save(ctx, normal))

	cfg := config.EvidenceConfig{
		Timeouts: config.TimeoutConfig{RelayTimeout: time.Hour},
		Domains: map[string]config.TimeoutConfig{
			"domain-slow": {RelayTimeout: 24 * time.Hour},
		},
	}
	scanner := newTestScanner(store, dispatcher, cfg)
	scanner.ScanOnce(ctx, now)

	require.Len(t, dispatcher.submitted, 1)
	assert.False(t, store.get("slow-domain").IsRejected())
	assert.True(t, store.get("normal-domain").IsRejected())
}

func TestTimeoutScannerDisabledTimeout(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	store := newFakeStore()
	dispatcher := &recordingDispatcher{}

	msg := storedBusinessMessage("old", "domain-a", models.DirectionBackendToGateway, now.Add(-100*time.Hour))
	require.NoError(t, store.Save(ctx, msg))

	scanner := newTestScanner(store, dispatcher, timeoutConfig(config.TimeoutConfig{}))
	scanner.ScanOnce(ctx, now)

	assert.Empty(t, dispatcher.submitted)
	assert.False(t, store.get("old").IsRejected())
}

func TestTimeoutScannerDispatchFailureKeepsScanning(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	store := newFakeStore()
	dispatcher := &recordingDispatcher{err: errors.New("link down")}

	first := storedBusinessMessage("first", "domain-a", models.DirectionBackendToGateway, now.Add(-2*time.Hour))
	require.NoError(t, store.Save(ctx, first))
	second := storedBusinessMessage("second", "domain-a", models.DirectionBackendToGateway, now.Add(-2*time.Hour))
	require.NoError(t, store.Save(ctx, second))

	scanner := newTestScanner(store, dispatcher, timeoutConfig(config.TimeoutConfig{RelayTimeout: time.Hour}))
	scanner.ScanOnce(ctx, now)

	// Both messages were expired in the store even though dispatch failed.
	assert.True(t, store.get("first").IsRejected())
	assert.True(t, store.get("second").IsRejected())
	assert.Empty(t, dispatcher.submitted)
}
