package integration

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"courier/internal/config"
	"courier/internal/constants"
	"courier/internal/processing"
)

func TestIdempotencyGuard_FirstSeen(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, false, true)

	guard := processing.NewIdempotencyGuard(
		processing.NewRedisCache(infra.RedisClient),
		config.IdempotencyConfig{TTLSeconds: 300, Fallback: constants.FallbackAllow},
		createTestLogger(),
	)

	ctx := context.Background()
	envelopeID := uuid.New().String()

	first, err := guard.FirstSeen(ctx, envelopeID)
	require.NoError(t, err)
	assert.True(t, first)

	first, err = guard.FirstSeen(ctx, envelopeID)
	require.NoError(t, err)
	assert.False(t, first)

	other, err := guard.FirstSeen(ctx, uuid.New().String())
	require.NoError(t, err)
	assert.True(t, other)
}

func TestIdempotencyGuard_FallbackAllowOnRedisError(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, false, true)

	guard := processing.NewIdempotencyGuard(
		processing.NewRedisCache(infra.RedisClient),
		config.IdempotencyConfig{TTLSeconds: 300, Fallback: constants.FallbackAllow},
		createTestLogger(),
	)

	require.NoError(t, infra.RedisClient.Close())

	first, err := guard.FirstSeen(context.Background(), uuid.New().String())
	require.NoError(t, err)
	assert.True(t, first)
}
