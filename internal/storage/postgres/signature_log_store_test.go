package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"twirvo-sync/internal/storage"
)

func TestSignatureLog_AppendAndList(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	log := NewSignatureLog(pool)
	ctx := context.Background()

	sigs := []string{"sig1", "sig2", "sig3"}
	for _, sig := range sigs {
		require.NoError(t, log.Append(ctx, sig))
	}

	out, err := log.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, sigs, out)
}

func TestSignatureLog_AppendDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	log := NewSignatureLog(pool)
	ctx := context.Background()

	require.NoError(t, log.Append(ctx, "sig1"))

	err := log.Append(ctx, "sig1")
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	out, err := log.List(ctx)
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestSignatureLog_AppendEmpty(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	log := NewSignatureLog(pool)

	err := log.Append(context.Background(), "")
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestSignatureLog_ListEmpty(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	log := NewSignatureLog(pool)

	out, err := log.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, out)
}
