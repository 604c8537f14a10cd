package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/beanbase/pkg/types"
)

func TestOpen(t *testing.T) {
	store, err := Open(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}, nil)
	require.NoError(t, err)
	defer store.Close()

	var s types.Store = store
	id, err := s.Store(context.Background(), s.Dispense("book"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
}

func TestOpen_InvalidConfig(t *testing.T) {
	_, err := Open(types.Config{}, nil)
	assert.ErrorIs(t, err, types.ErrBackendEmpty)
}
