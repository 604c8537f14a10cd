package relation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/beanbase/internal/memory"
	"github.com/mesh-intelligence/beanbase/internal/sqlite"
	"github.com/mesh-intelligence/beanbase/pkg/types"
)

// stores returns one fresh store per backend, keyed by backend name.
func stores(t *testing.T) map[string]types.Store {
	t.Helper()
	lite := sqlite.NewBackend(nil)
	require.NoError(t, lite.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))
	t.Cleanup(func() { lite.Detach() })
	return map[string]types.Store{
		types.BackendMemory: memory.New(nil),
		types.BackendSQLite: lite,
	}
}

func put(t *testing.T, s types.Store, beanType string, fields map[string]any) *types.Bean {
	t.Helper()
	b := s.Dispense(beanType).Import(fields)
	_, err := s.Store(context.Background(), b)
	require.NoError(t, err)
	return b
}

func reload(t *testing.T, s types.Store, b *types.Bean) *types.Bean {
	t.Helper()
	got, err := s.Load(context.Background(), b.Type(), b.ID())
	require.NoError(t, err)
	return got
}

type inner = types.Store

// spyStore counts writes and can fail Store for one bean type.
type spyStore struct {
	inner
	stores   int
	links    int
	failType string
}

func (s *spyStore) Store(ctx context.Context, b *types.Bean) (int64, error) {
	s.stores++
	if b.Type() == s.failType {
		return 0, errStoreFailed
	}
	return s.inner.Store(ctx, b)
}

func (s *spyStore) Link(ctx context.Context, linkType string, a, b *types.Bean) error {
	s.links++
	return s.inner.Link(ctx, linkType, a, b)
}

type storeError string

func (e storeError) Error() string { return string(e) }

const errStoreFailed = storeError("store failed")
