package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/beanbase/internal/memory"
	"github.com/mesh-intelligence/beanbase/internal/relation"
	"github.com/mesh-intelligence/beanbase/pkg/types"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry(relation.New(memory.New(nil), nil))

	posts, err := r.Register(Definition{
		Type:      "post",
		Relations: types.Filter{{Type: "tag", Kind: types.HaveMany}},
	})
	require.NoError(t, err)

	got, err := r.Model("post")
	require.NoError(t, err)
	assert.Same(t, posts, got)

	_, err = r.Register(Definition{Type: "post"})
	assert.ErrorIs(t, err, types.ErrInvalidArgument)

	bare, err := r.Model("tag")
	require.NoError(t, err)
	assert.Empty(t, bare.Definition().Relations)

	again, err := r.Model("tag")
	require.NoError(t, err)
	assert.Same(t, bare, again)

	assert.Equal(t, []string{"post", "tag"}, r.Types())

	_, err = r.Model("not a type")
	assert.ErrorIs(t, err, types.ErrInvalidArgument)
}
