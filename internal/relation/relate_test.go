package relation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/beanbase/internal/memory"
	"github.com/mesh-intelligence/beanbase/pkg/types"
)

func postFilter() types.Filter {
	return types.Filter{
		{Type: "super", Kind: types.HasOne},
		{Type: "comment", Kind: types.HasMany},
		{Type: "user", Kind: types.BelongsTo},
		{Type: "tag", Kind: types.HaveMany},
	}
}

func TestRelate_PostScenario(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			e := New(s, nil)

			sup := put(t, s, "super", nil)
			comment := put(t, s, "comment", nil)
			user := put(t, s, "user", nil)
			tag := put(t, s, "tag", nil)
			post := put(t, s, "post", map[string]any{"title": "hello"})

			data := types.RelationMap{
				"super_id":   sup.ID(),
				"comment_id": comment.ID(),
				"user_id":    user.ID(),
				"tag_id":     tag.ID(),
			}
			require.NoError(t, e.Relate(ctx, post, data, postFilter()))

			count := func(relType string, kind types.Kind) int {
				n, err := e.RelatedCount(ctx, reload(t, s, post), relType, kind)
				require.NoError(t, err)
				return n
			}
			assert.Equal(t, 1, count("super", types.HasOne))
			assert.Equal(t, 1, count("comment", types.HasMany))
			assert.Equal(t, 1, count("user", types.BelongsTo))
			assert.Equal(t, 1, count("tag", types.HaveMany))

			// A second call trips on the first rule and touches nothing else.
			freshTag := put(t, s, "tag", nil)
			again := types.RelationMap{
				"super_id": sup.ID(),
				"tag_id":   freshTag.ID(),
			}
			err := e.Relate(ctx, post, again, postFilter())
			assert.ErrorIs(t, err, types.ErrRelationConflict)
			assert.Equal(t, 1, count("tag", types.HaveMany))
			assert.Equal(t, 1, count("super", types.HasOne))
		})
	}
}

func TestRelate_SequenceKeepsOrder(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			e := New(s, nil)
			c1 := put(t, s, "comment", nil)
			c2 := put(t, s, "comment", nil)
			post := s.Dispense("post")

			data := types.RelationMap{"comment_id": []any{c1.ID(), c2.ID()}}
			require.NoError(t, e.Relate(ctx, post, data, types.Filter{{Type: "comment", Kind: types.HasMany}}))

			children, err := e.Related(ctx, post, "comment", types.HasMany)
			require.NoError(t, err)
			require.Len(t, children, 2)
			assert.Equal(t, c1.ID(), children[0].ID())
			assert.Equal(t, c2.ID(), children[1].ID())
		})
	}
}

func TestRelate_SharedSequenceKeepsSuppliedOrder(t *testing.T) {
	ctx := context.Background()
	s := memory.New(nil)
	e := New(s, nil)
	t1 := put(t, s, "tag", nil)
	t2 := put(t, s, "tag", nil)
	post := put(t, s, "post", nil)

	data := types.RelationMap{"tag_id": []any{t2.ID(), "1"}}
	require.NoError(t, e.Relate(ctx, post, data, types.Filter{{Type: "tag", Kind: types.HaveMany}}))

	tags, err := e.Related(ctx, post, "tag", types.HaveMany)
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, t2.ID(), tags[0].ID())
	assert.Equal(t, t1.ID(), tags[1].ID())
}

func TestRelate_MissingKeysIsNoop(t *testing.T) {
	ctx := context.Background()
	base := memory.New(nil)
	post := put(t, base, "post", map[string]any{"title": "hello"})
	spy := &spyStore{inner: base}
	e := New(spy, nil)

	err := e.Relate(ctx, post, types.RelationMap{"unrelated": 1, "tag_id": nil}, postFilter())
	require.NoError(t, err)
	assert.Zero(t, spy.stores)
	assert.Zero(t, spy.links)
	assert.Equal(t, []string{"title"}, post.FieldNames())
	assert.False(t, base.IsDirty(post))
}

func TestRelate_LoadFailureStopsButKeepsEarlierWork(t *testing.T) {
	ctx := context.Background()
	s := memory.New(nil)
	e := New(s, nil)
	c1 := put(t, s, "comment", nil)
	c3 := put(t, s, "comment", nil)
	post := put(t, s, "post", nil)

	data := types.RelationMap{"comment_id": []any{c1.ID(), 77, c3.ID()}}
	err := e.Relate(ctx, post, data, types.Filter{{Type: "comment", Kind: types.HasMany}})
	assert.ErrorIs(t, err, types.ErrNotFound)

	children, err := e.Related(ctx, post, "comment", types.HasMany)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, c1.ID(), children[0].ID())
}

func TestRelate_InvalidIDs(t *testing.T) {
	ctx := context.Background()
	s := memory.New(nil)
	e := New(s, nil)
	post := put(t, s, "post", nil)

	for _, v := range []any{"abc", map[string]any{"x": 1}, []any{1, true}, 0, 1.5} {
		err := e.Relate(ctx, post, types.RelationMap{"tag_id": v}, types.Filter{{Type: "tag", Kind: types.HaveMany}})
		assert.ErrorIs(t, err, types.ErrInvalidArgument, "value %v", v)
	}
}

func TestRelate_SelfKeyUsesOwnType(t *testing.T) {
	ctx := context.Background()
	s := memory.New(nil)
	e := New(s, nil)
	parent := put(t, s, "category", nil)
	child := put(t, s, "category", nil)

	filter := types.Filter{{Type: "category", Kind: types.BelongsToSelf}}
	require.NoError(t, e.Relate(ctx, child, types.RelationMap{"category_id": parent.ID()}, filter))

	v, _ := reload(t, s, child).Get(types.SelfRefField)
	assert.EqualValues(t, parent.ID(), v)
}

func TestCompile(t *testing.T) {
	e := New(memory.New(nil), nil)

	t.Run("resolves slots", func(t *testing.T) {
		plan, err := e.Compile("post", postFilter())
		require.NoError(t, err)
		require.NoError(t, plan.Check())
		assert.Equal(t, postFilter(), plan.Filter())

		slot, ok := plan.Slot("comment")
		require.True(t, ok)
		assert.Equal(t, Slot{Kind: types.HasMany, Field: "post_id", OnRelated: true}, slot)

		slot, ok = plan.Slot("user")
		require.True(t, ok)
		assert.Equal(t, Slot{Kind: types.BelongsTo, Field: "user_id"}, slot)

		slot, ok = plan.Slot("tag")
		require.True(t, ok)
		assert.Equal(t, types.LinkShared, slot.LinkType)
		assert.True(t, slot.Join())
	})

	t.Run("rejects duplicate types", func(t *testing.T) {
		_, err := e.Compile("post", types.Filter{
			{Type: "tag", Kind: types.HaveMany},
			{Type: "tag", Kind: types.HasMany},
		})
		assert.ErrorIs(t, err, types.ErrInvalidArgument)
	})

	t.Run("defers slot errors to use", func(t *testing.T) {
		plan, err := e.Compile("post", types.Filter{
			{Type: "post", Kind: types.HaveManySelf},
			{Type: "user", Kind: types.HasOneSelf},
			{Type: "tag", Kind: types.Kind(99)},
		})
		require.NoError(t, err)
		assert.ErrorIs(t, plan.Check(), types.ErrUnimplemented)
		assert.ErrorIs(t, plan.Check(), types.ErrTypeMismatch)
		assert.ErrorIs(t, plan.Check(), types.ErrUnknownRelationKind)

		ctx := context.Background()
		post := types.NewBean("post")
		require.NoError(t, plan.Relate(ctx, post, types.RelationMap{}))
		assert.ErrorIs(t, plan.Relate(ctx, post, types.RelationMap{"tag_id": 1}), types.ErrUnknownRelationKind)
		assert.ErrorIs(t, plan.Relate(ctx, post, types.RelationMap{"post_id": 1}), types.ErrUnimplemented)
	})

	t.Run("rejects other owner types", func(t *testing.T) {
		plan, err := e.Compile("post", postFilter())
		require.NoError(t, err)
		err = plan.Relate(context.Background(), types.NewBean("user"), types.RelationMap{})
		assert.ErrorIs(t, err, types.ErrTypeMismatch)
	})
}
