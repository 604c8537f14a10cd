package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindWireNames(t *testing.T) {
	tests := []struct {
		kind Kind
		name string
		self bool
	}{
		{HasOne, "has_one", false},
		{HasMany, "has_many", false},
		{HaveMany, "have_many", false},
		{BelongsTo, "belongs_to", false},
		{HasOneSelf, "has_one_self", true},
		{HasManySelf, "has_many_self", true},
		{HaveManySelf, "have_many_self", true},
		{BelongsToSelf, "belongs_to_self", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.kind.Valid())
			assert.Equal(t, tt.name, tt.kind.String())
			assert.Equal(t, tt.self, tt.kind.SelfReferential())

			parsed, err := ParseKind(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, parsed)
		})
	}
}

func TestParseKindUnknown(t *testing.T) {
	_, err := ParseKind("simple_has_one")
	assert.True(t, errors.Is(err, ErrUnknownRelationKind))

	assert.False(t, Kind(42).Valid())
	assert.Equal(t, "kind(42)", Kind(42).String())

	_, err = Kind(-1).MarshalText()
	assert.True(t, errors.Is(err, ErrUnknownRelationKind))
}

func TestKindText(t *testing.T) {
	var k Kind
	require.NoError(t, k.UnmarshalText([]byte("belongs_to")))
	assert.Equal(t, BelongsTo, k)

	text, err := HaveMany.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "have_many", string(text))
}

func TestFilterValidate(t *testing.T) {
	assert.NoError(t, Filter{{Type: "user", Kind: BelongsTo}, {Type: "tag", Kind: HaveMany}}.Validate())
	assert.NoError(t, Filter(nil).Validate())

	err := Filter{{Type: "", Kind: HasOne}}.Validate()
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	err = Filter{{Type: "tag", Kind: HasOne}, {Type: "tag", Kind: HaveMany}}.Validate()
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestAsRelationMap(t *testing.T) {
	m, err := AsRelationMap(map[string]any{"user_id": 1})
	require.NoError(t, err)
	assert.Equal(t, RelationMap{"user_id": 1}, m)

	_, err = AsRelationMap([]any{1, 2})
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	_, err = AsRelationMap("user_id=1")
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestRelationKey(t *testing.T) {
	assert.Equal(t, "comment_id", RelationKey("comment"))
}
