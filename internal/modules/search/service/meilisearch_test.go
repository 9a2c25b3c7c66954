package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	policy := bluemonday.StrictPolicy()

	got := CleanText(policy, "<p>Hello</p><p>world &amp; <b>friends</b></p><script>x()</script>")
	assert.Equal(t, "Hello world & friends", got)

	assert.Equal(t, "a b", CleanText(policy, "a<br>b"))
	assert.Empty(t, CleanText(policy, "   "))
}

func TestHitIDs(t *testing.T) {
	first, second := uuid.New(), uuid.New()
	hits := []map[string]any{
		{"id": first.String()},
		{"id": "not-a-uuid"},
		{"id": second.String(), "title": "ignored"},
	}

	ids, err := hitIDs(hits)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{first, second}, ids)

	ids, err = hitIDs(nil)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
