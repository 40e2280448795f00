package docstore

import (
	"context"
	"testing"

	"PrepBot/backend/go/internal/rag_service/rag/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryDocStore(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryDocStore()

	require.NoError(t, s.Add(ctx, []*schema.Document{
		{ID: "a", Text: "arrays"},
		{ID: "b", Text: "binary trees"},
	}))
	assert.Equal(t, 2, s.Len())

	got, err := s.Get(ctx, []string{"b", "missing"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "binary trees", got["b"].Text)

	require.NoError(t, s.Add(ctx, []*schema.Document{{ID: "a", Text: "arrays v2"}}))
	got, err = s.Get(ctx, []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, "arrays v2", got["a"].Text)
	assert.Equal(t, 2, s.Len())
}
