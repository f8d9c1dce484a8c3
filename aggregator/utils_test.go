package aggregator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChunkBounds_ExactMultiple(t *testing.T) {
	t.Parallel()
	require.Equal(t, [][2]int{{0, 2}, {2, 4}}, ChunkBounds(4, 2))
}

func TestChunkBounds_Remainder(t *testing.T) {
	t.Parallel()
	require.Equal(t, [][2]int{{0, 3}, {3, 6}, {6, 7}}, ChunkBounds(7, 3))
}

func TestChunkBounds_EmptyInput(t *testing.T) {
	t.Parallel()
	require.Nil(t, ChunkBounds(0, 3))
}

func TestChunkBounds_NonPositiveSizeShouldUseSingleChunk(t *testing.T) {
	t.Parallel()
	require.Equal(t, [][2]int{{0, 5}}, ChunkBounds(5, 0))
}
