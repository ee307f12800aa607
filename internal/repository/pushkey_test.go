package repository

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPushKeysSortByCreation(t *testing.T) {
	at := time.UnixMilli(1_700_000_000_000)

	generated := make([]string, 0, 100)
	for i := 0; i < 100; i++ {
		key, err := NewPushKey(at)
		require.NoError(t, err)
		require.Len(t, key, 26)
		generated = append(generated, key)
	}

	later, err := NewPushKey(at.Add(time.Millisecond))
	require.NoError(t, err)
	generated = append(generated, later)

	require.True(t, sort.StringsAreSorted(generated), "keys minted in order must sort in order")
}
