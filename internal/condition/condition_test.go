package condition

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAll_CanonicalOrder(t *testing.T) {
	assert.Equal(t, []Condition{B0, B1, B2, B3}, All())

	// Returned slice is a copy; mutating it must not affect later calls.
	first := All()
	first[0] = "junk"
	assert.Equal(t, []Condition{B0, B1, B2, B3}, All())
}

func TestFlags_Mapping(t *testing.T) {
	tests := []struct {
		mode      Condition
		contracts bool
		retrieval bool
	}{
		{B0, false, false},
		{B1, true, false},
		{B2, false, true},
		{B3, true, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			f, err := tt.mode.Flags()
			require.NoError(t, err)
			assert.Equal(t, tt.contracts, f.ContractsOn)
			assert.Equal(t, tt.retrieval, f.RetrievalVerifierOn)
		})
	}
}

func TestFlags_UnknownMode(t *testing.T) {
	for _, bad := range []Condition{"", "B4", "b0", "baseline"} {
		_, err := bad.Flags()
		require.Error(t, err)

		var ue *UnknownModeError
		require.ErrorAs(t, err, &ue)
		assert.Equal(t, string(bad), ue.Mode)
		assert.True(t, IsUnknownMode(err))
	}
}

func TestIsUnknownMode_Wrapped(t *testing.T) {
	_, err := Parse("B9")
	require.Error(t, err)

	wrapped := fmt.Errorf("loading run: %w", err)
	assert.True(t, IsUnknownMode(wrapped))
	assert.False(t, IsUnknownMode(fmt.Errorf("unrelated")))
}

func TestParse(t *testing.T) {
	c, err := Parse("B2")
	require.NoError(t, err)
	assert.Equal(t, B2, c)
	assert.True(t, c.Valid())

	_, err = Parse("B5")
	require.Error(t, err)
}
