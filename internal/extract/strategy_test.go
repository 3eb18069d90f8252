package extract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseStrategyRoundTrip(t *testing.T) {
	t.Parallel()
	for _, name := range []string{"dom_only", "ai_text", "ai_vision"} {
		s, err := ParseStrategy(name)
		require.NoError(t, err)
		require.Equal(t, name, s.String())
	}
}

func TestParseStrategyRejectsUnknown(t *testing.T) {
	t.Parallel()
	_, err := ParseStrategy("ai_telepathy")
	require.Error(t, err)
}
