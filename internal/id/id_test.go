package id_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fleettools/fleetcore/internal/id"
)

func TestNewRoundTrips(t *testing.T) {
	raw := id.New(id.Callsign)
	prefix, suffix, ok := id.Parse(raw)
	require.True(t, ok)
	require.Equal(t, id.Callsign, prefix)
	require.Len(t, suffix, 21)
	require.True(t, id.HasPrefix(raw, id.Callsign))
	require.False(t, id.HasPrefix(raw, id.Sortie))
}

func TestNewIsUnique(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		raw := id.New(id.Sortie)
		_, exists := seen[raw]
		require.False(t, exists, "collision at iteration %d", i)
		seen[raw] = struct{}{}
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	cases := []string{"", "no-separator-missing", "-emptyprefix", "sortie-", "bogus-abc123"}
	for _, c := range cases {
		_, _, ok := id.Parse(c)
		require.False(t, ok, "expected %q to be invalid", c)
	}
}

func TestValid(t *testing.T) {
	require.True(t, id.Valid(id.New(id.Mission)))
	require.False(t, id.Valid("mission_missing_dash"))
}

func TestNewPanicsOnUnknownPrefix(t *testing.T) {
	require.Panics(t, func() {
		id.New(id.Prefix("unknown"))
	})
}

func TestAlphabetIsURLSafe(t *testing.T) {
	raw := id.New(id.Event)
	_, suffix, ok := id.Parse(raw)
	require.True(t, ok)
	require.False(t, strings.ContainsAny(suffix, "+/="))
}
