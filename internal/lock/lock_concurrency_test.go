package lock_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fleettools/fleetcore/internal/clock"
	"github.com/fleettools/fleetcore/internal/event"
	"github.com/fleettools/fleetcore/internal/lock"
)

// TestConcurrentAcquireLockAtMostOneSucceeds verifies spec §8 property
// 4: under N concurrent acquireLock calls against the same normalized
// path from distinct callsigns, exactly one succeeds and every other
// call observes a conflict.
func TestConcurrentAcquireLockAtMostOneSucceeds(t *testing.T) {
	m := newManager(t, clock.System{})
	ctx := context.Background()

	const n = 16
	results := make([]lockOutcome, n)

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			callsign := callsignFor(i)
			res, err := m.AcquireLock(ctx, "/p1", "src/x.ts", callsign, event.PurposeEdit, time.Minute, "")
			results[i] = lockOutcome{res: res, err: err}
		}(i)
	}
	wg.Wait()

	var succeeded, conflicted int
	for _, r := range results {
		require.NoError(t, r.err)
		switch {
		case r.res.Lock != nil:
			succeeded++
		case r.res.Conflict != nil:
			conflicted++
		default:
			t.Fatalf("acquire returned neither a lock nor a conflict")
		}
	}

	require.Equal(t, 1, succeeded, "exactly one concurrent acquire must win the path")
	require.Equal(t, n-1, conflicted)
}

type lockOutcome struct {
	res lock.AcquireLockResult
	err error
}

func callsignFor(i int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	return "viper-" + string(letters[i%len(letters)]) + string(rune('0'+i/len(letters)))
}
