package lock_test

import (
	"context"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/fleettools/fleetcore/internal/clock"
	"github.com/fleettools/fleetcore/internal/event"
)

func nonEmptyAlpha() gopter.Gen {
	return gen.AlphaString().SuchThat(func(s string) bool { return len(s) > 0 })
}

// TestReservationExclusivityProperty verifies spec §8 property 5: two
// exclusive reservations with overlapping paths can never both be
// active, regardless of which paths overlap or how many extra paths
// surround the shared one.
func TestReservationExclusivityProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 40
	properties := gopter.NewProperties(parameters)

	properties.Property("a second exclusive reservation sharing one path with an active one always conflicts", prop.ForAll(
		func(shared string, extraA, extraB []string) bool {
			c := clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
			m := newManager(t, c)
			ctx := context.Background()

			pathsA := append([]string{shared}, extraA...)
			pathsB := append([]string{shared}, extraB...)

			first, err := m.Reserve(ctx, "/p1", pathsA, "viper-a", time.Minute, true, "editing", "", "")
			if err != nil || first.Reservation == nil {
				return false
			}

			second, err := m.Reserve(ctx, "/p1", pathsB, "viper-b", time.Minute, true, "editing", "", "")
			if err != nil {
				return false
			}
			return second.Reservation == nil && second.Conflict != nil
		},
		nonEmptyAlpha(),
		gen.SliceOfN(2, nonEmptyAlpha()),
		gen.SliceOfN(2, nonEmptyAlpha()),
	))

	properties.TestingRun(t)
}

// TestLockTTLExpiryProperty verifies spec §8 property 6: a lock
// acquired with TTL=T is no longer blocking at wall-clock time
// reserved_at + T + epsilon, for any TTL duration.
func TestLockTTLExpiryProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 40
	properties := gopter.NewProperties(parameters)

	properties.Property("advancing the clock past TTL always frees the path for a new acquirer", prop.ForAll(
		func(ttlSeconds int) bool {
			ttl := time.Duration(ttlSeconds) * time.Second
			c := clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
			m := newManager(t, c)
			ctx := context.Background()

			first, err := m.AcquireLock(ctx, "/p1", "src/x.ts", "viper-a", event.PurposeEdit, ttl, "")
			if err != nil || first.Lock == nil {
				return false
			}

			c.Advance(ttl + time.Second)

			second, err := m.AcquireLock(ctx, "/p1", "src/x.ts", "viper-b", event.PurposeEdit, ttl, "")
			if err != nil {
				return false
			}
			return second.Lock != nil
		},
		gen.IntRange(1, 3600),
	))

	properties.TestingRun(t)
}
