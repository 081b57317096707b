package cursor_test

import (
	"context"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/fleettools/fleetcore/internal/cursor"
)

// TestCursorIdempotenceProperty verifies spec §8 property 8: repeated
// advanceCursor calls with the same position P result in a single
// stored position P, and advancing with any P' < the running maximum
// is a no-op, for any sequence of positions applied in any order.
func TestCursorIdempotenceProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 40
	properties := gopter.NewProperties(parameters)

	properties.Property("the stored position after any sequence of advances is the maximum position applied", prop.ForAll(
		func(positions []int64) bool {
			db, _, c := newTestFixtures(t)
			svc := cursor.New(db, c)
			ctx := context.Background()

			var want int64
			for _, p := range positions {
				if err := svc.Advance(ctx, "/p1", "consumer-a", "callsign", "viper-1", p); err != nil {
					return false
				}
				if p > want {
					want = p
				}
			}

			got, err := svc.Position(ctx, "/p1", "consumer-a", "callsign", "viper-1")
			if err != nil {
				return false
			}
			return got == want
		},
		gen.SliceOfN(8, gen.Int64Range(0, 1_000_000)),
	))

	properties.TestingRun(t)
}
