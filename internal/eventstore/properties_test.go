package eventstore_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/fleettools/fleetcore/internal/clock"
	"github.com/fleettools/fleetcore/internal/event"
	"github.com/fleettools/fleetcore/internal/eventstore"
	"github.com/fleettools/fleetcore/internal/projection"
	"github.com/fleettools/fleetcore/internal/storage"
	"github.com/fleettools/fleetcore/internal/telemetry"
)

func nonEmptyAlpha() gopter.Gen {
	return gen.AlphaString().SuchThat(func(s string) bool { return len(s) > 0 })
}

func newPropertyStore(t *testing.T) *eventstore.Store {
	t.Helper()
	db, err := storage.Open(context.Background(), storage.Config{InMemory: true})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	c := clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	dispatcher := projection.New(c, telemetry.NoOp())
	return eventstore.New(db, dispatcher, c, telemetry.NoOp())
}

// TestEventMonotonicityProperty verifies spec §8 property 1: for any
// two events e1, e2 appended to the same project with e1 committed
// before e2, e1.sequence < e2.sequence and e1.id < e2.id.
func TestEventMonotonicityProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("appending N pilot events in order yields strictly increasing sequence and id", prop.ForAll(
		func(callsigns []string) bool {
			store := newPropertyStore(t)
			ctx := context.Background()

			var prevSeq, prevID int64 = -1, -1
			for _, callsign := range callsigns {
				ev, err := store.Append(ctx, "/p1", event.PilotRegisteredBody{
					Callsign: callsign, Program: "core", Model: "sonnet",
				})
				if err != nil {
					return false
				}
				if ev.Sequence <= prevSeq || ev.ID <= prevID {
					return false
				}
				prevSeq, prevID = ev.Sequence, ev.ID
			}
			return true
		},
		gen.SliceOfN(10, nonEmptyAlpha()),
	))

	properties.TestingRun(t)
}

// TestIsolationByProjectProperty verifies spec §8 property 10: events
// and projections from project A are invisible to any query scoped to
// project B.
func TestIsolationByProjectProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	properties := gopter.NewProperties(parameters)

	properties.Property("a pilot registered in project A never appears in project B's query", prop.ForAll(
		func(suffixA, suffixB string, callsign string) bool {
			if suffixA == suffixB {
				return true // same project by construction; not a counterexample
			}
			store := newPropertyStore(t)
			ctx := context.Background()
			projectA := "/proj-" + suffixA
			projectB := "/proj-" + suffixB

			if _, err := store.Append(ctx, projectA, event.PilotRegisteredBody{
				Callsign: callsign, Program: "core", Model: "sonnet",
			}); err != nil {
				return false
			}

			eventsA, err := store.Query(ctx, projectA, eventstore.QueryOptions{})
			if err != nil || len(eventsA) != 1 {
				return false
			}
			eventsB, err := store.Query(ctx, projectB, eventstore.QueryOptions{})
			if err != nil {
				return false
			}
			return len(eventsB) == 0
		},
		nonEmptyAlpha(),
		nonEmptyAlpha(),
		nonEmptyAlpha(),
	))

	properties.TestingRun(t)
}

// TestReplayDeterminismProperty verifies spec §8 property 3 across a
// randomly sized log: rebuilding projections from the event log alone
// succeeds and leaves the project's event count unchanged, for any
// number of sorties created (and half of them started) up front.
func TestReplayDeterminismProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	properties.Property("rebuild succeeds and leaves the same event count as the live log", prop.ForAll(
		func(n int) bool {
			store := newPropertyStore(t)
			ctx := context.Background()
			const project = "/p1"

			for i := 0; i < n; i++ {
				sortieID := fmt.Sprintf("sortie-%d", i)
				if _, err := store.Append(ctx, project, event.SortieCreatedBody{SortieID: sortieID, Title: "work"}); err != nil {
					return false
				}
				if i%2 == 0 {
					if _, err := store.Append(ctx, project, event.SortieStartedBody{SortieID: sortieID}); err != nil {
						return false
					}
				}
			}

			countBefore, err := store.Count(ctx, project, eventstore.QueryOptions{})
			if err != nil {
				return false
			}

			if err := store.Rebuild(ctx, project); err != nil {
				return false
			}

			countAfter, err := store.Count(ctx, project, eventstore.QueryOptions{})
			if err != nil {
				return false
			}
			return countBefore == countAfter
		},
		gen.IntRange(0, 20),
	))

	properties.TestingRun(t)
}
