// Package statusmachine implements the shared from->to transition guard
// the sortie, work-order, and mission projection handlers all apply
// (spec §4.5): an event that would move an entity through a transition
// the machine doesn't recognize is rejected, and the row is left
// unchanged.
package statusmachine

// Machine is a closed set of allowed (from, to) transitions.
type Machine struct {
	allowed map[string]map[string]bool
}

// New builds a Machine from pairs given as from0, to0, from1, to1, ...
func New(pairs ...string) *Machine {
	m := &Machine{allowed: make(map[string]map[string]bool)}
	for i := 0; i+1 < len(pairs); i += 2 {
		from, to := pairs[i], pairs[i+1]
		if m.allowed[from] == nil {
			m.allowed[from] = make(map[string]bool)
		}
		m.allowed[from][to] = true
	}
	return m
}

// Allowed reports whether the machine permits from->to.
func (m *Machine) Allowed(from, to string) bool {
	tos, ok := m.allowed[from]
	if !ok {
		return false
	}
	return tos[to]
}

// Sorties and work orders share the open -> in_progress -> closed
// machine, with blocked reachable from and returning to in_progress
// (spec §4.5 diagram).
var Sortie = New(
	"open", "in_progress",
	"in_progress", "blocked",
	"blocked", "in_progress",
	"in_progress", "closed",
)

// Mission is the coarser {pending, in_progress, completed} machine
// (spec §4.5 "Identical rule for missions").
var Mission = New(
	"pending", "in_progress",
	"in_progress", "completed",
)
