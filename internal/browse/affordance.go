// Package browse implements the stateless browse core: navigation
// transitions over a query descriptor, the button-affordance rules, and
// the two-phase (fast, then slow) renderer.
package browse

import "github.com/spyglass-mc/spyglass/internal/gateway"

// Vector slots, in gateway.ActionIDs order.
const (
	SlotPrevious = iota
	SlotNext
	SlotJump
	SlotRefresh
	SlotPlayers
	SlotSort
	SlotJoin
)

// AffordanceInput is everything the deriver looks at. It is a pure
// function of these five values; no I/O, no side effects.
type AffordanceInput struct {
	Total         int
	Index         int
	Literal       bool // browse target is a single ad-hoc record
	HasLiveSample bool // the live probe returned a player sample
	LivenessKnown bool // the slow pass completed (online or offline)
}

// Derive computes the disabled vector (true = disabled) for one render.
func Derive(in AffordanceInput) [gateway.NumActions]bool {
	var d [gateway.NumActions]bool

	single := in.Total <= 1

	d[SlotPrevious] = single || in.Literal
	d[SlotNext] = single || in.Literal
	d[SlotJump] = single || in.Literal
	d[SlotSort] = single || in.Literal

	// refresh only makes sense for a pinned literal record
	d[SlotRefresh] = !in.Literal

	d[SlotPlayers] = !in.LivenessKnown || !in.HasLiveSample || in.Literal

	// join eligibility is gated by the authorization workflow, never here
	d[SlotJoin] = true

	return d
}

// AllDisabled is the fast-render vector: the user must not act on
// placeholder data.
func AllDisabled() [gateway.NumActions]bool {
	return [gateway.NumActions]bool{true, true, true, true, true, true, true}
}
