package query

import "github.com/spyglass-mc/spyglass/internal/errors"

// SortMethod is one of the fixed re-sort selections offered on a browse
// message.
type SortMethod string

const (
	SortPlayers  SortMethod = "players"   // live player count
	SortSample   SortMethod = "sample"    // sample size
	SortLimit    SortMethod = "limit"     // declared player limit
	SortVersion  SortMethod = "version"   // protocol number
	SortLastScan SortMethod = "last_scan" // last observed
	SortRandom   SortMethod = "random"    // random sample
)

// SortMethods lists every valid method in menu order.
var SortMethods = []SortMethod{
	SortPlayers, SortSample, SortLimit, SortVersion, SortLastScan, SortRandom,
}

// StageFor returns the sort-like stage implied by a method, or
// INVALID_SORT_METHOD for anything outside the fixed set.
func StageFor(method SortMethod) (Stage, error) {
	switch method {
	case SortPlayers:
		return SortStage("players.online", true), nil
	case SortSample:
		return SortStage("players.sample_count", true), nil
	case SortLimit:
		return SortStage("players.max", true), nil
	case SortVersion:
		return SortStage("version.protocol", true), nil
	case SortLastScan:
		return SortStage("lastSeen", true), nil
	case SortRandom:
		return SampleStage(SafetyCap), nil
	}
	return Stage{}, errors.NewInvalidSortMethod(string(method))
}
