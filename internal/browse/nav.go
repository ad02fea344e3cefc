package browse

import (
	"github.com/spyglass-mc/spyglass/internal/errors"
	"github.com/spyglass-mc/spyglass/internal/query"
)

// Next advances the browse position, wrapping past the end to 0.
func Next(index, total int) int {
	if total <= 0 {
		return 0
	}
	return (index + 1) % total
}

// Previous steps the browse position back, wrapping before 0 to total-1.
func Previous(index, total int) int {
	if total <= 0 {
		return 0
	}
	return (index - 1 + total) % total
}

// Jump validates a 1-based user-supplied target and returns the zero-based
// index. An out-of-range target is rejected without mutating anything.
func Jump(target, total int) (int, error) {
	if target < 1 || target > total {
		return 0, errors.NewOutOfRange(target, total)
	}
	return target - 1, nil
}

// Resort replaces the descriptor's sort-like stage with the one implied by
// method, strips any result-count limit, appends the safety-cap limit, and
// resets the browse position to 0. An unknown method leaves the descriptor
// untouched.
func Resort(d *query.Descriptor, method query.SortMethod) (int, error) {
	if d.IsLiteral() {
		return 0, errors.NewInvalidSortMethod(string(method))
	}

	stage, err := query.StageFor(method)
	if err != nil {
		return 0, err
	}

	d.ReplaceSortLike(stage)
	d.StripLimit()
	d.Stages = append(d.Stages, query.LimitStage(query.SafetyCap))
	return 0, nil
}
