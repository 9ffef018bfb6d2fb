package source

import (
	"errors"
	"fmt"
	"math"

	"github.com/theirongolddev/allot/internal/model"
)

// Structural problems in a tree definition.
var (
	ErrEmptyPlan      = errors.New("plan has no nodes")
	ErrEmptyID        = errors.New("node id is empty")
	ErrDuplicateID    = errors.New("duplicate node id")
	ErrNonFiniteValue = errors.New("node value is not finite")
)

// Validate checks that every id is non-empty and unique across the whole
// tree and that every value is finite. All problems are reported together.
func Validate(nodes []model.Node) error {
	if len(nodes) == 0 {
		return ErrEmptyPlan
	}

	seen := make(map[string]string) // id -> path where first seen
	var errs []error

	var visit func(ns []model.Node, parent string)
	visit = func(ns []model.Node, parent string) {
		for i, n := range ns {
			where := fmt.Sprintf("%s[%d]", parent, i)
			if n.ID == "" {
				errs = append(errs, fmt.Errorf("%w at %s", ErrEmptyID, where))
			} else {
				where = parent + "/" + n.ID
				if first, dup := seen[n.ID]; dup {
					errs = append(errs, fmt.Errorf("%w %q at %s (first at %s)", ErrDuplicateID, n.ID, where, first))
				} else {
					seen[n.ID] = where
				}
			}
			if math.IsNaN(n.Value) || math.IsInf(n.Value, 0) {
				errs = append(errs, fmt.Errorf("%w at %s", ErrNonFiniteValue, where))
			}
			visit(n.Children, where)
		}
	}
	visit(nodes, "")

	return errors.Join(errs...)
}
