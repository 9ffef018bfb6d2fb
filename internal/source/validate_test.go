package source

import (
	"errors"
	"math"
	"testing"

	"github.com/theirongolddev/allot/internal/model"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		nodes []model.Node
		want  []error
	}{
		{
			name:  "valid",
			nodes: []model.Node{{ID: "a", Children: []model.Node{{ID: "b"}, {ID: "c"}}}},
		},
		{
			name: "empty plan",
			want: []error{ErrEmptyPlan},
		},
		{
			name:  "empty id",
			nodes: []model.Node{{ID: "a", Children: []model.Node{{Label: "no id"}}}},
			want:  []error{ErrEmptyID},
		},
		{
			name:  "duplicate root and child",
			nodes: []model.Node{{ID: "a", Children: []model.Node{{ID: "a"}}}},
			want:  []error{ErrDuplicateID},
		},
		{
			name:  "non-finite",
			nodes: []model.Node{{ID: "a", Value: math.Inf(1)}, {ID: "b", Value: math.NaN()}},
			want:  []error{ErrNonFiniteValue},
		},
		{
			name:  "several problems reported together",
			nodes: []model.Node{{ID: "a"}, {ID: "a", Value: math.NaN()}},
			want:  []error{ErrDuplicateID, ErrNonFiniteValue},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.nodes)
			if len(tt.want) == 0 {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			for _, want := range tt.want {
				if !errors.Is(err, want) {
					t.Errorf("Validate() = %v, want errors.Is %v", err, want)
				}
			}
		})
	}
}
