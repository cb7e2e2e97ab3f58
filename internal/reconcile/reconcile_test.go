package reconcile

import (
	"reflect"
	"testing"
)

func TestPlan(t *testing.T) {
	tc := []struct {
		name          string
		desired       []string
		observed      []string
		appendOnly    bool
		wantAdd       []string
		wantRemove    []string
		wantUnchanged []string
	}{
		{
			name:    "empty target gets everything",
			desired: []string{"a", "b", "c"},
			wantAdd: []string{"a", "b", "c"},
		},
		{
			name:          "identical is a no-op",
			desired:       []string{"a", "b"},
			observed:      []string{"a", "b"},
			wantUnchanged: []string{"a", "b"},
		},
		{
			name:          "partial overlap",
			desired:       []string{"a", "b", "c"},
			observed:      []string{"b", "x"},
			wantAdd:       []string{"a", "c"},
			wantRemove:    []string{"x"},
			wantUnchanged: []string{"b"},
		},
		{
			name:          "append only never removes",
			desired:       []string{"a"},
			observed:      []string{"a", "x", "y"},
			appendOnly:    true,
			wantUnchanged: []string{"a"},
		},
		{
			name:    "duplicate desired ids collapse to first position",
			desired: []string{"a", "b", "a"},
			wantAdd: []string{"a", "b"},
		},
		{
			name:     "empty desired ids skipped",
			desired:  []string{"", "a", ""},
			wantAdd:  []string{"a"},
		},
		{
			name:       "empty desired removes everything",
			observed:   []string{"x", "y"},
			wantRemove: []string{"x", "y"},
		},
	}

	for _, c := range tc {
		t.Run(c.name, func(t *testing.T) {
			plan := Plan(c.desired, c.observed, c.appendOnly)

			if !reflect.DeepEqual(plan.ToAdd, c.wantAdd) {
				t.Errorf("ToAdd = %v, want %v", plan.ToAdd, c.wantAdd)
			}
			if !reflect.DeepEqual(plan.ToRemove, c.wantRemove) {
				t.Errorf("ToRemove = %v, want %v", plan.ToRemove, c.wantRemove)
			}
			if !reflect.DeepEqual(plan.Unchanged, c.wantUnchanged) {
				t.Errorf("Unchanged = %v, want %v", plan.Unchanged, c.wantUnchanged)
			}
		})
	}

	t.Run("preserves desired order", func(t *testing.T) {
		plan := Plan([]string{"c", "a", "b"}, nil, false)
		want := []string{"c", "a", "b"}
		if !reflect.DeepEqual(plan.ToAdd, want) {
			t.Errorf("ToAdd = %v, want %v", plan.ToAdd, want)
		}
	})

	t.Run("applying a plan is idempotent", func(t *testing.T) {
		desired := []string{"a", "b", "c"}
		first := Plan(desired, []string{"b"}, false)

		// Simulate applying the plan, then re-plan.
		applied := append([]string{}, first.Unchanged...)
		applied = append(applied, first.ToAdd...)

		second := Plan(desired, applied, false)
		if len(second.ToAdd) != 0 || len(second.ToRemove) != 0 {
			t.Errorf("second plan should be empty, got add=%v remove=%v", second.ToAdd, second.ToRemove)
		}
	})
}

func TestUpToDate(t *testing.T) {
	tc := []struct {
		name      string
		unchanged int
		resolved  int
		tolerance float64
		want      bool
	}{
		{"9 of 10 at 0.9", 9, 10, 0.9, true},
		{"8 of 10 at 0.9", 8, 10, 0.9, false},
		{"all present", 10, 10, 0.9, true},
		{"none present", 0, 10, 0.9, false},
		{"nothing resolved", 0, 0, 0.9, true},
		{"tolerance zero always passes", 0, 10, 0, true},
	}

	for _, c := range tc {
		t.Run(c.name, func(t *testing.T) {
			plan := Plan(ids(c.resolved), ids(c.unchanged), false)
			if got := UpToDate(plan, c.resolved, c.tolerance); got != c.want {
				t.Errorf("UpToDate = %v, want %v", got, c.want)
			}
		})
	}
}

func ids(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = string(rune('a' + i))
	}
	return out
}
