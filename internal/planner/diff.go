package planner

import "wkfmanager/internal/api"

// Diff is the component delta between two versions of a workflow.
type Diff struct {
	ToStart    []string // In the new spec only, in new spec order
	ToTeardown []string // In the old spec only, in old spec order
	ToUpdate   []string // In both, in new spec order
}

// Empty reports whether no component is added or removed.
func (d Diff) Empty() bool {
	return len(d.ToStart) == 0 && len(d.ToTeardown) == 0
}

// ComputeDiff splits the components of current and desired into those to
// start, tear down and update. The three lists are disjoint, ToStart and
// ToUpdate together are exactly the desired components and ToTeardown and
// ToUpdate together are exactly the current ones.
func ComputeDiff(current, desired api.WorkflowSpec) Diff {
	var d Diff
	for _, c := range desired.ComponentList {
		if current.Has(c) {
			d.ToUpdate = append(d.ToUpdate, c)
		} else {
			d.ToStart = append(d.ToStart, c)
		}
	}
	for _, c := range current.ComponentList {
		if !desired.Has(c) {
			d.ToTeardown = append(d.ToTeardown, c)
		}
	}
	return d
}
