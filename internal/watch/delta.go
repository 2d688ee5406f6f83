package watch

import "sort"

// Delta describes the change between two settled privilege snapshots.
type Delta struct {
	Active  []string // full effective set at settle time
	Added   []string // present now, absent in the previous snapshot
	Removed []string // present in the previous snapshot, absent now
}

// Diff computes the delta from previous to current. Membership is
// order-insensitive and duplicates are collapsed; all three result slices
// come back sorted. Pure function: same inputs, same output, no side
// effects.
func Diff(previous, current []string) Delta {
	prev := toSet(previous)
	curr := toSet(current)

	d := Delta{
		Active:  sortedKeys(curr),
		Added:   make([]string, 0),
		Removed: make([]string, 0),
	}
	for name := range curr {
		if !prev[name] {
			d.Added = append(d.Added, name)
		}
	}
	for name := range prev {
		if !curr[name] {
			d.Removed = append(d.Removed, name)
		}
	}
	sort.Strings(d.Added)
	sort.Strings(d.Removed)
	return d
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
