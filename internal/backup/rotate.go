package backup

import "sort"

// Partition splits snapshot file names into the set to keep and the set to
// prune, given a retention count. Names carry a timestamp prefix, so
// lexicographic order equals creation order; the newest keep names survive
// and the oldest excess is pruned.
//
// keep <= 0 means keep everything: retention is opt-in, a misconfigured
// zero must not wipe the backup history.
func Partition(names []string, keep int) (kept, prune []string) {
	sorted := make([]string, len(names))
	copy(sorted, names)
	sort.Strings(sorted)

	if keep <= 0 || len(sorted) <= keep {
		return sorted, nil
	}
	cut := len(sorted) - keep
	return sorted[cut:], sorted[:cut]
}
