// Package differ compares two keyed sets, such as the record keys of two
// consecutive news snapshots.
package differ

import "fmt"

// DiffResult holds the result of comparing an old and a new key set.
type DiffResult struct {
	HasChanges bool     `json:"has_changes"`
	Added      []string `json:"added"`
	Removed    []string `json:"removed"`
	Stats      Stats    `json:"stats"`
}

// Stats holds counts of changes.
type Stats struct {
	Additions int `json:"additions"`
	Deletions int `json:"deletions"`
}

// Keys reports which keys appear only in newKeys (added) or only in oldKeys
// (removed). Order follows the input slices; duplicates and empty keys are ignored.
func Keys(oldKeys, newKeys []string) DiffResult {
	oldSet := toSet(oldKeys)
	newSet := toSet(newKeys)

	added := onlyIn(newKeys, oldSet)
	removed := onlyIn(oldKeys, newSet)

	return DiffResult{
		HasChanges: len(added) > 0 || len(removed) > 0,
		Added:      added,
		Removed:    removed,
		Stats: Stats{
			Additions: len(added),
			Deletions: len(removed),
		},
	}
}

// Summary returns a human-readable summary of the diff.
func (d DiffResult) Summary() string {
	if !d.HasChanges {
		return "No changes detected"
	}
	return fmt.Sprintf("%d new, %d dropped", d.Stats.Additions, d.Stats.Deletions)
}

func toSet(keys []string) map[string]bool {
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set
}

func onlyIn(keys []string, other map[string]bool) []string {
	var out []string
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if k == "" || other[k] || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}
