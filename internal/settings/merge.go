// Package settings merges partial updates into Claude settings documents.
//
// Documents are loosely typed maps: arbitrary sibling keys added by other
// tools must survive a merge untouched. The only structurally significant
// field is "hooks", a map from hook type to an ordered list of command
// strings.
package settings

import (
	"fmt"
	"reflect"
)

// ArrayOrder controls where new unique array entries land during a merge.
type ArrayOrder int

const (
	// OrderAppend keeps pre-existing entries first (default). Hook
	// execution order stays stable relative to hooks other tools added.
	OrderAppend ArrayOrder = iota
	// OrderPrepend puts new unique entries before existing ones.
	OrderPrepend
)

// MergeOptions tune the deep-merge behavior.
type MergeOptions struct {
	Order ArrayOrder
}

// Merge deep-merges update into existing and returns a new document.
// Neither input is mutated.
//
// Rules:
//   - both sides maps: recurse
//   - both sides arrays: keep existing entries, append (or prepend) each
//     update entry that has no structurally equal counterpart already
//   - nil update values: no-op, never erase an existing value
//   - anything else: update wins
//
// The array rule makes Merge idempotent: applying the same update twice
// yields the same document as applying it once.
func Merge(existing, update map[string]any, opts MergeOptions) map[string]any {
	merged := make(map[string]any, len(existing)+len(update))
	for k, v := range existing {
		merged[k] = v
	}

	for key, updateVal := range update {
		if updateVal == nil {
			continue
		}

		existingVal, present := merged[key]
		if !present || existingVal == nil {
			merged[key] = updateVal
			continue
		}

		existingMap, eIsMap := existingVal.(map[string]any)
		updateMap, uIsMap := updateVal.(map[string]any)
		if eIsMap && uIsMap {
			merged[key] = Merge(existingMap, updateMap, opts)
			continue
		}

		existingArr, eIsArr := existingVal.([]any)
		updateArr, uIsArr := updateVal.([]any)
		if eIsArr && uIsArr {
			merged[key] = mergeArrays(existingArr, updateArr, opts.Order)
			continue
		}

		merged[key] = updateVal
	}

	return merged
}

// mergeArrays concatenates with structural dedup: an update entry is added
// only if no deep-equal entry already exists.
func mergeArrays(existing, update []any, order ArrayOrder) []any {
	var fresh []any
	for _, candidate := range update {
		if !containsDeepEqual(existing, candidate) && !containsDeepEqual(fresh, candidate) {
			fresh = append(fresh, candidate)
		}
	}

	merged := make([]any, 0, len(existing)+len(fresh))
	if order == OrderPrepend {
		merged = append(merged, fresh...)
		merged = append(merged, existing...)
	} else {
		merged = append(merged, existing...)
		merged = append(merged, fresh...)
	}
	return merged
}

func containsDeepEqual(arr []any, candidate any) bool {
	for _, existing := range arr {
		if reflect.DeepEqual(existing, candidate) {
			return true
		}
	}
	return false
}

// Validate checks the structural invariant: if "hooks" exists it must be a
// map whose values are all arrays. A violation indicates a logic bug in
// whoever built the document, so it is an error, never silently corrected.
func Validate(doc map[string]any) error {
	raw, present := doc["hooks"]
	if !present || raw == nil {
		return nil
	}

	hooks, ok := raw.(map[string]any)
	if !ok {
		return fmt.Errorf("settings invariant violated: hooks is %T, want object", raw)
	}

	for hookType, val := range hooks {
		if val == nil {
			continue
		}
		if _, ok := val.([]any); !ok {
			return fmt.Errorf("settings invariant violated: hooks.%s is %T, want array", hookType, val)
		}
	}
	return nil
}
