package rpcenc

import "reflect"

// Simplify strips protocol bookkeeping from a decoded tree and collapses
// trivial wrapper structures into plain values:
//
//   - the _NAME, _TYPE, id and anonymous-value keys are removed, as are
//     wildcard-retained keys (those in Clark notation);
//   - a composite left holding only its anonymous value collapses to that
//     value;
//   - a sequence of single-key composites sharing one key merges into a
//     single multi-valued entry, nesting when the values are themselves
//     sequences.
//
// The transform is deliberately lossy; it trades precision for
// convenience and is ambiguous for some shapes. It mutates composites in
// place so that reference cycles keep pointing at the same nodes, tracks
// visited composites by identity to terminate on cyclic graphs, and is
// idempotent.
func Simplify(v any) any {
	return simplify(v, make(map[uintptr]any))
}

const anonKey = "_"

func simplify(v any, seen map[uintptr]any) any {
	switch x := v.(type) {
	case map[string]any:
		ptr := reflect.ValueOf(x).Pointer()
		if prior, ok := seen[ptr]; ok {
			return prior
		}
		// Provisional result; cyclic re-entries get the map itself.
		seen[ptr] = x

		for key := range x {
			if isBookkeepingKey(key) && key != anonKey {
				delete(x, key)
			}
		}
		for key, val := range x {
			x[key] = simplify(val, seen)
		}
		if len(x) == 1 {
			if inner, ok := x[anonKey]; ok {
				seen[ptr] = inner
				return inner
			}
		}
		return x

	case []any:
		if len(x) == 0 {
			return x
		}
		ptr := reflect.ValueOf(x).Pointer()
		if prior, ok := seen[ptr]; ok {
			return prior
		}
		seen[ptr] = x

		for i := range x {
			x[i] = simplify(x[i], seen)
		}
		if key, ok := commonSingleKey(x); ok {
			merged := map[string]any{}
			values := make([]any, len(x))
			for i, item := range x {
				values[i] = item.(map[string]any)[key]
			}
			merged[key] = values
			seen[ptr] = merged
			return merged
		}
		return x

	default:
		return v
	}
}

// isBookkeepingKey reports protocol metadata keys: the decoder's _NAME,
// _TYPE and anonymous-value keys, id attributes, and the Clark-notation
// keys used to retain wildcard-matched children.
func isBookkeepingKey(key string) bool {
	if key == "id" {
		return true
	}
	if len(key) > 0 && (key[0] == '_' || key[0] == '{') {
		return true
	}
	return false
}

// commonSingleKey reports the shared key when every element of a
// non-empty sequence is a single-key composite with the same key.
func commonSingleKey(items []any) (string, bool) {
	if len(items) < 2 {
		return "", false
	}
	var key string
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok || len(m) != 1 {
			return "", false
		}
		for k := range m {
			if i == 0 {
				key = k
			} else if k != key {
				return "", false
			}
		}
	}
	return key, true
}
