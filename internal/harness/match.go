package harness

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/google/go-cmp/cmp"
)

// normalize converts v to its generic JSON form, so values decoded from
// YAML, CUE or Go structs compare alike (every number becomes float64).
func normalize(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// matchSubset reports the first place actual differs from expected.
// Maps match when every expected key matches; extra keys in actual are
// ignored. Slices must have the same length and match element-wise.
// Both arguments must already be normalized.
func matchSubset(expected, actual any, path string) error {
	switch exp := expected.(type) {
	case map[string]any:
		act, ok := actual.(map[string]any)
		if !ok {
			return fmt.Errorf("%s: expected an object, got %s", pathOrRoot(path), describe(actual))
		}
		keys := make([]string, 0, len(exp))
		for k := range exp {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			av, exists := act[k]
			if !exists {
				return fmt.Errorf("%s: field missing", joinPath(path, k))
			}
			if err := matchSubset(exp[k], av, joinPath(path, k)); err != nil {
				return err
			}
		}
		return nil

	case []any:
		act, ok := actual.([]any)
		if !ok {
			return fmt.Errorf("%s: expected a list, got %s", pathOrRoot(path), describe(actual))
		}
		if len(exp) != len(act) {
			return fmt.Errorf("%s: expected %d elements, got %d", pathOrRoot(path), len(exp), len(act))
		}
		for i := range exp {
			if err := matchSubset(exp[i], act[i], fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
		return nil
	}

	if !cmp.Equal(expected, actual) {
		return fmt.Errorf("%s: expected %s, got %s", pathOrRoot(path), describe(expected), describe(actual))
	}
	return nil
}

// subsetOf normalizes expected and matches it against an already
// normalized actual value.
func subsetOf(expected map[string]any, actual any) error {
	if len(expected) == 0 {
		return nil
	}
	exp, err := normalize(expected)
	if err != nil {
		return fmt.Errorf("normalize expectation: %w", err)
	}
	return matchSubset(exp, actual, "")
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func pathOrRoot(path string) string {
	if path == "" {
		return "(root)"
	}
	return path
}

func describe(v any) string {
	if v == nil {
		return "null"
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	s := string(data)
	if len(s) > 120 {
		s = s[:117] + "..."
	}
	return strings.TrimSpace(s)
}
