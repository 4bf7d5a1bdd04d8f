package testkit

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertStatusCode checks the response code, printing the body on mismatch.
func AssertStatusCode(t *testing.T, s *Scenario, got int, body []byte) {
	t.Helper()
	assert.Equal(t, s.ExpectedCode, got, "[%s] HTTP status code mismatch\nbody: %s", s.Name, body)
}

// AssertJSONBody compares the whole response with expected after decoding
// both, so key order and whitespace never matter.
func AssertJSONBody(t *testing.T, s *Scenario, expected, actual []byte) {
	t.Helper()

	var expVal, actVal any
	require.NoError(t, json.Unmarshal(expected, &expVal), "[%s] expected body is not valid JSON", s.Name)
	if !assert.NoError(t, json.Unmarshal(actual, &actVal), "[%s] response is not valid JSON\nbody: %s", s.Name, actual) {
		return
	}
	assert.Equal(t, expVal, actVal, "[%s] response body mismatch", s.Name)
}

// AssertJSONSubset checks only the fields present in expected. Arrays must
// match in length.
func AssertJSONSubset(t *testing.T, s *Scenario, expected, actual []byte) {
	t.Helper()

	var expVal, actVal any
	require.NoError(t, json.Unmarshal(expected, &expVal), "[%s] expectedBody is not valid JSON", s.Name)
	if !assert.NoError(t, json.Unmarshal(actual, &actVal), "[%s] response is not valid JSON\nbody: %s", s.Name, actual) {
		return
	}
	if diffs := DiffJSON("", expVal, actVal); len(diffs) > 0 {
		t.Errorf("[%s] response body mismatch:\n%s\nbody: %s", s.Name, strings.Join(diffs, "\n"), actual)
	}
}

// DiffJSON lists where actual departs from expected. Keys absent from
// expected are ignored.
func DiffJSON(path string, expected, actual any) []string {
	var diffs []string
	switch exp := expected.(type) {
	case map[string]any:
		act, ok := actual.(map[string]any)
		if !ok {
			return append(diffs, fmt.Sprintf("  %s: expected object, got %T", keyPath(path), actual))
		}
		for k, ev := range exp {
			p := keyPath(path) + "." + k
			av, exists := act[k]
			if !exists {
				diffs = append(diffs, fmt.Sprintf("  %s: missing in actual", p))
				continue
			}
			diffs = append(diffs, DiffJSON(p, ev, av)...)
		}
	case []any:
		act, ok := actual.([]any)
		if !ok {
			return append(diffs, fmt.Sprintf("  %s: expected array, got %T", keyPath(path), actual))
		}
		if len(exp) != len(act) {
			diffs = append(diffs, fmt.Sprintf("  %s: array length expected=%d actual=%d", keyPath(path), len(exp), len(act)))
		}
		for i := 0; i < len(exp) && i < len(act); i++ {
			diffs = append(diffs, DiffJSON(fmt.Sprintf("%s[%d]", keyPath(path), i), exp[i], act[i])...)
		}
	default:
		if fmt.Sprintf("%v", expected) != fmt.Sprintf("%v", actual) {
			diffs = append(diffs, fmt.Sprintf("  %s:\n    - %v\n    + %v", keyPath(path), expected, actual))
		}
	}
	return diffs
}

// Lookup walks a decoded JSON document along a dotted path such as
// "orders.0.orderId".
func Lookup(doc any, path string) (any, bool) {
	cur := doc
	for _, part := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[part]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

func keyPath(path string) string {
	if path == "" {
		return "root"
	}
	return strings.TrimPrefix(path, ".")
}
