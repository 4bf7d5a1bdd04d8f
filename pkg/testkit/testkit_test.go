package testkit

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoHandler answers a tiny fake API used to exercise the runner.
var echoHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.URL.Path == "/things" && r.Method == http.MethodPost:
		var in map[string]any
		json.NewDecoder(r.Body).Decode(&in) //nolint:errcheck
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"success": true, "thing": map[string]any{"id": "t1", "name": in["name"]}}) //nolint:errcheck
	case r.URL.Path == "/things/t1":
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"success":false,"error":"Invalid token"}`)) //nolint:errcheck
			return
		}
		w.Write([]byte(`{"success":true,"thing":{"id":"t1","tags":["a","b"]}}`)) //nolint:errcheck
	default:
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"success":false,"error":"Route not found"}`)) //nolint:errcheck
	}
})

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "things.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestRunnerCapturesAndExpands(t *testing.T) {
	path := writeScenario(t, `[
	  {"name": "create", "requestMethod": "POST", "requestUrl": "/things",
	   "requestBody": {"name": "pilau"}, "expectedCode": 201,
	   "expectedBody": {"thing": {"name": "pilau"}},
	   "capture": {"thingId": "thing.id"}},
	  {"name": "fetch", "as": "admin", "requestUrl": "/things/{{thingId}}", "expectedCode": 200,
	   "expectedBody": {"success": true, "thing": {"tags": ["a", "b"]}}},
	  {"name": "fetch anonymously", "requestUrl": "/things/{{thingId}}", "expectedCode": 401,
	   "expectedBody": {"error": "Invalid token"}}
	]`)

	r := NewRunner(echoHandler).WithToken("admin", "secret")
	r.RunFile(t, path)
	assert.Equal(t, "t1", r.Var("thingId"))
}

func TestLoadScenariosValidates(t *testing.T) {
	_, err := LoadScenarios(writeScenario(t, `[{"name": "x", "requestUrl": "/"}]`))
	assert.ErrorContains(t, err, "expectedCode is required")

	_, err = LoadScenarios(writeScenario(t, `[{"requestUrl": "/", "expectedCode": 200}]`))
	assert.ErrorContains(t, err, "name is required")

	s, err := LoadScenarios(writeScenario(t, `[{"name": "x", "requestUrl": "/", "expectedCode": 200}]`))
	require.NoError(t, err)
	assert.Equal(t, "GET", s[0].RequestMethod)
}

func TestDiffJSONIgnoresExtraKeys(t *testing.T) {
	var exp, act any
	require.NoError(t, json.Unmarshal([]byte(`{"a":1,"b":{"c":[1,2]}}`), &exp))
	require.NoError(t, json.Unmarshal([]byte(`{"a":1,"z":true,"b":{"c":[1,2],"d":0}}`), &act))
	assert.Empty(t, DiffJSON("", exp, act))

	require.NoError(t, json.Unmarshal([]byte(`{"a":2,"b":{"c":[1]}}`), &act))
	assert.Len(t, DiffJSON("", exp, act), 2)
}

func TestLookup(t *testing.T) {
	var doc any
	require.NoError(t, json.Unmarshal([]byte(`{"orders":[{"orderId":"JUSH-1"}]}`), &doc))

	v, ok := Lookup(doc, "orders.0.orderId")
	assert.True(t, ok)
	assert.Equal(t, "JUSH-1", v)

	_, ok = Lookup(doc, "orders.3.orderId")
	assert.False(t, ok)
}

func TestMockTransport(t *testing.T) {
	mt := NewMockTransport(
		MockStep{Method: "GET", Path: "/api/health", Body: json.RawMessage(`{"success":true}`)},
		MockStep{Method: "POST", Path: "/api/orders", Status: http.StatusCreated, Body: json.RawMessage(`{}`)},
	)
	c := &http.Client{Transport: mt}

	resp, err := c.Get("http://jush.test/api/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"success":true}`, string(body))

	_, err = c.Get("http://jush.test/api/unknown")
	assert.Error(t, err)

	errs := mt.AssertAllCalled()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "/api/orders")
	assert.Len(t, mt.Calls(), 2)
}
