// Package testkit drives REST API tests from JSON scenario files.
//
// A scenario file holds an array of steps run in order against one handler,
// so later steps can use values captured from earlier responses:
//
//	[
//	  {"name": "place order", "requestMethod": "POST", "requestUrl": "/api/orders",
//	   "requestFileName": "order_req.json", "expectedCode": 201,
//	   "capture": {"orderId": "order.id"}},
//	  {"name": "mark ready", "as": "admin", "requestMethod": "PATCH",
//	   "requestUrl": "/api/orders/{{orderId}}/status",
//	   "requestBody": {"status": "ready"}, "expectedCode": 200,
//	   "expectedBody": {"order": {"status": "ready"}}}
//	]
//
// Usage:
//
//	r := testkit.NewRunner(handler).WithToken("admin", token)
//	r.RunDir(t, "testdata")
package testkit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Scenario is one request and its expected outcome.
type Scenario struct {
	Name        string `json:"name"`
	Description string `json:"description"`

	RequestMethod   string            `json:"requestMethod"`
	RequestURL      string            `json:"requestUrl"`
	RequestFileName string            `json:"requestFileName"` // relative to the scenario file
	RequestBody     json.RawMessage   `json:"requestBody"`     // inline alternative to requestFileName
	Headers         map[string]string `json:"headers"`
	As              string            `json:"as"` // token name registered with Runner.WithToken

	ExpectedCode     int             `json:"expectedCode"`
	ResponseFileName string          `json:"responseFileName"` // exact JSON match
	ExpectedBody     json.RawMessage `json:"expectedBody"`     // subset match

	// Capture stores response values for later steps: var name → dotted path.
	Capture map[string]string `json:"capture"`

	dir string
}

// LoadScenarios reads the scenario array in path.
func LoadScenarios(path string) ([]*Scenario, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("testkit: resolve path %q: %w", path, err)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("testkit: read %q: %w", abs, err)
	}

	var scenarios []*Scenario
	if err := json.Unmarshal(data, &scenarios); err != nil {
		return nil, fmt.Errorf("testkit: parse %q: %w", abs, err)
	}

	for i, s := range scenarios {
		if err := s.validate(); err != nil {
			return nil, fmt.Errorf("testkit: %q step %d: %w", abs, i, err)
		}
		s.dir = filepath.Dir(abs)
	}
	return scenarios, nil
}

func (s *Scenario) validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.RequestURL == "" {
		return fmt.Errorf("requestUrl is required")
	}
	if s.ExpectedCode == 0 {
		return fmt.Errorf("expectedCode is required")
	}
	if s.RequestMethod == "" {
		s.RequestMethod = "GET"
	}
	if s.RequestFileName != "" && len(s.RequestBody) > 0 {
		return fmt.Errorf("requestFileName and requestBody are mutually exclusive")
	}
	return nil
}

func (s *Scenario) path(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.dir, name)
}
