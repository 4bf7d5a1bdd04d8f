package testkit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Runner fires scenarios at a handler, carrying captured variables from one
// step to the next.
type Runner struct {
	handler http.Handler
	tokens  map[string]string
	vars    map[string]string
}

func NewRunner(h http.Handler) *Runner {
	return &Runner{handler: h, tokens: map[string]string{}, vars: map[string]string{}}
}

// WithToken registers a bearer token used by scenarios that set "as": name.
func (r *Runner) WithToken(name, token string) *Runner {
	r.tokens[name] = token
	return r
}

// Set defines a variable available as {{name}}.
func (r *Runner) Set(name, value string) *Runner {
	r.vars[name] = value
	return r
}

// Var returns a captured or preset variable.
func (r *Runner) Var(name string) string { return r.vars[name] }

// RunFile runs every step of one scenario file as a subtest named after the
// file. A failing step stops the file since later steps depend on it.
func (r *Runner) RunFile(t *testing.T, path string) {
	t.Helper()

	scenarios, err := LoadScenarios(path)
	if err != nil {
		t.Fatal(err)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	t.Run(name, func(t *testing.T) {
		for _, s := range scenarios {
			if !t.Run(s.Name, func(t *testing.T) { r.run(t, s) }) {
				return
			}
		}
	})
}

// RunDir runs every *.json file in dir, in lexical order.
func (r *Runner) RunDir(t *testing.T, dir string) {
	t.Helper()

	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil || len(files) == 0 {
		t.Fatalf("testkit: no scenario files found in %q", dir)
	}
	for _, f := range files {
		if strings.HasSuffix(f, "_req.json") || strings.HasSuffix(f, "_res.json") {
			continue
		}
		r.RunFile(t, f)
	}
}

func (r *Runner) run(t *testing.T, s *Scenario) {
	t.Helper()

	var body io.Reader
	switch {
	case s.RequestFileName != "":
		data, err := os.ReadFile(s.path(s.RequestFileName))
		if err != nil {
			t.Fatalf("[%s] read request file: %v", s.Name, err)
		}
		body = strings.NewReader(r.expand(string(data)))
	case len(s.RequestBody) > 0:
		body = strings.NewReader(r.expand(string(s.RequestBody)))
	}

	req := httptest.NewRequest(strings.ToUpper(s.RequestMethod), r.expand(s.RequestURL), body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if s.As != "" {
		token, ok := r.tokens[s.As]
		if !ok {
			t.Fatalf("[%s] no token registered as %q", s.Name, s.As)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range s.Headers {
		req.Header.Set(k, r.expand(v))
	}

	rec := httptest.NewRecorder()
	r.handler.ServeHTTP(rec, req)

	AssertStatusCode(t, s, rec.Code, rec.Body.Bytes())

	if p := s.path(s.ResponseFileName); p != "" {
		expected, err := os.ReadFile(p)
		if err != nil {
			t.Errorf("[%s] read response file: %v", s.Name, err)
		} else {
			AssertJSONBody(t, s, []byte(r.expand(string(expected))), rec.Body.Bytes())
		}
	}
	if len(s.ExpectedBody) > 0 {
		AssertJSONSubset(t, s, []byte(r.expand(string(s.ExpectedBody))), rec.Body.Bytes())
	}

	if len(s.Capture) > 0 {
		var doc any
		if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
			t.Fatalf("[%s] capture: response is not JSON: %v", s.Name, err)
		}
		for name, path := range s.Capture {
			v, ok := Lookup(doc, path)
			if !ok {
				t.Fatalf("[%s] capture %q: path %q not in response", s.Name, name, path)
			}
			r.vars[name] = fmt.Sprint(v)
		}
	}
}

// expand replaces {{name}} with captured variables.
func (r *Runner) expand(s string) string {
	if !strings.Contains(s, "{{") {
		return s
	}
	pairs := make([]string, 0, len(r.vars)*2)
	for k, v := range r.vars {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	return strings.NewReplacer(pairs...).Replace(s)
}

// Do fires one ad-hoc request, for steps awkward to express as JSON.
func (r *Runner) Do(method, url string, body any, as string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		rd = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, r.expand(url), rd)
	req.Header.Set("Content-Type", "application/json")
	if token, ok := r.tokens[as]; ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.handler.ServeHTTP(rec, req)
	return rec
}
