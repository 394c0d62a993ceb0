package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/schoolstack/sisgo/pkg/sissdk"
)

// fakeSIS keeps students in memory and answers the endpoints the builtin
// workflows touch.
type fakeSIS struct {
	mu       sync.Mutex
	students map[string]map[string]any
	nextID   int
}

func newFakeSIS() *fakeSIS {
	return &fakeSIS{students: make(map[string]map[string]any)}
}

func (f *fakeSIS) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.students)
}

func (f *fakeSIS) handler(t *testing.T) http.Handler {
	t.Helper()
	write := func(w http.ResponseWriter, status int, data any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{"success": status < 400, "data": data})
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		write(w, http.StatusOK, map[string]any{"accessToken": "t1", "refreshToken": "r1"})
	})
	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		write(w, http.StatusOK, nil)
	})
	mux.HandleFunc("POST /students", func(w http.ResponseWriter, r *http.Request) {
		var student map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&student))

		f.mu.Lock()
		f.nextID++
		id := fmt.Sprintf("s-%d", f.nextID)
		student["id"] = id
		f.students[id] = student
		f.mu.Unlock()

		write(w, http.StatusCreated, student)
	})
	mux.HandleFunc("GET /students", func(w http.ResponseWriter, r *http.Request) {
		term := strings.ToLower(r.URL.Query().Get("search"))
		f.mu.Lock()
		var matches []map[string]any
		for _, s := range f.students {
			last, _ := s["lastName"].(string)
			if term == "" || strings.Contains(strings.ToLower(last), term) {
				matches = append(matches, s)
			}
		}
		f.mu.Unlock()
		write(w, http.StatusOK, matches)
	})
	mux.HandleFunc("GET /students/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		student, ok := f.students[r.PathValue("id")]
		f.mu.Unlock()
		if !ok {
			write(w, http.StatusNotFound, nil)
			return
		}
		write(w, http.StatusOK, student)
	})
	mux.HandleFunc("PATCH /students/{id}", func(w http.ResponseWriter, r *http.Request) {
		var fields map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&fields))

		f.mu.Lock()
		student, ok := f.students[r.PathValue("id")]
		if ok {
			for k, v := range fields {
				student[k] = v
			}
		}
		f.mu.Unlock()
		if !ok {
			write(w, http.StatusNotFound, nil)
			return
		}
		write(w, http.StatusOK, student)
	})
	mux.HandleFunc("DELETE /students/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		_, ok := f.students[r.PathValue("id")]
		delete(f.students, r.PathValue("id"))
		f.mu.Unlock()
		if !ok {
			write(w, http.StatusNotFound, nil)
			return
		}
		write(w, http.StatusOK, nil)
	})
	return mux
}

func newWorkflowClient(t *testing.T, baseURL string) *sissdk.Client {
	t.Helper()
	client, err := sissdk.New(sissdk.Config{
		BaseURL:    baseURL,
		TenantSlug: "springfield",
		Email:      "admin@springfield.edu",
		Password:   "secure-password",
	})
	require.NoError(t, err)
	_, err = client.Login(context.Background(), "", "", "")
	require.NoError(t, err)
	return client
}

func TestRunStudentLifecycle(t *testing.T) {
	t.Parallel()

	sis := newFakeSIS()
	srv := httptest.NewServer(sis.handler(t))
	defer srv.Close()

	wf, err := Builtin("student_lifecycle")
	require.NoError(t, err)

	runner := NewRunner(newWorkflowClient(t, srv.URL))
	result, err := runner.Run(context.Background(), wf)
	require.NoError(t, err)

	require.True(t, result.Passed)
	require.NotEmpty(t, result.RunID)
	require.Len(t, result.Steps, len(wf.Steps))
	for _, step := range result.Steps {
		require.Equal(t, StepPassed, step.Status, "step %s: %s", step.Name, step.Error)
	}

	// Cleanup removed the created student.
	require.Equal(t, 1, result.Cleaned)
	require.Empty(t, result.CleanupErrors)
	require.Zero(t, sis.count())
}

func TestRunHaltsOnFailureAndStillCleansUp(t *testing.T) {
	t.Parallel()

	sis := newFakeSIS()
	srv := httptest.NewServer(sis.handler(t))
	defer srv.Close()

	wf, err := Parse([]byte(`
name: halts
steps:
  - name: create
    action: students.create
    register: student
    with:
      firstName: Ava
      lastName: Chen
  - name: fetch_missing
    action: students.get
    with:
      id: no-such-student
  - name: never_runs
    action: students.search
    with:
      term: chen
`))
	require.NoError(t, err)

	runner := NewRunner(newWorkflowClient(t, srv.URL))
	result, err := runner.Run(context.Background(), wf)
	require.NoError(t, err)

	require.False(t, result.Passed)
	require.Equal(t, StepPassed, result.Steps[0].Status)
	require.Equal(t, StepFailed, result.Steps[1].Status)
	require.Equal(t, StepSkipped, result.Steps[2].Status)

	require.Equal(t, 1, result.Cleaned)
	require.Zero(t, sis.count())
}

func TestRunContinueOnError(t *testing.T) {
	t.Parallel()

	sis := newFakeSIS()
	srv := httptest.NewServer(sis.handler(t))
	defer srv.Close()

	wf, err := Parse([]byte(`
name: tolerant
steps:
  - name: fetch_missing
    action: students.get
    continueOnError: true
    with:
      id: no-such-student
  - name: still_runs
    action: students.search
    with:
      term: anything
`))
	require.NoError(t, err)

	runner := NewRunner(newWorkflowClient(t, srv.URL))
	result, err := runner.Run(context.Background(), wf)
	require.NoError(t, err)

	require.False(t, result.Passed)
	require.Equal(t, StepFailed, result.Steps[0].Status)
	require.Equal(t, StepPassed, result.Steps[1].Status)
}

func TestRunFailedAssertionFailsStep(t *testing.T) {
	t.Parallel()

	sis := newFakeSIS()
	srv := httptest.NewServer(sis.handler(t))
	defer srv.Close()

	wf, err := Parse([]byte(`
name: assertion
steps:
  - name: create
    action: students.create
    with:
      firstName: Ava
      status: active
    expect:
      - field: status
        equals: withdrawn
`))
	require.NoError(t, err)

	runner := NewRunner(newWorkflowClient(t, srv.URL))
	result, err := runner.Run(context.Background(), wf)
	require.NoError(t, err)

	require.False(t, result.Passed)
	require.Equal(t, StepFailed, result.Steps[0].Status)
	require.Len(t, result.Steps[0].Checks, 1)
	require.Contains(t, result.Steps[0].Checks[0].Detail, "want")
}
