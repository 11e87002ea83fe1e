package gh

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MockServer provides a fake GitHub API for testing.
type MockServer struct {
	*httptest.Server
	mu         sync.RWMutex
	issues     map[int]*Issue // issue number -> issue
	nextNumber int

	nextErrStatus  int
	nextErrBody    string
	rateLimitReset int64 // unix seconds; 0 = not rate limited
}

// NewMockServer creates a mock GitHub API server.
func NewMockServer() *MockServer {
	m := &MockServer{
		issues:     make(map[int]*Issue),
		nextNumber: 1,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/repos/", func(w http.ResponseWriter, r *http.Request) {
		if m.serveForcedError(w) {
			return
		}

		parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/repos/"), "/")
		if len(parts) < 3 || parts[2] != "issues" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		if len(parts) == 3 {
			// /repos/{owner}/{repo}/issues
			switch r.Method {
			case http.MethodGet:
				m.handleListIssues(w, r)
			case http.MethodPost:
				m.handleCreateIssue(w, r)
			default:
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			}
			return
		}

		if len(parts) == 4 {
			// /repos/{owner}/{repo}/issues/{number}
			number, err := strconv.Atoi(parts[3])
			if err != nil {
				http.Error(w, "invalid issue number", http.StatusBadRequest)
				return
			}
			switch r.Method {
			case http.MethodGet:
				m.handleGetIssue(w, number)
			case http.MethodPatch:
				m.handleUpdateIssue(w, r, number)
			default:
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			}
			return
		}

		http.Error(w, "not found", http.StatusNotFound)
	})

	m.Server = httptest.NewServer(mux)
	return m
}

// AddIssue adds an issue to the mock server, assigning a number if the
// issue has none.
func (m *MockServer) AddIssue(issue *Issue) *Issue {
	m.mu.Lock()
	defer m.mu.Unlock()

	if issue.Number == 0 {
		issue.Number = m.nextNumber
	}
	if issue.Number >= m.nextNumber {
		m.nextNumber = issue.Number + 1
	}
	if issue.State == "" {
		issue.State = "open"
	}
	if issue.HTMLURL == "" {
		issue.HTMLURL = m.URL + "/owner/repo/issues/" + strconv.Itoa(issue.Number)
	}
	m.issues[issue.Number] = issue
	return issue
}

// GetIssue retrieves an issue (for test assertions).
func (m *MockServer) GetIssue(number int) *Issue {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.issues[number]
}

// IssueCount returns the number of stored issues.
func (m *MockServer) IssueCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.issues)
}

// Reset clears all issues and forced errors.
func (m *MockServer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issues = make(map[int]*Issue)
	m.nextNumber = 1
	m.nextErrStatus = 0
	m.nextErrBody = ""
	m.rateLimitReset = 0
}

// SetNextError makes the next request fail with the given status and body.
func (m *MockServer) SetNextError(status int, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextErrStatus = status
	m.nextErrBody = body
}

// SetRateLimited makes every request fail with a 403 rate-limit
// response resetting at the given unix time, until Reset is called.
func (m *MockServer) SetRateLimited(resetUnix int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rateLimitReset = resetUnix
}

// serveForcedError writes a configured error response, if any.
func (m *MockServer) serveForcedError(w http.ResponseWriter) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.rateLimitReset != 0 {
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(m.rateLimitReset, 10))
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message":"API rate limit exceeded"}`))
		return true
	}

	if m.nextErrStatus != 0 {
		status, body := m.nextErrStatus, m.nextErrBody
		m.nextErrStatus = 0
		m.nextErrBody = ""
		w.WriteHeader(status)
		w.Write([]byte(body))
		return true
	}

	return false
}

func (m *MockServer) handleListIssues(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state := r.URL.Query().Get("state")
	if state == "" {
		state = "open"
	}

	issues := make([]*Issue, 0, len(m.issues))
	for _, issue := range m.issues {
		if state != "all" && issue.State != state {
			continue
		}
		issues = append(issues, issue)
	}

	// Newest first, matching sort=created&direction=desc.
	sort.Slice(issues, func(i, j int) bool {
		return issues[i].Number > issues[j].Number
	})

	perPage := 30
	if pp := r.URL.Query().Get("per_page"); pp != "" {
		if n, err := strconv.Atoi(pp); err == nil && n > 0 {
			perPage = n
		}
	}
	page := 1
	if p := r.URL.Query().Get("page"); p != "" {
		if n, err := strconv.Atoi(p); err == nil && n > 0 {
			page = n
		}
	}

	start := (page - 1) * perPage
	if start > len(issues) {
		start = len(issues)
	}
	end := start + perPage
	if end > len(issues) {
		end = len(issues)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(issues[start:end])
}

func (m *MockServer) handleCreateIssue(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Title  string   `json:"title"`
		Body   string   `json:"body"`
		Labels []string `json:"labels"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	labels := make([]Label, len(payload.Labels))
	for i, name := range payload.Labels {
		labels[i] = Label{Name: name}
	}

	now := time.Now().UTC()
	issue := &Issue{
		Title:     payload.Title,
		Body:      payload.Body,
		Labels:    labels,
		State:     "open",
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.AddIssue(issue)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(issue)
}

func (m *MockServer) handleGetIssue(w http.ResponseWriter, number int) {
	m.mu.RLock()
	issue, ok := m.issues[number]
	m.mu.RUnlock()

	if !ok {
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(issue)
}

func (m *MockServer) handleUpdateIssue(w http.ResponseWriter, r *http.Request, number int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	issue, ok := m.issues[number]
	if !ok {
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
		return
	}

	var update struct {
		Title  *string   `json:"title"`
		Body   *string   `json:"body"`
		Labels *[]string `json:"labels"`
		State  *string   `json:"state"`
	}
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	if update.Title != nil {
		issue.Title = *update.Title
	}
	if update.Body != nil {
		issue.Body = *update.Body
	}
	if update.Labels != nil {
		labels := make([]Label, len(*update.Labels))
		for i, name := range *update.Labels {
			labels[i] = Label{Name: name}
		}
		issue.Labels = labels
	}
	if update.State != nil {
		issue.State = *update.State
	}
	issue.UpdatedAt = time.Now().UTC()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(issue)
}
