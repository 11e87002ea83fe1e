package gh

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestCreateIssue(t *testing.T) {
	mockGH := NewMockServer()
	defer mockGH.Close()

	client := NewWithBaseURL("test-token", mockGH.URL)

	issue, err := client.CreateIssue("owner", "repo", "My Bookmark", "---\nurl: \"https://x.com\"\n---\n", []string{"article", "tech"})
	if err != nil {
		t.Fatalf("CreateIssue() unexpected error: %v", err)
	}

	if issue.Number == 0 {
		t.Error("expected a non-zero issue number")
	}
	if issue.State != "open" {
		t.Errorf("expected state open, got %q", issue.State)
	}
	if issue.HTMLURL == "" {
		t.Error("expected html_url to be set")
	}

	stored := mockGH.GetIssue(issue.Number)
	if stored == nil {
		t.Fatal("issue not stored in mock server")
	}
	if stored.Title != "My Bookmark" {
		t.Errorf("expected title 'My Bookmark', got %q", stored.Title)
	}
	if len(stored.Labels) != 2 || stored.Labels[0].Name != "article" {
		t.Errorf("unexpected labels %v", stored.Labels)
	}
}

func TestGetIssue(t *testing.T) {
	mockGH := NewMockServer()
	defer mockGH.Close()

	mockGH.AddIssue(&Issue{
		Number: 42,
		Title:  "Stored",
		Body:   "body",
		State:  "open",
	})

	client := NewWithBaseURL("test-token", mockGH.URL)

	issue, err := client.GetIssue("owner", "repo", 42)
	if err != nil {
		t.Fatalf("GetIssue() unexpected error: %v", err)
	}
	if issue.Title != "Stored" {
		t.Errorf("expected title 'Stored', got %q", issue.Title)
	}
}

func TestGetIssue_NotFound(t *testing.T) {
	mockGH := NewMockServer()
	defer mockGH.Close()

	client := NewWithBaseURL("test-token", mockGH.URL)

	_, err := client.GetIssue("owner", "repo", 999)
	if err == nil {
		t.Fatal("expected error for missing issue")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != 404 {
		t.Errorf("expected status 404, got %d", apiErr.StatusCode)
	}
}

func TestUpdateIssue(t *testing.T) {
	mockGH := NewMockServer()
	defer mockGH.Close()

	mockGH.AddIssue(&Issue{Number: 1, Title: "Old", Body: "old", State: "closed"})

	client := NewWithBaseURL("test-token", mockGH.URL)

	title := "New"
	state := "open"
	labels := []string{"video"}
	issue, err := client.UpdateIssue("owner", "repo", 1, IssueUpdate{
		Title:  &title,
		State:  &state,
		Labels: &labels,
	})
	if err != nil {
		t.Fatalf("UpdateIssue() unexpected error: %v", err)
	}

	if issue.Title != "New" {
		t.Errorf("expected title 'New', got %q", issue.Title)
	}
	if issue.State != "open" {
		t.Errorf("expected update to reopen the issue, got state %q", issue.State)
	}
	if issue.Body != "old" {
		t.Errorf("expected untouched body to survive, got %q", issue.Body)
	}
	if len(issue.Labels) != 1 || issue.Labels[0].Name != "video" {
		t.Errorf("unexpected labels %v", issue.Labels)
	}
}

func TestCloseIssue(t *testing.T) {
	mockGH := NewMockServer()
	defer mockGH.Close()

	mockGH.AddIssue(&Issue{Number: 5, Title: "T", State: "open"})

	client := NewWithBaseURL("test-token", mockGH.URL)

	issue, err := client.CloseIssue("owner", "repo", 5)
	if err != nil {
		t.Fatalf("CloseIssue() unexpected error: %v", err)
	}
	if issue.State != "closed" {
		t.Errorf("expected state closed, got %q", issue.State)
	}
}

func TestListIssues_Pagination(t *testing.T) {
	mockGH := NewMockServer()
	defer mockGH.Close()

	for i := 1; i <= 5; i++ {
		mockGH.AddIssue(&Issue{Number: i, Title: fmt.Sprintf("Issue %d", i), State: "open"})
	}

	client := NewWithBaseURL("test-token", mockGH.URL)

	page1, err := client.ListIssues("owner", "repo", "open", 1, 2)
	if err != nil {
		t.Fatalf("ListIssues() unexpected error: %v", err)
	}
	if len(page1) != 2 {
		t.Fatalf("expected 2 issues on page 1, got %d", len(page1))
	}
	// Newest first.
	if page1[0].Number != 5 || page1[1].Number != 4 {
		t.Errorf("expected issues 5,4 first, got %d,%d", page1[0].Number, page1[1].Number)
	}

	page3, err := client.ListIssues("owner", "repo", "open", 3, 2)
	if err != nil {
		t.Fatalf("ListIssues() unexpected error: %v", err)
	}
	if len(page3) != 1 {
		t.Errorf("expected short final page with 1 issue, got %d", len(page3))
	}
}

func TestListIssues_StateFilter(t *testing.T) {
	mockGH := NewMockServer()
	defer mockGH.Close()

	mockGH.AddIssue(&Issue{Number: 1, State: "open"})
	mockGH.AddIssue(&Issue{Number: 2, State: "closed"})

	client := NewWithBaseURL("test-token", mockGH.URL)

	open, err := client.ListIssues("owner", "repo", "open", 1, 100)
	if err != nil {
		t.Fatalf("ListIssues() unexpected error: %v", err)
	}
	if len(open) != 1 || open[0].Number != 1 {
		t.Errorf("expected only open issue 1, got %v", open)
	}

	all, err := client.ListIssues("owner", "repo", "all", 1, 100)
	if err != nil {
		t.Fatalf("ListIssues() unexpected error: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 issues with state=all, got %d", len(all))
	}
}

func TestRateLimitError(t *testing.T) {
	mockGH := NewMockServer()
	defer mockGH.Close()

	reset := time.Now().Add(30 * time.Minute).Unix()
	mockGH.SetRateLimited(reset)

	client := NewWithBaseURL("test-token", mockGH.URL)

	_, err := client.ListIssues("owner", "repo", "open", 1, 100)
	if err == nil {
		t.Fatal("expected rate limit error")
	}

	var rlErr *RateLimitError
	if !errors.As(err, &rlErr) {
		t.Fatalf("expected *RateLimitError, got %T: %v", err, err)
	}
	if rlErr.ResetAt.Unix() != reset {
		t.Errorf("expected reset at %d, got %d", reset, rlErr.ResetAt.Unix())
	}
	if !strings.Contains(err.Error(), "rate limit") {
		t.Errorf("expected a rate limit message, got %q", err.Error())
	}
	// The message must carry a readable reset time, not just a status.
	if !strings.Contains(err.Error(), "resets at") {
		t.Errorf("expected reset time in message, got %q", err.Error())
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		t.Error("rate limit must not surface as a generic APIError")
	}
}

func TestAPIError_Message(t *testing.T) {
	mockGH := NewMockServer()
	defer mockGH.Close()

	mockGH.SetNextError(422, `{"message":"Validation Failed"}`)

	client := NewWithBaseURL("test-token", mockGH.URL)

	_, err := client.CreateIssue("owner", "repo", "T", "b", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "422") || !strings.Contains(err.Error(), "Validation Failed") {
		t.Errorf("expected status and message surfaced verbatim, got %q", err.Error())
	}
}

func TestIsPullRequest(t *testing.T) {
	issue := Issue{Number: 1}
	if issue.IsPullRequest() {
		t.Error("plain issue must not be a pull request")
	}

	pr := Issue{Number: 2, PullRequest: &struct {
		URL string `json:"url"`
	}{URL: "https://api.github.com/repos/o/r/pulls/2"}}
	if !pr.IsPullRequest() {
		t.Error("expected pull request detection")
	}
}
