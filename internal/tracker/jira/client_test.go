package jira

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchBody = `{
  "issues": [
    {
      "key": "PROJ-1",
      "fields": {
        "status": {"name": "Blocked"},
        "issuetype": {"name": "Story"},
        "priority": {"name": "High"},
        "assignee": {"displayName": "Dana Developer"},
        "created": "2026-08-10T09:00:00.000+0300",
        "updated": "2026-08-25T14:30:00.000+0300",
        "duedate": "2026-09-01"
      }
    },
    {
      "key": "PROJ-2",
      "fields": {
        "status": {"name": "In Progress"},
        "issuetype": {"name": "Bug"},
        "created": "2026-08-20T09:00:00.000+0300",
        "updated": "2026-08-26T10:00:00.000+0300"
      }
    },
    {
      "key": "PROJ-3",
      "fields": {}
    }
  ]
}`

func TestSearchActiveIssues(t *testing.T) {
	// Arrange
	var gotPath, gotJQL, gotMax string
	var gotUser, gotPass string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotJQL = r.URL.Query().Get("jql")
		gotMax = r.URL.Query().Get("maxResults")
		gotUser, gotPass, _ = r.BasicAuth()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(searchBody))
	}))
	defer server.Close()

	client := NewClient(server.URL, "em@acme.io", "api-token", 5*time.Second)

	// Act
	issues, err := client.SearchActiveIssues(context.Background(), "PROJ", 200)

	// Assert: запрос
	require.NoError(t, err)
	assert.Equal(t, "/rest/api/2/search", gotPath)
	assert.Equal(t, `project = "PROJ" ORDER BY updated DESC`, gotJQL)
	assert.Equal(t, "200", gotMax)
	assert.Equal(t, "em@acme.io", gotUser)
	assert.Equal(t, "api-token", gotPass)

	// Assert: маппинг полей
	require.Len(t, issues, 3)

	first := issues[0]
	assert.Equal(t, "PROJ-1", first.Key)
	assert.Equal(t, "Blocked", first.Status)
	assert.Equal(t, "Story", first.IssueType)
	assert.Equal(t, "High", first.Priority)
	assert.Equal(t, "Dana Developer", first.AssigneeName)
	assert.Equal(t, "2026-08-10T09:00:00.000+0300", first.CreatedRaw)
	assert.Equal(t, "2026-09-01", first.DueDate)
	assert.True(t, first.Blocked)

	second := issues[1]
	assert.Equal(t, "In Progress", second.Status)
	assert.Empty(t, second.AssigneeName)
	assert.False(t, second.Blocked)

	// Отсутствующие вложенные поля дефолтятся
	third := issues[2]
	assert.Equal(t, "Unknown", third.Status)
	assert.Equal(t, "Unknown", third.IssueType)
	assert.Empty(t, third.AssigneeName)
	assert.False(t, third.Blocked)
}

func TestSearchActiveIssues_BlockedCaseInsensitive(t *testing.T) {
	// Arrange
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"issues":[{"key":"PROJ-4","fields":{"status":{"name":"BLOCKED"}}}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "em@acme.io", "api-token", 5*time.Second)

	// Act
	issues, err := client.SearchActiveIssues(context.Background(), "PROJ", 10)

	// Assert
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.True(t, issues[0].Blocked)
}

func TestSearchActiveIssues_HTTPError(t *testing.T) {
	// Arrange
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(server.URL, "em@acme.io", "bad-token", 5*time.Second)

	// Act
	_, err := client.SearchActiveIssues(context.Background(), "PROJ", 10)

	// Assert
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 401")
}
