// Package jira реализует tracker.IssueTrackerClient поверх Jira REST API
// (поиск по JQL с basic auth).
package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"emaide/internal/tracker"
)

// Client - клиент Jira REST API
type Client struct {
	baseURL    string
	email      string
	apiToken   string
	httpClient *http.Client
}

var _ tracker.IssueTrackerClient = (*Client)(nil)

// NewClient создаёт клиент для заданного Jira instance
func NewClient(baseURL, email, apiToken string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		email:      email,
		apiToken:   apiToken,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type searchResponse struct {
	Issues []issue `json:"issues"`
}

type issue struct {
	Key    string `json:"key"`
	Fields struct {
		Status *struct {
			Name string `json:"name"`
		} `json:"status"`
		IssueType *struct {
			Name string `json:"name"`
		} `json:"issuetype"`
		Priority *struct {
			Name string `json:"name"`
		} `json:"priority"`
		Assignee *struct {
			DisplayName string `json:"displayName"`
		} `json:"assignee"`
		Created string `json:"created"`
		Updated string `json:"updated"`
		DueDate string `json:"duedate"`
	} `json:"fields"`
}

// SearchActiveIssues возвращает до maxResults задач проекта,
// недавно обновлённые первыми
func (c *Client) SearchActiveIssues(ctx context.Context, projectKey string, maxResults int) ([]tracker.IssueActivity, error) {
	jql := fmt.Sprintf("project = %q ORDER BY updated DESC", projectKey)
	path := fmt.Sprintf("/rest/api/2/search?jql=%s&maxResults=%d", url.QueryEscape(jql), maxResults)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.email, c.apiToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search issues for %s: %w", projectKey, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search issues for %s: unexpected status %d", projectKey, resp.StatusCode)
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("search issues for %s: %w", projectKey, err)
	}

	activities := make([]tracker.IssueActivity, 0, len(body.Issues))
	for _, iss := range body.Issues {
		activities = append(activities, mapIssue(iss))
	}
	return activities, nil
}

// mapIssue строит типизированную запись: каждое вложенное поле извлекается
// независимо и дефолтится при отсутствии
func mapIssue(iss issue) tracker.IssueActivity {
	activity := tracker.IssueActivity{
		Key:        iss.Key,
		Status:     "Unknown",
		IssueType:  "Unknown",
		CreatedRaw: iss.Fields.Created,
		UpdatedRaw: iss.Fields.Updated,
		DueDate:    iss.Fields.DueDate,
	}
	if iss.Fields.Status != nil && iss.Fields.Status.Name != "" {
		activity.Status = iss.Fields.Status.Name
	}
	if iss.Fields.IssueType != nil && iss.Fields.IssueType.Name != "" {
		activity.IssueType = iss.Fields.IssueType.Name
	}
	if iss.Fields.Priority != nil {
		activity.Priority = iss.Fields.Priority.Name
	}
	if iss.Fields.Assignee != nil {
		activity.AssigneeName = iss.Fields.Assignee.DisplayName
	}
	activity.Blocked = strings.EqualFold(activity.Status, "blocked")
	return activity
}
