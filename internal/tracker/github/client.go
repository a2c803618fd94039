// Package github реализует tracker.CodeHostClient поверх GitHub REST API.
// Работает и с GitHub Cloud (https://api.github.com), и с GHE
// (https://<host>/api/v3).
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"emaide/internal/tracker"
)

const perPage = 100

// Client - клиент GitHub REST API
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var _ tracker.CodeHostClient = (*Client)(nil)

// NewClient создаёт клиент для заданного API base URL.
// Пустой токен допустим - публичные репозитории доступны без него.
func NewClient(apiBaseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(apiBaseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// pull - ответ GitHub для pull request (и списка, и детали)
type pull struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	State  string `json:"state"`
	User   *struct {
		Login string `json:"login"`
	} `json:"user"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
	MergedAt     string `json:"merged_at"`
	ClosedAt     string `json:"closed_at"`
	Additions    *int   `json:"additions"`
	Deletions    *int   `json:"deletions"`
	ChangedFiles *int   `json:"changed_files"`
}

type review struct {
	User *struct {
		Login string `json:"login"`
	} `json:"user"`
	State       string `json:"state"`
	SubmittedAt string `json:"submitted_at"`
}

// IterateChangeRequests перебирает PR репозитория страницами, отсортированные
// по updated_at по убыванию. Размерные счётчики (additions/deletions/
// changed_files) отсутствуют в списочном ответе и дотягиваются отдельным
// запросом детали; сбой этого запроса оставляет нули и не прерывает перебор.
func (c *Client) IterateChangeRequests(ctx context.Context, owner, repo string, fn func(tracker.ChangeRequestActivity) error) error {
	for page := 1; ; page++ {
		path := fmt.Sprintf("/repos/%s/%s/pulls?state=all&sort=updated&direction=desc&per_page=%d&page=%d",
			url.PathEscape(owner), url.PathEscape(repo), perPage, page)

		var pulls []pull
		if err := c.getJSON(ctx, path, &pulls); err != nil {
			return fmt.Errorf("list pull requests %s/%s page %d: %w", owner, repo, page, err)
		}
		if len(pulls) == 0 {
			return nil
		}

		for _, p := range pulls {
			activity := c.mapPull(ctx, owner, repo, p)
			if err := fn(activity); err != nil {
				if errors.Is(err, tracker.ErrStop) {
					return nil
				}
				return err
			}
		}

		if len(pulls) < perPage {
			return nil
		}
	}
}

// mapPull строит типизированную запись активности из ответа трекера.
// Каждое поле извлекается независимо и дефолтится при отсутствии.
func (c *Client) mapPull(ctx context.Context, owner, repo string, p pull) tracker.ChangeRequestActivity {
	activity := tracker.ChangeRequestActivity{
		Number:    p.Number,
		Title:     p.Title,
		State:     p.State,
		CreatedAt: parseTime(p.CreatedAt),
		UpdatedAt: parseTime(p.UpdatedAt),
		MergedAt:  parseTime(p.MergedAt),
		ClosedAt:  parseTime(p.ClosedAt),
	}
	if p.User != nil {
		activity.AuthorLogin = p.User.Login
	}

	// Списочный ответ не содержит размеров - дотягиваем деталь
	if p.Additions == nil {
		detailPath := fmt.Sprintf("/repos/%s/%s/pulls/%d", url.PathEscape(owner), url.PathEscape(repo), p.Number)
		var detail pull
		if err := c.getJSON(ctx, detailPath, &detail); err != nil {
			log.Warn().
				Err(err).
				Str("layer", "tracker").
				Int("number", p.Number).
				Msg("failed to fetch pull request detail, size counters left unset")
			return activity
		}
		p = detail
	}
	if p.Additions != nil {
		activity.Additions = *p.Additions
	}
	if p.Deletions != nil {
		activity.Deletions = *p.Deletions
	}
	if p.ChangedFiles != nil {
		activity.ChangedFiles = *p.ChangedFiles
	}
	return activity
}

// ListReviews возвращает ревью одного pull request
func (c *Client) ListReviews(ctx context.Context, owner, repo string, number int) ([]tracker.ReviewActivity, error) {
	path := fmt.Sprintf("/repos/%s/%s/pulls/%d/reviews?per_page=%d",
		url.PathEscape(owner), url.PathEscape(repo), number, perPage)

	var reviews []review
	if err := c.getJSON(ctx, path, &reviews); err != nil {
		return nil, fmt.Errorf("list reviews %s/%s#%d: %w", owner, repo, number, err)
	}

	activities := make([]tracker.ReviewActivity, 0, len(reviews))
	for _, rv := range reviews {
		activity := tracker.ReviewActivity{
			State:       rv.State,
			SubmittedAt: parseTime(rv.SubmittedAt),
		}
		if rv.User != nil {
			activity.ReviewerLogin = rv.User.Login
		}
		activities = append(activities, activity)
	}
	return activities, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", strconv.Itoa(resp.StatusCode))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// parseTime разбирает RFC3339 timestamp трекера.
// Пустая или невалидная строка оставляет поле незаполненным.
func parseTime(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	u := t.UTC()
	return &u
}
