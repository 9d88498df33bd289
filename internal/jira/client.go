// Package jira implements the issue source: a paginated search client over
// the Jira REST search endpoint, returning issues with their change history.
package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"effortwatch/internal/errors"
	"effortwatch/internal/mode"
	"effortwatch/internal/observability"
	"effortwatch/internal/util"
)

const defaultPageSize = 100

// Client fetches issues for one project. It is safe for sequential use by the
// month loop; the limiter throttles page requests against the remote API.
type Client struct {
	baseURL  string
	token    string
	project  string
	statuses []string
	pageSize int
	http     *http.Client
	limiter  *util.Limiter
}

type ClientOptions struct {
	BaseURL           string
	AuthToken         string
	Project           string
	Statuses          []string
	PageSize          int
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
}

func NewClient(opts ClientOptions) *Client {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	rps := opts.RequestsPerSecond
	if rps <= 0 {
		rps = 4
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 2
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		token:    opts.AuthToken,
		project:  opts.Project,
		statuses: opts.Statuses,
		pageSize: pageSize,
		http:     &http.Client{Timeout: timeout},
		limiter:  util.NewLimiter(rps, burst),
	}
}

func (c *Client) Project() string {
	return c.project
}

// BuildJQL builds the search query for one month window restricted to the
// mode's issue types and the configured statuses.
func (c *Client) BuildJQL(startDate, endDate string, m mode.TrackingMode) string {
	return fmt.Sprintf(`created >= "%s" AND project = %s AND type IN (%s) AND status IN (%s) AND created <= "%s"`,
		startDate, c.project, quoteList(m.IssueTypes), quoteList(c.statuses), endDate)
}

// FetchIssues returns every issue in the window, following nextPageToken
// until the API reports the last page. A transport or API failure surfaces as
// a SOURCE_FETCH error; there are no silent partial results.
func (c *Client) FetchIssues(ctx context.Context, startDate, endDate string, m mode.TrackingMode) ([]Issue, error) {
	jql := c.BuildJQL(startDate, endDate, m)

	started := time.Now()
	var all []Issue
	nextPageToken := ""
	page := 0
	for {
		page++
		if err := c.limiter.Wait(ctx, 1); err != nil {
			return nil, errors.Wrap(err, errors.CodeSourceFetch, "rate limiter wait")
		}

		resp, err := c.fetchPage(ctx, jql, m.FieldID, nextPageToken)
		if err != nil {
			return nil, err
		}
		observability.FetchPagesTotal.WithLabelValues(m.ID).Inc()
		slog.Debug("fetched issue page", "mode", m.ID, "page", page, "issues", len(resp.Issues), "last", resp.IsLast)

		all = append(all, resp.Issues...)

		if resp.IsLast || resp.NextPageToken == "" {
			break
		}
		nextPageToken = resp.NextPageToken
	}

	observability.FetchDuration.WithLabelValues(m.ID).Observe(time.Since(started).Seconds())
	observability.IssuesFetchedTotal.WithLabelValues(m.ID).Add(float64(len(all)))
	return all, nil
}

func (c *Client) fetchPage(ctx context.Context, jql, fieldID, nextPageToken string) (*searchResponse, error) {
	query := url.Values{}
	query.Set("jql", jql)
	query.Set("fields", fieldID)
	query.Set("expand", "changelog")
	query.Set("maxResults", strconv.Itoa(c.pageSize))
	if nextPageToken != "" {
		query.Set("nextPageToken", nextPageToken)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeSourceFetch, "build search request")
	}
	req.Header.Set("Authorization", c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeSourceFetch, "issue search request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, errors.New(errors.CodeSourceFetch,
			fmt.Sprintf("issue search returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, errors.Wrap(err, errors.CodeSourceFetch, "decode search response")
	}
	return &parsed, nil
}

func quoteList(values []string) string {
	quoted := make([]string, 0, len(values))
	for _, v := range values {
		quoted = append(quoted, `"`+v+`"`)
	}
	return strings.Join(quoted, ", ")
}
