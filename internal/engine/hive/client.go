package hive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	apperrors "hiveroadmap/internal/pkg/errors"
	"hiveroadmap/internal/pkg/metrics"
	"hiveroadmap/internal/platform/config"
	"hiveroadmap/internal/platform/models"
)

// Page is one page of the upstream submission list.
type Page struct {
	Results      []json.RawMessage `json:"results"`
	Page         int               `json:"page"`
	Limit        int               `json:"limit"`
	TotalPages   int               `json:"totalPages"`
	TotalResults int               `json:"totalResults"`
}

type PageQuery struct {
	StatusID      string
	SortBy        string
	InReview      bool
	IncludePinned bool
	Page          int
}

// Client talks to the upstream feedback API. It has no business logic.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(cfg config.HiveConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) OrganizationURL() string {
	return c.baseURL + "/api/v1/organization"
}

func (c *Client) SubmissionURL() string {
	return c.baseURL + "/api/v1/submission"
}

func (c *Client) GetOrganization(ctx context.Context) (*models.OrganizationRaw, error) {
	var org models.OrganizationRaw
	_, err := c.getJSON(ctx, "organization", c.OrganizationURL(), nil, &org)
	if err != nil {
		return nil, apperrors.Internal("Failed to fetch organization", upstreamDetails(err), err)
	}
	return &org, nil
}

func (c *Client) FetchPage(ctx context.Context, q PageQuery) (*Page, error) {
	if q.StatusID == "" {
		return nil, apperrors.BadRequest("statusId is required", nil)
	}
	if q.Page < 1 {
		q.Page = 1
	}

	params := url.Values{}
	params.Set("s", q.StatusID)
	params.Set("sortBy", q.SortBy)
	params.Set("inReview", strconv.FormatBool(q.InReview))
	params.Set("includePinned", strconv.FormatBool(q.IncludePinned))
	params.Set("page", strconv.Itoa(q.Page))

	var page Page
	if _, err := c.getJSON(ctx, "submission_page", c.SubmissionURL(), params, &page); err != nil {
		return nil, apperrors.Internal("Failed to fetch submissions page", upstreamDetails(err), err)
	}
	return &page, nil
}

// FetchSubmission looks a single submission up by id. An upstream 404 is
// reported as not found.
func (c *Client) FetchSubmission(ctx context.Context, id string) (*Page, error) {
	if id == "" {
		return nil, apperrors.BadRequest("id is required", nil)
	}

	params := url.Values{}
	params.Set("id", id)

	var page Page
	status, err := c.getJSON(ctx, "submission", c.SubmissionURL(), params, &page)
	if status == http.StatusNotFound {
		return nil, apperrors.NotFound("Submission not found", map[string]string{"id": id})
	}
	if err != nil {
		return nil, apperrors.Internal("Failed to fetch submission", upstreamDetails(err), err)
	}
	return &page, nil
}

// statusError is returned for non-2xx upstream responses and keeps the body.
type statusError struct {
	StatusCode int
	Body       []byte
}

func (e *statusError) Error() string {
	return fmt.Sprintf("upstream responded with status %d", e.StatusCode)
}

func (c *Client) getJSON(ctx context.Context, endpoint, rawURL string, params url.Values, dst interface{}) (status int, err error) {
	defer func() {
		metrics.UpstreamRequests.WithLabelValues(endpoint, metrics.Outcome(err)).Inc()
	}()

	if len(params) > 0 {
		rawURL = rawURL + "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.Error().Err(err).Str("endpoint", endpoint).Msg("upstream request failed")
		return 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, err
	}

	log.Debug().
		Str("endpoint", endpoint).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("upstream request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, &statusError{StatusCode: resp.StatusCode, Body: body}
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return resp.StatusCode, fmt.Errorf("decode upstream response: %w", err)
	}
	return resp.StatusCode, nil
}

// upstreamDetails returns the raw upstream error payload: decoded JSON when
// the body is JSON, the body text otherwise, and the error message when there
// was no response at all.
func upstreamDetails(err error) interface{} {
	se, ok := err.(*statusError)
	if !ok {
		return err.Error()
	}
	if len(se.Body) == 0 {
		return se.Error()
	}
	var decoded interface{}
	if json.Unmarshal(se.Body, &decoded) == nil {
		return decoded
	}
	return string(se.Body)
}
