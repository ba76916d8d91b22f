// Package client is a REST client for the registry's lookup endpoints,
// used by the CLI pickers.
package client

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/barangay-rbi/registry/internal/typeahead"
)

// Client talks to a running registry server.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

// Options configure a Client.
type Options struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	Retries int
}

type envelope[T any] struct {
	Data T `json:"data"`
}

type apiError struct {
	Message string            `json:"error"`
	Code    string            `json:"code"`
	Details map[string]string `json:"details"`
}

// Error is a non-2xx response from the server.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("registry returned %d", e.Status)
	}
	return fmt.Sprintf("registry returned %d: %s", e.Status, e.Message)
}

// New creates a client.
func New(opts Options, logger *zap.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	rc := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.Retries).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Accept", "application/json").
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal)
	if opts.Token != "" {
		rc.SetAuthToken(opts.Token)
	}

	return &Client{http: rc, logger: logger}
}

func (c *Client) get(ctx context.Context, path string, query map[string]string, out any) error {
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(query).
		SetResult(out).
		SetError(&apiErr).
		Get(path)
	return c.check(path, resp, err, apiErr)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(out).
		SetError(&apiErr).
		Post(path)
	return c.check(path, resp, err, apiErr)
}

func (c *Client) check(path string, resp *resty.Response, err error, apiErr apiError) error {
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", path, err)
	}
	if resp.IsError() {
		c.logger.Debug("registry request failed",
			zap.String("path", path),
			zap.Int("status_code", resp.StatusCode()),
			zap.String("error", apiErr.Message),
		)
		return &Error{Status: resp.StatusCode(), Code: apiErr.Code, Message: apiErr.Message}
	}
	return nil
}

// PlaceQuery narrows a PSGC search.
type PlaceQuery struct {
	Level  string
	Parent string
	Limit  int
}

// SearchPlaces queries GET /psgc/search.
func (c *Client) SearchPlaces(ctx context.Context, q string, pq PlaceQuery) ([]typeahead.GeographicRecord, error) {
	params := map[string]string{"q": q}
	if pq.Level != "" {
		params["level"] = pq.Level
	}
	if pq.Parent != "" {
		params["parent"] = pq.Parent
	}
	if pq.Limit > 0 {
		params["limit"] = strconv.Itoa(pq.Limit)
	}

	var out envelope[[]typeahead.GeographicRecord]
	if err := c.get(ctx, "/psgc/search", params, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// SearchOccupations queries GET /psoc/search.
func (c *Client) SearchOccupations(ctx context.Context, q string, limit int) ([]typeahead.OccupationRecord, error) {
	params := map[string]string{"q": q}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}

	var out envelope[[]typeahead.OccupationRecord]
	if err := c.get(ctx, "/psoc/search", params, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// CreateOccupation posts a custom occupation title.
func (c *Client) CreateOccupation(ctx context.Context, title string) (typeahead.Option, error) {
	var out envelope[typeahead.Option]
	if err := c.post(ctx, "/psoc", map[string]string{"title": title}, &out); err != nil {
		return typeahead.Option{}, err
	}
	return out.Data, nil
}

// Options fetches a fixed option list such as "civil_status".
func (c *Client) Options(ctx context.Context, kind, q string) ([]typeahead.Option, error) {
	var out envelope[[]typeahead.Option]
	var params map[string]string
	if q != "" {
		params = map[string]string{"q": q}
	}
	if err := c.get(ctx, "/options/"+kind, params, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// PlaceSearch adapts SearchPlaces to a picker.
func (c *Client) PlaceSearch(pq PlaceQuery) typeahead.SearchFunc {
	return func(ctx context.Context, q string) ([]typeahead.Option, error) {
		records, err := c.SearchPlaces(ctx, q, pq)
		if err != nil {
			return nil, err
		}
		return typeahead.FromGeographicRecords(records), nil
	}
}

// OccupationSearch adapts SearchOccupations to a picker.
func (c *Client) OccupationSearch(limit int) typeahead.SearchFunc {
	return func(ctx context.Context, q string) ([]typeahead.Option, error) {
		records, err := c.SearchOccupations(ctx, q, limit)
		if err != nil {
			return nil, err
		}
		return typeahead.FromOccupationRecords(records), nil
	}
}

// OccupationCreate adapts CreateOccupation to a picker.
func (c *Client) OccupationCreate() typeahead.CreateFunc {
	return c.CreateOccupation
}
