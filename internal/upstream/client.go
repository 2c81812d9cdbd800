// Package upstream is the client for the configuration service that owns
// tenants, agents, API keys and plugin settings.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/maimweb/backend/internal/metrics"
)

// Config holds client settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client talks to the configuration service. It never retries: upstream
// mutations are not guaranteed to be idempotent.
type Client struct {
	http    *resty.Client
	metrics metrics.Recorder
	logger  *slog.Logger
}

// New creates a Client.
func New(cfg Config, recorder metrics.Recorder, logger *slog.Logger) *Client {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")

	return &Client{
		http:    httpClient,
		metrics: recorder,
		logger:  logger,
	}
}

// envelope is the response wrapper used by every upstream endpoint.
type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Detail  json.RawMessage `json:"detail"`
}

func (e *envelope) errorMessage() string {
	if e.Message != "" {
		return e.Message
	}
	if len(e.Detail) == 0 || string(e.Detail) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(e.Detail, &s); err == nil {
		return s
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, e.Detail); err == nil {
		return compact.String()
	}
	return string(e.Detail)
}

// call performs one request and returns the unwrapped data payload.
func (c *Client) call(ctx context.Context, op, method, path string, query url.Values, body any) (json.RawMessage, error) {
	start := time.Now()

	req := c.http.R().SetContext(ctx)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	if len(query) > 0 {
		req.SetQueryParamsFromValues(query)
	}

	resp, err := req.Execute(method, path)
	data, err := unwrap(resp, err)

	duration := time.Since(start)
	outcome := outcomeOf(err)
	c.metrics.ObserveUpstreamCall(op, outcome, duration)

	attrs := []any{
		slog.String("op", op),
		slog.String("method", method),
		slog.String("path", path),
		slog.String("outcome", outcome),
		slog.Duration("duration", duration),
	}
	if resp != nil {
		attrs = append(attrs, slog.Int("status", resp.StatusCode()))
	}
	if err != nil {
		c.logger.Warn("upstream call failed", append(attrs, slog.String("error", err.Error()))...)
		return nil, err
	}
	c.logger.Debug("upstream call", attrs...)

	return data, nil
}

func unwrap(resp *resty.Response, err error) (json.RawMessage, error) {
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	status := resp.StatusCode()
	var env envelope
	decodeErr := json.Unmarshal(resp.Body(), &env)

	if status >= http.StatusOK && status < http.StatusMultipleChoices {
		if decodeErr != nil || env.Success == nil {
			return nil, fmt.Errorf("%w: malformed response (status %d)", ErrUnavailable, status)
		}
		if !*env.Success {
			return nil, &BusinessError{Status: status, Message: env.errorMessage()}
		}
		return env.Data, nil
	}

	if decodeErr == nil {
		if msg := env.errorMessage(); msg != "" {
			return nil, &BusinessError{Status: status, Message: msg}
		}
	}
	return nil, fmt.Errorf("%w: status %d", ErrUnavailable, status)
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, ErrBusiness):
		return metrics.OutcomeBusiness
	default:
		return metrics.OutcomeUnavailable
	}
}

// decodeObject renames idKey to "id" and decodes the object into out.
func decodeObject(data json.RawMessage, idKey string, out any) error {
	normalized, err := normalizeID(data, idKey)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(normalized, out); err != nil {
		return fmt.Errorf("%w: decode payload: %v", ErrUnavailable, err)
	}
	return nil
}

// normalizeID rewrites {idKey: x} to {"id": x}. An existing "id" is kept
// only when idKey is absent.
func normalizeID(data json.RawMessage, idKey string) (json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return nil, fmt.Errorf("%w: expected object payload", ErrUnavailable)
	}

	if alias, ok := fields[idKey]; ok && idKey != "id" {
		if len(alias) > 0 && string(alias) != "null" && string(alias) != `""` {
			fields["id"] = alias
		}
		delete(fields, idKey)
	}

	out, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("%w: encode payload: %v", ErrUnavailable, err)
	}
	return out, nil
}

// listPayload is the paginated list shape.
type listPayload struct {
	Items []json.RawMessage `json:"items"`
	Total *int              `json:"total"`
}

// decodeItems accepts either {"items": [...]} or a bare array.
func decodeItems(data json.RawMessage) ([]json.RawMessage, int, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return []json.RawMessage{}, 0, nil
	}

	if trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, 0, fmt.Errorf("%w: decode list: %v", ErrUnavailable, err)
		}
		return items, len(items), nil
	}

	var page listPayload
	if err := json.Unmarshal(trimmed, &page); err != nil {
		return nil, 0, fmt.Errorf("%w: decode list: %v", ErrUnavailable, err)
	}
	if page.Items == nil {
		page.Items = []json.RawMessage{}
	}
	total := len(page.Items)
	if page.Total != nil {
		total = *page.Total
	}
	return page.Items, total, nil
}

// decodeList decodes every item with decodeObject.
func decodeList[T any](data json.RawMessage, idKey string) ([]*T, int, error) {
	raw, total, err := decodeItems(data)
	if err != nil {
		return nil, 0, err
	}

	out := make([]*T, 0, len(raw))
	for _, item := range raw {
		v := new(T)
		if err := decodeObject(item, idKey, v); err != nil {
			return nil, 0, err
		}
		out = append(out, v)
	}
	return out, total, nil
}

func escape(id string) string {
	return url.PathEscape(id)
}
