package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/clienthunter/leadwatch/internal/metrics"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

const userAgent = "Leadwatch/1.0"

// Request describes a single call to the backend
type Request struct {
	Op     string // operation name used in logs, metrics and errors
	Method string
	Path   string
	Query  url.Values
	Body   interface{}
	// Fallback replaces DefaultFailureMessage when the server gives no detail
	Fallback string
}

// Client sends JSON requests to the lead backend
type Client struct {
	client  *resty.Client
	baseURL string
}

// NewClient creates a client rooted at baseURL (e.g. http://localhost:8000/api/v1)
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		client: resty.New().
			SetTimeout(timeout).
			SetHeader("User-Agent", userAgent).
			SetHeader("Accept", "application/json"),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// BaseURL returns the root every request path is appended to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends req and returns the raw body of a 2xx response
func (c *Client) Do(ctx context.Context, req Request) ([]byte, error) {
	start := time.Now()
	fallback := req.Fallback
	if fallback == "" {
		fallback = DefaultFailureMessage
	}

	r := c.client.R().SetContext(ctx)
	if req.Body != nil {
		r.SetHeader("Content-Type", "application/json").SetBody(req.Body)
	}
	if len(req.Query) > 0 {
		r.SetQueryParamsFromValues(req.Query)
	}

	resp, err := r.Execute(req.Method, c.baseURL+req.Path)
	metrics.APIRequestDuration.WithLabelValues(req.Op).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.APIRequestsTotal.WithLabelValues(req.Op, "transport_error").Inc()
		logrus.WithFields(logrus.Fields{
			"op":     req.Op,
			"method": req.Method,
			"path":   req.Path,
		}).Debugf("Request failed before a response: %v", err)
		return nil, &TransportError{Op: req.Op, Fallback: fallback, Err: err}
	}

	logrus.WithFields(logrus.Fields{
		"op":       req.Op,
		"method":   req.Method,
		"path":     req.Path,
		"status":   resp.StatusCode(),
		"duration": time.Since(start).String(),
	}).Debug("Backend request completed")

	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		metrics.APIRequestsTotal.WithLabelValues(req.Op, "request_failed").Inc()
		return nil, &RequestFailedError{
			Op:         req.Op,
			StatusCode: resp.StatusCode(),
			Message:    extractMessage(resp.Body(), fallback),
		}
	}

	metrics.APIRequestsTotal.WithLabelValues(req.Op, "success").Inc()
	return resp.Body(), nil
}

// extractMessage pulls a human readable message out of an error payload.
// FastAPI uses "detail", either a string or a list of {msg} objects.
func extractMessage(body []byte, fallback string) string {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return fallback
	}

	if len(payload.Detail) > 0 {
		var detail string
		if err := json.Unmarshal(payload.Detail, &detail); err == nil && strings.TrimSpace(detail) != "" {
			return detail
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(payload.Detail, &items); err == nil {
			var msgs []string
			for _, item := range items {
				if item.Msg != "" {
					msgs = append(msgs, item.Msg)
				}
			}
			if len(msgs) > 0 {
				return strings.Join(msgs, "; ")
			}
		}
	}

	if strings.TrimSpace(payload.Message) != "" {
		return payload.Message
	}
	return fallback
}

// Fetch sends req and decodes a {status, data, message} envelope into T
func Fetch[T any](ctx context.Context, c *Client, req Request) (T, error) {
	var zero T
	body, err := c.Do(ctx, req)
	if err != nil {
		return zero, err
	}
	return DecodeData[T](req.Op, body)
}

// Ack sends req and accepts a success envelope with or without data
func Ack(ctx context.Context, c *Client, req Request) (string, error) {
	body, err := c.Do(ctx, req)
	if err != nil {
		return "", err
	}
	return DecodeAck(req.Op, body)
}

// FetchResult sends req and decodes a {status, result} analysis envelope into T
func FetchResult[T any](ctx context.Context, c *Client, req Request) (T, error) {
	var zero T
	body, err := c.Do(ctx, req)
	if err != nil {
		return zero, err
	}
	fallback := req.Fallback
	if fallback == "" {
		fallback = DefaultFailureMessage
	}
	return DecodeResult[T](req.Op, fallback, body)
}

// FetchRaw sends req and decodes the bare JSON body into T. Used by the
// messaging-group read endpoints, which return data without an envelope.
func FetchRaw[T any](ctx context.Context, c *Client, req Request) (T, error) {
	var out T
	body, err := c.Do(ctx, req)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(body, &out); err != nil {
		metrics.APIRequestsTotal.WithLabelValues(req.Op, "decode_error").Inc()
		return out, &DecodeError{Op: req.Op, Reason: "invalid JSON body", Err: err}
	}
	return out, nil
}

// PathEscape joins path segments, escaping each one
func PathEscape(segments ...interface{}) string {
	var b strings.Builder
	for _, s := range segments {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(fmt.Sprint(s)))
	}
	return b.String()
}
