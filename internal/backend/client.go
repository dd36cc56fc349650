package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/BruksfildServices01/vet-agenda/internal/httperr"
	"github.com/BruksfildServices01/vet-agenda/internal/logging"
	"github.com/BruksfildServices01/vet-agenda/internal/metrics"
)

const defaultTimeout = 15 * time.Second

type credentialsKey struct{}

// Credentials identify the signed-in user towards the clinic API.
type Credentials struct {
	Token    string
	ClinicID string
}

// WithCredentials attaches the bearer token and clinic to ctx.
func WithCredentials(ctx context.Context, cred Credentials) context.Context {
	return context.WithValue(ctx, credentialsKey{}, cred)
}

// HasCredentials reports whether ctx carries a token for the clinic API.
func HasCredentials(ctx context.Context) bool {
	cred, ok := credentialsFrom(ctx)
	return ok && cred.Token != ""
}

func credentialsFrom(ctx context.Context) (Credentials, bool) {
	cred, ok := ctx.Value(credentialsKey{}).(Credentials)
	return cred, ok
}

// Client wraps the REST calls the agenda screens make against the clinic API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *logging.Logger
	metrics    *metrics.BackendMetrics
}

func NewClient(baseURL string, timeout time.Duration, logger *logging.Logger, m *metrics.BackendMetrics) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
		metrics:    m,
	}
}

// errorBody covers the shapes the clinic API uses for failures.
type errorBody struct {
	Message string            `json:"message"`
	Error   string            `json:"error"`
	Code    string            `json:"error_code"`
	Fields  map[string]string `json:"fields"`
	Errors  json.RawMessage   `json:"errors"`
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, body, out any) error {
	started := time.Now()
	err := c.send(ctx, method, path, body, out)

	outcome := "ok"
	if err != nil {
		outcome = httperr.KindOf(err).String()
	}
	c.metrics.ObserveRequest(op, outcome, time.Since(started).Seconds())

	return err
}

func (c *Client) send(ctx context.Context, method, path string, body, out any) error {
	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cred, ok := credentialsFrom(ctx); ok {
		if cred.Token != "" {
			req.Header.Set("Authorization", "Bearer "+cred.Token)
		}
		if cred.ClinicID != "" {
			req.Header.Set("X-Clinic-ID", cred.ClinicID)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := decodeError(resp.StatusCode, respBody)
		c.logger.Warn("clinic API non-2xx response",
			"status", resp.StatusCode,
			"method", method,
			"path", path,
			"code", apiErr.Code,
		)
		return apiErr
	}

	if len(respBody) == 0 || out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(status int, raw []byte) *httperr.APIError {
	apiErr := &httperr.APIError{Status: status}

	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil {
		msg := strings.TrimSpace(string(raw))
		if len(msg) > 300 {
			msg = msg[:300]
		}
		if msg == "" {
			msg = http.StatusText(status)
		}
		apiErr.Message = msg
		return apiErr
	}

	apiErr.Code = body.Code
	apiErr.Message = body.Message
	if apiErr.Message == "" {
		apiErr.Message = body.Error
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	apiErr.Fields = body.Fields
	if len(apiErr.Fields) == 0 && len(body.Errors) > 0 {
		apiErr.Fields = decodeFieldErrors(body.Errors)
	}

	return apiErr
}

// decodeFieldErrors accepts {"field": "msg"}, {"field": ["msg", ...]} and
// [{"field": "...", "message": "..."}].
func decodeFieldErrors(raw json.RawMessage) map[string]string {
	var flat map[string]string
	if err := json.Unmarshal(raw, &flat); err == nil {
		return flat
	}

	var multi map[string][]string
	if err := json.Unmarshal(raw, &multi); err == nil {
		out := make(map[string]string, len(multi))
		for k, v := range multi {
			out[k] = strings.Join(v, "; ")
		}
		return out
	}

	var list []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &list); err == nil {
		out := make(map[string]string, len(list))
		for _, e := range list {
			if prev, ok := out[e.Field]; ok {
				out[e.Field] = prev + "; " + e.Message
				continue
			}
			out[e.Field] = e.Message
		}
		return out
	}

	return nil
}
