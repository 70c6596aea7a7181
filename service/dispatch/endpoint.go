package dispatch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/handrail/handrail/model/approval"
)

// Endpoint submits one decision to the backend. Implementations must issue
// exactly one request per call and report failure via error; the engine never
// retries.
type Endpoint interface {
	Submit(ctx context.Context, item *approval.Item, verb approval.Verb) error
}

// HTTPEndpoint addresses decisions as
// POST {base}/hands/{agentId}/approvals/{actionId}/{verb}.
// Any 2xx response is success; everything else is failure.
type HTTPEndpoint struct {
	baseURL string
	client  *http.Client
}

// NewHTTPEndpoint creates an endpoint against baseURL with the given request
// timeout.
func NewHTTPEndpoint(baseURL string, timeout time.Duration) *HTTPEndpoint {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPEndpoint{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Submit issues the decision request.
func (e *HTTPEndpoint) Submit(ctx context.Context, item *approval.Item, verb approval.Verb) error {
	target := fmt.Sprintf("%s/hands/%s/approvals/%s/%s",
		e.baseURL,
		url.PathEscape(item.AgentID),
		url.PathEscape(item.ActionID),
		url.PathEscape(string(verb)),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, nil)
	if err != nil {
		return err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("decision endpoint returned %s", resp.Status)
	}
	return nil
}

var _ Endpoint = (*HTTPEndpoint)(nil)
