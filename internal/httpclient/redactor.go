// Package httpclient implements the HTTP-based service.RedactorClient the
// Dispatcher uses to call the Redactor's two role-specific endpoints,
// carrying an identity token minted per target audience (spec.md §4.1 step
// 5).
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/connexus-ai/convo-redact/internal/service"
)

// redactorCallTimeout is the per-call deadline spec.md §5 names for HTTP
// calls to the Redactor.
const redactorCallTimeout = 10 * time.Second

// RedactorHTTPClient implements service.RedactorClient over plain HTTP.
type RedactorHTTPClient struct {
	baseURL    string
	httpClient *http.Client
	tokens     service.TokenMinter
}

// NewRedactorHTTPClient creates a RedactorHTTPClient pointed at baseURL,
// minting bearer tokens for baseURL as the audience via tokens.
func NewRedactorHTTPClient(baseURL string, tokens service.TokenMinter) *RedactorHTTPClient {
	return &RedactorHTTPClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: redactorCallTimeout},
		tokens:     tokens,
	}
}

type agentRequest struct {
	ConversationID string `json:"conversation_id"`
	Transcript     string `json:"transcript"`
}

type agentResponse struct {
	Message      string `json:"message"`
	ExpectedPII  string `json:"expected_pii,omitempty"`
}

type customerResponse struct {
	RedactedTranscript string `json:"redacted_transcript"`
	ContextUsed        bool   `json:"context_used"`
}

// HandleAgentUtterance calls POST /handle-agent-utterance.
func (c *RedactorHTTPClient) HandleAgentUtterance(ctx context.Context, conversationID, transcript string) (string, bool, error) {
	body, err := c.post(ctx, "/handle-agent-utterance", agentRequest{ConversationID: conversationID, Transcript: transcript})
	if err != nil {
		return "", false, err
	}
	var resp agentResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", false, fmt.Errorf("httpclient.HandleAgentUtterance: decode response: %w", err)
	}
	return resp.ExpectedPII, resp.ExpectedPII != "", nil
}

// HandleCustomerUtterance calls POST /handle-customer-utterance.
func (c *RedactorHTTPClient) HandleCustomerUtterance(ctx context.Context, conversationID, transcript string) (string, bool, error) {
	body, err := c.post(ctx, "/handle-customer-utterance", agentRequest{ConversationID: conversationID, Transcript: transcript})
	if err != nil {
		return "", false, err
	}
	var resp customerResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", false, fmt.Errorf("httpclient.HandleCustomerUtterance: decode response: %w", err)
	}
	return resp.RedactedTranscript, resp.ContextUsed, nil
}

func (c *RedactorHTTPClient) post(ctx context.Context, path string, body interface{}) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("httpclient.post: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("httpclient.post: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if c.tokens != nil {
		token, err := c.tokens.IDToken(ctx, c.baseURL)
		if err != nil {
			return nil, fmt.Errorf("httpclient.post: mint identity token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpclient.post %s: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpclient.post %s: read response: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &service.ErrRedactorRejected{StatusCode: resp.StatusCode}
	}
	return respBody, nil
}
