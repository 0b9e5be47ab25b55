// Package plaid is a thin client for the Plaid REST API covering the
// link/exchange flow and the account, balance and transaction reads.
package plaid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"finpull/internal/domain/extract"
)

const (
	defaultTimeout = 30 * time.Second

	linkTokenPath     = "/link/token/create"
	sandboxTokenPath  = "/sandbox/public_token/create"
	exchangePath      = "/item/public_token/exchange"
	accountsPath      = "/accounts/get"
	balancesPath      = "/accounts/balance/get"
	transactionsPath  = "/transactions/get"
	dateFormat        = "2006-01-02"
	linkClientName    = "Data Aggregation Service"
	linkCountryCode   = "US"
	linkLanguage      = "en"
	transactionsScope = "transactions"
)

// environments maps a named environment to its base endpoint.
var environments = map[extract.Environment]string{
	extract.EnvSandbox:     "https://sandbox.plaid.com",
	extract.EnvDevelopment: "https://development.plaid.com",
	extract.EnvProduction:  "https://production.plaid.com",
}

// Client handles communication with the Plaid API for one set of
// credentials. The same bounded client serves both the CLI and the web
// handler paths.
type Client struct {
	httpClient *http.Client
	baseURL    string
	clientID   string
	secret     string
}

// Ensure Client implements the pipeline contracts
var (
	_ extract.TokenBroker     = (*Client)(nil)
	_ extract.ResourceFetcher = (*Client)(nil)
)

// NewClient creates a Plaid client for the credentials' environment.
func NewClient(creds *extract.Credentials) (*Client, error) {
	base, ok := environments[creds.Environment]
	if !ok {
		return nil, fmt.Errorf("%w: no endpoint for environment %q", extract.ErrConfig, creds.Environment)
	}
	return &Client{
		httpClient: &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL:  base,
		clientID: creds.ClientID,
		secret:   creds.Secret,
	}, nil
}

// post performs one JSON POST and returns the raw body and status code.
// A non-nil error means the request never completed; HTTP-level rejection
// is left to the caller so it can classify the failure.
func (c *Client) post(ctx context.Context, path string, payload map[string]any) (json.RawMessage, int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to encode request payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}

	return raw, resp.StatusCode, nil
}

// authPayload seeds every request with the client credentials.
func (c *Client) authPayload() map[string]any {
	return map[string]any{
		"client_id": c.clientID,
		"secret":    c.secret,
	}
}

// CreateLinkToken creates a link-initiation token for the consumer-facing
// widget. The upstream payload is returned verbatim.
func (c *Client) CreateLinkToken(ctx context.Context) (json.RawMessage, error) {
	payload := c.authPayload()
	payload["client_name"] = linkClientName
	payload["language"] = linkLanguage
	payload["country_codes"] = []string{linkCountryCode}
	payload["products"] = []string{transactionsScope}
	payload["user"] = map[string]string{"client_user_id": uuid.NewString()}

	raw, status, err := c.post(ctx, linkTokenPath, payload)
	if err != nil {
		return nil, err
	}
	if status >= http.StatusBadRequest {
		return nil, &extract.UpstreamError{Op: "link token create", StatusCode: status, Body: string(raw), Category: extract.ErrExchange}
	}
	return raw, nil
}

// SandboxPublicToken synthesizes a public token for a sandbox institution,
// simulating the consumer linking flow without a real end user.
func (c *Client) SandboxPublicToken(ctx context.Context, institutionID string) (string, error) {
	payload := c.authPayload()
	payload["institution_id"] = institutionID
	payload["initial_products"] = []string{transactionsScope}

	raw, status, err := c.post(ctx, sandboxTokenPath, payload)
	if err != nil {
		return "", err
	}
	if status >= http.StatusBadRequest {
		return "", &extract.UpstreamError{Op: "sandbox public token create", StatusCode: status, Body: string(raw), Category: extract.ErrExchange}
	}

	var parsed struct {
		PublicToken string `json:"public_token"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return parsed.PublicToken, nil
}

// Exchange trades a one-time public token for a long-lived access token
// and the item identifier it is bound to.
func (c *Client) Exchange(ctx context.Context, publicToken string) (*extract.AccessToken, string, error) {
	payload := c.authPayload()
	payload["public_token"] = publicToken

	raw, status, err := c.post(ctx, exchangePath, payload)
	if err != nil {
		return nil, "", err
	}
	if status >= http.StatusBadRequest {
		return nil, "", &extract.UpstreamError{Op: "public token exchange", StatusCode: status, Body: string(raw), Category: extract.ErrExchange}
	}

	var parsed struct {
		AccessToken string `json:"access_token"`
		ItemID      string `json:"item_id"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	token := &extract.AccessToken{
		Value:      parsed.AccessToken,
		ObtainedAt: time.Now(),
		Scope:      []string{transactionsScope},
	}
	return token, parsed.ItemID, nil
}

// Fetch performs one read for the requested kind. Transactions use the
// descriptor's date window; there is no pagination.
func (c *Client) Fetch(ctx context.Context, token *extract.AccessToken, desc extract.ResourceDescriptor) (*extract.FetchResult, error) {
	payload := c.authPayload()
	payload["access_token"] = token.Value

	var path string
	switch desc.Kind {
	case extract.KindAccounts:
		path = accountsPath
	case extract.KindBalances:
		path = balancesPath
	case extract.KindTransactions:
		path = transactionsPath
		payload["start_date"] = desc.StartDate.Format(dateFormat)
		payload["end_date"] = desc.EndDate.Format(dateFormat)
	default:
		return nil, fmt.Errorf("%w: unsupported resource kind %q", extract.ErrValidation, desc.Kind)
	}

	raw, status, err := c.post(ctx, path, payload)
	if err != nil {
		return nil, err
	}
	if status >= http.StatusBadRequest {
		return nil, &extract.UpstreamError{Op: string(desc.Kind) + " get", StatusCode: status, Body: string(raw), Category: extract.ErrFetch}
	}

	return &extract.FetchResult{
		Kind:      desc.Kind,
		Payload:   raw,
		FetchedAt: time.Now(),
	}, nil
}
