// Package msgraph is a thin client for the Microsoft Graph API using the
// machine-to-machine client-credential flow.
package msgraph

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"finpull/internal/domain/extract"
)

const (
	defaultTimeout = 30 * time.Second
	graphBaseURL   = "https://graph.microsoft.com/v1.0"
	defaultScope   = "https://graph.microsoft.com/.default"
	tokenURLFormat = "https://login.microsoftonline.com/%s/oauth2/v2.0/token"
)

// Client handles communication with Microsoft Graph for one tenant and
// one mailbox.
type Client struct {
	httpClient *http.Client
	baseURL    string
	mailbox    string
	grant      clientcredentials.Config
}

// Ensure Client implements the pipeline contracts
var (
	_ extract.TokenBroker     = (*Client)(nil)
	_ extract.ResourceFetcher = (*Client)(nil)
)

// NewClient creates a Graph client scoped to one user mailbox.
func NewClient(tenantID, clientID, clientSecret, mailbox string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL: graphBaseURL,
		mailbox: mailbox,
		grant: clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     fmt.Sprintf(tokenURLFormat, tenantID),
			Scopes:       []string{defaultScope},
		},
	}
}

// SandboxPublicToken is unsupported: the identity platform has no sandbox
// linking flow.
func (c *Client) SandboxPublicToken(ctx context.Context, institutionID string) (string, error) {
	return "", fmt.Errorf("%w: identity platform has no sandbox linking flow", extract.ErrPolicy)
}

// Exchange performs the client-credential grant. The artifact is ignored;
// this is the service flow. A provider error description is surfaced
// unmodified.
func (c *Client) Exchange(ctx context.Context, _ string) (*extract.AccessToken, string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	tok, err := c.grant.Token(ctx)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			description := retrieveErr.ErrorDescription
			if description == "" {
				description = string(retrieveErr.Body)
			}
			status := 0
			if retrieveErr.Response != nil {
				status = retrieveErr.Response.StatusCode
			}
			return nil, "", &extract.UpstreamError{Op: "client credential grant", StatusCode: status, Body: description, Category: extract.ErrAuth}
		}
		return nil, "", fmt.Errorf("%w: %v", extract.ErrAuth, err)
	}

	token := &extract.AccessToken{
		Value:      tok.AccessToken,
		ObtainedAt: time.Now(),
		ExpiresIn:  tok.ExpiresIn,
		Scope:      []string{defaultScope},
	}
	return token, "", nil
}

// Fetch reads the newest messages for the configured mailbox. One GET, one
// page; the $top cap is the documented truncation behavior.
func (c *Client) Fetch(ctx context.Context, token *extract.AccessToken, desc extract.ResourceDescriptor) (*extract.FetchResult, error) {
	if desc.Kind != extract.KindMessages {
		return nil, fmt.Errorf("%w: unsupported resource kind %q", extract.ErrValidation, desc.Kind)
	}

	query := url.Values{}
	query.Set("$top", strconv.Itoa(desc.Limit))
	endpoint := fmt.Sprintf("%s/users/%s/messages?%s", c.baseURL, url.PathEscape(c.mailbox), query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.Value)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &extract.UpstreamError{Op: "messages get", StatusCode: resp.StatusCode, Body: string(raw), Category: extract.ErrFetch}
	}

	return &extract.FetchResult{
		Kind:      desc.Kind,
		Payload:   raw,
		FetchedAt: time.Now(),
	}, nil
}
