package msgraph

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"finpull/internal/domain/extract"
)

func testTokenServer(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient("tenant-1", "client-123", "secret-456", "finance@example.com")
	client.grant.TokenURL = server.URL + "/token"
	client.baseURL = server.URL
	return client
}

func TestExchange_ClientCredentialGrant(t *testing.T) {
	client := testTokenServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/token" {
			t.Errorf("path = %q, want /token", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse form: %v", err)
		}
		if got := r.Form.Get("grant_type"); got != "client_credentials" {
			t.Errorf("grant_type = %q, want client_credentials", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"graph-token-abc","token_type":"Bearer","expires_in":3599}`))
	}))

	token, itemID, err := client.Exchange(context.Background(), "")
	if err != nil {
		t.Fatalf("Exchange() failed: %v", err)
	}
	if token.Value != "graph-token-abc" {
		t.Errorf("token value = %q, want graph-token-abc", token.Value)
	}
	if token.ExpiresIn != 3599 {
		t.Errorf("ExpiresIn = %d, want 3599", token.ExpiresIn)
	}
	if itemID != "" {
		t.Errorf("item id = %q, want empty for service flow", itemID)
	}
}

func TestExchange_ProviderErrorDescriptionPreserved(t *testing.T) {
	client := testTokenServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid_client","error_description":"AADSTS7000215: Invalid client secret provided."}`))
	}))

	_, _, err := client.Exchange(context.Background(), "")
	if !errors.Is(err, extract.ErrAuth) {
		t.Fatalf("Exchange() error = %v, want ErrAuth", err)
	}

	var upstream *extract.UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatal("expected UpstreamError")
	}
	if upstream.Body != "AADSTS7000215: Invalid client secret provided." {
		t.Errorf("Body = %q, provider description must be preserved unmodified", upstream.Body)
	}
}

func TestSandboxPublicToken_Refused(t *testing.T) {
	client := NewClient("tenant-1", "client-123", "secret-456", "finance@example.com")

	_, err := client.SandboxPublicToken(context.Background(), "ins_109508")
	if !errors.Is(err, extract.ErrPolicy) {
		t.Errorf("SandboxPublicToken() error = %v, want ErrPolicy", err)
	}
}

func TestFetch_Messages(t *testing.T) {
	messages := `{"value":[{"subject":"Invoice"}]}`
	client := testTokenServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/finance@example.com/messages" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("$top"); got != "10" {
			t.Errorf("$top = %q, want 10", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer graph-token-abc" {
			t.Errorf("Authorization = %q, want bearer token", got)
		}
		w.Write([]byte(messages))
	}))

	result, err := client.Fetch(context.Background(), &extract.AccessToken{Value: "graph-token-abc"}, extract.ResourceDescriptor{
		Kind:  extract.KindMessages,
		Limit: 10,
	})
	if err != nil {
		t.Fatalf("Fetch() failed: %v", err)
	}
	if string(result.Payload) != messages {
		t.Errorf("Payload = %s, want upstream body verbatim", result.Payload)
	}
}

func TestFetch_WrongKind(t *testing.T) {
	client := NewClient("tenant-1", "client-123", "secret-456", "finance@example.com")

	_, err := client.Fetch(context.Background(), &extract.AccessToken{Value: "tok"}, extract.ResourceDescriptor{Kind: extract.KindAccounts})
	if !errors.Is(err, extract.ErrValidation) {
		t.Errorf("Fetch() error = %v, want ErrValidation", err)
	}
}

func TestFetch_UpstreamRejection(t *testing.T) {
	client := testTokenServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"code":"ErrorAccessDenied"}}`))
	}))

	_, err := client.Fetch(context.Background(), &extract.AccessToken{Value: "tok"}, extract.ResourceDescriptor{Kind: extract.KindMessages, Limit: 10})
	if !errors.Is(err, extract.ErrFetch) {
		t.Fatalf("Fetch() error = %v, want ErrFetch", err)
	}

	var upstream *extract.UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatal("expected UpstreamError")
	}
	if upstream.StatusCode != http.StatusForbidden {
		t.Errorf("StatusCode = %d, want 403", upstream.StatusCode)
	}
}
