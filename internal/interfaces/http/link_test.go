package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"finpull/internal/domain/extract"
)

// MockCreator implements LinkTokenCreator
type MockCreator struct {
	CreateLinkTokenFunc func(ctx context.Context) (json.RawMessage, error)
}

func (m *MockCreator) CreateLinkToken(ctx context.Context) (json.RawMessage, error) {
	if m.CreateLinkTokenFunc != nil {
		return m.CreateLinkTokenFunc(ctx)
	}
	return json.RawMessage(`{"link_token":"link-sandbox-abc"}`), nil
}

// MockRunner implements Runner
type MockRunner struct {
	RunFunc func(ctx context.Context, params extract.RunParams) (*extract.RunResult, error)

	calls []extract.RunParams
}

func (m *MockRunner) Run(ctx context.Context, params extract.RunParams) (*extract.RunResult, error) {
	m.calls = append(m.calls, params)
	if m.RunFunc != nil {
		return m.RunFunc(ctx, params)
	}
	return &extract.RunResult{ItemID: "item1", Location: "storage/transactions_item1.json"}, nil
}

func TestHandleCreateLinkToken_ForwardsVerbatim(t *testing.T) {
	handler := NewLinkHandler(&MockCreator{}, &MockRunner{}, extract.EnvSandbox)

	req := httptest.NewRequest(http.MethodPost, "/api/create_link_token", nil)
	rr := httptest.NewRecorder()

	handler.HandleCreateLinkToken(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if got := rr.Body.String(); got != `{"link_token":"link-sandbox-abc"}` {
		t.Errorf("body = %s, want upstream payload verbatim", got)
	}
	if got := rr.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got)
	}
}

func TestHandleCreateLinkToken_MethodNotAllowed(t *testing.T) {
	handler := NewLinkHandler(&MockCreator{}, &MockRunner{}, extract.EnvSandbox)

	req := httptest.NewRequest(http.MethodGet, "/api/create_link_token", nil)
	rr := httptest.NewRecorder()

	handler.HandleCreateLinkToken(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rr.Code)
	}
}

func TestHandleExchangePublicToken_Success(t *testing.T) {
	runner := &MockRunner{}
	handler := NewLinkHandler(&MockCreator{}, runner, extract.EnvSandbox)

	req := httptest.NewRequest(http.MethodPost, "/api/exchange_public_token",
		strings.NewReader(`{"public_token":"public-token-xyz"}`))
	rr := httptest.NewRecorder()

	handler.HandleExchangePublicToken(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rr.Code, rr.Body.String())
	}

	var resp exchangeResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if resp.Status != "complete" {
		t.Errorf("status = %q, want complete", resp.Status)
	}
	if resp.FileSaved != "storage/transactions_item1.json" {
		t.Errorf("file_saved = %q", resp.FileSaved)
	}

	if len(runner.calls) != 1 {
		t.Fatalf("run calls = %d, want 1", len(runner.calls))
	}
	params := runner.calls[0]
	if params.PublicToken != "public-token-xyz" {
		t.Errorf("PublicToken = %q", params.PublicToken)
	}
	wantKinds := []extract.Kind{extract.KindAccounts, extract.KindBalances, extract.KindTransactions}
	if len(params.Descriptors) != len(wantKinds) {
		t.Fatalf("descriptors = %d, want %d", len(params.Descriptors), len(wantKinds))
	}
	for i, kind := range wantKinds {
		if params.Descriptors[i].Kind != kind {
			t.Errorf("descriptor %d = %q, want %q", i, params.Descriptors[i].Kind, kind)
		}
	}
}

func TestHandleExchangePublicToken_MissingToken(t *testing.T) {
	runner := &MockRunner{}
	handler := NewLinkHandler(&MockCreator{}, runner, extract.EnvSandbox)

	req := httptest.NewRequest(http.MethodPost, "/api/exchange_public_token", strings.NewReader(`{}`))
	rr := httptest.NewRecorder()

	handler.HandleExchangePublicToken(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
	if len(runner.calls) != 0 {
		t.Errorf("run calls = %d, want 0", len(runner.calls))
	}
}

func TestHandleExchangePublicToken_UpstreamErrorPropagated(t *testing.T) {
	runner := &MockRunner{
		RunFunc: func(ctx context.Context, params extract.RunParams) (*extract.RunResult, error) {
			return nil, &extract.UpstreamError{
				Op:         "public token exchange",
				StatusCode: http.StatusUnauthorized,
				Body:       `{"error_code":"INVALID_PUBLIC_TOKEN"}`,
				Category:   extract.ErrExchange,
			}
		},
	}
	handler := NewLinkHandler(&MockCreator{}, runner, extract.EnvSandbox)

	req := httptest.NewRequest(http.MethodPost, "/api/exchange_public_token",
		strings.NewReader(`{"public_token":"stale"}`))
	rr := httptest.NewRecorder()

	handler.HandleExchangePublicToken(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want upstream 401", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "INVALID_PUBLIC_TOKEN") {
		t.Errorf("body = %q, want upstream text preserved", rr.Body.String())
	}
}

func TestWriteError_Taxonomy(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "validation", err: extract.ErrValidation, want: http.StatusBadRequest},
		{name: "policy", err: extract.ErrPolicy, want: http.StatusBadRequest},
		{name: "config", err: extract.ErrConfig, want: http.StatusBadRequest},
		{name: "auth without status", err: extract.ErrAuth, want: http.StatusBadGateway},
		{name: "fetch without status", err: extract.ErrFetch, want: http.StatusBadGateway},
		{name: "upstream status wins", err: &extract.UpstreamError{StatusCode: 503, Category: extract.ErrFetch}, want: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeError(rr, tt.err)
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestHandleHealth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()

	HandleHealth(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
	if rr.Body.String() != `{"status":"ok"}` {
		t.Errorf("body = %q", rr.Body.String())
	}
}
