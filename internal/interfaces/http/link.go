package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"finpull/internal/domain/extract"
)

// LinkTokenCreator starts the consumer linking flow upstream.
type LinkTokenCreator interface {
	CreateLinkToken(ctx context.Context) (json.RawMessage, error)
}

// Runner executes one aggregation run.
type Runner interface {
	Run(ctx context.Context, params extract.RunParams) (*extract.RunResult, error)
}

type LinkHandler struct {
	creator     LinkTokenCreator
	runner      Runner
	environment extract.Environment
}

func NewLinkHandler(creator LinkTokenCreator, runner Runner, environment extract.Environment) *LinkHandler {
	return &LinkHandler{creator: creator, runner: runner, environment: environment}
}

// HandleCreateLinkToken forwards the upstream link-initiation payload
// verbatim to the consumer-facing widget.
func (h *LinkHandler) HandleCreateLinkToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	payload, err := h.creator.CreateLinkToken(r.Context())
	if err != nil {
		log.Printf("Error creating link token: %v", err)
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(payload)
}

type exchangeRequest struct {
	PublicToken string `json:"public_token"`
}

type exchangeResponse struct {
	Status    string `json:"status"`
	FileSaved string `json:"file_saved"`
}

// HandleExchangePublicToken trades the widget's public token for an access
// token, pulls the account, balance and transaction documents, and
// persists them under the exchanged item id.
func (h *LinkHandler) HandleExchangePublicToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req exchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.PublicToken == "" {
		http.Error(w, "public_token is required", http.StatusBadRequest)
		return
	}

	result, err := h.runner.Run(r.Context(), extract.RunParams{
		Environment: h.environment,
		PublicToken: req.PublicToken,
		Descriptors: []extract.ResourceDescriptor{
			{Kind: extract.KindAccounts},
			{Kind: extract.KindBalances},
			{Kind: extract.KindTransactions},
		},
	})
	if err != nil {
		log.Printf("Error running exchange for public token: %v", err)
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(exchangeResponse{Status: "complete", FileSaved: result.Location})
}

// HandleHealth returns a simple health check response.
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// writeError maps the extraction error taxonomy onto HTTP statuses.
// Upstream rejections propagate the upstream status and text.
func writeError(w http.ResponseWriter, err error) {
	var upstream *extract.UpstreamError
	if errors.As(err, &upstream) && upstream.StatusCode >= http.StatusBadRequest {
		http.Error(w, upstream.Error(), upstream.StatusCode)
		return
	}

	switch {
	case errors.Is(err, extract.ErrValidation), errors.Is(err, extract.ErrConfig), errors.Is(err, extract.ErrPolicy):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, extract.ErrAuth), errors.Is(err, extract.ErrExchange), errors.Is(err, extract.ErrFetch):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
