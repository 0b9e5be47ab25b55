package extract

import (
	"context"
	"fmt"
	"time"
)

// TokenBroker exchanges an authorization artifact for an access credential.
// One network round trip per call.
type TokenBroker interface {
	// SandboxPublicToken synthesizes a one-time public token for a sandbox
	// institution, simulating the consumer linking flow.
	SandboxPublicToken(ctx context.Context, institutionID string) (string, error)

	// Exchange trades an artifact for an access token and the item
	// identifier it is bound to. In the service (client-credential) flow
	// the artifact is empty and the returned item identifier may be too.
	Exchange(ctx context.Context, publicToken string) (*AccessToken, string, error)
}

// ResourceFetcher performs exactly one upstream read per call.
type ResourceFetcher interface {
	Fetch(ctx context.Context, token *AccessToken, desc ResourceDescriptor) (*FetchResult, error)
}

// Sink persists one serialized document per run, keyed by item identifier.
// Implementations never see the access token.
type Sink interface {
	Persist(identifier string, results map[Kind]*FetchResult) (string, error)
}

// Flow selects how the broker obtains the access credential when the
// caller did not supply one.
type Flow int

const (
	// FlowConsumer exchanges a public token obtained out-of-band (or, in
	// sandbox, a synthesized one).
	FlowConsumer Flow = iota
	// FlowService performs a machine-to-machine client-credential grant;
	// no artifact is involved.
	FlowService
)

// RunParams describes one aggregation run.
type RunParams struct {
	Environment Environment
	Flow        Flow

	// AccessToken, when set, skips the broker entirely.
	AccessToken string

	// PublicToken is a consumer-flow artifact already obtained out-of-band.
	PublicToken string

	// InstitutionID selects the sandbox institution to synthesize a
	// public token for when no artifact is supplied.
	InstitutionID string

	// ItemID overrides the identifier the sink keys the output by. When
	// empty, the identifier returned by the exchange is used.
	ItemID string

	Descriptors []ResourceDescriptor
}

// RunResult holds the per-kind documents of a completed run and where the
// sink put them.
type RunResult struct {
	ItemID   string
	Results  map[Kind]*FetchResult
	Location string
}

// Aggregator sequences credential exchange, resource fetches and
// persistence for one identity. Dependencies are injected so runs can be
// exercised against stubs; there is no ambient client state.
type Aggregator struct {
	broker  TokenBroker
	fetcher ResourceFetcher
	sink    Sink
	now     func() time.Time
}

func NewAggregator(broker TokenBroker, fetcher ResourceFetcher, sink Sink) *Aggregator {
	return &Aggregator{
		broker:  broker,
		fetcher: fetcher,
		sink:    sink,
		now:     time.Now,
	}
}

// Run executes one linear pipeline: obtain credential, fetch each
// requested kind in caller order, persist once. The first failure aborts
// the run and nothing is persisted; there is no retry and no partial
// output.
func (a *Aggregator) Run(ctx context.Context, params RunParams) (*RunResult, error) {
	token, itemID, err := a.obtainToken(ctx, params)
	if err != nil {
		return nil, err
	}
	if params.ItemID != "" {
		itemID = params.ItemID
	}
	if itemID == "" {
		itemID = "item"
	}

	results := make(map[Kind]*FetchResult, len(params.Descriptors))
	for _, desc := range params.Descriptors {
		// Between fetches is the only safe cancellation point.
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		normalized, err := desc.Normalize(a.now())
		if err != nil {
			return nil, err
		}
		result, err := a.fetcher.Fetch(ctx, token, normalized)
		if err != nil {
			return nil, err
		}
		results[normalized.Kind] = result
	}

	location, err := a.sink.Persist(itemID, results)
	if err != nil {
		return nil, err
	}

	return &RunResult{ItemID: itemID, Results: results, Location: location}, nil
}

// obtainToken resolves the access credential for a run. Exactly one
// exchange occurs per run unless the caller brought its own token.
func (a *Aggregator) obtainToken(ctx context.Context, params RunParams) (*AccessToken, string, error) {
	if params.AccessToken != "" {
		return &AccessToken{Value: params.AccessToken, ObtainedAt: a.now()}, "", nil
	}

	if params.Flow == FlowService {
		return a.broker.Exchange(ctx, "")
	}

	publicToken := params.PublicToken
	if publicToken == "" {
		// The synthetic linking shortcut only exists in sandbox. Refuse
		// before touching the network.
		if params.Environment != EnvSandbox {
			return nil, "", fmt.Errorf("%w: pass an access token obtained from the consumer linking flow outside sandbox", ErrPolicy)
		}
		var err error
		publicToken, err = a.broker.SandboxPublicToken(ctx, params.InstitutionID)
		if err != nil {
			return nil, "", err
		}
	}

	return a.broker.Exchange(ctx, publicToken)
}
