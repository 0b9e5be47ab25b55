package extract

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Environment identifies which upstream deployment a run targets.
type Environment string

const (
	EnvSandbox     Environment = "sandbox"
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

// ParseEnvironment normalizes and validates an environment name.
func ParseEnvironment(name string) (Environment, error) {
	switch env := Environment(strings.ToLower(strings.TrimSpace(name))); env {
	case EnvSandbox, EnvDevelopment, EnvProduction:
		return env, nil
	default:
		return "", fmt.Errorf("%w: environment must be one of sandbox, development, production (got %q)", ErrConfig, name)
	}
}

// Credentials holds the environment-sourced secrets for one upstream
// identity. Immutable once loaded.
type Credentials struct {
	ClientID    string
	Secret      string
	Environment Environment
	TenantID    string
}

// AccessToken is the capability returned by a token exchange. Expiry is
// recorded when the provider reports it but never checked; the upstream
// contract specifies no refresh policy.
type AccessToken struct {
	Value      string
	ObtainedAt time.Time
	ExpiresIn  int64
	Scope      []string
}

// String keeps the token value out of logs and formatted errors.
func (t *AccessToken) String() string {
	return "[redacted]"
}

// Kind names a fetchable resource.
type Kind string

const (
	KindAccounts     Kind = "accounts"
	KindBalances     Kind = "balances"
	KindTransactions Kind = "transactions"
	KindMessages     Kind = "messages"
)

const (
	defaultWindowDays = 30
	defaultMessageTop = 10
	dateOnly          = "2006-01-02"
)

// ResourceDescriptor specifies what to fetch. Zero StartDate/EndDate means
// "use the default window"; zero Limit means "use the default page size".
type ResourceDescriptor struct {
	Kind      Kind
	StartDate time.Time
	EndDate   time.Time
	Limit     int
}

// Normalize applies per-kind defaults and validates caller-supplied
// parameters. It never makes a network call.
func (d ResourceDescriptor) Normalize(now time.Time) (ResourceDescriptor, error) {
	switch d.Kind {
	case KindTransactions:
		if d.StartDate.IsZero() && d.EndDate.IsZero() {
			d.EndDate = now
			d.StartDate = now.AddDate(0, 0, -defaultWindowDays)
		}
		if d.StartDate.After(d.EndDate) {
			return d, fmt.Errorf("%w: window start %s is after end %s",
				ErrValidation, d.StartDate.Format(dateOnly), d.EndDate.Format(dateOnly))
		}
	case KindMessages:
		if d.Limit == 0 {
			d.Limit = defaultMessageTop
		}
		if d.Limit < 0 {
			return d, fmt.Errorf("%w: limit must be positive (got %d)", ErrValidation, d.Limit)
		}
	case KindAccounts, KindBalances:
		// No window or limit semantics.
	default:
		return d, fmt.Errorf("%w: unknown resource kind %q", ErrValidation, d.Kind)
	}
	return d, nil
}

// FetchResult is one normalized upstream document. Payload is the upstream
// body verbatim; no custom schema is imposed.
type FetchResult struct {
	Kind      Kind            `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	FetchedAt time.Time       `json:"fetched_at"`
}
