// Package provider describes the vendor credentials and endpoint a Router
// resolves an Agent's backend through.
package provider

// Kind identifies which wire protocol an adapter speaks.
type Kind string

const (
	KindOpenAI    Kind = "openai"
	KindAnthropic Kind = "anthropic"
	KindGoogle    Kind = "google"
)

// Provider is an immutable named credential set for one vendor backend.
type Provider struct {
	Name    string
	Kind    Kind
	APIKey  string
	BaseURL string
}

// New creates a Provider with the given name, kind, and API key.
func New(name string, kind Kind, apiKey string) Provider {
	return Provider{Name: name, Kind: kind, APIKey: apiKey}
}

// WithBaseURL returns a copy of p with BaseURL set, for self-hosted or
// proxy endpoints.
func (p Provider) WithBaseURL(baseURL string) Provider {
	p.BaseURL = baseURL
	return p
}
