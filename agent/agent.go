// Package agent defines the immutable Agent descriptor: a named
// configuration binding instructions, a model identifier, and a provider.
package agent

// Config is the full set of fields an Agent carries. Extra holds
// provider-specific parameters (e.g. top_p, stop sequences); none of the
// built-in llm adapters copies them into the wire request.
type Config struct {
	Name            string
	Instructions    string
	Model           string
	Provider        string
	MaxOutputTokens int
	Reasoning       bool
	ReasoningEffort string
	ReasoningBudget int
	Temperature     float64
	Extra           map[string]any
}

// Agent is a lightweight, immutable descriptor. It does not call a model or
// execute tools itself — the Runtime does, via the Router.
type Agent struct {
	config Config
}

// Option mutates a Config during construction.
type Option func(*Config)

// New creates an Agent with sensible defaults (Temperature=1,
// MaxOutputTokens=4096, ReasoningEffort="medium") overridable by opts.
func New(name, instructions, model, provider string, opts ...Option) *Agent {
	cfg := Config{
		Name:            name,
		Instructions:    instructions,
		Model:           model,
		Provider:        provider,
		MaxOutputTokens: 4096,
		ReasoningEffort: "medium",
		Temperature:     1.0,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &Agent{config: cfg}
}

// NewWithConfig creates an Agent from a fully-specified Config.
func NewWithConfig(cfg Config) *Agent {
	return &Agent{config: cfg}
}

func WithMaxOutputTokens(n int) Option {
	return func(c *Config) { c.MaxOutputTokens = n }
}

// WithReasoning enables extended thinking/reasoning at the given effort
// level (OpenAI) and/or token budget (Anthropic, Google).
func WithReasoning(effort string, budget int) Option {
	return func(c *Config) {
		c.Reasoning = true
		if effort != "" {
			c.ReasoningEffort = effort
		}
		c.ReasoningBudget = budget
	}
}

func WithTemperature(t float64) Option {
	return func(c *Config) { c.Temperature = t }
}

func WithExtra(extra map[string]any) Option {
	return func(c *Config) { c.Extra = extra }
}

func (a *Agent) Name() string            { return a.config.Name }
func (a *Agent) Instructions() string    { return a.config.Instructions }
func (a *Agent) Model() string           { return a.config.Model }
func (a *Agent) Provider() string        { return a.config.Provider }
func (a *Agent) MaxOutputTokens() int    { return a.config.MaxOutputTokens }
func (a *Agent) Reasoning() bool         { return a.config.Reasoning }
func (a *Agent) ReasoningEffort() string { return a.config.ReasoningEffort }
func (a *Agent) ReasoningBudget() int    { return a.config.ReasoningBudget }
func (a *Agent) Temperature() float64    { return a.config.Temperature }

// Extra returns a defensive copy of the provider-specific extra params.
func (a *Agent) Extra() map[string]any {
	if a.config.Extra == nil {
		return nil
	}
	cp := make(map[string]any, len(a.config.Extra))
	for k, v := range a.config.Extra {
		cp[k] = v
	}
	return cp
}
