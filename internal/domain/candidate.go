package domain

import "fmt"

// ModelStatus is a candidate's lifecycle stage.
type ModelStatus string

const (
	StatusActive     ModelStatus = "active"
	StatusBeta       ModelStatus = "beta"
	StatusAlpha      ModelStatus = "alpha"
	StatusDeprecated ModelStatus = "deprecated"
)

// BillingMode distinguishes quota-governed subscription traffic from
// per-token metered traffic.
type BillingMode string

const (
	BillingSubscription BillingMode = "subscription"
	BillingPaygo        BillingMode = "paygo"
)

// Capabilities are a candidate's boolean capability flags.
type Capabilities struct {
	Reasoning   bool `yaml:"reasoning"`
	ToolCalling bool `yaml:"tool_calling"`
	Attachments bool `yaml:"attachments"`
}

// CandidateModel is one (provider, model) pair the engine may assign to a
// role. It is normalized upstream; the engine never discovers candidates.
type CandidateModel struct {
	ProviderID      string       `yaml:"provider"`
	ModelID         string       `yaml:"model"`
	DisplayName     string       `yaml:"name"`
	Status          ModelStatus  `yaml:"status"`
	ContextTokens   int          `yaml:"context_tokens"`
	MaxOutputTokens int          `yaml:"max_output_tokens"`
	Capabilities    Capabilities `yaml:"capabilities"`

	// CostPerMTokIn/Out are USD per million tokens. Both zero means free.
	CostPerMTokIn  float64 `yaml:"cost_per_mtok_in"`
	CostPerMTokOut float64 `yaml:"cost_per_mtok_out"`

	// AccessMode is an optional upstream billing annotation for
	// quota-governed providers. When set it wins over cost inference.
	AccessMode BillingMode `yaml:"access_mode,omitempty"`

	// DailyRequestTier is an optional daily-request-limit tier label.
	DailyRequestTier string `yaml:"daily_request_tier,omitempty"`
}

// Key returns the canonical "provider/model" identifier.
func (c CandidateModel) Key() string {
	return c.ProviderID + "/" + c.ModelID
}

// IsFree reports whether the candidate has no per-token cost.
func (c CandidateModel) IsFree() bool {
	return c.CostPerMTokIn == 0 && c.CostPerMTokOut == 0
}

// BlendedCost is the mean of input and output per-million-token cost.
func (c CandidateModel) BlendedCost() float64 {
	return (c.CostPerMTokIn + c.CostPerMTokOut) / 2
}

// InferBilling resolves the candidate's billing mode: the upstream
// AccessMode annotation wins, otherwise zero-vs-nonzero token cost decides.
func (c CandidateModel) InferBilling() BillingMode {
	if c.AccessMode == BillingSubscription || c.AccessMode == BillingPaygo {
		return c.AccessMode
	}
	if c.IsFree() {
		return BillingSubscription
	}
	return BillingPaygo
}

// Validate checks the fields the engine depends on.
func (c CandidateModel) Validate() error {
	if c.ProviderID == "" || c.ModelID == "" {
		return fmt.Errorf("candidate %q: %w: provider and model required", c.Key(), ErrInvalidInput)
	}
	switch c.Status {
	case StatusActive, StatusBeta, StatusAlpha, StatusDeprecated:
	default:
		return fmt.Errorf("candidate %q: %w: unknown status %q", c.Key(), ErrInvalidInput, c.Status)
	}
	if c.CostPerMTokIn < 0 || c.CostPerMTokOut < 0 {
		return fmt.Errorf("candidate %q: %w: negative cost", c.Key(), ErrInvalidInput)
	}
	return nil
}
