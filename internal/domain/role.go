package domain

// AgentRole identifies one of the fixed functional roles that needs a model
// assignment. The set is closed: adding a role means adding a row to
// RoleProfiles, not a code branch.
type AgentRole string

const (
	RoleOrchestrator AgentRole = "orchestrator"
	RoleCoder        AgentRole = "coder"
	RoleReviewer     AgentRole = "reviewer"
	RoleResearcher   AgentRole = "researcher"
	RoleSummarizer   AgentRole = "summarizer"
	RoleTester       AgentRole = "tester"
)

// AllRoles is the fixed planning order. Beam search expands roles in this
// order, so it must never be reordered at runtime.
var AllRoles = []AgentRole{
	RoleOrchestrator,
	RoleCoder,
	RoleReviewer,
	RoleResearcher,
	RoleSummarizer,
	RoleTester,
}

// RoleWeights is a role's static preference profile. Each weight scales the
// corresponding score component; the profile itself carries no logic.
type RoleWeights struct {
	Reasoning   float64
	ToolUse     float64
	Attachments float64
	ContextSize float64
	Speed       float64
	Cost        float64
}

// RoleProfiles maps every role to its immutable weight profile.
var RoleProfiles = map[AgentRole]RoleWeights{
	RoleOrchestrator: {Reasoning: 1.0, ToolUse: 0.9, Attachments: 0.3, ContextSize: 0.8, Speed: 0.4, Cost: 0.3},
	RoleCoder:        {Reasoning: 0.9, ToolUse: 1.0, Attachments: 0.2, ContextSize: 0.9, Speed: 0.5, Cost: 0.4},
	RoleReviewer:     {Reasoning: 0.8, ToolUse: 0.4, Attachments: 0.4, ContextSize: 0.7, Speed: 0.6, Cost: 0.6},
	RoleResearcher:   {Reasoning: 0.7, ToolUse: 0.8, Attachments: 0.8, ContextSize: 1.0, Speed: 0.3, Cost: 0.5},
	RoleSummarizer:   {Reasoning: 0.4, ToolUse: 0.2, Attachments: 0.5, ContextSize: 0.6, Speed: 0.9, Cost: 0.9},
	RoleTester:       {Reasoning: 0.5, ToolUse: 0.9, Attachments: 0.2, ContextSize: 0.5, Speed: 0.8, Cost: 0.8},
}

// IsValid reports whether r is one of the known roles.
func (r AgentRole) IsValid() bool {
	_, ok := RoleProfiles[r]
	return ok
}
