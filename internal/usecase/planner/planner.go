// Package planner assigns one candidate model to every agent role by
// bounded beam search, trading a small frontier for provider-diverse,
// deterministic plans.
package planner

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"maestro/internal/domain"
	"maestro/internal/usecase/scoring"
)

// Config bounds the search. Zero values use defaults.
type Config struct {
	// PerProviderCap caps how many candidates per provider represent each
	// role. Every enabled provider still competes through its best.
	PerProviderCap int `yaml:"per_provider_cap"`
	// BeamWidth is the number of partial plans kept between roles.
	BeamWidth int `yaml:"beam_width"`
	// DiversityWeight scales the provider-spread term in frontier ranking.
	DiversityWeight float64 `yaml:"diversity_weight"`
}

const (
	defaultPerProviderCap  = 2
	defaultBeamWidth       = 5
	defaultDiversityWeight = 30
)

func (c Config) withDefaults() Config {
	if c.PerProviderCap <= 0 {
		c.PerProviderCap = defaultPerProviderCap
	}
	if c.BeamWidth <= 0 {
		c.BeamWidth = defaultBeamWidth
	}
	if c.DiversityWeight == 0 {
		c.DiversityWeight = defaultDiversityWeight
	}
	return c
}

// Result is the planner's baseline output: the winning assignment per role
// plus the ranked non-winning representatives that feed fallback chains and
// explanations.
type Result struct {
	Assignments  map[domain.AgentRole]domain.ScoredCandidate
	Alternatives map[domain.AgentRole][]domain.ScoredCandidate
	Score        float64
}

// partialPlan is one search state. Frontier entries are value types; maps
// are cloned on expansion so branches never alias.
type partialPlan struct {
	assignments map[domain.AgentRole]domain.ScoredCandidate
	providerUse map[string]int
	score       float64
}

func (p partialPlan) child(role domain.AgentRole, sc domain.ScoredCandidate) partialPlan {
	assignments := make(map[domain.AgentRole]domain.ScoredCandidate, len(p.assignments)+1)
	for k, v := range p.assignments {
		assignments[k] = v
	}
	assignments[role] = sc
	use := make(map[string]int, len(p.providerUse)+1)
	for k, v := range p.providerUse {
		use[k] = v
	}
	use[sc.Candidate.ProviderID]++
	return partialPlan{assignments: assignments, providerUse: use, score: p.score + sc.Total}
}

// signature is a deterministic identity used to break frontier ties.
func (p partialPlan) signature() string {
	var b strings.Builder
	for _, role := range domain.AllRoles {
		if sc, ok := p.assignments[role]; ok {
			b.WriteString(string(role))
			b.WriteByte('=')
			b.WriteString(sc.Candidate.Key())
			b.WriteByte(';')
		}
	}
	return b.String()
}

// Planner runs the search. It is stateless across calls.
type Planner struct {
	scorer *scoring.Engine
	cfg    Config
	logger *slog.Logger
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// New creates a planner using the given scoring engine.
func New(scorer *scoring.Engine, cfg Config) *Planner {
	return &Planner{scorer: scorer, cfg: cfg.withDefaults(), logger: discardLogger()}
}

// NewWithLogger creates a planner with debug logging.
func NewWithLogger(scorer *scoring.Engine, cfg Config, logger *slog.Logger) *Planner {
	p := New(scorer, cfg)
	p.logger = logger
	return p
}

// Plan searches for a high-scoring, provider-diverse assignment covering
// every role. A role with zero representatives fails the whole call:
// callers must guarantee at least one enabled provider per role.
func (p *Planner) Plan(catalog []domain.CandidateModel, sctx domain.ScoringContext) (*Result, error) {
	reps := make(map[domain.AgentRole][]domain.ScoredCandidate, len(domain.AllRoles))
	for _, role := range domain.AllRoles {
		r := p.representatives(catalog, role, sctx)
		if len(r) == 0 {
			return nil, domain.NewDomainError("Planner.Plan", domain.ErrNoViableCandidate,
				fmt.Sprintf("role %s has no representative candidates", role))
		}
		reps[role] = r
	}

	frontier := []partialPlan{{
		assignments: map[domain.AgentRole]domain.ScoredCandidate{},
		providerUse: cloneUse(sctx.ProviderUse),
	}}

	for _, role := range domain.AllRoles {
		var next []partialPlan
		for _, plan := range frontier {
			for _, sc := range p.expansions(plan, role, reps[role], sctx) {
				next = append(next, plan.child(role, sc))
			}
		}
		p.rankFrontier(next)
		if len(next) > p.cfg.BeamWidth {
			next = next[:p.cfg.BeamWidth]
		}
		frontier = next
		p.logger.Debug("beam step complete", "role", role, "frontier", len(frontier))
	}

	best := frontier[0]
	res := &Result{
		Assignments:  best.assignments,
		Alternatives: make(map[domain.AgentRole][]domain.ScoredCandidate, len(domain.AllRoles)),
		Score:        best.score,
	}
	for _, role := range domain.AllRoles {
		winner := best.assignments[role].Candidate.Key()
		var alts []domain.ScoredCandidate
		for _, sc := range reps[role] {
			if sc.Candidate.Key() != winner {
				alts = append(alts, sc)
			}
		}
		res.Alternatives[role] = alts
	}
	return res, nil
}

// representatives bounds a role's scored candidates to PerProviderCap per
// provider. The ranked order already selects which providers lead: a
// provider competes through its best-scoring candidate.
func (p *Planner) representatives(catalog []domain.CandidateModel, role domain.AgentRole, sctx domain.ScoringContext) []domain.ScoredCandidate {
	ranked := p.scorer.Rank(catalog, role, sctx)
	perProvider := make(map[string]int, 8)
	out := make([]domain.ScoredCandidate, 0, len(ranked))
	for _, sc := range ranked {
		if perProvider[sc.Candidate.ProviderID] >= p.cfg.PerProviderCap {
			continue
		}
		perProvider[sc.Candidate.ProviderID]++
		out = append(out, sc)
	}
	return out
}

// expansions rescores a role's representatives under the partial plan's
// provider-usage snapshot and returns the top BeamWidth of them.
func (p *Planner) expansions(plan partialPlan, role domain.AgentRole, reps []domain.ScoredCandidate, sctx domain.ScoringContext) []domain.ScoredCandidate {
	branch := sctx
	branch.ProviderUse = plan.providerUse

	rescored := make([]domain.ScoredCandidate, 0, len(reps))
	for _, rep := range reps {
		rescored = append(rescored, p.scorer.Score(rep.Candidate, role, branch))
	}
	sort.Slice(rescored, func(i, j int) bool {
		if rescored[i].Total != rescored[j].Total {
			return rescored[i].Total > rescored[j].Total
		}
		if rescored[i].Candidate.ProviderID != rescored[j].Candidate.ProviderID {
			return rescored[i].Candidate.ProviderID < rescored[j].Candidate.ProviderID
		}
		return rescored[i].Candidate.ModelID < rescored[j].Candidate.ModelID
	})
	if len(rescored) > p.cfg.BeamWidth {
		rescored = rescored[:p.cfg.BeamWidth]
	}
	return rescored
}

// rankFrontier orders partial plans by cumulative score plus a diversity
// reward for even provider spread, with a full deterministic tie-break.
func (p *Planner) rankFrontier(frontier []partialPlan) {
	key := func(pp partialPlan) float64 {
		return pp.score + p.cfg.DiversityWeight*(1-normalizedVariance(pp.providerUse))
	}
	sort.Slice(frontier, func(i, j int) bool {
		ki, kj := key(frontier[i]), key(frontier[j])
		if ki != kj {
			return ki > kj
		}
		return frontier[i].signature() < frontier[j].signature()
	})
}

// normalizedVariance maps provider-usage counts to [0,1]: 0 for a perfectly
// even spread, 1 when every assignment sits on a single provider.
func normalizedVariance(use map[string]int) float64 {
	n := len(use)
	if n <= 1 {
		return 0
	}
	total := 0
	for _, c := range use {
		total += c
	}
	if total == 0 {
		return 0
	}
	mean := float64(total) / float64(n)
	variance := 0.0
	for _, c := range use {
		d := float64(c) - mean
		variance += d * d
	}
	variance /= float64(n)
	maxVariance := float64(total) * float64(total) * float64(n-1) / float64(n*n)
	if maxVariance == 0 {
		return 0
	}
	v := variance / maxVariance
	if v > 1 {
		return 1
	}
	return v
}

func cloneUse(use map[string]int) map[string]int {
	out := make(map[string]int, len(use))
	for k, v := range use {
		out[k] = v
	}
	return out
}
