package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"maestro/internal/domain"
	"maestro/internal/usecase/assembler"
)

// inputsFile is the on-disk shape of one planning call's inputs. It is the
// normalized handoff from the catalog/usage discovery collaborators; the
// engine itself never reads files.
type inputsFile struct {
	Catalog     []domain.CandidateModel          `yaml:"catalog"`
	Policy      domain.RoutingPolicy             `yaml:"policy"`
	Quota       domain.QuotaStatus               `yaml:"quota"`
	Preferences map[domain.AgentRole][]string    `yaml:"preferences,omitempty"`
	Pacing      *domain.PacingSettings           `yaml:"pacing,omitempty"`
	Signals     map[string]domain.ExternalSignal `yaml:"signals,omitempty"`
	DailyUsage  []float64                        `yaml:"daily_usage,omitempty"`
	Overrides   struct {
		Host   map[domain.AgentRole]string `yaml:"host,omitempty"`
		Manual map[domain.AgentRole]string `yaml:"manual,omitempty"`
		Pinned map[domain.AgentRole]string `yaml:"pinned,omitempty"`
	} `yaml:"overrides,omitempty"`
}

// Assembler converts the file shape into engine inputs.
func (f *inputsFile) Assembler() assembler.Inputs {
	return assembler.Inputs{
		Catalog:     f.Catalog,
		Policy:      f.Policy,
		Quota:       f.Quota,
		Preferences: f.Preferences,
		Pacing:      f.Pacing,
		Signals:     f.Signals,
		Overrides: domain.Overrides{
			Host:   f.Overrides.Host,
			Manual: f.Overrides.Manual,
			Pinned: f.Overrides.Pinned,
		},
	}
}

func loadInputs(path string) (*inputsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read inputs: %w", err)
	}
	var in inputsFile
	if err := yaml.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("parse inputs: %w", err)
	}
	if len(in.Catalog) == 0 {
		return nil, fmt.Errorf("inputs: empty catalog")
	}
	return &in, nil
}

func rolesInOrder() []domain.AgentRole {
	return domain.AllRoles
}
