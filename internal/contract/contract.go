// Package contract loads the experiment's boundary configuration: contract
// definitions plus verifier and retriever configs.
//
// The harness core consumes these opaquely - they are handed through to an
// external pipeline - with one exception: the verifier threshold, which the
// threshold-sweep caller uses to center its grid. Contract definitions are
// validated structurally against an embedded CUE schema before use, so a
// malformed file fails at load time with field-level positions instead of
// deep inside a run.
package contract

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

// contractSchema constrains contract definition files. Kept deliberately
// structural: rule semantics are the external pipeline's concern.
const contractSchema = `
#Contract: {
	id:           string & != ""
	version:      *"0.1.0" | string
	description?: string
	rules: [...string]
	gates: {
		min_clarifications:     *0 | int & >=0
		max_unsupported_claims: *0 | int & >=0
	}
}
`

// Gates holds a contract's hard pass/fail limits.
type Gates struct {
	MinClarifications    int `yaml:"min_clarifications" json:"min_clarifications"`
	MaxUnsupportedClaims int `yaml:"max_unsupported_claims" json:"max_unsupported_claims"`
}

// Contract is one behavioral contract definition.
type Contract struct {
	ID          string   `yaml:"id" json:"id"`
	Version     string   `yaml:"version" json:"version"`
	Description string   `yaml:"description" json:"description,omitempty"`
	Rules       []string `yaml:"rules" json:"rules"`
	Gates       Gates    `yaml:"gates" json:"gates"`
}

// VerifierConfig configures the citation verifier. Only Threshold is read
// by the harness itself.
type VerifierConfig struct {
	Threshold              float64 `yaml:"threshold" json:"threshold"`
	RequireInlineCitations bool    `yaml:"require_inline_citations" json:"require_inline_citations"`
	MaxUnsupported         int     `yaml:"max_unsupported" json:"max_unsupported"`
}

// RetrieverConfig configures the retriever. Consumed opaquely.
type RetrieverConfig struct {
	K             int     `yaml:"k" json:"k"`
	FreshnessDays int     `yaml:"freshness_days" json:"freshness_days"`
	NoiseFraction float64 `yaml:"noise_fraction" json:"noise_fraction"`
}

// LoadContract reads and validates one contract definition from YAML.
func LoadContract(path string) (Contract, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Contract{}, fmt.Errorf("read contract: %w", err)
	}
	return ParseContract(raw, path)
}

// ParseContract decodes YAML bytes into a Contract after CUE validation.
// The name is used in error messages only.
func ParseContract(raw []byte, name string) (Contract, error) {
	var generic map[string]any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return Contract{}, fmt.Errorf("contract %s: %w", name, err)
	}
	if generic == nil {
		return Contract{}, fmt.Errorf("contract %s: empty document", name)
	}
	if err := validateContract(generic); err != nil {
		return Contract{}, fmt.Errorf("contract %s: %w", name, err)
	}

	c := Contract{Version: "0.1.0"}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return Contract{}, fmt.Errorf("contract %s: %w", name, err)
	}
	return c, nil
}

// validateContract unifies the decoded document with the #Contract schema.
func validateContract(doc map[string]any) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(contractSchema)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Contract"))
	if err := def.Err(); err != nil {
		return fmt.Errorf("lookup schema: %w", err)
	}

	unified := def.Unify(ctx.Encode(doc))
	if err := unified.Validate(cue.Final(), cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid contract: %s", cueerrors.Details(err, nil))
	}
	return nil
}

// LoadVerifierConfig reads a verifier config. YAML is a superset of JSON,
// so both config styles load through the same path.
func LoadVerifierConfig(path string) (VerifierConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return VerifierConfig{}, fmt.Errorf("read verifier config: %w", err)
	}
	var cfg VerifierConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return VerifierConfig{}, fmt.Errorf("verifier config %s: %w", path, err)
	}
	if cfg.Threshold < 0 || cfg.Threshold > 1 {
		return VerifierConfig{}, fmt.Errorf("verifier config %s: threshold %v outside [0,1]", path, cfg.Threshold)
	}
	return cfg, nil
}

// LoadRetrieverConfig reads a retriever config.
func LoadRetrieverConfig(path string) (RetrieverConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return RetrieverConfig{}, fmt.Errorf("read retriever config: %w", err)
	}
	var cfg RetrieverConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return RetrieverConfig{}, fmt.Errorf("retriever config %s: %w", path, err)
	}
	return cfg, nil
}
