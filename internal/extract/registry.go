package extract

import (
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/upi-extractor/constants"
	"github.com/joseph-ayodele/upi-extractor/internal/common"
)

// Registry holds one strategy per source type. The strategy is chosen once per
// document and never swapped mid-parse.
type Registry struct {
	strategies map[constants.SourceType]Strategy
}

var resolvers = map[constants.SourceType]resolver{
	constants.UPI:      resolveUPI,
	constants.Passbook: resolvePassbook,
}

// NewRegistry compiles strategies from tables. Every source type needs a table.
func NewRegistry(tables []Table, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{strategies: map[constants.SourceType]Strategy{}}
	for _, t := range tables {
		r.strategies[t.SourceType] = newTableStrategy(t, resolvers[t.SourceType], logger)
	}
	for _, st := range constants.SourceTypes() {
		if _, ok := r.strategies[st]; !ok {
			return nil, common.NewAppError(common.CodeRules, fmt.Sprintf("no rule table for %s", st), common.ErrInvalidInput)
		}
	}
	return r, nil
}

// NewDefaultRegistry builds a registry from the embedded tables, overridden by rulesDir when set.
func NewDefaultRegistry(rulesDir string, logger *slog.Logger) (*Registry, error) {
	tables, err := LoadRuleDir(rulesDir)
	if err != nil {
		return nil, err
	}
	return NewRegistry(tables, logger)
}

// For returns the strategy for t; unrecognized types get the UNKNOWN strategy.
func (r *Registry) For(t constants.SourceType) Strategy {
	if s, ok := r.strategies[t]; ok {
		return s
	}
	return r.strategies[constants.Unknown]
}
