package strategy

import (
	"fmt"
	"sort"

	"ForexSignalBot/internal/models"
)

// StrategyManager routes an evaluation to the confluence scorer or to one of
// the points-based variants by name.
type StrategyManager struct {
	variants map[string]Variant
}

func NewStrategyManager() *StrategyManager {
	m := &StrategyManager{variants: make(map[string]Variant)}
	m.Register(NewTrendVariant())
	m.Register(NewSwingVariant())
	m.Register(NewBreakoutVariant())
	return m
}

// Register adds or replaces a variant under its own name
func (m *StrategyManager) Register(v Variant) {
	m.variants[v.Name()] = v
}

// Names lists the confluence scorer followed by the registered variants
func (m *StrategyManager) Names() []string {
	names := make([]string, 0, len(m.variants))
	for name := range m.variants {
		names = append(names, name)
	}
	sort.Strings(names)
	return append([]string{ConfluenceStrategy}, names...)
}

// Timeframes returns the frames a strategy needs. The confluence scorer
// needs all four.
func (m *StrategyManager) Timeframes(name string) ([]models.TimeFrame, error) {
	if name == "" || name == ConfluenceStrategy {
		return models.TimeFrames, nil
	}
	v, ok := m.variants[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStrategy, name)
	}
	return v.Timeframes(), nil
}

// Analyze runs the named strategy. An empty name means confluence. Variants
// do not consult the filter or risk verdicts.
func (m *StrategyManager) Analyze(name string, frames Frames, symbol string, filter FilterVerdict, risk RiskVerdict) (models.Signal, error) {
	if name == "" || name == ConfluenceStrategy {
		return Score(frames, symbol, filter, risk), nil
	}

	v, ok := m.variants[name]
	if !ok {
		return models.Signal{}, fmt.Errorf("%w: %s", ErrUnknownStrategy, name)
	}
	return v.Evaluate(frames, symbol), nil
}
