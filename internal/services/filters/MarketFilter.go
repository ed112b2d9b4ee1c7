package filters

import (
	"fmt"
	"time"

	"ForexSignalBot/internal/models"
)

const (
	DefaultMaxSpread = 5.0

	reasonNoMarketData = "No market data"
	reasonMarketClosed = "Market closed or restricted"
)

// Session is an hour window in UTC. End is inclusive; a window whose start is
// after its end wraps past midnight.
type Session struct {
	Name      string `yaml:"name"`
	StartHour int    `yaml:"start_hour" validate:"gte=0,lte=23"`
	EndHour   int    `yaml:"end_hour" validate:"gte=0,lte=23"`
}

func (s Session) Contains(hour int) bool {
	if s.StartHour <= s.EndHour {
		return hour >= s.StartHour && hour <= s.EndHour
	}
	return hour >= s.StartHour || hour <= s.EndHour
}

// NewsWindow is an inclusive blackout window written as hhmm, e.g. 830 to 930
type NewsWindow struct {
	Start int `yaml:"start" validate:"gte=0,lte=2359"`
	End   int `yaml:"end" validate:"gte=0,lte=2359"`
}

func (w NewsWindow) Contains(hhmm int) bool {
	return hhmm >= w.Start && hhmm <= w.End
}

type Config struct {
	Sessions      []Session          `yaml:"sessions" validate:"dive"`
	NewsWindows   []NewsWindow       `yaml:"news_windows" validate:"dive"`
	SpreadLimits  map[string]float64 `yaml:"spread_limits" validate:"dive,gt=0"`
	DefaultSpread float64            `yaml:"default_spread" default:"5.0" validate:"gt=0"`
}

// DefaultSessions are London, New York and Tokyo
func DefaultSessions() []Session {
	return []Session{
		{Name: "london", StartHour: 8, EndHour: 17},
		{Name: "new_york", StartHour: 13, EndHour: 22},
		{Name: "tokyo", StartHour: 23, EndHour: 8},
	}
}

// DefaultNewsWindows cover the usual high-impact release times
func DefaultNewsWindows() []NewsWindow {
	return []NewsWindow{
		{Start: 830, End: 930},
		{Start: 1230, End: 1330},
		{Start: 1430, End: 1530},
		{Start: 1800, End: 1830},
		{Start: 2000, End: 2030},
	}
}

// DefaultSpreadLimits are the per-symbol spread ceilings in pips
func DefaultSpreadLimits() map[string]float64 {
	return map[string]float64{
		"EURUSD": 2.0, "GBPUSD": 3.0, "USDJPY": 2.5, "USDCHF": 3.0,
		"AUDUSD": 3.5, "NZDUSD": 4.0, "XAUUSD": 5.0, "XAGUSD": 8.0,
		"GBPNZD": 7.0, "AUDNZD": 6.0, "EURNZD": 6.0, "GBPAUD": 5.0,
		"EURGBP": 2.5, "EURJPY": 3.0, "EURCHF": 3.0, "EURCAD": 4.0,
		"EURAUD": 4.0, "GBPJPY": 4.0, "GBPCHF": 4.0, "GBPCAD": 5.0,
		"AUDJPY": 3.5, "CADJPY": 3.5, "CHFJPY": 3.5, "AUDCAD": 4.0,
		"AUDCHF": 4.0, "CADCHF": 4.0,
	}
}

func DefaultConfig() Config {
	return Config{
		Sessions:      DefaultSessions(),
		NewsWindows:   DefaultNewsWindows(),
		SpreadLimits:  DefaultSpreadLimits(),
		DefaultSpread: DefaultMaxSpread,
	}
}

// MarketFilter holds the time and spread rules. It keeps no state between
// calls.
type MarketFilter struct {
	sessions      []Session
	newsWindows   []NewsWindow
	spreadLimits  map[string]float64
	defaultSpread float64
}

func NewMarketFilter(cfg Config) *MarketFilter {
	f := &MarketFilter{
		sessions:      cfg.Sessions,
		newsWindows:   cfg.NewsWindows,
		spreadLimits:  make(map[string]float64, len(cfg.SpreadLimits)),
		defaultSpread: cfg.DefaultSpread,
	}
	if f.sessions == nil {
		f.sessions = DefaultSessions()
	}
	if f.newsWindows == nil {
		f.newsWindows = DefaultNewsWindows()
	}
	if f.defaultSpread <= 0 {
		f.defaultSpread = DefaultMaxSpread
	}
	for symbol, limit := range cfg.SpreadLimits {
		f.spreadLimits[symbol] = limit
	}
	return f
}

// IsTradingSession reports whether now falls inside a configured session and
// outside the Friday night / Sunday open gap.
func (f *MarketFilter) IsTradingSession(now time.Time) bool {
	now = now.UTC()
	hour := now.Hour()

	if isWeekendGap(now) {
		return false
	}
	for _, s := range f.sessions {
		if s.Contains(hour) {
			return true
		}
	}
	return false
}

func isWeekendGap(now time.Time) bool {
	day := now.Weekday()
	if day != time.Friday && day != time.Sunday {
		return false
	}
	hour := now.Hour()
	return hour <= 1 || hour >= 22
}

// IsNewsTime reports whether now falls inside a news blackout window
func (f *MarketFilter) IsNewsTime(now time.Time) bool {
	now = now.UTC()
	hhmm := now.Hour()*100 + now.Minute()
	for _, w := range f.newsWindows {
		if w.Contains(hhmm) {
			return true
		}
	}
	return false
}

// MaxSpread returns the spread ceiling for a symbol
func (f *MarketFilter) MaxSpread(symbol string) float64 {
	if limit, ok := f.spreadLimits[symbol]; ok {
		return limit
	}
	return f.defaultSpread
}

// CheckSpreadConditions validates the live quote and the symbol's trade mode.
// A nil tick or nil symbol info is treated as missing market data.
func (f *MarketFilter) CheckSpreadConditions(symbol string, tick *models.Tick, info *models.SymbolInfo) (bool, string) {
	if tick == nil {
		return false, reasonNoMarketData
	}

	// pip size follows the symbol checked, not whatever the tick was tagged with
	quote := *tick
	quote.Symbol = symbol
	spread := quote.SpreadPips()
	maxSpread := f.MaxSpread(symbol)
	if spread > maxSpread {
		return false, fmt.Sprintf("Spread too wide: %.1f > %.1f", spread, maxSpread)
	}

	if info == nil || info.TradeMode != models.TradeModeFull {
		return false, reasonMarketClosed
	}

	return true, "OK"
}
