package indicators

import "math"

type ATRService struct{}

func NewATRService() *ATRService {
	return &ATRService{}
}

// TrueRange is max(high-low, |high-prevClose|, |low-prevClose|). The first bar
// has no previous close and uses high-low alone.
func (s *ATRService) TrueRange(highs, lows, closes []float64) []float64 {
	tr := make([]float64, len(closes))
	for i := range closes {
		tr[i] = highs[i] - lows[i]
		if i == 0 {
			continue
		}
		tr[i] = math.Max(tr[i], math.Max(
			math.Abs(highs[i]-closes[i-1]),
			math.Abs(lows[i]-closes[i-1]),
		))
	}
	return tr
}

// Calculate is the simple mean of true range over a trailing window
func (s *ATRService) Calculate(highs, lows, closes []float64, period int) []float64 {
	return rollingMean(s.TrueRange(highs, lows, closes), period)
}
