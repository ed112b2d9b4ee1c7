package indicators

import "math"

type RSIService struct{}

func NewRSIService() *RSIService {
	return &RSIService{}
}

// Calculate returns RSI from simple trailing averages of gains and losses.
// Positions without a full window are NaN.
func (s *RSIService) Calculate(prices []float64, period int) []float64 {
	rsi := nanSlice(len(prices))
	if len(prices) < period+1 {
		return rsi
	}

	gains := nanSlice(len(prices))
	losses := nanSlice(len(prices))
	for i := 1; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		gains[i] = math.Max(change, 0)
		losses[i] = math.Max(-change, 0)
	}

	avgGain := rollingMean(gains, period)
	avgLoss := rollingMean(losses, period)

	for i := range prices {
		if math.IsNaN(avgGain[i]) || math.IsNaN(avgLoss[i]) {
			continue
		}
		rsi[i] = s.calculatePoint(avgGain[i], avgLoss[i])
	}

	return rsi
}

// calculatePoint guards the avgLoss == 0 case: all gains reads 100, a flat
// window reads 50.
func (s *RSIService) calculatePoint(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain > 0 {
			return 100
		}
		return 50
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}
