package indicators

type BBandsService struct{}

type BBandsResult struct {
	Upper  []float64
	Middle []float64
	Lower  []float64
	Width  []float64 // (upper - lower) / middle
}

func NewBBandsService() *BBandsService {
	return &BBandsService{}
}

// Calculate returns SMA(period) +/- deviations x rolling sample stddev(period)
func (s *BBandsService) Calculate(prices []float64, period int, deviations float64) *BBandsResult {
	middle := rollingMean(prices, period)
	stdDev := rollingStd(prices, period)

	upper := nanSlice(len(prices))
	lower := nanSlice(len(prices))
	width := nanSlice(len(prices))

	for i := range prices {
		upper[i] = middle[i] + deviations*stdDev[i]
		lower[i] = middle[i] - deviations*stdDev[i]
		if middle[i] != 0 {
			width[i] = (upper[i] - lower[i]) / middle[i]
		}
	}

	return &BBandsResult{
		Upper:  upper,
		Middle: middle,
		Lower:  lower,
		Width:  width,
	}
}
