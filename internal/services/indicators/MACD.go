package indicators

type MACDService struct {
	ema *EMAService
}

type MACDResult struct {
	MACD      []float64
	Signal    []float64
	Histogram []float64

	// Start is the first index past the slow and signal warm-up. Earlier
	// values exist but are NaN here.
	Start int
}

func NewMACDService() *MACDService {
	return &MACDService{
		ema: NewEMAService(),
	}
}

// Calculate returns MACD line, signal line, and histogram
// Default periods: fast=12, slow=26, signal=9
// Both lines use the pipeline EMA, seeded with the first price.
func (s *MACDService) Calculate(prices []float64, fastPeriod, slowPeriod, signalPeriod int) *MACDResult {
	if !s.ValidatePeriods(prices, fastPeriod, slowPeriod, signalPeriod) {
		return nil
	}

	fastEMA := s.ema.Calculate(prices, fastPeriod)
	slowEMA := s.ema.Calculate(prices, slowPeriod)

	macdLine := make([]float64, len(prices))
	for i := range prices {
		macdLine[i] = fastEMA[i] - slowEMA[i]
	}
	signalLine := s.ema.Calculate(macdLine, signalPeriod)

	start := slowPeriod + signalPeriod - 2
	result := &MACDResult{
		MACD:      nanSlice(len(prices)),
		Signal:    nanSlice(len(prices)),
		Histogram: nanSlice(len(prices)),
		Start:     start,
	}
	for i := start; i < len(prices); i++ {
		result.MACD[i] = macdLine[i]
		result.Signal[i] = signalLine[i]
		result.Histogram[i] = macdLine[i] - signalLine[i]
	}

	return result
}

func (s *MACDService) ValidatePeriods(prices []float64, fastPeriod, slowPeriod, signalPeriod int) bool {
	minLength := slowPeriod + signalPeriod - 1
	return len(prices) >= minLength &&
		fastPeriod > 0 &&
		slowPeriod > fastPeriod &&
		signalPeriod > 0
}
