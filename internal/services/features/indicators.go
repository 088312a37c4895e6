package features

// SMA returns the simple moving average of the trailing n values.
// ok is false when there are fewer than n values.
func SMA(values []float64, n int) (float64, bool) {
	if n <= 0 || len(values) < n {
		return 0, false
	}
	sum := 0.0
	for _, v := range values[len(values)-n:] {
		sum += v
	}
	return sum / float64(n), true
}

// RSI computes the relative strength index with Wilder smoothing.
// The first average is the mean of the first period changes; every later change
// is folded in as avg = (avg*(period-1) + x) / period.
// A zero average loss saturates at 100. Needs period+1 closes.
func RSI(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) < period+1 {
		return 0, false
	}
	p := float64(period)

	var gain, loss float64
	for i := 1; i <= period; i++ {
		g, l := split(closes[i] - closes[i-1])
		gain += g
		loss += l
	}
	avgGain, avgLoss := gain/p, loss/p

	for i := period + 1; i < len(closes); i++ {
		g, l := split(closes[i] - closes[i-1])
		avgGain = (avgGain*(p-1) + g) / p
		avgLoss = (avgLoss*(p-1) + l) / p
	}

	if avgLoss == 0 {
		return 100, true
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), true
}

func split(delta float64) (gain, loss float64) {
	if delta > 0 {
		return delta, 0
	}
	return 0, -delta
}

// VolumeRatio is the mean of the trailing recent volumes over the mean of all volumes.
// Shorter series use whatever is there. ok is false for empty or all-zero volume.
func VolumeRatio(volumes []float64, recent int) (float64, bool) {
	if len(volumes) == 0 || recent <= 0 {
		return 0, false
	}
	if recent > len(volumes) {
		recent = len(volumes)
	}
	full, _ := SMA(volumes, len(volumes))
	if full <= 0 {
		return 0, false
	}
	tail, _ := SMA(volumes, recent)
	return tail / full, true
}
