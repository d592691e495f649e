package factors

import "math"

// zeroTolerance treats a standard deviation or variance below it as zero
const zeroTolerance = 1e-12

// SimpleReturns r_t = P_t / P_{t-1} - 1
func SimpleReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	out := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		out[i-1] = prices[i]/prices[i-1] - 1
	}
	return out
}

// MaxDrawdown 최대 낙폭 (≤ 0) on the curve C_t = P_t / P_0
func MaxDrawdown(prices []float64) float64 {
	if len(prices) == 0 || prices[0] == 0 {
		return 0
	}
	peak := 1.0
	worst := 0.0
	for _, p := range prices {
		c := p / prices[0]
		if c > peak {
			peak = c
		}
		if dd := c/peak - 1; dd < worst {
			worst = dd
		}
	}
	return worst
}

func isZero(v float64) bool {
	return math.Abs(v) < zeroTolerance
}
