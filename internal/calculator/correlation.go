package calculator

import (
	"math"

	"TokenTracker/internal/model"
)

// PriceVolumeCorrelation is the Pearson correlation between daily price and
// volume over the records that have a volume. It is false when fewer than two
// such records exist or either series is constant.
func PriceVolumeCorrelation(records []model.DailyRecord) (float64, bool) {
	var prices, volumes []float64
	for _, rec := range records {
		if rec.Volume.Valid {
			prices = append(prices, rec.Price)
			volumes = append(volumes, rec.Volume.Float64)
		}
	}
	if len(prices) < 2 {
		return 0, false
	}
	mp, mv := mean(prices), mean(volumes)
	var cov, vp, vv float64
	for i := range prices {
		dp, dv := prices[i]-mp, volumes[i]-mv
		cov += dp * dv
		vp += dp * dp
		vv += dv * dv
	}
	if vp == 0 || vv == 0 {
		return 0, false
	}
	return cov / math.Sqrt(vp*vv), true
}
