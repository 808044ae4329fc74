package forecast

import (
	"context"
	"log/slog"
	"math"
	"sync"
)

const (
	// contextWindow is the model's fixed input length. Longer series keep
	// the most recent points; shorter series are left-padded with the
	// first value.
	contextWindow = 512

	// DefaultHorizon is the number of future steps predicted.
	DefaultHorizon = 60

	// recentActuals and the span anchored at bound index 0 are policy
	// parameters, not derived invariants. Flagged for review; do not
	// silently change them.
	recentActuals = 5

	anomalousThreshold = 70.0

	historicalTail = 60
)

// Forecast is the immutable result of one forecasting pass over a series.
type Forecast struct {
	SeriesName      string    `json:"series_name"`
	Historical      []float64 `json:"historical"`
	PredictedMedian []float64 `json:"predicted_median"`
	LowerBound      []float64 `json:"lower_bound"`
	UpperBound      []float64 `json:"upper_bound"`
	AnomalyScore    float64   `json:"anomaly_score"`
	IsAnomalous     bool      `json:"is_anomalous"`
	IntervalSeconds int       `json:"interval_seconds"`
}

// Forecaster runs the model over metric series. The model load is guarded
// so concurrent first use does not trigger duplicate loads; once loaded the
// model is treated as read-only and safe for concurrent inference.
type Forecaster struct {
	logger *slog.Logger

	loadOnce sync.Once
	loader   func() (Model, error)
	model    Model
	loadErr  error
}

// NewForecaster constructs a Forecaster around a lazy model loader.
func NewForecaster(logger *slog.Logger, loader func() (Model, error)) *Forecaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Forecaster{logger: logger, loader: loader}
}

func (f *Forecaster) loadModel() (Model, error) {
	f.loadOnce.Do(func() {
		if f.loader == nil {
			return
		}
		f.model, f.loadErr = f.loader()
	})
	return f.model, f.loadErr
}

// Forecast runs one forecasting pass. It returns nil when the input is empty
// or the model is unavailable; unavailability is a supported degraded mode,
// not an error.
func (f *Forecaster) Forecast(ctx context.Context, values []float64, intervalSeconds int, seriesName string, horizon int) *Forecast {
	if len(values) == 0 {
		return nil
	}
	if horizon <= 0 {
		horizon = DefaultHorizon
	}

	model, err := f.loadModel()
	if model == nil || err != nil {
		f.logger.Warn("forecast model unavailable", slog.String("series", seriesName), slog.Any("error", err))
		return nil
	}

	window := normalizeLength(values, contextWindow)
	mean, std := meanStd(window)
	standardized := make([]float64, len(window))
	for i, v := range window {
		standardized[i] = (v - mean) / std
	}

	quantiles, err := model.Predict(ctx, standardized, intervalSeconds, horizon)
	if err != nil {
		f.logger.Error("forecast inference failed", slog.String("series", seriesName), slog.Any("error", err))
		return nil
	}

	median := destandardize(quantiles.Median, mean, std)
	lower := destandardize(quantiles.P10, mean, std)
	upper := destandardize(quantiles.P90, mean, std)

	score := anomalyScore(values, lower, upper)

	historical := values
	if len(historical) > historicalTail {
		historical = historical[len(historical)-historicalTail:]
	}

	return &Forecast{
		SeriesName:      seriesName,
		Historical:      append([]float64(nil), historical...),
		PredictedMedian: median,
		LowerBound:      lower,
		UpperBound:      upper,
		AnomalyScore:    score,
		IsAnomalous:     score > anomalousThreshold,
		IntervalSeconds: intervalSeconds,
	}
}

// normalizeLength trims to the most recent target points or left-pads by
// repeating the first value.
func normalizeLength(values []float64, target int) []float64 {
	if len(values) >= target {
		return append([]float64(nil), values[len(values)-target:]...)
	}
	window := make([]float64, target)
	pad := target - len(values)
	for i := 0; i < pad; i++ {
		window[i] = values[0]
	}
	copy(window[pad:], values)
	return window
}

func meanStd(values []float64) (float64, float64) {
	n := float64(len(values))
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= n

	variance := 0.0
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	variance /= n

	std := math.Sqrt(variance)
	if std < 1e-6 {
		std = 1e-6
	}
	return mean, std
}

func destandardize(values []float64, mean, std float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = math.Round((v*std+mean)*1e4) / 1e4
	}
	return out
}

// anomalyScore compares the most recent actuals against the near-term
// predicted upper bound, index-aligned and clamped to the last available
// bound. The score is the mean relative exceedance over only the points
// that exceeded their bound, scaled to [0,100].
func anomalyScore(actuals, lower, upper []float64) float64 {
	if len(upper) == 0 || len(lower) == 0 {
		return 0
	}

	recent := actuals
	if len(recent) > recentActuals {
		recent = recent[len(recent)-recentActuals:]
	}

	span := upper[0] - lower[0]
	if span < 1e-6 {
		span = 1e-6
	}

	var total float64
	var exceeded int
	for i, actual := range recent {
		bound := upper[len(upper)-1]
		if i < len(upper) {
			bound = upper[i]
		}
		if actual > bound {
			deviation := math.Min((actual-bound)/span, 1) * 100
			total += deviation
			exceeded++
		}
	}
	if exceeded == 0 {
		return 0
	}
	return math.Round(total/float64(exceeded)*10) / 10
}
