package forecast

import (
	"context"
	"errors"
	"testing"
)

// stubModel returns symmetric quantiles around zero in standardized space.
type stubModel struct {
	spread float64
	err    error
	calls  int
}

func (s *stubModel) Predict(ctx context.Context, window []float64, intervalSeconds, horizon int) (Quantiles, error) {
	s.calls++
	if s.err != nil {
		return Quantiles{}, s.err
	}
	q := Quantiles{
		Median: make([]float64, horizon),
		P10:    make([]float64, horizon),
		P90:    make([]float64, horizon),
	}
	for i := 0; i < horizon; i++ {
		q.P10[i] = -s.spread
		q.P90[i] = s.spread
	}
	return q, nil
}

func newTestForecaster(model Model) *Forecaster {
	return NewForecaster(nil, func() (Model, error) { return model, nil })
}

func TestForecastEmptyInput(t *testing.T) {
	f := newTestForecaster(&stubModel{spread: 0.5})
	if result := f.Forecast(context.Background(), nil, 60, "empty", 10); result != nil {
		t.Fatalf("expected nil forecast for empty input, got %+v", result)
	}
}

func TestForecastModelUnavailable(t *testing.T) {
	f := NewForecaster(nil, func() (Model, error) { return nil, errors.New("no endpoint") })
	if result := f.Forecast(context.Background(), []float64{1, 2, 3}, 60, "cpu", 10); result != nil {
		t.Fatalf("expected nil forecast when model load fails, got %+v", result)
	}
}

func TestForecastInferenceError(t *testing.T) {
	f := newTestForecaster(&stubModel{err: errors.New("inference timeout")})
	if result := f.Forecast(context.Background(), []float64{1, 2, 3}, 60, "cpu", 10); result != nil {
		t.Fatalf("expected nil forecast on inference error, got %+v", result)
	}
}

func TestForecastModelLoadedOnce(t *testing.T) {
	model := &stubModel{spread: 0.5}
	loads := 0
	f := NewForecaster(nil, func() (Model, error) {
		loads++
		return model, nil
	})

	values := []float64{1, 2, 3, 4, 5}
	f.Forecast(context.Background(), values, 60, "a", 5)
	f.Forecast(context.Background(), values, 60, "b", 5)

	if loads != 1 {
		t.Fatalf("expected one model load, got %d", loads)
	}
	if model.calls != 2 {
		t.Fatalf("expected two inference calls, got %d", model.calls)
	}
}

func TestForecastHorizonLengths(t *testing.T) {
	f := newTestForecaster(&stubModel{spread: 0.5})
	result := f.Forecast(context.Background(), []float64{1, 2, 3, 4, 5}, 60, "cpu", 24)
	if result == nil {
		t.Fatal("expected forecast")
	}
	if len(result.PredictedMedian) != 24 || len(result.LowerBound) != 24 || len(result.UpperBound) != 24 {
		t.Fatalf("expected 24-step quantiles, got %d/%d/%d",
			len(result.PredictedMedian), len(result.LowerBound), len(result.UpperBound))
	}
	if len(result.Historical) != 5 {
		t.Fatalf("expected 5 historical points, got %d", len(result.Historical))
	}
}

func TestForecastConstantSeriesNotAnomalous(t *testing.T) {
	values := make([]float64, 30)
	for i := range values {
		values[i] = 5.0
	}

	f := newTestForecaster(&stubModel{spread: 0.5})
	result := f.Forecast(context.Background(), values, 60, "flat", 10)
	if result == nil {
		t.Fatal("expected forecast")
	}
	if result.AnomalyScore != 0 {
		t.Fatalf("expected zero anomaly score for constant series, got %f", result.AnomalyScore)
	}
	if result.IsAnomalous {
		t.Fatal("constant series flagged anomalous")
	}
}

func TestForecastSpikeIsAnomalous(t *testing.T) {
	values := make([]float64, 60)
	for i := range values {
		values[i] = 10.0
	}
	for i := 55; i < 60; i++ {
		values[i] = 1000.0
	}

	f := newTestForecaster(&stubModel{spread: 0.5})
	result := f.Forecast(context.Background(), values, 60, "spike", 10)
	if result == nil {
		t.Fatal("expected forecast")
	}
	if result.AnomalyScore <= anomalousThreshold {
		t.Fatalf("expected anomaly score above %.0f for spike, got %f", anomalousThreshold, result.AnomalyScore)
	}
	if result.AnomalyScore > 100 {
		t.Fatalf("anomaly score out of range: %f", result.AnomalyScore)
	}
	if !result.IsAnomalous {
		t.Fatal("spike not flagged anomalous")
	}
}

func TestNormalizeLengthPadsShortSeries(t *testing.T) {
	window := normalizeLength([]float64{7, 8, 9}, 10)
	if len(window) != 10 {
		t.Fatalf("expected length 10, got %d", len(window))
	}
	for i := 0; i < 7; i++ {
		if window[i] != 7 {
			t.Fatalf("expected pad value 7 at index %d, got %f", i, window[i])
		}
	}
	if window[7] != 7 || window[8] != 8 || window[9] != 9 {
		t.Fatalf("tail not preserved: %v", window[7:])
	}
}

func TestNormalizeLengthTrimsLongSeries(t *testing.T) {
	values := make([]float64, 20)
	for i := range values {
		values[i] = float64(i)
	}
	window := normalizeLength(values, 5)
	if len(window) != 5 {
		t.Fatalf("expected length 5, got %d", len(window))
	}
	if window[0] != 15 || window[4] != 19 {
		t.Fatalf("expected most recent points, got %v", window)
	}
}

func TestMeanStdFloorsStd(t *testing.T) {
	_, std := meanStd([]float64{3, 3, 3, 3})
	if std != 1e-6 {
		t.Fatalf("expected floored std 1e-6, got %g", std)
	}
}
