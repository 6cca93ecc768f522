package service

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Sanmathi-Sedhupathi/TOURWeb-SIH/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRiskProvider - детерминированный провайдер для тестов со счетчиком вызовов
type stubRiskProvider struct {
	risk  float64
	err   error
	calls atomic.Int64
}

func (p *stubRiskProvider) Risk(_ context.Context, _, _ float64) (float64, error) {
	p.calls.Add(1)
	return p.risk, p.err
}

func newTestRiskService(weather, crime, political RiskProvider) *RiskService {
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах
	return NewRiskService(weather, crime, political, logger)
}

func TestAssess_CombinesWeightedDimensions(t *testing.T) {
	// Подготовка
	service := newTestRiskService(
		&stubRiskProvider{risk: 0.5},
		&stubRiskProvider{risk: 0.8},
		&stubRiskProvider{risk: 0.2},
	)

	// Действие
	snapshot, err := service.Assess(context.Background(), 28.61, 77.21)

	// Проверки
	require.NoError(t, err)
	assert.InDelta(t, 0.5*0.2+0.8*0.4+0.2*0.4, snapshot.Overall, 1e-9)
	assert.Equal(t, 0.5, snapshot.Weather)
	assert.Equal(t, 0.8, snapshot.Crime)
	assert.Equal(t, 0.2, snapshot.Political)
}

func TestAssess_Thresholds(t *testing.T) {
	testCases := []struct {
		name     string
		risk     float64
		expected models.RiskLevel
	}{
		{"красный с 0.7", 0.7, models.RiskLevelRed},
		{"желтый с 0.4", 0.4, models.RiskLevelYellow},
		{"зеленый ниже 0.4", 0.3, models.RiskLevelGreen},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Все измерения равны, поэтому общий риск равен значению измерения
			service := newTestRiskService(
				&stubRiskProvider{risk: tc.risk},
				&stubRiskProvider{risk: tc.risk},
				&stubRiskProvider{risk: tc.risk},
			)

			snapshot, err := service.Assess(context.Background(), 28.61, 77.21)

			require.NoError(t, err)
			assert.InDelta(t, tc.risk, snapshot.Overall, 1e-9)
			assert.Equal(t, tc.expected, snapshot.Level)
		})
	}
}

func TestAssess_InvalidCoordinate(t *testing.T) {
	service := newTestRiskService(
		&stubRiskProvider{risk: 0.1},
		&stubRiskProvider{risk: 0.1},
		&stubRiskProvider{risk: 0.1},
	)

	snapshot, err := service.Assess(context.Background(), 91.0, 77.21)

	require.Error(t, err)
	assert.Nil(t, snapshot)
}

func TestAssess_ProviderFailure_DefaultSnapshot(t *testing.T) {
	// Подготовка: криминальный провайдер падает
	service := newTestRiskService(
		&stubRiskProvider{risk: 0.9},
		&stubRiskProvider{err: errors.New("provider down")},
		&stubRiskProvider{risk: 0.9},
	)

	// Действие
	snapshot, err := service.Assess(context.Background(), 28.61, 77.21)

	// Проверки: деградация до консервативного снимка, не ошибка
	require.NoError(t, err)
	assert.Equal(t, 0.2, snapshot.Weather)
	assert.Equal(t, 0.3, snapshot.Crime)
	assert.Equal(t, 0.1, snapshot.Political)
	assert.Equal(t, 0.2, snapshot.Overall)
	assert.Equal(t, models.RiskLevelGreen, snapshot.Level)
}

func TestAssess_CachesDimensionsWithinTTL(t *testing.T) {
	// Подготовка
	weather := &stubRiskProvider{risk: 0.4}
	crime := &stubRiskProvider{risk: 0.4}
	political := &stubRiskProvider{risk: 0.4}
	service := newTestRiskService(weather, crime, political)

	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return base }

	// Действие: два вызова для одной координаты внутри TTL
	_, err := service.Assess(context.Background(), 28.61, 77.21)
	require.NoError(t, err)

	service.now = func() time.Time { return base.Add(10 * time.Minute) }
	_, err = service.Assess(context.Background(), 28.61, 77.21)
	require.NoError(t, err)

	// Проверки: провайдеры вызваны по одному разу
	assert.Equal(t, int64(1), weather.calls.Load())
	assert.Equal(t, int64(1), crime.calls.Load())
	assert.Equal(t, int64(1), political.calls.Load())

	// Погодный кеш истекает через 30 минут, остальные живут дольше
	service.now = func() time.Time { return base.Add(31 * time.Minute) }
	_, err = service.Assess(context.Background(), 28.61, 77.21)
	require.NoError(t, err)
	assert.Equal(t, int64(2), weather.calls.Load())
	assert.Equal(t, int64(1), crime.calls.Load())
}

func TestForecast_SixHourSteps(t *testing.T) {
	// Подготовка
	service := newTestRiskService(
		&stubRiskProvider{risk: 0.5},
		&stubRiskProvider{risk: 0.5},
		&stubRiskProvider{risk: 0.5},
	)
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return base }

	// Действие
	forecast, err := service.Forecast(context.Background(), 28.61, 77.21, 24)

	// Проверки
	require.NoError(t, err)
	require.Len(t, forecast, 4)

	for i, entry := range forecast {
		expectedTime := base.Add(time.Duration(i*6) * time.Hour)
		assert.Equal(t, expectedTime, entry.Time)
		assert.Equal(t, expectedTime.Hour(), entry.Hour)

		// Инвариант: общий риск пересчитан из скорректированных компонент
		expectedOverall := entry.Weather*0.2 + entry.Crime*0.4 + entry.Political*0.4
		assert.InDelta(t, expectedOverall, entry.Overall, 1e-9)

		// Политический риск не зависит от времени суток
		assert.Equal(t, 0.5, entry.Political)
	}

	// 09:00 - без множителя, 15:00 - дневной x1.2, 03:00 - ночной x1.3
	assert.InDelta(t, 0.5, forecast[0].Weather, 1e-9)
	assert.InDelta(t, 0.6, forecast[1].Weather, 1e-9)
	assert.InDelta(t, 0.65, forecast[3].Weather, 1e-9)
}

func TestForecast_ClampsComponents(t *testing.T) {
	service := newTestRiskService(
		&stubRiskProvider{risk: 0.9},
		&stubRiskProvider{risk: 0.9},
		&stubRiskProvider{risk: 0.9},
	)
	// Ночной час гарантирует множитель 1.3
	base := time.Date(2025, 3, 10, 23, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return base }

	forecast, err := service.Forecast(context.Background(), 28.61, 77.21, 6)

	require.NoError(t, err)
	require.Len(t, forecast, 1)
	assert.Equal(t, 1.0, forecast[0].Weather)
	assert.Equal(t, 1.0, forecast[0].Crime)
	assert.LessOrEqual(t, forecast[0].Overall, 1.0)
}

func TestTimeOfDayMultiplier(t *testing.T) {
	assert.Equal(t, 1.3, timeOfDayMultiplier(23))
	assert.Equal(t, 1.3, timeOfDayMultiplier(3))
	assert.Equal(t, 1.3, timeOfDayMultiplier(6))
	assert.Equal(t, 1.2, timeOfDayMultiplier(14))
	assert.Equal(t, 1.2, timeOfDayMultiplier(18))
	assert.Equal(t, 1.0, timeOfDayMultiplier(10))
}
