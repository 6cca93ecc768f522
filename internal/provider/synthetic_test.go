package provider

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyntheticCrimeProvider_NightFactor(t *testing.T) {
	p := NewSyntheticCrimeProvider()

	p.now = func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) }
	day, err := p.Risk(context.Background(), 28.61, 77.21)
	require.NoError(t, err)

	p.now = func() time.Time { return time.Date(2025, 3, 10, 23, 0, 0, 0, time.UTC) }
	night, err := p.Risk(context.Background(), 28.61, 77.21)
	require.NoError(t, err)

	assert.InDelta(t, 0.2, night-day, 1e-9)
	assert.GreaterOrEqual(t, day, 0.0)
	assert.LessOrEqual(t, night, 1.0)
}

func TestSyntheticPoliticalProvider_Deterministic(t *testing.T) {
	p := NewSyntheticPoliticalProvider()

	first, err := p.Risk(context.Background(), 28.61, 77.21)
	require.NoError(t, err)
	second, err := p.Risk(context.Background(), 28.61, 77.21)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.GreaterOrEqual(t, first, 0.0)
	assert.LessOrEqual(t, first, 1.0)

	// Разные координаты дают разные оценки
	other, err := p.Risk(context.Background(), 12.97, 77.59)
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func TestSyntheticHistoryProvider_Deterministic(t *testing.T) {
	p := NewSyntheticHistoryProvider()

	first, err := p.Summary(context.Background(), "tourist-42")
	require.NoError(t, err)
	second, err := p.Summary(context.Background(), "tourist-42")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.GreaterOrEqual(t, first.VisitCount, 1)
	assert.LessOrEqual(t, first.VisitCount, 10)
	assert.GreaterOrEqual(t, first.AvgStayTime, 1.0)
	assert.LessOrEqual(t, first.AvgStayTime, 5.0)
	assert.GreaterOrEqual(t, first.AnomalyCount, 0)
	assert.Less(t, first.AnomalyCount, 3)
}
