package service

import (
	"testing"

	"github.com/Sanmathi-Sedhupathi/TOURWeb-SIH/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touristAt(id string, lat, lon float64) *models.Tourist {
	return &models.Tourist{
		ID:       id,
		Location: &models.Location{Latitude: lat, Longitude: lon},
	}
}

func TestCellKey(t *testing.T) {
	// Одна ячейка 0.01 x 0.01 градуса
	assert.Equal(t, CellKey(28.613, 77.215), CellKey(28.6139, 77.2151))
	assert.NotEqual(t, CellKey(28.613, 77.215), CellKey(28.623, 77.215))
	assert.Equal(t, "2861_7721", CellKey(28.613, 77.215))
}

func TestGroupByCell(t *testing.T) {
	service := NewCorrelationService()
	tourists := []*models.Tourist{
		touristAt("a", 28.6131, 77.2151),
		touristAt("b", 28.6139, 77.2159),
		touristAt("c", 28.71, 77.30),
		{ID: "no-location"},
	}

	groups := service.GroupByCell(tourists)

	require.Len(t, groups, 2)
	assert.Len(t, groups[CellKey(28.6131, 77.2151)], 2)
	assert.Len(t, groups[CellKey(28.71, 77.30)], 1)
}

func TestSeparation(t *testing.T) {
	service := NewCorrelationService()

	// Одиночка и совпадающие точки - нулевой разброс
	assert.Equal(t, 0.0, service.Separation([]*models.Tourist{touristAt("a", 28.61, 77.21)}))
	assert.Equal(t, 0.0, service.Separation([]*models.Tourist{
		touristAt("a", 28.61, 77.21),
		touristAt("b", 28.61, 77.21),
	}))

	// ~1 км по широте дает разброс около 0.5
	sep := service.Separation([]*models.Tourist{
		touristAt("a", 28.610, 77.21),
		touristAt("b", 28.619, 77.21),
	})
	assert.InDelta(t, 0.5, sep, 0.05)

	// Большая дистанция ограничивается единицей
	far := service.Separation([]*models.Tourist{
		touristAt("a", 28.0, 77.0),
		touristAt("b", 29.0, 77.0),
	})
	assert.Equal(t, 1.0, far)
}

func TestGroupContextFor(t *testing.T) {
	service := NewCorrelationService()
	a := touristAt("a", 28.6131, 77.2151)
	a.AnomalyScore = 0.6
	b := touristAt("b", 28.6135, 77.2155)
	b.AnomalyScore = 0.7
	c := touristAt("c", 28.6139, 77.2159)
	c.AnomalyScore = 0.2

	groups := service.GroupByCell([]*models.Tourist{a, b, c})
	gctx := service.GroupContextFor(a, groups)

	assert.Equal(t, 3, gctx.Size)
	assert.Equal(t, 2, gctx.Anomalies)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, gctx.Members)

	// Турист без координат получает группу из самого себя
	solo := service.GroupContextFor(&models.Tourist{ID: "solo"}, groups)
	assert.Equal(t, models.GroupContext{Size: 1}, solo)
}

func TestDetectGroupAnomaly_SmallGroupIgnored(t *testing.T) {
	service := NewCorrelationService()
	members := []*models.Tourist{
		touristAt("a", 28.61, 77.21),
		touristAt("b", 28.61, 77.21),
	}
	members[0].Speed = 200
	members[1].Speed = 200

	pattern := service.DetectGroupAnomaly(members)

	assert.False(t, pattern.Anomalous)
	assert.Equal(t, 2, pattern.GroupSize)
}

func TestDetectGroupAnomaly_HighAverageSpeed(t *testing.T) {
	service := NewCorrelationService()
	members := []*models.Tourist{
		touristAt("a", 28.61, 77.21),
		touristAt("b", 28.61, 77.21),
		touristAt("c", 28.61, 77.21),
	}
	members[0].Speed = 70
	members[1].Speed = 65
	members[2].Speed = 75

	pattern := service.DetectGroupAnomaly(members)

	assert.True(t, pattern.Anomalous)
	assert.InDelta(t, 70, pattern.AvgSpeed, 1e-9)
	assert.Contains(t, pattern.Factors, "High group movement speed")
}

func TestDetectGroupAnomaly_RiskLevelShares(t *testing.T) {
	service := NewCorrelationService()

	// Больше половины красных
	red := []*models.Tourist{
		touristAt("a", 28.61, 77.21),
		touristAt("b", 28.61, 77.21),
		touristAt("c", 28.61, 77.21),
	}
	red[0].RiskLevel = models.RiskLevelRed
	red[1].RiskLevel = models.RiskLevelRed

	pattern := service.DetectGroupAnomaly(red)
	assert.True(t, pattern.Anomalous)
	assert.Contains(t, pattern.Factors, "Multiple high-risk individuals")

	// Красных и желтых вместе больше 80%
	mixed := []*models.Tourist{
		touristAt("a", 28.61, 77.21),
		touristAt("b", 28.61, 77.21),
		touristAt("c", 28.61, 77.21),
		touristAt("d", 28.61, 77.21),
		touristAt("e", 28.61, 77.21),
	}
	mixed[0].RiskLevel = models.RiskLevelRed
	mixed[1].RiskLevel = models.RiskLevelRed
	mixed[2].RiskLevel = models.RiskLevelYellow
	mixed[3].RiskLevel = models.RiskLevelYellow
	mixed[4].RiskLevel = models.RiskLevelYellow

	assert.True(t, service.DetectGroupAnomaly(mixed).Anomalous)

	// Спокойная группа
	calm := []*models.Tourist{
		touristAt("a", 28.61, 77.21),
		touristAt("b", 28.61, 77.21),
		touristAt("c", 28.61, 77.21),
	}
	for _, m := range calm {
		m.RiskLevel = models.RiskLevelGreen
		m.Speed = 4
	}
	assert.False(t, service.DetectGroupAnomaly(calm).Anomalous)
}

func TestCentroid(t *testing.T) {
	service := NewCorrelationService()

	centroid := service.Centroid([]*models.Tourist{
		touristAt("a", 28.60, 77.20),
		touristAt("b", 28.62, 77.22),
		{ID: "no-location"},
	})

	require.NotNil(t, centroid)
	assert.InDelta(t, 28.61, centroid.Latitude, 1e-9)
	assert.InDelta(t, 77.21, centroid.Longitude, 1e-9)

	assert.Nil(t, service.Centroid([]*models.Tourist{{ID: "x"}}))
}
