package geo

import (
	"errors"
	"math"
)

// EarthRadiusKm - радиус Земли в километрах
const EarthRadiusKm = 6371.0

// ErrInvalidCoordinate возвращается при некорректных широте/долготе
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// ValidateCoordinate проверяет, что координаты лежат в допустимых пределах WGS84
func ValidateCoordinate(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return ErrInvalidCoordinate
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return ErrInvalidCoordinate
	}
	return nil
}

// Distance вычисляет расстояние между двумя точками по формуле гаверсинусов (в км)
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// Point - точка в координатах lon/lat (порядок как в GeoJSON)
type Point struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// PointInPolygon проверяет попадание точки в полигон методом ray casting (правило even-odd).
// ring - замкнутое кольцо полигона в порядке lon/lat.
func PointInPolygon(lon, lat float64, ring []Point) bool {
	inside := false
	for i, j := 0, len(ring)-1; i < len(ring); j, i = i, i+1 {
		xi, yi := ring[i].Lon, ring[i].Lat
		xj, yj := ring[j].Lon, ring[j].Lat
		intersect := (yi > lat) != (yj > lat) &&
			lon < (xj-xi)*(lat-yi)/(yj-yi)+xi
		if intersect {
			inside = !inside
		}
	}
	return inside
}
