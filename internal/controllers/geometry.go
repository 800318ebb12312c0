package controllers

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/twpayne/go-geom"
	gjson "github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/wkb"
)

var errNotLineString = errors.New("geometry must be a GeoJSON LineString")

// parseAndConvertGeometry parses a GeoJSON LineString and returns WKB bytes.
func parseAndConvertGeometry(raw string) ([]byte, error) {
	if raw == "" {
		return nil, nil
	}
	var g geom.T
	if err := gjson.Unmarshal([]byte(raw), &g); err != nil {
		return nil, err
	}
	ls, ok := g.(*geom.LineString)
	if !ok || ls.NumCoords() < 2 {
		return nil, errNotLineString
	}
	return wkb.Marshal(ls, binary.LittleEndian)
}

// convertWKBToGeoJSON converts WKB bytes into a GeoJSON string.
func convertWKBToGeoJSON(wkbBytes []byte) (string, error) {
	if len(wkbBytes) == 0 {
		return "", nil
	}
	g, err := wkb.Unmarshal(wkbBytes)
	if err != nil {
		return "", err
	}
	b, err := gjson.Marshal(g)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// lineLengthKm sums the great-circle length of a stored LineString.
func lineLengthKm(wkbBytes []byte) float64 {
	if len(wkbBytes) == 0 {
		return 0
	}
	g, err := wkb.Unmarshal(wkbBytes)
	if err != nil {
		return 0
	}
	ls, ok := g.(*geom.LineString)
	if !ok {
		return 0
	}

	var total float64
	for i := 1; i < ls.NumCoords(); i++ {
		a, b := ls.Coord(i-1), ls.Coord(i)
		// GeoJSON order is lng, lat.
		total += calculateDistance(a.Y(), a.X(), b.Y(), b.X())
	}
	return math.Round(total/10) / 100
}

// calculateDistance returns the haversine distance in meters.
func calculateDistance(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371000 // Earth's radius in meters.
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return R * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
