package routine

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

var (
	// ErrInvalidGeometry is returned when the GeoJSON is not a feature
	// collection whose first feature is a LineString.
	ErrInvalidGeometry = errors.New("invalid route geometry")
	// ErrEmptyTemplate is returned for a path with no vertices.
	ErrEmptyTemplate = errors.New("route template has no vertices")
)

// Template is the raw WGS-84 path a route is replayed from.
type Template []orb.Point

// ParseTemplate extracts the template path from a GeoJSON FeatureCollection.
// Only the first feature is used and it must be a LineString.
func ParseTemplate(data []byte) (Template, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("route: %w: %v", ErrInvalidGeometry, err)
	}
	if fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("route: %w: expected FeatureCollection, got %q", ErrInvalidGeometry, fc.Type)
	}
	if len(fc.Features) == 0 {
		return nil, fmt.Errorf("route: %w: no feature found", ErrInvalidGeometry)
	}

	feature := fc.Features[0]
	if feature.Geometry == nil {
		return nil, fmt.Errorf("route: %w: no geometry found", ErrInvalidGeometry)
	}

	ls, ok := feature.Geometry.(orb.LineString)
	if !ok {
		return nil, fmt.Errorf("route: %w: expected LineString, got %s", ErrInvalidGeometry, feature.Geometry.GeoJSONType())
	}
	if len(ls) == 0 {
		return nil, fmt.Errorf("route: %w", ErrEmptyTemplate)
	}

	return Template(ls), nil
}

// Length returns the closed-loop length of the transformed template in km,
// including the segment from the last vertex back to the first.
func (t Template) Length() float64 {
	return loopLength(t.transformed())
}

func (t Template) transformed() []orb.Point {
	out := make([]orb.Point, len(t))
	for i, p := range t {
		lat, lon := WGS84ToGCJ02(p.Lat(), p.Lon())
		out[i] = orb.Point{lon, lat}
	}
	return out
}

// GeoJSON encodes t as a FeatureCollection holding one LineString, the form
// ParseTemplate reads.
func (t Template) GeoJSON() ([]byte, error) {
	if len(t) == 0 {
		return nil, ErrEmptyTemplate
	}
	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(orb.LineString(t)))
	return fc.MarshalJSON()
}
