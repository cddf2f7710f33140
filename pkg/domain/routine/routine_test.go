package routine

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const squareRoute = `{
  "type": "FeatureCollection",
  "features": [{
    "type": "Feature",
    "properties": {},
    "geometry": {
      "type": "LineString",
      "coordinates": [
        [104.0668, 30.5728],
        [104.0678, 30.5728],
        [104.0678, 30.5738],
        [104.0668, 30.5738]
      ]
    }
  }]
}`

func TestWGS84ToGCJ02(t *testing.T) {
	tests := []struct {
		name             string
		lat, lon         float64
		wantLat, wantLon float64
	}{
		{"beijing", 39.9042, 116.4074, 39.90560527995126, 116.41364225378803},
		{"chengdu", 30.5728, 104.0668, 30.570344013720966, 104.06930547724922},
		{"london passes through", 51.5074, -0.1278, 51.5074, -0.1278},
		{"south of region", -33.8688, 151.2093, -33.8688, 151.2093},
		{"west of region", 40.0, 70.0, 40.0, 70.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lat, lon := WGS84ToGCJ02(tt.lat, tt.lon)
			assert.InDelta(t, tt.wantLat, lat, 1e-9)
			assert.InDelta(t, tt.wantLon, lon, 1e-9)
		})
	}
}

func TestParseTemplate(t *testing.T) {
	tmpl, err := ParseTemplate([]byte(squareRoute))
	require.NoError(t, err)
	require.Len(t, tmpl, 4)
	assert.Equal(t, orb.Point{104.0668, 30.5728}, tmpl[0])
}

func TestParseTemplate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"not json", `{{`, ErrInvalidGeometry},
		{"bare feature", `{"type":"Feature","geometry":{"type":"LineString","coordinates":[[1,2]]},"properties":{}}`, ErrInvalidGeometry},
		{"no features", `{"type":"FeatureCollection","features":[]}`, ErrInvalidGeometry},
		{"point geometry", `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{},"geometry":{"type":"Point","coordinates":[1,2]}}]}`, ErrInvalidGeometry},
		{"empty line", `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{},"geometry":{"type":"LineString","coordinates":[]}}]}`, ErrEmptyTemplate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTemplate([]byte(tt.input))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestSynthesize_CoversTarget(t *testing.T) {
	tmpl, err := ParseTemplate([]byte(squareRoute))
	require.NoError(t, err)

	loop := tmpl.Length()
	require.Greater(t, loop, 0.3)
	require.Less(t, loop, 0.5)

	for _, target := range []float64{0.05, 0.4, 1.0, 2.5} {
		pts, err := Synthesize(tmpl, target, rand.New(rand.NewPCG(1, 2)))
		require.NoError(t, err)
		require.NotEmpty(t, pts)

		// Emitted points sit within jitter of a transformed vertex, in order.
		vertices := tmpl.transformed()
		covered := 0.0
		prev := vertices[0]
		for i, p := range pts {
			v := vertices[i%len(vertices)]
			assert.InDelta(t, v.Lon(), p.Longitude, jitter)
			assert.InDelta(t, v.Lat(), p.Latitude, jitter)
			covered += distanceKm(prev, v)
			prev = v
		}
		assert.GreaterOrEqual(t, covered, target)

		// Dropping the last point must leave the target uncovered.
		last := vertices[(len(pts)-1)%len(vertices)]
		before := vertices[(len(pts)-2+len(vertices))%len(vertices)]
		if len(pts) == 1 {
			before = last
		}
		assert.Less(t, covered-distanceKm(before, last), target)
	}
}

func TestSynthesize_LoopsTemplate(t *testing.T) {
	tmpl, err := ParseTemplate([]byte(squareRoute))
	require.NoError(t, err)

	pts, err := Synthesize(tmpl, tmpl.Length()*3, nil)
	require.NoError(t, err)
	assert.Greater(t, len(pts), 3*len(tmpl))
}

func TestSynthesize_NonPositiveTarget(t *testing.T) {
	tmpl, err := ParseTemplate([]byte(squareRoute))
	require.NoError(t, err)

	for _, target := range []float64{0, -1} {
		pts, err := Synthesize(tmpl, target, nil)
		require.NoError(t, err)
		assert.Len(t, pts, 1)
	}
}

func TestSynthesize_Errors(t *testing.T) {
	tmpl := Template{{104.0668, 30.5728}}

	_, err := Synthesize(nil, 1, nil)
	assert.ErrorIs(t, err, ErrEmptyTemplate)

	_, err = Synthesize(tmpl, math.NaN(), nil)
	assert.ErrorIs(t, err, ErrInvalidTarget)

	_, err = Synthesize(tmpl, math.Inf(1), nil)
	assert.ErrorIs(t, err, ErrInvalidTarget)

	_, err = Synthesize(tmpl, 1, nil)
	assert.ErrorIs(t, err, ErrDegenerateTemplate)
}

func TestSynthesize_ZeroLengthLoop(t *testing.T) {
	tests := []struct {
		name string
		tmpl Template
	}{
		{"distinct vertices on the pole", Template{{0, 90}, {90, 90}}},
		{"one ulp apart", Template{{104, 30}, {104, math.Nextafter(30, 31)}}},
		{"sub-metre loop", Template{{104, 30}, {104, 30.000001}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Synthesize(tt.tmpl, 1, rand.New(rand.NewPCG(1, 2)))
			assert.ErrorIs(t, err, ErrDegenerateTemplate)
		})
	}
}

func TestSynthesize_Deterministic(t *testing.T) {
	tmpl, err := ParseTemplate([]byte(squareRoute))
	require.NoError(t, err)

	a, err := Synthesize(tmpl, 1.2, rand.New(rand.NewPCG(7, 7)))
	require.NoError(t, err)
	b, err := Synthesize(tmpl, 1.2, rand.New(rand.NewPCG(7, 7)))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSynthesizeRoute(t *testing.T) {
	pts, err := SynthesizeRoute([]byte(squareRoute), 0.8)
	require.NoError(t, err)
	assert.NotEmpty(t, pts)

	_, err = SynthesizeRoute([]byte(`[]`), 0.8)
	assert.ErrorIs(t, err, ErrInvalidGeometry)
}

func TestGCJ02ToWGS84(t *testing.T) {
	for _, p := range [][2]float64{{39.9042, 116.4074}, {30.5728, 104.0668}, {22.5431, 114.0579}} {
		gLat, gLon := WGS84ToGCJ02(p[0], p[1])
		lat, lon := GCJ02ToWGS84(gLat, gLon)
		assert.InDelta(t, p[0], lat, 1e-8)
		assert.InDelta(t, p[1], lon, 1e-8)
	}

	lat, lon := GCJ02ToWGS84(51.5074, -0.1278)
	assert.Equal(t, 51.5074, lat)
	assert.Equal(t, -0.1278, lon)
}

func TestDistance(t *testing.T) {
	a := Point{Longitude: 104.0668, Latitude: 30.5728}
	b := Point{Longitude: 104.0668, Latitude: 30.5828}

	// 0.01 degrees of latitude is about 1.109 km here.
	assert.InDelta(t, 1.109, Distance(a, b), 0.002)
	assert.Equal(t, 0.0, Distance(a, a))
	assert.InDelta(t, Distance(a, b), Distance(b, a), 1e-12)
}

func TestNewRand(t *testing.T) {
	a, b := NewRand(), NewRand()
	assert.NotEqual(t, a.Uint64(), b.Uint64(), "independent seeds")
}
