package routine

import (
	cryptorand "crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/paulmach/orb"
	"github.com/tidwall/geodesic"
)

// jitter is the half-width of the uniform offset added to each emitted axis.
const jitter = 5e-6

// minLoopKm is the shortest closed loop a positive target can be walked on.
const minLoopKm = 0.001

var (
	// ErrInvalidTarget is returned for NaN or infinite target distances.
	ErrInvalidTarget = errors.New("target distance must be finite")
	// ErrDegenerateTemplate is returned when the closed loop is shorter than
	// one metre, which includes every vertex coinciding.
	ErrDegenerateTemplate = errors.New("route template has zero length")
)

// Point is one emitted track point in GCJ-02 degrees.
type Point struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// Synthesize walks the template (looping as needed) until the geodesic
// distance covered reaches targetKm and returns the jittered points. Distance
// is measured between transformed vertices before jitter. rng may be nil.
func Synthesize(t Template, targetKm float64, rng *rand.Rand) ([]Point, error) {
	if len(t) == 0 {
		return nil, fmt.Errorf("route: %w", ErrEmptyTemplate)
	}
	if math.IsNaN(targetKm) || math.IsInf(targetKm, 0) {
		return nil, fmt.Errorf("route: %w", ErrInvalidTarget)
	}
	if rng == nil {
		rng = NewRand()
	}

	vertices := t.transformed()
	if targetKm > 0 && loopLength(vertices) < minLoopKm {
		return nil, fmt.Errorf("route: %w", ErrDegenerateTemplate)
	}

	remaining := targetKm
	last := vertices[0]
	var points []Point

	for {
		for _, v := range vertices {
			remaining -= distanceKm(last, v)
			last = v

			points = append(points, Point{
				Longitude: v.Lon() + offset(rng),
				Latitude:  v.Lat() + offset(rng),
			})

			if remaining <= 0 {
				return points, nil
			}
		}
	}
}

// SynthesizeRoute parses a GeoJSON template and synthesizes targetKm of track.
func SynthesizeRoute(geojson []byte, targetKm float64) ([]Point, error) {
	t, err := ParseTemplate(geojson)
	if err != nil {
		return nil, err
	}
	return Synthesize(t, targetKm, nil)
}

// Distance returns the WGS-84 geodesic distance between two points in km.
func Distance(a, b Point) float64 {
	return distanceKm(orb.Point{a.Longitude, a.Latitude}, orb.Point{b.Longitude, b.Latitude})
}

func distanceKm(a, b orb.Point) float64 {
	var s12 float64
	geodesic.WGS84.Inverse(a.Lat(), a.Lon(), b.Lat(), b.Lon(), &s12, nil, nil)
	return s12 / 1000
}

// loopLength is the closed-loop geodesic length of vertices in km.
func loopLength(vertices []orb.Point) float64 {
	total := 0.0
	for i := range vertices {
		total += distanceKm(vertices[i], vertices[(i+1)%len(vertices)])
	}
	return total
}

func offset(rng *rand.Rand) float64 {
	return (rng.Float64()*2 - 1) * jitter
}

// NewRand returns a ChaCha8 generator seeded from crypto/rand.
func NewRand() *rand.Rand {
	var seed [32]byte
	cryptorand.Read(seed[:])
	return rand.New(rand.NewChaCha8(seed))
}
