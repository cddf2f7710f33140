package routine

import "math"

// Krasovsky 1940 ellipsoid parameters used by the GCJ-02 offset.
const (
	gcjSemiMajor    = 6378245.0
	gcjEccentricity = 0.006693421622965943
)

// The offset only applies inside this box; everything else passes through.
const (
	minLon = 72.004
	maxLon = 137.8347
	minLat = 0.8293
	maxLat = 55.8271
)

func outOfRegion(lat, lon float64) bool {
	return lon < minLon || lon > maxLon || lat < minLat || lat > maxLat
}

// WGS84ToGCJ02 converts a WGS-84 coordinate to the GCJ-02 system the backend
// geofences on. It is the identity outside the region box.
func WGS84ToGCJ02(lat, lon float64) (float64, float64) {
	if outOfRegion(lat, lon) {
		return lat, lon
	}

	dLat := transformLat(lon-105.0, lat-35.0)
	dLon := transformLon(lon-105.0, lat-35.0)

	radLat := lat / 180.0 * math.Pi
	magic := math.Sqrt(1 - gcjEccentricity*math.Sin(radLat)*math.Sin(radLat))

	dLat = (dLat * 180.0) / ((gcjSemiMajor * (1 - gcjEccentricity)) / (magic * magic) * math.Pi)
	dLon = (dLon * 180.0) / (gcjSemiMajor / magic * math.Cos(radLat) * math.Pi)

	return lat + dLat, lon + dLon
}

func transformLat(x, y float64) float64 {
	ret := -100.0 + 2.0*x + 3.0*y + 0.2*y*y + 0.1*x*y + 0.2*math.Sqrt(math.Abs(x))
	ret += (20.0*math.Sin(6.0*x*math.Pi) + 20.0*math.Sin(2.0*x*math.Pi)) * 2.0 / 3.0
	ret += (20.0*math.Sin(y*math.Pi) + 40.0*math.Sin(y/3.0*math.Pi)) * 2.0 / 3.0
	ret += (160.0*math.Sin(y/12.0*math.Pi) + 320.0*math.Sin(y*math.Pi/30.0)) * 2.0 / 3.0
	return ret
}

func transformLon(x, y float64) float64 {
	ret := 300.0 + x + 2.0*y + 0.1*x*x + 0.1*x*y + 0.1*math.Sqrt(math.Abs(x))
	ret += (20.0*math.Sin(6.0*x*math.Pi) + 20.0*math.Sin(2.0*x*math.Pi)) * 2.0 / 3.0
	ret += (20.0*math.Sin(x*math.Pi) + 40.0*math.Sin(x/3.0*math.Pi)) * 2.0 / 3.0
	ret += (150.0*math.Sin(x/12.0*math.Pi) + 300.0*math.Sin(x/30.0*math.Pi)) * 2.0 / 3.0
	return ret
}

// GCJ02ToWGS84 inverts WGS84ToGCJ02 by fixed-point iteration. The result is
// accurate to well under a centimetre inside the region.
func GCJ02ToWGS84(lat, lon float64) (float64, float64) {
	if outOfRegion(lat, lon) {
		return lat, lon
	}

	wLat, wLon := lat, lon
	for i := 0; i < 5; i++ {
		gLat, gLon := WGS84ToGCJ02(wLat, wLon)
		wLat -= gLat - lat
		wLon -= gLon - lon
	}
	return wLat, wLon
}
