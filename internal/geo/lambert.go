package geo

// Lambert-93 (EPSG:2154) → WGS-84. IGN ADMIN-EXPRESS department shapefiles
// ship in this CRS; the map needs latitude/longitude.

import "math"

const (
	l93FalseEasting  = 700000.0
	l93FalseNorthing = 6600000.0
	l93Phi0Deg       = 46.5 // latitude of origin
	l93Phi1Deg       = 49.0 // standard parallel 1
	l93Phi2Deg       = 44.0 // standard parallel 2
	l93Lon0Deg       = 3.0  // central meridian

	grs80SemiMajorM = 6378137.0
	grs80E2         = 0.00669438002290 // GRS80 eccentricity squared
)

var (
	l93N    float64
	l93F    float64
	l93Rho0 float64
	l93E    = math.Sqrt(grs80E2)
)

func init() {
	phi0 := l93Phi0Deg * math.Pi / 180
	phi1 := l93Phi1Deg * math.Pi / 180
	phi2 := l93Phi2Deg * math.Pi / 180

	m1 := lccM(phi1)
	t1 := lccT(phi1)

	l93N = math.Log(m1/lccM(phi2)) / math.Log(t1/lccT(phi2))
	l93F = grs80SemiMajorM * m1 / (l93N * math.Pow(t1, l93N))
	l93Rho0 = l93F * math.Pow(lccT(phi0), l93N)
}

func lccM(phi float64) float64 {
	s := math.Sin(phi)
	return math.Cos(phi) / math.Sqrt(1-grs80E2*s*s)
}

func lccT(phi float64) float64 {
	es := l93E * math.Sin(phi)
	return math.Tan(math.Pi/4-phi/2) / math.Pow((1-es)/(1+es), l93E/2)
}

// lambert93ToWGS84 converts Lambert-93 easting/northing in metres to
// latitude/longitude in decimal degrees.
func lambert93ToWGS84(easting, northing float64) (latDeg, lonDeg float64) {
	dx := easting - l93FalseEasting
	dy := l93Rho0 - (northing - l93FalseNorthing)

	rho := math.Copysign(math.Hypot(dx, dy), l93N)
	theta := math.Atan2(dx, dy)
	t := math.Pow(rho/l93F, 1/l93N)

	phi := math.Pi/2 - 2*math.Atan(t)
	for range 10 {
		es := l93E * math.Sin(phi)
		phi = math.Pi/2 - 2*math.Atan(t*math.Pow((1-es)/(1+es), l93E/2))
	}

	latDeg = phi * 180 / math.Pi
	lonDeg = theta/l93N*180/math.Pi + l93Lon0Deg
	return latDeg, lonDeg
}
