package sqlite

import (
	"database/sql/driver"
	"math"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/neomorfeo/roomlist/internal/domain"
)

func TestCoverCells_ContainEveryPointInCap(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 99))

	for range 200 {
		g := domain.GeoRadius{
			Center: domain.GeoPoint{
				Lat: rng.Float64()*160 - 80,
				Lng: rng.Float64()*360 - 180,
			},
			RadiusKm: math.Pow(10, rng.Float64()*3-1),
		}
		chars, cells := coverCells(g)
		if chars == 0 {
			continue
		}

		angle := g.AngularRadius()
		for range 50 {
			// Random point on the cap boundary, the hardest case for the cover.
			bearing := rng.Float64() * 2 * math.Pi
			p := destination(g.Center, bearing, angle*0.999)
			if !g.Contains(p) {
				continue
			}
			cell := encodePoint(p, geohashChars)[:chars]
			if !slices.Contains(cells, cell) {
				t.Fatalf("point %v within %.3fkm of %v falls in %q, outside cover %v",
					p, g.RadiusKm, g.Center, cell, cells)
			}
		}
	}
}

func TestCoverCells_SkipsPolarCaps(t *testing.T) {
	chars, cells := coverCells(domain.GeoRadius{Center: domain.GeoPoint{Lat: 89.99, Lng: 0}, RadiusKm: 5})
	if chars != 0 || cells != nil {
		t.Errorf("coverCells near pole = %d %v, want no prefilter", chars, cells)
	}
}

func TestWithinCap_NullNeverMatches(t *testing.T) {
	got, err := withinCap(nil, []driver.Value{nil, 1.0, 1.0, 1.0, 0.1})
	if err != nil {
		t.Fatalf("withinCap: %v", err)
	}
	if got != int64(0) {
		t.Errorf("withinCap(NULL) = %v, want 0", got)
	}

	got, _ = withinCap(nil, []driver.Value{int64(10), int64(106), 10.0, 106.0, 0.0})
	if got != int64(1) {
		t.Errorf("withinCap(center) = %v, want 1", got)
	}
}

// destination walks angle radians from p along bearing on the unit sphere.
func destination(p domain.GeoPoint, bearing, angle float64) domain.GeoPoint {
	lat1 := p.Lat * math.Pi / 180
	lng1 := p.Lng * math.Pi / 180
	lat2 := math.Asin(math.Sin(lat1)*math.Cos(angle) + math.Cos(lat1)*math.Sin(angle)*math.Cos(bearing))
	lng2 := lng1 + math.Atan2(math.Sin(bearing)*math.Sin(angle)*math.Cos(lat1), math.Cos(angle)-math.Sin(lat1)*math.Sin(lat2))
	return domain.GeoPoint{Lat: lat2 * 180 / math.Pi, Lng: wrapLng(lng2 * 180 / math.Pi)}
}
