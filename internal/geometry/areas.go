// Package geometry answers point-in-area questions for country and
// continent outlines, plus great-circle distances between coordinates.
package geometry

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"

	"github.com/couchcryptid/tweet-geoparser/internal/domain"
)

// area holds a preloaded outline with its bounding box. The box is checked
// first so most misses never reach the polygon test.
type area struct {
	geom  orb.Geometry
	bound orb.Bound
}

// Index holds the outlines of administrative areas keyed by geoname id.
// Containment tests against an id that was never loaded return false and
// log once per id.
type Index struct {
	areas map[int64]area

	logger *slog.Logger

	mu            sync.Mutex
	missingLogged map[int64]struct{}
}

// NewIndex creates an empty area index.
func NewIndex(logger *slog.Logger) *Index {
	return &Index{
		areas:         make(map[int64]area),
		logger:        logger,
		missingLogged: make(map[int64]struct{}),
	}
}

// Add registers an area outline under the given geoname id.
func (ix *Index) Add(id int64, g orb.Geometry) {
	ix.areas[id] = area{geom: g, bound: g.Bound()}
}

// AddWKT parses a WKT outline (POLYGON or MULTIPOLYGON) and registers it.
func (ix *Index) AddWKT(id int64, text string) error {
	g, err := wkt.Unmarshal(text)
	if err != nil {
		return fmt.Errorf("parse outline for %d: %w", id, err)
	}
	switch g.(type) {
	case orb.Polygon, orb.MultiPolygon:
	default:
		return fmt.Errorf("outline for %d: unsupported geometry %T", id, g)
	}
	ix.Add(id, g)
	return nil
}

// Len returns the number of loaded areas.
func (ix *Index) Len() int {
	return len(ix.areas)
}

// Contains reports whether the area registered under id contains the
// coordinate. A missing area counts as not containing.
func (ix *Index) Contains(id int64, c domain.Coordinate) bool {
	a, ok := ix.areas[id]
	if !ok {
		ix.logMissing(id)
		return false
	}
	pt := orb.Point{c.Lon, c.Lat}
	if !a.bound.Contains(pt) {
		return false
	}
	switch g := a.geom.(type) {
	case orb.Polygon:
		return planar.PolygonContains(g, pt)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(g, pt)
	}
	return false
}

func (ix *Index) logMissing(id int64) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if _, ok := ix.missingLogged[id]; ok {
		return
	}
	ix.missingLogged[id] = struct{}{}
	ix.logger.Warn("containment test against unloaded area", "geonameid", id)
}

// Distance returns the great-circle distance between two coordinates in
// meters.
func Distance(a, b domain.Coordinate) float64 {
	return geo.Distance(orb.Point{a.Lon, a.Lat}, orb.Point{b.Lon, b.Lat})
}
