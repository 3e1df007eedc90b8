// Package timezone resolves a UTC offset at a point in time to the set of
// canonical IANA zones sharing that offset, with a process-wide interval
// cache so repeated lookups for the same offset and period are free.
package timezone

import (
	_ "embed"
	"errors"
	"strings"
	"sync"
	"time"
	_ "time/tzdata" // self-contained zone database
)

//go:embed zones.txt
var zonesRaw string

// scanStep is the coarse step used to find where an offset's zone set
// changes (DST transitions); refineStep narrows the boundary afterwards.
const (
	scanStep   = 72 * time.Hour
	refineStep = time.Hour
	horizon    = 365 * 24 * time.Hour
)

// interval records which zones shared an offset during [Start, End).
type interval struct {
	start time.Time
	end   time.Time
	zones map[string]struct{}
}

// Resolver maps (utc offset, instant) to the canonical zone names holding
// that offset at that instant. Validity intervals are cached per offset and
// extended lazily; the cache grows monotonically and is safe for concurrent
// use under a single mutex.
type Resolver struct {
	locations map[string]*time.Location

	mu        sync.Mutex
	intervals map[int][]interval
}

// NewResolver loads the canonical zone list. Zones missing from the local
// database are skipped; an error is returned only if none load.
func NewResolver() (*Resolver, error) {
	locations := make(map[string]*time.Location)
	for _, name := range strings.Fields(zonesRaw) {
		loc, err := time.LoadLocation(name)
		if err != nil {
			continue
		}
		locations[name] = loc
	}
	if len(locations) == 0 {
		return nil, errors.New("timezone: no canonical zones could be loaded")
	}
	return &Resolver{
		locations: locations,
		intervals: make(map[int][]interval),
	}, nil
}

// ZonesAt returns the set of canonical zones whose UTC offset equals
// offsetSeconds at the given instant. The result is shared cache state and
// must not be mutated. An unknown offset yields an empty set.
func (r *Resolver) ZonesAt(offsetSeconds int, at time.Time) map[string]struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()

	known := r.intervals[offsetSeconds]
	for i := len(known) - 1; i >= 0; i-- {
		iv := known[i]
		if !at.Before(iv.start) && at.Before(iv.end) {
			return iv.zones
		}
	}

	zones, end := r.scan(offsetSeconds, at)
	r.intervals[offsetSeconds] = append(known, interval{start: at, end: end, zones: zones})
	return zones
}

// scan finds the zones matching the offset at `from` and walks forward until
// the membership set changes, first in coarse steps, then refining the
// boundary hourly. The horizon bounds the walk for offsets that never
// change, such as whole-hour offsets without DST.
func (r *Resolver) scan(offsetSeconds int, from time.Time) (map[string]struct{}, time.Time) {
	maxDate := from.Add(horizon)
	zones := r.zonesWithOffset(offsetSeconds, from)

	at := from
	for {
		at = at.Add(scanStep)
		if !sameZones(zones, r.zonesWithOffset(offsetSeconds, at)) {
			at = at.Add(-scanStep)
			break
		}
		if at.After(maxDate) {
			return zones, at.Add(-scanStep)
		}
	}

	for {
		at = at.Add(refineStep)
		if at.After(maxDate) || !sameZones(zones, r.zonesWithOffset(offsetSeconds, at)) {
			return zones, at.Add(-refineStep)
		}
	}
}

func (r *Resolver) zonesWithOffset(offsetSeconds int, at time.Time) map[string]struct{} {
	matched := make(map[string]struct{})
	for name, loc := range r.locations {
		if _, off := at.In(loc).Zone(); off == offsetSeconds {
			matched[name] = struct{}{}
		}
	}
	return matched
}

func sameZones(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
