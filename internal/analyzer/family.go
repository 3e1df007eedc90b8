package analyzer

import (
	"github.com/couchcryptid/tweet-geoparser/internal/domain"
	"github.com/couchcryptid/tweet-geoparser/internal/geometry"
	"github.com/couchcryptid/tweet-geoparser/internal/sanitize"
)

// Distance thresholds in meters.
const (
	nearDistance              = 200_000
	maxDistanceCityCoordinate = 200_000
	maxDistanceBBoxCenter     = 200_000
)

// minToponymLengthForAdm1 gates the adm1/town kinship on surface-form
// length: short names collide across countries too often to trust the
// direct parent check alone.
const minToponymLengthForAdm1 = 7

// isFamily reports whether two locations are geographic kin: parent/child
// across administrative levels, or siblings within one level when siblings
// is set. The relation is symmetric in the location arguments.
//
// considerToponymLength restricts the adm1/town parent check to surface
// forms of at least seven runes; when off, a shared first-level parent also
// counts (the ADM2 case). considerPopulation raises the town/town sibling
// floor to 5000 inhabitants.
func (a *Analyzer) isFamily(l1, l2 domain.Entry, t1, t2 string, siblings, considerToponymLength, considerPopulation bool) bool {
	if l1.Type == l2.Type {
		if !siblings {
			return false
		}
		switch l1.Type {
		case domain.TypeTown:
			minPopulation := int64(1)
			if considerPopulation {
				minPopulation = 5000
			}
			if l1.Population >= minPopulation && l2.Population >= minPopulation {
				return isNear(l1, l2)
			}
			return false
		case domain.TypeAdm1:
			return l1.CountryGeonameID == l2.CountryGeonameID
		default:
			// Two countries or two continents always relate.
			return true
		}
	}

	big, small := l1, l2
	if l2.Type.SizeRank() < l1.Type.SizeRank() {
		big, small = l2, l1
	}

	switch {
	case big.Type == domain.TypeContinent:
		if small.Type != domain.TypeCountry {
			// adm1 and towns are too small to relate to a continent.
			return false
		}
		for _, continent := range a.ref.ContinentsOf(small.CountryGeonameID) {
			if continent == big.GeonameID {
				return true
			}
		}
		return false
	case big.Type == domain.TypeCountry:
		return big.CountryGeonameID == small.CountryGeonameID
	case considerToponymLength:
		if sanitize.RuneLen(t1) >= minToponymLengthForAdm1 && sanitize.RuneLen(t2) >= minToponymLengthForAdm1 {
			return big.GeonameID == small.Adm1GeonameID
		}
		return false
	default:
		return big.GeonameID == small.Adm1GeonameID ||
			(big.Adm1GeonameID != 0 && big.Adm1GeonameID == small.Adm1GeonameID)
	}
}

// isNear reports whether two towns lie within the near distance of each
// other. Non-town entries or towns without a coordinate are never near.
func isNear(l1, l2 domain.Entry) bool {
	if l1.Type != domain.TypeTown || l2.Type != domain.TypeTown {
		return false
	}
	if l1.Coordinate == nil || l2.Coordinate == nil {
		return false
	}
	return geometry.Distance(*l1.Coordinate, *l2.Coordinate) < nearDistance
}
