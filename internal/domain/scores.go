package domain

import "math"

// ScoreType names one of the five evidence dimensions.
type ScoreType string

const (
	ScoreCoordinates ScoreType = "coordinates"
	ScoreBBox        ScoreType = "bbox"
	ScoreUTCOffset   ScoreType = "utc_offset"
	ScoreUserHome    ScoreType = "user_home"
	ScoreFamily      ScoreType = "family"
)

// ScoreTypes lists the evidence dimensions in a fixed order so aggregation
// and serialized output are deterministic.
var ScoreTypes = []ScoreType{
	ScoreCoordinates,
	ScoreBBox,
	ScoreUTCOffset,
	ScoreUserHome,
	ScoreFamily,
}

// Weights holds the configured score awarded per evidence match.
type Weights struct {
	Coordinates float64
	BBox        float64
	UTCOffset   float64
	UserHome    float64
	Family      float64
}

// DefaultWeights returns the default relative importance of the evidence
// dimensions: family > coordinates = bbox > user home > UTC offset.
func DefaultWeights() Weights {
	return Weights{
		Coordinates: 2,
		BBox:        2,
		UTCOffset:   0.5,
		UserHome:    1,
		Family:      3,
	}
}

// Scores is the evidence record of a candidate within one message. Each
// field is either zero or the configured weight, except UserHome which may
// be a fraction of its weight when the user's home is a country and the
// candidate a smaller place.
type Scores struct {
	Coordinates float64 `bson:"coordinates"`
	BBox        float64 `bson:"bbox"`
	UTCOffset   float64 `bson:"utc_offset"`
	UserHome    float64 `bson:"user_home"`
	Family      float64 `bson:"family"`
}

// Get returns the score for one dimension.
func (s Scores) Get(t ScoreType) float64 {
	switch t {
	case ScoreCoordinates:
		return s.Coordinates
	case ScoreBBox:
		return s.BBox
	case ScoreUTCOffset:
		return s.UTCOffset
	case ScoreUserHome:
		return s.UserHome
	case ScoreFamily:
		return s.Family
	}
	return 0
}

// Candidate pairs a gazetteer entry with the evidence scores it collected in
// one message. Candidates live in the scored message's toponym arena; the
// family step mutates Scores.Family on both sides through that arena.
type Candidate struct {
	Entry  `bson:",inline"`
	Scores Scores `bson:"scores"`
}

// ScoreBreakdown is the windowed aggregate for one evidence dimension of a
// resolved location.
type ScoreBreakdown struct {
	TypeScore    float64 `json:"type_score" bson:"type_score"`
	AvgTypeScore float64 `json:"avg_type_score" bson:"avg_type_score"`
}

// ResolvedLocation is the single gazetteer entry selected for a surface form
// over a window, with its aggregated scores.
type ResolvedLocation struct {
	Toponym          string                       `json:"toponym" bson:"toponym"`
	GeonameID        int64                        `json:"geonameid" bson:"geonameid"`
	Type             LocationType                 `json:"type" bson:"type"`
	Population       int64                        `json:"population" bson:"population"`
	CountryGeonameID int64                        `json:"country_geonameid" bson:"country_geonameid"`
	Adm1GeonameID    int64                        `json:"adm1_geonameid" bson:"adm1_geonameid"`
	Coordinate       *Coordinate                  `json:"coordinate,omitempty" bson:"coordinate,omitempty"`
	AvgScore         float64                      `json:"avg_score" bson:"avg_score"`
	Scores           map[ScoreType]ScoreBreakdown `json:"scores" bson:"scores"`
}

// Equal reports whether two resolved locations carry the same assignment and
// aggregate score. Used by the commit diff to suppress no-op writes.
func (l ResolvedLocation) Equal(other ResolvedLocation) bool {
	return l.Toponym == other.Toponym &&
		l.GeonameID == other.GeonameID &&
		l.AvgScore == other.AvgScore
}

// RoundScore rounds a windowed average to three decimals.
func RoundScore(v float64) float64 {
	return math.Round(v*1000) / 1000
}
