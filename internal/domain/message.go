package domain

import "time"

// Coordinate is a WGS-84 longitude/latitude pair. Longitude first, matching
// the GeoNames export order and the GeoJSON convention.
type Coordinate struct {
	Lon float64 `json:"lon" bson:"lon"`
	Lat float64 `json:"lat" bson:"lat"`
}

// BBox is a geographic bounding box: (west, south, east, north).
type BBox struct {
	West  float64 `json:"west" bson:"west"`
	South float64 `json:"south" bson:"south"`
	East  float64 `json:"east" bson:"east"`
	North float64 `json:"north" bson:"north"`
}

// Center returns the box centroid.
func (b BBox) Center() Coordinate {
	return Coordinate{
		Lon: (b.West + b.East) / 2,
		Lat: (b.South + b.North) / 2,
	}
}

// User carries the author metadata attached to a message. Home is the
// free-text "location" profile field, not a structured place. UTCOffset is
// the profile UTC offset in seconds, nil when the user never set one.
type User struct {
	ID        string `json:"id" bson:"id"`
	Home      string `json:"home,omitempty" bson:"home,omitempty"`
	UTCOffset *int   `json:"utc_offset,omitempty" bson:"utc_offset,omitempty"`
}

// Message is a single timestamped, language-tagged social-media message as
// stored by the collector. Coordinate and BBox come from the platform's
// geo metadata and are both optional; a message with a Coordinate never
// uses its BBox for matching.
type Message struct {
	ID         string      `json:"id" bson:"_id"`
	Text       string      `json:"text" bson:"text"`
	Language   string      `json:"lang" bson:"lang"`
	Timestamp  time.Time   `json:"date" bson:"date"`
	User       User        `json:"user" bson:"user"`
	Retweet    bool        `json:"retweet,omitempty" bson:"retweet,omitempty"`
	Coordinate *Coordinate `json:"coordinate,omitempty" bson:"coordinate,omitempty"`
	BBox       *BBox       `json:"bbox,omitempty" bson:"bbox,omitempty"`
}

// Valid reports whether the message carries the fields the scorer requires.
// Invalid messages are skipped, never aborting a window.
func (m Message) Valid() bool {
	return m.ID != "" && m.Language != "" && !m.Timestamp.IsZero()
}

// ScoredMessage is the cached output of scoring one message: the normalized
// text, the case bookkeeping for its n-grams, and per surface form the
// surviving gazetteer candidates with their evidence scores.
//
// Locations is filled in later by the resolver commit step and kept on the
// cache entry so subsequent windows can diff against it without re-reading
// the sink.
type ScoredMessage struct {
	ID              string                         `bson:"_id"`
	Timestamp       time.Time                      `bson:"date"`
	Language        string                         `bson:"lang"`
	UserID          string                         `bson:"user_id"`
	Text            string                         `bson:"text"`
	OriginalNgrams  map[string]string              `bson:"original_ngrams"`
	SubsettedNgrams map[string]struct{}            `bson:"-"`
	Toponyms        map[string]map[int64]*Candidate `bson:"toponyms"`
	Locations       []ResolvedLocation             `bson:"locations,omitempty"`
	AnalyzedAt      time.Time                      `bson:"analyzed_at"`
}
