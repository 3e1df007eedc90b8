// Package analyzer scores a single message: it extracts surface forms,
// matches them against the gazetteer, and annotates every candidate
// location with the five evidence scores the resolver aggregates later.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/couchcryptid/tweet-geoparser/internal/domain"
	"github.com/couchcryptid/tweet-geoparser/internal/gazetteer"
	"github.com/couchcryptid/tweet-geoparser/internal/geometry"
	"github.com/couchcryptid/tweet-geoparser/internal/sanitize"
	"github.com/couchcryptid/tweet-geoparser/internal/timezone"
)

// N-gram bounds for toponym recognition.
const (
	maxNgramLength    = 3
	minimumGramLength = 4
)

// Config carries the scoring knobs.
type Config struct {
	Weights                     domain.Weights
	MinPopulationCapitalized    int64
	MinPopulationNonCapitalized int64
	UserHomeCacheSize           int
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		Weights:                     domain.DefaultWeights(),
		MinPopulationCapitalized:    1,
		MinPopulationNonCapitalized: 5000,
		UserHomeCacheSize:           10_000,
	}
}

// Analyzer scores messages against the gazetteer. It owns the user-home
// parse cache; the timezone resolver keeps its own process-wide cache.
type Analyzer struct {
	index  gazetteer.Index
	ref    *gazetteer.Reference
	areas  *geometry.Index
	zones  *timezone.Resolver
	cfg    Config
	logger *slog.Logger

	homeCache *lru.Cache[string, []domain.Entry]
}

// New creates an Analyzer.
func New(index gazetteer.Index, ref *gazetteer.Reference, areas *geometry.Index, zones *timezone.Resolver, cfg Config, logger *slog.Logger) (*Analyzer, error) {
	if cfg.UserHomeCacheSize <= 0 {
		cfg.UserHomeCacheSize = 10_000
	}
	homeCache, err := lru.New[string, []domain.Entry](cfg.UserHomeCacheSize)
	if err != nil {
		return nil, fmt.Errorf("user home cache: %w", err)
	}
	return &Analyzer{
		index:     index,
		ref:       ref,
		areas:     areas,
		zones:     zones,
		cfg:       cfg,
		logger:    logger,
		homeCache: homeCache,
	}, nil
}

// AnalyzeMessage scores one message. It returns (nil, nil) when the message
// yields no toponym candidates: unknown language, nothing but common words,
// or no gazetteer match. Errors are transient lookup failures; the caller
// retries the window.
func (a *Analyzer) AnalyzeMessage(ctx context.Context, msg domain.Message) (*domain.ScoredMessage, error) {
	if !msg.Valid() {
		return nil, nil
	}
	tags, ok := a.ref.TagsFor(msg.Language)
	if !ok {
		return nil, nil
	}

	clean := sanitize.Normalize(msg.Text, true)
	tokens := sanitize.Tokenize(clean, true)
	ngrams := sanitize.Ngrams(tokens, 1, maxNgramLength)

	ngrams, subsetted := stripTags(ngrams, tags)

	originals := make(map[string]string)
	var ordered []string
	for _, gram := range ngrams {
		lower := strings.ToLower(gram)
		current, seen := originals[lower]
		switch {
		case !seen:
			originals[lower] = gram
			ordered = append(ordered, lower)
		case sanitize.IsTitle(current) && !sanitize.IsTitle(gram):
			originals[lower] = gram
		}
	}

	var lookupNames []string
	for _, lower := range ordered {
		if a.ref.IsCountryName(lower) ||
			(sanitize.RuneLen(lower) >= minimumGramLength && !a.ref.IsCommonWord(msg.Language, lower)) {
			lookupNames = append(lookupNames, lower)
		}
	}
	if len(lookupNames) == 0 {
		return nil, nil
	}

	found, err := a.index.Lookup(ctx, lookupNames)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, nil
	}

	suppressed := suppressNested(found, originals)

	capitalizedLanguage := a.ref.Capitalization[msg.Language]
	var sentenceLeads map[string]struct{}
	if capitalizedLanguage {
		sentenceLeads = sanitize.SentenceLeads(clean)
	}

	var zoneSet map[string]struct{}
	zonesFetched := false
	var homeEntries []domain.Entry
	homeFetched := false

	toponyms := make(map[string]map[int64]*domain.Candidate)
	for _, surface := range lookupNames {
		entries, ok := found[surface]
		if !ok {
			continue
		}
		if _, drop := suppressed[surface]; drop {
			continue
		}
		if containsString(tags, surface) {
			continue
		}

		minPopulation := a.cfg.MinPopulationNonCapitalized
		if capitalizedLanguage {
			if _, lead := sentenceLeads[surface]; !lead && sanitize.IsTitle(originals[surface]) {
				minPopulation = a.cfg.MinPopulationCapitalized
			}
		}

		var kept []domain.Entry
		for _, e := range entries {
			if e.Population < minPopulation {
				continue
			}
			typed, ok := a.ref.TypeOf(e)
			if !ok {
				continue
			}
			typed.Name = surface
			kept = append(kept, typed)
		}
		if len(kept) == 0 {
			continue
		}
		kept = a.collapseSameName(kept, surface)

		candidates := make(map[int64]*domain.Candidate, len(kept))
		for _, entry := range kept {
			cand := &domain.Candidate{Entry: entry}

			if msg.Coordinate != nil {
				if a.matchArea(entry, *msg.Coordinate, maxDistanceCityCoordinate) {
					cand.Scores.Coordinates = a.cfg.Weights.Coordinates
				}
			} else if msg.BBox != nil {
				if a.matchArea(entry, msg.BBox.Center(), maxDistanceBBoxCenter) {
					cand.Scores.BBox = a.cfg.Weights.BBox
				}
			}

			if msg.User.UTCOffset != nil {
				if !zonesFetched {
					zoneSet = a.zones.ZonesAt(*msg.User.UTCOffset, msg.Timestamp)
					zonesFetched = true
				}
				if len(zoneSet) > 0 && a.matchOffset(entry, zoneSet) {
					cand.Scores.UTCOffset = a.cfg.Weights.UTCOffset
				}
			}

			if msg.User.Home != "" {
				if !homeFetched {
					homeEntries, err = a.ParseUserHome(ctx, msg.User.Home)
					if err != nil {
						return nil, err
					}
					homeFetched = true
				}
				if len(homeEntries) > 0 {
					cand.Scores.UserHome = a.matchUserHome(entry, surface, homeEntries) * a.cfg.Weights.UserHome
				}
			}

			candidates[entry.GeonameID] = cand
		}

		// Family flags are written through the arena on both sides, so
		// earlier candidates pick up kinship with later surface forms.
		for otherSurface, others := range toponyms {
			for _, other := range others {
				for _, cand := range candidates {
					if a.isFamily(other.Entry, cand.Entry, otherSurface, surface, false, true, true) {
						other.Scores.Family = a.cfg.Weights.Family
						cand.Scores.Family = a.cfg.Weights.Family
					}
				}
			}
		}

		toponyms[surface] = candidates
	}

	if len(toponyms) == 0 {
		return nil, nil
	}

	originalNgrams := make(map[string]string, len(toponyms))
	for surface := range toponyms {
		originalNgrams[surface] = originals[surface]
	}

	return &domain.ScoredMessage{
		ID:              msg.ID,
		Timestamp:       msg.Timestamp,
		Language:        msg.Language,
		UserID:          msg.User.ID,
		Text:            clean,
		OriginalNgrams:  originalNgrams,
		SubsettedNgrams: subsetted,
		Toponyms:        toponyms,
		AnalyzedAt:      domain.Now(),
	}, nil
}

// matchArea reports whether the coordinate supports the candidate:
// point-in-polygon for continents, proximity for towns, and containment in
// the candidate's country otherwise.
func (a *Analyzer) matchArea(e domain.Entry, c domain.Coordinate, townDistance float64) bool {
	switch e.Type {
	case domain.TypeContinent:
		return a.areas.Contains(e.GeonameID, c)
	case domain.TypeTown:
		return e.Coordinate != nil && geometry.Distance(c, *e.Coordinate) < townDistance
	default:
		return a.areas.Contains(e.CountryGeonameID, c)
	}
}

// matchOffset reports whether the candidate's zone(s) intersect the zones
// implied by the user's UTC offset.
func (a *Analyzer) matchOffset(e domain.Entry, zones map[string]struct{}) bool {
	switch e.Type {
	case domain.TypeContinent:
		return intersects(zones, a.ref.TimezonesByContinent[e.GeonameID])
	case domain.TypeCountry:
		return intersects(zones, a.ref.TimezonesByCountry[e.GeonameID])
	default:
		if e.Timezone == "" {
			return false
		}
		_, ok := zones[e.Timezone]
		return ok
	}
}

// matchUserHome scores the candidate against the user's most populous home
// location: 1 for kin, scaled by relative population when the home is a
// whole country and the candidate something smaller, 0 otherwise.
func (a *Analyzer) matchUserHome(e domain.Entry, surface string, homes []domain.Entry) float64 {
	sorted := append([]domain.Entry(nil), homes...)
	sortByPopulation(sorted)
	home := sorted[0]

	if !a.isFamily(e, home, surface, home.Name, true, true, false) {
		return 0
	}
	if home.Type == domain.TypeCountry && e.Type != domain.TypeCountry {
		if home.Population <= 0 {
			return 0
		}
		ratio := float64(e.Population) / float64(home.Population)
		if ratio > 1 {
			return 1
		}
		return ratio
	}
	return 1
}

// collapseSameName keeps, for family pairs sharing one surface form, only
// the entry with the most translations (ties go to the larger type). Many
// towns are named after their province or country; the better-known entry
// should absorb the mention.
func (a *Analyzer) collapseSameName(entries []domain.Entry, surface string) []domain.Entry {
	if len(entries) < 2 {
		return entries
	}
	discard := make(map[int64]struct{})
	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			if !a.isFamily(entries[i], entries[j], surface, surface, false, false, false) {
				continue
			}
			winner, loser := entries[i], entries[j]
			if loser.Translations > winner.Translations ||
				(loser.Translations == winner.Translations && loser.Type.SizeRank() < winner.Type.SizeRank()) {
				winner, loser = loser, winner
			}
			discard[loser.GeonameID] = struct{}{}
		}
	}
	if len(discard) == 0 {
		return entries
	}
	kept := entries[:0]
	for _, e := range entries {
		if _, drop := discard[e.GeonameID]; !drop {
			kept = append(kept, e)
		}
	}
	return kept
}

// suppressNested drops surface forms that appear whole-word inside another
// found surface form. A capitalized short form survives a mixed-case longer
// form; otherwise the shorter form goes.
func suppressNested(found map[string][]domain.Entry, originals map[string]string) map[string]struct{} {
	drop := make(map[string]struct{})
	for ngram := range found {
		for other := range found {
			if ngram == other {
				continue
			}
			if !strings.Contains(" "+other+" ", " "+ngram+" ") {
				continue
			}
			if sanitize.FirstUpper(originals[ngram]) {
				if sanitize.AllWordsCapitalized(originals[other]) {
					drop[ngram] = struct{}{}
				} else {
					drop[other] = struct{}{}
				}
			} else {
				drop[ngram] = struct{}{}
			}
		}
	}
	return drop
}

// stripTags removes the first matching analysis tag from each n-gram. The
// derived forms are recorded (lower-cased) so reconciliation can recognize
// them later; n-grams reduced to nothing are dropped.
func stripTags(ngrams []string, tags []string) ([]string, map[string]struct{}) {
	var out []string
	subsetted := make(map[string]struct{})
	for _, ngram := range ngrams {
		lower := sanitize.LowerRunes(ngram)
		stripped := false
		for _, tag := range tags {
			idx := strings.Index(lower, tag)
			if idx < 0 {
				continue
			}
			runeStart := utf8.RuneCountInString(lower[:idx])
			runes := []rune(ngram)
			remainder := string(runes[:runeStart]) + string(runes[runeStart+sanitize.RuneLen(tag):])
			remainder = strings.Join(strings.Fields(remainder), " ")
			if remainder != "" {
				out = append(out, remainder)
				subsetted[strings.ToLower(remainder)] = struct{}{}
			}
			stripped = true
			break
		}
		if !stripped {
			out = append(out, ngram)
		}
	}
	return out, subsetted
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func intersects(a, b map[string]struct{}) bool {
	if len(b) < len(a) {
		a, b = b, a
	}
	for k := range a {
		if _, ok := b[k]; ok {
			return true
		}
	}
	return false
}
