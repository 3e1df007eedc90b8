package gazetteer

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/couchcryptid/tweet-geoparser/internal/domain"
)

// townCodes are the feature codes classified as towns. The remaining
// populated-place codes (PPLX, PPLL, ...) are deliberately excluded: they
// mark sections and localities too ambiguous to resolve.
var townCodes = map[string]struct{}{
	"PPL": {}, "PPLA": {}, "PPLA2": {}, "PPLA3": {}, "PPLA4": {},
	"PPLC": {}, "PPLG": {}, "PPLR": {}, "PPLS": {}, "STLMT": {},
}

// adm1Codes are the feature codes classified as first-level admin areas.
// ADM2 is folded in for countries whose shapefile join lacks a direct
// first-level record.
var adm1Codes = map[string]struct{}{
	"ADM1": {}, "ADM1H": {}, "ADM2": {}, "ADM2H": {},
}

// Reference bundles the static lookup data the scorer and the user-location
// parser consult. It is loaded once at startup and read-only afterwards.
type Reference struct {
	// Adm1IDs is the set of geoname ids backed by a first-level admin
	// outline; membership types an entry as adm1 regardless of its code.
	Adm1IDs map[int64]struct{}

	// CountryToContinents maps a country to the continent(s) it is on.
	// Transcontinental countries (Russia, Turkey, ...) list several.
	CountryToContinents map[int64][]int64

	// TimezonesByCountry and TimezonesByContinent hold the canonical zone
	// sets used for the UTC-offset match on country and continent
	// candidates.
	TimezonesByCountry   map[int64]map[string]struct{}
	TimezonesByContinent map[int64]map[string]struct{}

	// CountryNames is the set of country alternative names; these bypass
	// the minimum-gram-length and common-word filters.
	CountryNames map[string]struct{}

	// AdmNames maps country and adm1 alternative names to their entries,
	// used by the user-location parser's suffix match.
	AdmNames map[string][]domain.Entry

	// CommonWords holds, per language, the most common words; n-grams in
	// this set never become toponym candidates.
	CommonWords map[string]map[string]struct{}

	// Tags holds, per language, the corpus-selection keywords, longest
	// first. A language without tags is not analyzed at all.
	Tags map[string][]string

	// Capitalization marks the languages in which toponyms are
	// conventionally capitalized, enabling the title-case population filter.
	Capitalization map[string]bool
}

// NewReference returns an empty reference with all maps allocated.
func NewReference() *Reference {
	return &Reference{
		Adm1IDs:              make(map[int64]struct{}),
		CountryToContinents:  make(map[int64][]int64),
		TimezonesByCountry:   make(map[int64]map[string]struct{}),
		TimezonesByContinent: make(map[int64]map[string]struct{}),
		CountryNames:         make(map[string]struct{}),
		AdmNames:             make(map[string][]domain.Entry),
		CommonWords:          make(map[string]map[string]struct{}),
		Tags:                 make(map[string][]string),
		Capitalization:       DefaultCapitalization(),
	}
}

// DefaultCapitalization covers the corpus languages; all of them capitalize
// proper nouns.
func DefaultCapitalization() map[string]bool {
	langs := []string{"en", "id", "tl", "fr", "de", "it", "nl", "pl", "sr", "pt", "es", "tr", "sw"}
	m := make(map[string]bool, len(langs))
	for _, l := range langs {
		m[l] = true
	}
	return m
}

// TypeOf classifies the entry by administrative level and returns a copy
// with Type set. Entries outside the recognized levels report ok false and
// must be dropped.
func (r *Reference) TypeOf(e domain.Entry) (domain.Entry, bool) {
	switch {
	case hasCode(townCodes, e.FeatureCode):
		e.Type = domain.TypeTown
	case hasCode(adm1Codes, e.FeatureCode):
		e.Type = domain.TypeAdm1
	case r.IsAdm1(e.GeonameID):
		e.Type = domain.TypeAdm1
	case e.FeatureCode == "PCLI":
		e.Type = domain.TypeCountry
	case e.FeatureCode == "CONT":
		e.Type = domain.TypeContinent
	default:
		return e, false
	}
	return e, true
}

// IsAdm1 reports whether the geoname id is in the first-level admin set.
func (r *Reference) IsAdm1(id int64) bool {
	_, ok := r.Adm1IDs[id]
	return ok
}

// ContinentsOf returns the continent geoname ids a country belongs to.
func (r *Reference) ContinentsOf(countryID int64) []int64 {
	return r.CountryToContinents[countryID]
}

// IsCountryName reports whether the lower-cased surface form is a country
// alternative name.
func (r *Reference) IsCountryName(name string) bool {
	_, ok := r.CountryNames[name]
	return ok
}

// IsCommonWord reports whether the word ranks among the language's most
// common words.
func (r *Reference) IsCommonWord(lang, word string) bool {
	words, ok := r.CommonWords[lang]
	if !ok {
		return false
	}
	_, ok = words[word]
	return ok
}

// TagsFor returns the analysis tags of a language, longest first, and
// whether the language is analyzed at all.
func (r *Reference) TagsFor(lang string) ([]string, bool) {
	tags, ok := r.Tags[lang]
	return tags, ok
}

// SetTags installs the tag list for a language, sorted longest first so a
// short tag never shadows a longer one during stripping.
func (r *Reference) SetTags(lang string, tags []string) {
	sorted := append([]string(nil), tags...)
	sort.Slice(sorted, func(i, j int) bool {
		if len(sorted[i]) != len(sorted[j]) {
			return len(sorted[i]) > len(sorted[j])
		}
		return sorted[i] < sorted[j]
	})
	r.Tags[lang] = sorted
}

// ParseTags reads "tag,language" lines, one per tag, ignoring blank lines
// and lines starting with '#'. Tags are lower-cased with internal spaces
// removed, matching how the collector selects the corpus.
func ParseTags(reader io.Reader) (map[string][]string, error) {
	byLang := make(map[string][]string)
	scanner := bufio.NewScanner(reader)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		parts := strings.Split(strings.ReplaceAll(text, " ", ""), ",")
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("tags: malformed line %d: %q", line, text)
		}
		tag, lang := strings.ToLower(parts[0]), parts[1]
		byLang[lang] = append(byLang[lang], tag)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("tags: %w", err)
	}
	return byLang, nil
}

func hasCode(set map[string]struct{}, code string) bool {
	_, ok := set[code]
	return ok
}
