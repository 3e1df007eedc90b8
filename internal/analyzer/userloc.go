package analyzer

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/couchcryptid/tweet-geoparser/internal/domain"
	"github.com/couchcryptid/tweet-geoparser/internal/sanitize"
)

// minHomeTownPopulation rejects direct town matches for the home field
// below this population; profile fields are too noisy to trust small places
// without an administrative anchor.
const minHomeTownPopulation = 10_000

// ParseUserHome resolves the free-text user home field to zero or more
// gazetteer entries, memoized through the bounded LRU cache. Lookup
// failures are transient and are not cached.
func (a *Analyzer) ParseUserHome(ctx context.Context, raw string) ([]domain.Entry, error) {
	if raw == "" {
		return nil, nil
	}
	if cached, ok := a.homeCache.Get(raw); ok {
		return cached, nil
	}
	entries, err := a.parseHome(ctx, raw)
	if err != nil {
		return nil, err
	}
	a.homeCache.Add(raw, entries)
	return entries, nil
}

// parseHome applies the split rules recursively: multi-place separators
// first, then the comma forms of a single place.
func (a *Analyzer) parseHome(ctx context.Context, text string) ([]domain.Entry, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	for _, sep := range []string{"/", " and ", "&"} {
		if !strings.Contains(text, sep) {
			continue
		}
		var all []domain.Entry
		for _, part := range strings.Split(text, sep) {
			entries, err := a.parseHome(ctx, part)
			if err != nil {
				return nil, err
			}
			all = append(all, entries...)
		}
		return all, nil
	}

	original := strings.TrimSpace(strings.ReplaceAll(text, ".", ""))
	lower := sanitize.LowerRunes(original)

	parts := strings.Split(lower, ",")
	switch len(parts) {
	case 1:
		return a.parseHomeSingle(ctx, original, lower)
	case 2:
		return a.parseHomeChildParent(ctx, original, lower)
	case 3:
		// "a, b, c" re-parses as "a c": the middle element is usually a
		// region repeated in the last, keeping city and country.
		originalParts := strings.Split(original, ",")
		joined := strings.TrimSpace(originalParts[0]) + " " + strings.TrimSpace(originalParts[2])
		return a.parseHome(ctx, joined)
	default:
		return nil, nil
	}
}

// parseHomeSingle handles a comma-free home field: greedy longest-suffix
// match against the admin names, falling back to a direct town lookup.
func (a *Analyzer) parseHomeSingle(ctx context.Context, original, lower string) ([]domain.Entry, error) {
	words := strings.Split(lower, " ")
	originalWords := strings.Split(original, " ")

	var parents []domain.Entry
	var suffix string
	for i := 1; i <= len(words); i++ {
		name := strings.Join(words[len(words)-i:], " ")
		entries, ok := a.ref.AdmNames[name]
		if !ok {
			continue
		}
		originalName := strings.Join(originalWords[len(originalWords)-i:], " ")
		filtered := filterByAbbreviation(entries, originalName)
		if len(filtered) > 0 {
			parents = filtered
			suffix = name
			break
		}
	}
	if parents == nil {
		return a.findHomeTown(ctx, lower, original)
	}

	lowerRunes := []rune(lower)
	child := strings.TrimSpace(string(lowerRunes[:len(lowerRunes)-sanitize.RuneLen(suffix)]))
	if child == "" {
		return parents, nil
	}

	childOriginal := originalSlice(original, lower, child)
	var all []domain.Entry
	for _, parent := range parents {
		entries, err := a.extractChild(ctx, child, suffix, childOriginal, parent)
		if err != nil {
			return nil, err
		}
		all = append(all, entries...)
	}
	return all, nil
}

// parseHomeChildParent handles the "child, parent" form.
func (a *Analyzer) parseHomeChildParent(ctx context.Context, original, lower string) ([]domain.Entry, error) {
	lowerParts := strings.Split(lower, ",")
	originalParts := strings.Split(original, ",")
	child := strings.TrimSpace(lowerParts[0])
	parent := strings.TrimSpace(lowerParts[1])
	childOriginal := strings.TrimSpace(originalParts[0])
	parentOriginal := strings.TrimSpace(originalParts[1])

	entries, ok := a.ref.AdmNames[parent]
	if !ok {
		return a.findHomeTown(ctx, parent, parentOriginal)
	}
	parents := filterByAbbreviation(entries, parentOriginal)
	if len(parents) == 0 {
		return a.findHomeTown(ctx, parent, parentOriginal)
	}

	var all []domain.Entry
	for _, parentEntry := range parents {
		resolved, err := a.extractChild(ctx, child, parent, childOriginal, parentEntry)
		if err != nil {
			return nil, err
		}
		all = append(all, resolved...)
	}
	return all, nil
}

// extractChild looks the child text up in the gazetteer and returns the
// first candidate that is typed, passes the abbreviation check, and is
// family of the parent. Without such a candidate the parent alone stands.
func (a *Analyzer) extractChild(ctx context.Context, child, parentSurface, childOriginal string, parent domain.Entry) ([]domain.Entry, error) {
	entries, err := a.lookupOne(ctx, child)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return []domain.Entry{parent}, nil
	}

	sortByPopulation(entries)
	if entries[0].Population == 0 {
		return []domain.Entry{parent}, nil
	}

	for _, e := range entries {
		typed, ok := a.ref.TypeOf(e)
		if !ok {
			continue
		}
		if typed.IsAbbreviation() && !typed.HasAbbreviation(childOriginal) {
			continue
		}
		if !a.isFamily(typed, parent, child, parentSurface, false, true, false) {
			continue
		}
		typed.Name = child
		return []domain.Entry{typed}, nil
	}
	return []domain.Entry{parent}, nil
}

// findHomeTown resolves a home field directly against the gazetteer. It
// returns nothing unless the most populous candidate reaches
// minHomeTownPopulation; otherwise it returns the first candidate, in
// population order, that passes the abbreviation check and can be typed.
// That entry need not be a town, nor reach the population floor itself.
func (a *Analyzer) findHomeTown(ctx context.Context, lower, original string) ([]domain.Entry, error) {
	entries, err := a.lookupOne(ctx, lower)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	sortByPopulation(entries)
	if entries[0].Population < minHomeTownPopulation {
		return nil, nil
	}

	for _, e := range entries {
		if e.IsAbbreviation() && !e.HasAbbreviation(original) {
			continue
		}
		typed, ok := a.ref.TypeOf(e)
		if !ok {
			continue
		}
		typed.Name = lower
		return []domain.Entry{typed}, nil
	}
	return nil, nil
}

func (a *Analyzer) lookupOne(ctx context.Context, name string) ([]domain.Entry, error) {
	found, err := a.index.Lookup(ctx, []string{name})
	if err != nil {
		return nil, err
	}
	return append([]domain.Entry(nil), found[name]...), nil
}

// filterByAbbreviation keeps entries that either carry no abbreviations or
// list the original-case surface form among them.
func filterByAbbreviation(entries []domain.Entry, original string) []domain.Entry {
	var kept []domain.Entry
	for _, e := range entries {
		if len(e.Abbreviations) == 0 || e.HasAbbreviation(original) {
			kept = append(kept, e)
		}
	}
	return kept
}

func sortByPopulation(entries []domain.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Population > entries[j].Population
	})
}

// originalSlice maps a substring found in the lowered text back to its
// original-case form. lower must be the rune-wise lowering of original.
func originalSlice(original, lower, sub string) string {
	idx := strings.Index(lower, sub)
	if idx < 0 {
		return sub
	}
	runeStart := utf8.RuneCountInString(lower[:idx])
	originalRunes := []rune(original)
	end := runeStart + sanitize.RuneLen(sub)
	if end > len(originalRunes) {
		return sub
	}
	return string(originalRunes[runeStart:end])
}
