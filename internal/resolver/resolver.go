package resolver

import (
	"log/slog"
	"sort"
	"time"

	"github.com/couchcryptid/tweet-geoparser/internal/domain"
	"github.com/couchcryptid/tweet-geoparser/internal/sanitize"
)

// tweetRef is one message's contribution to a candidate: identity for
// de-duplication plus the evidence scores recorded at analysis time.
type tweetRef struct {
	ID       string
	Text     string
	Date     time.Time
	UserID   string
	Language string
	Scores   domain.Scores
}

// candidateGroup collects, for one (surface form, gazetteer entry) pair,
// every cached message mentioning it.
type candidateGroup struct {
	entry  domain.Entry
	tweets []tweetRef
}

// Resolution couples a surface form's resolved location with the message
// ids it applies to after the language-consistency filter.
type Resolution struct {
	Toponym    string
	MessageIDs []string
	Location   domain.ResolvedLocation
}

// Resolver selects one gazetteer entry per surface form over the window.
type Resolver struct {
	threshold float64
	logger    *slog.Logger
}

// New creates a Resolver with the given score threshold.
func New(threshold float64, logger *slog.Logger) *Resolver {
	return &Resolver{threshold: threshold, logger: logger}
}

// Resolve aggregates the window and returns one resolution per surface form,
// in surface-form order. A surface form is resolved when a candidate clears
// the threshold or is a country or continent, and at least one of its
// messages is language-consistent with the chosen entry.
func (r *Resolver) Resolve(cache *Cache) []Resolution {
	toponyms := transpose(cache)

	surfaces := make([]string, 0, len(toponyms))
	for surface := range toponyms {
		surfaces = append(surfaces, surface)
	}
	sort.Strings(surfaces)

	var resolutions []Resolution
	for _, surface := range surfaces {
		if resolution, ok := r.resolveToponym(cache, surface, toponyms[surface]); ok {
			resolutions = append(resolutions, resolution)
		}
	}
	return resolutions
}

// Assign runs Resolve and reconciles per-message assignments: when a
// message has both capitalized and uncapitalized resolved surface forms,
// the uncapitalized ones are dropped unless they were derived by tag
// stripping. Returns the final per-message locations plus the resolutions
// for the export table.
func (r *Resolver) Assign(cache *Cache) (map[string][]domain.ResolvedLocation, []Resolution) {
	resolutions := r.Resolve(cache)

	perMessage := make(map[string][]domain.ResolvedLocation)
	for _, resolution := range resolutions {
		for _, id := range resolution.MessageIDs {
			perMessage[id] = append(perMessage[id], resolution.Location)
		}
	}

	final := make(map[string][]domain.ResolvedLocation, len(perMessage))
	for id, locations := range perMessage {
		msg, ok := cache.Get(id)
		if !ok {
			continue
		}

		capitalized := make(map[string]struct{})
		for _, loc := range locations {
			if sanitize.FirstUpper(msg.OriginalNgrams[loc.Toponym]) {
				capitalized[loc.Toponym] = struct{}{}
			}
		}

		if len(capitalized) > 0 && len(capitalized) != len(locations) {
			kept := locations[:0]
			for _, loc := range locations {
				_, isCapitalized := capitalized[loc.Toponym]
				_, isSubsetted := msg.SubsettedNgrams[loc.Toponym]
				if isCapitalized || isSubsetted {
					kept = append(kept, loc)
				}
			}
			locations = kept
		}

		if len(locations) > 0 {
			final[id] = locations
		}
	}
	return final, resolutions
}

// ResolutionTable flattens resolutions into the surface form to geoname id
// mapping consumed by the realtime tagger export.
func ResolutionTable(resolutions []Resolution) map[string]int64 {
	table := make(map[string]int64, len(resolutions))
	for _, resolution := range resolutions {
		table[resolution.Toponym] = resolution.Location.GeonameID
	}
	return table
}

// transpose reshuffles the message-major cache into surface-form-major
// candidate groups.
func transpose(cache *Cache) map[string]map[int64]*candidateGroup {
	toponyms := make(map[string]map[int64]*candidateGroup)
	for _, id := range cache.ids() {
		msg, _ := cache.Get(id)
		for surface, candidates := range msg.Toponyms {
			groups, ok := toponyms[surface]
			if !ok {
				groups = make(map[int64]*candidateGroup)
				toponyms[surface] = groups
			}
			for geonameID, candidate := range candidates {
				group, ok := groups[geonameID]
				if !ok {
					group = &candidateGroup{entry: candidate.Entry}
					groups[geonameID] = group
				}
				group.tweets = append(group.tweets, tweetRef{
					ID:       id,
					Text:     msg.Text,
					Date:     msg.Timestamp,
					UserID:   msg.UserID,
					Language: msg.Language,
					Scores:   candidate.Scores,
				})
			}
		}
	}
	return toponyms
}

// resolveToponym scores every candidate of one surface form and applies the
// selection rules.
func (r *Resolver) resolveToponym(cache *Cache, surface string, groups map[int64]*candidateGroup) (Resolution, bool) {
	geonameIDs := make([]int64, 0, len(groups))
	for id := range groups {
		geonameIDs = append(geonameIDs, id)
	}
	sort.Slice(geonameIDs, func(i, j int) bool { return geonameIDs[i] < geonameIDs[j] })

	var scored []domain.ResolvedLocation
	for _, geonameID := range geonameIDs {
		scored = append(scored, scoreCandidate(surface, groups[geonameID]))
	}

	// Countries and continents bypass the threshold: they are resolvable on
	// the mention alone.
	var filtered []domain.ResolvedLocation
	for _, candidate := range scored {
		if candidate.AvgScore >= r.threshold || candidate.Type.Admin() {
			filtered = append(filtered, candidate)
		}
	}
	if len(filtered) == 0 {
		return Resolution{}, false
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].AvgScore != filtered[j].AvgScore {
			return filtered[i].AvgScore > filtered[j].AvgScore
		}
		return filtered[i].Population > filtered[j].Population
	})
	resolved := filtered[0]

	if resolved.AvgScore == 0 {
		for _, candidate := range filtered[1:] {
			if candidate.Population > resolved.Population {
				resolved = candidate
			}
		}
	}

	if admin := highestPopulationAdmin(filtered); admin != nil {
		resolved = *admin
	} else if resolved.Type != domain.TypeAdm1 {
		for _, candidate := range filtered {
			if candidate.Type == domain.TypeAdm1 && candidate.CountryGeonameID == resolved.CountryGeonameID {
				resolved = candidate
				break
			}
		}
	}

	group := groups[resolved.GeonameID]
	ids := consistentMessageIDs(cache, surface, group)
	if len(ids) == 0 {
		return Resolution{}, false
	}
	return Resolution{Toponym: surface, MessageIDs: ids, Location: resolved}, true
}

// scoreCandidate aggregates one candidate's evidence across the window.
// Family scores come from de-duplicated tweets since copies of one report
// must not multiply kinship evidence; all other score types count one tweet
// per user, the most recent.
func scoreCandidate(surface string, group *candidateGroup) domain.ResolvedLocation {
	entry := group.entry
	location := domain.ResolvedLocation{
		Toponym:          surface,
		GeonameID:        entry.GeonameID,
		Type:             entry.Type,
		Population:       entry.Population,
		CountryGeonameID: entry.CountryGeonameID,
		Adm1GeonameID:    entry.Adm1GeonameID,
		Coordinate:       entry.Coordinate,
		Scores:           make(map[domain.ScoreType]domain.ScoreBreakdown, len(domain.ScoreTypes)),
	}

	perUser := onePerUser(group.tweets)

	var total float64
	for _, scoreType := range domain.ScoreTypes {
		var breakdown domain.ScoreBreakdown
		if scoreType == domain.ScoreFamily {
			breakdown = familyBreakdown(entry, group.tweets)
		} else {
			for _, tweet := range perUser {
				if entry.HasLanguage(tweet.Language) {
					breakdown.TypeScore += tweet.Scores.Get(scoreType)
				}
			}
			breakdown.AvgTypeScore = breakdown.TypeScore / float64(len(perUser))
		}
		location.Scores[scoreType] = breakdown
		total += breakdown.AvgTypeScore
	}
	location.AvgScore = domain.RoundScore(total)
	return location
}

// familyBreakdown aggregates the family score. With more than one flagged
// tweet the full tweet list is de-duplicated first and intersected with the
// flagged set.
func familyBreakdown(entry domain.Entry, tweets []tweetRef) domain.ScoreBreakdown {
	var withFamily []tweetRef
	for _, tweet := range tweets {
		if tweet.Scores.Family > 0 {
			withFamily = append(withFamily, tweet)
		}
	}
	if len(withFamily) == 0 {
		return domain.ScoreBreakdown{}
	}

	surviving := withFamily
	if len(withFamily) > 1 {
		flagged := make(map[string]struct{}, len(withFamily))
		for _, tweet := range withFamily {
			flagged[tweet.ID] = struct{}{}
		}
		surviving = nil
		for _, tweet := range dedupTweets(tweets) {
			if _, ok := flagged[tweet.ID]; ok {
				surviving = append(surviving, tweet)
			}
		}
	}
	if len(surviving) == 0 {
		return domain.ScoreBreakdown{}
	}

	var breakdown domain.ScoreBreakdown
	for _, tweet := range surviving {
		if entry.HasLanguage(tweet.Language) {
			breakdown.TypeScore += tweet.Scores.Family
		}
	}
	breakdown.AvgTypeScore = breakdown.TypeScore / float64(len(surviving))
	return breakdown
}

// onePerUser keeps the most recent tweet per user.
func onePerUser(tweets []tweetRef) []tweetRef {
	byUser := make(map[string][]tweetRef)
	var order []string
	for _, tweet := range tweets {
		if _, ok := byUser[tweet.UserID]; !ok {
			order = append(order, tweet.UserID)
		}
		byUser[tweet.UserID] = append(byUser[tweet.UserID], tweet)
	}

	kept := make([]tweetRef, 0, len(order))
	for _, user := range order {
		userTweets := byUser[user]
		sort.SliceStable(userTweets, func(i, j int) bool {
			return userTweets[i].Date.After(userTweets[j].Date)
		})
		kept = append(kept, userTweets[0])
	}
	return kept
}

// highestPopulationAdmin returns the most populous country or continent
// candidate, if any. A country mention beats a same-name town regardless of
// score.
func highestPopulationAdmin(candidates []domain.ResolvedLocation) *domain.ResolvedLocation {
	var best *domain.ResolvedLocation
	for i := range candidates {
		if !candidates[i].Type.Admin() {
			continue
		}
		if best == nil || candidates[i].Population > best.Population {
			best = &candidates[i]
		}
	}
	return best
}

// consistentMessageIDs keeps the messages whose language matches the
// resolved entry: general names match any language, abbreviations require
// the message's original-case n-gram among the known expansions.
func consistentMessageIDs(cache *Cache, surface string, group *candidateGroup) []string {
	entry := group.entry
	var ids []string
	for _, tweet := range group.tweets {
		if entry.HasLanguage(tweet.Language) {
			ids = append(ids, tweet.ID)
			continue
		}
		if entry.IsAbbreviation() {
			if msg, ok := cache.Get(tweet.ID); ok && entry.HasAbbreviation(msg.OriginalNgrams[surface]) {
				ids = append(ids, tweet.ID)
			}
		}
	}
	return ids
}

// MergeAssignments applies the commit upsert rule: an existing location for
// a toponym is replaced only by a higher-scoring one, other existing
// locations are preserved, and new toponyms are appended. The boolean
// reports whether anything changed.
func MergeAssignments(existing, fresh []domain.ResolvedLocation) ([]domain.ResolvedLocation, bool) {
	fresh = append([]domain.ResolvedLocation(nil), fresh...)
	sort.SliceStable(fresh, func(i, j int) bool { return fresh[i].Toponym < fresh[j].Toponym })

	if existing == nil {
		return fresh, len(fresh) > 0
	}

	merged := make([]domain.ResolvedLocation, 0, len(existing)+len(fresh))
	for _, have := range existing {
		replaced := have
		for _, loc := range fresh {
			if loc.Toponym == have.Toponym && loc.AvgScore > have.AvgScore {
				replaced = loc
				break
			}
		}
		merged = append(merged, replaced)
	}
	for _, loc := range fresh {
		seen := false
		for _, have := range existing {
			if have.Toponym == loc.Toponym {
				seen = true
				break
			}
		}
		if !seen {
			merged = append(merged, loc)
		}
	}

	if len(merged) != len(existing) {
		return merged, true
	}
	for i := range merged {
		if !merged[i].Equal(existing[i]) {
			return merged, true
		}
	}
	return merged, false
}
