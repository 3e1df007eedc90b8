// Package domain models tweet geoparsing data: incoming messages, gazetteer
// entries, evidence scores, and resolved toponym assignments.
//
// # Data Source
//
// Messages originate from the platform streaming API, filtered upstream by
// per-language keyword tags (e.g. "flood" for English). The collector
// publishes each tweet as JSON to the intake topic; the intake consumer
// appends it to the message store with the fields of [Message]. The language
// tag comes from the platform's own detection and selects both the tag list
// and the most-common-words filter during scoring.
//
// # Gazetteer Conventions
//
// Entries derive from the GeoNames dump, keyed by lower-cased name or
// alternate name. The administrative level is never stored directly; it is
// derived from the feature code (and the first-level admin id set) as one of
// town, adm1, country, or continent — anything else is dropped:
//
//	town:      PPL PPLA PPLA2 PPLA3 PPLA4 PPLC PPLG PPLR PPLS STLMT
//	adm1:      ADM1 ADM1H ADM2 ADM2H, or the id appears in the adm1 id set
//	country:   PCLI
//	continent: CONT
//
// ADM2 records are folded into adm1 because many countries lack a direct
// first-level record in the shapefile join; Adm1GeonameID on an adm1 entry
// may then point at the real first-level parent.
//
// Alternate-name language codes carry two sentinels. "general" marks the
// canonical name, which matches text in any language. "abbr" marks an
// abbreviation such as "NY"; it only counts when the original-case n-gram is
// listed in the entry's abbreviation expansions.
//
// # Evidence Scores
//
// Each candidate (surface form, gazetteer entry) collects five independent
// scores: coordinate match, bounding-box match, UTC-offset match, user-home
// match, and family (co-mention kinship) match. A score is either zero or
// the configured weight from [Weights]; the user-home score may be a
// fraction of its weight when the user's home is a country and the candidate
// a smaller place inside it. The resolver aggregates these per surface form
// across the analysis window and averages per contributing message.
package domain
