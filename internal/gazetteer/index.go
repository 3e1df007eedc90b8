// Package gazetteer provides lookup of surface forms against the toponym
// index and holds the reference data (feature typing, admin names, common
// words, analysis tags, zone sets) the scorer consults.
package gazetteer

import (
	"context"

	"github.com/couchcryptid/tweet-geoparser/internal/domain"
)

// Index looks up surface forms in the toponym index. Implementations must
// be side-effect free and omit names without any entry; the scorer
// tolerates empty results. A returned error is transient and propagates to
// the driver, which retries the window.
type Index interface {
	Lookup(ctx context.Context, names []string) (map[string][]domain.Entry, error)
}
