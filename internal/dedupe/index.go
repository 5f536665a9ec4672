package dedupe

import (
	"strings"

	"github.com/jonesrussell/grantpull/internal/domain"
	"github.com/jonesrussell/grantpull/internal/logger"
)

// keySeparator joins the parts of a normalized dedupe key.
const keySeparator = "|"

// Index holds the seen-URL and seen-key sets for one run. It is seeded from
// persisted records before fetching begins, grows as candidates are accepted,
// and is discarded at run end. Owned exclusively by the single run goroutine.
type Index struct {
	urls map[string]struct{}
	keys map[string]struct{}
	log  logger.Interface
}

// NewIndex creates an empty index.
func NewIndex(log logger.Interface) *Index {
	return &Index{
		urls: make(map[string]struct{}),
		keys: make(map[string]struct{}),
		log:  log,
	}
}

// Key builds the normalized dedupe key for a candidate:
// lowercase(title)|lowercase(agency)|deadline-or-empty.
func Key(title, agency string, deadline *string) string {
	d := ""
	if deadline != nil {
		d = *deadline
	}
	return strings.ToLower(strings.TrimSpace(title)) + keySeparator +
		strings.ToLower(strings.TrimSpace(agency)) + keySeparator + d
}

// SeedURL records a known URL from external storage.
func (i *Index) SeedURL(rawURL string) {
	if normalized, err := NormalizeURL(rawURL); err == nil {
		i.urls[normalized] = struct{}{}
	}
}

// SeedKey records a known normalized key from external storage.
func (i *Index) SeedKey(title, agency string, deadline *string) {
	i.keys[Key(title, agency, deadline)] = struct{}{}
}

// ShouldSkip reports whether the candidate duplicates a seen record: its
// normalized source URL matches a seen URL, or its normalized key matches a
// seen key. The key check catches the same opportunity reachable through a
// different URL.
func (i *Index) ShouldSkip(candidate *domain.Opportunity) bool {
	if normalized, err := NormalizeURL(candidate.SourceURL); err == nil {
		if _, seen := i.urls[normalized]; seen {
			i.log.Debug("Skipping duplicate URL", "url", candidate.SourceURL)
			return true
		}
	}

	key := Key(candidate.Title, candidate.Agency, candidate.ResponseDeadline)
	if _, seen := i.keys[key]; seen {
		i.log.Debug("Skipping duplicate key", "key", key, "url", candidate.SourceURL)
		return true
	}

	return false
}

// Add records an accepted candidate so later candidates in the same run are
// deduped identically to persisted ones.
func (i *Index) Add(candidate *domain.Opportunity) {
	if normalized, err := NormalizeURL(candidate.SourceURL); err == nil {
		i.urls[normalized] = struct{}{}
	}
	i.keys[Key(candidate.Title, candidate.Agency, candidate.ResponseDeadline)] = struct{}{}
}

// Size returns the number of seen URLs and keys, for run logging.
func (i *Index) Size() (urls, keys int) {
	return len(i.urls), len(i.keys)
}
