// Package mapper transforms source-specific raw records into canonical
// opportunities. Records that cannot satisfy the canonical invariants are
// rejected with a reason rather than silently patched.
package mapper

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jonesrussell/grantpull/internal/dedupe"
	"github.com/jonesrussell/grantpull/internal/domain"
	"github.com/jonesrussell/grantpull/internal/logger"
)

// MappingError reports a raw record that could not be canonicalized. These
// are never fatal to a run: the pipeline diverts them to the rejects
// side-channel and continues.
type MappingError struct {
	Field  string
	ID     string
	Reason string
}

// Error implements the error interface.
func (e *MappingError) Error() string {
	return fmt.Sprintf("mapping failed for field %q (record %s): %s", e.Field, e.ID, e.Reason)
}

// Mapper canonicalizes raw records from one source.
type Mapper struct {
	sourceName string
	log        logger.Interface
	now        func() time.Time
}

// NewMapper creates a mapper stamping records with the given source name.
func NewMapper(sourceName string, log logger.Interface) *Mapper {
	return &Mapper{sourceName: sourceName, log: log, now: time.Now}
}

// WithClock overrides the mapper's clock. Mapping must be idempotent given
// the same raw record, so tests pin the clock.
func (m *Mapper) WithClock(now func() time.Time) *Mapper {
	m.now = now
	return m
}

// Map canonicalizes one raw record. It fails with a *MappingError when
// identity, title, or a determinable posted date cannot be derived from any
// known alias. Optional fields that fail to parse become absent, not fatal.
func (m *Mapper) Map(raw domain.RawRecord) (*domain.Opportunity, error) {
	sourceURL, _ := urlAliases.Resolve(raw)

	id, err := m.deriveIdentity(raw, sourceURL)
	if err != nil {
		return nil, err
	}

	title, ok := titleAliases.Resolve(raw)
	if !ok {
		return nil, &MappingError{Field: "title", ID: id, Reason: "no title alias yielded a value"}
	}

	postedRaw, ok := postedAliases.Resolve(raw)
	if !ok {
		return nil, &MappingError{Field: "posted_date", ID: id, Reason: "no posted-date alias yielded a value"}
	}
	posted, ok := NormalizeInstant(postedRaw)
	if !ok {
		return nil, &MappingError{Field: "posted_date", ID: id, Reason: fmt.Sprintf("unparsable date %q", postedRaw)}
	}

	opp := &domain.Opportunity{
		ID:          id,
		Title:       title,
		Summary:     resolveOrEmpty(summaryAliases, raw),
		Agency:      resolveOrEmpty(agencyAliases, raw),
		PostedDate:  posted,
		Categories:  collectTags(raw, categoryAliases),
		Eligibility: collectTags(raw, eligibilityAliases),
		Source:      m.sourceName,
		SourceURL:   sourceURL,
		Raw:         raw,
		CreatedAt:   m.now().UTC(),
	}

	if deadlineRaw, found := deadlineAliases.Resolve(raw); found {
		if deadline, parsed := NormalizeDateOnly(deadlineRaw); parsed {
			opp.ResponseDeadline = &deadline
		} else {
			m.log.Debug("Dropping unparsable deadline", "record_id", id, "value", deadlineRaw)
		}
	}

	opp.AwardCeiling = resolveAmount(awardCeilingAliases, raw)
	opp.AwardFloor = resolveAmount(awardFloorAliases, raw)
	opp.AwardAmount = resolveAmount(awardAmountAliases, raw)

	opp.PlaceOfPerformance = extractPlaceOfPerformance(raw["placeOfPerformance"])
	opp.PointOfContact = extractPointOfContact(raw["pointOfContact"])

	return opp, nil
}

// deriveIdentity prefers the source number; falls back to a hash of the
// normalized source URL. A record with neither is rejected, since upsert
// requires a stable identity.
func (m *Mapper) deriveIdentity(raw domain.RawRecord, sourceURL string) (string, error) {
	if number, ok := identityAliases.Resolve(raw); ok {
		return number, nil
	}

	if sourceURL != "" {
		if hash, err := dedupe.URLHash(sourceURL); err == nil {
			return hash, nil
		}
	}

	return "", &MappingError{Field: "identity", ID: "", Reason: "no source number or usable source URL"}
}

// resolveOrEmpty resolves an optional string field.
func resolveOrEmpty(aliases FieldAliases, raw domain.RawRecord) string {
	value, _ := aliases.Resolve(raw)
	return value
}

// resolveAmount resolves an optional numeric field, tolerating currency
// formatting. Unparsable amounts become absent.
func resolveAmount(aliases FieldAliases, raw domain.RawRecord) *float64 {
	value, ok := aliases.Resolve(raw)
	if !ok {
		return nil
	}

	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(value)
	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &amount
}

// collectTags gathers non-empty values from the given top-level keys.
func collectTags(raw domain.RawRecord, keys []string) []string {
	tags := make([]string, 0, len(keys))
	for _, key := range keys {
		switch v := raw[key].(type) {
		case []any:
			for _, entry := range v {
				if s := coerceString(entry); s != "" {
					tags = append(tags, s)
				}
			}
		default:
			if s := coerceString(v); s != "" {
				tags = append(tags, s)
			}
		}
	}
	return tags
}

// extractPlaceOfPerformance coerces the upstream's nested dict-of-dicts
// place shape. Missing or unexpected shapes yield an empty location.
func extractPlaceOfPerformance(value any) domain.PlaceOfPerformance {
	pop, ok := value.(map[string]any)
	if !ok {
		return domain.PlaceOfPerformance{}
	}

	zip := coerceString(pop["zip"])
	if zip == "" {
		zip = coerceString(pop["zipCode"])
	}

	return domain.PlaceOfPerformance{
		City:    coerceString(pop["city"]),
		State:   coerceString(pop["state"]),
		Zip:     zip,
		Country: coerceString(pop["country"]),
	}
}

// extractPointOfContact coerces the upstream's contact shape, which may be a
// single object or a list. For lists, the first entry with an email or phone
// wins, else the first entry.
func extractPointOfContact(value any) domain.PointOfContact {
	switch v := value.(type) {
	case map[string]any:
		return contactFromEntry(v)
	case []any:
		var first *domain.PointOfContact
		for _, entry := range v {
			m, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			contact := contactFromEntry(m)
			if contact.Email != "" || contact.Phone != "" {
				return contact
			}
			if first == nil {
				first = &contact
			}
		}
		if first != nil {
			return *first
		}
	}
	return domain.PointOfContact{}
}

// contactFromEntry reads a contact entry, tolerating key-case variations.
func contactFromEntry(entry map[string]any) domain.PointOfContact {
	lowered := make(map[string]any, len(entry))
	for key, v := range entry {
		lowered[strings.ToLower(key)] = v
	}

	name := coerceString(lowered["name"])
	if name == "" {
		name = coerceString(lowered["fullname"])
	}
	email := coerceString(lowered["email"])
	if email == "" {
		email = coerceString(lowered["emailaddress"])
	}
	phone := coerceString(lowered["phone"])
	if phone == "" {
		phone = coerceString(lowered["telephone"])
	}

	return domain.PointOfContact{Name: name, Email: email, Phone: phone}
}
