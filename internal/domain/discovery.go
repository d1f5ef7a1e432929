package domain

import (
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode"
)

// SortField is a column discovery results may be ordered by.
type SortField string

const (
	SortPrice     SortField = "price"
	SortArea      SortField = "area"
	SortCreatedAt SortField = "createdAt"
)

var sortable = []SortField{SortPrice, SortArea, SortCreatedAt}

// SortSpec orders search results.
type SortSpec struct {
	Field SortField
	Desc  bool
}

// DefaultSort is newest first.
var DefaultSort = SortSpec{Field: SortCreatedAt, Desc: true}

// ParseSort reads "price", "+area", "-createdAt"; anything outside the allow-list
// falls back to DefaultSort.
func ParseSort(s string) SortSpec {
	s = strings.TrimSpace(s)
	desc := false
	switch {
	case strings.HasPrefix(s, "-"):
		desc, s = true, s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}
	field := SortField(s)
	if !slices.Contains(sortable, field) {
		return DefaultSort
	}
	return SortSpec{Field: field, Desc: desc}
}

// SearchQuery is a safe, fully normalized listing predicate. Storage adapters
// translate it; every field is optional except Statuses and Sort.
type SearchQuery struct {
	Statuses []Status
	Keyword  string
	MinPrice *float64
	MaxPrice *float64
	MinArea  *float64
	MaxArea  *float64
	OwnerID  string
	Geo      *GeoRadius
	Sort     SortSpec
	// Page with a zero Limit returns every match.
	Page Page
}

// PublicQuery is the untrusted discovery input as received from the caller.
type PublicQuery struct {
	Keyword  string
	Statuses []string
	MinPrice string
	MaxPrice string
	MinArea  string
	MaxArea  string
	OwnerID  string
	Lat      string
	Lng      string
	RadiusKm string
	Sort     string
	Page     int
	Limit    int
}

var ownerIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidOwnerID reports whether id is a well-formed owner reference.
func ValidOwnerID(id string) bool {
	return ownerIDPattern.MatchString(id)
}

// BuildPublicSearch converts untrusted discovery input into a bounded SearchQuery.
// Malformed optional filters are ignored rather than rejected.
func BuildPublicSearch(q PublicQuery) SearchQuery {
	out := SearchQuery{
		Statuses: publicStatuses(q.Statuses),
		Keyword:  CleanKeyword(q.Keyword),
		MinPrice: parseBound(q.MinPrice),
		MaxPrice: parseBound(q.MaxPrice),
		MinArea:  parseBound(q.MinArea),
		MaxArea:  parseBound(q.MaxArea),
		Sort:     ParseSort(q.Sort),
		Page:     NormalizePage(q.Page, q.Limit, PublicPaging),
	}
	if owner := strings.TrimSpace(q.OwnerID); ValidOwnerID(owner) {
		out.OwnerID = owner
	}
	out.Geo = parseGeo(q.Lat, q.Lng, q.RadiusKm)
	return out
}

// ModerationSearch builds the admin listing query. Unknown statuses are dropped;
// an empty status list matches every status.
func ModerationSearch(statuses []string, keyword string, page Page) SearchQuery {
	return SearchQuery{
		Statuses: ParseStatuses(statuses),
		Keyword:  CleanKeyword(keyword),
		Sort:     DefaultSort,
		Page:     page,
	}
}

// CleanKeyword turns control characters into spaces and trims the result, so a
// keyword is always a single line of text.
func CleanKeyword(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s))
}

// ParseStatuses splits comma separated values and keeps the known statuses.
func ParseStatuses(values []string) []Status {
	var out []Status
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			s := Status(strings.TrimSpace(part))
			if s.Valid() && !slices.Contains(out, s) {
				out = append(out, s)
			}
		}
	}
	return out
}

func publicStatuses(requested []string) []Status {
	var out []Status
	for _, s := range ParseStatuses(requested) {
		if s.Public() {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return slices.Clone(PublicStatuses)
	}
	return out
}

func parseBound(s string) *float64 {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	f := CoerceNumber(s)
	if !finite(f) {
		return nil
	}
	f = math.Max(0, f)
	return &f
}

func parseGeo(lat, lng, radius string) *GeoRadius {
	if strings.TrimSpace(lat) == "" || strings.TrimSpace(lng) == "" {
		return nil
	}
	la, errLat := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	lo, errLng := strconv.ParseFloat(strings.TrimSpace(lng), 64)
	if errLat != nil || errLng != nil {
		return nil
	}
	center := GeoPoint{Lat: la, Lng: lo}
	if !center.Valid() {
		return nil
	}
	km := DefaultRadiusKm
	if r, err := strconv.ParseFloat(strings.TrimSpace(radius), 64); err == nil && finite(r) && r > 0 {
		km = r
	}
	return &GeoRadius{Center: center, RadiusKm: km}
}
