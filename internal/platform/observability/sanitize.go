package observability

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	routeLimit  = 180
	methodLimit = 10
	searchLimit = 80
	tokenLimit  = 64
	tokenTail   = 6
)

// clean removes control characters so request data cannot forge log lines, then caps the rune count.
func clean(value string, limit int) string {
	value = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, value)
	if utf8.RuneCountInString(value) > limit {
		value = string([]rune(value)[:limit])
	}
	return value
}

// SanitizeRoute cleans a request path or chi route pattern for logging.
func SanitizeRoute(route string) string {
	if route == "" {
		return "/"
	}
	return clean(route, routeLimit)
}

// SanitizeMethod cleans an HTTP method for logging.
func SanitizeMethod(method string) string {
	return strings.ToUpper(clean(method, methodLimit))
}

// SanitizeSearch collapses whitespace in catalog search text and caps it for logging.
func SanitizeSearch(query string) string {
	return clean(strings.Join(strings.Fields(query), " "), searchLimit)
}

// SanitizeIdentifier masks a visitor or session token: the "session_" style prefix and the
// last few characters stay readable so log lines can still be correlated.
func SanitizeIdentifier(id string) string {
	id = clean(strings.TrimSpace(id), tokenLimit)
	if len(id) <= tokenTail*2 {
		return id
	}
	prefix := ""
	if i := strings.IndexByte(id, '_'); i > 0 && i < 16 {
		prefix = id[:i+1]
	}
	return prefix + "…" + id[len(id)-tokenTail:]
}
