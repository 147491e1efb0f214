package voice

import (
	"fmt"
	"strconv"
	"strings"
)

// Resolve maps a free-form identifier onto one catalogue entry. Stages are
// tried in order and the first hit wins:
//
//  1. a 1-based index into catalog; any other integer is not found
//  2. an exact key
//  3. the identifier with localePrefix prepended, e.g. "amy-medium"
//  4. a case-insensitive substring of key or name; the best quality wins
//     and catalogue order breaks ties
func Resolve(identifier string, catalog []Descriptor, localePrefix string) (Descriptor, error) {
	id := strings.TrimSpace(identifier)
	if len(catalog) == 0 || id == "" {
		return Descriptor{}, fmt.Errorf("%w: %q", ErrVoiceNotFound, identifier)
	}

	if n, err := strconv.Atoi(id); err == nil {
		if n < 1 || n > len(catalog) {
			return Descriptor{}, fmt.Errorf("%w: index %d out of range 1-%d", ErrVoiceNotFound, n, len(catalog))
		}
		return catalog[n-1], nil
	}

	for _, d := range catalog {
		if d.Key == id {
			return d, nil
		}
	}

	prefixed := localePrefix + "-" + id
	for _, d := range catalog {
		if d.Key == prefixed {
			return d, nil
		}
	}

	needle := strings.ToLower(id)
	best := -1
	for i, d := range catalog {
		if !strings.Contains(strings.ToLower(d.Key), needle) && !strings.Contains(strings.ToLower(d.Name), needle) {
			continue
		}
		if best < 0 || d.Quality.Rank() > catalog[best].Quality.Rank() {
			best = i
		}
	}
	if best < 0 {
		return Descriptor{}, fmt.Errorf("%w: %q", ErrVoiceNotFound, identifier)
	}

	return catalog[best], nil
}
