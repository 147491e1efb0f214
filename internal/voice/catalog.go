package voice

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"pipernest/internal/fetch"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// Catalog fetches the list of piper voices for one locale.
type Catalog struct {
	URL        string
	Locale     string
	httpClient *http.Client
}

// NewCatalog creates a catalogue reader. A nil client uses
// http.DefaultClient.
func NewCatalog(url, locale string, httpClient *http.Client) *Catalog {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Catalog{URL: url, Locale: locale, httpClient: httpClient}
}

// FetchAvailable downloads the catalogue and returns the voices of the
// configured locale, best quality first. Nothing is cached between calls.
func (c *Catalog) FetchAvailable(ctx context.Context) ([]Descriptor, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return nil, &fetch.NetworkError{URL: c.URL, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &fetch.NetworkError{URL: c.URL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &fetch.NetworkError{URL: c.URL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &fetch.NetworkError{URL: c.URL, Err: err}
	}

	voices, err := ParseCatalog(body, c.Locale)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"locale": c.Locale,
		"voices": len(voices),
	}).Debug("Fetched voice catalog")

	return voices, nil
}

// ParseCatalog decodes a voices.json document, keeping entries whose key
// starts with locale. Entries keep document order within a quality tier.
func ParseCatalog(data []byte, locale string) ([]Descriptor, error) {
	if len(strings.TrimSpace(string(data))) == 0 || !gjson.ValidBytes(data) {
		return nil, ErrCatalogParse
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: top level is not an object", ErrCatalogParse)
	}

	seen := make(map[string]bool)
	var voices []Descriptor

	root.ForEach(func(k, v gjson.Result) bool {
		key := k.String()
		if !strings.HasPrefix(key, locale) || seen[key] {
			return true
		}
		seen[key] = true
		voices = append(voices, descriptorFrom(key, locale, v))
		return true
	})

	sort.SliceStable(voices, func(i, j int) bool {
		return voices[i].Quality.Rank() > voices[j].Quality.Rank()
	})

	return voices, nil
}

func descriptorFrom(key, locale string, v gjson.Result) Descriptor {
	d := Descriptor{
		Key:     key,
		Name:    v.Get("name").String(),
		Quality: Quality(v.Get("quality").String()),
		Files:   make(map[string]FileInfo),
	}
	if d.Name == "" {
		d.Name = key
	}
	if d.Quality == "" {
		d.Quality = QualityUnknown
	}

	if lang := v.Get("language"); lang.IsObject() {
		d.Language = Language{
			Code:           lang.Get("code").String(),
			NameEnglish:    lang.Get("name_english").String(),
			CountryEnglish: lang.Get("country_english").String(),
		}
	} else {
		d.Language = Language{Code: locale, NameEnglish: "Unknown", CountryEnglish: "Unknown"}
	}

	v.Get("files").ForEach(func(p, f gjson.Result) bool {
		d.Files[p.String()] = FileInfo{
			SizeBytes: f.Get("size_bytes").Int(),
			MD5Digest: f.Get("md5_digest").String(),
		}
		return true
	})

	return d
}
