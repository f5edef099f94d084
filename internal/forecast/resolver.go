package forecast

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// CountrySearcher is the fuzzy fallback used when the alias table misses.
type CountrySearcher interface {
	SearchCountry(ctx context.Context, name string) (string, error)
}

var defaultAliases = map[string]string{
	"india":                    "IND",
	"usa":                      "USA",
	"us":                       "USA",
	"united states":            "USA",
	"united states of america": "USA",
	"america":                  "USA",
	"china":                    "CHN",
	"germany":                  "DEU",
	"japan":                    "JPN",
	"russia":                   "RUS",
	"uk":                       "GBR",
	"united kingdom":           "GBR",
	"britain":                  "GBR",
	"great britain":            "GBR",
	"brazil":                   "BRA",
	"france":                   "FRA",
	"italy":                    "ITA",
	"canada":                   "CAN",
	"mexico":                   "MEX",
	"south korea":              "KOR",
	"korea":                    "KOR",
	"north korea":              "PRK",
	"uae":                      "ARE",
	"turkey":                   "TUR",
	"turkiye":                  "TUR",
	"iran":                     "IRN",
	"vietnam":                  "VNM",
	"ivory coast":              "CIV",
	"czech republic":           "CZE",
	"drc":                      "COD",
	"dr congo":                 "COD",
}

type Resolver struct {
	aliases map[string]string
	search  CountrySearcher
	log     *logrus.Logger
}

// NewResolver merges extra aliases over the built-in table. Extra keys are
// normalized the same way as request input.
func NewResolver(search CountrySearcher, extra map[string]string, log *logrus.Logger) *Resolver {
	aliases := make(map[string]string, len(defaultAliases)+len(extra))
	for k, v := range defaultAliases {
		aliases[k] = v
	}
	for k, v := range extra {
		key := NormalizeName(k)
		code := strings.ToUpper(strings.TrimSpace(v))
		if key == "" || len(code) != 3 {
			continue
		}
		aliases[key] = code
	}
	if log == nil {
		log = logrus.New()
	}
	return &Resolver{aliases: aliases, search: search, log: log}
}

func (r *Resolver) Resolve(ctx context.Context, name string) (string, error) {
	key := NormalizeName(name)
	if key == "" {
		return "", fmt.Errorf("%w: empty country name", ErrCountryNotFound)
	}
	if code, ok := r.aliases[key]; ok {
		return code, nil
	}
	if r.search == nil {
		return "", fmt.Errorf("%w: %q", ErrCountryNotFound, name)
	}

	code, err := r.search.SearchCountry(ctx, key)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"component": "resolver",
			"country":   name,
		}).WithError(err).Debug("country search failed")
		return "", fmt.Errorf("%w: %q: %w", ErrCountryNotFound, name, err)
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 3 {
		return "", fmt.Errorf("%w: %q", ErrCountryNotFound, name)
	}
	return code, nil
}

// NormalizeName lowercases, strips diacritics and collapses whitespace.
func NormalizeName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}
