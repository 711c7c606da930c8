package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	"golang.org/x/text/language"

	"studio/internal/i18n"
)

type localeContextKey struct{}
type countryContextKey struct{}

// CountryLookup resolves ISO country codes for an IP address.
type CountryLookup func(ip string) (string, error)

// countryHeaders are set by CDNs and proxies in front of the API.
var countryHeaders = []string{"X-Country-Code", "CF-IPCountry", "X-Appengine-Country", "X-IP-Country"}

// I18N picks the response locale for alerts and validation messages.
// Precedence: X-Locale, Accept-Language, the client's country (Greater
// China maps to zh), then defaultLocale.
func I18N(defaultLocale string, lookup CountryLookup) func(http.Handler) http.Handler {
	fallback := i18n.English
	if strings.TrimSpace(defaultLocale) != "" {
		fallback = i18n.Normalize(defaultLocale)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			country := ResolveCountry(r, lookup)
			locale := fallback
			switch {
			case r.Header.Get("X-Locale") != "":
				locale = i18n.Normalize(r.Header.Get("X-Locale"))
			case strings.TrimSpace(r.Header.Get("Accept-Language")) != "":
				locale = i18n.Normalize(r.Header.Get("Accept-Language"))
			case country != "":
				locale = localeForCountry(country)
			}

			ctx := context.WithValue(r.Context(), localeContextKey{}, locale)
			if country != "" {
				ctx = context.WithValue(ctx, countryContextKey{}, country)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func LocaleFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(localeContextKey{}).(string); ok {
		return v
	}
	return i18n.English
}

func CountryFromContext(ctx context.Context) string {
	v, _ := ctx.Value(countryContextKey{}).(string)
	return v
}

// ResolveCountry checks proxy headers, then the region subtag of the
// requested language, then the GeoIP lookup.
func ResolveCountry(r *http.Request, lookup CountryLookup) string {
	if r == nil {
		return ""
	}
	for _, key := range countryHeaders {
		if v := strings.TrimSpace(r.Header.Get(key)); v != "" {
			return strings.ToUpper(v)
		}
	}
	for _, hint := range []string{r.Header.Get("X-Locale"), r.Header.Get("Accept-Language")} {
		if region := languageRegion(hint); region != "" {
			return region
		}
	}
	if lookup == nil {
		return ""
	}
	ip := ClientIP(r)
	if ip == "" {
		return ""
	}
	country, err := lookup(ip)
	if err != nil {
		return ""
	}
	return strings.ToUpper(country)
}

// languageRegion returns the explicit region of the most preferred tag, or
// CN for a bare Chinese tag.
func languageRegion(header string) string {
	if strings.TrimSpace(header) == "" {
		return ""
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return ""
	}
	top := tags[0]
	if region, conf := top.Region(); conf == language.Exact {
		return region.String()
	}
	if base, _ := top.Base(); base.String() == i18n.Chinese {
		return "CN"
	}
	return ""
}

func localeForCountry(country string) string {
	switch strings.ToUpper(country) {
	case "CN", "TW", "HK", "MO":
		return i18n.Chinese
	}
	return i18n.English
}

// ClientIP returns the first parseable X-Forwarded-For hop, falling back to
// the connection address.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	for _, part := range strings.Split(r.Header.Get("X-Forwarded-For"), ",") {
		if ip := strings.TrimSpace(part); net.ParseIP(ip) != nil {
			return ip
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
