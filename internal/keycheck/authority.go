package keycheck

import (
	"net/url"
	"strings"

	"github.com/ppiankov/medeval/internal/model"
)

// AuthorityClassifier classifies source URLs into authority tiers
type AuthorityClassifier struct {
	config *model.AuthorityConfig
}

// NewAuthorityClassifier creates a classifier; nil config uses the defaults
func NewAuthorityClassifier(config *model.AuthorityConfig) *AuthorityClassifier {
	if config == nil {
		config = &model.DefaultConfig().Authority
	}
	return &AuthorityClassifier{config: config}
}

// Classify classifies a URL into an authority tier
func (a *AuthorityClassifier) Classify(rawURL string) model.AuthorityTier {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return model.TierUnknown
	}
	host := strings.ToLower(parsed.Hostname())
	host = strings.TrimPrefix(host, "www.")

	// Explicit mappings win
	if tierStr, ok := a.config.DomainMap[host]; ok {
		return parseTierString(tierStr)
	}

	if matchesDomain(host, a.config.PrimaryDomains) {
		return model.TierPrimary
	}
	if matchesDomain(host, a.config.SecondaryDomains) {
		return model.TierSecondary
	}

	// Government sites not listed explicitly are still official
	if strings.HasSuffix(host, ".gov") {
		return model.TierPrimary
	}
	if strings.HasSuffix(host, ".edu") {
		return model.TierSecondary
	}

	return model.TierTertiary
}

// matchesDomain reports whether host is one of domains or a subdomain of one
func matchesDomain(host string, domains []string) bool {
	for _, d := range domains {
		d = strings.ToLower(d)
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// parseTierString converts a tier string to AuthorityTier
func parseTierString(tier string) model.AuthorityTier {
	switch strings.ToLower(tier) {
	case "primary", "1":
		return model.TierPrimary
	case "secondary", "2":
		return model.TierSecondary
	default:
		return model.TierTertiary
	}
}
