package model

import "time"

// AuthorityTier represents the classification of source authority
type AuthorityTier int

const (
	TierUnknown   AuthorityTier = 0 // Not yet classified
	TierPrimary   AuthorityTier = 1 // Statute, regulation, official program sites
	TierSecondary AuthorityTier = 2 // Counseling networks, policy research groups
	TierTertiary  AuthorityTier = 3 // Blogs, brokers, marketing pages
)

func (t AuthorityTier) String() string {
	switch t {
	case TierPrimary:
		return "primary"
	case TierSecondary:
		return "secondary"
	case TierTertiary:
		return "tertiary"
	default:
		return "unknown"
	}
}

// SourceCheck is the result of checking one canonical fact's source reference
type SourceCheck struct {
	FactID        string        `json:"fact_id"`
	Source        string        `json:"source"`
	URL           string        `json:"url,omitempty"` // Empty when the source is not a URL
	IsAccessible  bool          `json:"is_accessible"`
	StatusCode    int           `json:"status_code,omitempty"`
	LastModified  *time.Time    `json:"last_modified,omitempty"`
	Age           *int          `json:"age_days,omitempty"`
	IsStale       bool          `json:"is_stale"` // Modified before the scenario effective date window
	IsDead        bool          `json:"is_dead"`  // 404, 410, or unreachable
	RedirectURL   string        `json:"redirect_url,omitempty"`
	RobotsAllowed bool          `json:"robots_allowed"`
	Authority     AuthorityTier `json:"authority"`
	Error         string        `json:"error,omitempty"`
}
