package platform

// Package platform decides interactive-flow and persistence policy from the
// calling platform. Keeping the user-agent sniff behind a port makes the
// policy testable without real browsers.

import (
	"regexp"

	"github.com/helsevakt/vaksineportal/internal/ports"
)

// Mobile-class agents get redirect-only interactive flows and volatile,
// cookie-backed persistence: popups are unreliable in embedded/mobile
// browser contexts, and those platforms partition storage aggressively.
var mobileAgentRe = regexp.MustCompile(`(?i)iPhone|iPad|iPod|Android.*Mobile|Windows Phone`)

// UserAgentPolicy implements ports.PlatformPolicy from a user-agent string.
type UserAgentPolicy struct {
	mobile bool
}

var _ ports.PlatformPolicy = UserAgentPolicy{}

// FromUserAgent builds a policy by classifying the given user-agent string.
// An empty string classifies as desktop.
func FromUserAgent(userAgent string) UserAgentPolicy {
	return UserAgentPolicy{mobile: mobileAgentRe.MatchString(userAgent)}
}

// Static returns a fixed policy, useful for configuration overrides and tests.
func Static(preferRedirect bool) UserAgentPolicy {
	return UserAgentPolicy{mobile: preferRedirect}
}

// PreferRedirect reports whether interactive flows must use full-page redirect.
func (p UserAgentPolicy) PreferRedirect() bool { return p.mobile }

// VolatilePersistence reports whether the client cache should be
// session-scoped with a cookie fallback.
func (p UserAgentPolicy) VolatilePersistence() bool { return p.mobile }
