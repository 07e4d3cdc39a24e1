package auth

import (
	"context"
	"time"
)

// LoginTracker records successful sign ins of an identity.
type LoginTracker interface {
	TrackLogin(ctx context.Context, identityID string, at time.Time) error
}

// TrackMembershipLogins returns a SessionListener that stamps the memberships
// of every identity that signs in. The write runs inline and is bounded by
// timeout. Failures are logged and never reach the backend.
func TrackMembershipLogins(tracker LoginTracker, logger Logger, timeout time.Duration) SessionListener {
	if logger == nil {
		logger = defLogger{}
	}
	if timeout <= 0 {
		timeout = DefaultStepTimeout
	}

	return func(ev SessionEvent) {
		if ev.Type != SessionEventSignedIn || ev.Session == nil || ev.Session.Identity.ID == "" {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := tracker.TrackLogin(ctx, ev.Session.Identity.ID, ev.Session.IssuedAt); err != nil {
			logger.Warn("could not track login of identity %s: %v", ev.Session.Identity.ID, err)
		}
	}
}
