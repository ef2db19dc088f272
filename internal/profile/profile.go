// Package profile resolves participant display profiles. Resolution is a
// collaborator boundary: whatever the backing loader does, the gateway always
// ends up with one profile per requested identifier, substituting a default
// rather than propagating failure. Profile enrichment must never block a
// join notification.
package profile

import (
	"context"

	"go.uber.org/zap"
)

// DefaultDisplayName is substituted whenever a profile cannot be resolved.
const DefaultDisplayName = "Anonymous"

// Profile is a participant's display profile.
type Profile struct {
	ParticipantID string `json:"participant_id"`
	DisplayName   string `json:"display_name"`
	AvatarURL     string `json:"avatar_url,omitempty"`
}

// Loader loads profiles for an ordered set of participant identifiers and
// returns a same-length ordered sequence; a zero-value element marks an
// absent profile.
type Loader interface {
	Load(ctx context.Context, ids []string) ([]Profile, error)
}

// Resolve loads profiles through l and enforces the fallback contract: on
// loader failure or a malformed (wrong-length) result, every requested
// identifier gets a default profile.
func Resolve(ctx context.Context, l Loader, ids []string, log *zap.Logger) []Profile {
	if len(ids) == 0 {
		return nil
	}
	profiles, err := l.Load(ctx, ids)
	if err != nil || len(profiles) != len(ids) {
		if err != nil {
			log.Warn("Profile load failed, using defaults", zap.Error(err), zap.Int("ids", len(ids)))
		} else {
			log.Warn("Profile load returned malformed result, using defaults",
				zap.Int("want", len(ids)), zap.Int("got", len(profiles)))
		}
		return defaults(ids)
	}
	for i := range profiles {
		if profiles[i].ParticipantID == "" {
			profiles[i].ParticipantID = ids[i]
		}
		if profiles[i].DisplayName == "" {
			profiles[i].DisplayName = DefaultDisplayName
		}
	}
	return profiles
}

func defaults(ids []string) []Profile {
	out := make([]Profile, len(ids))
	for i, id := range ids {
		out[i] = Profile{ParticipantID: id, DisplayName: DefaultDisplayName}
	}
	return out
}

// NullLoader resolves nothing; every participant falls back to the default
// profile. Used when no profile backend is configured.
type NullLoader struct{}

func (NullLoader) Load(_ context.Context, ids []string) ([]Profile, error) {
	return make([]Profile, len(ids)), nil
}
