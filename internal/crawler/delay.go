package crawler

import (
	"log/slog"
	"math/rand"
	"time"

	"github.com/TouhouGleaners/touhou-memory-archive/internal/config"
)

// JitterDelay returns a draw function for the per-request pacing sleep:
// uniform over [min, max].
func JitterDelay(min, max time.Duration) func() time.Duration {
	if max < min {
		max = min
	}
	span := max - min
	return func() time.Duration {
		if span == 0 {
			return min
		}
		return min + time.Duration(rand.Int63n(int64(span)))
	}
}

// UserSwitchPolicy computes the dynamic delay applied between uploaders.
// State is the last-completed uploader's video count: written once per
// uploader by the producer, read once by the orchestrator. Uploaders are
// processed serially, so access is single-owner; if uploader parallelism is
// ever introduced, UpdateVideoCount and Delay must be serialized.
type UserSwitchPolicy struct {
	cfg            config.UserSwitchConfig
	lastVideoCount int
}

func NewUserSwitchPolicy(cfg config.UserSwitchConfig) *UserSwitchPolicy {
	return &UserSwitchPolicy{cfg: cfg}
}

// UpdateVideoCount records the total video count of the uploader just
// processed; it feeds the next switch delay.
func (p *UserSwitchPolicy) UpdateVideoCount(count int) {
	p.lastVideoCount = count
}

// Delay returns the jittered switch delay:
// max(0, min(base + count*factor, max) ± jitterRatio).
func (p *UserSwitchPolicy) Delay() time.Duration {
	dynamic := time.Duration(p.lastVideoCount) * p.cfg.FactorPerVideo
	capped := p.cfg.BaseDelay + dynamic
	if capped > p.cfg.MaxDelay {
		capped = p.cfg.MaxDelay
	}

	jitter := time.Duration(float64(capped) * p.cfg.JitterRatio)
	final := capped
	if jitter > 0 {
		final += time.Duration(rand.Int63n(int64(2*jitter))) - jitter
	}
	if final < 0 {
		final = 0
	}

	slog.Debug("computed user switch delay",
		slog.Int("last_video_count", p.lastVideoCount),
		slog.Duration("capped", capped),
		slog.Duration("jitter", jitter),
		slog.Duration("final", final),
	)
	return final
}
