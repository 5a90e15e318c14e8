package webhook

import (
	"fmt"
	"time"

	"github.com/fabriqd/fabriq/common"
	"github.com/fabriqd/fabriq/internal/config"
)

// Validator enforces the replay-protection freshness window on inbound
// notifications.
type Validator struct {
	maxAge time.Duration
	now    func() time.Time
}

func NewValidator(maxAge time.Duration) *Validator {
	if maxAge <= 0 {
		maxAge = config.DefaultWebhookMaxAge
	}
	return &Validator{maxAge: maxAge, now: time.Now}
}

// CheckFreshness rejects events outside the window in either direction: a
// replayed stale event and a clock-skewed future event both fail the same
// way. The timestamp is Unix milliseconds as claimed by the sender.
func (v *Validator) CheckFreshness(timestampMs int64) error {
	age := v.now().Sub(time.UnixMilli(timestampMs))
	if age < 0 {
		age = -age
	}
	if age > v.maxAge {
		return fmt.Errorf("event timestamp %d is %s old, window is %s: %w",
			timestampMs, age.Round(time.Second), v.maxAge, common.ErrReplaySuspected)
	}
	return nil
}
