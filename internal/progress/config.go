package progress

import (
	"fmt"
	"time"
)

// DuplicateWatchPolicy decides what a repeat watch of the same video does.
type DuplicateWatchPolicy string

const (
	// AppendWatches logs every watch and advances the count each time.
	AppendWatches DuplicateWatchPolicy = "append"

	// CollapseWatches keeps one row per (user, video). A repeat watch
	// refreshes that row and leaves the count unchanged.
	CollapseWatches DuplicateWatchPolicy = "upsert"
)

// IntervalSource decides where the checkpoint interval comes from.
type IntervalSource string

const (
	// IntervalVideoFirst uses the video's override, then the user's
	// interval, then the default.
	IntervalVideoFirst IntervalSource = "video_first"

	// IntervalUserOnly ignores video overrides.
	IntervalUserOnly IntervalSource = "user_only"
)

// DefaultInterval is the checkpoint interval when neither the video nor the
// user sets one.
const DefaultInterval = 3

// DefaultPassThreshold is the minimum score that counts as passing.
const DefaultPassThreshold = 0.6

// TrackerConfig holds the policy choices of a Tracker.
type TrackerConfig struct {
	DuplicateWatchPolicy DuplicateWatchPolicy
	IntervalSource       IntervalSource

	// LenientUserCreation creates a default user when a watch or response
	// arrives for an unknown device id instead of failing with NotFound.
	LenientUserCreation bool

	// CountIncomplete counts watches reported with completed=false. When
	// false such watches are rejected with a ValidationError.
	CountIncomplete bool

	// UniqueResponses rejects a second response to the same question by the
	// same user with a DuplicateError.
	UniqueResponses bool

	DefaultInterval int
	PassThreshold   float64

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// DefaultTrackerConfig returns the default policies.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		DuplicateWatchPolicy: AppendWatches,
		IntervalSource:       IntervalVideoFirst,
		LenientUserCreation:  false,
		CountIncomplete:      true,
		UniqueResponses:      true,
		DefaultInterval:      DefaultInterval,
		PassThreshold:        DefaultPassThreshold,
		Now:                  time.Now,
	}
}

// Validate checks the configuration and fills zero-valued optional fields.
func (c *TrackerConfig) Validate() error {
	switch c.DuplicateWatchPolicy {
	case "":
		c.DuplicateWatchPolicy = AppendWatches
	case AppendWatches, CollapseWatches:
	default:
		return fmt.Errorf("unknown duplicate watch policy %q", c.DuplicateWatchPolicy)
	}
	switch c.IntervalSource {
	case "":
		c.IntervalSource = IntervalVideoFirst
	case IntervalVideoFirst, IntervalUserOnly:
	default:
		return fmt.Errorf("unknown interval source %q", c.IntervalSource)
	}
	if c.DefaultInterval == 0 {
		c.DefaultInterval = DefaultInterval
	}
	if c.DefaultInterval < 0 {
		return fmt.Errorf("default interval must be positive, got %d", c.DefaultInterval)
	}
	if c.PassThreshold == 0 {
		c.PassThreshold = DefaultPassThreshold
	}
	if c.PassThreshold < 0 || c.PassThreshold > 1 {
		return fmt.Errorf("pass threshold must be in [0,1], got %v", c.PassThreshold)
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return nil
}
