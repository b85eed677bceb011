package progress

import "github.com/feedbreak/feedbreak/internal/store"

// State is a user's position in the checkpoint cycle.
type State string

const (
	StateAccruing           State = "accruing"
	StateCheckpointDue      State = "checkpoint_due"
	StateCheckpointAnswered State = "checkpoint_answered"
)

// ParseState maps a stored value to a State. Unknown values read as
// accruing.
func ParseState(s string) State {
	switch State(s) {
	case StateCheckpointDue, StateCheckpointAnswered:
		return State(s)
	default:
		return StateAccruing
	}
}

// ShouldTrigger reports whether a checkpoint is due after the count-th
// watch. A non-positive interval never triggers.
func ShouldTrigger(count int64, interval int) bool {
	if count <= 0 || interval <= 0 {
		return false
	}
	return count%int64(interval) == 0
}

// ResolveInterval picks the checkpoint interval for a watch of video by
// user. Intervals are never combined: the first positive source wins.
func ResolveInterval(cfg TrackerConfig, user *store.User, video *store.Video) int {
	if cfg.IntervalSource == IntervalVideoFirst && video != nil && video.CheckpointInterval > 0 {
		return video.CheckpointInterval
	}
	if user != nil && user.CheckpointInterval > 0 {
		return user.CheckpointInterval
	}
	if cfg.DefaultInterval > 0 {
		return cfg.DefaultInterval
	}
	return DefaultInterval
}

// nextWatchState returns the state after a watch. A trigger with nothing
// left to ask degrades to accruing; an unanswered checkpoint stays due
// until a response is recorded.
func nextWatchState(current State, triggered, questionAvailable bool) State {
	switch {
	case triggered && questionAvailable:
		return StateCheckpointDue
	case triggered:
		return StateAccruing
	case current == StateCheckpointDue:
		return StateCheckpointDue
	default:
		return StateAccruing
	}
}

// nextResponseState returns the state after a recorded response. Only a
// due checkpoint is answered; a response outside a checkpoint leaves the
// state alone.
func nextResponseState(current State) State {
	if current == StateCheckpointDue {
		return StateCheckpointAnswered
	}
	return current
}
