package progress

import (
	"testing"

	"github.com/feedbreak/feedbreak/internal/store"
)

func TestShouldTrigger(t *testing.T) {
	tests := []struct {
		count    int64
		interval int
		want     bool
	}{
		{0, 3, false},
		{1, 3, false},
		{2, 3, false},
		{3, 3, true},
		{6, 3, true},
		{7, 3, false},
		{1, 1, true},
		{5, 5, true},
		{4, 0, false},
		{4, -2, false},
	}
	for _, tt := range tests {
		if got := ShouldTrigger(tt.count, tt.interval); got != tt.want {
			t.Errorf("ShouldTrigger(%d, %d) = %v, want %v", tt.count, tt.interval, got, tt.want)
		}
	}
}

func TestResolveInterval(t *testing.T) {
	videoFirst := DefaultTrackerConfig()
	userOnly := DefaultTrackerConfig()
	userOnly.IntervalSource = IntervalUserOnly

	tests := []struct {
		name  string
		cfg   TrackerConfig
		user  *store.User
		video *store.Video
		want  int
	}{
		{"video override wins", videoFirst, &store.User{CheckpointInterval: 4}, &store.Video{CheckpointInterval: 2}, 2},
		{"user when video unset", videoFirst, &store.User{CheckpointInterval: 4}, &store.Video{}, 4},
		{"default when both unset", videoFirst, &store.User{}, &store.Video{}, 3},
		{"user only ignores video", userOnly, &store.User{CheckpointInterval: 5}, &store.Video{CheckpointInterval: 2}, 5},
		{"nil inputs", videoFirst, nil, nil, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveInterval(tt.cfg, tt.user, tt.video); got != tt.want {
				t.Errorf("ResolveInterval = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNextWatchState(t *testing.T) {
	tests := []struct {
		current   State
		triggered bool
		available bool
		want      State
	}{
		{StateAccruing, false, false, StateAccruing},
		{StateAccruing, true, true, StateCheckpointDue},
		{StateAccruing, true, false, StateAccruing},
		{StateCheckpointDue, false, false, StateCheckpointDue},
		{StateCheckpointAnswered, false, false, StateAccruing},
		{StateCheckpointAnswered, true, true, StateCheckpointDue},
	}
	for _, tt := range tests {
		if got := nextWatchState(tt.current, tt.triggered, tt.available); got != tt.want {
			t.Errorf("nextWatchState(%s, %v, %v) = %s, want %s", tt.current, tt.triggered, tt.available, got, tt.want)
		}
	}
}

func TestNextResponseState(t *testing.T) {
	tests := []struct {
		current State
		want    State
	}{
		{StateCheckpointDue, StateCheckpointAnswered},
		{StateAccruing, StateAccruing},
		{StateCheckpointAnswered, StateCheckpointAnswered},
	}
	for _, tt := range tests {
		if got := nextResponseState(tt.current); got != tt.want {
			t.Errorf("nextResponseState(%s) = %s, want %s", tt.current, got, tt.want)
		}
	}
}

func TestParseState(t *testing.T) {
	if got := ParseState("checkpoint_due"); got != StateCheckpointDue {
		t.Errorf("ParseState(checkpoint_due) = %s", got)
	}
	if got := ParseState("garbage"); got != StateAccruing {
		t.Errorf("ParseState(garbage) = %s, want accruing", got)
	}
}

func TestTrackerConfigValidate(t *testing.T) {
	var cfg TrackerConfig
	if err := cfg.Validate(); err != nil {
		t.Fatalf("zero config: %v", err)
	}
	if cfg.DefaultInterval != 3 || cfg.PassThreshold != 0.6 || cfg.Now == nil {
		t.Errorf("defaults not filled: %+v", cfg)
	}

	bad := []TrackerConfig{
		{DuplicateWatchPolicy: "sometimes"},
		{IntervalSource: "moon"},
		{DefaultInterval: -1},
		{PassThreshold: 1.5},
	}
	for i, c := range bad {
		if err := c.Validate(); err == nil {
			t.Errorf("bad[%d] accepted", i)
		}
	}
}
