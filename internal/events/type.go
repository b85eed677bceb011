package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventTypeWatchRecorded       EventType = "watch.recorded"
	EventTypeCheckpointTriggered EventType = "checkpoint.triggered"
	EventTypeResponseRecorded    EventType = "response.recorded"
)

// ExchangeName is the topic exchange all events are published to.
const ExchangeName = "feedbreak.events"

type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp int64     `json:"timestamp"`
	Version   string    `json:"version"`
}

type WatchRecordedEvent struct {
	BaseEvent
	UserID       string `json:"user_id"`
	VideoID      string `json:"video_id"`
	ContentID    string `json:"content_id"`
	WatchedCount int64  `json:"watched_count"`
	Counted      bool   `json:"counted"`
}

type CheckpointTriggeredEvent struct {
	BaseEvent
	UserID       string `json:"user_id"`
	ContentID    string `json:"content_id"`
	QuestionID   string `json:"question_id,omitempty"`
	WatchedCount int64  `json:"watched_count"`
	Interval     int    `json:"interval"`
}

type ResponseRecordedEvent struct {
	BaseEvent
	ResponseID string   `json:"response_id"`
	UserID     string   `json:"user_id"`
	QuestionID string   `json:"question_id"`
	Status     string   `json:"status"`
	Score      *float64 `json:"score,omitempty"`
	Passed     *bool    `json:"passed,omitempty"`
	Degraded   bool     `json:"degraded,omitempty"`
}

func newBase(t EventType) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      t,
		Timestamp: time.Now().Unix(),
		Version:   "1.0",
	}
}

func NewWatchRecordedEvent(userID, videoID, contentID string, count int64, counted bool) *WatchRecordedEvent {
	return &WatchRecordedEvent{
		BaseEvent:    newBase(EventTypeWatchRecorded),
		UserID:       userID,
		VideoID:      videoID,
		ContentID:    contentID,
		WatchedCount: count,
		Counted:      counted,
	}
}

func NewCheckpointTriggeredEvent(userID, contentID, questionID string, count int64, interval int) *CheckpointTriggeredEvent {
	return &CheckpointTriggeredEvent{
		BaseEvent:    newBase(EventTypeCheckpointTriggered),
		UserID:       userID,
		ContentID:    contentID,
		QuestionID:   questionID,
		WatchedCount: count,
		Interval:     interval,
	}
}

func NewResponseRecordedEvent(responseID, userID, questionID, status string) *ResponseRecordedEvent {
	return &ResponseRecordedEvent{
		BaseEvent:  newBase(EventTypeResponseRecorded),
		ResponseID: responseID,
		UserID:     userID,
		QuestionID: questionID,
		Status:     status,
	}
}

// WithScore sets the evaluation outcome.
func (e *ResponseRecordedEvent) WithScore(score float64, passed, degraded bool) *ResponseRecordedEvent {
	e.Score = &score
	e.Passed = &passed
	e.Degraded = degraded
	return e
}
