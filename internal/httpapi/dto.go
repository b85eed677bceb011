package httpapi

import (
	"time"

	"github.com/feedbreak/feedbreak/internal/media"
	"github.com/feedbreak/feedbreak/internal/progress"
	"github.com/feedbreak/feedbreak/internal/store"
)

type userDTO struct {
	ID                 string    `json:"id"`
	DeviceID           string    `json:"device_id"`
	Name               string    `json:"name"`
	Age                int       `json:"age"`
	Interests          []string  `json:"interests"`
	EducationLevel     string    `json:"education_level"`
	CheckpointInterval int       `json:"checkpoint_interval"`
	WatchedCount       int64     `json:"watched_count"`
	CheckpointState    string    `json:"checkpoint_state"`
	CreatedAt          time.Time `json:"created_at"`
}

func toUser(u *store.User) userDTO {
	return userDTO{
		ID:                 u.ID,
		DeviceID:           u.DeviceID,
		Name:               u.Name,
		Age:                u.Age,
		Interests:          nonNil(u.Interests),
		EducationLevel:     u.EducationLevel,
		CheckpointInterval: u.CheckpointInterval,
		WatchedCount:       u.WatchedCount,
		CheckpointState:    string(progress.ParseState(u.CheckpointState)),
		CreatedAt:          u.CreatedAt,
	}
}

type questionDTO struct {
	ID               string   `json:"id"`
	ContentID        string   `json:"content_id"`
	QuestionText     string   `json:"question_text"`
	OrderIndex       int      `json:"order_index"`
	ExpectedConcepts []string `json:"expected_concepts"`
	Difficulty       int      `json:"difficulty"`
	Points           int      `json:"points"`
	GeneratedBy      string   `json:"generated_by"`
}

func toQuestion(q *store.Question) *questionDTO {
	if q == nil {
		return nil
	}
	return &questionDTO{
		ID:               q.ID,
		ContentID:        q.ContentID,
		QuestionText:     q.Prompt,
		OrderIndex:       q.OrderIndex,
		ExpectedConcepts: nonNil(q.ExpectedConcepts),
		Difficulty:       q.Difficulty,
		Points:           q.Points,
		GeneratedBy:      q.GeneratedBy,
	}
}

type watchDTO struct {
	UserID                  string       `json:"user_id"`
	VideoID                 string       `json:"video_id"`
	ContentID               string       `json:"content_id"`
	WatchedCount            int64        `json:"watched_count"`
	Interval                int          `json:"checkpoint_interval"`
	Counted                 bool         `json:"counted"`
	ShouldTriggerCheckpoint bool         `json:"should_trigger_checkpoint"`
	State                   string       `json:"checkpoint_state"`
	Question                *questionDTO `json:"question"`
}

func toWatch(r *progress.WatchResult) watchDTO {
	return watchDTO{
		UserID:                  r.UserID,
		VideoID:                 r.VideoID,
		ContentID:               r.ContentID,
		WatchedCount:            r.WatchedCount,
		Interval:                r.Interval,
		Counted:                 r.Counted,
		ShouldTriggerCheckpoint: r.ShouldTriggerCheckpoint,
		State:                   string(r.State),
		Question:                toQuestion(r.Question),
	}
}

type evaluationDTO struct {
	Score              float64  `json:"quality_score"`
	Passed             bool     `json:"passed"`
	ConceptsIdentified []string `json:"concepts_identified"`
	ConceptsMissing    []string `json:"missing_concepts"`
	Feedback           string   `json:"feedback"`
}

type responseDTO struct {
	ID          string         `json:"id"`
	UserID      string         `json:"user_id"`
	QuestionID  string         `json:"question_id"`
	VideoID     string         `json:"video_id,omitempty"`
	Kind        string         `json:"answer_type"`
	Text        string         `json:"answer_text,omitempty"`
	AudioRef    string         `json:"audio_ref,omitempty"`
	Status      string         `json:"status"`
	Evaluation  *evaluationDTO `json:"evaluation"`
	Degraded    bool           `json:"degraded"`
	CreatedAt   time.Time      `json:"created_at"`
	EvaluatedAt *time.Time     `json:"evaluated_at,omitempty"`
}

func toResponse(r *store.ResponseEvent, degraded bool) responseDTO {
	out := responseDTO{
		ID:         r.ID,
		UserID:     r.UserID,
		QuestionID: r.QuestionID,
		VideoID:    r.VideoID,
		Kind:       string(r.Kind),
		Text:       r.Text,
		AudioRef:   r.AudioRef,
		Status:     string(r.Status),
		Degraded:   degraded,
		CreatedAt:  r.CreatedAt,
	}
	if ev := r.Evaluation; ev != nil {
		out.Evaluation = &evaluationDTO{
			Score:              ev.Score,
			Passed:             ev.Passed,
			ConceptsIdentified: nonNil(ev.ConceptsIdentified),
			ConceptsMissing:    nonNil(ev.ConceptsMissing),
			Feedback:           ev.Feedback,
		}
	}
	if !r.EvaluatedAt.IsZero() {
		t := r.EvaluatedAt
		out.EvaluatedAt = &t
	}
	return out
}

type videoDTO struct {
	ID                 string       `json:"id"`
	ContentID          string       `json:"content_id"`
	Title              string       `json:"title"`
	Description        string       `json:"description"`
	DurationSeconds    int          `json:"duration_seconds"`
	CheckpointInterval int          `json:"checkpoint_interval,omitempty"`
	ExpectedConcepts   []string     `json:"expected_concepts"`
	ViewCount          int64        `json:"view_count"`
	Media              *media.Media `json:"media"`
	Static             bool         `json:"static_media"`
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
