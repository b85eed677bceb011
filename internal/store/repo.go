package store

import (
	"context"
	"time"
)

// QueryOpts configures event queries.
type QueryOpts struct {
	Limit  int       // max results (0 = unlimited)
	After  int64     // sequence > After
	Before int64     // sequence < Before
	From   time.Time // timestamp >= From
	To     time.Time // timestamp <= To
}

// User is a learner identified by an opaque device identifier.
type User struct {
	ID                 string
	DeviceID           string
	Name               string
	Age                int
	Interests          []string
	EducationLevel     string
	CheckpointInterval int
	WatchedCount       int64
	CheckpointState    string
	LastActiveAt       time.Time // zero if the user never watched or answered
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// UserProfile holds the user-editable fields.
type UserProfile struct {
	DeviceID           string
	Name               string
	Age                int
	Interests          []string
	EducationLevel     string
	CheckpointInterval int
}

// Content groups ordered videos and ordered questions.
type Content struct {
	ID          string
	Title       string
	Description string
	Audience    string
	Category    string
	Difficulty  int
	OrderIndex  int
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Video belongs to exactly one content. ExternalID is the media reference
// (a YouTube video id) and never changes after creation.
type Video struct {
	ID                 string
	ContentID          string
	ExternalID         string
	Title              string
	Description        string
	DurationSeconds    int
	CheckpointInterval int // 0 means no per-video override
	OrderIndex         int
	ExpectedConcepts   []string
	ViewCount          int64
	Active             bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Question origins.
const (
	GeneratedManual   = "manual"
	GeneratedLLM      = "llm"
	GeneratedWebhook  = "webhook"
	GeneratedFallback = "fallback"
)

// Question is a checkpoint prompt belonging to one content.
type Question struct {
	ID               string
	ContentID        string
	Prompt           string
	OrderIndex       int
	ExpectedConcepts []string
	Difficulty       int
	Points           int
	GeneratedBy      string
	Active           bool
	CreatedAt        time.Time
}

// WatchEvent records one video watch.
type WatchEvent struct {
	ID        string
	Sequence  int64
	UserID    string
	VideoID   string
	Completed bool
	WatchedAt time.Time
}

// AnswerKind distinguishes text answers from audio references.
type AnswerKind string

const (
	AnswerText  AnswerKind = "text"
	AnswerAudio AnswerKind = "audio"
)

// EvaluationStatus tracks whether a response has been scored.
type EvaluationStatus string

const (
	StatusPending   EvaluationStatus = "pending"
	StatusEvaluated EvaluationStatus = "evaluated"
)

// Evaluation is the scored outcome of an answer.
type Evaluation struct {
	Score              float64
	Passed             bool
	ConceptsIdentified []string
	ConceptsMissing    []string
	Feedback           string
}

// ResponseEvent records a user's answer to a question, with the evaluation
// stored inline once available.
type ResponseEvent struct {
	ID          string
	Sequence    int64
	UserID      string
	QuestionID  string
	VideoID     string // optional context
	Kind        AnswerKind
	Text        string
	AudioRef    string
	Status      EvaluationStatus
	Evaluation  *Evaluation // nil while pending
	EvaluatedAt time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Querier is the set of reads and writes available both on the Store and
// inside a transaction opened with Store.WithTx.
//
// Lookups by id return an *apperr.NotFoundError when the row is missing.
// Find* lookups that model optional results return nil, nil instead.
type Querier interface {
	// Users.
	CreateUser(ctx context.Context, p UserProfile) (*User, error)
	GetUser(ctx context.Context, id string) (*User, error)
	FindUserByDeviceID(ctx context.Context, deviceID string) (*User, error)
	UpdateUserProfile(ctx context.Context, id string, p UserProfile) (*User, error)
	IncrementWatchedCount(ctx context.Context, userID string, at time.Time) (int64, error)
	SetCheckpointState(ctx context.Context, userID, state string, at time.Time) error

	// Catalog.
	CreateContent(ctx context.Context, c *Content) error
	GetContent(ctx context.Context, id string) (*Content, error)
	ListContents(ctx context.Context, activeOnly bool) ([]*Content, error)
	SetContentActive(ctx context.Context, id string, active bool) error
	DeleteContent(ctx context.Context, id string) error
	CreateVideo(ctx context.Context, v *Video) error
	GetVideo(ctx context.Context, id string) (*Video, error)
	ContentVideos(ctx context.Context, contentID string) ([]*Video, error)
	UpdateVideoMetadata(ctx context.Context, id, title string, durationSeconds int) error
	IncrementVideoViews(ctx context.Context, id string) error
	CreateQuestion(ctx context.Context, q *Question) error
	GetQuestion(ctx context.Context, id string) (*Question, error)
	ContentQuestions(ctx context.Context, contentID string) ([]*Question, error)
	NextQuestionOrder(ctx context.Context, contentID string) (int, error)
	NextUnansweredQuestion(ctx context.Context, userID, contentID string) (*Question, error)

	// Watch events.
	InsertWatchEvent(ctx context.Context, e *WatchEvent) error
	FindWatchEvent(ctx context.Context, userID, videoID string) (*WatchEvent, error)
	RefreshWatchEvent(ctx context.Context, id string, completed bool, at time.Time) error
	CountWatchEvents(ctx context.Context, userID, contentID string) (int64, error)

	// Response events.
	InsertResponseEvent(ctx context.Context, e *ResponseEvent) error
	GetResponse(ctx context.Context, id string) (*ResponseEvent, error)
	FindResponse(ctx context.Context, userID, questionID string) (*ResponseEvent, error)
	ReplaceResponseAnswer(ctx context.Context, id string, kind AnswerKind, text, audioRef string, at time.Time) error
	AttachEvaluation(ctx context.Context, id string, ev Evaluation, at time.Time) error
	PendingResponses(ctx context.Context, limit int) ([]*ResponseEvent, error)
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMRequestEvent is a stored LLM request event.
type LLMRequestEvent struct {
	ID        int
	Sequence  int64
	Timestamp time.Time
	LLMRequestEventData
}

// PurposeUsage aggregates token usage for one purpose label.
type PurposeUsage struct {
	Purpose      string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// ModelUsage aggregates token usage for one model.
type ModelUsage struct {
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
}

// EventRepo provides append and query access to LLM request events.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// QueryLLMEvents returns events newest first.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMRequestEvent, error)

	// GetLLMEvent returns the event with the given id, or nil if none.
	GetLLMEvent(ctx context.Context, id int) (*LLMRequestEvent, error)

	LLMUsageByPurpose(ctx context.Context) ([]PurposeUsage, error)
	LLMUsageByModel(ctx context.Context) ([]ModelUsage, error)
}
