package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedbreak/feedbreak/internal/apperr"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// seedCatalog creates one active content with two videos and three
// questions and returns them.
func seedCatalog(t *testing.T, s *Store) (*Content, []*Video, []*Question) {
	t.Helper()
	ctx := context.Background()

	ct := &Content{Title: "Fractions", Audience: "kids", Active: true}
	require.NoError(t, s.CreateContent(ctx, ct))

	var videos []*Video
	for i, ext := range []string{"abc123def45", "zyx987wvu65"} {
		v := &Video{ContentID: ct.ID, ExternalID: ext, Title: ext, OrderIndex: i, Active: true}
		require.NoError(t, s.CreateVideo(ctx, v))
		videos = append(videos, v)
	}

	var questions []*Question
	for i, p := range []string{"What is a half?", "What is a quarter?", "Compare 1/2 and 1/4."} {
		q := &Question{ContentID: ct.ID, Prompt: p, OrderIndex: i, Active: true, ExpectedConcepts: []string{"fraction"}}
		require.NoError(t, s.CreateQuestion(ctx, q))
		questions = append(questions, q)
	}
	return ct, videos, questions
}

func TestOpenClose(t *testing.T) {
	s := openTestStore(t)
	if s.DB() == nil {
		t.Fatal("expected non-nil database handle")
	}
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		{"journal_mode", "wal"},
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestAutoMigrationCreatesTables(t *testing.T) {
	s := openTestStore(t)
	for _, name := range []string{"users", "contents", "videos", "questions", "watch_events", "response_events", "llm_request_events", "global_sequence"} {
		var got string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", name,
		).Scan(&got)
		if err != nil {
			t.Errorf("table %s: %v", name, err)
		}
	}
}

func TestSequenceIsMonotonic(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var seqs []int64
	for i := 0; i < 5; i++ {
		seq, err := nextSequence(ctx, s.ex)
		if err != nil {
			t.Fatalf("next %d: %v", i, err)
		}
		seqs = append(seqs, seq)
	}
	for i, seq := range seqs {
		if want := int64(i + 1); seq != want {
			t.Errorf("seq[%d] = %d, want %d", i, seq, want)
		}
	}
}

func TestUserLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, UserProfile{DeviceID: "dev-1", Name: "Ana", Interests: []string{"space"}})
	require.NoError(t, err)
	assert.Equal(t, 3, u.CheckpointInterval, "default interval")
	assert.Equal(t, "accruing", u.CheckpointState)

	_, err = s.CreateUser(ctx, UserProfile{DeviceID: "dev-1"})
	assert.True(t, apperr.IsDuplicate(err), "second create with same device: %v", err)

	found, err := s.FindUserByDeviceID(ctx, "dev-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, u.ID, found.ID)
	assert.Equal(t, []string{"space"}, found.Interests)
	assert.True(t, found.LastActiveAt.IsZero())

	missing, err := s.FindUserByDeviceID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	updated, err := s.UpdateUserProfile(ctx, u.ID, UserProfile{Name: "Ana B", Age: 11, CheckpointInterval: 5})
	require.NoError(t, err)
	assert.Equal(t, "Ana B", updated.Name)
	assert.Equal(t, 5, updated.CheckpointInterval)

	_, err = s.GetUser(ctx, "missing-id")
	assert.True(t, apperr.IsNotFound(err))
}

func TestCreateUserRejectsInvalidProfile(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.CreateUser(ctx, UserProfile{DeviceID: ""})
	assert.True(t, apperr.IsValidation(err))

	_, err = s.CreateUser(ctx, UserProfile{DeviceID: "d", CheckpointInterval: -2})
	assert.True(t, apperr.IsValidation(err))
}

func TestIncrementWatchedCount(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, UserProfile{DeviceID: "dev-1"})
	require.NoError(t, err)

	now := time.Now()
	for want := int64(1); want <= 4; want++ {
		got, err := s.IncrementWatchedCount(ctx, u.ID, now)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err = s.IncrementWatchedCount(ctx, "missing", now)
	assert.True(t, apperr.IsNotFound(err))

	after, err := s.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), after.WatchedCount)
	assert.False(t, after.LastActiveAt.IsZero())
}

func TestWatchEventsCountByContent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, videos, _ := seedCatalog(t, s)
	other := &Content{Title: "Other", Active: true}
	require.NoError(t, s.CreateContent(ctx, other))
	ov := &Video{ContentID: other.ID, ExternalID: "other000001", Active: true}
	require.NoError(t, s.CreateVideo(ctx, ov))

	u, err := s.CreateUser(ctx, UserProfile{DeviceID: "dev-1"})
	require.NoError(t, err)

	for _, vid := range []string{videos[0].ID, videos[0].ID, videos[1].ID, ov.ID} {
		require.NoError(t, s.InsertWatchEvent(ctx, &WatchEvent{UserID: u.ID, VideoID: vid, Completed: true}))
	}

	total, err := s.CountWatchEvents(ctx, u.ID, "")
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)

	scoped, err := s.CountWatchEvents(ctx, u.ID, videos[0].ContentID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), scoped)

	latest, err := s.FindWatchEvent(ctx, u.ID, videos[0].ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	require.NoError(t, s.RefreshWatchEvent(ctx, latest.ID, false, time.Now()))
	refreshed, err := s.FindWatchEvent(ctx, u.ID, videos[0].ID)
	require.NoError(t, err)
	assert.True(t, refreshed.Completed, "completion is sticky")

	partial := &WatchEvent{UserID: u.ID, VideoID: videos[1].ID}
	require.NoError(t, s.InsertWatchEvent(ctx, partial))
	require.NoError(t, s.RefreshWatchEvent(ctx, partial.ID, true, time.Now()))
	upgraded, err := s.FindWatchEvent(ctx, u.ID, videos[1].ID)
	require.NoError(t, err)
	assert.Equal(t, partial.ID, upgraded.ID)
	assert.True(t, upgraded.Completed)
}

func TestWatchEventRequiresExistingVideo(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, UserProfile{DeviceID: "dev-1"})
	require.NoError(t, err)

	err = s.InsertWatchEvent(ctx, &WatchEvent{UserID: u.ID, VideoID: "no-such-video"})
	assert.Error(t, err, "foreign key must reject unknown video")
}

func TestNextUnansweredQuestion(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ct, _, questions := seedCatalog(t, s)
	u, err := s.CreateUser(ctx, UserProfile{DeviceID: "dev-1"})
	require.NoError(t, err)

	next, err := s.NextUnansweredQuestion(ctx, u.ID, ct.ID)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, questions[0].ID, next.ID)

	require.NoError(t, s.InsertResponseEvent(ctx, &ResponseEvent{
		UserID: u.ID, QuestionID: questions[0].ID, Kind: AnswerText, Text: "one of two parts",
	}))

	next, err = s.NextUnansweredQuestion(ctx, u.ID, "")
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, questions[1].ID, next.ID)

	for _, q := range questions[1:] {
		require.NoError(t, s.InsertResponseEvent(ctx, &ResponseEvent{UserID: u.ID, QuestionID: q.ID, Kind: AnswerText}))
	}
	next, err = s.NextUnansweredQuestion(ctx, u.ID, ct.ID)
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestNextUnansweredQuestionSkipsInactiveContent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ct, _, _ := seedCatalog(t, s)
	u, err := s.CreateUser(ctx, UserProfile{DeviceID: "dev-1"})
	require.NoError(t, err)

	require.NoError(t, s.SetContentActive(ctx, ct.ID, false))
	next, err := s.NextUnansweredQuestion(ctx, u.ID, "")
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestNextQuestionOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	empty := &Content{Title: "Empty", Active: true}
	require.NoError(t, s.CreateContent(ctx, empty))
	n, err := s.NextQuestionOrder(ctx, empty.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	ct, _, _ := seedCatalog(t, s)
	n, err = s.NextQuestionOrder(ctx, ct.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestResponseEvaluationRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, videos, questions := seedCatalog(t, s)
	u, err := s.CreateUser(ctx, UserProfile{DeviceID: "dev-1"})
	require.NoError(t, err)

	r := &ResponseEvent{
		UserID: u.ID, QuestionID: questions[0].ID, VideoID: videos[0].ID,
		Kind: AnswerText, Text: "half is one of two equal parts",
		Evaluation: &Evaluation{
			Score:              0.75,
			Passed:             true,
			ConceptsIdentified: []string{"fraction"},
			ConceptsMissing:    []string{"equal parts"},
			Feedback:           "Good",
		},
	}
	require.NoError(t, s.InsertResponseEvent(ctx, r))

	got, err := s.GetResponse(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusEvaluated, got.Status)
	require.NotNil(t, got.Evaluation)
	assert.Equal(t, 0.75, got.Evaluation.Score)
	assert.True(t, got.Evaluation.Passed)
	assert.Equal(t, []string{"fraction"}, got.Evaluation.ConceptsIdentified)
	assert.Equal(t, []string{"equal parts"}, got.Evaluation.ConceptsMissing)
	assert.Equal(t, videos[0].ID, got.VideoID)

	err = s.AttachEvaluation(ctx, r.ID, Evaluation{Score: 0.1}, time.Now())
	assert.True(t, apperr.IsDuplicate(err), "attaching to an evaluated response: %v", err)
}

func TestPendingResponseLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, _, questions := seedCatalog(t, s)
	u, err := s.CreateUser(ctx, UserProfile{DeviceID: "dev-1"})
	require.NoError(t, err)

	r := &ResponseEvent{UserID: u.ID, QuestionID: questions[0].ID, Kind: AnswerAudio, AudioRef: "uploads/a.m4a"}
	require.NoError(t, s.InsertResponseEvent(ctx, r))
	assert.Equal(t, StatusPending, r.Status)

	pending, err := s.PendingResponses(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Nil(t, pending[0].Evaluation)

	require.NoError(t, s.AttachEvaluation(ctx, r.ID, Evaluation{Score: 0.9, Passed: true, Feedback: "ok"}, time.Now()))
	pending, err = s.PendingResponses(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	require.NoError(t, s.ReplaceResponseAnswer(ctx, r.ID, AnswerText, "new answer", "", time.Now()))
	got, err := s.GetResponse(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
	assert.Nil(t, got.Evaluation)
	assert.Equal(t, "new answer", got.Text)

	err = s.AttachEvaluation(ctx, "missing", Evaluation{}, time.Now())
	assert.True(t, apperr.IsNotFound(err))
}

func TestDeleteContentCascades(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ct, videos, questions := seedCatalog(t, s)
	u, err := s.CreateUser(ctx, UserProfile{DeviceID: "dev-1"})
	require.NoError(t, err)
	require.NoError(t, s.InsertWatchEvent(ctx, &WatchEvent{UserID: u.ID, VideoID: videos[0].ID}))
	require.NoError(t, s.InsertResponseEvent(ctx, &ResponseEvent{UserID: u.ID, QuestionID: questions[0].ID, Kind: AnswerText}))

	require.NoError(t, s.DeleteContent(ctx, ct.ID))

	_, err = s.GetVideo(ctx, videos[0].ID)
	assert.True(t, apperr.IsNotFound(err))
	n, err := s.CountWatchEvents(ctx, u.ID, "")
	require.NoError(t, err)
	assert.Zero(t, n)
	r, err := s.FindResponse(ctx, u.ID, questions[0].ID)
	require.NoError(t, err)
	assert.Nil(t, r)

	assert.True(t, apperr.IsNotFound(s.DeleteContent(ctx, ct.ID)))
}

func TestWithTxRollsBack(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(q Querier) error {
		if _, err := q.CreateUser(ctx, UserProfile{DeviceID: "dev-tx"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	u, err := s.FindUserByDeviceID(ctx, "dev-tx")
	require.NoError(t, err)
	assert.Nil(t, u, "user from rolled back transaction must not exist")

	err = s.WithTx(ctx, func(q Querier) error {
		_, err := q.CreateUser(ctx, UserProfile{DeviceID: "dev-tx"})
		return err
	})
	require.NoError(t, err)
	u, err = s.FindUserByDeviceID(ctx, "dev-tx")
	require.NoError(t, err)
	assert.NotNil(t, u)
}

func TestVideoMetadataAndViews(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, videos, _ := seedCatalog(t, s)
	require.NoError(t, s.IncrementVideoViews(ctx, videos[0].ID))
	require.NoError(t, s.IncrementVideoViews(ctx, videos[0].ID))
	require.NoError(t, s.UpdateVideoMetadata(ctx, videos[0].ID, "Halves", 95))

	v, err := s.GetVideo(ctx, videos[0].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v.ViewCount)
	assert.Equal(t, "Halves", v.Title)
	assert.Equal(t, 95, v.DurationSeconds)

	require.NoError(t, s.UpdateVideoMetadata(ctx, videos[0].ID, "", 0))
	v, err = s.GetVideo(ctx, videos[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Halves", v.Title, "empty title leaves stored value")
}

func TestCreateVideoRejectsNegativeInterval(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ct := &Content{Title: "C", Active: true}
	require.NoError(t, s.CreateContent(ctx, ct))
	err := s.CreateVideo(ctx, &Video{ContentID: ct.ID, ExternalID: "x", CheckpointInterval: -1})
	assert.True(t, apperr.IsValidation(err))

	err = s.CreateVideo(ctx, &Video{ContentID: "missing", ExternalID: "x"})
	assert.True(t, apperr.IsNotFound(err))
}
