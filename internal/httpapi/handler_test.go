package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedbreak/feedbreak/internal/checkpoint"
	"github.com/feedbreak/feedbreak/internal/progress"
	"github.com/feedbreak/feedbreak/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testAPI struct {
	engine    *gin.Engine
	videos    []*store.Video
	questions []*store.Question
	contentID string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	api := &testAPI{}
	content := &store.Content{Title: "Water cycle", Audience: "primary", Difficulty: 1, Active: true}
	require.NoError(t, s.CreateContent(ctx, content))
	api.contentID = content.ID
	for i, ext := range []string{"dQw4w9WgXcQ", "9bZkp7q19f0"} {
		v := &store.Video{ContentID: content.ID, ExternalID: ext, Title: "Clip", OrderIndex: i, ExpectedConcepts: []string{"evaporation", "rain"}, Active: true}
		require.NoError(t, s.CreateVideo(ctx, v))
		api.videos = append(api.videos, v)
	}
	q := &store.Question{ContentID: content.ID, Prompt: "Where does rain come from?", ExpectedConcepts: []string{"evaporation", "rain"}, Active: true}
	require.NoError(t, s.CreateQuestion(ctx, q))
	api.questions = append(api.questions, q)

	tr, err := progress.NewTracker(s, progress.DefaultTrackerConfig())
	require.NoError(t, err)
	svc, err := checkpoint.New(s, tr, checkpoint.Options{})
	require.NoError(t, err)

	api.engine = NewRouter(RouterConfig{Handler: NewHandler(svc, nil)})
	return api
}

func (a *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var env ErrorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env.Error.Code
}

func TestHealth(t *testing.T) {
	a := newTestAPI(t)
	w := a.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestUserEndpoints(t *testing.T) {
	a := newTestAPI(t)

	w := a.do(t, http.MethodPost, "/api/v1/user", map[string]any{"device_id": "dev-1", "name": "Lia", "age": 9})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "dev-1", body["device_id"])
	assert.EqualValues(t, 3, body["checkpoint_interval"])
	assert.Equal(t, "accruing", body["checkpoint_state"])
	assert.Equal(t, []any{}, body["interests"])

	w = a.do(t, http.MethodPost, "/api/v1/user", map[string]any{"device_id": "dev-1", "name": "Lia", "checkpoint_interval": 2})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 2, decode(t, w)["checkpoint_interval"])

	w = a.do(t, http.MethodPost, "/api/v1/user", map[string]any{"device_id": "dev-1", "checkpoint_interval": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_request", errorCode(t, w))

	w = a.do(t, http.MethodPost, "/api/v1/user", map[string]any{"name": "nobody"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(t, http.MethodGet, "/api/v1/user/dev-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Lia", decode(t, w)["name"])

	w = a.do(t, http.MethodGet, "/api/v1/user/ghost", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", errorCode(t, w))
}

func TestProgressAndCheckpointFlow(t *testing.T) {
	a := newTestAPI(t)
	a.do(t, http.MethodPost, "/api/v1/user", map[string]any{"device_id": "dev", "checkpoint_interval": 2})

	w := a.do(t, http.MethodPost, "/api/v1/progress", map[string]any{"device_id": "dev", "video_id": a.videos[0].ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	first := decode(t, w)
	assert.EqualValues(t, 1, first["watched_count"])
	assert.Equal(t, false, first["should_trigger_checkpoint"])
	assert.Nil(t, first["question"])

	w = a.do(t, http.MethodPost, "/api/v1/progress", map[string]any{"device_id": "dev", "video_id": a.videos[1].ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	second := decode(t, w)
	assert.EqualValues(t, 2, second["watched_count"])
	assert.Equal(t, true, second["should_trigger_checkpoint"])
	assert.Equal(t, "checkpoint_due", second["checkpoint_state"])
	require.NotNil(t, second["question"])

	w = a.do(t, http.MethodGet, "/api/v1/progress/count?device_id=dev", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, decode(t, w)["watched_count"])

	w = a.do(t, http.MethodGet, "/api/v1/questions/next?device_id=dev&content_id="+a.contentID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	next := decode(t, w)
	assert.Equal(t, false, next["all_answered"])
	q := next["question"].(map[string]any)
	assert.Equal(t, a.questions[0].ID, q["id"])

	w = a.do(t, http.MethodPost, "/api/v1/answer", map[string]any{
		"device_id":   "dev",
		"question_id": a.questions[0].ID,
		"video_id":    a.videos[1].ID,
		"answer_text": "Evaporation lifts water and it falls back as rain.",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := decode(t, w)
	assert.Equal(t, "evaluated", resp["status"])
	ev := resp["evaluation"].(map[string]any)
	assert.EqualValues(t, 1, ev["quality_score"])
	assert.Equal(t, true, ev["passed"])

	w = a.do(t, http.MethodPost, "/api/v1/answer", map[string]any{
		"device_id":   "dev",
		"question_id": a.questions[0].ID,
		"answer_text": "again",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "duplicate", errorCode(t, w))

	w = a.do(t, http.MethodGet, "/api/v1/questions/next?device_id=dev&content_id="+a.contentID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	done := decode(t, w)
	assert.Equal(t, true, done["all_answered"])
	assert.Nil(t, done["question"])
}

func TestProgressUnknownUser(t *testing.T) {
	a := newTestAPI(t)
	w := a.do(t, http.MethodPost, "/api/v1/progress", map[string]any{"device_id": "ghost", "video_id": a.videos[0].ID})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.do(t, http.MethodGet, "/api/v1/progress/count", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAudioAnswerThenCorrection(t *testing.T) {
	a := newTestAPI(t)
	a.do(t, http.MethodPost, "/api/v1/user", map[string]any{"device_id": "dev"})

	w := a.do(t, http.MethodPost, "/api/v1/answer/audio", map[string]any{
		"device_id":   "dev",
		"question_id": a.questions[0].ID,
		"audio_ref":   "s3://bucket/a.m4a",
	})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	audio := decode(t, w)
	assert.Equal(t, "pending", audio["status"])
	assert.Nil(t, audio["evaluation"])
	id := audio["id"].(string)

	w = a.do(t, http.MethodPut, "/api/v1/answer/"+id, map[string]any{"device_id": "dev", "answer_text": "rain"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	fixed := decode(t, w)
	assert.Equal(t, "evaluated", fixed["status"])
	assert.Equal(t, "text", fixed["answer_type"])
	assert.EqualValues(t, 0.5, fixed["evaluation"].(map[string]any)["quality_score"])

	w = a.do(t, http.MethodPut, "/api/v1/answer/missing", map[string]any{"device_id": "dev", "answer_text": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGenerateQuestionFallsBack(t *testing.T) {
	a := newTestAPI(t)
	a.do(t, http.MethodPost, "/api/v1/user", map[string]any{"device_id": "dev"})

	w := a.do(t, http.MethodGet, "/api/v1/questions?device_id=dev&video_id="+a.videos[0].ID, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, true, body["fallback"])
	q := body["question"].(map[string]any)
	assert.Equal(t, "fallback", q["generated_by"])

	w = a.do(t, http.MethodGet, "/api/v1/questions?device_id=dev", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetVideoStaticMedia(t *testing.T) {
	a := newTestAPI(t)
	w := a.do(t, http.MethodGet, "/api/v1/videos/"+a.videos[0].ID, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, true, body["static_media"])
	m := body["media"].(map[string]any)
	assert.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", m["playback_url"])

	w = a.do(t, http.MethodGet, "/api/v1/videos/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatusFor(t *testing.T) {
	status, code := statusFor(assert.AnError)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal", code)
}
