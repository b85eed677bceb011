package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/feedbreak/feedbreak/internal/apperr"
	"github.com/feedbreak/feedbreak/internal/checkpoint"
	"github.com/feedbreak/feedbreak/internal/logger"
	"github.com/feedbreak/feedbreak/internal/store"
)

var (
	errInternal = errors.New("internal error")
	errTryAgain = errors.New("temporarily unavailable, please retry")
)

// Handler serves the /api/v1 routes.
type Handler struct {
	svc *checkpoint.Service
	log *logger.Logger
}

func NewHandler(svc *checkpoint.Service, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{svc: svc, log: log}
}

func (h *Handler) Health(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// POST /user
// body: { "device_id": "...", "name": "...", "age": 13, "interests": [...],
// "education_level": "...", "checkpoint_interval": 3 }
func (h *Handler) UpsertUser(c *gin.Context) {
	var req struct {
		DeviceID           string   `json:"device_id" binding:"required"`
		Name               string   `json:"name"`
		Age                int      `json:"age"`
		Interests          []string `json:"interests"`
		EducationLevel     string   `json:"education_level"`
		CheckpointInterval *int     `json:"checkpoint_interval"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBind(c, err)
		return
	}
	p := store.UserProfile{
		DeviceID:       strings.TrimSpace(req.DeviceID),
		Name:           req.Name,
		Age:            req.Age,
		Interests:      req.Interests,
		EducationLevel: req.EducationLevel,
	}
	if req.CheckpointInterval != nil {
		if *req.CheckpointInterval <= 0 {
			h.respondErr(c, apperr.Invalid("checkpoint_interval", "must be positive, got %d", *req.CheckpointInterval))
			return
		}
		p.CheckpointInterval = *req.CheckpointInterval
	}

	u, created, err := h.svc.UpsertUser(c.Request.Context(), p)
	if err != nil {
		h.respondErr(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, toUser(u))
}

// GET /user/:device_id
func (h *Handler) GetUser(c *gin.Context) {
	u, err := h.svc.GetUser(c.Request.Context(), c.Param("device_id"))
	if err != nil {
		h.respondErr(c, err)
		return
	}
	RespondOK(c, toUser(u))
}

// POST /progress
// body: { "device_id": "...", "video_id": "...", "completed": true }
func (h *Handler) RecordWatch(c *gin.Context) {
	var req struct {
		DeviceID  string `json:"device_id" binding:"required"`
		VideoID   string `json:"video_id" binding:"required"`
		Completed *bool  `json:"completed"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBind(c, err)
		return
	}
	completed := true
	if req.Completed != nil {
		completed = *req.Completed
	}
	res, err := h.svc.ReportWatch(c.Request.Context(), req.DeviceID, req.VideoID, completed)
	if err != nil {
		h.respondErr(c, err)
		return
	}
	RespondOK(c, toWatch(res))
}

// GET /progress/count?device_id=...&content_id=...
func (h *Handler) WatchCount(c *gin.Context) {
	deviceID, ok := requiredQuery(c, "device_id")
	if !ok {
		return
	}
	contentID := c.Query("content_id")
	n, err := h.svc.WatchCount(c.Request.Context(), deviceID, contentID)
	if err != nil {
		h.respondErr(c, err)
		return
	}
	RespondOK(c, gin.H{"device_id": deviceID, "content_id": contentID, "watched_count": n})
}

// GET /questions/next?device_id=...&content_id=...
func (h *Handler) NextQuestion(c *gin.Context) {
	deviceID, ok := requiredQuery(c, "device_id")
	if !ok {
		return
	}
	q, err := h.svc.NextQuestion(c.Request.Context(), deviceID, c.Query("content_id"))
	if err != nil {
		h.respondErr(c, err)
		return
	}
	RespondOK(c, gin.H{"question": toQuestion(q), "all_answered": q == nil})
}

// GET /questions?device_id=...&video_id=...
func (h *Handler) GenerateQuestion(c *gin.Context) {
	deviceID, ok := requiredQuery(c, "device_id")
	if !ok {
		return
	}
	videoID, ok := requiredQuery(c, "video_id")
	if !ok {
		return
	}
	out, err := h.svc.GenerateQuestion(c.Request.Context(), deviceID, videoID)
	if err != nil {
		h.respondErr(c, err)
		return
	}
	RespondOK(c, gin.H{"question": toQuestion(out.Question), "fallback": out.Fallback})
}

// POST /answer
// body: { "device_id": "...", "question_id": "...", "video_id": "...", "answer_text": "..." }
func (h *Handler) SubmitAnswer(c *gin.Context) {
	var req struct {
		DeviceID   string `json:"device_id" binding:"required"`
		QuestionID string `json:"question_id" binding:"required"`
		VideoID    string `json:"video_id"`
		AnswerText string `json:"answer_text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBind(c, err)
		return
	}
	sub, err := h.svc.SubmitTextAnswer(c.Request.Context(), checkpoint.AnswerInput{
		DeviceID:   req.DeviceID,
		QuestionID: req.QuestionID,
		VideoID:    req.VideoID,
	}, req.AnswerText)
	if err != nil {
		h.respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, toResponse(sub.Response, sub.Degraded))
}

// POST /answer/audio
// body: { "device_id": "...", "question_id": "...", "video_id": "...", "audio_ref": "..." }
func (h *Handler) SubmitAudioAnswer(c *gin.Context) {
	var req struct {
		DeviceID   string `json:"device_id" binding:"required"`
		QuestionID string `json:"question_id" binding:"required"`
		VideoID    string `json:"video_id"`
		AudioRef   string `json:"audio_ref" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBind(c, err)
		return
	}
	sub, err := h.svc.SubmitAudioAnswer(c.Request.Context(), checkpoint.AnswerInput{
		DeviceID:   req.DeviceID,
		QuestionID: req.QuestionID,
		VideoID:    req.VideoID,
	}, req.AudioRef)
	if err != nil {
		h.respondErr(c, err)
		return
	}
	c.JSON(http.StatusAccepted, toResponse(sub.Response, false))
}

// PUT /answer/:id
// body: { "device_id": "...", "answer_text": "..." }
func (h *Handler) CorrectAnswer(c *gin.Context) {
	var req struct {
		DeviceID   string `json:"device_id" binding:"required"`
		AnswerText string `json:"answer_text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBind(c, err)
		return
	}
	sub, err := h.svc.CorrectAnswer(c.Request.Context(), req.DeviceID, c.Param("id"), req.AnswerText)
	if err != nil {
		h.respondErr(c, err)
		return
	}
	RespondOK(c, toResponse(sub.Response, sub.Degraded))
}

// GET /videos/:id
func (h *Handler) GetVideo(c *gin.Context) {
	view, err := h.svc.ResolveVideo(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondErr(c, err)
		return
	}
	v := view.Video
	RespondOK(c, videoDTO{
		ID:                 v.ID,
		ContentID:          v.ContentID,
		Title:              v.Title,
		Description:        v.Description,
		DurationSeconds:    v.DurationSeconds,
		CheckpointInterval: v.CheckpointInterval,
		ExpectedConcepts:   nonNil(v.ExpectedConcepts),
		ViewCount:          v.ViewCount,
		Media:              view.Media,
		Static:             view.Static,
	})
}

func requiredQuery(c *gin.Context, key string) (string, bool) {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		RespondError(c, http.StatusBadRequest, "invalid_request", apperr.Invalid(key, "query parameter is required"))
		return "", false
	}
	return v, true
}
