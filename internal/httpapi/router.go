package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/feedbreak/feedbreak/internal/logger"
)

type RouterConfig struct {
	Handler     *Handler
	Logger      *logger.Logger
	CORSOrigins []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(cfg.Logger))
	r.Use(CORS(cfg.CORSOrigins))

	h := cfg.Handler
	r.GET("/health", h.Health)

	api := r.Group("/api/v1")
	{
		api.POST("/user", h.UpsertUser)
		api.GET("/user/:device_id", h.GetUser)

		api.POST("/progress", h.RecordWatch)
		api.GET("/progress/count", h.WatchCount)

		api.GET("/questions/next", h.NextQuestion)
		api.GET("/questions", h.GenerateQuestion)

		api.POST("/answer", h.SubmitAnswer)
		api.POST("/answer/audio", h.SubmitAudioAnswer)
		api.PUT("/answer/:id", h.CorrectAnswer)

		api.GET("/videos/:id", h.GetVideo)
	}
	return r
}

type Server struct {
	Engine *gin.Engine
	srv    *http.Server
}

func NewServer(cfg RouterConfig) *Server {
	return &Server{Engine: NewRouter(cfg)}
}

// Run serves on address until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context, address string) error {
	s.srv = &http.Server{
		Addr:              address,
		Handler:           s.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}
