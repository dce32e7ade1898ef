package router

import (
	"context"
	"errors"
	"net/http"
	"time"

	"attblink/internal/handlers"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// Setup builds the read-only results viewer.
func Setup(log *zap.Logger, results *handlers.ResultsHandler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(log))
	router.Use(SecureHeaders())

	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/results")
	})
	router.GET("/results", results.ShowChart)

	api := router.Group("/api")
	{
		api.GET("/trials", results.ListTrials)
		api.GET("/summary", results.Summary)
		api.GET("/sessions", results.ListSessions)
	}

	return router
}

// Serve runs handler on addr until ctx is done, then shuts down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler, log *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Results viewer listening on http://localhost" + addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
