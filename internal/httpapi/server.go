// Package httpapi serves the REST surface and mounts the websocket endpoint.
package httpapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sujalkunwar22/backend/internal/appointment"
	"github.com/sujalkunwar22/backend/internal/auth"
	"github.com/sujalkunwar22/backend/internal/chat"
	"github.com/sujalkunwar22/backend/internal/document"
	"github.com/sujalkunwar22/backend/internal/lawyer"
	"github.com/sujalkunwar22/backend/internal/notify"
	"github.com/sujalkunwar22/backend/internal/review"
	"gorm.io/gorm"
)

// shutdownTimeout bounds graceful shutdown once ctx is cancelled.
const shutdownTimeout = 10 * time.Second

// Deps are the services behind the routes.
type Deps struct {
	DB            *gorm.DB
	Issuer        *auth.Issuer
	Appointments  *appointment.Service
	Chat          *chat.Relay
	Notifications *notify.Sink
	Documents     *document.Service
	Reviews       *review.Service
	Lawyers       *lawyer.Service
	// Socket serves GET /ws. Nil leaves the route unregistered.
	Socket     http.Handler
	CORSOrigin string
	// Debug adds a per-request access log.
	Debug bool
}

func (d Deps) validate() error {
	switch {
	case d.DB == nil:
		return fmt.Errorf("httpapi: db is required")
	case d.Issuer == nil:
		return fmt.Errorf("httpapi: token issuer is required")
	case d.Appointments == nil:
		return fmt.Errorf("httpapi: appointment service is required")
	case d.Chat == nil:
		return fmt.Errorf("httpapi: chat relay is required")
	case d.Notifications == nil:
		return fmt.Errorf("httpapi: notification sink is required")
	case d.Documents == nil:
		return fmt.Errorf("httpapi: document service is required")
	case d.Reviews == nil:
		return fmt.Errorf("httpapi: review service is required")
	case d.Lawyers == nil:
		return fmt.Errorf("httpapi: lawyer service is required")
	}
	return nil
}

// StartOpts holds configuration for the API server.
type StartOpts struct {
	Deps
	Addr string
	Out  io.Writer
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(d Deps) (*gin.Engine, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), cors(d.CORSOrigin))
	if d.Debug {
		router.Use(gin.Logger())
	}
	registerRoutes(router, d)
	return router, nil
}

// Start launches the API server. It blocks until ctx is cancelled, then
// shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	router, err := NewRouter(opts.Deps)
	if err != nil {
		return err
	}
	if opts.Addr == "" {
		opts.Addr = ":5000"
	}
	srv := &http.Server{
		Addr:              opts.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		srv.Shutdown(sctx)
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "API listening on %s\n", opts.Addr)
	}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("httpapi: %w", err)
	}
	return nil
}

// cors answers preflight requests and sets the allow headers for origin.
func cors(origin string) gin.HandlerFunc {
	if origin == "" {
		origin = "*"
	}
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if origin != "*" {
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
