package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Sternrassler/beekeeper-client/pkg/client"
	"github.com/Sternrassler/beekeeper-client/pkg/metrics"
	"github.com/Sternrassler/beekeeper-client/pkg/settings"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var proxyRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "blog_proxy_requests_total",
	Help: "Total proxied requests by route and response status",
}, []string{"route", "status"})

// proxiedHeaders are copied from the backend response to the proxy client.
var proxiedHeaders = []string{
	"Content-Type",
	"Cache-Control",
	"ETag",
	"Last-Modified",
	"Expires",
	"X-Cache",
	"X-RateLimit-Remaining",
	"X-RateLimit-Reset",
	client.RequestIDHeader,
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the caching proxy in front of the blog API",
		Long: `Serve the blog API through the client's rate limiting, retry and
Redis cache layers.

Routes:
  GET    /health                   liveness and rate limit state
  GET    /metrics                  Prometheus metrics
  GET    /settings                 current site settings
  GET    /api/*path                proxied read
  POST   /api/articles/:id/like    like an article
  DELETE /api/articles/:id/like    unlike an article`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			c, release, err := opts.newClient(ctx)
			if err != nil {
				return err
			}
			defer release()

			svc := settings.NewService(c, settings.Config{RefreshInterval: opts.cfg.Settings.RefreshInterval})
			if err := svc.Start(ctx); err != nil {
				opts.logger.Warn().Err(err).Msg("Initial settings load failed, serving defaults")
			}
			defer svc.Close()

			if addr == "" {
				addr = opts.cfg.Server.Addr
			}
			srv := &http.Server{
				Addr:              addr,
				Handler:           newRouter(c, svc, opts.cfg.API.Timeout, opts.logger),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				opts.logger.Info().
					Str("addr", addr).
					Str("backend", opts.cfg.API.BaseURL).
					Str("user_agent", opts.cfg.API.UserAgent).
					Msg("Starting blog proxy server")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			opts.logger.Info().Msg("Shutting down blog proxy server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.cfg.Server.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	return cmd
}

// newRouter builds the proxy routes. timeout bounds each backend call.
func newRouter(c *client.Client, svc *settings.Service, timeout time.Duration, logger zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	r.GET("/health", healthHandler(c, svc))
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/settings", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, svc.Current())
	})
	r.GET("/api/*path", proxyHandler(c, timeout))
	r.POST("/api/articles/:id/like", likeHandler(c, true, timeout))
	r.DELETE("/api/articles/:id/like", likeHandler(c, false, timeout))

	return r
}

func requestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		logger.Debug().
			Str("method", ctx.Request.Method).
			Str("path", ctx.Request.URL.Path).
			Int("status", ctx.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("Proxy request")
	}
}

func healthHandler(c *client.Client, svc *settings.Service) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		body := gin.H{
			"status":     "ok",
			"site_title": svc.Current().SiteTitle,
		}

		state, err := c.RateLimiter().GetState(ctx.Request.Context())
		if err != nil {
			body["status"] = "degraded"
			body["error"] = err.Error()
			ctx.JSON(http.StatusServiceUnavailable, body)
			return
		}
		body["rate_limit"] = gin.H{
			"remaining": state.Remaining,
			"reset_at":  state.ResetAt,
			"healthy":   state.IsHealthy,
		}
		ctx.JSON(http.StatusOK, body)
	}
}

func proxyHandler(c *client.Client, timeout time.Duration) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		route := ctx.FullPath()

		reqCtx, cancel := context.WithTimeout(ctx.Request.Context(), timeout)
		defer cancel()

		resp, err := c.Get(reqCtx, "/api"+ctx.Param("path"), ctx.Request.URL.Query())
		if err != nil {
			status := errorStatus(err)
			proxyRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
			ctx.JSON(status, gin.H{"error": err.Error()})
			return
		}
		defer resp.Body.Close()

		extra := make(map[string]string, len(proxiedHeaders))
		for _, h := range proxiedHeaders {
			if v := resp.Header.Get(h); v != "" && h != "Content-Type" {
				extra[h] = v
			}
		}

		proxyRequestsTotal.WithLabelValues(route, strconv.Itoa(resp.StatusCode)).Inc()
		ctx.DataFromReader(resp.StatusCode, resp.ContentLength, resp.Header.Get("Content-Type"), resp.Body, extra)
	}
}

func likeHandler(c *client.Client, liked bool, timeout time.Duration) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		route := ctx.FullPath()

		id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
		if err != nil || id <= 0 {
			proxyRequestsTotal.WithLabelValues(route, "400").Inc()
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid article id"})
			return
		}

		reqCtx, cancel := context.WithTimeout(ctx.Request.Context(), timeout)
		defer cancel()

		status, err := c.LikeArticle(reqCtx, id, liked)
		if err != nil {
			code := errorStatus(err)
			proxyRequestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
			ctx.JSON(code, gin.H{"error": err.Error()})
			return
		}

		proxyRequestsTotal.WithLabelValues(route, "200").Inc()
		ctx.JSON(http.StatusOK, status)
	}
}

// errorStatus maps a client error to the status the proxy answers with.
func errorStatus(err error) int {
	var apiErr *client.APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr.StatusCode
	case errors.Is(err, client.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
