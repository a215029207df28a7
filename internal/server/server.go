package server

import (
	"ctchen222/tictactoe-match/internal/api/controller"
	"ctchen222/tictactoe-match/internal/session"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("server")

// Server wires the HTTP API and the WebSocket endpoint into one gin engine.
type Server struct {
	engine   *gin.Engine
	sessions *session.Manager
	upgrader websocket.Upgrader
}

func NewServer(sessions *session.Manager, userController *controller.UserController, sessionController *controller.SessionController) *Server {
	s := &Server{
		engine:   gin.New(),
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	s.engine.Use(gin.Recovery(), requestLogger())
	s.registerRoutes(userController, sessionController)
	return s
}

// Engine returns the http.Handler to serve.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerRoutes(uc *controller.UserController, sc *controller.SessionController) {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": s.sessions.Len()})
	})

	api := s.engine.Group("/api")

	users := api.Group("/users")
	users.POST("/register", uc.Register)
	users.POST("/login", uc.Login)
	users.POST("/guest", uc.GuestLogin)
	users.GET("/me", uc.Me)

	sessions := api.Group("/sessions")
	sessions.POST("", sc.Create)
	sessions.GET("/:id", sc.Get)
	sessions.DELETE("/:id", sc.Delete)
	sessions.POST("/:id/moves", sc.Move)
	sessions.POST("/:id/bot-move", sc.BotMove)
	sessions.POST("/:id/rounds", sc.NextRound)
	sessions.POST("/:id/restart", sc.Restart)

	s.engine.GET("/ws/sessions/:id", s.handleWebSocket)
}

// requestLogger logs one line per request and traces it.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), c.Request.Method+" "+c.FullPath(), trace.WithAttributes(
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", c.FullPath()),
		))
		defer span.End()
		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.status_code", status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
			for _, err := range c.Errors {
				span.RecordError(err.Err)
			}
		}

		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		slog.Log(ctx, level, "HTTP request",
			"http.method", c.Request.Method,
			"http.path", c.Request.URL.Path,
			"http.status_code", status,
			"duration", time.Since(start),
		)
	}
}
