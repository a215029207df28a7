package controller

import (
	"context"
	"ctchen222/tictactoe-match/internal/api/models"
	"ctchen222/tictactoe-match/internal/api/response"
	"ctchen222/tictactoe-match/internal/bot"
	"ctchen222/tictactoe-match/internal/game"
	"ctchen222/tictactoe-match/internal/session"
	"ctchen222/tictactoe-match/pkg/proto"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// SessionController exposes the session contract over HTTP.
type SessionController struct {
	sessions   *session.Manager
	tokens     TokenParser
	roundLimit int
	botDelay   time.Duration
}

// NewSessionController creates a SessionController. roundLimit and botDelay
// apply to requests that leave them unset. tokens may be nil.
func NewSessionController(sessions *session.Manager, tokens TokenParser, roundLimit int, botDelay time.Duration) *SessionController {
	return &SessionController{
		sessions:   sessions,
		tokens:     tokens,
		roundLimit: roundLimit,
		botDelay:   botDelay,
	}
}

// Create starts a match. A valid bearer token seats the logged-in user as X.
func (sc *SessionController) Create(c *gin.Context) {
	var req models.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	cfg := session.Config{
		Mode:        session.Mode(req.Mode),
		RoundLimit:  req.RoundLimit,
		PlayerXName: req.PlayerXName,
		PlayerOName: req.PlayerOName,
		BotMark:     game.PlayerMark(req.BotMark),
		BotDelay:    sc.botDelay,
	}
	if cfg.RoundLimit == 0 {
		cfg.RoundLimit = sc.roundLimit
	}
	if req.Difficulty != "" {
		difficulty, err := bot.ParseDifficulty(req.Difficulty)
		if err != nil {
			response.Error(c, err)
			return
		}
		cfg.Difficulty = difficulty
	}

	claims, err := bearerClaims(c, sc.tokens)
	if err != nil {
		response.Error(c, err)
		return
	}
	if claims != nil {
		cfg.PlayerXID = "user-" + claims.Subject
		if strings.TrimSpace(cfg.PlayerXName) == "" {
			cfg.PlayerXName = claims.Username
		}
	}

	s, err := sc.sessions.Create(c.Request.Context(), cfg)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.CreatedResponse(c, s.View())
}

// Get returns the current view of a session.
func (sc *SessionController) Get(c *gin.Context) {
	s, err := sc.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessResponse(c, s.View())
}

// Delete ends a session.
func (sc *SessionController) Delete(c *gin.Context) {
	if err := sc.sessions.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Move places the current mover's mark.
func (sc *SessionController) Move(c *gin.Context) {
	var req models.MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	sc.apply(c, func(s *session.Session, ctx context.Context) (proto.SessionView, error) {
		return s.RequestMove(ctx, *req.Index)
	})
}

// BotMove makes the computer move now instead of after its delay.
func (sc *SessionController) BotMove(c *gin.Context) {
	sc.apply(c, (*session.Session).RequestAutomatedMove)
}

// NextRound advances a decided round.
func (sc *SessionController) NextRound(c *gin.Context) {
	sc.apply(c, (*session.Session).StartRound)
}

// Restart starts the match over.
func (sc *SessionController) Restart(c *gin.Context) {
	sc.apply(c, (*session.Session).RestartMatch)
}

func (sc *SessionController) apply(c *gin.Context, op func(*session.Session, context.Context) (proto.SessionView, error)) {
	s, err := sc.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	view, err := op(s, c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessResponse(c, view)
}
