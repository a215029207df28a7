package response

import (
	"ctchen222/tictactoe-match/internal/api/service"
	"ctchen222/tictactoe-match/internal/bot"
	"ctchen222/tictactoe-match/internal/game"
	"ctchen222/tictactoe-match/internal/match"
	"ctchen222/tictactoe-match/internal/session"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// StatusFor maps a domain error to the HTTP status it is reported with.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrClosed):
		return http.StatusNotFound
	case errors.Is(err, game.ErrInvalidMove):
		return http.StatusUnprocessableEntity
	case errors.Is(err, match.ErrInvalidTransition),
		errors.Is(err, game.ErrNoLegalMove),
		errors.Is(err, session.ErrNoOpponent),
		errors.Is(err, session.ErrNotBotTurn),
		errors.Is(err, service.ErrUsernameTaken):
		return http.StatusConflict
	case errors.Is(err, session.ErrInvalidConfig),
		errors.Is(err, match.ErrInvalidRoundLimit),
		errors.Is(err, bot.ErrUnknownDifficulty):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrInvalidToken):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// Error writes err in the error envelope with the status from StatusFor.
// Internal errors are not echoed to the client.
func Error(c *gin.Context, err error) {
	code := StatusFor(err)
	message := err.Error()
	if code == http.StatusInternalServerError {
		_ = c.Error(err)
		message = http.StatusText(code)
	}
	ErrorResponse(c, code, message)
}
