package controller

import (
	"ctchen222/tictactoe-match/internal/api/service"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
)

// TokenParser validates bearer tokens.
type TokenParser interface {
	ParseToken(tokenString string) (*service.Claims, error)
}

// bearerClaims returns the claims of the request's bearer token, or nil when
// the request carries none.
func bearerClaims(c *gin.Context, tokens TokenParser) (*service.Claims, error) {
	header := c.GetHeader("Authorization")
	if header == "" || tokens == nil {
		return nil, nil
	}
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return nil, fmt.Errorf("%w: expected a bearer token", service.ErrInvalidToken)
	}
	return tokens.ParseToken(strings.TrimSpace(raw))
}
