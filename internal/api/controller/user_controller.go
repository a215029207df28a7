package controller

import (
	"ctchen222/tictactoe-match/internal/api/models"
	"ctchen222/tictactoe-match/internal/api/response"
	"ctchen222/tictactoe-match/internal/api/service"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// UserController serves player profiles and login.
type UserController struct {
	userService service.UserService
}

func NewUserController(userService service.UserService) *UserController {
	return &UserController{userService: userService}
}

// Register creates a profile and answers 201 with it.
func (uc *UserController) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	profile, err := uc.userService.Register(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}

	slog.InfoContext(c.Request.Context(), "User registered", "user.id", profile.ID, "user.name", profile.Username)
	response.CreatedResponse(c, profile)
}

func (uc *UserController) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	login, err := uc.userService.Login(c.Request.Context(), &req)
	if err != nil {
		slog.InfoContext(c.Request.Context(), "Login rejected", "user.name", req.Username)
		response.Error(c, err)
		return
	}
	response.SuccessResponse(c, login)
}

// GuestLogin hands out a player ID for someone without a profile.
func (uc *UserController) GuestLogin(c *gin.Context) {
	playerID, err := uc.userService.GuestLogin(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessResponse(c, models.GuestResponse{PlayerID: playerID})
}

// Me returns the profile the bearer token belongs to.
func (uc *UserController) Me(c *gin.Context) {
	claims, err := bearerClaims(c, uc.userService)
	if err != nil {
		response.Error(c, err)
		return
	}
	if claims == nil {
		response.Error(c, fmt.Errorf("%w: missing bearer token", service.ErrInvalidToken))
		return
	}

	profile, err := uc.userService.Profile(c.Request.Context(), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessResponse(c, profile)
}
