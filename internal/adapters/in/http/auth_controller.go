package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/suchimauz/docplanner-slots-gateway/internal/core/ports/out"
)

type AuthController struct {
	auth   *Authenticator
	logger out.LoggerPort
}

func NewAuthController(auth *Authenticator, logger out.LoggerPort) *AuthController {
	return &AuthController{
		auth:   auth,
		logger: logger,
	}
}

func (c *AuthController) RegisterRoutes(api *gin.RouterGroup, middlewares ...gin.HandlerFunc) {
	auth := api.Group("/auth", middlewares...)
	{
		auth.POST("/login", c.login)
	}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (c *AuthController) login(ctx *gin.Context) {
	var req LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("Username and password are required", err.Error()))
		return
	}

	if !c.auth.CheckCredentials(req.Username, req.Password) {
		c.logger.Warn("auth.login.failed", out.LogFields{
			"requestId": ctx.GetString(contextKeyRequestID),
			"username":  req.Username,
		})
		ctx.JSON(http.StatusUnauthorized, errorResponse("Invalid username or password"))
		return
	}

	token, expiresAt, err := c.auth.IssueToken(req.Username)
	if err != nil {
		c.logger.Error("auth.login.token_failed", out.LogFields{
			"requestId": ctx.GetString(contextKeyRequestID),
			"error":     err.Error(),
		})
		ctx.JSON(http.StatusInternalServerError, errorResponse("Could not issue token"))
		return
	}

	c.logger.Info("auth.login.success", out.LogFields{
		"requestId": ctx.GetString(contextKeyRequestID),
		"username":  req.Username,
	})

	ctx.JSON(http.StatusOK, LoginResponse{Token: token, ExpiresAt: expiresAt})
}
