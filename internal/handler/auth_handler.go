package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/umt-ai/unibot/internal/pkg/errcode"
	"github.com/umt-ai/unibot/internal/pkg/response"
	"github.com/umt-ai/unibot/internal/service"
)

type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type signupRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	user, err := h.auth.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"username": user.Username})
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	user, err := h.auth.Signup(c.Request.Context(), req.Username, req.Password, req.Email, req.Name)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"username": user.Username})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	user, token, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"username": user.Username, "token": token})
}
