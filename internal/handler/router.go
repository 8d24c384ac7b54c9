package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/umt-ai/unibot/internal/middleware"
)

type RouterDeps struct {
	Auth      *AuthHandler
	Chat      *ChatHandler
	Documents *DocumentHandler
	JWTSecret []byte
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.POST("/auth/register", deps.Auth.Register)
	api.POST("/auth/signup", deps.Auth.Signup)
	api.POST("/auth/login", deps.Auth.Login)

	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))
	authGroup.POST("/documents", deps.Documents.Upload)
	authGroup.POST("/chat/sessions", deps.Chat.StartSession)
	authGroup.POST("/chat/sessions/:id/end", deps.Chat.EndSession)
	authGroup.DELETE("/chat/sessions", deps.Chat.DeleteByTopic)
	authGroup.POST("/chat/messages", deps.Chat.SendMessage)
	authGroup.GET("/chat/history", deps.Chat.History)
}
