// Package api exposes the engine over HTTP and WebSocket. Handlers are thin;
// all conversation logic lives in the chat engine and its collaborators.
package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campfireai/companion/internal/chat"
	"github.com/campfireai/companion/internal/types"
)

// ChatService runs conversation turns.
type ChatService interface {
	Send(ctx context.Context, c *types.Character, text string, onDelta func(string)) (*chat.TurnResult, error)
}

// MediaService handles gallery retries and deletion.
type MediaService interface {
	RetryImage(ctx context.Context, c *types.Character, jobID string, standalone bool) (*types.Media, error)
	DeleteMedia(ctx context.Context, c *types.Character, id int64) error
}

// SessionService resets per-character continuity.
type SessionService interface {
	Reset(ctx context.Context, c *types.Character) error
}

// StateStore is the persistence surface the handlers need.
type StateStore interface {
	State() *types.AppState
	ReplaceState(ctx context.Context, state *types.AppState) error
	UserProfile() *types.UserProfile
	SetUserProfile(ctx context.Context, profile *types.UserProfile) error
	Characters() []*types.Character
	CharacterByID(id string) *types.Character
	AddCharacter(ctx context.Context, c *types.Character) error
	DeleteCharacter(ctx context.Context, id string) error
	Save(ctx context.Context) error
}

// Server wires the HTTP surface.
type Server struct {
	store      StateStore
	chats      ChatService
	media      MediaService
	sessions   SessionService
	signingKey string
	hub        *hub
}

// NewServer returns a Server.
func NewServer(store StateStore, chats ChatService, mediaSvc MediaService, sessions SessionService, signingKey string) *Server {
	return &Server{
		store:      store,
		chats:      chats,
		media:      mediaSvc,
		sessions:   sessions,
		signingKey: signingKey,
		hub:        newHub(),
	}
}

// Router builds the gin router.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	api := r.Group("/api", authMiddleware(s.signingKey))
	{
		api.GET("/characters", s.listCharacters)
		api.POST("/characters", s.createCharacter)
		api.GET("/characters/:id", s.getCharacter)
		api.DELETE("/characters/:id", s.deleteCharacter)
		api.GET("/characters/:id/avatar", s.getAvatar)

		api.POST("/characters/:id/messages", s.sendMessage)
		api.POST("/characters/:id/session/reset", s.resetSession)

		api.GET("/characters/:id/media/:mediaID", s.getMedia)
		api.DELETE("/characters/:id/media/:mediaID", s.deleteMedia)
		api.POST("/characters/:id/retries/:jobID", s.retryImage)

		api.GET("/settings", s.getSettings)
		api.PUT("/settings", s.putSettings)

		api.GET("/export", s.exportState)
		api.POST("/import", s.importState)

		api.GET("/characters/:id/ws", s.serveWS)
	}
	return r
}

// NotifyIntimacy pushes an intimacy notice to the character's live
// connections. Wire it as the intimacy engine's notify callback.
func (s *Server) NotifyIntimacy(characterID string, payload any) {
	s.hub.broadcast(characterID, event{Type: "intimacy", Data: payload})
}

// NotifyPowerRevert pushes a power expiry event.
func (s *Server) NotifyPowerRevert(characterID string) {
	s.hub.broadcast(characterID, event{Type: "powerRevert", Data: gin.H{"characterId": characterID}})
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}
