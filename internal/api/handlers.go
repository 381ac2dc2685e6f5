package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campfireai/companion/internal/chat"
	"github.com/campfireai/companion/internal/export"
	"github.com/campfireai/companion/internal/types"
)

// characterSummary is the list/detail shape without binary payloads. Avatar
// and media bytes are fetched through their own endpoints.
type characterSummary struct {
	ID              string                 `json:"id"`
	Profile         types.CharacterProfile `json:"profile"`
	IntimacyLevel   float64                `json:"intimacyLevel"`
	MessageCount    int                    `json:"messageCount"`
	MediaCount      int                    `json:"mediaCount"`
	NeedsRefinement bool                   `json:"needsRefinement,omitempty"`
	CreatedAt       time.Time              `json:"createdAt"`
}

func summarize(c *types.Character) characterSummary {
	return characterSummary{
		ID:              c.ID,
		Profile:         c.Profile,
		IntimacyLevel:   c.IntimacyLevel,
		MessageCount:    len(c.ChatHistory),
		MediaCount:      len(c.Media),
		NeedsRefinement: c.NeedsRefinement,
		CreatedAt:       c.CreatedAt,
	}
}

func (s *Server) listCharacters(c *gin.Context) {
	characters := s.store.Characters()
	out := make([]characterSummary, 0, len(characters))
	for _, ch := range characters {
		out = append(out, summarize(ch))
	}
	c.JSON(http.StatusOK, out)
}

type createCharacterRequest struct {
	Profile      types.CharacterProfile `json:"profile"`
	AvatarData   []byte                 `json:"avatarData,omitempty"`
	AvatarMIME   string                 `json:"avatarMime,omitempty"`
	AvatarPrompt string                 `json:"avatarPrompt,omitempty"`
}

func (s *Server) createCharacter(c *gin.Context) {
	var req createCharacterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	character := &types.Character{
		Profile:      req.Profile,
		AvatarData:   req.AvatarData,
		AvatarMIME:   req.AvatarMIME,
		AvatarPrompt: req.AvatarPrompt,
	}
	types.MigrateCharacter(character)
	if err := s.store.AddCharacter(c.Request.Context(), character); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, summarize(character))
}

// lookupCharacter resolves the :id parameter or writes a 404.
func (s *Server) lookupCharacter(c *gin.Context) *types.Character {
	character := s.store.CharacterByID(c.Param("id"))
	if character == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "character not found"})
		return nil
	}
	return character
}

func (s *Server) getCharacter(c *gin.Context) {
	character := s.lookupCharacter(c)
	if character == nil {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"character":   summarize(character),
		"chatHistory": character.ChatHistory,
	})
}

func (s *Server) deleteCharacter(c *gin.Context) {
	if err := s.store.DeleteCharacter(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) getAvatar(c *gin.Context) {
	character := s.lookupCharacter(c)
	if character == nil {
		return
	}
	if len(character.AvatarData) == 0 {
		c.Status(http.StatusNotFound)
		return
	}
	mime := character.AvatarMIME
	if mime == "" {
		mime = "image/png"
	}
	c.Data(http.StatusOK, mime, character.AvatarData)
}

type sendMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

func (s *Server) sendMessage(c *gin.Context) {
	character := s.lookupCharacter(c)
	if character == nil {
		return
	}
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.chats.Send(c.Request.Context(), character, req.Text, func(delta string) {
		s.hub.broadcast(character.ID, event{Type: "delta", Data: delta})
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, chat.ErrBusy) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	s.hub.broadcast(character.ID, event{Type: "turn", Data: turnPayload(result)})
	c.JSON(http.StatusOK, turnPayload(result))
}

// turnPayload strips the heavyweight binary fields out of the turn for the
// JSON surface; clients fetch media through the gallery endpoints.
func turnPayload(result *chat.TurnResult) gin.H {
	messages := make([]gin.H, 0, len(result.Messages))
	for _, m := range result.Messages {
		entry := gin.H{
			"sender":    m.Sender,
			"content":   m.Content,
			"type":      m.Type,
			"timestamp": m.Timestamp,
		}
		if m.AudioDuration > 0 {
			entry["audioDuration"] = m.AudioDuration
		}
		messages = append(messages, entry)
	}

	payload := gin.H{"reply": result.Reply, "messages": messages}
	if result.Power != nil {
		payload["power"] = result.Power
	}
	if result.ImageOffer != nil {
		payload["imageOffer"] = gin.H{
			"jobId":   result.ImageOffer.JobID,
			"refused": result.ImageOffer.Refused,
			"reason":  result.ImageOffer.Reason,
			"mediaId": result.ImageOffer.Media.ID,
		}
	}
	if len(result.Gallery) > 0 {
		ids := make([]int64, 0, len(result.Gallery))
		for _, m := range result.Gallery {
			ids = append(ids, m.ID)
		}
		payload["gallery"] = ids
	}
	return payload
}

func (s *Server) resetSession(c *gin.Context) {
	character := s.lookupCharacter(c)
	if character == nil {
		return
	}
	if err := s.sessions.Reset(c.Request.Context(), character); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) getMedia(c *gin.Context) {
	character := s.lookupCharacter(c)
	if character == nil {
		return
	}
	id, err := strconv.ParseInt(c.Param("mediaID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid media id"})
		return
	}
	m := character.MediaByID(id)
	if m == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "media not found"})
		return
	}
	if len(m.Data) == 0 {
		// Placeholder from a failed generation; nothing to serve yet.
		c.JSON(http.StatusAccepted, gin.H{"id": m.ID, "pending": true, "prompt": m.Prompt})
		return
	}
	c.Data(http.StatusOK, m.MIMEType, m.Data)
}

func (s *Server) deleteMedia(c *gin.Context) {
	character := s.lookupCharacter(c)
	if character == nil {
		return
	}
	id, err := strconv.ParseInt(c.Param("mediaID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid media id"})
		return
	}
	if err := s.media.DeleteMedia(c.Request.Context(), character, id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

type retryRequest struct {
	Standalone bool `json:"standalone"`
}

func (s *Server) retryImage(c *gin.Context) {
	character := s.lookupCharacter(c)
	if character == nil {
		return
	}
	var req retryRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	m, err := s.media.RetryImage(c.Request.Context(), character, c.Param("jobID"), req.Standalone)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": m.ID, "mimeType": m.MIMEType})
}

func (s *Server) getSettings(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.UserProfile())
}

func (s *Server) putSettings(c *gin.Context) {
	var profile types.UserProfile
	if err := c.ShouldBindJSON(&profile); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.store.SetUserProfile(c.Request.Context(), &profile); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, &profile)
}

func (s *Server) exportState(c *gin.Context) {
	data, err := export.Archive(s.store.State())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="companion-export.zip"`)
	c.Data(http.StatusOK, "application/zip", data)
}

func (s *Server) importState(c *gin.Context) {
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, 512<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty body"})
		return
	}

	state, err := export.Restore(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.store.ReplaceState(c.Request.Context(), state); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"characters": len(state.Characters)})
}
