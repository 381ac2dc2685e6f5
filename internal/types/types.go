// Package types defines the persisted data model shared across the app.
package types

import "time"

// Sender identifies who authored a chat message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// MessageType distinguishes plain text from media-bearing messages.
type MessageType string

const (
	MessageText  MessageType = "text"
	MessageVoice MessageType = "voice"
	MessageImage MessageType = "image"
)

// MediaType is the kind of a gallery artifact.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// PowerLevel is a transient power rank raised by an AI directive.
// The empty value means no power is active.
type PowerLevel string

const (
	PowerNone PowerLevel = ""
	PowerLow  PowerLevel = "LOW"
	PowerMid  PowerLevel = "MID"
	PowerHigh PowerLevel = "HIGH"
	PowerMax  PowerLevel = "MAX"
)

// Valid reports whether the level is one of the four named ranks.
func (p PowerLevel) Valid() bool {
	switch p {
	case PowerLow, PowerMid, PowerHigh, PowerMax:
		return true
	}
	return false
}

// Aura is a personality category that biases intimacy judgments.
type Aura string

const (
	AuraBratty       Aura = "bratty"
	AuraDominant     Aura = "dominant"
	AuraSubmissive   Aura = "submissive"
	AuraIntellectual Aura = "intellectual"
	AuraNurturing    Aura = "nurturing"
	AuraCharismatic  Aura = "charismatic"
	AuraAnalytical   Aura = "analytical"
	AuraSeductive    Aura = "seductive"
	AuraPampered     Aura = "pampered"
	AuraAdventurous  Aura = "adventurous"
	AuraAmbitious    Aura = "ambitious"
	AuraEmpathetic   Aura = "empathetic"
)

// Perspective selects the photographic framing of a generated image.
type Perspective string

const (
	PerspectiveSelfie Perspective = "selfie"
	PerspectiveViewer Perspective = "viewer"
)

// AvatarReferenceID is the sentinel media id meaning "the character's avatar".
const AvatarReferenceID = "avatar"

// UserProfile is the single local user.
type UserProfile struct {
	Name                string `json:"name"`
	Gender              string `json:"gender,omitempty"`
	ShowIntimacyMeter   bool   `json:"showIntimacyMeter"`
	ShowIntimacyNotices bool   `json:"showIntimacyNotices"`
}

// Message is one chat history entry. Content holds the generation prompt for
// image messages and the spoken line for voice messages.
type Message struct {
	Sender    Sender      `json:"sender"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
	Type      MessageType `json:"type"`

	AudioData     []byte  `json:"audioData,omitempty"`
	AudioDuration float64 `json:"audioDuration,omitempty"`
	ImageData     []byte  `json:"imageData,omitempty"`
	ImageMIME     string  `json:"imageMime,omitempty"`
}

// Media is a generated gallery artifact. A retry replaces Data under the same
// ID; deletion is explicit.
type Media struct {
	ID       int64     `json:"id"`
	Type     MediaType `json:"type"`
	Data     []byte    `json:"data"`
	MIMEType string    `json:"mimeType"`
	Prompt   string    `json:"prompt"`
}

// ReferenceImage points at whichever image most recently anchored visual
// consistency for generation.
type ReferenceImage struct {
	ID       string `json:"id"`
	MIMEType string `json:"mimeType"`
	Data     []byte `json:"data"`
}

// SessionContext is the per-character continuity state. It is the single
// source of truth for what the character currently looks like, wears, and
// where they are; it survives reloads through the character record.
type SessionContext struct {
	Hairstyle          string          `json:"hairstyle"`
	Outfit             string          `json:"outfit,omitempty"`
	UpdatedAt          time.Time       `json:"updatedAt"`
	Location           string          `json:"location,omitempty"`
	TimeOfDay          string          `json:"timeOfDay,omitempty"`
	LastReferenceImage *ReferenceImage `json:"lastReferenceImage,omitempty"`
}

// BasicInfo are identity fields of a character profile.
type BasicInfo struct {
	Name       string `json:"name"`
	Age        string `json:"age,omitempty"`
	Gender     string `json:"gender,omitempty"`
	Race       string `json:"race,omitempty"`
	City       string `json:"city,omitempty"`
	Occupation string `json:"occupation,omitempty"`
}

// PhysicalStyle describes appearance and the configured style options.
type PhysicalStyle struct {
	Appearance           string   `json:"appearance,omitempty"`
	BodyType             string   `json:"bodyType,omitempty"`
	HairstyleOptions     []string `json:"hairstyleOptions,omitempty"`
	ClothingStyleOptions []string `json:"clothingStyleOptions,omitempty"`
}

// Personality carries free-text traits plus the aura category.
type Personality struct {
	Aura        Aura   `json:"aura,omitempty"`
	Traits      string `json:"traits,omitempty"`
	Background  string `json:"background,omitempty"`
	SpeechStyle string `json:"speechStyle,omitempty"`
}

// CharacterProfile is the structured persona definition.
type CharacterProfile struct {
	BasicInfo     BasicInfo     `json:"basicInfo"`
	PhysicalStyle PhysicalStyle `json:"physicalStyle"`
	Personality   Personality   `json:"personality"`
}

// Character is a persisted persona with its history, gallery, and state.
type Character struct {
	ID           string `json:"id"`
	AvatarData   []byte `json:"avatarData,omitempty"`
	AvatarMIME   string `json:"avatarMime,omitempty"`
	AvatarPrompt string `json:"avatarPrompt,omitempty"`

	Profile     CharacterProfile `json:"characterProfile"`
	ChatHistory []Message        `json:"chatHistory"`
	Media       []Media          `json:"media"`

	// Timezone is the IANA zone derived once from the character's city.
	Timezone string `json:"timezone,omitempty"`

	// IntimacyLevel is not clamped here; only the display layer clamps it.
	IntimacyLevel float64 `json:"intimacyLevel"`

	NeedsRefinement bool `json:"needsRefinement,omitempty"`

	SessionContext *SessionContext `json:"sessionContext,omitempty"`

	// CurrentPowerLevel auto-expires and is never persisted.
	CurrentPowerLevel PowerLevel `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
}

// MediaByID returns the gallery entry with the given id, or nil.
func (c *Character) MediaByID(id int64) *Media {
	for i := range c.Media {
		if c.Media[i].ID == id {
			return &c.Media[i]
		}
	}
	return nil
}

// NextMediaID returns one past the highest gallery id.
func (c *Character) NextMediaID() int64 {
	var max int64
	for _, m := range c.Media {
		if m.ID > max {
			max = m.ID
		}
	}
	return max + 1
}

// AppState is the whole persisted document.
type AppState struct {
	UserProfile *UserProfile `json:"userProfile,omitempty"`
	Characters  []*Character `json:"characters"`
}

// CharacterByID returns the character with the given id, or nil.
func (s *AppState) CharacterByID(id string) *Character {
	for _, c := range s.Characters {
		if c.ID == id {
			return c
		}
	}
	return nil
}
