// Package chat is the top-level conversation controller. It owns the send
// flow: persist the user message, stream the reply, parse directives,
// dispatch media, and update intimacy, strictly in that order.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/campfireai/companion/internal/directive"
	"github.com/campfireai/companion/internal/media"
	"github.com/campfireai/companion/internal/prompt"
	"github.com/campfireai/companion/internal/types"
)

// ErrBusy means a turn for this character is already in flight. The gate is
// advisory; it exists to keep the UI from double-sending, not to serialize
// writers.
var ErrBusy = errors.New("a message for this character is already in flight")

// ApologyReply is appended as the AI turn when the provider call fails.
const ApologyReply = "I'm so sorry, my mind went somewhere else for a second. Could you say that again?"

// Model runs one streaming chat turn.
type Model interface {
	Stream(ctx context.Context, system string, contents []*genai.Content, onDelta func(string)) (string, error)
}

// Dispatcher executes media directives.
type Dispatcher interface {
	GenerateImage(ctx context.Context, c *types.Character, perspective types.Perspective, scene, recentContext string, now time.Time) (*media.ImageOutcome, error)
	GenerateSpeech(ctx context.Context, c *types.Character, instruction string) (*media.SpeechResult, error)
	GenerateVideo(ctx context.Context, c *types.Character, description string) (*types.Media, error)
}

// IntimacyJudge re-evaluates intimacy after each exchange.
type IntimacyJudge interface {
	Update(ctx context.Context, profile *types.UserProfile, c *types.Character, userMessage, aiReply string)
}

// PowerScheduler raises transient power levels with auto-revert.
type PowerScheduler interface {
	Raise(c *types.Character, level types.PowerLevel)
}

// Zones resolves a character's local time zone.
type Zones interface {
	Resolve(ctx context.Context, c *types.Character) *time.Location
}

// Memories retrieves remembered snippets for the system instruction. May be
// absent on file-backed deployments.
type Memories interface {
	Retrieve(ctx context.Context, characterID, query string) ([]string, error)
	Record(ctx context.Context, characterID, userMessage, aiReply string) error
}

// Store is the slice of the persistence layer the engine needs.
type Store interface {
	Save(ctx context.Context) error
	UserProfile() *types.UserProfile
}

// PowerEvent reports a power release parsed from the reply.
type PowerEvent struct {
	Level  types.PowerLevel `json:"level"`
	Effect string           `json:"effect"`
}

// TurnResult is everything one send produced, in order of appearance.
type TurnResult struct {
	Reply      string
	Messages   []types.Message
	Gallery    []*types.Media
	ImageOffer *media.ImageOutcome
	Power      *PowerEvent
}

// Engine coordinates one character conversation at a time per character.
type Engine struct {
	store    Store
	model    Model
	builder  *prompt.Builder
	media    Dispatcher
	intimacy IntimacyJudge
	powers   PowerScheduler
	zones    Zones
	memories Memories

	mu       sync.Mutex
	inFlight map[string]bool

	nowFunc func() time.Time
}

// NewEngine returns an Engine. memories may be nil.
func NewEngine(store Store, model Model, builder *prompt.Builder, dispatcher Dispatcher, intimacy IntimacyJudge, powers PowerScheduler, zones Zones, memories Memories) *Engine {
	return &Engine{
		store:    store,
		model:    model,
		builder:  builder,
		media:    dispatcher,
		intimacy: intimacy,
		powers:   powers,
		zones:    zones,
		memories: memories,
		inFlight: make(map[string]bool),
		nowFunc:  time.Now,
	}
}

// Send runs one full turn. onDelta receives reply fragments as they stream;
// it may be nil. The returned messages are already appended to the
// character's history and persisted.
func (e *Engine) Send(ctx context.Context, c *types.Character, text string, onDelta func(string)) (*TurnResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("message cannot be empty")
	}
	if !e.acquire(c.ID) {
		return nil, ErrBusy
	}
	defer e.release(c.ID)

	loc := time.UTC
	if e.zones != nil {
		loc = e.zones.Resolve(ctx, c)
	}
	now := e.nowFunc().In(loc)

	lastMessageAt := lastTimestamp(c.ChatHistory)

	// A nil SessionContext marks a fresh or reset session. Establish it on
	// the first turn so later text-only turns carry the elapsed-time note;
	// hairstyle and outfit stay empty until the first image request.
	firstOfSession := c.SessionContext == nil
	if firstOfSession {
		c.SessionContext = &types.SessionContext{UpdatedAt: now}
	}

	result := &TurnResult{}
	userMsg := types.Message{Sender: types.SenderUser, Content: text, Timestamp: now, Type: types.MessageText}
	c.ChatHistory = append(c.ChatHistory, userMsg)
	if err := e.store.Save(ctx); err != nil {
		return nil, fmt.Errorf("failed to persist user message: %w", err)
	}
	result.Messages = append(result.Messages, userMsg)

	system, contents, err := e.buildRequest(ctx, c, text, now, lastMessageAt, firstOfSession)
	if err != nil {
		return nil, err
	}

	raw, err := e.model.Stream(ctx, system, contents, onDelta)
	if err != nil {
		slog.Error("chat turn failed", "character", c.ID, "error", err)
		apology := e.appendAIMessage(ctx, c, types.Message{
			Sender: types.SenderAI, Content: ApologyReply, Timestamp: e.nowFunc().In(loc), Type: types.MessageText,
		})
		result.Reply = ApologyReply
		result.Messages = append(result.Messages, apology)
		return result, nil
	}

	parsed := directive.Parse(raw)
	result.Reply = parsed.Text
	reply := e.appendAIMessage(ctx, c, types.Message{
		Sender: types.SenderAI, Content: parsed.Text, Timestamp: e.nowFunc().In(loc), Type: types.MessageText,
	})
	result.Messages = append(result.Messages, reply)

	e.runDirectives(ctx, c, parsed.Directives, now, result)

	e.intimacy.Update(ctx, e.store.UserProfile(), c, text, parsed.Text)

	if e.memories != nil {
		if err := e.memories.Record(ctx, c.ID, text, parsed.Text); err != nil {
			slog.Warn("failed to record memory", "character", c.ID, "error", err)
		}
	}

	return result, nil
}

// buildRequest assembles the system instruction and the content window, with
// the per-turn time context folded into the latest user message.
func (e *Engine) buildRequest(ctx context.Context, c *types.Character, text string, now, lastMessageAt time.Time, firstOfSession bool) (string, []*genai.Content, error) {
	var memories []string
	if e.memories != nil {
		recalled, err := e.memories.Retrieve(ctx, c.ID, text)
		if err != nil {
			slog.Warn("memory retrieval failed", "character", c.ID, "error", err)
		} else {
			memories = recalled
		}
	}

	system, err := e.builder.BuildSystemInstruction(c, e.store.UserProfile(), memories)
	if err != nil {
		return "", nil, fmt.Errorf("failed to build system instruction: %w", err)
	}

	contents := e.builder.HistoryWindow(c.ChatHistory[:len(c.ChatHistory)-1])
	turnContext := e.builder.BuildTurnContext(c, now, lastMessageAt, firstOfSession)
	contents = append(contents, genai.NewContentFromText(turnContext+"\n"+text, "user"))
	return system, contents, nil
}

// runDirectives executes parsed directives in reply order. Media failures
// never fail the turn; they surface as offers or logged warnings.
func (e *Engine) runDirectives(ctx context.Context, c *types.Character, directives []directive.Directive, now time.Time, result *TurnResult) {
	for _, d := range directives {
		switch d.Kind {
		case directive.KindPower:
			c.CurrentPowerLevel = d.Level
			if e.powers != nil {
				e.powers.Raise(c, d.Level)
			}
			result.Power = &PowerEvent{Level: d.Level, Effect: d.Effect}

		case directive.KindImage:
			outcome, err := e.media.GenerateImage(ctx, c, d.Perspective, d.Description, recentContext(c.ChatHistory), now)
			if err != nil {
				slog.Error("image directive failed", "character", c.ID, "error", err)
				continue
			}
			if outcome.JobID != "" {
				result.ImageOffer = outcome
				continue
			}
			msg := e.appendAIMessage(ctx, c, types.Message{
				Sender:    types.SenderAI,
				Content:   d.Description,
				Timestamp: e.nowFunc(),
				Type:      types.MessageImage,
				ImageData: outcome.Media.Data,
				ImageMIME: outcome.Media.MIMEType,
			})
			result.Messages = append(result.Messages, msg)
			result.Gallery = append(result.Gallery, outcome.Media)

		case directive.KindVoice:
			speech, err := e.media.GenerateSpeech(ctx, c, d.Payload)
			if err != nil {
				slog.Error("voice directive failed", "character", c.ID, "error", err)
				continue
			}
			msg := e.appendAIMessage(ctx, c, types.Message{
				Sender:        types.SenderAI,
				Content:       speech.Line,
				Timestamp:     e.nowFunc(),
				Type:          types.MessageVoice,
				AudioData:     speech.Audio,
				AudioDuration: speech.Duration,
			})
			result.Messages = append(result.Messages, msg)

		case directive.KindVideo:
			clip, err := e.media.GenerateVideo(ctx, c, d.Payload)
			if err != nil {
				if errors.Is(err, media.ErrVideoDisabled) {
					slog.Info("video directive ignored, video disabled", "character", c.ID)
				} else {
					slog.Error("video directive failed", "character", c.ID, "error", err)
				}
				continue
			}
			result.Gallery = append(result.Gallery, clip)
		}
	}
}

// appendAIMessage appends and persists one AI message. Persistence failures
// here are logged, not fatal; the in-memory history stays authoritative for
// the rest of the turn.
func (e *Engine) appendAIMessage(ctx context.Context, c *types.Character, msg types.Message) types.Message {
	c.ChatHistory = append(c.ChatHistory, msg)
	if err := e.store.Save(ctx); err != nil {
		slog.Error("failed to persist message", "character", c.ID, "error", err)
	}
	return msg
}

func (e *Engine) acquire(characterID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inFlight[characterID] {
		return false
	}
	e.inFlight[characterID] = true
	return true
}

func (e *Engine) release(characterID string) {
	e.mu.Lock()
	delete(e.inFlight, characterID)
	e.mu.Unlock()
}

func lastTimestamp(history []types.Message) time.Time {
	if len(history) == 0 {
		return time.Time{}
	}
	return history[len(history)-1].Timestamp
}

// recentContext joins the last few message texts for location inference.
func recentContext(history []types.Message) string {
	const window = 6
	start := 0
	if len(history) > window {
		start = len(history) - window
	}
	var lines []string
	for _, m := range history[start:] {
		if m.Type != types.MessageText {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %s", m.Sender, m.Content))
	}
	return strings.Join(lines, "\n")
}
