package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"google.golang.org/genai"

	"github.com/campfireai/companion/internal/media"
	"github.com/campfireai/companion/internal/prompt"
	"github.com/campfireai/companion/internal/types"
)

type fakeStore struct {
	profile *types.UserProfile
	saves   int
}

func (s *fakeStore) Save(context.Context) error      { s.saves++; return nil }
func (s *fakeStore) UserProfile() *types.UserProfile { return s.profile }

type fakeModel struct {
	reply    string
	err      error
	system   string
	lastUser string
	turns    int
}

func (m *fakeModel) Stream(_ context.Context, system string, contents []*genai.Content, onDelta func(string)) (string, error) {
	m.turns++
	m.system = system
	if len(contents) > 0 {
		last := contents[len(contents)-1]
		if len(last.Parts) > 0 {
			m.lastUser = last.Parts[0].Text
		}
	}
	if m.err != nil {
		return "", m.err
	}
	if onDelta != nil {
		onDelta(m.reply)
	}
	return m.reply, nil
}

type fakeDispatcher struct {
	imageOutcome *media.ImageOutcome
	imageErr     error
	videoErr     error
	imageCalls   int
	voiceCalls   int
	videoCalls   int
	perspective  types.Perspective
}

func (d *fakeDispatcher) GenerateImage(_ context.Context, _ *types.Character, perspective types.Perspective, _, _ string, _ time.Time) (*media.ImageOutcome, error) {
	d.imageCalls++
	d.perspective = perspective
	return d.imageOutcome, d.imageErr
}

func (d *fakeDispatcher) GenerateSpeech(context.Context, *types.Character, string) (*media.SpeechResult, error) {
	d.voiceCalls++
	return &media.SpeechResult{Line: "sweet dreams", Audio: []byte("wav"), Duration: 1.5}, nil
}

func (d *fakeDispatcher) GenerateVideo(context.Context, *types.Character, string) (*types.Media, error) {
	d.videoCalls++
	if d.videoErr != nil {
		return nil, d.videoErr
	}
	return &types.Media{ID: 7, Type: types.MediaVideo, Data: []byte("clip")}, nil
}

type fakeJudge struct{ calls int }

func (j *fakeJudge) Update(context.Context, *types.UserProfile, *types.Character, string, string) {
	j.calls++
}

type fakePowers struct{ raised types.PowerLevel }

func (p *fakePowers) Raise(_ *types.Character, level types.PowerLevel) { p.raised = level }

type fakeZones struct{}

func (fakeZones) Resolve(context.Context, *types.Character) *time.Location { return time.UTC }

func chatCharacter() *types.Character {
	return &types.Character{
		ID: "c1",
		Profile: types.CharacterProfile{
			BasicInfo: types.BasicInfo{Name: "Mira", Race: "vampire"},
		},
	}
}

func newTestEngine(model *fakeModel, dispatcher *fakeDispatcher) (*Engine, *fakeStore, *fakeJudge, *fakePowers) {
	store := &fakeStore{profile: &types.UserProfile{Name: "Alex"}}
	judge := &fakeJudge{}
	powers := &fakePowers{}
	e := NewEngine(store, model, prompt.NewBuilder(false, 0), dispatcher, judge, powers, fakeZones{}, nil)
	e.nowFunc = func() time.Time { return time.Date(2025, 6, 2, 20, 0, 0, 0, time.UTC) }
	return e, store, judge, powers
}

func TestSendHappyPath(t *testing.T) {
	model := &fakeModel{reply: "Hello there! [GENERATE_VOICE: a warm good night]"}
	dispatcher := &fakeDispatcher{}
	e, store, judge, _ := newTestEngine(model, dispatcher)
	c := chatCharacter()

	var streamed string
	result, err := e.Send(context.Background(), c, "good night", func(delta string) { streamed += delta })
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.Reply != "Hello there!" {
		t.Fatalf("reply = %q", result.Reply)
	}
	if streamed == "" {
		t.Fatalf("deltas not forwarded")
	}
	if dispatcher.voiceCalls != 1 {
		t.Fatalf("voice directive not dispatched")
	}
	if judge.calls != 1 {
		t.Fatalf("intimacy not updated")
	}
	if store.saves < 2 {
		t.Fatalf("expected user and AI messages persisted, saves=%d", store.saves)
	}
	// user text, AI text, voice message
	if len(c.ChatHistory) != 3 {
		t.Fatalf("history length = %d", len(c.ChatHistory))
	}
	voice := c.ChatHistory[2]
	if voice.Type != types.MessageVoice || voice.AudioDuration != 1.5 {
		t.Fatalf("unexpected voice message: %#v", voice)
	}
}

func TestSendTextOnlyTurnsCarryElapsedNote(t *testing.T) {
	model := &fakeModel{reply: "hi again"}
	e, _, _, _ := newTestEngine(model, &fakeDispatcher{})
	c := chatCharacter()

	if _, err := e.Send(context.Background(), c, "hello", nil); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if strings.Contains(model.lastUser, "It's been") {
		t.Fatalf("first turn must not carry an elapsed note: %q", model.lastUser)
	}
	if c.SessionContext == nil {
		t.Fatalf("session must be established on the first text turn")
	}

	e.nowFunc = func() time.Time { return time.Date(2025, 6, 2, 23, 0, 0, 0, time.UTC) }
	if _, err := e.Send(context.Background(), c, "back now", nil); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(model.lastUser, "It's been about 3 hours") {
		t.Fatalf("second turn missing elapsed note: %q", model.lastUser)
	}
}

func TestSendBusyGate(t *testing.T) {
	e, _, _, _ := newTestEngine(&fakeModel{reply: "hi"}, &fakeDispatcher{})
	c := chatCharacter()
	e.inFlight[c.ID] = true

	if _, err := e.Send(context.Background(), c, "hello", nil); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
}

func TestSendModelFailureAppendsApology(t *testing.T) {
	e, _, judge, _ := newTestEngine(&fakeModel{err: errors.New("quota")}, &fakeDispatcher{})
	c := chatCharacter()

	result, err := e.Send(context.Background(), c, "hello", nil)
	if err != nil {
		t.Fatalf("provider failure must not propagate, got %v", err)
	}
	if result.Reply != ApologyReply {
		t.Fatalf("reply = %q", result.Reply)
	}
	if len(c.ChatHistory) != 2 || c.ChatHistory[1].Content != ApologyReply {
		t.Fatalf("apology not appended: %#v", c.ChatHistory)
	}
	if judge.calls != 0 {
		t.Fatalf("intimacy must not run on a failed turn")
	}
}

func TestSendPowerDirective(t *testing.T) {
	model := &fakeModel{reply: "Watch this. [INNATE_POWER_RELEASE: HIGH: eyes glow crimson]"}
	e, _, _, powers := newTestEngine(model, &fakeDispatcher{})
	c := chatCharacter()

	result, err := e.Send(context.Background(), c, "show me", nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if powers.raised != types.PowerHigh {
		t.Fatalf("scheduler not raised: %v", powers.raised)
	}
	if c.CurrentPowerLevel != types.PowerHigh {
		t.Fatalf("power level not set on character")
	}
	if result.Power == nil || result.Power.Effect != "eyes glow crimson" {
		t.Fatalf("power event missing: %#v", result.Power)
	}
}

func TestSendImageDirective(t *testing.T) {
	model := &fakeModel{reply: "Here you go! [GENERATE_IMAGE: selfie, winking at the camera]"}
	dispatcher := &fakeDispatcher{imageOutcome: &media.ImageOutcome{
		Media: &types.Media{ID: 1, Type: types.MediaImage, Data: []byte("img"), MIMEType: "image/png"},
	}}
	e, _, _, _ := newTestEngine(model, dispatcher)
	c := chatCharacter()

	result, err := e.Send(context.Background(), c, "send a pic", nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if dispatcher.perspective != types.PerspectiveSelfie {
		t.Fatalf("perspective = %q", dispatcher.perspective)
	}
	last := c.ChatHistory[len(c.ChatHistory)-1]
	if last.Type != types.MessageImage || string(last.ImageData) != "img" {
		t.Fatalf("image message not appended: %#v", last)
	}
	if len(result.Gallery) != 1 {
		t.Fatalf("gallery addition not reported")
	}
}

func TestSendImageRefusalBecomesOffer(t *testing.T) {
	model := &fakeModel{reply: "Sure! [GENERATE_IMAGE: viewer, at the cafe]"}
	dispatcher := &fakeDispatcher{imageOutcome: &media.ImageOutcome{
		Media:   &types.Media{ID: 1, Type: types.MediaImage},
		JobID:   "job-1",
		Refused: true,
		Reason:  "cannot depict that",
	}}
	e, _, _, _ := newTestEngine(model, dispatcher)
	c := chatCharacter()

	result, err := e.Send(context.Background(), c, "send a pic", nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.ImageOffer == nil || result.ImageOffer.JobID != "job-1" {
		t.Fatalf("offer not surfaced: %#v", result.ImageOffer)
	}
	for _, m := range c.ChatHistory {
		if m.Type == types.MessageImage {
			t.Fatalf("refused image must not append a message")
		}
	}
}

func TestSendVideoDisabledIgnored(t *testing.T) {
	model := &fakeModel{reply: "Recording now! [GENERATE_VIDEO: blows a kiss]"}
	dispatcher := &fakeDispatcher{videoErr: media.ErrVideoDisabled}
	e, _, _, _ := newTestEngine(model, dispatcher)
	c := chatCharacter()

	result, err := e.Send(context.Background(), c, "video please", nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(result.Gallery) != 0 {
		t.Fatalf("disabled video must not add to gallery")
	}
	if result.Reply != "Recording now!" {
		t.Fatalf("reply = %q", result.Reply)
	}
}
