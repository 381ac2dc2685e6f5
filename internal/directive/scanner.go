// Package directive scans AI reply text for embedded control tags and strips
// them from the user-visible content.
package directive

import (
	"strings"

	"github.com/campfireai/companion/internal/types"
)

// Kind names a recognized directive tag.
type Kind string

const (
	KindImage Kind = "GENERATE_IMAGE"
	KindVideo Kind = "GENERATE_VIDEO"
	KindVoice Kind = "GENERATE_VOICE"
	KindPower Kind = "INNATE_POWER_RELEASE"
)

var tagKinds = []Kind{KindImage, KindVideo, KindVoice, KindPower}

// FallbackReply replaces degenerate cleaned output (empty or the literal
// string "undefined", an observed provider failure mode).
const FallbackReply = "Sorry, I lost my train of thought for a moment... what were we talking about?"

// Directive is one parsed tag.
type Directive struct {
	Kind    Kind
	Payload string
	// Pos is the byte offset of the opening bracket in the raw text.
	Pos int

	// Image fields.
	Perspective types.Perspective
	Description string

	// Power fields.
	Level  types.PowerLevel
	Effect string
}

// Result is the outcome of scanning a reply.
type Result struct {
	// Text is the reply with all tags removed and whitespace trimmed,
	// or FallbackReply if that leaves nothing usable.
	Text       string
	Directives []Directive
}

// Parse scans raw reply text for bracketed directive tags.
func Parse(raw string) Result {
	var out strings.Builder
	var directives []Directive

	i := 0
	for i < len(raw) {
		if raw[i] == '[' {
			if d, end, ok := scanTag(raw, i); ok {
				directives = append(directives, d)
				i = end
				continue
			}
		}
		out.WriteByte(raw[i])
		i++
	}

	text := strings.TrimSpace(out.String())
	if text == "" || text == "undefined" {
		text = FallbackReply
	}
	return Result{Text: text, Directives: directives}
}

// scanTag tries to read one directive starting at the opening bracket.
// It returns the directive and the index just past the closing bracket.
func scanTag(s string, start int) (Directive, int, bool) {
	body := s[start+1:]
	closing := strings.IndexByte(body, ']')
	if closing < 0 {
		return Directive{}, 0, false
	}
	body = body[:closing]

	for _, kind := range tagKinds {
		rest, ok := strings.CutPrefix(body, string(kind))
		if !ok {
			continue
		}
		rest = strings.TrimSpace(rest)
		rest, _ = strings.CutPrefix(rest, ":")
		d := Directive{Kind: kind, Payload: strings.TrimSpace(rest), Pos: start}
		parsePayload(&d)
		return d, start + 1 + closing + 1, true
	}
	return Directive{}, 0, false
}

func parsePayload(d *Directive) {
	switch d.Kind {
	case KindImage:
		perspective, description, found := strings.Cut(d.Payload, ",")
		if !found {
			d.Perspective = types.PerspectiveViewer
			d.Description = strings.TrimSpace(perspective)
			return
		}
		switch strings.ToLower(strings.TrimSpace(perspective)) {
		case string(types.PerspectiveSelfie):
			d.Perspective = types.PerspectiveSelfie
		default:
			d.Perspective = types.PerspectiveViewer
		}
		d.Description = strings.TrimSpace(description)
	case KindPower:
		level, effect, _ := strings.Cut(d.Payload, ":")
		d.Level = types.PowerLevel(strings.ToUpper(strings.TrimSpace(level)))
		d.Effect = strings.TrimSpace(effect)
	case KindVideo, KindVoice:
		d.Description = d.Payload
	}
}
