package prompt

import (
	"fmt"
	"strings"

	"github.com/campfireai/companion/internal/clock"
	"github.com/campfireai/companion/internal/types"
)

// ConsistencyClause is appended verbatim to every reference-conditioned
// image prompt.
const ConsistencyClause = "Keep the face, body proportions, skin tone, and eye color exactly consistent with the reference image. Pose, expression, hair styling, and immediate body condition may vary."

const (
	selfieTechnique = "Photographic technique: simulated front-camera selfie, framed chest-up at arm's length, the phone itself not visible, slight wide-angle lens distortion, candid in-the-moment feel."
	viewerTechnique = "Photographic technique: simulated professional portrait photography, shallow depth of field, flattering natural light, composed by an unseen photographer."
)

var bedroomKeywords = []string{"bed", "bedroom", "sleep", "pillow", "blanket"}

// ImageRequest carries the resolved continuity inputs for one image prompt.
type ImageRequest struct {
	Scene       string
	Hairstyle   string
	Outfit      string
	Location    string
	Perspective types.Perspective
	TimeOfDay   string
}

// BuildImagePrompt assembles the text prompt for a character image. The
// caller attaches the reference image part separately.
func (b *Builder) BuildImagePrompt(c *types.Character, req ImageRequest) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "A photo of %s", c.Profile.BasicInfo.Name)
	if appearance := c.Profile.PhysicalStyle.Appearance; appearance != "" {
		fmt.Fprintf(&sb, " (%s)", appearance)
	}
	sb.WriteString(".")

	if req.Hairstyle != "" {
		fmt.Fprintf(&sb, " Hair: %s.", req.Hairstyle)
	}
	if req.Outfit != "" {
		fmt.Fprintf(&sb, " Wearing: %s.", req.Outfit)
	}
	if req.Location != "" {
		fmt.Fprintf(&sb, " Setting: %s.", req.Location)
	}
	if req.Scene != "" {
		fmt.Fprintf(&sb, " Scene: %s.", req.Scene)
	}

	if bedtimeLook(req.Location, req.TimeOfDay) {
		sb.WriteString(" Bedtime look: no makeup, hair loose and slightly messy.")
	}

	sb.WriteString(" ")
	if req.Perspective == types.PerspectiveSelfie {
		sb.WriteString(selfieTechnique)
	} else {
		sb.WriteString(viewerTechnique)
	}

	sb.WriteString(" ")
	sb.WriteString(ConsistencyClause)
	return sb.String()
}

// bedtimeLook reports whether the location reads as a bedroom at night.
func bedtimeLook(location, timeOfDay string) bool {
	if timeOfDay != clock.Night && timeOfDay != clock.Evening {
		return false
	}
	lowered := strings.ToLower(location)
	for _, keyword := range bedroomKeywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}
