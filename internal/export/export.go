// Package export packs the whole app document into a portable zip archive
// and reads both that archive and the older flat JSON dump back in.
package export

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/campfireai/companion/internal/types"
)

const manifestName = "data.json"

// archiveVersion marks the zip layout. Bump when the manifest shape changes.
const archiveVersion = 1

// fileRef maps one externalized binary back to its place in the state.
type fileRef struct {
	Path         string `json:"path"`
	CharacterID  string `json:"characterId"`
	Kind         string `json:"kind"`
	MediaID      int64  `json:"mediaId,omitempty"`
	MessageIndex int    `json:"messageIndex,omitempty"`
}

const (
	kindAvatar       = "avatar"
	kindMedia        = "media"
	kindMessageAudio = "messageAudio"
	kindMessageImage = "messageImage"
)

// manifest is the data.json payload. Binary data lives in sibling files
// referenced by relative path, keeping the manifest readable.
type manifest struct {
	Version int             `json:"version"`
	State   *types.AppState `json:"state"`
	Files   []fileRef       `json:"files"`
}

// Archive writes the state as a zip archive with externalized media.
func Archive(state *types.AppState) ([]byte, error) {
	if state == nil {
		return nil, fmt.Errorf("state is required")
	}

	stripped, refs, blobs, err := externalize(state)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	m := manifest{Version: archiveVersion, State: stripped, Files: refs}
	encoded, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := writeZipFile(zw, manifestName, encoded); err != nil {
		return nil, err
	}
	for path, data := range blobs {
		if err := writeZipFile(zw, path, data); err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}

// Restore reads either a zip archive or the legacy flat JSON dump. The
// returned state is already migrated.
func Restore(data []byte) (*types.AppState, error) {
	if len(data) >= 2 && data[0] == 'P' && data[1] == 'K' {
		return restoreArchive(data)
	}
	return restoreLegacy(data)
}

func restoreArchive(data []byte) (*types.AppState, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	files := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		content, err := readZipFile(f)
		if err != nil {
			return nil, err
		}
		files[f.Name] = content
	}

	encoded, ok := files[manifestName]
	if !ok {
		return nil, fmt.Errorf("archive has no %s", manifestName)
	}
	var m manifest
	if err := json.Unmarshal(encoded, &m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	if m.State == nil {
		return nil, fmt.Errorf("manifest has no state")
	}

	for _, ref := range m.Files {
		blob, ok := files[ref.Path]
		if !ok {
			return nil, fmt.Errorf("archive missing file %q", ref.Path)
		}
		if err := reattach(m.State, ref, blob); err != nil {
			return nil, err
		}
	}

	types.MigrateState(m.State)
	return m.State, nil
}

// restoreLegacy reads the old single-file dump with inline base64 payloads.
func restoreLegacy(data []byte) (*types.AppState, error) {
	var state types.AppState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to decode legacy export: %w", err)
	}
	types.MigrateState(&state)
	return &state, nil
}

// externalize deep-copies the state, pulls every binary payload out into the
// blobs map, and records where each one went.
func externalize(state *types.AppState) (*types.AppState, []fileRef, map[string][]byte, error) {
	copied, err := deepCopy(state)
	if err != nil {
		return nil, nil, nil, err
	}

	var refs []fileRef
	blobs := make(map[string][]byte)
	add := func(ref fileRef, data []byte, mimeType string) {
		ref.Path = fmt.Sprintf("media/%s/%s%s", ref.CharacterID, refName(ref), extensionFor(mimeType))
		refs = append(refs, ref)
		blobs[ref.Path] = data
	}

	for _, c := range copied.Characters {
		if len(c.AvatarData) > 0 {
			add(fileRef{CharacterID: c.ID, Kind: kindAvatar}, c.AvatarData, c.AvatarMIME)
			c.AvatarData = nil
		}
		for i := range c.Media {
			m := &c.Media[i]
			if len(m.Data) == 0 {
				continue
			}
			add(fileRef{CharacterID: c.ID, Kind: kindMedia, MediaID: m.ID}, m.Data, m.MIMEType)
			m.Data = nil
		}
		for i := range c.ChatHistory {
			msg := &c.ChatHistory[i]
			if len(msg.AudioData) > 0 {
				add(fileRef{CharacterID: c.ID, Kind: kindMessageAudio, MessageIndex: i}, msg.AudioData, "audio/wav")
				msg.AudioData = nil
			}
			if len(msg.ImageData) > 0 {
				add(fileRef{CharacterID: c.ID, Kind: kindMessageImage, MessageIndex: i}, msg.ImageData, msg.ImageMIME)
				msg.ImageData = nil
			}
		}
		// The session reference chain is rebuilt from the gallery on import.
		if c.SessionContext != nil {
			c.SessionContext.LastReferenceImage = nil
		}
	}
	return copied, refs, blobs, nil
}

// reattach puts one externalized blob back where it came from.
func reattach(state *types.AppState, ref fileRef, blob []byte) error {
	c := state.CharacterByID(ref.CharacterID)
	if c == nil {
		return fmt.Errorf("file %q references unknown character %q", ref.Path, ref.CharacterID)
	}
	switch ref.Kind {
	case kindAvatar:
		c.AvatarData = blob
	case kindMedia:
		m := c.MediaByID(ref.MediaID)
		if m == nil {
			return fmt.Errorf("file %q references unknown media %d", ref.Path, ref.MediaID)
		}
		m.Data = blob
	case kindMessageAudio, kindMessageImage:
		if ref.MessageIndex < 0 || ref.MessageIndex >= len(c.ChatHistory) {
			return fmt.Errorf("file %q references message %d out of range", ref.Path, ref.MessageIndex)
		}
		if ref.Kind == kindMessageAudio {
			c.ChatHistory[ref.MessageIndex].AudioData = blob
		} else {
			c.ChatHistory[ref.MessageIndex].ImageData = blob
		}
	default:
		return fmt.Errorf("file %q has unknown kind %q", ref.Path, ref.Kind)
	}
	return nil
}

func refName(ref fileRef) string {
	switch ref.Kind {
	case kindAvatar:
		return "avatar"
	case kindMedia:
		return fmt.Sprintf("media-%d", ref.MediaID)
	case kindMessageAudio:
		return fmt.Sprintf("msg-%d-audio", ref.MessageIndex)
	case kindMessageImage:
		return fmt.Sprintf("msg-%d-image", ref.MessageIndex)
	}
	return "blob"
}

func extensionFor(mimeType string) string {
	switch {
	case strings.HasPrefix(mimeType, "image/png"):
		return ".png"
	case strings.HasPrefix(mimeType, "image/jpeg"):
		return ".jpg"
	case strings.HasPrefix(mimeType, "image/webp"):
		return ".webp"
	case strings.HasPrefix(mimeType, "audio/"):
		return ".wav"
	case strings.HasPrefix(mimeType, "video/"):
		return ".mp4"
	default:
		return ".bin"
	}
}

func deepCopy(state *types.AppState) (*types.AppState, error) {
	encoded, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("failed to copy state: %w", err)
	}
	var copied types.AppState
	if err := json.Unmarshal(encoded, &copied); err != nil {
		return nil, fmt.Errorf("failed to copy state: %w", err)
	}
	return &copied, nil
}

func writeZipFile(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("failed to add %q to archive: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write %q: %w", name, err)
	}
	return nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %q: %w", f.Name, err)
	}
	defer rc.Close()
	content, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", f.Name, err)
	}
	return content, nil
}
