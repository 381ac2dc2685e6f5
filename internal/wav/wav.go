// Package wav assembles playable WAV containers from raw PCM speech chunks.
package wav

import (
	"encoding/binary"
	"strconv"
	"strings"
)

// PCMParams describe a raw PCM stream.
type PCMParams struct {
	Channels      int
	SampleRate    int
	BitsPerSample int
}

// DefaultParams match the speech backend's usual L16 24kHz mono output.
var DefaultParams = PCMParams{Channels: 1, SampleRate: 24000, BitsPerSample: 16}

// IsSelfContained reports whether the MIME type names a container format
// whose bytes can be wrapped as-is.
func IsSelfContained(mimeType string) bool {
	base := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(base, ';'); i >= 0 {
		base = base[:i]
	}
	switch base {
	case "audio/wav", "audio/x-wav", "audio/mpeg", "audio/mp3", "audio/ogg", "audio/webm", "audio/mp4", "audio/aac":
		return true
	}
	return false
}

// ParseMIME extracts PCM parameters from a streaming MIME type such as
// "audio/L16;codec=pcm;rate=24000". Unrecognized fields keep defaults.
func ParseMIME(mimeType string) PCMParams {
	params := DefaultParams
	for _, field := range strings.Split(mimeType, ";") {
		field = strings.TrimSpace(field)
		if rate, ok := strings.CutPrefix(field, "rate="); ok {
			if parsed, err := strconv.Atoi(rate); err == nil && parsed > 0 {
				params.SampleRate = parsed
			}
		}
		if ch, ok := strings.CutPrefix(field, "channels="); ok {
			if parsed, err := strconv.Atoi(ch); err == nil && parsed > 0 {
				params.Channels = parsed
			}
		}
		if bits, ok := strings.CutPrefix(strings.ToUpper(field), "AUDIO/L"); ok {
			if parsed, err := strconv.Atoi(bits); err == nil && parsed > 0 {
				params.BitsPerSample = parsed
			}
		}
	}
	return params
}

// Wrap prefixes raw PCM data with a minimal RIFF/WAVE header.
func Wrap(params PCMParams, pcm []byte) []byte {
	byteRate := params.SampleRate * params.Channels * params.BitsPerSample / 8
	blockAlign := params.Channels * params.BitsPerSample / 8

	out := make([]byte, 0, 44+len(pcm))
	out = append(out, "RIFF"...)
	out = binary.LittleEndian.AppendUint32(out, uint32(36+len(pcm)))
	out = append(out, "WAVE"...)
	out = append(out, "fmt "...)
	out = binary.LittleEndian.AppendUint32(out, 16)
	out = binary.LittleEndian.AppendUint16(out, 1) // PCM
	out = binary.LittleEndian.AppendUint16(out, uint16(params.Channels))
	out = binary.LittleEndian.AppendUint32(out, uint32(params.SampleRate))
	out = binary.LittleEndian.AppendUint32(out, uint32(byteRate))
	out = binary.LittleEndian.AppendUint16(out, uint16(blockAlign))
	out = binary.LittleEndian.AppendUint16(out, uint16(params.BitsPerSample))
	out = append(out, "data"...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(pcm)))
	out = append(out, pcm...)
	return out
}

// Duration returns the playback length in seconds of a raw PCM payload.
func Duration(params PCMParams, dataLen int) float64 {
	byteRate := params.SampleRate * params.Channels * params.BitsPerSample / 8
	if byteRate <= 0 {
		return 0
	}
	return float64(dataLen) / float64(byteRate)
}
