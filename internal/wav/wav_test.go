package wav

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestParseMIME(t *testing.T) {
	got := ParseMIME("audio/L16;codec=pcm;rate=24000")
	want := PCMParams{Channels: 1, SampleRate: 24000, BitsPerSample: 16}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}

	got = ParseMIME("audio/L24;rate=48000;channels=2")
	want = PCMParams{Channels: 2, SampleRate: 48000, BitsPerSample: 24}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}

	if got := ParseMIME("audio/pcm"); got != DefaultParams {
		t.Fatalf("expected defaults, got %+v", got)
	}
}

func TestIsSelfContained(t *testing.T) {
	if !IsSelfContained("audio/mpeg") || !IsSelfContained("audio/wav; charset=binary") {
		t.Fatalf("container formats not recognized")
	}
	if IsSelfContained("audio/L16;rate=24000") {
		t.Fatalf("raw PCM misclassified as container")
	}
}

func TestWrap(t *testing.T) {
	pcm := bytes.Repeat([]byte{0x01, 0x02}, 100)
	out := Wrap(DefaultParams, pcm)

	if len(out) != 44+len(pcm) {
		t.Fatalf("expected %d bytes, got %d", 44+len(pcm), len(out))
	}
	if string(out[0:4]) != "RIFF" || string(out[8:12]) != "WAVE" {
		t.Fatalf("bad container magic: %q %q", out[0:4], out[8:12])
	}
	if rate := binary.LittleEndian.Uint32(out[24:28]); rate != 24000 {
		t.Fatalf("sample rate = %d", rate)
	}
	if size := binary.LittleEndian.Uint32(out[40:44]); size != uint32(len(pcm)) {
		t.Fatalf("data size = %d", size)
	}
	if !bytes.Equal(out[44:], pcm) {
		t.Fatalf("payload altered")
	}
}

func TestDuration(t *testing.T) {
	// one second of 24kHz 16-bit mono
	if d := Duration(DefaultParams, 48000); d != 1.0 {
		t.Fatalf("duration = %v", d)
	}
	if d := Duration(PCMParams{}, 48000); d != 0 {
		t.Fatalf("degenerate params must yield 0, got %v", d)
	}
}
