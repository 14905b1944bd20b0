package metadata

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"news-reader/internal/testutil"
)

func TestProbeTrackWithFallbackMetadata(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "sub")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	path := filepath.Join(sub, "Episode One.ogg")
	if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	track, err := ProbeTrack(path, root)
	if err != nil {
		t.Fatalf("ProbeTrack: %v", err)
	}

	relative := filepath.ToSlash(filepath.Join("sub", "Episode One.ogg"))
	if track.ID != relative {
		t.Fatalf("expected id %s, got %s", relative, track.ID)
	}
	if track.Title != "Episode One" {
		t.Fatalf("expected title fallback to file stem, got %s", track.Title)
	}
	if track.DurationSeconds != nil {
		t.Fatalf("expected duration to be nil for unsupported format")
	}

	stat, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	expectedTime := stat.ModTime().UTC().Round(time.Second)
	if !track.ModifiedAt.Equal(expectedTime) {
		t.Fatalf("expected modified time %s, got %s", expectedTime, track.ModifiedAt)
	}
}

func TestProbeTrackWAVDuration(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "test_audio.wav")
	testutil.WriteWAV(t, path, 1.5)

	track, err := ProbeTrack(path, root)
	if err != nil {
		t.Fatalf("ProbeTrack: %v", err)
	}
	if track.DurationSeconds == nil {
		t.Fatalf("expected wav duration")
	}
	if math.Abs(*track.DurationSeconds-1.5) > 1e-9 {
		t.Fatalf("expected 1.5s, got %f", *track.DurationSeconds)
	}
	if track.Filename != "test_audio.wav" || track.RelativePath != "test_audio.wav" {
		t.Fatalf("unexpected names %q %q", track.Filename, track.RelativePath)
	}
}

func TestProbeTrackWithInvalidMP3(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "broken.mp3")
	if err := os.WriteFile(path, []byte("not really an mp3"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	track, err := ProbeTrack(path, root)
	if err != nil {
		t.Fatalf("ProbeTrack unexpected error: %v", err)
	}
	if track.DurationSeconds != nil {
		t.Fatalf("expected duration to be nil on decode error")
	}
}

func TestProbeTrackNonexistentFile(t *testing.T) {
	root := t.TempDir()
	if _, err := ProbeTrack(filepath.Join(root, "missing.wav"), root); err == nil {
		t.Fatalf("expected error for nonexistent file")
	}
}

func TestProbeDuration(t *testing.T) {
	dur, err := ProbeDuration(bytes.NewReader(testutil.WAV(0.25)), ".WAV")
	if err != nil {
		t.Fatalf("ProbeDuration: %v", err)
	}
	if dur != 0.25 {
		t.Fatalf("expected 0.25s, got %f", dur)
	}

	if _, err := ProbeDuration(bytes.NewReader([]byte("RIFFxxxxJUNK")), ".wav"); err == nil {
		t.Fatalf("expected error for non-wave riff")
	}

	if _, err := ProbeDuration(bytes.NewReader([]byte("garbage")), ".mp3"); err == nil {
		t.Fatalf("expected decode error for invalid mp3 data")
	}

	if _, err := ProbeDuration(bytes.NewReader(nil), ".flac"); err != ErrUnsupportedFormat {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestReadTagsAndOptionalString(t *testing.T) {
	title, artist := readTags("/no/such/file.wav")
	if title != "" || artist != nil {
		t.Fatalf("expected empty metadata on failure")
	}

	if optionalString("   ") != nil {
		t.Fatalf("expected nil for whitespace input")
	}

	value := optionalString("value")
	if value == nil || *value != "value" {
		t.Fatalf("expected pointer to trimmed value")
	}
}
