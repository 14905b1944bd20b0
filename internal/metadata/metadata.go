package metadata

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/tcolgate/mp3"

	"news-reader/internal/models"
)

// ErrUnsupportedFormat is returned when no duration probe exists for a format.
var ErrUnsupportedFormat = errors.New("metadata: unsupported audio format")

// ProbeTrack constructs a metadata snapshot for the given audio file path.
func ProbeTrack(path string, root string) (models.Track, error) {
	info, err := os.Stat(path)
	if err != nil {
		return models.Track{}, err
	}

	relative, err := filepath.Rel(root, path)
	if err != nil {
		relative = filepath.Base(path)
	}
	relative = filepath.ToSlash(relative)

	title, artist := readTags(path)
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	var durationPtr *float64
	if f, err := os.Open(path); err == nil {
		dur, err := ProbeDuration(f, filepath.Ext(path))
		f.Close()
		if err == nil && dur > 0 {
			durationPtr = &dur
		}
	}

	return models.Track{
		ID:              relative,
		Filename:        filepath.Base(path),
		RelativePath:    relative,
		Title:           title,
		Artist:          artist,
		DurationSeconds: durationPtr,
		FilesizeBytes:   info.Size(),
		ModifiedAt:      info.ModTime().UTC().Round(time.Second),
	}, nil
}

// ProbeDuration returns the playing time in seconds of the audio stream read
// from r. The extension (".mp3", ".wav") selects the decoder.
func ProbeDuration(r io.Reader, ext string) (float64, error) {
	switch strings.ToLower(ext) {
	case ".mp3":
		return mp3Duration(r)
	case ".wav", ".wave":
		return wavDuration(r)
	}
	return 0, ErrUnsupportedFormat
}

func readTags(path string) (string, *string) {
	f, err := os.Open(path)
	if err != nil {
		return "", nil
	}
	defer f.Close()

	meta, err := tag.ReadFrom(f)
	if err != nil {
		return "", nil
	}

	return strings.TrimSpace(meta.Title()), optionalString(meta.Artist())
}

func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func mp3Duration(r io.Reader) (float64, error) {
	decoder := mp3.NewDecoder(r)
	var frame mp3.Frame
	var skipped int
	var total float64

	for {
		err := decoder.Decode(&frame, &skipped)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return 0, err
		}
		total += frame.Duration().Seconds()
	}

	return total, nil
}
