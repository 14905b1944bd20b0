package session

import (
	"news-reader/internal/models"
	"news-reader/internal/playback"
)

// View is a consistent snapshot of a session for rendering.
type View struct {
	ID             string                   `json:"id"`
	Status         Status                   `json:"status"`
	Error          string                   `json:"error,omitempty"`
	Article        *models.Article          `json:"article,omitempty"`
	HTML           string                   `json:"html,omitempty"`
	Index          int                      `json:"index"`
	Count          int                      `json:"count"`
	Descriptor     models.ArticleDescriptor `json:"descriptor"`
	Rating         models.Rating            `json:"rating"`
	ReelOpen       bool                     `json:"reel_open"`
	Playback       models.PlaybackState     `json:"playback"`
	PlaybackStatus playback.Status          `json:"playback_status"`
	PlaybackError  string                   `json:"playback_error,omitempty"`
	Waveform       []playback.Bar           `json:"waveform"`
}

// View snapshots the session. Waveform heights are redrawn on every call.
func (s *Session) View() View {
	state := s.player.State()
	status := s.player.Status()
	var playbackErr string
	if err := s.player.Failure(); err != nil {
		playbackErr = err.Error()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		ID:             s.id,
		Error:          s.errMsg,
		Index:          s.index,
		Count:          s.catalog.Len(),
		Rating:         s.rating,
		ReelOpen:       s.reelOpen,
		Playback:       state,
		PlaybackStatus: status,
		PlaybackError:  playbackErr,
		Waveform:       playback.Waveform(state, s.rnd),
	}
	v.Descriptor, _ = s.catalog.At(s.index)

	switch {
	case s.loading > 0:
		v.Status = StatusLoading
	case s.errMsg != "":
		v.Status = StatusError
	case s.article == nil:
		v.Status = StatusEmpty
	default:
		v.Status = StatusReady
	}

	if s.article != nil && v.Status == StatusReady {
		article := *s.article
		v.Article = &article
		v.HTML = s.html
	}
	return v
}
