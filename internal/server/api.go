package server

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"news-reader/internal/articles"
	"news-reader/internal/models"
	"news-reader/internal/playback"
	"news-reader/internal/session"
)

const maxBodyBytes = 1 << 20

// action mutates a session on behalf of a form post or an API call.
type action func(r *http.Request, sess *session.Session) error

// requestError is a client mistake reported with its status code.
type requestError struct {
	status int
	msg    string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(msg string) error {
	return &requestError{status: http.StatusBadRequest, msg: msg}
}

func statusFor(err error) int {
	var reqErr *requestError
	switch {
	case errors.As(err, &reqErr):
		return reqErr.status
	case errors.Is(err, articles.ErrFetchFailed):
		return http.StatusBadGateway
	case errors.Is(err, session.ErrNoArticle),
		errors.Is(err, playback.ErrNoResource),
		errors.Is(err, playback.ErrFailed),
		errors.Is(err, playback.ErrClosed):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

type errorResponse struct {
	Error string        `json:"error"`
	View  *session.View `json:"view,omitempty"`
}

// formAction runs act and sends the browser back to the page, which shows
// any outcome through the session view.
func (h *serverHandler) formAction(act action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := h.session(w, r)
		if err := act(r, sess); err != nil {
			h.logger.Debug().Err(err).Str("path", r.URL.Path).Msg("form action failed")
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

func (h *serverHandler) apiAction(act action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := h.session(w, r)
		if err := act(r, sess); err != nil {
			status := statusFor(err)
			if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
				h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("api action failed")
			}
			view := sess.View()
			message := err.Error()
			if errors.Is(err, articles.ErrFetchFailed) {
				message = articles.UserMessage(err)
			}
			writeJSON(w, status, errorResponse{Error: message, View: &view})
			return
		}
		writeJSON(w, http.StatusOK, sess.View())
	}
}

func (h *serverHandler) handleAPISession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.session(w, r).View())
}

func (h *serverHandler) handleRender(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "markdown body too large"})
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, h.renderer.Render(string(body)))
}

func (h *serverHandler) doGenerate(r *http.Request, sess *session.Session) error {
	return sess.Generate(r.Context())
}

func (h *serverHandler) doNext(r *http.Request, sess *session.Session) error {
	return sess.Next(r.Context())
}

func (h *serverHandler) doToggle(_ *http.Request, sess *session.Session) error {
	return sess.PlayPause()
}

func (h *serverHandler) doReelOpen(_ *http.Request, sess *session.Session) error {
	sess.OpenReel()
	return nil
}

func (h *serverHandler) doReelClose(_ *http.Request, sess *session.Session) error {
	sess.CloseReel()
	return nil
}

func (h *serverHandler) doFormSeek(r *http.Request, sess *session.Session) error {
	position, err := strconv.ParseFloat(strings.TrimSpace(r.FormValue("position")), 64)
	if err != nil || math.IsNaN(position) || math.IsInf(position, 0) {
		return badRequest("position must be a finite number")
	}
	_, err = sess.Seek(position)
	return err
}

func (h *serverHandler) doFormRating(r *http.Request, sess *session.Session) error {
	rating, err := parseSelectedRating(r.PathValue("rating"))
	if err != nil {
		return err
	}
	sess.SetRating(rating)
	return nil
}

func (h *serverHandler) doAPISeek(r *http.Request, sess *session.Session) error {
	var body struct {
		Position *float64 `json:"position"`
	}
	if err := decodeBody(r, &body); err != nil {
		return err
	}
	if body.Position == nil {
		return badRequest("position is required")
	}
	_, err := sess.Seek(*body.Position)
	return err
}

func (h *serverHandler) doAPIRating(r *http.Request, sess *session.Session) error {
	var body struct {
		Rating string `json:"rating"`
	}
	if err := decodeBody(r, &body); err != nil {
		return err
	}
	rating, err := parseSelectedRating(body.Rating)
	if err != nil {
		return err
	}
	sess.SetRating(rating)
	return nil
}

func (h *serverHandler) doAPIReel(r *http.Request, sess *session.Session) error {
	var body struct {
		Open bool `json:"open"`
	}
	if err := decodeBody(r, &body); err != nil {
		return err
	}
	if body.Open {
		sess.OpenReel()
	} else {
		sess.CloseReel()
	}
	return nil
}

// parseSelectedRating accepts the two rating buttons; clearing happens by
// selecting the active one again.
func parseSelectedRating(value string) (models.Rating, error) {
	rating, err := models.ParseRating(strings.ToLower(strings.TrimSpace(value)))
	if err != nil || rating == models.RatingNone {
		return models.RatingNone, badRequest(`rating must be "up" or "down"`)
	}
	return rating, nil
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest("invalid JSON body: " + err.Error())
	}
	return nil
}
