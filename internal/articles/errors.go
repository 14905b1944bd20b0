package articles

import (
	"errors"
	"fmt"
)

// ErrFetchFailed matches every error returned by Fetcher.Fetch.
var ErrFetchFailed = errors.New("articles: fetch failed")

// fetchFailedMessage is shown to readers when the article source answered
// with a non-success status.
const fetchFailedMessage = "Failed to fetch article"

// HTTPError represents a non-success response from an article source.
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for %s", e.StatusCode, e.URL)
}

// FetchError records which source failed and why.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch article %q: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() []error {
	return []error{ErrFetchFailed, e.Err}
}

// UserMessage returns the text shown to the reader for a fetch error.
// Status failures collapse into a generic message; transport and decoding
// errors surface their own text.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return fetchFailedMessage
	}
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) && fetchErr.Err != nil {
		return fetchErr.Err.Error()
	}
	return err.Error()
}
