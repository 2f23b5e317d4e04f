package ics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	appLog "eventme/internal/log"
)

// maxFeedSize bounds a single ICS payload.
const maxFeedSize = 8 << 20

// ErrFeedTooLarge is returned for payloads over the loader's size limit.
var ErrFeedTooLarge = errors.New("ics feed exceeds size limit")

// Loader reads ICS payloads from http(s) URLs or local files.
type Loader struct {
	client  *http.Client
	maxSize int64
}

// NewLoader returns a Loader with a bounded HTTP timeout.
func NewLoader() *Loader {
	return &Loader{client: &http.Client{Timeout: 15 * time.Second}, maxSize: maxFeedSize}
}

// Load fetches the payload at location. Anything that is not an http(s) URL
// is treated as a file path.
func (l *Loader) Load(ctx context.Context, location string) ([]byte, error) {
	if location == "" {
		return nil, errors.New("source location is empty")
	}
	if !strings.HasPrefix(location, "http://") && !strings.HasPrefix(location, "https://") {
		f, err := os.Open(location)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return l.readLimited(f)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, err
	}
	appLog.Info("ics fetch start", "url", redactURL(location))

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ics fetch %s: %s", redactURL(location), resp.Status)
	}
	return l.readLimited(resp.Body)
}

// readLimited reads one byte past the limit so an oversized payload fails
// instead of being parsed truncated.
func (l *Loader) readLimited(r io.Reader) ([]byte, error) {
	limit := l.maxSize
	if limit <= 0 {
		limit = maxFeedSize
	}
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrFeedTooLarge, limit)
	}
	return body, nil
}

// redactURL keeps scheme and host only; feed paths often embed tokens.
func redactURL(u string) string {
	const redactedSuffix = "/...(redacted)"
	_, rest, ok := strings.Cut(u, "://")
	if !ok {
		return "ics://...(redacted)"
	}
	host, _, _ := strings.Cut(rest, "/")
	return u[:len(u)-len(rest)] + host + redactedSuffix
}
