package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/bnema/shortsdash/internal/domain"
	"github.com/bnema/shortsdash/internal/infrastructure/logger"
	"github.com/bnema/shortsdash/internal/port"
)

const DefaultCookieName = "user_session"

var (
	// ErrUnavailable is returned while the circuit breaker is open.
	ErrUnavailable = errors.New("backend unavailable")

	errMalformedResponse = errors.New("failed to decode response")
)

type Options struct {
	BaseURL    string
	CookieName string
	// Timeout bounds request/response calls. Status streams are bounded by
	// their context only.
	Timeout time.Duration
	// HTTPClient is used for both kinds of calls when set.
	HTTPClient *http.Client
}

// Client talks to the video generation backend. It holds no credentials;
// ForSession binds it to one browser's session cookie.
type Client struct {
	baseURL    string
	cookieName string
	http       *http.Client
	stream     *http.Client
	breaker    *gobreaker.CircuitBreaker
}

func NewClient(opts Options) *Client {
	if opts.CookieName == "" {
		opts.CookieName = DefaultCookieName
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}

	httpClient := opts.HTTPClient
	streamClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
		streamClient = &http.Client{}
	}

	c := &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		cookieName: opts.CookieName,
		http:       httpClient,
		stream:     streamClient,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "backend",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		IsSuccessful: isBreakerSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn.Printf("circuit breaker %s: %s -> %s", name, from, to)
		},
	})
	return c
}

// isBreakerSuccess counts only transport failures and server errors against
// the backend. A body this client cannot decode came from a healthy server;
// it is one session's data problem and must not open the breaker for all.
func isBreakerSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, errMalformedResponse) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return !apiErr.Temporary()
	}
	return false
}

func (c *Client) BreakerState() gobreaker.State {
	return c.breaker.State()
}

// ForSession returns a port.Backend that authenticates as the owner of
// cookie.
func (c *Client) ForSession(cookie string) *Session {
	return &Session{client: c, cookie: cookie}
}

// Session is the backend as seen by one signed-in browser.
type Session struct {
	client *Client
	cookie string
}

var _ port.Backend = (*Session)(nil)

func (s *Session) ListVideos(ctx context.Context) ([]domain.Video, error) {
	var listed []domain.Video
	if err := s.do(ctx, http.MethodGet, "/videos/", nil, &listed); err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}

	videos := listed[:0]
	for _, v := range listed {
		if v.ID == "" {
			logger.Warn.Printf("skipping listed video without an id")
			continue
		}
		if v.Status == domain.VideoStatusUnknown {
			logger.Warn.Printf("video %s has unrecognized status %q",
				logger.SanitizeForLog(v.ID), logger.SanitizeForLog(v.RawStatus))
		}
		videos = append(videos, v)
	}
	return videos, nil
}

func (s *Session) CreateVideo(ctx context.Context, topic, voice string) (*domain.Video, error) {
	body, err := json.Marshal(domain.VideoRequest{Topic: topic, Voice: voice})
	if err != nil {
		return nil, err
	}

	var video domain.Video
	if err := s.do(ctx, http.MethodPost, "/videos/", body, &video); err != nil {
		return nil, fmt.Errorf("failed to create video: %w", err)
	}
	if video.ID == "" {
		return nil, fmt.Errorf("failed to create video: %w: record has no id", errMalformedResponse)
	}
	return &video, nil
}

func (s *Session) Me(ctx context.Context) (*domain.User, error) {
	var user domain.User
	if err := s.do(ctx, http.MethodGet, "/auth/me", nil, &user); err != nil {
		return nil, fmt.Errorf("failed to fetch current user: %w", err)
	}
	return &user, nil
}

func (s *Session) Logout(ctx context.Context) error {
	if err := s.do(ctx, http.MethodGet, "/logout", nil, nil); err != nil {
		return fmt.Errorf("failed to log out: %w", err)
	}
	return nil
}

// OpenStatusStream connects to the status feed of videoID. The connection
// lives until ctx is cancelled, the stream is closed or the server ends it.
func (s *Session) OpenStatusStream(ctx context.Context, videoID string) (port.StatusStream, error) {
	req, err := s.newRequest(ctx, http.MethodGet, "/videos/"+url.PathEscape(videoID)+"/status", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := s.client.stream.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to open status stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, fmt.Errorf("failed to open status stream: %w", readAPIError(resp))
	}
	return newStatusStream(resp.Body), nil
}

func (s *Session) newRequest(ctx context.Context, method, path string, body []byte) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.client.baseURL+path, r)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if s.cookie != "" {
		req.AddCookie(&http.Cookie{Name: s.client.cookieName, Value: s.cookie})
	}
	return req, nil
}

// do runs one request/response call through the circuit breaker and decodes
// a JSON answer into out when out is not nil.
func (s *Session) do(ctx context.Context, method, path string, body []byte, out any) error {
	_, err := s.client.breaker.Execute(func() (interface{}, error) {
		req, err := s.newRequest(ctx, method, path, body)
		if err != nil {
			return nil, err
		}

		resp, err := s.client.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, readAPIError(resp)
		}
		if out == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil, nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, fmt.Errorf("%w: %w", errMalformedResponse, err)
		}
		return nil, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}
