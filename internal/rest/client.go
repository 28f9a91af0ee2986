// Package rest talks to the platform's HTTP API.
package rest

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// ErrUnsuccessful is returned when the platform answers with success=false.
var ErrUnsuccessful = errors.New("platform reported failure")

// DefaultTimeout applies when Options.Timeout is zero.
const DefaultTimeout = 15 * time.Second

// Options configures a Client.
type Options struct {
	BaseURL   string
	Token     string
	Timeout   time.Duration
	UserAgent string
	Logger    *zap.Logger
}

// Client is a thin typed wrapper over the platform REST API.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

// envelope is the response wrapper every platform endpoint uses.
type envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// APIError is a non-2xx answer from the platform.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("platform returned HTTP %d", e.Status)
	}
	return fmt.Sprintf("platform returned HTTP %d: %s", e.Status, e.Message)
}

// New builds a client for the given API.
func New(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = "gchatd"
	}

	h := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", ua)
	if opts.Token != "" {
		h.SetAuthToken(opts.Token)
	}
	return &Client{http: h, logger: logger}
}

// check turns a response into an error following the envelope contract.
func check[T any](resp *resty.Response, env *envelope[T]) error {
	if resp.IsError() {
		msg := ""
		if e, ok := resp.Error().(*envelope[T]); ok && e != nil {
			msg = e.Message
		}
		return &APIError{Status: resp.StatusCode(), Message: msg}
	}
	if !env.Success {
		if env.Message != "" {
			return fmt.Errorf("%w: %s", ErrUnsuccessful, env.Message)
		}
		return ErrUnsuccessful
	}
	return nil
}
