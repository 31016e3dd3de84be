package go_storefront

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stremovskyy/recorder"

	"github.com/merchkit/go-storefront/consts"
	"github.com/merchkit/go-storefront/log"
)

type Option func(*config) error

type config struct {
	baseURL     string
	accessToken string

	httpClient *http.Client
	logger     log.Logger
	logBodies  bool

	retryAttempts     int
	retryWait         time.Duration
	requestsPerSecond int
	recorder          recorder.Recorder
}

func defaultConfig() config {
	return config{
		baseURL:       consts.DefaultBaseURL,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		logger:        log.NewDefault(),
		retryAttempts: 1,
		retryWait:     300 * time.Millisecond,
	}
}

// WithBaseURL points the client at a different API host.
func WithBaseURL(baseURL string) Option {
	return func(cfg *config) error {
		if baseURL == "" {
			return errors.New("base url is empty")
		}
		cfg.baseURL = baseURL
		return nil
	}
}

// WithAccessToken sets the storefront access token sent as a bearer header.
func WithAccessToken(token string) Option {
	return func(cfg *config) error {
		token = strings.TrimSpace(token)
		if token == "" {
			return errors.New("access token is empty")
		}
		cfg.accessToken = token
		return nil
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(client *http.Client) Option {
	return func(cfg *config) error {
		if client == nil {
			return errors.New("http client is nil")
		}
		cfg.httpClient = client
		return nil
	}
}

// WithTimeout sets http client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(cfg *config) error {
		if timeout <= 0 {
			return errors.New("timeout must be > 0")
		}
		cfg.httpClient.Timeout = timeout
		return nil
	}
}

func WithLogger(logger log.Logger) Option {
	return func(cfg *config) error {
		if logger == nil {
			cfg.logger = log.NopLogger{}
			return nil
		}
		cfg.logger = logger
		return nil
	}
}

// WithLogrus is a convenience wrapper around WithLogger(log.NewLogrus(l)).
func WithLogrus(l logrus.FieldLogger) Option {
	return WithLogger(log.NewLogrus(l))
}

// WithLogHTTPBodies enables verbose request/response body logging for debugging.
//
// Disabled by default because bodies may contain shopper contact data.
func WithLogHTTPBodies(enabled bool) Option {
	return func(cfg *config) error {
		cfg.logBodies = enabled
		return nil
	}
}

// WithRecorder attaches a request/response recorder.
func WithRecorder(r recorder.Recorder) Option {
	return func(cfg *config) error {
		cfg.recorder = r
		return nil
	}
}

func WithRetry(attempts int, wait time.Duration) Option {
	return func(cfg *config) error {
		if attempts <= 0 {
			return errors.New("retry attempts must be > 0")
		}
		if wait <= 0 {
			return errors.New("retry wait must be > 0")
		}
		cfg.retryAttempts = attempts
		cfg.retryWait = wait
		return nil
	}
}

// WithRateLimit caps outgoing requests per second. Zero disables the limiter.
func WithRateLimit(requestsPerSecond int) Option {
	return func(cfg *config) error {
		if requestsPerSecond < 0 {
			return errors.New("requests per second must be >= 0")
		}
		cfg.requestsPerSecond = requestsPerSecond
		return nil
	}
}
