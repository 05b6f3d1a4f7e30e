package article

import (
	"time"

	"github.com/m-mizutani/newsdesk/pkg/adapter"
	"github.com/m-mizutani/newsdesk/pkg/repository"
)

const (
	DefaultTimeout      = 60 * time.Second
	DefaultImageTimeout = 30 * time.Second
	DefaultMaxAttempts  = 3
	DefaultRetryBackoff = time.Second
)

// UseCase provides article generation and persistence
type UseCase struct {
	repo   repository.ArticleRepository
	gemini adapter.Gemini

	prompts      *Prompts
	timeout      time.Duration
	imageTimeout time.Duration
	maxAttempts  int
	retryBackoff time.Duration
	secrets      []string
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithPrompts replaces the built-in prompt templates
func WithPrompts(p *Prompts) Option {
	return func(uc *UseCase) {
		if p != nil {
			uc.prompts = p
		}
	}
}

// WithTimeout bounds the text generation call
func WithTimeout(d time.Duration) Option {
	return func(uc *UseCase) {
		uc.timeout = d
	}
}

// WithImageTimeout bounds the image generation call
func WithImageTimeout(d time.Duration) Option {
	return func(uc *UseCase) {
		uc.imageTimeout = d
	}
}

// WithRetry sets the number of attempts for transient provider failures and the
// initial backoff, which doubles after every attempt
func WithRetry(maxAttempts int, backoff time.Duration) Option {
	return func(uc *UseCase) {
		if maxAttempts > 0 {
			uc.maxAttempts = maxAttempts
		}
		uc.retryBackoff = backoff
	}
}

// WithSecrets registers values that must never appear in error messages returned to
// callers, such as the provider API key
func WithSecrets(secrets ...string) Option {
	return func(uc *UseCase) {
		for _, s := range secrets {
			if s != "" {
				uc.secrets = append(uc.secrets, s)
			}
		}
	}
}

// New creates a new article UseCase instance. gemini may be nil when no provider is
// configured; Generate then fails with a configuration error.
func New(
	repo repository.ArticleRepository,
	gemini adapter.Gemini,
	opts ...Option,
) *UseCase {
	uc := &UseCase{
		repo:         repo,
		gemini:       gemini,
		prompts:      DefaultPrompts(),
		timeout:      DefaultTimeout,
		imageTimeout: DefaultImageTimeout,
		maxAttempts:  DefaultMaxAttempts,
		retryBackoff: DefaultRetryBackoff,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}
