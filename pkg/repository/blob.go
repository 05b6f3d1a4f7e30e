package repository

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/newsdesk/pkg/adapter"
	"github.com/m-mizutani/newsdesk/pkg/model"
	"github.com/m-mizutani/newsdesk/pkg/utils/logging"
)

const (
	DefaultArticlesKey   = "articles.json"
	DefaultCredentialKey = "config.json"
	DefaultMaxAttempts   = 5
)

// errRetry signals that a read-modify-write cycle lost a race and should start over
var errRetry = errors.New("document changed concurrently")

// Blob implements Repository on top of a document Storage. Every operation re-reads the
// whole document and writes it back conditioned on the generation it read.
type Blob struct {
	storage       adapter.Storage
	articlesKey   string
	credentialKey string
	maxAttempts   int
	newDefault    func() (*model.Credential, error)
}

var _ Repository = (*Blob)(nil)

type Option func(*Blob)

func WithArticlesKey(key string) Option {
	return func(b *Blob) {
		b.articlesKey = key
	}
}

func WithCredentialKey(key string) Option {
	return func(b *Blob) {
		b.credentialKey = key
	}
}

// WithMaxAttempts sets how many times a read-modify-write cycle is tried when another
// writer changes the document in between
func WithMaxAttempts(n int) Option {
	return func(b *Blob) {
		if n > 0 {
			b.maxAttempts = n
		}
	}
}

// WithDefaultCredential replaces the factory for the credential created on first read
func WithDefaultCredential(f func() (*model.Credential, error)) Option {
	return func(b *Blob) {
		b.newDefault = f
	}
}

// New creates a new Blob repository
func New(storage adapter.Storage, opts ...Option) *Blob {
	b := &Blob{
		storage:       storage,
		articlesKey:   DefaultArticlesKey,
		credentialKey: DefaultCredentialKey,
		maxAttempts:   DefaultMaxAttempts,
		newDefault: func() (*model.Credential, error) {
			return model.NewCredential(model.DefaultPassword)
		},
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// update runs fn until its write is not superseded by a concurrent writer
func (b *Blob) update(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	for attempt := 1; attempt <= b.maxAttempts; attempt++ {
		err := fn(ctx)
		if !errors.Is(err, errRetry) {
			return err
		}
		logging.From(ctx).Debug("document changed during update, retrying",
			"key", key,
			"attempt", attempt)
	}

	return goerr.New("too many concurrent updates",
		goerr.V("key", key),
		goerr.V("attempts", b.maxAttempts))
}

// commit saves value and converts a precondition failure into errRetry
func commit[T any](ctx context.Context, storage adapter.Storage, key string, value T, prev *document[T]) error {
	if err := saveDocument(ctx, storage, key, value, prev); err != nil {
		if errors.Is(err, adapter.ErrPreconditionFailed) {
			return errRetry
		}
		return err
	}
	return nil
}
