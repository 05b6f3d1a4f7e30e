package adapter

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/googleapi"
)

var (
	// ErrObjectNotFound is returned by Storage.Get when no object exists at the key
	ErrObjectNotFound = goerr.New("object not found")
	// ErrPreconditionFailed is returned when closing a conditional Put writer after
	// another writer changed the object
	ErrPreconditionFailed = goerr.New("precondition failed")
)

// Storage is the interface for named document storage
type Storage interface {
	// Get opens the object at key and returns its current generation token
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
	// Put returns a writer that replaces the object at key. The object is committed on
	// Close, which also reports precondition failures.
	Put(ctx context.Context, key string, opts ...PutOption) (io.WriteCloser, error)
}

// PutOptions holds write preconditions. The zero value writes unconditionally.
type PutOptions struct {
	Generation   string
	MustNotExist bool
}

type PutOption func(*PutOptions)

// IfGenerationMatch only commits the write while the stored generation equals gen
func IfGenerationMatch(gen string) PutOption {
	return func(o *PutOptions) {
		o.Generation = gen
		o.MustNotExist = false
	}
}

// IfNotExist only commits the write when no object exists at the key
func IfNotExist() PutOption {
	return func(o *PutOptions) {
		o.Generation = ""
		o.MustNotExist = true
	}
}

func newPutOptions(opts ...PutOption) PutOptions {
	var o PutOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// storageClient implements Storage interface using Cloud Storage
type storageClient struct {
	bucketName string
	prefix     string
	client     *storage.Client
}

// NewStorage creates a new Cloud Storage client. Object keys are prefixed with prefix.
func NewStorage(ctx context.Context, bucketName, prefix string) (Storage, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client")
	}

	return &storageClient{
		bucketName: bucketName,
		prefix:     prefix,
		client:     client,
	}, nil
}

func (s *storageClient) object(key string) *storage.ObjectHandle {
	return s.client.Bucket(s.bucketName).Object(s.prefix + key)
}

func (s *storageClient) Put(ctx context.Context, key string, opts ...PutOption) (io.WriteCloser, error) {
	o := newPutOptions(opts...)
	obj := s.object(key)

	switch {
	case o.MustNotExist:
		obj = obj.If(storage.Conditions{DoesNotExist: true})
	case o.Generation != "":
		gen, err := strconv.ParseInt(o.Generation, 10, 64)
		if err != nil {
			return nil, goerr.Wrap(err, "invalid generation", goerr.V("key", key), goerr.V("generation", o.Generation))
		}
		obj = obj.If(storage.Conditions{GenerationMatch: gen})
	}

	writer := obj.NewWriter(ctx)
	writer.ContentType = "application/json"
	return &gcsWriter{Writer: writer, key: key}, nil
}

func (s *storageClient) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	reader, err := s.object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, "", goerr.Wrap(ErrObjectNotFound, "no such object", goerr.V("key", key))
		}
		return nil, "", goerr.Wrap(err, "failed to read from storage", goerr.V("key", key))
	}

	return reader, strconv.FormatInt(reader.Attrs.Generation, 10), nil
}

type gcsWriter struct {
	*storage.Writer
	key string
}

func (w *gcsWriter) Close() error {
	if err := w.Writer.Close(); err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusPreconditionFailed {
			return goerr.Wrap(ErrPreconditionFailed, "object was modified", goerr.V("key", w.key))
		}
		return goerr.Wrap(err, "failed to write to storage", goerr.V("key", w.key))
	}
	return nil
}
