package repository

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/newsdesk/pkg/adapter"
)

// document is a decoded JSON document together with the generation it was read at
type document[T any] struct {
	value      T
	generation string
	exists     bool
}

// loadDocument reads and decodes the document at key. A missing document is reported
// with exists == false rather than an error.
func loadDocument[T any](ctx context.Context, storage adapter.Storage, key string) (*document[T], error) {
	reader, gen, err := storage.Get(ctx, key)
	if err != nil {
		if errors.Is(err, adapter.ErrObjectNotFound) {
			return &document[T]{}, nil
		}
		return nil, goerr.Wrap(err, "failed to get document", goerr.V("key", key))
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read document", goerr.V("key", key))
	}

	doc := &document[T]{generation: gen, exists: true}
	if err := json.Unmarshal(data, &doc.value); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal document", goerr.V("key", key))
	}

	return doc, nil
}

// saveDocument writes value to key on condition that the stored document is still the
// one described by prev. A nil prev writes unconditionally.
func saveDocument[T any](ctx context.Context, storage adapter.Storage, key string, value T, prev *document[T]) error {
	data, err := json.Marshal(value)
	if err != nil {
		return goerr.Wrap(err, "failed to marshal document", goerr.V("key", key))
	}

	var opts []adapter.PutOption
	if prev != nil {
		if prev.exists {
			opts = append(opts, adapter.IfGenerationMatch(prev.generation))
		} else {
			opts = append(opts, adapter.IfNotExist())
		}
	}

	writer, err := storage.Put(ctx, key, opts...)
	if err != nil {
		return goerr.Wrap(err, "failed to create storage writer", goerr.V("key", key))
	}

	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return goerr.Wrap(err, "failed to write document", goerr.V("key", key))
	}

	if err := writer.Close(); err != nil {
		return goerr.Wrap(err, "failed to close storage writer", goerr.V("key", key))
	}

	return nil
}
