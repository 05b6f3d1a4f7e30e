package adapter

import (
	"bytes"
	"context"
	"io"
	"strconv"
	"sync"

	"github.com/m-mizutani/goerr/v2"
)

// MemoryStorage is a process-local Storage. It backs tests and `--storage memory`
// runs, and honours the same preconditions as the remote backends.
type MemoryStorage struct {
	mu      sync.Mutex
	objects map[string]*memoryObject
	nextGen int64
}

type memoryObject struct {
	data []byte
	gen  int64
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		objects: make(map[string]*memoryObject),
	}
}

func (m *MemoryStorage) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	obj, ok := m.objects[key]
	if !ok {
		return nil, "", goerr.Wrap(ErrObjectNotFound, "no such object", goerr.V("key", key))
	}

	data := make([]byte, len(obj.data))
	copy(data, obj.data)
	return io.NopCloser(bytes.NewReader(data)), strconv.FormatInt(obj.gen, 10), nil
}

func (m *MemoryStorage) Put(ctx context.Context, key string, opts ...PutOption) (io.WriteCloser, error) {
	return &memoryWriter{
		storage: m,
		key:     key,
		opts:    newPutOptions(opts...),
	}, nil
}

// Keys returns the keys currently stored
func (m *MemoryStorage) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	return keys
}

func (m *MemoryStorage) commit(key string, data []byte, opts PutOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, exists := m.objects[key]
	switch {
	case opts.MustNotExist && exists:
		return goerr.Wrap(ErrPreconditionFailed, "object already exists", goerr.V("key", key))
	case opts.Generation != "":
		if !exists || strconv.FormatInt(current.gen, 10) != opts.Generation {
			return goerr.Wrap(ErrPreconditionFailed, "object was modified",
				goerr.V("key", key),
				goerr.V("generation", opts.Generation))
		}
	}

	m.nextGen++
	m.objects[key] = &memoryObject{data: data, gen: m.nextGen}
	return nil
}

type memoryWriter struct {
	bytes.Buffer
	storage *MemoryStorage
	key     string
	opts    PutOptions
	closed  bool
}

func (w *memoryWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	data := make([]byte, w.Len())
	copy(data, w.Bytes())
	return w.storage.commit(w.key, data, w.opts)
}
