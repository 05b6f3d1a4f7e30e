package adapter

import (
	"bytes"
	"context"
	"io"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// firestoreStorage implements Storage interface with one Firestore document per key.
// Documents are limited to 1 MiB, so articles with large embedded images may not fit.
type firestoreStorage struct {
	client     *firestore.Client
	collection string
}

type firestoreDocument struct {
	Data string `firestore:"data"`
}

// NewFirestoreStorage creates a new Firestore backed Storage
func NewFirestoreStorage(ctx context.Context, projectID, databaseID, collection string) (Storage, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project", projectID),
			goerr.V("database", databaseID))
	}

	return &firestoreStorage{
		client:     client,
		collection: collection,
	}, nil
}

// docRef maps key to a document ID. Firestore IDs cannot contain '/'.
func (s *firestoreStorage) docRef(key string) *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(strings.ReplaceAll(key, "/", "__"))
}

func (s *firestoreStorage) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	snap, err := s.docRef(key).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, "", goerr.Wrap(ErrObjectNotFound, "no such document", goerr.V("key", key))
		}
		return nil, "", goerr.Wrap(err, "failed to get document", goerr.V("key", key))
	}

	var doc firestoreDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, "", goerr.Wrap(err, "failed to decode document", goerr.V("key", key))
	}

	gen := strconv.FormatInt(snap.UpdateTime.UnixNano(), 10)
	return io.NopCloser(strings.NewReader(doc.Data)), gen, nil
}

func (s *firestoreStorage) Put(ctx context.Context, key string, opts ...PutOption) (io.WriteCloser, error) {
	o := newPutOptions(opts...)
	if o.Generation != "" {
		if _, err := strconv.ParseInt(o.Generation, 10, 64); err != nil {
			return nil, goerr.Wrap(err, "invalid generation", goerr.V("key", key), goerr.V("generation", o.Generation))
		}
	}

	return &firestoreWriter{
		ctx:     ctx,
		storage: s,
		key:     key,
		opts:    o,
	}, nil
}

type firestoreWriter struct {
	bytes.Buffer
	ctx     context.Context
	storage *firestoreStorage
	key     string
	opts    PutOptions
}

func (w *firestoreWriter) Close() error {
	ref := w.storage.docRef(w.key)
	data := w.String()

	var err error
	switch {
	case w.opts.MustNotExist:
		_, err = ref.Create(w.ctx, firestoreDocument{Data: data})
	case w.opts.Generation != "":
		nanos, _ := strconv.ParseInt(w.opts.Generation, 10, 64)
		_, err = ref.Update(w.ctx,
			[]firestore.Update{{Path: "data", Value: data}},
			firestore.LastUpdateTime(time.Unix(0, nanos)),
		)
	default:
		_, err = ref.Set(w.ctx, firestoreDocument{Data: data})
	}

	if err != nil {
		switch status.Code(err) {
		case codes.AlreadyExists, codes.FailedPrecondition, codes.NotFound:
			return goerr.Wrap(ErrPreconditionFailed, "document was modified", goerr.V("key", w.key))
		}
		return goerr.Wrap(err, "failed to write document", goerr.V("key", w.key))
	}
	return nil
}
