package adapter_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/newsdesk/pkg/adapter"
)

func TestRedisCounter(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL is not set")
	}

	ctx := context.Background()
	counter, err := adapter.NewRedisCounter(ctx, url, "newsdesk-test:")
	gt.NoError(t, err)
	defer counter.Close()

	key := uuid.NewString()
	for i := int64(1); i <= 3; i++ {
		n, err := counter.Incr(ctx, key, time.Minute)
		gt.NoError(t, err)
		gt.Equal(t, n, i)
	}
}

func TestRedisCounterInvalidURL(t *testing.T) {
	_, err := adapter.NewRedisCounter(context.Background(), "http://not-redis", "")
	gt.Error(t, err)
}
