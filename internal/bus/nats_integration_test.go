//go:build integration

package bus

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"

	"github.com/opensource-finance/propvest/internal/domain"
)

func TestNATSBusIntegration(t *testing.T) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker unavailable: %v", err)
	}

	resource, err := pool.Run("nats", "2-alpine", nil)
	if err != nil {
		t.Fatalf("start nats: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	cfg := domain.EventBusConfig{
		Type:              "nats",
		NATSUrl:           fmt.Sprintf("nats://localhost:%s", resource.GetPort("4222/tcp")),
		NATSMaxReconnects: 1,
		NATSReconnectWait: 1,
	}

	var b *NATSBus
	pool.MaxWait = 60 * time.Second
	if err := pool.Retry(func() error {
		var err error
		b, err = NewNATSBus(cfg)
		return err
	}); err != nil {
		t.Fatalf("connect nats: %v", err)
	}
	defer b.Close()

	ctx := context.Background()
	var got *domain.Message
	var wg sync.WaitGroup
	wg.Add(1)

	if _, err := b.Subscribe(ctx, domain.TopicPropertyAdded, func(ctx context.Context, msg *domain.Message) error {
		got = msg
		wg.Done()
		return nil
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := b.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	if err := b.Publish(ctx, domain.TopicPropertyAdded, []byte(`{"id":"p1"}`)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	waitFor(t, &wg, 5*time.Second)

	if string(got.Payload) != `{"id":"p1"}` {
		t.Errorf("unexpected payload %s", got.Payload)
	}
}
