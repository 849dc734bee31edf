package gcpclient

import (
	"context"
	"fmt"
	"sync"

	"cloud.google.com/go/pubsub"
)

// PubSubAdapter wraps a Pub/Sub client to implement service.BusPublisher,
// caching one *pubsub.Topic handle per topic name for the lifetime of the
// process the way a shared client is meant to be reused (spec.md §5).
type PubSubAdapter struct {
	client *pubsub.Client

	mu     sync.Mutex
	topics map[string]*pubsub.Topic
}

// NewPubSubAdapter creates a PubSubAdapter bound to project.
func NewPubSubAdapter(ctx context.Context, project string) (*PubSubAdapter, error) {
	client, err := pubsub.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("gcpclient.NewPubSubAdapter: %w", err)
	}
	return &PubSubAdapter{client: client, topics: make(map[string]*pubsub.Topic)}, nil
}

// Publish publishes payload to topic and blocks until the publish completes
// or ctx is done.
func (a *PubSubAdapter) Publish(ctx context.Context, topic string, payload []byte) error {
	t := a.topic(topic)
	result := t.Publish(ctx, &pubsub.Message{Data: payload})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("gcpclient.Publish %s: %w", topic, err)
	}
	return nil
}

func (a *PubSubAdapter) topic(name string) *pubsub.Topic {
	a.mu.Lock()
	defer a.mu.Unlock()
	if t, ok := a.topics[name]; ok {
		return t
	}
	t := a.client.Topic(name)
	a.topics[name] = t
	return t
}

// Close stops all cached topics and closes the underlying client.
func (a *PubSubAdapter) Close() {
	a.mu.Lock()
	for _, t := range a.topics {
		t.Stop()
	}
	a.mu.Unlock()
	a.client.Close()
}
