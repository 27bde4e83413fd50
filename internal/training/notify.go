package training

import (
	"context"
	"time"

	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/artifact"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/resilience"
)

// Notifier announces a freshly saved artifact.
type Notifier interface {
	ModelUpdated(ctx context.Context, event artifact.UpdatedEvent) error
}

// KafkaNotifier publishes UpdatedEvent to the model-updates topic, retrying
// transient broker errors.
type KafkaNotifier struct {
	publisher kafka.Publisher
	retry     resilience.RetryConfig
}

func NewKafkaNotifier(publisher kafka.Publisher) *KafkaNotifier {
	return &KafkaNotifier{
		publisher: publisher,
		retry: resilience.RetryConfig{
			MaxAttempts:  5,
			InitialDelay: 200 * time.Millisecond,
			MaxDelay:     5 * time.Second,
		},
	}
}

func (n *KafkaNotifier) ModelUpdated(ctx context.Context, event artifact.UpdatedEvent) error {
	return resilience.Retry(ctx, "publish-model-updated", n.retry, func() error {
		return n.publisher.Publish(ctx, kafka.Event{
			Key:   event.Location,
			Value: event,
		})
	})
}
