package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/micro-nova/audioconfig-go/internal/events"
	"github.com/micro-nova/audioconfig-go/internal/models"
)

// Publisher is the part of Client the forwarder needs.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Subscriber is the part of events.Bus the forwarder needs.
type Subscriber interface {
	Subscribe(id string) <-chan events.Update
	Unsubscribe(id string)
}

const subscriberID = "mqtt-forwarder"

// Forward publishes every bus update to topics.Update() until ctx is done.
// Publish failures are logged and the update is dropped; KindSent updates are
// skipped since a KindPut for the same key always precedes them.
func Forward(ctx context.Context, bus Subscriber, pub Publisher, topics Topics, qos byte) {
	ch := bus.Subscribe(subscriberID)
	defer bus.Unsubscribe(subscriberID)

	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-ch:
			if !ok {
				return
			}
			if u.Kind == events.KindSent {
				continue
			}
			data, err := json.Marshal(models.NewUpdate(string(u.Kind), u.Key))
			if err != nil {
				slog.Warn("mqtt: failed to encode update", "key", u.Key, "err", err)
				continue
			}
			if err := pub.Publish(topics.Update(), data, qos, false); err != nil {
				level := slog.LevelWarn
				if errors.Is(err, ErrNotConnected) {
					level = slog.LevelDebug
				}
				slog.Log(ctx, level, "mqtt: dropped update", "key", u.Key, "err", err)
			}
		}
	}
}
