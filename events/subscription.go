package events

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// SubscribeUpdates listens on the Redis channel and forwards every event to
// handle. It reconnects when the subscription drops and returns when ctx is
// done.
func SubscribeUpdates(ctx context.Context, rc *redis.Client, channel string, handle func(Event)) {
	for {
		sub := rc.Subscribe(ctx, channel)
		ch := sub.Channel()
	receive:
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break receive
				}
				var ev Event
				if err := sonic.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					log.WithError(err).WithField("channel", channel).Error("unable to parse update")
					continue
				}
				handle(ev)
			}
		}
		_ = sub.Close()
		if ctx.Err() != nil {
			return
		}
		log.WithField("channel", channel).Error("pubsub channel closed, reconnecting")
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}
