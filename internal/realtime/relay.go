package realtime

import (
	"context"
	"strconv"
	"strings"

	"PulseLoop/internal/pkg"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "realtime:user:"

func Channel(userID uint64) string {
	return channelPrefix + strconv.FormatUint(userID, 10)
}

// RedisRelay 多实例部署时经 redis pub/sub 转发推送，每个实例投递到自己的 Hub
type RedisRelay struct {
	Client *redis.Client
	Hub    *Hub
}

func NewRedisRelay(client *redis.Client, hub *Hub) *RedisRelay {
	return &RedisRelay{Client: client, Hub: hub}
}

func (r *RedisRelay) Push(ctx context.Context, userID uint64, event string, payload any) error {
	frame, err := EncodeFrame(event, userID, payload)
	if err != nil {
		return err
	}
	return r.Client.Publish(ctx, Channel(userID), frame).Err()
}

// Run 订阅所有用户频道，直到 ctx 取消
func (r *RedisRelay) Run(ctx context.Context) {
	sub := r.Client.PSubscribe(ctx, channelPrefix+"*")
	defer sub.Close()

	ch := sub.Channel()
	pkg.Log.Info("realtime relay subscribed")
	for {
		select {
		case <-ctx.Done():
			pkg.Log.Info("realtime relay stopped")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			id, err := strconv.ParseUint(strings.TrimPrefix(msg.Channel, channelPrefix), 10, 64)
			if err != nil {
				pkg.Log.WithField("channel", msg.Channel).Warn("realtime relay: bad channel")
				continue
			}
			r.Hub.Deliver(id, []byte(msg.Payload))
		}
	}
}
