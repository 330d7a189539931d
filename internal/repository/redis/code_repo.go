package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultCodeTTL  = 10 * time.Minute
	CodePrefix      = "email:code"
	PendingSuffix   = "pending"
	ConfirmedSuffix = "confirmed"
)

var (
	ErrCodePendingFailed   = errors.New("code pending failed")
	ErrCodeConfirmedFailed = errors.New("code confirmed failed")
	ErrCodeMismatch        = errors.New("code invalid or expired")
)

// 取值 + 写入目标 + 设置 TTL + 删除源，原子执行
var confirmScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if not val then
  return 0
end
redis.call("SET", KEYS[2], val, "PX", ARGV[1])
redis.call("DEL", KEYS[1])
return 1
`)

// 比对成功才删除，保证验证码只能使用一次
var consumeScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val and val == ARGV[1] then
  redis.call("DEL", KEYS[1])
  return 1
end
return 0
`)

// CodeRepository 邮件验证码两阶段存储：发信前写 pending，发信成功后转为 confirmed
type CodeRepository struct {
	Client *redis.Client
	TTL    time.Duration
}

func (r *CodeRepository) key(scope, suffix, email string) string {
	return fmt.Sprintf("%s:%s:%s:%s", CodePrefix, scope, suffix, email)
}

func (r *CodeRepository) ttl() time.Duration {
	if r.TTL <= 0 {
		return DefaultCodeTTL
	}
	return r.TTL
}

func (r *CodeRepository) SavePending(ctx context.Context, scope, email, code string) error {
	if err := r.Client.Set(ctx, r.key(scope, PendingSuffix, email), code, r.ttl()).Err(); err != nil {
		return ErrCodePendingFailed
	}
	return nil
}

func (r *CodeRepository) Confirm(ctx context.Context, scope, email string) error {
	px := int64(r.ttl() / time.Millisecond)
	ok, err := confirmScript.Run(ctx, r.Client,
		[]string{r.key(scope, PendingSuffix, email), r.key(scope, ConfirmedSuffix, email)}, px).Int()
	if err != nil || ok != 1 {
		return ErrCodeConfirmedFailed
	}
	return nil
}

// DeletePending 幂等
func (r *CodeRepository) DeletePending(ctx context.Context, scope, email string) error {
	return r.Client.Del(ctx, r.key(scope, PendingSuffix, email)).Err()
}

func (r *CodeRepository) Consume(ctx context.Context, scope, email, code string) error {
	ok, err := consumeScript.Run(ctx, r.Client, []string{r.key(scope, ConfirmedSuffix, email)}, code).Int()
	if err != nil {
		return err
	}
	if ok != 1 {
		return ErrCodeMismatch
	}
	return nil
}
