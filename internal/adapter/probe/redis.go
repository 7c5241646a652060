package probe

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/thushan/switchyard/internal/core/domain"
)

const (
	DefaultDialTimeout = 2 * time.Second
	DefaultPoolSize    = 2

	pongReply = "PONG"
)

// ErrUnexpectedReply is returned by command probes whose reply doesn't
// contain the expected text
var ErrUnexpectedReply = errors.New("unexpected reply")

type RedisOptions struct {
	Password    string
	DB          int
	PoolSize    int
	DialTimeout time.Duration
}

// RedisProbe owns one small client per endpoint. go-redis retries are
// disabled, the health check layer decides how often to retry.
type RedisProbe struct {
	client   *redis.Client
	endpoint domain.Endpoint
}

func NewRedisProbe(endpoint domain.Endpoint, opts RedisOptions) *RedisProbe {
	if opts.PoolSize <= 0 {
		opts.PoolSize = DefaultPoolSize
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = DefaultDialTimeout
	}
	return &RedisProbe{
		endpoint: endpoint,
		client: redis.NewClient(&redis.Options{
			Addr:        endpoint.String(),
			Password:    opts.Password,
			DB:          opts.DB,
			PoolSize:    opts.PoolSize,
			DialTimeout: opts.DialTimeout,
			MaxRetries:  -1,
		}),
	}
}

func (p *RedisProbe) Endpoint() domain.Endpoint {
	return p.endpoint
}

// Ping is healthy only on a PONG reply
func (p *RedisProbe) Ping(ctx context.Context) bool {
	reply, err := p.client.Ping(ctx).Result()
	return err == nil && reply == pongReply
}

// Command builds a probe that runs args and, when expect is set, requires the
// reply to contain it. Errors are returned for the check to classify.
func (p *RedisProbe) Command(expect string, args ...string) func(ctx context.Context) (bool, error) {
	cmdArgs := make([]interface{}, len(args))
	for i, arg := range args {
		cmdArgs[i] = arg
	}
	return func(ctx context.Context) (bool, error) {
		if len(cmdArgs) == 0 {
			return false, errors.New("empty redis command")
		}
		reply, err := p.client.Do(ctx, cmdArgs...).Result()
		if err != nil {
			return false, err
		}
		if expect == "" {
			return true, nil
		}
		text := replyText(reply)
		if !strings.Contains(text, expect) {
			return false, fmt.Errorf("%w: %q not found in %s reply", ErrUnexpectedReply, expect, strings.ToUpper(args[0]))
		}
		return true, nil
	}
}

func (p *RedisProbe) Close() error {
	return p.client.Close()
}

func replyText(reply interface{}) string {
	switch v := reply.(type) {
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case []interface{}:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = replyText(item)
		}
		return strings.Join(parts, "\n")
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Pool hands out one RedisProbe per endpoint and database
type Pool struct {
	probes *xsync.Map[string, *RedisProbe]
}

func NewPool() *Pool {
	return &Pool{probes: xsync.NewMap[string, *RedisProbe]()}
}

func (p *Pool) Get(endpoint domain.Endpoint, opts RedisOptions) *RedisProbe {
	key := poolKey(endpoint, opts.DB)
	probe, _ := p.probes.LoadOrCompute(key, func() (*RedisProbe, bool) {
		return NewRedisProbe(endpoint, opts), false
	})
	return probe
}

// Release closes every probe for endpoint
func (p *Pool) Release(endpoint domain.Endpoint) error {
	prefix := endpoint.String() + "/"
	var errs []error
	p.probes.Range(func(key string, probe *RedisProbe) bool {
		if strings.HasPrefix(key, prefix) {
			if removed, ok := p.probes.LoadAndDelete(key); ok {
				errs = append(errs, removed.Close())
			}
		}
		return true
	})
	return errors.Join(errs...)
}

func (p *Pool) CloseAll() error {
	var errs []error
	p.probes.Range(func(key string, probe *RedisProbe) bool {
		if removed, ok := p.probes.LoadAndDelete(key); ok {
			errs = append(errs, removed.Close())
		}
		return true
	})
	return errors.Join(errs...)
}

func (p *Pool) Size() int {
	return p.probes.Size()
}

func poolKey(endpoint domain.Endpoint, db int) string {
	return endpoint.String() + "/" + strconv.Itoa(db)
}
