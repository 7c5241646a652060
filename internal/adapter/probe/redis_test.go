package probe

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thushan/switchyard/internal/core/domain"
)

// closedEndpoint returns an address nothing is listening on
func closedEndpoint(t *testing.T) domain.Endpoint {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	_, portStr, _ := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, ln.Close())
	port, _ := strconv.Atoi(portStr)
	return domain.NewEndpoint("127.0.0.1", port)
}

func TestRedisProbe_UnreachableEndpoint(t *testing.T) {
	ep := closedEndpoint(t)
	p := NewRedisProbe(ep, RedisOptions{DialTimeout: 200 * time.Millisecond})
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	assert.False(t, p.Ping(ctx))

	ok, err := p.Command("", "INFO", "replication")(ctx)
	assert.False(t, ok)
	var netErr net.Error
	assert.ErrorAs(t, err, &netErr)
	assert.Equal(t, ep, p.Endpoint())
}

func TestReplyText(t *testing.T) {
	tests := []struct {
		reply interface{}
		want  string
	}{
		{reply: "role:master", want: "role:master"},
		{reply: int64(42), want: "42"},
		{reply: []interface{}{"a", int64(1)}, want: "a\n1"},
		{reply: nil, want: ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, replyText(tt.reply))
	}
}

func TestPool_ReusesProbesPerEndpointAndDB(t *testing.T) {
	pool := NewPool()
	a := domain.NewEndpoint("redis-a", 6379)
	b := domain.NewEndpoint("redis-b", 6379)

	first := pool.Get(a, RedisOptions{})
	assert.Same(t, first, pool.Get(a, RedisOptions{}))
	assert.NotSame(t, first, pool.Get(a, RedisOptions{DB: 1}))
	pool.Get(b, RedisOptions{})
	assert.Equal(t, 3, pool.Size())

	require.NoError(t, pool.Release(a))
	assert.Equal(t, 1, pool.Size())

	require.NoError(t, pool.CloseAll())
	assert.Equal(t, 0, pool.Size())
}
