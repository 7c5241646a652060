package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBytes(t *testing.T) {
	assert.Equal(t, "512 B", Bytes(512))
	assert.Equal(t, "1.00 KB", Bytes(1024))
	assert.Equal(t, "1.50 MB", Bytes(1024*1024*3/2))
}

func TestDuration(t *testing.T) {
	assert.Equal(t, "250ms", Duration(250*time.Millisecond))
	assert.Equal(t, "42s", Duration(42*time.Second))
	assert.Equal(t, "3m5s", Duration(3*time.Minute+5*time.Second))
	assert.Equal(t, "2h0m1s", Duration(2*time.Hour+time.Second))
}

func TestEndpointsUp(t *testing.T) {
	assert.Equal(t, "2/3", EndpointsUp(2, 3))
	assert.Equal(t, "11/12", EndpointsUp(11, 12))
}

func TestPercentageAndLatency(t *testing.T) {
	assert.Equal(t, "0%", Percentage(0))
	assert.Equal(t, "100%", Percentage(100))
	assert.Equal(t, "75.0%", Percentage(75))

	assert.Equal(t, "0ms", Latency(0))
	assert.Equal(t, "7ms", Latency(7))
	assert.Equal(t, "42ms", Latency(42))
	assert.Equal(t, "1.5s", Latency(1500))
}

func TestTimeAgo(t *testing.T) {
	assert.Equal(t, "never", TimeAgo(time.Time{}))
	assert.Equal(t, "5m ago", TimeAgo(time.Now().Add(-5*time.Minute)))
	assert.Equal(t, "2d ago", TimeAgo(time.Now().Add(-48*time.Hour)))
}
