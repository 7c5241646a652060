package util

import (
	"math"
	"testing"
)

func TestSafeInt64Diff(t *testing.T) {
	tests := []struct {
		u1, u2 uint64
		want   int64
	}{
		{u1: 10, u2: 3, want: 7},
		{u1: 3, u2: 10, want: 0},
		{u1: math.MaxUint64, u2: 0, want: 0},
		{u1: math.MaxInt64, u2: 0, want: math.MaxInt64},
	}
	for _, tt := range tests {
		if got := SafeInt64Diff(tt.u1, tt.u2); got != tt.want {
			t.Errorf("SafeInt64Diff(%d, %d) = %d, want %d", tt.u1, tt.u2, got, tt.want)
		}
	}
}
