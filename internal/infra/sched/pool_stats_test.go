//go:build !integration

package sched

import (
	"context"
	"testing"
)

func TestPoolStatsReportsTotal(t *testing.T) {
	p := &PoolStats{stat: func() (int32, int32, int32) { return 7, 4, 3 }}
	n, err := p.Run(context.Background())
	if err != nil || n != 7 {
		t.Fatalf("Run = %d, %v", n, err)
	}
}
