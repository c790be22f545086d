package services

import (
	"context"
	"time"

	awspkg "github.com/yashrajoria/storefront-backend/pkg/aws"
)

// recordCount sends a counter in the background so metrics never add latency
// to a request. A nil or disabled recorder is ignored.
func recordCount(m awspkg.MetricsRecorder, name string, dimensions map[string]string) {
	if m == nil || !m.IsEnabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = m.RecordCount(ctx, name, dimensions)
	}()
}
