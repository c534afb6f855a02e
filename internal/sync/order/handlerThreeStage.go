package order

import (
	"context"

	"WooWithWasp/internal/sync"
)

// RemoveCompleted 3 этап
func (s *Service) RemoveCompleted(ctx context.Context, limit int) (*sync.BatchResult, error) {
	return sync.RemoveCompleted(ctx, s.table, s.now(), limit)
}
