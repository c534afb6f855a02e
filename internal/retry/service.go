package retry

import (
	"context"
	"fmt"

	"WooWithWasp/internal/database/model/option"
	"WooWithWasp/internal/database/model/retryqueue"
	"WooWithWasp/internal/database/model/syncrecord"
	"WooWithWasp/pkg/logging"

	"github.com/pkg/errors"
)

const DefaultBatchSize = 50

// Summary результат постановки в очередь повторов
type Summary struct {
	Added  int      `json:"added"`
	Found  int      `json:"found"`
	Errors []string `json:"errors,omitempty"`
}

// Stats счетчики для страницы повторов
type Stats struct {
	Ignored        int `json:"ignored"`
	Failed         int `json:"failed"`
	QueueTotal     int `json:"queue_total"`
	QueueCompleted int `json:"queue_completed"`
}

type Service struct {
	tables    map[syncrecord.Kind]*syncrecord.Table
	queue     *retryqueue.Queue
	options   *option.Options
	batchSize int
	auto      map[syncrecord.Kind]bool
}

func NewService(orders, salesReturns *syncrecord.Table, queue *retryqueue.Queue, options *option.Options, batchSize int) *Service {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Service{
		tables: map[syncrecord.Kind]*syncrecord.Table{
			syncrecord.KindOrder:       orders,
			syncrecord.KindSalesReturn: salesReturns,
		},
		queue:     queue,
		options:   options,
		batchSize: batchSize,
		auto:      make(map[syncrecord.Kind]bool),
	}
}

// WithAutoDefault значение флага автоповтора, пока он не сохранен в wasp_options
func (s *Service) WithAutoDefault(kind syncrecord.Kind, enabled bool) *Service {
	s.auto[kind] = enabled
	return s
}

func (s *Service) BatchSize() int {
	return s.batchSize
}

func (s *Service) table(kind syncrecord.Kind) (*syncrecord.Table, error) {
	t, ok := s.tables[kind]
	if !ok || t == nil {
		return nil, errors.Errorf("unknown kind %q", kind)
	}
	return t, nil
}

func optionName(kind syncrecord.Kind) string {
	return "retry_auto_" + string(kind)
}

// EnqueueDistressed ставит в очередь до limit записей FAILED/IGNORED и сразу
// возвращает их в PENDING. Записи, уже стоящие в очереди, пропускаются.
func (s *Service) EnqueueDistressed(ctx context.Context, kind syncrecord.Kind, limit int) (*Summary, error) {
	logger := logging.GetLogger()
	logger.Debugf("Start EnqueueDistressed(%s)", kind)
	defer logger.Debugf("End EnqueueDistressed(%s)", kind)

	table, err := s.table(kind)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.batchSize
	}

	records, err := table.SelectDistressed(ctx, limit)
	if err != nil {
		return nil, errors.Wrapf(err, "failed SelectDistressed(%s)", kind)
	}

	itemType := retryqueue.ItemTypeOf(kind)
	summary := &Summary{Found: len(records)}
	for _, r := range records {
		exists, err := s.queue.Exists(ctx, r.ID, itemType)
		if err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("id=%d: %v", r.ID, err))
			continue
		}
		if exists {
			logger.Debugf("%s id=%d уже в очереди повторов", kind, r.ID)
			continue
		}

		inserted, err := s.queue.Insert(ctx, &retryqueue.Entry{
			OriginalID:     r.ID,
			ItemType:       itemType,
			ItemNumber:     r.ItemNumber,
			OriginalStatus: r.Status,
		})
		if err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("id=%d: %v", r.ID, err))
			continue
		}
		if !inserted {
			continue
		}

		if err := s.RetrySingle(ctx, kind, r.ID); err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("id=%d: %v", r.ID, err))
			continue
		}
		summary.Added++
	}

	logger.Infof("retry %s: found=%d, added=%d, errors=%d", kind, summary.Found, summary.Added, len(summary.Errors))
	return summary, nil
}

// RetrySingle возвращает запись в PENDING и отмечает попытку в очереди, одной транзакцией.
// WASP API не вызывается, запись заберет следующая подготовка.
func (s *Service) RetrySingle(ctx context.Context, kind syncrecord.Kind, originalID int64) error {
	table, err := s.table(kind)
	if err != nil {
		return err
	}

	tx, err := table.DB().BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed BeginTxx")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := table.ResetToPending(ctx, tx, originalID); err != nil {
		return err
	}
	if err := s.queue.MarkRetried(ctx, tx, originalID, retryqueue.ItemTypeOf(kind)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed Commit")
	}
	return nil
}

func (s *Service) IsEnabled(ctx context.Context, kind syncrecord.Kind) (bool, error) {
	if _, err := s.table(kind); err != nil {
		return false, err
	}
	return s.options.GetBool(ctx, optionName(kind), s.auto[kind])
}

func (s *Service) Toggle(ctx context.Context, kind syncrecord.Kind, enabled bool) error {
	logger := logging.GetLogger()
	if _, err := s.table(kind); err != nil {
		return err
	}
	if err := s.options.SetBool(ctx, optionName(kind), enabled); err != nil {
		return errors.Wrapf(err, "failed Toggle(%s)", kind)
	}
	logger.Infof("автоповтор %s: %t", kind, enabled)
	return nil
}

// AutoEnqueue EnqueueDistressed с размером пачки из настроек, если автоповтор включен.
// nil без ошибки - автоповтор выключен.
func (s *Service) AutoEnqueue(ctx context.Context, kind syncrecord.Kind) (*Summary, error) {
	enabled, err := s.IsEnabled(ctx, kind)
	if err != nil {
		return nil, err
	}
	if !enabled {
		return nil, nil
	}
	return s.EnqueueDistressed(ctx, kind, s.batchSize)
}

// Stats COMPLETED в retry_status читается, но нигде не выставляется.
func (s *Service) Stats(ctx context.Context) (map[syncrecord.Kind]*Stats, error) {
	stats := make(map[syncrecord.Kind]*Stats, len(s.tables))
	for kind, table := range s.tables {
		counts, err := table.CountByStatus(ctx)
		if err != nil {
			return nil, err
		}
		itemType := retryqueue.ItemTypeOf(kind)
		total, err := s.queue.Count(ctx, itemType)
		if err != nil {
			return nil, err
		}
		completed, err := s.queue.CountByRetryStatus(ctx, itemType, retryqueue.RETRY_STATUS_COMPLETED)
		if err != nil {
			return nil, err
		}
		stats[kind] = &Stats{
			Ignored:        counts[syncrecord.STATUS_IGNORED],
			Failed:         counts[syncrecord.STATUS_FAILED],
			QueueTotal:     total,
			QueueCompleted: completed,
		}
	}
	return stats, nil
}

// TruncateQueue полная очистка очереди повторов
func (s *Service) TruncateQueue(ctx context.Context) (int64, error) {
	logger := logging.GetLogger()
	n, err := s.queue.Truncate(ctx)
	if err != nil {
		return 0, err
	}
	logger.Infof("очередь повторов очищена, удалено %d", n)
	return n, nil
}
