package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"WooWithWasp/internal/database"
	"WooWithWasp/internal/database/model/option"
	syncpkg "WooWithWasp/internal/sync"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type notifierMock struct {
	mu   sync.Mutex
	sent []string
}

func (n *notifierMock) Send(text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, text)
	return nil
}

func (n *notifierMock) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

func newOptions(t *testing.T) *option.Options {
	t.Helper()
	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return option.NewOptions(db)
}

func result(errorCount int) *syncpkg.BatchResult {
	r := syncpkg.NewBatchResult()
	r.Message = "done"
	r.Summary.TotalProcessed = 3
	r.Summary.ErrorCount = errorCount
	return r
}

func TestRunNowNotifiesOnErrors(t *testing.T) {
	ctx := context.Background()
	notifier := new(notifierMock)
	s := New(newOptions(t), notifier)

	s.Register(JOB_PREPARE_ORDERS, time.Minute, true, func(ctx context.Context) (*syncpkg.BatchResult, error) {
		return result(0), nil
	})
	s.Register(JOB_IMPORT_ORDERS, time.Minute, true, func(ctx context.Context) (*syncpkg.BatchResult, error) {
		return result(2), nil
	})
	s.Register(JOB_TRUNCATE_RETRY_QUEUE, time.Minute, true, func(ctx context.Context) (*syncpkg.BatchResult, error) {
		return nil, errors.New("db locked")
	})

	run, err := s.RunNow(ctx, JOB_PREPARE_ORDERS)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.True(t, run.Manual)
	assert.Equal(t, 0, notifier.count())

	run, err = s.RunNow(ctx, JOB_IMPORT_ORDERS)
	require.NoError(t, err)
	assert.Equal(t, 2, run.Result.Summary.ErrorCount)
	assert.Equal(t, 1, notifier.count())

	run, err = s.RunNow(ctx, JOB_TRUNCATE_RETRY_QUEUE)
	require.NoError(t, err)
	assert.Equal(t, "db locked", run.Error)
	assert.Equal(t, 2, notifier.count())

	_, err = s.RunNow(ctx, "unknown")
	assert.True(t, errors.Is(err, ErrUnknownJob))
}

func TestTogglePersists(t *testing.T) {
	ctx := context.Background()
	options := newOptions(t)
	s := New(options, nil)
	s.Register(JOB_PREPARE_SALES_RETURNS, time.Minute, true, nil)

	enabled, err := s.IsEnabled(ctx, JOB_PREPARE_SALES_RETURNS)
	require.NoError(t, err)
	assert.True(t, enabled)

	require.NoError(t, s.Toggle(ctx, JOB_PREPARE_SALES_RETURNS, false))

	other := New(options, nil)
	other.Register(JOB_PREPARE_SALES_RETURNS, time.Minute, true, nil)
	enabled, err = other.IsEnabled(ctx, JOB_PREPARE_SALES_RETURNS)
	require.NoError(t, err)
	assert.False(t, enabled)

	assert.True(t, errors.Is(s.Toggle(ctx, "unknown", true), ErrUnknownJob))
}

func TestStartRunsOnlyEnabledJobs(t *testing.T) {
	ctx := context.Background()
	s := New(newOptions(t), nil)

	var enabledRuns, disabledRuns int32
	s.Register(JOB_PREPARE_ORDERS, 10*time.Millisecond, true, func(ctx context.Context) (*syncpkg.BatchResult, error) {
		atomic.AddInt32(&enabledRuns, 1)
		return result(0), nil
	})
	s.Register(JOB_IMPORT_ORDERS, 10*time.Millisecond, false, func(ctx context.Context) (*syncpkg.BatchResult, error) {
		atomic.AddInt32(&disabledRuns, 1)
		return result(0), nil
	})

	s.Start(ctx)
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&enabledRuns) >= 2
	}, 2*time.Second, 10*time.Millisecond)
	s.Stop()

	assert.Equal(t, int32(0), atomic.LoadInt32(&disabledRuns))
	assert.Equal(t, []string{JOB_IMPORT_ORDERS, JOB_PREPARE_ORDERS}, s.Jobs())
}

func TestRunsNeverOverlap(t *testing.T) {
	ctx := context.Background()
	s := New(newOptions(t), nil)

	var active, maxActive int32
	work := func(ctx context.Context) (*syncpkg.BatchResult, error) {
		n := atomic.AddInt32(&active, 1)
		for {
			m := atomic.LoadInt32(&maxActive)
			if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&active, -1)
		return result(0), nil
	}
	s.Register(JOB_PREPARE_ORDERS, 2*time.Millisecond, true, work)
	s.Register(JOB_PREPARE_SALES_RETURNS, 2*time.Millisecond, true, work)

	s.Start(ctx)
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.RunNow(ctx, JOB_PREPARE_ORDERS)
		}()
	}
	wg.Wait()
	s.Stop()

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxActive))
}

func TestNotificationEscapesErrorText(t *testing.T) {
	notifier := new(notifierMock)
	s := New(newOptions(t), notifier)
	s.Register(JOB_REMOVE_COMPLETED_ORDERS, time.Minute, true, func(ctx context.Context) (*syncpkg.BatchResult, error) {
		return nil, errors.New("failed SELECT; query: created_at >= ? AND created_at <= ?")
	})
	s.Register(JOB_IMPORT_ORDERS, time.Minute, true, func(ctx context.Context) (*syncpkg.BatchResult, error) {
		r := result(1)
		r.Message = "item <10045> & co"
		return r, nil
	})

	_, err := s.RunNow(context.Background(), JOB_REMOVE_COMPLETED_ORDERS)
	require.NoError(t, err)
	_, err = s.RunNow(context.Background(), JOB_IMPORT_ORDERS)
	require.NoError(t, err)

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	require.Len(t, notifier.sent, 2)
	assert.Contains(t, notifier.sent[0], "<b>remove-completed-orders</b>")
	assert.Contains(t, notifier.sent[0], "created_at &gt;= ? AND created_at &lt;= ?")
	assert.NotContains(t, notifier.sent[0], "<= ?")
	assert.Contains(t, notifier.sent[1], "item &lt;10045&gt; &amp; co")
}
