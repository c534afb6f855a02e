package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"WooWithWasp/internal/database/model/option"
	syncpkg "WooWithWasp/internal/sync"
	"WooWithWasp/internal/telegram"
	"WooWithWasp/pkg/logging"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	JOB_PREPARE_ORDERS                 = "prepare-orders"
	JOB_IMPORT_ORDERS                  = "import-orders"
	JOB_REMOVE_COMPLETED_ORDERS        = "remove-completed-orders"
	JOB_PREPARE_SALES_RETURNS          = "prepare-sales-returns"
	JOB_IMPORT_SALES_RETURNS           = "import-sales-returns"
	JOB_REMOVE_COMPLETED_SALES_RETURNS = "remove-completed-sales-returns"
	JOB_TRUNCATE_RETRY_QUEUE           = "truncate-retry-queue"
	JOB_BACKFILL_ORDERS                = "backfill-orders"
)

var ErrUnknownJob = errors.New("unknown job")

// JobFunc один запуск задания
type JobFunc func(ctx context.Context) (*syncpkg.BatchResult, error)

type job struct {
	name     string
	interval time.Duration
	enabled  bool
	run      JobFunc
}

// Run итог запуска задания
type Run struct {
	ID       string               `json:"id"`
	Job      string               `json:"job"`
	Manual   bool                 `json:"manual"`
	Started  time.Time            `json:"started"`
	Finished time.Time            `json:"finished"`
	Result   *syncpkg.BatchResult `json:"result,omitempty"`
	Error    string               `json:"error,omitempty"`
}

// Scheduler запускает задания по интервалу. Плановые и ручные запуски
// выполняются под одним мьютексом.
type Scheduler struct {
	options  *option.Options
	notifier telegram.Notifier
	jobs     map[string]*job

	runMu sync.Mutex

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
	now     func() time.Time
}

func New(options *option.Options, notifier telegram.Notifier) *Scheduler {
	if notifier == nil {
		notifier = telegram.Nop{}
	}
	return &Scheduler{
		options:  options,
		notifier: notifier,
		jobs:     make(map[string]*job),
		now:      time.Now,
	}
}

// Register enabled - значение флага, пока он не сохранен в options
func (s *Scheduler) Register(name string, interval time.Duration, enabled bool, run JobFunc) {
	s.jobs[name] = &job{name: name, interval: interval, enabled: enabled, run: run}
}

func (s *Scheduler) Jobs() []string {
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func optionName(name string) string {
	return "cron_enabled_" + name
}

func (s *Scheduler) job(name string) (*job, error) {
	j, ok := s.jobs[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownJob, "%q", name)
	}
	return j, nil
}

func (s *Scheduler) IsEnabled(ctx context.Context, name string) (bool, error) {
	j, err := s.job(name)
	if err != nil {
		return false, err
	}
	return s.options.GetBool(ctx, optionName(name), j.enabled)
}

func (s *Scheduler) Toggle(ctx context.Context, name string, enabled bool) error {
	logger := logging.GetLogger()
	if _, err := s.job(name); err != nil {
		return err
	}
	if err := s.options.SetBool(ctx, optionName(name), enabled); err != nil {
		return err
	}
	logger.Infof("задание %s: enabled=%v", name, enabled)
	return nil
}

// RunNow ручной запуск, ждет окончания текущего задания
func (s *Scheduler) RunNow(ctx context.Context, name string) (*Run, error) {
	j, err := s.job(name)
	if err != nil {
		return nil, err
	}
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.execute(ctx, j, true), nil
}

func (s *Scheduler) tick(ctx context.Context, j *job) {
	logger := logging.GetLogger().GetLoggerWithField("job", j.name)

	enabled, err := s.IsEnabled(ctx, j.name)
	if err != nil {
		logger.Errorf("failed IsEnabled: %v", err)
		return
	}
	if !enabled {
		logger.Debug("задание выключено")
		return
	}
	if !s.runMu.TryLock() {
		logger.Info("выполняется другое задание, запуск пропущен")
		return
	}
	defer s.runMu.Unlock()
	s.execute(ctx, j, false)
}

func (s *Scheduler) execute(ctx context.Context, j *job, manual bool) *Run {
	run := &Run{
		ID:      uuid.NewString(),
		Job:     j.name,
		Manual:  manual,
		Started: s.now(),
	}
	logger := logging.GetLogger().GetLoggerWithField("job", j.name).GetLoggerWithField("run", run.ID)
	logger.Infof("Start job %s, manual=%v", j.name, manual)

	result, err := j.run(ctx)
	run.Finished = s.now()
	run.Result = result

	if err != nil {
		run.Error = err.Error()
		logger.Errorf("End job %s: %v", j.name, err)
		telegram.SendMessageWithLogError(s.notifier, fmt.Sprintf("<b>%s</b> (%s): %s",
			telegram.Escape(j.name), run.ID, telegram.Escape(err.Error())))
		return run
	}

	if result != nil && result.Summary != nil && result.Summary.ErrorCount > 0 {
		logger.Warnf("End job %s: %s", j.name, result.Message)
		telegram.SendMessageWithLogError(s.notifier, fmt.Sprintf("<b>%s</b> (%s): %d errors of %d\n%s",
			telegram.Escape(j.name), run.ID, result.Summary.ErrorCount, result.Summary.TotalProcessed,
			telegram.Escape(result.Message)))
		return run
	}

	if result != nil {
		logger.Infof("End job %s: %s", j.name, result.Message)
	} else {
		logger.Infof("End job %s", j.name)
	}
	return run
}

// Start по горутине с тикером на каждое задание
func (s *Scheduler) Start(ctx context.Context) {
	logger := logging.GetLogger()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})

	for _, name := range s.Jobs() {
		j := s.jobs[name]
		if j.interval <= 0 {
			logger.Warnf("задание %s без интервала, не планируется", name)
			continue
		}
		s.wg.Add(1)
		go s.loop(ctx, j, s.stopCh)
		logger.Infof("задание %s каждые %s", name, j.interval)
	}
}

func (s *Scheduler) loop(ctx context.Context, j *job, stopCh chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			s.tick(ctx, j)
		}
	}
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	logging.GetLogger().Info("scheduler stopped")
}
