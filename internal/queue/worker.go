package queue

import (
	"context"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// matcherIndex is the slice of MatcherIndex the fanout handler drives.
type matcherIndex interface {
	RefreshByContext(ctx context.Context, contextID uuid.UUID) error
}

// botDispatcher is the slice of BotSellerDispatcher the dispatch_bots
// handler drives.
type botDispatcher interface {
	DispatchContext(ctx context.Context, contextID uuid.UUID) error
}

// inspectionEngine is the slice of InspectionEngine the inspect handler
// drives.
type inspectionEngine interface {
	Run(ctx context.Context, inspectionID uuid.UUID) ([]uuid.UUID, error)
}

// WorkerConfig wires the three task handlers to their backing services.
// Metrics, when set, is called after every processed task with the task type
// and whether the handler returned without error.
type WorkerConfig struct {
	RedisAddr   string
	Concurrency int
	Matcher     matcherIndex
	BotDispatch botDispatcher
	Inspection  inspectionEngine
	Metrics     func(taskType string, success bool)
	Logger      *zap.Logger
}

// Worker runs the asynq server consuming fanout/dispatch_bots/inspect tasks.
type Worker struct {
	srv    *asynq.Server
	mux    *asynq.ServeMux
	lock   *inFlightLock
	logger *zap.Logger
}

// NewWorker constructs a Worker. Inspection tasks run on a dedicated queue
// weighted above the default queue so a burst of new contexts never starves
// an already-running inspection job.
func NewWorker(cfg WorkerConfig) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	concurrency := cfg.Concurrency
	if concurrency == 0 {
		concurrency = 10
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				"inspect": 3,
				"default": 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("task failed", zap.String("type", task.Type()), zap.Error(err))
			}),
		},
	)

	mux := asynq.NewServeMux()
	w := &Worker{srv: srv, mux: mux, lock: newInFlightLock(cfg.RedisAddr), logger: logger}
	if cfg.Metrics != nil {
		record := cfg.Metrics
		mux.Use(func(h asynq.Handler) asynq.Handler {
			return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
				err := h.ProcessTask(ctx, t)
				record(t.Type(), err == nil)
				return err
			})
		})
	}
	mux.HandleFunc(TypeFanout, w.handleFanout(cfg.Matcher))
	mux.HandleFunc(TypeDispatchBots, w.handleDispatchBots(cfg.BotDispatch))
	mux.HandleFunc(TypeInspect, w.handleInspect(cfg.Inspection))
	return w
}

// Run blocks, serving tasks until the process receives a shutdown signal.
func (w *Worker) Run() error {
	return w.srv.Run(w.mux)
}

// Shutdown stops the worker gracefully, waiting for in-flight tasks.
func (w *Worker) Shutdown() {
	w.srv.Shutdown()
	w.lock.close()
}

func (w *Worker) handleFanout(m matcherIndex) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		id, err := decodeID(t)
		if err != nil {
			return err
		}
		ok, err := w.lock.acquire(ctx, TypeFanout, id.String())
		if err != nil || !ok {
			return err
		}
		defer w.lock.release(ctx, TypeFanout, id.String())
		return m.RefreshByContext(ctx, id)
	}
}

func (w *Worker) handleDispatchBots(d botDispatcher) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		id, err := decodeID(t)
		if err != nil {
			return err
		}
		ok, err := w.lock.acquire(ctx, TypeDispatchBots, id.String())
		if err != nil || !ok {
			return err
		}
		defer w.lock.release(ctx, TypeDispatchBots, id.String())
		return d.DispatchContext(ctx, id)
	}
}

func (w *Worker) handleInspect(e inspectionEngine) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		id, err := decodeID(t)
		if err != nil {
			return err
		}
		ok, err := w.lock.acquire(ctx, TypeInspect, id.String())
		if err != nil || !ok {
			return err
		}
		defer w.lock.release(ctx, TypeInspect, id.String())
		_, err = e.Run(ctx, id)
		return err
	}
}
