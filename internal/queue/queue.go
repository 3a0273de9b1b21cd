// Package queue implements TaskQueue: the asynq-backed work queue
// fanning out context creation into inbox replay, bot-seller dispatch, and
// inspection runs, each addressed by a stable task type so retries and
// redeliveries are idempotent against the current database state rather
// than against the task payload.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Task type names. Each carries a JSON payload of {"id": "<uuid>"}.
const (
	TypeFanout       = "fanout"
	TypeDispatchBots = "dispatch_bots"
	TypeInspect      = "inspect"
)

type idPayload struct {
	ID uuid.UUID `json:"id"`
}

// Client enqueues tasks against the work queue. It implements the
// taskEnqueuer interface consumed by MatcherIndex.
type Client struct {
	asynq *asynq.Client
}

// NewClient constructs a Client from a Redis connection string, matching
// asynq's RedisClientOpt wiring.
func NewClient(redisAddr string) *Client {
	return &Client{asynq: asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})}
}

// Close releases the underlying Redis connection.
func (c *Client) Close() error { return c.asynq.Close() }

// EnqueueFanout schedules a fanout:{context_id} task, replaying subscription
// matches and materializing inbox items for a context.
func (c *Client) EnqueueFanout(ctx context.Context, contextID uuid.UUID) error {
	return c.enqueue(ctx, TypeFanout, contextID, asynq.Queue("default"))
}

// EnqueueDispatchBots schedules a dispatch_bots:{context_id} task. The
// matcher enqueues one per root context after its inbox fan-out, whether or
// not any bot-seller subscription matched.
func (c *Client) EnqueueDispatchBots(ctx context.Context, contextID uuid.UUID) error {
	return c.enqueue(ctx, TypeDispatchBots, contextID, asynq.Queue("default"))
}

// EnqueueInspect schedules an inspect:{inspection_id} task — the entry point
// that drives InspectionEngine.Run. Inspection jobs run on a dedicated queue
// so a burst of context creation never starves already-running inspections.
func (c *Client) EnqueueInspect(ctx context.Context, inspectionID uuid.UUID) error {
	return c.enqueue(ctx, TypeInspect, inspectionID, asynq.Queue("inspect"))
}

func (c *Client) enqueue(ctx context.Context, taskType string, id uuid.UUID, opts ...asynq.Option) error {
	payload, err := json.Marshal(idPayload{ID: id})
	if err != nil {
		return fmt.Errorf("marshal task payload: %w", err)
	}
	// TaskID pins one task per (type, id) pair so asynq itself de-dupes an
	// enqueue racing a still-pending identical task, ahead of the handler's
	// own store-state idempotency check.
	task := asynq.NewTask(taskType, payload)
	opts = append(opts, asynq.TaskID(fmt.Sprintf("%s:%s", taskType, id)))
	_, err = c.asynq.Enqueue(task, opts...)
	if err != nil && err != asynq.ErrTaskIDConflict {
		return fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	return nil
}

func decodeID(t *asynq.Task) (uuid.UUID, error) {
	var p idPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return uuid.UUID{}, fmt.Errorf("unmarshal task payload: %w", err)
	}
	return p.ID, nil
}
