package inspection

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/infomarket/server/internal/market/model"
)

// pollForOffers waits for offers to arrive against a freshly spawned child
// context: it polls at FastPoll intervals for FastWindow, then falls back to
// the coarser SlowPoll, bounded overall by Deadline. It returns whatever
// offers exist when the deadline is hit or the context is cancelled — an
// empty result is not an error, it simply means step 2 of the next
// recursion will see no offers and return.
func (e *Engine) pollForOffers(ctx context.Context, contextID uuid.UUID) ([]*model.InfoOffer, error) {
	deadlineCtx, cancel := context.WithTimeout(ctx, e.cfg.Deadline)
	defer cancel()

	started := time.Now()
	interval := e.cfg.FastPoll
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		offers, err := e.store.ListOffersByContext(ctx, contextID)
		if err != nil {
			return nil, err
		}
		if len(offers) > 0 {
			return offers, nil
		}

		select {
		case <-deadlineCtx.Done():
			return e.store.ListOffersByContext(ctx, contextID)
		case <-ticker.C:
			if time.Since(started) > e.cfg.FastWindow && interval != e.cfg.SlowPoll {
				interval = e.cfg.SlowPoll
				ticker.Reset(interval)
			}
		}
	}
}
