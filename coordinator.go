package go_storefront

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/merchkit/go-storefront/cache"
	"github.com/merchkit/go-storefront/cart"
	"github.com/merchkit/go-storefront/consts"
	"github.com/merchkit/go-storefront/internal/debounce"
	"github.com/merchkit/go-storefront/internal/utils"
)

// Coordinator is the only component authorized to mutate cart contents.
// It owns the quantity-update debouncing and the stale-identity recovery;
// it never writes cart contents into client state — every successful
// mutation invalidates the projection's cache key instead.
type Coordinator struct {
	s     *Session
	sched *debounce.Scheduler
}

func newCoordinator(s *Session) *Coordinator {
	c := &Coordinator{s: s}
	c.sched = debounce.New(s.clk, s.debounceDelay, func(lineID string, err error) {
		s.logger.Errorf("debounced quantity update failed: line_id=%s err=%v", lineID, err)
	})
	return c
}

// AddToCart puts quantity units of a variant into the cart, creating the
// cart first when no identity exists.
//
// A not-found-class failure on the first attempt means the persisted id went
// stale server-side: the identity is cleared and the add retried exactly
// once against a freshly created cart. A second failure is surfaced.
func (c *Coordinator) AddToCart(ctx context.Context, variantID string, quantity int) error {
	ve := &ValidationError{}
	if variantID == "" {
		ve.Add("variant_id", "is required")
	}
	if quantity <= 0 {
		ve.Add("quantity", "must be > 0")
	}
	if ve.HasErrors() {
		return ve
	}

	line := cart.LineInput{VariantID: variantID, Quantity: quantity}

	id, err := c.s.store.Load(ctx)
	if err != nil {
		return err
	}
	if id == "" {
		return c.createWithLine(ctx, line)
	}

	resp, err := c.s.client.Cart().AddLines(ctx, &cart.AddLinesRequest{
		CartID:         id,
		Currency:       c.s.currency.Current(),
		Lines:          []cart.LineInput{line},
		IdempotencyKey: utils.Ref(newIdempotencyKey()),
	})
	if stale, failErr := classifyCartMutation(resp, err); failErr != nil {
		if !stale {
			return failErr
		}
		c.s.logger.Warnf("cart %s is stale, recreating: %v", id, failErr)
		if clearErr := c.s.ClearIdentity(ctx); clearErr != nil {
			return clearErr
		}
		// One retry against a fresh cart; a second failure surfaces.
		return c.createWithLine(ctx, line)
	}

	c.invalidate(id)
	return nil
}

// UpdateQuantity schedules a debounced quantity change for one line.
// Non-positive quantities route to Remove immediately. Rapid calls for the
// same line coalesce latest-wins; different lines are independent.
func (c *Coordinator) UpdateQuantity(ctx context.Context, lineID string, quantity int) error {
	if lineID == "" {
		return &ValidationError{Fields: []FieldError{{Field: "line_id", Message: "is required"}}}
	}
	if quantity <= 0 {
		return c.Remove(ctx, lineID)
	}

	// The timer outlives the caller's context: an unmounted view cancels
	// only not-yet-fired timers, never an update already decided on.
	fireCtx := context.WithoutCancel(ctx)
	c.sched.Schedule(lineID, func() error {
		return c.fireUpdate(fireCtx, lineID, quantity)
	})
	return nil
}

func (c *Coordinator) fireUpdate(ctx context.Context, lineID string, quantity int) error {
	id, err := c.s.store.Load(ctx)
	if err != nil {
		return err
	}
	if id == "" {
		// Cart was cleared while the update was pending.
		return nil
	}

	resp, err := c.s.client.Cart().UpdateLine(ctx, &cart.UpdateLineRequest{
		CartID:         id,
		Currency:       c.s.currency.Current(),
		LineID:         lineID,
		Quantity:       quantity,
		IdempotencyKey: utils.Ref(newIdempotencyKey()),
	})
	if stale, failErr := classifyCartMutation(resp, err); failErr != nil {
		if stale {
			// The entity is gone; there is no line to update on a fresh cart.
			c.s.logger.Warnf("cart %s vanished during quantity update, clearing identity", id)
			return c.s.ClearIdentity(ctx)
		}
		return failErr
	}

	c.invalidate(id)
	return nil
}

// Remove deletes a line immediately, without debouncing. A not-found-class
// failure means the line (or cart) is already gone and is treated as
// success: removal is idempotent from the shopper's perspective.
func (c *Coordinator) Remove(ctx context.Context, lineID string) error {
	if lineID == "" {
		return &ValidationError{Fields: []FieldError{{Field: "line_id", Message: "is required"}}}
	}

	// A pending quantity update for a removed line must not fire later.
	c.sched.Cancel(lineID)

	id, err := c.s.store.Load(ctx)
	if err != nil {
		return err
	}
	if id == "" {
		return nil
	}

	resp, err := c.s.client.Cart().RemoveLine(ctx, &cart.RemoveLineRequest{
		CartID:         id,
		Currency:       c.s.currency.Current(),
		LineID:         lineID,
		IdempotencyKey: utils.Ref(newIdempotencyKey()),
	})
	if stale, failErr := classifyCartMutation(resp, err); failErr != nil {
		if stale {
			return c.s.ClearIdentity(ctx)
		}
		return failErr
	}

	c.invalidate(id)
	return nil
}

// FlushPending fires all pending debounced updates now, one goroutine per
// line, and returns the first failure. Useful before navigation to checkout.
func (c *Coordinator) FlushPending(ctx context.Context) error {
	tasks := c.sched.Flush()
	if len(tasks) == 0 {
		return nil
	}
	g, _ := errgroup.WithContext(ctx)
	for _, t := range tasks {
		g.Go(t.Fn)
	}
	return g.Wait()
}

// PendingUpdates reports how many line updates are waiting on their timer.
func (c *Coordinator) PendingUpdates() int {
	return c.sched.Len()
}

func (c *Coordinator) close() {
	c.sched.Close()
}

func (c *Coordinator) createWithLine(ctx context.Context, line cart.LineInput) error {
	resp, err := c.s.client.Cart().Create(ctx, &cart.CreateRequest{
		Currency: c.s.currency.Current(),
		Lines:    []cart.LineInput{line},
	})
	if err != nil {
		return err
	}
	if fail := firstUserFailure(resp.UserErrors); fail != nil {
		return fail
	}
	if resp.Cart == nil || resp.Cart.ID == "" {
		return errors.New("cart create returned no cart")
	}
	if err := c.s.store.Save(ctx, resp.Cart.ID); err != nil {
		return err
	}
	c.invalidate(resp.Cart.ID)
	return nil
}

func (c *Coordinator) invalidate(cartID string) {
	c.s.cache.DeleteRef(cache.KindCart, cartID)
}

// classifyCartMutation splits a cart mutation outcome into
// (stale-entity, failure). A nil failure means success.
func classifyCartMutation(resp *cart.Response, err error) (bool, error) {
	if err != nil {
		return IsNotFound(err), err
	}
	if resp == nil {
		return false, nil // dry run
	}
	for _, ue := range resp.UserErrors {
		if ue.Code == consts.CodeCartNotFound {
			return true, &UserFailure{Code: ue.Code, Message: ue.Message}
		}
	}
	if fail := firstUserFailure(resp.UserErrors); fail != nil {
		return false, fail
	}
	return false, nil
}

func firstUserFailure(errs []cart.UserError) *UserFailure {
	if len(errs) == 0 {
		return nil
	}
	return &UserFailure{Code: errs[0].Code, Message: errs[0].Message}
}

// newIdempotencyKey tags each mutation so a transport retry cannot double
// apply a line change.
func newIdempotencyKey() string {
	return uuid.NewString()
}
