package swapclient

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Step is the wizard position of a Controller.
type Step string

const (
	StepQuote   Step = "quote"
	StepAddress Step = "address"
	StepSummary Step = "summary"
)

const (
	defaultPollInterval = 5 * time.Second
	wsHandshakeTimeout  = 10 * time.Second
	updateBuffer        = 8
)

var (
	// ErrNoQuote is returned by operations that need an active quote.
	ErrNoQuote = errors.New("swapclient: no active quote")
	// ErrWrongStep is returned when an operation does not fit the current step.
	ErrWrongStep = errors.New("swapclient: operation not allowed at this step")
)

// QuoteAPI is the subset of Client used by the Controller.
type QuoteAPI interface {
	CreateQuote(ctx context.Context, req CreateQuoteRequest) (*Quote, error)
	GetQuote(ctx context.Context, publicID string) (*Quote, error)
	AttachPayout(ctx context.Context, publicID, address string) (*Quote, error)
	ReportPaid(ctx context.Context, publicID, txInHash string) (*Quote, error)
	StreamURL(publicID string) string
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithPollInterval sets the fallback poll interval used by Watch.
func WithPollInterval(d time.Duration) ControllerOption {
	return func(c *Controller) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithStreamBackoff sets the reconnect backoff of the websocket stream.
func WithStreamBackoff(lo, hi time.Duration) ControllerOption {
	return func(c *Controller) {
		c.backoffMin, c.backoffMax = lo, hi
	}
}

// Controller holds one wizard's progress: the current quote and the step.
// Each wizard gets its own Controller. Methods are safe for concurrent use.
type Controller struct {
	api          QuoteAPI
	dialer       *websocket.Dialer
	pollInterval time.Duration
	backoffMin   time.Duration
	backoffMax   time.Duration

	mu          sync.Mutex
	step        Step
	quote       *Quote
	generation  uint64
	cancelWatch context.CancelFunc
}

// NewController creates a Controller at StepQuote.
func NewController(api QuoteAPI, opts ...ControllerOption) *Controller {
	c := &Controller{
		api:          api,
		dialer:       &websocket.Dialer{HandshakeTimeout: wsHandshakeTimeout},
		pollInterval: defaultPollInterval,
		backoffMin:   defaultBackoffMin,
		backoffMax:   defaultBackoffMax,
		step:         StepQuote,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Step returns the current wizard step.
func (c *Controller) Step() Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

// Quote returns a copy of the current quote, or nil.
func (c *Controller) Quote() *Quote {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.quote == nil {
		return nil
	}
	q := *c.quote
	return &q
}

// CreateQuote requests a new quote and moves to StepAddress. A previous quote
// is abandoned and its watch cancelled.
func (c *Controller) CreateQuote(ctx context.Context, req CreateQuoteRequest) (*Quote, error) {
	c.mu.Lock()
	if c.step == StepSummary {
		c.mu.Unlock()
		return nil, ErrWrongStep
	}
	c.mu.Unlock()

	q, err := c.api.CreateQuote(ctx, req)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopWatchLocked()
	c.generation++
	c.quote = q
	c.step = StepAddress
	cp := *q
	return &cp, nil
}

// Resume loads an existing quote, e.g. from a shared link, and picks the step
// from whether a payout address is already set.
func (c *Controller) Resume(ctx context.Context, publicID string) (*Quote, error) {
	q, err := c.api.GetQuote(ctx, publicID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopWatchLocked()
	c.generation++
	c.quote = q
	c.step = StepAddress
	if q.PayoutAddress != nil {
		c.step = StepSummary
	}
	cp := *q
	return &cp, nil
}

// AttachPayout sets the payout address and moves to StepSummary.
func (c *Controller) AttachPayout(ctx context.Context, address string) (*Quote, error) {
	publicID, gen, err := c.active(StepAddress, StepSummary)
	if err != nil {
		return nil, err
	}

	q, err := c.api.AttachPayout(ctx, publicID, address)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		return nil, ErrNoQuote
	}
	c.quote = q
	c.step = StepSummary
	cp := *q
	return &cp, nil
}

// ReportPaid forwards the user's inbound transaction hash.
func (c *Controller) ReportPaid(ctx context.Context, txInHash string) (*Quote, error) {
	publicID, gen, err := c.active(StepSummary)
	if err != nil {
		return nil, err
	}

	q, err := c.api.ReportPaid(ctx, publicID, txInHash)
	if err != nil {
		return nil, err
	}
	c.accept(gen, *q)
	return q, nil
}

// RefreshQuote re-reads the current quote.
func (c *Controller) RefreshQuote(ctx context.Context) (*Quote, error) {
	publicID, gen, err := c.active()
	if err != nil {
		return nil, err
	}

	q, err := c.api.GetQuote(ctx, publicID)
	if err != nil {
		return nil, err
	}
	c.accept(gen, *q)
	return c.Quote(), nil
}

// Reset cancels any watch, drops the quote and returns to StepQuote.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopWatchLocked()
	c.generation++
	c.quote = nil
	c.step = StepQuote
}

// Remaining returns the time left on the quote as mm:ss, clamped at 00:00,
// and whether the quote is expired.
func (c *Controller) Remaining(now time.Time) (string, bool) {
	c.mu.Lock()
	q := c.quote
	c.mu.Unlock()
	if q == nil {
		return "00:00", true
	}

	left := q.ExpiresAt.Sub(now)
	if left <= 0 {
		return "00:00", true
	}
	secs := int64((left + time.Second - 1) / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60), q.Status == StatusExpired
}

// Watch delivers every newer state of the current quote to onUpdate. The
// websocket stream is the primary channel and a fixed-interval poll is the
// fallback. It blocks until the quote turns terminal, ctx is done, or Reset
// (or a new quote) cancels it. A quote that is already terminal is delivered
// once and Watch returns at once.
func (c *Controller) Watch(ctx context.Context, onUpdate func(Quote)) error {
	c.mu.Lock()
	if c.quote == nil {
		c.mu.Unlock()
		return ErrNoQuote
	}
	if c.quote.IsTerminal() {
		q := *c.quote
		c.mu.Unlock()
		onUpdate(q)
		return nil
	}
	publicID, gen := c.quote.PublicID, c.generation
	c.stopWatchLocked()
	watchCtx, cancel := context.WithCancel(ctx)
	c.cancelWatch = cancel
	c.mu.Unlock()

	updates := make(chan Quote, updateBuffer)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		c.stream(watchCtx, publicID, updates)
	}()
	go func() {
		defer wg.Done()
		c.poll(watchCtx, publicID, updates)
	}()
	defer func() {
		cancel()
		wg.Wait()
	}()

	for {
		select {
		case <-watchCtx.Done():
			return ctx.Err()
		case q := <-updates:
			if q.PublicID != publicID || !c.accept(gen, q) {
				continue
			}
			onUpdate(q)
			if q.IsTerminal() {
				return nil
			}
		}
	}
}

// stream reads pushed quotes, reconnecting with backoff until ctx is done.
func (c *Controller) stream(ctx context.Context, publicID string, out chan<- Quote) {
	backoff := &Backoff{Min: c.backoffMin, Max: c.backoffMax}
	url := c.api.StreamURL(publicID)

	for ctx.Err() == nil {
		conn, _, err := c.dialer.DialContext(ctx, url, nil)
		if err == nil {
			backoff.Reset()
			c.readStream(ctx, conn, out)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff.Next()):
		}
	}
}

func (c *Controller) readStream(ctx context.Context, conn *websocket.Conn, out chan<- Quote) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		conn.Close()
	}()

	for {
		var q Quote
		if err := conn.ReadJSON(&q); err != nil {
			return
		}
		select {
		case out <- q:
		case <-ctx.Done():
			return
		}
	}
}

// poll re-reads the quote every pollInterval. Errors are skipped; the next
// tick retries.
func (c *Controller) poll(ctx context.Context, publicID string, out chan<- Quote) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q, err := c.api.GetQuote(ctx, publicID)
			if err != nil {
				continue
			}
			select {
			case out <- *q:
			case <-ctx.Done():
				return
			}
		}
	}
}

// accept stores q when it belongs to generation gen and is newer than the
// held state. Duplicates from the two watch channels are dropped here.
func (c *Controller) accept(gen uint64, q Quote) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen || c.quote == nil || c.quote.PublicID != q.PublicID {
		return false
	}
	if !q.UpdatedAt.After(c.quote.UpdatedAt) {
		return false
	}
	c.quote = &q
	return true
}

// active returns the current quote id and generation, optionally requiring one of steps.
func (c *Controller) active(steps ...Step) (string, uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.quote == nil {
		return "", 0, ErrNoQuote
	}
	if len(steps) > 0 {
		ok := false
		for _, s := range steps {
			if s == c.step {
				ok = true
				break
			}
		}
		if !ok {
			return "", 0, ErrWrongStep
		}
	}
	return c.quote.PublicID, c.generation, nil
}

func (c *Controller) stopWatchLocked() {
	if c.cancelWatch != nil {
		c.cancelWatch()
		c.cancelWatch = nil
	}
}
