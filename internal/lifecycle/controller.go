package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/five82/reel/internal/fal"
)

// DefaultTimeout bounds the await stage of a single record.
const DefaultTimeout = 10 * time.Minute

const cancelTimeout = 5 * time.Second

// Controller runs records through validate, submit, await and fetch, one
// record at a time.
type Controller struct {
	Validator       Validator
	Submitter       Submitter
	Awaiter         Awaiter
	Fetcher         Fetcher
	Timeout         time.Duration
	ContinueOnError bool
	Observer        Observer
}

// Options configure New.
type Options struct {
	Transport        Transport
	BaseURL          string
	Strategy         Strategy
	PollInterval     time.Duration
	Retry            RetryPolicy
	Timeout          time.Duration
	ContinueOnError  bool
	StrictExtensions bool
	Observer         Observer
}

// New wires a Controller whose stages all share opts.Transport and
// opts.Observer.
func New(opts Options) (*Controller, error) {
	if opts.Transport == nil {
		return nil, errors.New("lifecycle: transport is required")
	}
	awaiter, err := SelectAwaiter(opts.Strategy, opts.Transport, AwaitOptions{
		Interval: opts.PollInterval,
		Retry:    opts.Retry,
		Observer: opts.Observer,
	})
	if err != nil {
		return nil, err
	}
	return &Controller{
		Validator:       Validator{StrictExtensions: opts.StrictExtensions},
		Submitter:       Submitter{Transport: opts.Transport, BaseURL: opts.BaseURL, Observer: opts.Observer},
		Awaiter:         awaiter,
		Fetcher:         Fetcher{Transport: opts.Transport},
		Timeout:         opts.Timeout,
		ContinueOnError: opts.ContinueOnError,
		Observer:        opts.Observer,
	}, nil
}

// Run processes records in order and returns one outcome per processed
// record, index-aligned with the input. Without ContinueOnError the first
// failure stops the run; its outcome is the last element and the error is
// returned alongside. Context cancellation always stops the run.
func (c *Controller) Run(ctx context.Context, records []GenerationRequest) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(records))
	for i, req := range records {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		outcome, err := c.RunOne(ctx, i, req)
		outcomes = append(outcomes, outcome)
		if err == nil {
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return outcomes, ctxErr
		}
		if !c.ContinueOnError {
			return outcomes, fmt.Errorf("record %d: %w", i, err)
		}
	}
	return outcomes, nil
}

// RunOne executes the full lifecycle for a single record. The returned
// outcome always carries index and model; on failure Err is set and equals
// the returned error.
func (c *Controller) RunOne(ctx context.Context, index int, req GenerationRequest) (Outcome, error) {
	ctx = withRecord(ctx, index, req.Model)
	outcome := Outcome{Index: index, Model: req.Model}
	emit(ctx, c.Observer, Event{Kind: EventStarted})

	start := time.Now()
	fail := func(err error) (Outcome, error) {
		outcome.Err = err
		outcome.Elapsed = time.Since(start)
		emit(ctx, c.Observer, Event{
			Kind:      EventFailed,
			RequestID: outcome.RequestID,
			Status:    outcome.FinalStatus,
			Elapsed:   outcome.Elapsed,
			Message:   err.Error(),
			Err:       err,
		})
		return outcome, err
	}

	if err := c.Validator.Validate(req); err != nil {
		return fail(err)
	}

	start = time.Now()
	handle, err := c.Submitter.Submit(ctx, req)
	if err != nil {
		return fail(err)
	}
	outcome.RequestID = handle.RequestID

	final, err := c.awaiter().Await(ctx, handle, c.timeout())
	if err != nil {
		if final.Status != "" {
			outcome.FinalStatus = final.Status
		}
		if ctx.Err() != nil {
			c.cancelRemote(ctx, handle)
		}
		return fail(err)
	}
	outcome.FinalStatus = final.Status

	responseURL := final.ResponseURL
	if responseURL == "" {
		responseURL = handle.ResponseURL
	}
	if responseURL == "" {
		return fail(&Error{
			Kind:    ErrFetch,
			Stage:   StageFetch,
			Message: "request " + handle.RequestID + " completed without a response URL",
		})
	}

	artifact, err := c.Fetcher.Fetch(ctx, responseURL)
	if err != nil {
		return fail(err)
	}
	outcome.Elapsed = time.Since(start)
	outcome.Artifact = &artifact

	emit(ctx, c.Observer, Event{
		Kind:      EventFetched,
		RequestID: outcome.RequestID,
		Status:    outcome.FinalStatus,
		Artifact:  outcome.Artifact,
		Elapsed:   outcome.Elapsed,
	})
	return outcome, nil
}

func (c *Controller) awaiter() Awaiter {
	if c.Awaiter != nil {
		return c.Awaiter
	}
	return &Poller{Transport: c.Submitter.Transport, Observer: c.Observer}
}

func (c *Controller) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultTimeout
}

// cancelRemote asks the queue to drop a request abandoned by the caller. It
// runs detached from ctx, which is already done. Failures are ignored: the
// remote job then simply runs to completion unobserved.
func (c *Controller) cancelRemote(ctx context.Context, handle fal.QueueHandle) {
	canceler, ok := c.Submitter.Transport.(Canceler)
	if !ok || handle.CancelURL == "" {
		return
	}
	cancelCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cancelTimeout)
	defer cancel()
	_ = canceler.Cancel(cancelCtx, handle.CancelURL)
}
