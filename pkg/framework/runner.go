package framework

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/golang/glog"
)

type namedRunnable struct {
	Runnable
	name string
}

func (r *namedRunnable) Name() string {
	return r.name
}

// NamedRun wraps a Runnable with a name.
func NamedRun(name string, runnable Runnable) Runnable {
	return &namedRunnable{name: name, Runnable: runnable}
}

// ErrForcedExit is returned by Wait when stop is requested twice.
var ErrForcedExit = errors.New("forced exit")

// Runner runs multiple Runnables and collect errors.
// The first Runnable to stop cancels the others.
type Runner struct {
	Context context.Context

	cancel  context.CancelFunc
	count   int
	results chan runResult
	exitCh  chan struct{}
}

type runResult struct {
	name string
	err  error
}

// NewRunner creates a runner with a default background context.
func NewRunner() *Runner {
	return NewRunnerWith(context.Background())
}

// NewRunnerWith creates a runner with a specified context.
func NewRunnerWith(ctx context.Context) *Runner {
	ctx, cancel := context.WithCancel(ctx)
	return &Runner{
		Context: ctx,
		cancel:  cancel,
		results: make(chan runResult),
		exitCh:  make(chan struct{}),
	}
}

// HandleSignals handles CtrlC and SIGTERM from the system.
func (r *Runner) HandleSignals() *Runner {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		glog.Info("stop requested")
		r.cancel()
		<-sigCh
		glog.Error("stop requested again, force exit")
		close(r.exitCh)
	}()
	return r
}

// Go spawns Runnables.
func (r *Runner) Go(runners ...Runnable) *Runner {
	for _, runner := range runners {
		name := strconv.Itoa(r.count)
		if named, ok := runner.(Named); ok {
			name = named.Name()
		}
		r.count++
		go func(runner Runnable, name string) {
			glog.V(4).Infof("Runner[%s] started", name)
			err := runner.Run(r.Context)
			glog.V(4).Infof("Runner[%s] stopped: %v", name, err)
			r.cancel()
			r.results <- runResult{name: name, err: err}
		}(runner, name)
	}
	return r
}

// Stop cancels all Runnables.
func (r *Runner) Stop() {
	r.cancel()
}

// Wait waits until all Runnables stops and aggregate errors.
// Cancellation isn't considered an error.
func (r *Runner) Wait() error {
	var errs AggregatedError
	for ; r.count > 0; r.count-- {
		select {
		case <-r.exitCh:
			return ErrForcedExit
		case res := <-r.results:
			if res.err != nil && !errors.Is(res.err, context.Canceled) {
				glog.Errorf("%s: %v", res.name, res.err)
				errs.Add(res.err)
			}
		}
	}
	return errs.Aggregate()
}

// RunWithCloser runs fn which doesn't accept a context, closing closer
// to unblock it when ctx is canceled. closer is always closed on return.
func RunWithCloser(ctx context.Context, closer io.Closer, fn func() error) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- fn()
	}()
	select {
	case <-ctx.Done():
		closer.Close()
		<-errCh
		return ctx.Err()
	case err := <-errCh:
		closer.Close()
		return err
	}
}
