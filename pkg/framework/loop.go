package framework

import (
	"context"
	"sync"
	"time"

	"github.com/golang/glog"
)

// DefaultInterval is the default period of a Loop.
const DefaultInterval = 100 * time.Millisecond

// Loop polls controllers periodically in priority order, from PrLvTop
// to PrLvIdle, and runs the background Runnables attached to it.
type Loop struct {
	Interval time.Duration

	controllers [PriorityLevels][]Controller
	runners     []Runnable

	pending []Message
	lock    sync.Mutex

	wakeUpCh chan struct{}
}

// LoopAdder provides specific logic to add components to loop.
type LoopAdder interface {
	AddToLoop(*Loop)
}

type loopCtlKey struct{}

// LoopCtlFrom gets LoopControl from the context given to Runnables of a Loop.
func LoopCtlFrom(ctx context.Context) LoopControl {
	ctl, _ := ctx.Value(loopCtlKey{}).(LoopControl)
	return ctl
}

// NewLoop creates a Loop.
func NewLoop(interval time.Duration) *Loop {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Loop{Interval: interval, wakeUpCh: make(chan struct{}, 1)}
}

// Add adds LoopAdders.
func (l *Loop) Add(adders ...LoopAdder) *Loop {
	for _, adder := range adders {
		adder.AddToLoop(l)
	}
	return l
}

// AddController registers controllers at the priority level.
// Controllers which are also Runnable are started with the loop.
func (l *Loop) AddController(priorityLevel int, ctls ...Controller) *Loop {
	l.controllers[priorityLevel] = append(l.controllers[priorityLevel], ctls...)
	for _, ctl := range ctls {
		if runner, ok := ctl.(Runnable); ok {
			l.runners = append(l.runners, runner)
		}
	}
	return l
}

// AddRunnable adds Runnable implementions.
func (l *Loop) AddRunnable(runnables ...Runnable) *Loop {
	l.runners = append(l.runners, runnables...)
	return l
}

// Run implements Runnable.
func (l *Loop) Run(ctx context.Context) error {
	runner := NewRunnerWith(context.WithValue(ctx, loopCtlKey{}, LoopControl(l)))
	runner.Go(l.runners...)
	defer runner.Wait()
	defer runner.Stop()

	ticker := time.NewTicker(l.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-runner.Context.Done():
			if err := ctx.Err(); err != nil {
				return err
			}
			return runner.Wait()
		case now := <-ticker.C:
			l.RunIteration(ctx, now)
		case <-l.wakeUpCh:
			l.RunIteration(ctx, time.Now())
		}
	}
}

// PostMessage implements LoopControl.
func (l *Loop) PostMessage(msg Message) {
	l.lock.Lock()
	l.pending = append(l.pending, msg)
	l.lock.Unlock()
}

// TriggerNext implements LoopControl.
func (l *Loop) TriggerNext() {
	select {
	case l.wakeUpCh <- struct{}{}:
	default:
	}
}

// RunIteration runs all controllers once with the messages posted so far.
// Messages nobody takes are dropped at the end of the iteration.
func (l *Loop) RunIteration(ctx context.Context, now time.Time) {
	iter := &loopIteration{Loop: l, time: now}
	l.lock.Lock()
	iter.messages, l.pending = l.pending, nil
	l.lock.Unlock()
	iter.ctx = context.WithValue(ctx, loopCtlKey{}, LoopControl(l))
	for i := 0; i < PriorityLevels; i++ {
		iter.priorityLevel = i
		for _, ctl := range l.controllers[i] {
			if err := ctl.Control(iter); err != nil {
				glog.Errorf("controller error: %v", err)
			}
		}
	}
	if n := len(iter.messages); n > 0 {
		glog.V(4).Infof("%d messages dropped", n)
	}
}

type loopIteration struct {
	*Loop
	ctx           context.Context
	time          time.Time
	priorityLevel int
	messages      []Message
}

func (t *loopIteration) Context() context.Context {
	return t.ctx
}

func (t *loopIteration) Time() time.Time {
	return t.time
}

func (t *loopIteration) PriorityLevel() int {
	return t.priorityLevel
}

func (t *loopIteration) Messages() MessageStore {
	return t
}

func (t *loopIteration) Take(kind string) []Message {
	var taken []Message
	remains := t.messages[:0]
	for _, msg := range t.messages {
		if msg.Kind() == kind {
			taken = append(taken, msg)
		} else {
			remains = append(remains, msg)
		}
	}
	for n := len(remains); n < len(t.messages); n++ {
		t.messages[n] = nil
	}
	t.messages = remains
	return taken
}

func (t *loopIteration) Peek(kind string) []Message {
	var found []Message
	for _, msg := range t.messages {
		if msg.Kind() == kind {
			found = append(found, msg)
		}
	}
	return found
}

func (t *loopIteration) Add(msgs ...Message) {
	t.messages = append(t.messages, msgs...)
}
