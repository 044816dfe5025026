// Package framework runs the periodic work of a daemon: runnables in the
// background and controllers polled by a Loop in priority order.
package framework

import (
	"context"
	"time"
)

// Named is an abstraction for things with a name.
type Named interface {
	Name() string
}

// Runnable defines a generic interface for background runners.
type Runnable interface {
	Run(context.Context) error
}

// RunFunc is the func form of Runnable.
type RunFunc func(context.Context) error

// Run implements Runnable.
func (f RunFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// Message is the data exchanged between controllers in a Loop.
type Message interface {
	// Kind identifies the type of message, used by consumers to pick
	// the messages they are interested in.
	Kind() string
}

// Controller defines the logic executed in each iteration.
type Controller interface {
	Control(ControlContext) error
}

// ControlFunc defines the func form of Controller.
type ControlFunc func(ControlContext) error

// Control implements Controller.
func (f ControlFunc) Control(ctx ControlContext) error {
	return f(ctx)
}

// ControlContext provides the context of current control iteration.
type ControlContext interface {
	// Context retrieves context.Context.
	Context() context.Context
	// Time is when the iteration started.
	Time() time.Time
	// PriorityLevel gets the current priority level.
	PriorityLevel() int
	// Messages retrieves messages of this iteration: the ones posted
	// before it started and the ones added by controllers at higher
	// priority levels.
	Messages() MessageStore

	LoopControl
}

// LoopControl exposes access to the controlling loop.
type LoopControl interface {
	// PostMessage enqueues the message for the next iteration.
	PostMessage(Message)
	// TriggerNext schedules the next iteration to be executed
	// immediately after the current iteration.
	TriggerNext()
}

// MessageStore holds the messages of one iteration.
type MessageStore interface {
	// Take removes and returns the messages of the kind.
	Take(kind string) []Message
	// Peek returns the messages of the kind without removing them.
	Peek(kind string) []Message
	// Add appends messages visible to the remaining controllers.
	Add(msgs ...Message)
}

// PriorityLevels is the total levels of priorities.
const PriorityLevels int = 16

// Predefine priority levels
const (
	PrLvTop    int = 0
	PrLvHigh   int = 4
	PrLvNormal int = 8
	PrLvLow    int = 12
	PrLvIdle   int = PriorityLevels - 1

	// PrLvSense is the alias of priority level for sensors.
	PrLvSense = PrLvHigh
	// PrLvControl is the alias of priority level for controllers.
	PrLvControl = PrLvNormal
	// PrLvAcuate is the alias of priority level for acuators.
	PrLvAcuate = PrLvLow
	// PrLvPostProc is the alias of priority level for post-processing.
	PrLvPostProc = PrLvIdle - 1
)
