package manager

import (
	"context"
	"slices"
	"sync"

	"github.com/s3studio/baseline-manager/pkg/log"
)

// State is the plugin state of a Manager. The stores stay bound and usable in
// every state; only background plugins depend on it.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

// String returns the state name used in logs.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateCrashed:
		return "crashed"
	default:
		return "unknown"
	}
}

// Reason says why the plugins changed state.
type Reason string

const (
	ReasonStartRequested  Reason = "start requested"
	ReasonPluginsReady    Reason = "plugins initialized"
	ReasonPluginFailed    Reason = "plugin initialization failed"
	ReasonStopRequested   Reason = "stop requested"
	ReasonPluginsStopped  Reason = "plugins shut down"
	ReasonShutdownTimeout Reason = "plugin shutdown timed out"
)

// Transition describes one plugin state change.
type Transition struct {
	From   State
	To     State
	Reason Reason

	// Plugin names the plugin that caused the change, if any.
	Plugin string

	// Err is the plugin error behind a crash.
	Err error
}

// StateHandler is called after every state change, outside the manager's
// locks.
type StateHandler func(Transition)

// next lists the states each state may move to.
var next = map[State][]State{
	StateStopped:  {StateStarting},
	StateStarting: {StateRunning, StateStopping, StateCrashed},
	StateRunning:  {StateStopping, StateCrashed},
	StateStopping: {StateStopped, StateCrashed},
	StateCrashed:  {StateStarting},
}

// pluginLifecycle tracks the plugin state and the context plugins run under.
type pluginLifecycle struct {
	mu      sync.RWMutex
	state   State
	cancel  context.CancelFunc
	logger  log.Logger
	handler StateHandler
}

func newPluginLifecycle(logger log.Logger, handler StateHandler) *pluginLifecycle {
	return &pluginLifecycle{
		state:   StateStopped,
		logger:  logger,
		handler: handler,
	}
}

func (l *pluginLifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

func (l *pluginLifecycle) canStop() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == StateRunning || l.state == StateStarting
}

// begin moves to Starting and keeps cancel for the plugin context.
func (l *pluginLifecycle) begin(cancel context.CancelFunc) error {
	return l.move(Transition{To: StateStarting, Reason: ReasonStartRequested}, func() { l.cancel = cancel })
}

// end moves to Stopping and cancels the plugin context.
func (l *pluginLifecycle) end() error {
	var cancel context.CancelFunc
	err := l.move(Transition{To: StateStopping, Reason: ReasonStopRequested}, func() {
		cancel = l.cancel
		l.cancel = nil
	})
	if err != nil {
		return err
	}
	if cancel != nil {
		cancel()
	}
	return nil
}

// to performs t.
func (l *pluginLifecycle) to(t Transition) error {
	return l.move(t, nil)
}

// move validates and applies t, running locked under the state lock.
// Invalid moves out of Stopped or Crashed fail with ErrNotRunning, all others
// with ErrAlreadyRunning.
func (l *pluginLifecycle) move(t Transition, locked func()) error {
	l.mu.Lock()
	t.From = l.state
	if !slices.Contains(next[t.From], t.To) {
		l.mu.Unlock()
		if t.From == StateStopped || t.From == StateCrashed {
			return ErrNotRunning
		}
		return ErrAlreadyRunning
	}
	l.state = t.To
	if locked != nil {
		locked()
	}
	l.mu.Unlock()

	fields := []log.Field{
		log.String("from", t.From.String()),
		log.String("to", t.To.String()),
		log.String("reason", string(t.Reason)),
	}
	if t.Plugin != "" {
		fields = append(fields, log.String("plugin", t.Plugin))
	}
	if t.Err != nil {
		fields = append(fields, log.Err(t.Err))
	}
	l.logger.Debug("plugin state transition", fields...)

	if l.handler != nil {
		l.handler(t)
	}
	return nil
}
