// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// DefaultTimeout bounds a single actor invocation.
const DefaultTimeout = 10 * time.Minute

// maxSteps stops a run whose transitions never settle.
const maxSteps = 256

var (
	ErrActorTimeout    = errors.New("actor timed out")
	ErrActorPanic      = errors.New("actor panicked")
	ErrUnexpectedEvent = errors.New("unexpected event")
	ErrMissingActor    = errors.New("no actor registered")
	ErrStuck           = errors.New("engine stuck")
)

// Observer is told about every state entered and every actor outcome.
type Observer interface {
	StateEntered(ctx context.Context, s State)
	ActorFinished(ctx context.Context, s State, a ActorName, e Event, took time.Duration)
}

type nopObserver struct{}

func (nopObserver) StateEntered(context.Context, State)                                  {}
func (nopObserver) ActorFinished(context.Context, State, ActorName, Event, time.Duration) {}

// Failure records a fail event and where it happened.
type Failure struct {
	State State
	Actor ActorName
	Err   error
}

// 📋 Result is the outcome of one run.
type Result struct {
	RunID   string
	State   State
	Trace   []State
	Context Context

	// Failure is set when State is error.
	Failure *Failure

	// Recovered lists fail events that did not end the run, such as a merge
	// conflict with a live remote.
	Recovered []Failure
}

// Option configures a Machine.
type Option func(*Machine)

// WithTimeout bounds each actor invocation. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(m *Machine) { m.timeout = d }
}

// WithObserver registers an observer.
func WithObserver(o Observer) Option {
	return func(m *Machine) { m.observer = o }
}

// ⚙️ Machine runs the transition table, invoking one actor per phase.
type Machine struct {
	actors   map[ActorName]Actor
	timeout  time.Duration
	observer Observer
}

// New builds a Machine over actors.
func New(actors map[ActorName]Actor, opts ...Option) *Machine {
	m := &Machine{
		actors:   actors,
		timeout:  DefaultTimeout,
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run executes one command to a terminal state. A returned error means the
// machine itself is misconfigured; actor failures are reported in the Result.
func (m *Machine) Run(ctx context.Context, in Input) (*Result, error) {
	runID := uuid.NewString()
	logger := zerolog.Ctx(ctx).With().Str("run_id", runID).Str("command", string(in.Command)).Logger()
	ctx = logger.WithContext(ctx)

	res := &Result{RunID: runID}
	c := NewContext(in)

	var queue []Event
	state, actions := Start()

	move := func(next State, acts []Action) {
		c = ApplyAll(c, acts)
		queue = append(queue, Raised(c, acts)...)
		if next != state {
			logger.Debug().Str("from", string(state)).Str("to", string(next)).Msg("transition")
		}
		state = next
		res.Trace = append(res.Trace, state)
		m.observer.StateEntered(ctx, state)
	}

	move(state, actions)

	for steps := 0; ; steps++ {
		if steps > maxSteps {
			return nil, errors.Errorf("%w: no terminal state after %d steps, last %s", ErrStuck, maxSteps, state)
		}

		if next, acts, ok := Resolve(state, c); ok {
			move(next, acts)
			continue
		}

		if state.IsFinal() {
			break
		}

		if len(queue) > 0 {
			e := queue[0]
			queue = queue[1:]
			if next, acts, ok := Transition(state, e, c); ok {
				move(next, acts)
			} else {
				logger.Debug().Str("state", string(state)).Str("event", string(e.Type)).Msg("event dropped")
			}
			continue
		}

		name := Invokes(state)
		if name == "" {
			return nil, errors.Errorf("%w: %s has no actor and no pending event", ErrStuck, state)
		}
		actor, ok := m.actors[name]
		if !ok || actor == nil {
			return nil, errors.Errorf("%w: %s", ErrMissingActor, name)
		}

		e, took := m.invoke(ctx, name, actor, InputFor(name, c))
		m.observer.ActorFinished(ctx, state, name, e, took)

		next, acts, ok := Transition(state, e, c)
		if !ok {
			e = Fail(errors.Errorf("%w: %s reported %s in %s", ErrUnexpectedEvent, name, e.Type, state))
			next, acts, _ = Transition(state, e, c)
		}

		if e.Type == EventFail {
			f := Failure{State: state, Actor: name, Err: e.Err}
			if next == StateError {
				res.Failure = &f
				logger.Error().Err(e.Err).Str("state", string(state)).Str("actor", string(name)).Msg("phase failed")
			} else {
				res.Recovered = append(res.Recovered, f)
				logger.Warn().Err(e.Err).Str("state", string(state)).Str("actor", string(name)).Str("next", string(next)).Msg("phase failed, recovering")
			}
		}

		move(next, acts)
	}

	res.State = state
	res.Context = c
	return res, nil
}

// invoke runs actor in its own goroutine and waits for its single event. The
// actor's context is cancelled and its Cleanup called before invoke returns.
func (m *Machine) invoke(ctx context.Context, name ActorName, actor Actor, in ActorInput) (Event, time.Duration) {
	start := time.Now()

	var (
		actx   context.Context
		cancel context.CancelFunc
	)
	if m.timeout > 0 {
		actx, cancel = context.WithTimeout(ctx, m.timeout)
	} else {
		actx, cancel = context.WithCancel(ctx)
	}
	defer func() {
		cancel()
		if cl, ok := actor.(Cleaner); ok {
			cl.Cleanup()
		}
	}()

	done := make(chan Event, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- Fail(errors.Errorf("%w: %s: %v", ErrActorPanic, name, r))
			}
		}()
		done <- actor.Run(actx, in)
	}()

	select {
	case e := <-done:
		return e, time.Since(start)
	case <-actx.Done():
		err := actx.Err()
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			err = errors.Errorf("%w: %s after %s", ErrActorTimeout, name, m.timeout)
		}
		return Fail(err), time.Since(start)
	}
}
