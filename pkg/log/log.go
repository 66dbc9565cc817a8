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

package log

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"

	"github.com/walteh/metafiles/pkg/engine"
	"github.com/walteh/metafiles/pkg/remote"
)

// 🎨 Display configuration
const (
	phaseIndent = 2  // spaces to indent phase results
	fileIndent  = 6  // spaces to indent file entries
	phaseWidth  = 16 // width for the phase name
	nameWidth   = 48 // width for the file path
)

// 🎯 FileOperation is one file moved between the host and a store
type FileOperation struct {
	Path string // host path
	Kind string // transcribe, deploy or add
	Err  error
}

// 🎯 Logger writes the human-facing progress of a run to the console and
// mirrors every line to zerolog. It implements engine.Observer.
type Logger struct {
	zlog    zerolog.Logger
	console io.Writer
	mu      sync.Mutex

	phase  engine.State
	copied int
	failed int
}

var _ engine.Observer = (*Logger)(nil)

// 🏭 New creates a new logger
func New(console io.Writer, zlog zerolog.Logger) *Logger {
	return &Logger{
		zlog:    zlog,
		console: console,
	}
}

// 🔑 contextKey is the type for context values
type contextKey struct{}

// 🎯 FromContext gets the logger from context
func FromContext(ctx context.Context) *Logger {
	logger, ok := ctx.Value(contextKey{}).(*Logger)
	if !ok {
		panic("logger not found in context")
	}
	return logger
}

// 🎯 NewContext adds the logger to context
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// StateEntered prints a header for every phase that runs an actor.
func (l *Logger) StateEntered(ctx context.Context, s engine.State) {
	zerolog.Ctx(ctx).Debug().Str("state", string(s)).Msg("entered state")

	if engine.Invokes(s) == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.phase = s
	l.copied, l.failed = 0, 0
	fmt.Fprintf(l.console, "%s %s\n",
		color.New(color.FgMagenta).Sprint("◆"),
		color.New(color.Bold).Sprint(s.Leaf()))
}

// ActorFinished prints the outcome of a phase.
func (l *Logger) ActorFinished(ctx context.Context, s engine.State, a engine.ActorName, e engine.Event, took time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ev := zerolog.Ctx(ctx).Info()
	if e.Type == engine.EventFail {
		ev = zerolog.Ctx(ctx).Warn().Err(e.Err)
	}
	ev.Str("state", string(s)).
		Str("actor", string(a)).
		Str("event", string(e.Type)).
		Dur("took", took).
		Int("copied", l.copied).
		Int("failed", l.failed).
		Msg("actor finished")

	fmt.Fprintln(l.console, formatPhase(s, e, took))
}

func formatPhase(s engine.State, e engine.Event, took time.Duration) string {
	symbol := color.New(color.FgGreen).Sprint("✓")
	detail := color.New(color.Faint).Sprint(took.Round(time.Millisecond).String())
	if e.Type == engine.EventFail {
		symbol = color.New(color.FgRed).Sprint("✗")
		detail = color.New(color.FgRed).Sprint(e.Err)
	}
	return fmt.Sprintf("%*s%s %-*s %s", phaseIndent, "", symbol, phaseWidth, s.Leaf(), detail)
}

// 📝 LogFileOperation logs a file operation
func (l *Logger) LogFileOperation(ctx context.Context, op FileOperation) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if op.Err != nil {
		l.failed++
		zerolog.Ctx(ctx).Warn().Err(op.Err).Str("file", op.Path).Str("kind", op.Kind).Msg("file operation failed")
	} else {
		l.copied++
		zerolog.Ctx(ctx).Debug().Str("file", op.Path).Str("kind", op.Kind).Msg("file operation")
	}

	fmt.Fprintln(l.console, formatFileOperation(op))
}

// 📝 formatFileOperation formats a file operation for display
func formatFileOperation(op FileOperation) string {
	symbol := color.New(color.FgCyan).Sprint("•")
	status := color.New(color.FgBlue).Sprint(op.Kind)
	if op.Err != nil {
		symbol = color.New(color.FgRed).Sprint("✗")
		status = color.New(color.FgRed).Sprintf("%s: %v", op.Kind, op.Err)
	}
	return fmt.Sprintf("%*s%s %-*s %s", fileIndent, "", symbol, nameWidth, op.Path, status)
}

// 📋 Summarize prints the end of a run. A run ending in error names the
// failing phase and its error.
func (l *Logger) Summarize(ctx context.Context, res *engine.Result) {
	for _, r := range res.Recovered {
		l.Warningf("%s recovered: %v", r.State.Leaf(), r.Err)
		l.hint(r.Err)
	}

	if res.State != engine.StateError {
		l.Successf("%s complete", res.Context.Command)
		return
	}

	if res.Failure == nil {
		l.Errorf("%s failed", res.Context.Command)
		return
	}

	where := res.Failure.State.Leaf()
	if res.Failure.Actor != "" {
		where = fmt.Sprintf("%s (%s)", where, res.Failure.Actor)
	}
	l.Errorf("%s failed in %s: %v", res.Context.Command, where, res.Failure.Err)
	l.hint(res.Failure.Err)
}

// hint suggests the next step for errors the user can act on.
func (l *Logger) hint(err error) {
	switch {
	case remote.IsRetryable(err):
		l.Infof("the remote moved on, run mf sync again")
	case remote.IsUserActionRequired(err):
		l.Infof("resolve the conflicts in the shadow store and rerun mf sync")
	case remote.IsFatal(err):
		l.Infof("check store_type in the config, then run mf init or mf join <target>")
	}
}

// 📝 Header logs a header
func (l *Logger) Header(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	name := color.New(color.Bold, color.FgCyan).Sprint("mf")
	fmt.Fprintf(l.console, "\n%s %s\n\n", name, color.New(color.Faint).Sprint("• "+msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Success logs a success message
func (l *Logger) Success(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "✅ %s\n", color.New(color.FgGreen).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Warning logs a warning message
func (l *Logger) Warning(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "⚠️  %s\n", color.New(color.FgYellow).Sprint(msg))
	l.zlog.Warn().Msg(msg)
}

// 📝 Error logs an error message
func (l *Logger) Error(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "❌ %s\n", color.New(color.FgRed).Sprint(msg))
	l.zlog.Error().Msg(msg)
}

// 📝 Info logs an info message
func (l *Logger) Info(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "ℹ️  %s\n", color.New(color.FgCyan).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.Info(fmt.Sprintf(format, args...))
}

func (l *Logger) Warningf(format string, args ...interface{}) {
	l.Warning(fmt.Sprintf(format, args...))
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	l.Error(fmt.Sprintf(format, args...))
}

func (l *Logger) Successf(format string, args ...interface{}) {
	l.Success(fmt.Sprintf(format, args...))
}
