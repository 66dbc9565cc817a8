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

// Package state persists what the frontend needs to know about the store
// between runs: whether it was initialized, with which backend and for which
// machine.
package state

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/metafiles/pkg/path"
)

// SchemaVersion is written into every saved file.
const SchemaVersion = "1"

// State is the content of state.json.
type State struct {
	SchemaVersion string    `json:"schema_version"`
	Initialized   bool      `json:"initialized"`
	Type          string    `json:"type,omitempty"`
	Machine       string    `json:"machine,omitempty"`
	JoinedFrom    string    `json:"joined_from,omitempty"`
	Created       time.Time `json:"created,omitempty"`
	LastSync      time.Time `json:"last_sync,omitempty"`
}

// 📥 Load reads the state file at p. A missing file is the zero state.
func Load(ctx context.Context, fs afero.Fs, p path.AbsolutePath) (*State, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", p.String()).Msg("loading state")

	data, err := afero.ReadFile(fs, p.String())
	if err != nil {
		if os.IsNotExist(err) {
			return &State{SchemaVersion: SchemaVersion}, nil
		}
		return nil, errors.Errorf("reading state file: %w", err)
	}

	var s State
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return nil, errors.Errorf("decoding state file %s: %w", p, err)
	}
	if s.SchemaVersion != SchemaVersion {
		return nil, errors.Errorf("state file %s has schema version %q, want %q", p, s.SchemaVersion, SchemaVersion)
	}
	return &s, nil
}

// 💾 Save writes s to p through a temporary file so a crash never leaves a
// truncated state file behind.
func (s *State) Save(ctx context.Context, fs afero.Fs, p path.AbsolutePath) error {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", p.String()).Msg("writing state")

	s.SchemaVersion = SchemaVersion

	data, err := json.MarshalIndent(s, "", "\t")
	if err != nil {
		return errors.Errorf("encoding state: %w", err)
	}
	data = append(data, '\n')

	if err := fs.MkdirAll(p.Dirname().String(), 0o755); err != nil {
		return errors.Errorf("creating state directory: %w", err)
	}

	tmp := p.String() + ".tmp"
	if err := afero.WriteFile(fs, tmp, data, 0o644); err != nil {
		return errors.Errorf("writing state file: %w", err)
	}
	if err := fs.Rename(tmp, p.String()); err != nil {
		_ = fs.Remove(tmp)
		return errors.Errorf("replacing state file: %w", err)
	}
	return nil
}

// MarkInitialized records a freshly created or joined store.
func (s *State) MarkInitialized(storeType, machine, joinedFrom string, now time.Time) {
	s.Initialized = true
	s.Type = storeType
	s.Machine = machine
	s.JoinedFrom = joinedFrom
	if s.Created.IsZero() {
		s.Created = now.UTC()
	}
}

// MarkSynced records the end of a successful sync.
func (s *State) MarkSynced(now time.Time) {
	s.LastSync = now.UTC()
}

// Update loads the state at p, applies fn and saves it.
func Update(ctx context.Context, fs afero.Fs, p path.AbsolutePath, fn func(s *State)) error {
	s, err := Load(ctx, fs, p)
	if err != nil {
		return err
	}
	fn(s)
	return s.Save(ctx, fs, p)
}
