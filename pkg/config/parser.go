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

package config

import (
	"context"
	"strings"

	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/metafiles/pkg/path"
)

// 🔌 Parser decodes one config file format.
type Parser interface {
	// 📝 Parse decodes data, rejecting unknown fields
	Parse(ctx context.Context, data []byte) (*File, error)

	// 🔍 CanParse reports whether filename has this parser's format
	CanParse(filename string) bool
}

var (
	// 🗺️ parsers in registration order
	parsers []Parser
)

// 📝 Register adds a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns the first parser that handles filename, or nil
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

func hasExt(filename string, exts ...string) bool {
	name := strings.ToLower(strings.TrimSpace(filename))
	for _, ext := range exts {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// searchOrder is the order config files are looked for in the files dir.
var searchOrder = []string{"config.hcl", "config.yaml", "config.yml", "config.json", "config.toml"}

// Find returns the first config file present in dir, or "" when there is none.
func Find(fs afero.Fs, dir path.AbsolutePath) (string, error) {
	for _, name := range searchOrder {
		p := dir.Join(path.MustRelative(name)).String()
		ok, err := afero.Exists(fs, p)
		if err != nil {
			return "", errors.Errorf("checking %s: %w", p, err)
		}
		if ok {
			return p, nil
		}
	}
	return "", nil
}

// Load reads and decodes the config file at filename.
func Load(ctx context.Context, fs afero.Fs, filename string) (*File, error) {
	p := GetParser(filename)
	if p == nil {
		return nil, errors.Errorf("no parser found for file: %s", filename)
	}

	data, err := afero.ReadFile(fs, filename)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	f, err := p.Parse(ctx, data)
	if err != nil {
		return nil, errors.Errorf("parsing %s: %w", filename, err)
	}
	return f, nil
}
