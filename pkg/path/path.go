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

// Package path provides normalized absolute and relative path values.
//
// A Path is either an AbsolutePath or a RelativePath. Both are normalized on
// construction: no empty value, no doubled or trailing separators, and "." and
// ".." collapsed, except that leading ".." components of a relative path are
// kept until the path is resolved against an absolute base.
//
// Only AbsolutePath is accepted by the filesystem layers (node, store).
// A RelativePath reaches them through Resolve or Parse.
package path

import (
	"fmt"
	pathpkg "path"
	"strings"
)

const separator = "/"

// 🚫 InvalidPathError reports a path that could not be constructed or resolved.
type InvalidPathError struct {
	Path   string
	Reason string
}

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("invalid path %q: %s", e.Path, e.Reason)
}

// 📦 Path is implemented by AbsolutePath and RelativePath only.
type Path interface {
	String() string
	IsAbsolute() bool
	Components() []string
	NumComponents() int

	sealed()
}

// IsAbsolute reports whether s is written as an absolute path.
func IsAbsolute(s string) bool {
	return strings.HasPrefix(s, separator)
}

func normalize(s string) (string, error) {
	if s == "" {
		return "", &InvalidPathError{Path: s, Reason: "path cannot be empty"}
	}
	return pathpkg.Clean(s), nil
}

func components(s string) []string {
	parts := strings.Split(s, separator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" || p == "." {
			continue
		}
		out = append(out, p)
	}
	return out
}

// 🔍 CommonPrefix returns the longest sequence of leading components shared by
// all paths. It returns false when the paths mix absolute and relative kinds
// or when relative paths share no component. Absolute paths always share at
// least the root.
func CommonPrefix(paths ...Path) (Path, bool) {
	if len(paths) == 0 {
		return nil, false
	}

	absolute := paths[0].IsAbsolute()
	shared := paths[0].Components()
	for _, p := range paths[1:] {
		if p.IsAbsolute() != absolute {
			return nil, false
		}
		comps := p.Components()
		n := 0
		for n < len(shared) && n < len(comps) && shared[n] == comps[n] {
			n++
		}
		shared = shared[:n]
	}

	if absolute {
		return AbsolutePath{p: separator + strings.Join(shared, separator)}, true
	}
	if len(shared) == 0 {
		return nil, false
	}
	return RelativePath{p: strings.Join(shared, separator)}, true
}

// HasPrefix reports whether prefix covers p on a component boundary.
func HasPrefix(p, prefix Path) bool {
	common, ok := CommonPrefix(p, prefix)
	if !ok {
		return false
	}
	return common.String() == prefix.String()
}

// AbsolutePath is a normalized path beginning with "/".
type AbsolutePath struct {
	p string
}

var _ Path = AbsolutePath{}

// Root is the filesystem root.
var Root = AbsolutePath{p: separator}

// NewAbsolute builds an AbsolutePath from an absolute string.
func NewAbsolute(s string) (AbsolutePath, error) {
	if !IsAbsolute(s) {
		return AbsolutePath{}, &InvalidPathError{Path: s, Reason: "not an absolute path"}
	}
	n, err := normalize(s)
	if err != nil {
		return AbsolutePath{}, err
	}
	return AbsolutePath{p: n}, nil
}

// NewAbsoluteFrom resolves the relative string rel against base.
func NewAbsoluteFrom(rel string, base AbsolutePath) (AbsolutePath, error) {
	if IsAbsolute(rel) {
		return AbsolutePath{}, &InvalidPathError{Path: rel, Reason: "invalid arguments: absolute path given with a base"}
	}
	r, err := NewRelative(rel)
	if err != nil {
		return AbsolutePath{}, err
	}
	return r.Resolve(base)
}

// MustAbsolute is NewAbsolute for values known to be valid.
func MustAbsolute(s string) AbsolutePath {
	p, err := NewAbsolute(s)
	if err != nil {
		panic(err)
	}
	return p
}

func (a AbsolutePath) String() string       { return a.p }
func (a AbsolutePath) IsAbsolute() bool     { return true }
func (a AbsolutePath) Components() []string { return components(a.p) }
func (a AbsolutePath) NumComponents() int   { return len(a.Components()) }
func (a AbsolutePath) sealed()              {}

// IsZero reports whether a was never constructed.
func (a AbsolutePath) IsZero() bool { return a.p == "" }

// IsRoot reports whether a is "/".
func (a AbsolutePath) IsRoot() bool { return a.p == separator }

// Dirname returns the parent directory. The parent of the root is the root.
func (a AbsolutePath) Dirname() AbsolutePath {
	return AbsolutePath{p: pathpkg.Dir(a.p)}
}

// Base returns the last component, or "/" for the root.
func (a AbsolutePath) Base() string {
	return pathpkg.Base(a.p)
}

// Join appends rel lexically. Use RelativePath.Resolve when ascent above the
// root must be rejected instead of clamped.
func (a AbsolutePath) Join(rel RelativePath) AbsolutePath {
	return AbsolutePath{p: pathpkg.Join(a.p, rel.p)}
}

// JoinString is Join for a raw relative string.
func (a AbsolutePath) JoinString(rel string) (AbsolutePath, error) {
	r, err := NewRelative(rel)
	if err != nil {
		return AbsolutePath{}, err
	}
	return a.Join(r), nil
}

// HasPrefix reports whether prefix covers a on a component boundary.
func (a AbsolutePath) HasPrefix(prefix AbsolutePath) bool {
	return HasPrefix(a, prefix)
}

// Rel returns the relative path leading from a to target. The result is "."
// when both are equal.
func (a AbsolutePath) Rel(target AbsolutePath) RelativePath {
	from := a.Components()
	to := target.Components()
	n := 0
	for n < len(from) && n < len(to) && from[n] == to[n] {
		n++
	}
	parts := make([]string, 0, len(from)-n+len(to)-n)
	for range from[n:] {
		parts = append(parts, "..")
	}
	parts = append(parts, to[n:]...)
	if len(parts) == 0 {
		return RelativePath{p: "."}
	}
	return RelativePath{p: strings.Join(parts, separator)}
}

// Equal reports whether a and b name the same path.
func (a AbsolutePath) Equal(b AbsolutePath) bool {
	return a.p == b.p
}

// RelativePath is a normalized path that never begins with "/".
type RelativePath struct {
	p string
}

var _ Path = RelativePath{}

// NewRelative joins parts into a RelativePath.
func NewRelative(parts ...string) (RelativePath, error) {
	joined := strings.Join(parts, separator)
	if joined == "" {
		return RelativePath{}, &InvalidPathError{Path: joined, Reason: "path cannot be empty"}
	}
	if IsAbsolute(joined) {
		return RelativePath{}, &InvalidPathError{Path: joined, Reason: "cannot create a relative path from an absolute path"}
	}
	n, err := normalize(joined)
	if err != nil {
		return RelativePath{}, err
	}
	return RelativePath{p: n}, nil
}

// MustRelative is NewRelative for values known to be valid.
func MustRelative(parts ...string) RelativePath {
	p, err := NewRelative(parts...)
	if err != nil {
		panic(err)
	}
	return p
}

func (r RelativePath) String() string       { return r.p }
func (r RelativePath) IsAbsolute() bool     { return false }
func (r RelativePath) Components() []string { return components(r.p) }
func (r RelativePath) NumComponents() int   { return len(r.Components()) }
func (r RelativePath) sealed()              {}

// IsZero reports whether r was never constructed.
func (r RelativePath) IsZero() bool { return r.p == "" }

// Dirname returns the parent directory, "." for a single component.
func (r RelativePath) Dirname() RelativePath {
	return RelativePath{p: pathpkg.Dir(r.p)}
}

// Base returns the last component.
func (r RelativePath) Base() string {
	return pathpkg.Base(r.p)
}

// Join appends other to r.
func (r RelativePath) Join(other RelativePath) RelativePath {
	return RelativePath{p: pathpkg.Join(r.p, other.p)}
}

// HasPrefix reports whether prefix covers r on a component boundary.
func (r RelativePath) HasPrefix(prefix RelativePath) bool {
	return HasPrefix(r, prefix)
}

// 🎯 Resolve anchors r at base. Walking the components left to right, every ".."
// spends one component of ascent budget and every other component adds one;
// the budget starts at the component count of base and resolution fails as
// soon as it would go negative.
func (r RelativePath) Resolve(base AbsolutePath) (AbsolutePath, error) {
	comps := r.Components()
	budget := base.NumComponents()
	for _, c := range comps {
		if c == ".." {
			budget--
		} else {
			budget++
		}
		if budget < 0 {
			return AbsolutePath{}, &InvalidPathError{
				Path:   r.p,
				Reason: fmt.Sprintf("too many parent directories to resolve against %s", base.p),
			}
		}
	}
	return AbsolutePath{p: pathpkg.Join(base.p, r.p)}, nil
}

// Parse builds an AbsolutePath from s. Relative input is resolved against
// cwd.
func Parse(s string, cwd AbsolutePath) (AbsolutePath, error) {
	if IsAbsolute(s) {
		return NewAbsolute(s)
	}
	return NewAbsoluteFrom(s, cwd)
}
