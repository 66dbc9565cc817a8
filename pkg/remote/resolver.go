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

package remote

import (
	"context"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// Resolver turns a short join target such as "owner/repo" into a URI a
// Backend can clone.
type Resolver interface {
	Resolve(ctx context.Context, target string) (string, error)
}

// Resolvers maps a target scheme ("github" in "github:owner/repo") to the
// resolver that expands it.
type Resolvers map[string]Resolver

// 🔗 Resolve expands target when its scheme is registered and returns it
// unchanged otherwise, so plain URLs, scp-style addresses and local paths pass
// through.
func (r Resolvers) Resolve(ctx context.Context, target string) (string, error) {
	if target == "" {
		return "", errors.New("empty join target")
	}

	scheme, rest, ok := strings.Cut(target, ":")
	if !ok || strings.HasPrefix(rest, "//") {
		return target, nil
	}

	res, ok := r[scheme]
	if !ok || res == nil {
		return target, nil
	}

	uri, err := res.Resolve(ctx, rest)
	if err != nil {
		return "", errors.Errorf("resolving %s target %q: %w", scheme, rest, err)
	}
	return uri, nil
}
