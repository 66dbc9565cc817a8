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
	"fmt"
	"slices"
	"strings"
	"sync"

	"gitlab.com/tozd/go/errors"
)

// Constructor builds a Backend for a Layout.
type Constructor func(layout Layout) (Backend, error)

var (
	registry      = map[Type]Constructor{}
	registryMutex sync.RWMutex
)

// Register makes a backend available under t. It is meant to be called from
// the implementing package's init.
func Register(t Type, c Constructor) {
	registryMutex.Lock()
	defer registryMutex.Unlock()

	if c == nil {
		panic(fmt.Sprintf("remote: Register constructor is nil for type %s", t))
	}
	if _, exists := registry[t]; exists {
		panic(fmt.Sprintf("remote: Register called twice for type %s", t))
	}
	registry[t] = c
}

// IsRegistered reports whether t has a constructor.
func IsRegistered(t Type) bool {
	registryMutex.RLock()
	defer registryMutex.RUnlock()
	_, ok := registry[t]
	return ok
}

// Types lists the registered backend types, sorted.
func Types() []Type {
	registryMutex.RLock()
	defer registryMutex.RUnlock()

	out := make([]Type, 0, len(registry))
	for t := range registry {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// 🏭 New builds the backend registered under t.
func New(t Type, layout Layout) (Backend, error) {
	registryMutex.RLock()
	c, ok := registry[t]
	registryMutex.RUnlock()

	if !ok {
		names := []string{}
		for _, r := range Types() {
			names = append(names, string(r))
		}
		return nil, errors.Errorf("%w: %q, options: %s", ErrUnknownType, t, strings.Join(names, ", "))
	}

	b, err := c(layout)
	if err != nil {
		return nil, errors.Errorf("creating %s backend: %w", t, err)
	}
	return b, nil
}
