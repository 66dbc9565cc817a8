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

import "gitlab.com/tozd/go/errors"

var (
	// ErrConflicts is returned when a merge cannot complete without manual
	// resolution.
	ErrConflicts = errors.New("unresolved conflicts")

	// ErrNoRemote is returned when an operation needs a remote and none is
	// configured.
	ErrNoRemote = errors.New("no remote configured")

	// ErrPushRejected is returned when the remote refuses a push, usually
	// because it moved on.
	ErrPushRejected = errors.New("push rejected by remote")

	// ErrRefNotFound is returned when a branch or tag does not exist.
	ErrRefNotFound = errors.New("reference not found")

	// ErrUnknownType is returned for a Type with no registered constructor.
	ErrUnknownType = errors.New("unknown store type")

	// ErrNotInitialized is returned when a store is used before Create or Join.
	ErrNotInitialized = errors.New("store not initialized")

	// ErrAlreadyInitialized is returned when Create or Join finds a store in place.
	ErrAlreadyInitialized = errors.New("store already initialized")
)

// IsUserActionRequired reports whether err needs the user to step in, such
// as resolving a conflict by hand.
func IsUserActionRequired(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrConflicts) || errors.Is(err, ErrPushRejected)
}

// IsRetryable reports whether err is likely to clear on a later sync.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrPushRejected)
}

// IsFatal reports whether err means the store cannot be used at all.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrNotInitialized) || errors.Is(err, ErrUnknownType)
}
