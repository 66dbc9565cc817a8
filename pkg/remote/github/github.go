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

// Package github expands "github:owner/repo" join targets into clone URLs.
package github

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/google/go-github/v60/github"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/oauth2"

	"github.com/walteh/metafiles/pkg/remote"
)

// Scheme is the join target prefix handled by Resolver.
const Scheme = "github"

var ErrRepositoryNotFound = errors.New("github repository not found")

var _ remote.Resolver = (*Resolver)(nil)

// 🐙 Resolver looks repositories up through the GitHub API.
type Resolver struct {
	client *github.Client
	ssh    bool
}

// Option configures a Resolver.
type Option func(*Resolver) error

// WithSSH makes the resolver hand out ssh clone URLs.
func WithSSH() Option {
	return func(r *Resolver) error {
		r.ssh = true
		return nil
	}
}

// WithBaseURL points the client at another API endpoint.
func WithBaseURL(base string) Option {
	return func(r *Resolver) error {
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return errors.Errorf("parsing base url: %w", err)
		}
		r.client.BaseURL = u
		return nil
	}
}

// 🏭 New builds a Resolver. GITHUB_TOKEN authenticates requests when set,
// which private repositories need.
func New(ctx context.Context, opts ...Option) (*Resolver, error) {
	var hc *http.Client
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		hc = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	} else {
		zerolog.Ctx(ctx).Debug().Msg("GITHUB_TOKEN not set, using anonymous github client")
	}

	r := &Resolver{client: github.NewClient(hc)}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func parseTarget(target string) (owner, name string, err error) {
	target = strings.TrimSuffix(strings.Trim(target, "/"), ".git")
	owner, name, ok := strings.Cut(target, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", errors.Errorf("invalid repository %q, expected owner/repo", target)
	}
	return owner, name, nil
}

// 🔍 Resolve returns the clone URL of owner/repo.
func (r *Resolver) Resolve(ctx context.Context, target string) (string, error) {
	owner, name, err := parseTarget(target)
	if err != nil {
		return "", err
	}

	repo, _, err := r.client.Repositories.Get(ctx, owner, name)
	if err != nil {
		var ghErr *github.ErrorResponse
		if errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusNotFound {
			return "", errors.Errorf("%w: %s/%s", ErrRepositoryNotFound, owner, name)
		}
		return "", errors.Errorf("getting repository %s/%s: %w", owner, name, err)
	}

	uri := repo.GetCloneURL()
	if r.ssh {
		uri = repo.GetSSHURL()
	}
	if uri == "" {
		return "", errors.Errorf("repository %s has no clone url", repo.GetFullName())
	}

	zerolog.Ctx(ctx).Debug().Str("repository", repo.GetFullName()).Str("uri", uri).Msg("resolved join target")
	return uri, nil
}
