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

// 📦 Package update checks GitHub releases for a newer subrc build and
// swaps the running executable when one is available.
package update

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/google/go-github/v60/github"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// 🎯 Release coordinates for the published binaries
const (
	repoOwner = "walteh"
	repoName  = "subrc"
)

// 🎯 version is a three-part semantic version
type version [3]int

// 🏭 parseVersion parses "1.2.3" (an optional leading "v" is stripped).
// Missing trailing parts default to zero.
func parseVersion(s string) (version, error) {
	var v version
	s = strings.TrimPrefix(s, "v")
	parts := strings.SplitN(s, ".", 3)
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return version{}, errors.Errorf("parsing version %q: %w", s, err)
		}
		v[i] = n
	}
	return v, nil
}

// newer reports whether o is strictly newer than v
func (v version) newer(o version) bool {
	for i := range v {
		if o[i] != v[i] {
			return o[i] > v[i]
		}
	}
	return false
}

// 🎯 Checker queries GitHub for the latest release
type Checker struct {
	client *github.Client
}

// 🏭 NewChecker creates a checker against the public GitHub API
func NewChecker() *Checker {
	return &Checker{client: github.NewClient(nil)}
}

// 🔍 Check compares the running version against the latest published
// release and, when the release is newer, downloads the platform asset
// and swaps it over the current executable. Network or API failures are
// reported to the user but never returned as fatal.
func (c *Checker) Check(ctx context.Context, current string) {
	logger := zerolog.Ctx(ctx)
	pterm.Info.Println("Checking for updates...")

	release, _, err := c.client.Repositories.GetLatestRelease(ctx, repoOwner, repoName)
	if err != nil {
		logger.Debug().Err(err).Msg("latest release lookup failed")
		pterm.Warning.Println("Could not reach GitHub to check for updates.")
		return
	}

	local, err := parseVersion(current)
	if err != nil {
		logger.Debug().Err(err).Str("version", current).Msg("local version unparseable")
		pterm.Warning.Printf("Cannot parse local version %q, skipping update.\n", current)
		return
	}
	remote, err := parseVersion(release.GetTagName())
	if err != nil {
		logger.Debug().Err(err).Str("tag", release.GetTagName()).Msg("release tag unparseable")
		pterm.Warning.Printf("Cannot parse release tag %q, skipping update.\n", release.GetTagName())
		return
	}

	if !local.newer(remote) {
		pterm.Success.Printf("You are using the latest version (%s).\n", current)
		return
	}

	pterm.Info.Printf("Updating to %s...\n", release.GetTagName())
	if err := c.apply(ctx, release); err != nil {
		logger.Debug().Err(err).Msg("update failed")
		pterm.Error.Println(err.Error())
		return
	}
	pterm.Success.Printf("Updated to %s. Restart to use the new version.\n", release.GetTagName())
}

// assetName is the release asset built for this platform
func assetName() string {
	name := fmt.Sprintf("subrc-%s-%s", runtime.GOOS, runtime.GOARCH)
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return name
}

// apply downloads the platform asset to a temp file and swaps it over
// the running executable.
func (c *Checker) apply(ctx context.Context, release *github.RepositoryRelease) error {
	want := assetName()
	var assetID int64
	for _, asset := range release.Assets {
		if asset.GetName() == want {
			assetID = asset.GetID()
			break
		}
	}
	if assetID == 0 {
		return errors.Errorf("no release asset named %q for this platform", want)
	}

	rc, _, err := c.client.Repositories.DownloadReleaseAsset(ctx, repoOwner, repoName, assetID, http.DefaultClient)
	if err != nil {
		return errors.Errorf("downloading release asset: %w", err)
	}
	defer rc.Close()

	exe, err := os.Executable()
	if err != nil {
		return errors.Errorf("locating running executable: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(exe), ".subrc-update-*")
	if err != nil {
		return errors.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, rc); err != nil {
		tmp.Close()
		return errors.Errorf("writing new binary: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return errors.Errorf("closing new binary: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o755); err != nil {
		return errors.Errorf("marking new binary executable: %w", err)
	}

	// Rename within the same directory so the swap stays on one filesystem.
	if err := os.Rename(tmp.Name(), exe); err != nil {
		return errors.Errorf("replacing executable: %w", err)
	}
	return nil
}
