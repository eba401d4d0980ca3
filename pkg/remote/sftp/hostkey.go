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

package sftp

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// ErrHostKeyChanged is returned when a server presents a key that differs from the recorded one.
var ErrHostKeyChanged = errors.Base("ssh host key changed")

// 🔐 NewHostKeyCallback verifies host keys against a known_hosts file. Unknown
// hosts are recorded when trustOnFirstUse is set and rejected otherwise.
func NewHostKeyCallback(ctx context.Context, knownHostsPath string, trustOnFirstUse bool) (ssh.HostKeyCallback, error) {
	if err := ensureKnownHostsFile(knownHostsPath); err != nil {
		return nil, err
	}

	base, err := knownhosts.New(knownHostsPath)
	if err != nil {
		return nil, errors.Errorf("reading known_hosts: %w", err)
	}

	logger := zerolog.Ctx(ctx)

	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		err := base(hostname, remote, key)
		if err == nil {
			return nil
		}

		var keyErr *knownhosts.KeyError
		if !errors.As(err, &keyErr) {
			return err
		}

		if len(keyErr.Want) > 0 {
			logger.Warn().
				Str("host", hostname).
				Str("fingerprint", ssh.FingerprintSHA256(key)).
				Msg("ssh host key changed")
			return errors.Errorf("%s: %w", hostname, ErrHostKeyChanged)
		}

		if !trustOnFirstUse {
			return errors.Errorf("unknown ssh host key for %s", hostname)
		}

		if err := appendKnownHost(knownHostsPath, hostname, remote, key); err != nil {
			return err
		}

		logger.Info().
			Str("host", hostname).
			Str("fingerprint", ssh.FingerprintSHA256(key)).
			Msg("ssh host key accepted")
		return nil
	}, nil
}

func ensureKnownHostsFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errors.Errorf("creating known_hosts directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		return nil
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil
		}
		return errors.Errorf("creating known_hosts file: %w", err)
	}
	return file.Close()
}

func appendKnownHost(path, hostname string, remote net.Addr, key ssh.PublicKey) error {
	hosts := []string{hostname}
	if remote != nil && remote.String() != hostname {
		hosts = append(hosts, remote.String())
	}

	line := knownhosts.Line(hosts, key)
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return errors.Errorf("opening known_hosts file: %w", err)
	}
	defer file.Close()

	if _, err := file.WriteString(line); err != nil {
		return errors.Errorf("writing known_hosts entry: %w", err)
	}
	return nil
}
