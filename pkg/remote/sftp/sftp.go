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

// Package sftp implements remote.Client over SSH.
package sftp

import (
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"

	sftplib "github.com/pkg/sftp"
	"github.com/rs/zerolog"
	"github.com/walteh/deployrc/pkg/config"
	"github.com/walteh/deployrc/pkg/remote"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/crypto/ssh"
)

// 🔧 Options configures the SFTP client
type Options struct {
	// Timeout bounds the TCP dial and SSH handshake
	Timeout time.Duration
	// KnownHosts is used when a profile does not name its own file
	KnownHosts string
	// TrustOnFirstUse records unknown host keys instead of rejecting them
	TrustOnFirstUse bool
}

// Client dials SSH servers and opens an SFTP subsystem.
type Client struct {
	opts Options
}

var _ remote.Client = (*Client)(nil)

// 🏭 New creates a new SFTP client. An empty KnownHosts defaults to ~/.ssh/known_hosts.
func New(opts Options) *Client {
	if opts.KnownHosts == "" {
		if home, err := os.UserHomeDir(); err == nil {
			opts.KnownHosts = filepath.Join(home, ".ssh", "known_hosts")
		}
	}
	return &Client{opts: opts}
}

// Register binds the client to the sftp protocol.
func (c *Client) Register(r *remote.Router) {
	r.Register(c, config.ProtocolSFTP)
}

func (c *Client) hostKeyCallback(ctx context.Context, profile config.Profile) (ssh.HostKeyCallback, error) {
	knownHosts := profile.KnownHosts
	if knownHosts == "" {
		knownHosts = c.opts.KnownHosts
	}
	if knownHosts == "" {
		if profile.InsecureSkipVerify {
			return ssh.InsecureIgnoreHostKey(), nil
		}
		return nil, errors.Errorf("profile %s: no known_hosts file available", profile.Name)
	}
	return NewHostKeyCallback(ctx, knownHosts, c.opts.TrustOnFirstUse || profile.InsecureSkipVerify)
}

// Connect implements remote.Client.
func (c *Client) Connect(ctx context.Context, profile config.Profile) (remote.Session, error) {
	hostKeyCallback, err := c.hostKeyCallback(ctx, profile)
	if err != nil {
		return nil, errors.Errorf("configuring host key verification: %w", err)
	}

	secret := profile.Credentials.Secret()
	sshConfig := &ssh.ClientConfig{
		User: profile.Credentials.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(secret),
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = secret
				}
				return answers, nil
			}),
		},
		HostKeyCallback: hostKeyCallback,
		Timeout:         c.opts.Timeout,
	}

	dialer := net.Dialer{Timeout: c.opts.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", profile.Address())
	if err != nil {
		return nil, errors.Errorf("dialing %s: %w", profile.Address(), err)
	}

	sshClient, err := handshake(ctx, conn, profile.Address(), sshConfig, c.opts.Timeout)
	if err != nil {
		conn.Close()
		return nil, err
	}

	sftpClient, err := sftplib.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, errors.Errorf("starting sftp subsystem: %w", err)
	}

	zerolog.Ctx(ctx).Debug().Str("profile", profile.Name).Msg("sftp session established")

	return NewSession(sftpClient, sshClient), nil
}

// handshake runs the SSH handshake on conn. ClientConfig.Timeout only covers
// ssh.Dial, so the deadline and cancellation are applied to conn directly.
func handshake(ctx context.Context, conn net.Conn, addr string, cfg *ssh.ClientConfig, timeout time.Duration) (*ssh.Client, error) {
	if timeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
			return nil, errors.Errorf("setting handshake deadline: %w", err)
		}
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Unix(1, 0))
	})

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if !stop() && err == nil {
		sshConn.Close()
		return nil, errors.Errorf("ssh handshake: %w", ctx.Err())
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.Errorf("ssh handshake: %w", ctxErr)
		}
		return nil, errors.Errorf("ssh handshake: %w", err)
	}

	if err := conn.SetDeadline(time.Time{}); err != nil {
		sshConn.Close()
		return nil, errors.Errorf("clearing handshake deadline: %w", err)
	}
	return ssh.NewClient(sshConn, chans, reqs), nil
}

// NewSession wraps an SFTP client. closers run after the client is closed.
func NewSession(client *sftplib.Client, closers ...io.Closer) remote.Session {
	return &session{client: client, closers: closers}
}

type session struct {
	client  *sftplib.Client
	closers []io.Closer
}

func (s *session) CurrentDir(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dir, err := s.client.Getwd()
	if err != nil {
		return "", errors.Errorf("reading working directory: %w", err)
	}
	return dir, nil
}

func (s *session) List(ctx context.Context, dir string) ([]remote.FileEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	infos, err := s.client.ReadDir(dir)
	if err != nil {
		return nil, errors.Errorf("listing %s: %w", dir, notFound(err))
	}
	out := make([]remote.FileEntry, 0, len(infos))
	for _, fi := range infos {
		out = append(out, remote.FileEntry{
			Name:    fi.Name(),
			Size:    fi.Size(),
			IsDir:   fi.IsDir(),
			ModTime: fi.ModTime(),
		})
	}
	remote.SortEntries(out)
	return out, nil
}

func (s *session) Download(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := s.client.Open(p)
	if err != nil {
		return nil, errors.Errorf("downloading %s: %w", p, notFound(err))
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Errorf("reading %s: %w", p, err)
	}
	return data, nil
}

func (s *session) Upload(ctx context.Context, p string, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := s.client.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return errors.Errorf("opening %s for upload: %w", p, err)
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		return errors.Errorf("uploading %s: %w", p, err)
	}
	if err := f.Close(); err != nil {
		return errors.Errorf("finishing upload of %s: %w", p, err)
	}
	return nil
}

func (s *session) Delete(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.client.Remove(p); err != nil {
		return errors.Errorf("deleting %s: %w", p, notFound(err))
	}
	return nil
}

func (s *session) Size(ctx context.Context, p string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	fi, err := s.client.Stat(p)
	if err != nil {
		return 0, errors.Errorf("sizing %s: %w", p, notFound(err))
	}
	return fi.Size(), nil
}

func (s *session) MakeDirAll(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.client.MkdirAll(dir); err != nil {
		return errors.Errorf("creating directory %s: %w", dir, err)
	}
	return nil
}

func (s *session) Close() error {
	err := s.client.Close()
	for _, c := range s.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	if err != nil {
		return errors.Errorf("closing sftp session: %w", err)
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return remote.ErrNotFound
	}
	return err
}
