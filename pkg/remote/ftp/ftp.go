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

// Package ftp implements remote.Client for plain FTP and FTPS.
package ftp

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net/textproto"
	"path"
	"strings"
	"time"

	ftplib "github.com/jlaffaye/ftp"
	"github.com/rs/zerolog"
	"github.com/walteh/deployrc/pkg/config"
	"github.com/walteh/deployrc/pkg/remote"
	"gitlab.com/tozd/go/errors"
)

// 🔧 Options configures the FTP client
type Options struct {
	// Timeout bounds dialing and each control connection exchange
	Timeout time.Duration
	// DebugOutput receives the raw control connection transcript when set
	DebugOutput io.Writer
}

// Client dials FTP, explicit FTPS and implicit FTPS servers.
type Client struct {
	opts Options
}

var _ remote.Client = (*Client)(nil)

// 🏭 New creates a new FTP client
func New(opts Options) *Client {
	return &Client{opts: opts}
}

// Register binds the client to every FTP flavored protocol.
func (c *Client) Register(r *remote.Router) {
	r.Register(c, config.ProtocolFTP, config.ProtocolFTPS, config.ProtocolFTPSImplicit)
}

func (c *Client) dialOptions(ctx context.Context, profile config.Profile) []ftplib.DialOption {
	opts := []ftplib.DialOption{ftplib.DialWithContext(ctx)}
	if c.opts.Timeout > 0 {
		opts = append(opts, ftplib.DialWithTimeout(c.opts.Timeout))
	}
	if c.opts.DebugOutput != nil {
		opts = append(opts, ftplib.DialWithDebugOutput(c.opts.DebugOutput))
	}
	if tlsConfig := tlsConfigFor(profile); tlsConfig != nil {
		if profile.Protocol == config.ProtocolFTPSImplicit {
			opts = append(opts, ftplib.DialWithTLS(tlsConfig))
		} else {
			opts = append(opts, ftplib.DialWithExplicitTLS(tlsConfig))
		}
	}
	return opts
}

// tlsConfigFor returns nil for plain FTP.
func tlsConfigFor(profile config.Profile) *tls.Config {
	switch profile.Protocol {
	case config.ProtocolFTPS, config.ProtocolFTPSImplicit:
		return &tls.Config{
			ServerName:         profile.Host,
			InsecureSkipVerify: profile.InsecureSkipVerify,
			MinVersion:         tls.VersionTLS12,
		}
	default:
		return nil
	}
}

// Connect implements remote.Client.
func (c *Client) Connect(ctx context.Context, profile config.Profile) (remote.Session, error) {
	conn, err := ftplib.Dial(profile.Address(), c.dialOptions(ctx, profile)...)
	if err != nil {
		return nil, errors.Errorf("dialing %s: %w", profile.Protocol, err)
	}

	if err := conn.Login(profile.Credentials.Username, profile.Credentials.Secret()); err != nil {
		_ = conn.Quit()
		return nil, errors.Errorf("logging in as %s: %w", profile.Credentials.Username, err)
	}

	zerolog.Ctx(ctx).Debug().
		Str("profile", profile.Name).
		Bool("encrypted", profile.Protocol.Encrypted()).
		Msg("ftp session established")

	return &session{conn: conn}, nil
}

type session struct {
	conn *ftplib.ServerConn
}

func (s *session) CurrentDir(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dir, err := s.conn.CurrentDir()
	if err != nil {
		return "", errors.Errorf("reading working directory: %w", err)
	}
	return dir, nil
}

func (s *session) List(ctx context.Context, dir string) ([]remote.FileEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := s.conn.List(dir)
	if err != nil {
		if isUnavailable(err) {
			return nil, errors.Errorf("listing %s: %w", dir, remote.ErrNotFound)
		}
		return nil, errors.Errorf("listing %s: %w", dir, err)
	}

	out := make([]remote.FileEntry, 0, len(entries))
	for _, e := range entries {
		if e.Name == "." || e.Name == ".." {
			continue
		}
		out = append(out, remote.FileEntry{
			Name:    e.Name,
			Size:    int64(e.Size),
			IsDir:   e.Type == ftplib.EntryTypeFolder,
			ModTime: e.Time,
		})
	}
	remote.SortEntries(out)
	return out, nil
}

func (s *session) Download(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := s.conn.Retr(p)
	if err != nil {
		if isUnavailable(err) && !s.listed(p) {
			return nil, errors.Errorf("downloading %s: %w", p, remote.ErrNotFound)
		}
		return nil, errors.Errorf("downloading %s: %w", p, err)
	}
	data, err := io.ReadAll(resp)
	if err != nil {
		_ = resp.Close()
		return nil, errors.Errorf("reading %s: %w", p, err)
	}
	// the final transfer reply only surfaces on Close
	if err := resp.Close(); err != nil {
		return nil, errors.Errorf("downloading %s: %w", p, err)
	}
	return data, nil
}

// listed reports whether p shows up in its parent listing. A 550 reply also
// covers permission problems, so absence is confirmed before it is trusted.
func (s *session) listed(p string) bool {
	names, err := s.conn.NameList(path.Dir(p))
	if err != nil {
		return false
	}
	base := path.Base(p)
	for _, n := range names {
		if n == base || path.Base(n) == base {
			return true
		}
	}
	return false
}

func (s *session) Upload(ctx context.Context, p string, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.conn.Stor(p, bytes.NewReader(content)); err != nil {
		return errors.Errorf("uploading %s: %w", p, err)
	}
	return nil
}

func (s *session) Delete(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.conn.Delete(p); err != nil {
		if isUnavailable(err) {
			return errors.Errorf("deleting %s: %w", p, remote.ErrNotFound)
		}
		return errors.Errorf("deleting %s: %w", p, err)
	}
	return nil
}

func (s *session) Size(ctx context.Context, p string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	size, err := s.conn.FileSize(p)
	if err != nil {
		if isUnavailable(err) {
			return 0, errors.Errorf("sizing %s: %w", p, remote.ErrNotFound)
		}
		return 0, errors.Errorf("sizing %s: %w", p, err)
	}
	return size, nil
}

func (s *session) MakeDirAll(ctx context.Context, dir string) error {
	for _, d := range parents(dir) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.conn.MakeDir(d); err != nil {
			if s.isDir(d) {
				continue
			}
			return errors.Errorf("creating directory %s: %w", d, err)
		}
	}
	return nil
}

// isDir checks a directory by entering it and returning to the previous one.
func (s *session) isDir(dir string) bool {
	cwd, err := s.conn.CurrentDir()
	if err != nil {
		return false
	}
	if err := s.conn.ChangeDir(dir); err != nil {
		return false
	}
	_ = s.conn.ChangeDir(cwd)
	return true
}

func (s *session) Close() error {
	if err := s.conn.Quit(); err != nil {
		return errors.Errorf("closing ftp session: %w", err)
	}
	return nil
}

// parents expands /a/b/c into /a, /a/b, /a/b/c.
func parents(dir string) []string {
	var out []string
	cur := ""
	for _, part := range strings.Split(strings.Trim(dir, "/"), "/") {
		if part == "" {
			continue
		}
		cur += "/" + part
		out = append(out, cur)
	}
	return out
}

func isUnavailable(err error) bool {
	var tpErr *textproto.Error
	return errors.As(err, &tpErr) && tpErr.Code == ftplib.StatusFileUnavailable
}
