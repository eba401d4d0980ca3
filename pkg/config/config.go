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
	"fmt"
	"net"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"gitlab.com/tozd/go/errors"
)

// 🔌 Protocol selects the transport used to reach a profile
type Protocol string

const (
	ProtocolFTP          Protocol = "ftp"           // plain FTP
	ProtocolFTPS         Protocol = "ftps"          // explicit TLS (AUTH TLS, PROT P)
	ProtocolFTPSImplicit Protocol = "ftps-implicit" // TLS from the first byte
	ProtocolSFTP         Protocol = "sftp"          // SSH file transfer
)

// Protocols lists every supported protocol in display order.
var Protocols = []Protocol{ProtocolFTP, ProtocolFTPS, ProtocolFTPSImplicit, ProtocolSFTP}

// Encrypted reports whether the protocol protects data in transit.
func (p Protocol) Encrypted() bool {
	return p != ProtocolFTP
}

// DefaultPort returns the well known port for the protocol.
func (p Protocol) DefaultPort() int {
	switch p {
	case ProtocolFTPSImplicit:
		return 990
	case ProtocolSFTP:
		return 22
	default:
		return 21
	}
}

// 🔑 Credentials holds the login for a profile
type Credentials struct {
	Username    string `json:"username" yaml:"username"`
	Password    string `json:"password,omitempty" yaml:"password,omitempty"`
	PasswordEnv string `json:"password_env,omitempty" yaml:"password_env,omitempty"`
}

// Secret returns the configured password, reading PasswordEnv when no literal is set.
func (c Credentials) Secret() string {
	if c.Password != "" {
		return c.Password
	}
	if c.PasswordEnv != "" {
		return os.Getenv(c.PasswordEnv)
	}
	return ""
}

// 🖥️ Profile is a named remote server definition
type Profile struct {
	Name               string      `json:"name" yaml:"name"`
	Host               string      `json:"host" yaml:"host"`
	Port               int         `json:"port,omitempty" yaml:"port,omitempty"`
	Credentials        Credentials `json:"credentials" yaml:"credentials"`
	Protocol           Protocol    `json:"protocol,omitempty" yaml:"protocol,omitempty"`
	Root               string      `json:"root,omitempty" yaml:"root,omitempty"`
	InsecureSkipVerify bool        `json:"insecure_skip_verify,omitempty" yaml:"insecure_skip_verify,omitempty"`
	KnownHosts         string      `json:"known_hosts,omitempty" yaml:"known_hosts,omitempty"`
}

// Address returns host:port for dialing.
func (p Profile) Address() string {
	return net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}

// FullPath joins a normalized remote path onto the profile root, always absolute.
func (p Profile) FullPath(remote string) string {
	joined := strings.TrimRight(p.Root, "/") + "/" + NormalizeRemote(remote)
	return "/" + strings.Trim(joined, "/")
}

// 🔗 Mapping binds one preset file to one remote target
type Mapping struct {
	Name    string `json:"name" yaml:"name"`
	Enabled *bool  `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Local   string `json:"local" yaml:"local"`
	Remote  string `json:"remote" yaml:"remote"`
	Backup  *bool  `json:"backup,omitempty" yaml:"backup,omitempty"`
}

// IsEnabled defaults to true when unset.
func (m Mapping) IsEnabled() bool {
	return m.Enabled == nil || *m.Enabled
}

// WantsBackup defaults to true when unset.
func (m Mapping) WantsBackup() bool {
	return m.Backup == nil || *m.Backup
}

// ⚙️ Settings holds tool wide behavior
type Settings struct {
	TimeoutSeconds   int      `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty"`
	PresetsDir       string   `json:"presets_dir,omitempty" yaml:"presets_dir,omitempty"`
	BackupsDir       string   `json:"backups_dir,omitempty" yaml:"backups_dir,omitempty"`
	LogsDir          string   `json:"logs_dir,omitempty" yaml:"logs_dir,omitempty"`
	HistoryDB        string   `json:"history_db,omitempty" yaml:"history_db,omitempty"`
	VerifyUploads    *bool    `json:"verify_uploads,omitempty" yaml:"verify_uploads,omitempty"`
	RestoreOnFailure *bool    `json:"restore_on_failure,omitempty" yaml:"restore_on_failure,omitempty"`
	CreateRemoteDirs bool     `json:"create_remote_dirs,omitempty" yaml:"create_remote_dirs,omitempty"`
	Ignore           []string `json:"ignore,omitempty" yaml:"ignore,omitempty"`
}

// Timeout returns the network timeout.
func (s Settings) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// ShouldVerify defaults to true when unset.
func (s Settings) ShouldVerify() bool {
	return s.VerifyUploads == nil || *s.VerifyUploads
}

// ShouldRestore defaults to true when unset.
func (s Settings) ShouldRestore() bool {
	return s.RestoreOnFailure == nil || *s.RestoreOnFailure
}

// 📚 Config represents the complete configuration
type Config struct {
	Settings      Settings  `json:"settings" yaml:"settings"`
	ActiveProfile string    `json:"active_profile,omitempty" yaml:"active_profile,omitempty"`
	Profiles      []Profile `json:"profiles" yaml:"profiles"`
	Mappings      []Mapping `json:"mappings" yaml:"mappings"`

	location string
}

// Location is the file the config was loaded from, empty for in-memory configs.
func (cfg *Config) Location() string {
	return cfg.location
}

// 🎯 Profile looks up a profile by name. An empty name selects the active
// profile, or the only profile when exactly one is defined.
func (cfg *Config) Profile(name string) (*Profile, error) {
	if name == "" {
		name = cfg.ActiveProfile
	}
	if name == "" && len(cfg.Profiles) == 1 {
		return &cfg.Profiles[0], nil
	}
	if name == "" {
		return nil, errors.Errorf("no profile selected and no active_profile set, options: %s", strings.Join(cfg.ProfileNames(), ", "))
	}
	for i := range cfg.Profiles {
		if cfg.Profiles[i].Name == name {
			return &cfg.Profiles[i], nil
		}
	}
	return nil, errors.Errorf("profile %s not found, options: %s", name, strings.Join(cfg.ProfileNames(), ", "))
}

// ProfileNames lists profile names in config order.
func (cfg *Config) ProfileNames() []string {
	names := make([]string, 0, len(cfg.Profiles))
	for _, p := range cfg.Profiles {
		names = append(names, p.Name)
	}
	return names
}

// EnabledMappings returns the enabled mappings in config order.
func (cfg *Config) EnabledMappings() []Mapping {
	var out []Mapping
	for _, m := range cfg.Mappings {
		if m.IsEnabled() {
			out = append(out, m)
		}
	}
	return out
}

// NormalizeRemote converts backslashes to slashes, drops leading slashes and
// cleans the result so one remote file has one spelling relative to a profile root.
func NormalizeRemote(p string) string {
	p = strings.TrimLeft(strings.ReplaceAll(p, "\\", "/"), "/")
	if p == "" {
		return ""
	}
	if p = path.Clean(p); p == "." {
		return ""
	}
	return p
}

// 🔍 Validate checks the configuration and fills in defaults
func (cfg *Config) Validate() error {
	cfg.setDefaults()

	seen := map[string]bool{}
	for i := range cfg.Profiles {
		p := &cfg.Profiles[i]
		if p.Name == "" {
			return errors.Errorf("profiles[%d].name is required", i)
		}
		if seen[p.Name] {
			return errors.Errorf("duplicate profile name %q", p.Name)
		}
		seen[p.Name] = true
		if p.Host == "" {
			return errors.Errorf("profile %s: host is required", p.Name)
		}
		if !slices.Contains(Protocols, p.Protocol) {
			return errors.Errorf("profile %s: unknown protocol %q, options: %s", p.Name, p.Protocol, protocolOptions())
		}
		if p.Port < 1 || p.Port > 65535 {
			return errors.Errorf("profile %s: port %d out of range", p.Name, p.Port)
		}
	}

	if cfg.ActiveProfile != "" && !seen[cfg.ActiveProfile] {
		return errors.Errorf("active_profile %q does not match any profile", cfg.ActiveProfile)
	}

	names := map[string]bool{}
	for i := range cfg.Mappings {
		m := &cfg.Mappings[i]
		if m.Name == "" {
			return errors.Errorf("mappings[%d].name is required", i)
		}
		if names[m.Name] {
			return errors.Errorf("duplicate mapping name %q", m.Name)
		}
		names[m.Name] = true
		if m.Local == "" {
			return errors.Errorf("mapping %s: local is required", m.Name)
		}
		if path.IsAbs(m.Local) || filepath.IsAbs(m.Local) || slices.Contains(strings.Split(m.Local, "/"), "..") {
			return errors.Errorf("mapping %s: local %q must be relative to the preset folder", m.Name, m.Local)
		}
		m.Remote = NormalizeRemote(m.Remote)
		if m.Remote == "" {
			return errors.Errorf("mapping %s: remote is required", m.Name)
		}
		if slices.Contains(strings.Split(m.Remote, "/"), "..") {
			return errors.Errorf("mapping %s: remote %q must stay under the profile root", m.Name, m.Remote)
		}
	}

	return nil
}

func (cfg *Config) setDefaults() {
	s := &cfg.Settings
	if s.TimeoutSeconds <= 0 {
		s.TimeoutSeconds = 20
	}
	if s.PresetsDir == "" {
		s.PresetsDir = "presets"
	}
	if s.BackupsDir == "" {
		s.BackupsDir = "backups"
	}
	if s.LogsDir == "" {
		s.LogsDir = "logs"
	}
	if s.HistoryDB == "" {
		s.HistoryDB = "deployrc.db"
	}

	for i := range cfg.Profiles {
		p := &cfg.Profiles[i]
		if p.Protocol == "" {
			p.Protocol = ProtocolFTP
		}
		p.Protocol = Protocol(strings.ToLower(string(p.Protocol)))
		if p.Port == 0 {
			p.Port = p.Protocol.DefaultPort()
		}
		if p.Root == "" {
			p.Root = "/"
		}
	}
}

// resolveDirs makes relative directories absolute against base.
func (cfg *Config) resolveDirs(base string) {
	s := &cfg.Settings
	for _, dir := range []*string{&s.PresetsDir, &s.BackupsDir, &s.LogsDir, &s.HistoryDB} {
		if *dir != "" && !filepath.IsAbs(*dir) {
			*dir = filepath.Join(base, *dir)
		}
	}
	for i := range cfg.Profiles {
		p := &cfg.Profiles[i]
		if p.KnownHosts != "" && !filepath.IsAbs(p.KnownHosts) {
			p.KnownHosts = filepath.Join(base, p.KnownHosts)
		}
	}
}

func protocolOptions() string {
	opts := make([]string, 0, len(Protocols))
	for _, p := range Protocols {
		opts = append(opts, string(p))
	}
	return strings.Join(opts, ", ")
}

// String renders a profile without its secret.
func (p Profile) String() string {
	return fmt.Sprintf("%s (%s://%s%s)", p.Name, p.Protocol, p.Address(), p.Root)
}
