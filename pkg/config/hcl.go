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
	"context"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
)

func init() {
	Register(&HCLParser{})
}

// 🔧 HCLParser implements the Parser interface for HCL files
type HCLParser struct{}

// 🔍 CanParse checks if this parser can handle the given file
func (p *HCLParser) CanParse(filename string) bool {
	return strings.HasSuffix(filename, ".hcl") || filename == ".deployrc"
}

type hclSettings struct {
	TimeoutSeconds   int      `hcl:"timeout_seconds,optional"`
	PresetsDir       string   `hcl:"presets_dir,optional"`
	BackupsDir       string   `hcl:"backups_dir,optional"`
	LogsDir          string   `hcl:"logs_dir,optional"`
	HistoryDB        string   `hcl:"history_db,optional"`
	VerifyUploads    *bool    `hcl:"verify_uploads,optional"`
	RestoreOnFailure *bool    `hcl:"restore_on_failure,optional"`
	CreateRemoteDirs bool     `hcl:"create_remote_dirs,optional"`
	Ignore           []string `hcl:"ignore,optional"`
}

type hclProfile struct {
	Name               string `hcl:"name,label"`
	Host               string `hcl:"host"`
	Port               int    `hcl:"port,optional"`
	Protocol           string `hcl:"protocol,optional"`
	Root               string `hcl:"root,optional"`
	Username           string `hcl:"username,optional"`
	Password           string `hcl:"password,optional"`
	PasswordEnv        string `hcl:"password_env,optional"`
	InsecureSkipVerify bool   `hcl:"insecure_skip_verify,optional"`
	KnownHosts         string `hcl:"known_hosts,optional"`
}

type hclMapping struct {
	Name    string `hcl:"name,label"`
	Enabled *bool  `hcl:"enabled,optional"`
	Local   string `hcl:"local"`
	Remote  string `hcl:"remote"`
	Backup  *bool  `hcl:"backup,optional"`
}

type hclConfig struct {
	ActiveProfile string       `hcl:"active_profile,optional"`
	Settings      *hclSettings `hcl:"settings,block"`
	Profiles      []hclProfile `hcl:"profile,block"`
	Mappings      []hclMapping `hcl:"mapping,block"`
}

// 📝 Parse parses the config from HCL. Expressions may read environment
// variables through the env object, e.g. password = env.FTP_PASSWORD.
func (p *HCLParser) Parse(ctx context.Context, filename string, data []byte) (*Config, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s", diags.Error())
	}

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": envObject(),
		},
	}

	var hclCfg hclConfig
	diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &hclCfg)
	if diags.HasErrors() {
		return nil, errors.Errorf("decoding HCL: %s", diags.Error())
	}

	cfg := &Config{
		ActiveProfile: hclCfg.ActiveProfile,
	}

	if s := hclCfg.Settings; s != nil {
		cfg.Settings = Settings{
			TimeoutSeconds:   s.TimeoutSeconds,
			PresetsDir:       s.PresetsDir,
			BackupsDir:       s.BackupsDir,
			LogsDir:          s.LogsDir,
			HistoryDB:        s.HistoryDB,
			VerifyUploads:    s.VerifyUploads,
			RestoreOnFailure: s.RestoreOnFailure,
			CreateRemoteDirs: s.CreateRemoteDirs,
			Ignore:           s.Ignore,
		}
	}

	for _, hp := range hclCfg.Profiles {
		cfg.Profiles = append(cfg.Profiles, Profile{
			Name:     hp.Name,
			Host:     hp.Host,
			Port:     hp.Port,
			Protocol: Protocol(hp.Protocol),
			Root:     hp.Root,
			Credentials: Credentials{
				Username:    hp.Username,
				Password:    hp.Password,
				PasswordEnv: hp.PasswordEnv,
			},
			InsecureSkipVerify: hp.InsecureSkipVerify,
			KnownHosts:         hp.KnownHosts,
		})
	}

	for _, hm := range hclCfg.Mappings {
		cfg.Mappings = append(cfg.Mappings, Mapping{
			Name:    hm.Name,
			Enabled: hm.Enabled,
			Local:   hm.Local,
			Remote:  hm.Remote,
			Backup:  hm.Backup,
		})
	}

	return cfg, nil
}

func envObject() cty.Value {
	vars := map[string]cty.Value{}
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		vars[k] = cty.StringVal(v)
	}
	return cty.ObjectVal(vars)
}
