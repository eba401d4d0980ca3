package config_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/walteh/deployrc/pkg/config"
)

func ExampleLoad_json() {
	ctx := context.Background()
	configJSON := `{
		"active_profile": "live",
		"profiles": [
			{
				"name": "live",
				"host": "ftp.example.com",
				"protocol": "ftps",
				"root": "/srv/game",
				"credentials": {"username": "deploy", "password_env": "DEPLOY_PASSWORD"}
			}
		],
		"mappings": [
			{
				"name": "bbp",
				"local": "BBP_Raid_on.json",
				"remote": "config/BaseBuildingPlus/BBP_Settings.json"
			}
		]
	}`

	dir, err := os.MkdirTemp("", "deployrc-example")
	if err != nil {
		fmt.Printf("Error creating dir: %v\n", err)
		return
	}
	defer os.RemoveAll(dir)

	configPath := filepath.Join(dir, "deployrc.json")
	if err := os.WriteFile(configPath, []byte(configJSON), 0644); err != nil {
		fmt.Printf("Error writing config: %v\n", err)
		return
	}

	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		return
	}

	profile, err := cfg.Profile("")
	if err != nil {
		fmt.Printf("Error selecting profile: %v\n", err)
		return
	}

	m := cfg.Mappings[0]
	fmt.Printf("Profile: %s\n", profile.Name)
	fmt.Printf("Address: %s\n", profile.Address())
	fmt.Printf("Target: %s\n", profile.FullPath(m.Remote))
	fmt.Printf("Backup: %v\n", m.WantsBackup())
	// Output:
	// Profile: live
	// Address: ftp.example.com:21
	// Target: /srv/game/config/BaseBuildingPlus/BBP_Settings.json
	// Backup: true
}
