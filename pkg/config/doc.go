/*
Package config manages configuration parsing and validation for deployrc.

	            +-------------+
	            |   Config    |
	            |  Settings   |
	            |  Profiles   |
	            |  Mappings   |
	            +------+------+
	                   |
	      +------------+------------+
	      |            |            |
	+-----+----+ +-----+----+ +-----+----+
	|   HCL    | |   YAML   | |   JSON   |
	|  Parser  | |  Parser  | |  Parser  |
	+----------+ +----------+ +----------+

🎯 Purpose:
- Loads profiles, mappings and settings from one file
- Validates shape once, at load time
- Fills in defaults so callers can assume well-formed input

🔄 Flow:
1. Reads configuration from file
2. Picks a parser by file extension
3. Validates and applies defaults
4. Resolves relative directories against the config file

⚡ Defaults:
- profile protocol ftp, port by protocol (21, 990, 22), root "/"
- mapping enabled and backup both true
- timeout 20s, verify uploads, restore on failure

🔍 Example:

	active_profile = "live"

	settings {
	  presets_dir = "presets"
	  ignore      = [".DS_Store", "*.bak"]
	}

	profile "live" {
	  host         = "ftp.example.com"
	  protocol     = "ftps"
	  root         = "/"
	  username     = "deploy"
	  password_env = "DEPLOY_PASSWORD"
	}

	mapping "bbp" {
	  local  = "BBP_Raid_on.json"
	  remote = "config/BaseBuildingPlus/BBP_Settings.json"
	}
*/
package config
