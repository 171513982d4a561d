// Package configs embeds the configuration templates written by
// `visindex config init`.
//
// Configuration hierarchy (see internal/config LoadFile):
//  1. Hardcoded defaults
//  2. User config (~/.config/visindex/config.yaml)
//  3. Project config (visindex.yaml)
//  4. Environment variables (VISINDEX_*)
package configs

import _ "embed"

// UserConfigTemplate is written by `visindex config init --user`. It holds
// machine-level settings such as the database location and logging.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string

// ProjectConfigTemplate is written by `visindex config init` to
// visindex.yaml. It holds the scoped values synced into the catalog database.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string
