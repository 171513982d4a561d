package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/visindex/configs"
	"github.com/Aman-CERP/visindex/internal/config"
	"github.com/Aman-CERP/visindex/internal/output"
	"github.com/Aman-CERP/visindex/internal/store"
	"github.com/Aman-CERP/visindex/internal/visibility"
)

func newConfigCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read and write scoped configuration",
		Long: `Read and write scoped configuration values in the catalog database.

Scopes are 'default' (id 0), 'websites' and 'stores'. A store reads its own
value, then its website's, then the default.

Configuration precedence for the YAML layer (lowest to highest):
  1. Hardcoded defaults
  2. User config (~/.config/visindex/config.yaml)
  3. Project config (visindex.yaml)
  4. Environment variables (VISINDEX_*)`,
		Example: `  # Show the allow-list as store 2 sees it
  visindex config get klevu/indexing_products_exclude_by_visibility/sync_visibilities --scope stores --scope-id 2

  # Restrict store 2 to search-visible products and keep it in visindex.yaml
  visindex config set klevu/indexing_products_exclude_by_visibility/sync_visibilities 3,4 --scope stores --scope-id 2 --save`,
	}

	cmd.AddCommand(newConfigInitCmd(root))
	cmd.AddCommand(newConfigGetCmd(root))
	cmd.AddCommand(newConfigSetCmd(root))
	cmd.AddCommand(newConfigImportCmd(root))

	return cmd
}

type scopeFlags struct {
	scope   string
	scopeID int64
}

func (f *scopeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.scope, "scope", string(visibility.ScopeDefault), "Scope: default, websites or stores")
	cmd.Flags().Int64Var(&f.scopeID, "scope-id", 0, "Website or store id for non-default scopes")
}

func (f *scopeFlags) validate() (visibility.ScopeType, error) {
	scope := visibility.ScopeType(f.scope)
	return scope, store.ValidateScope(scope, f.scopeID)
}

func newConfigInitCmd(root *rootOptions) *cobra.Command {
	var user, force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a commented config template",
		Long: `Write the project config template to the --config path (default
./visindex.yaml), or with --user the machine-level template to
~/.config/visindex/config.yaml. Existing files are kept unless --force is
given, in which case a backup is taken first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, template := root.configPath, configs.ProjectConfigTemplate
			if user {
				path, template = config.GetUserConfigPath(), configs.UserConfigTemplate
			}

			w := output.New(cmd.OutOrStdout())
			if _, err := os.Stat(path); err == nil {
				if !force {
					w.Warningf("%s already exists (use --force to overwrite)", path)
					return nil
				}
				if _, err := config.Backup(path); err != nil {
					return err
				}
			}

			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("failed to create config directory: %w", err)
			}
			if err := os.WriteFile(path, []byte(template), 0o644); err != nil {
				return fmt.Errorf("failed to write config file: %w", err)
			}
			w.Successf("created %s", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&user, "user", false, "Write the user config instead of the project config")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file after backing it up")
	return cmd
}

func newConfigGetCmd(root *rootOptions) *cobra.Command {
	var sf scopeFlags
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "get <path>",
		Short: "Show the resolved value of a path and every stored value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := sf.validate()
			if err != nil {
				return err
			}
			a, err := root.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			path := args[0]
			value, ok := a.provider.Value(path, scope, sf.scopeID)
			stored, err := a.db.Config().Values(cmd.Context(), path)
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Path   string              `json:"path"`
					Scope  string              `json:"scope"`
					ID     int64               `json:"scope_id"`
					Value  *string             `json:"value"`
					Stored []store.ConfigValue `json:"stored"`
				}{path, string(scope), sf.scopeID, optional(value, ok), stored})
			}

			w := output.New(cmd.OutOrStdout())
			w.KeyValue("path", path)
			w.KeyValue("scope", fmt.Sprintf("%s/%d", scope, sf.scopeID))
			if ok {
				w.KeyValue("value", value)
			} else {
				w.KeyValue("value", "(unset)")
			}
			if path == visibility.ConfigPathSyncVisibilities {
				w.KeyValue("allowed", describeSet(visibility.ParseAllowed(value)))
			}
			if len(stored) > 0 {
				w.Newline()
				rows := make([][]string, 0, len(stored))
				for _, v := range stored {
					rows = append(rows, []string{string(v.Scope), strconv.FormatInt(v.ScopeID, 10), v.Value})
				}
				w.Table([]string{"SCOPE", "ID", "VALUE"}, rows)
			}
			return nil
		},
	}

	sf.register(cmd)
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func optional(v string, ok bool) *string {
	if !ok {
		return nil
	}
	return &v
}

func describeSet(s visibility.Set) string {
	if s.Empty() {
		return "(none: nothing is indexable)"
	}
	var out string
	for i, v := range s.Visibilities() {
		if i > 0 {
			out += ", "
		}
		out += v.String()
	}
	return out
}

func newConfigSetCmd(root *rootOptions) *cobra.Command {
	var sf scopeFlags
	var save bool

	cmd := &cobra.Command{
		Use:   "set <path> <value>",
		Short: "Store a value at one scope",
		Long: `Store a value at one scope. When the stored value changes, observers are
notified; changing the visibility allow-list queues an entity discovery run.

With --save the value is also written to the project config file (a backup
of the previous file is kept), so the next sync does not revert it.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := sf.validate()
			if err != nil {
				return err
			}
			path, value := args[0], args[1]

			if save {
				fileCfg, err := config.ReadFile(root.configPath)
				if err != nil {
					return err
				}
				if err := fileCfg.SetScopeValue(scope, sf.scopeID, path, value); err != nil {
					return err
				}
				if _, err := fileCfg.Save(root.configPath); err != nil {
					return err
				}
			}

			a, err := root.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			changed, err := a.applyConfig(cmd.Context(), []store.ConfigValue{
				{Scope: scope, ScopeID: sf.scopeID, Path: path, Value: value},
			})
			if err != nil {
				return err
			}

			w := output.New(cmd.OutOrStdout())
			if len(changed) == 0 {
				w.Successf("%s already %q at %s/%d", path, value, scope, sf.scopeID)
				return nil
			}
			w.Successf("%s set to %q at %s/%d", path, value, scope, sf.scopeID)
			if path == visibility.ConfigPathSyncVisibilities {
				w.Status("", "entity discovery scheduled ("+a.cron.JobCode()+")")
			}
			return nil
		},
	}

	sf.register(cmd)
	cmd.Flags().BoolVar(&save, "save", false, "Also write the value to the project config file")
	return cmd
}

func newConfigImportCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Sync scope values from a config file into the database",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := root.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			w := output.New(cmd.OutOrStdout())
			if len(args) == 0 {
				// openApp already synced the loaded config.
				w.Success("configuration synced from " + root.configPath)
				return nil
			}

			fileCfg, err := config.ReadFile(args[0])
			if err != nil {
				return err
			}
			if err := fileCfg.ValidateScopes(); err != nil {
				return err
			}
			changed, err := a.applyConfig(cmd.Context(), fileCfg.ScopeValues())
			if err != nil {
				return err
			}
			w.Successf("%d values imported from %s, %d paths changed", len(fileCfg.ScopeValues()), args[0], len(changed))
			for _, p := range changed {
				w.Status("", p)
			}
			return nil
		},
	}
	return cmd
}
