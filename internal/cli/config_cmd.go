package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/campuscloset/closetmail/internal/config"
	"github.com/campuscloset/closetmail/internal/logging"
)

func newConfigCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect closetmail configuration",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration as YAML",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				out, err := yaml.Marshal(logging.RedactMap(configMap(rt.cfg)))
				if err != nil {
					return Exitf(ExitCodeFailure, "render config: %v", err)
				}
				if used := rt.loader.ConfigFileUsed(); used != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "# loaded from %s\n", used)
				}
				_, err = cmd.OutOrStdout().Write(out)
				return err
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file in use, if any",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				used := rt.loader.ConfigFileUsed()
				if used == "" {
					fmt.Fprintln(cmd.OutOrStdout(), "(no config file; using defaults and environment)")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), used)
				return nil
			},
		},
	)
	return cmd
}

// configMap mirrors the YAML layout of the config file. Durations are
// rendered as strings so the output can be pasted back into a file.
func configMap(cfg *config.Config) map[string]interface{} {
	return map[string]interface{}{
		"api": map[string]interface{}{
			"base_url": cfg.API.BaseURL,
			"user_id":  cfg.API.UserID,
			"timeout":  cfg.API.Timeout.String(),
		},
		"server": map[string]interface{}{
			"addr":          cfg.Server.Addr,
			"database_path": cfg.Server.DatabasePath,
			"send_rps":      cfg.Server.SendRPS,
			"send_burst":    cfg.Server.SendBurst,
			"max_page_size": cfg.Server.MaxPageSize,
		},
		"logging": map[string]interface{}{
			"level":         cfg.Logging.Level,
			"format":        cfg.Logging.Format,
			"file":          cfg.Logging.File,
			"enable_caller": cfg.Logging.EnableCaller,
		},
		"tui": map[string]interface{}{
			"theme":      cfg.TUI.Theme,
			"state_path": cfg.TUI.StatePath,
		},
	}
}

func newVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the closetmail version",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "closetmail %s\n", version)
			return nil
		},
	}
}
