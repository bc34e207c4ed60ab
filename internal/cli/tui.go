package cli

import (
	"github.com/spf13/cobra"

	"github.com/campuscloset/closetmail/internal/logging"
	"github.com/campuscloset/closetmail/internal/mailtui"
)

// runTUI starts the interactive message page.
var runTUI = mailtui.Run

func newTUICmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive message page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !hasTTY() {
				return Exitf(ExitCodeFailure, "the message page needs an interactive terminal; use the inbox, threads and reply commands instead")
			}
			return rt.launchTUI()
		},
	}
}

func (rt *runtime) launchTUI() error {
	provider, err := rt.client()
	if err != nil {
		return err
	}

	// Log lines would tear the alternate screen, so they go to a file or
	// nowhere while the program runs.
	closer, err := logging.InitFile(logging.Config{
		Level:        rt.cfg.Logging.Level,
		Format:       rt.cfg.Logging.Format,
		EnableCaller: rt.cfg.Logging.EnableCaller,
	}, rt.cfg.Logging.File)
	if err != nil {
		return Exitf(ExitCodeFailure, "%v", err)
	}
	defer closer.Close()

	if err := rt.cfg.EnsureDirectories(); err != nil {
		logging.Logger.Warn().Err(err).Msg("could not create state directory")
	}

	err = runTUI(mailtui.Config{
		Provider:  provider,
		UserID:    rt.cfg.API.UserID,
		Theme:     rt.cfg.TUI.Theme,
		StatePath: rt.cfg.TUI.StatePath,
	})
	if err != nil {
		return Exitf(ExitCodeFailure, "tui: %v", err)
	}
	return nil
}
