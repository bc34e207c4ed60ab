// Package cli implements the closetmail command line.
package cli

import (
	"context"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/campuscloset/closetmail/internal/config"
	"github.com/campuscloset/closetmail/internal/logging"
	"github.com/campuscloset/closetmail/internal/mailtui/data"
)

// newProvider builds the message client for a loaded config.
var newProvider = func(cfg *config.Config) (data.MessageProvider, error) {
	return data.NewAPIProvider(data.APIProviderConfig{
		BaseURL: cfg.API.BaseURL,
		UserID:  cfg.API.UserID,
		Timeout: cfg.API.Timeout,
	})
}

var hasTTY = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

type rootOptions struct {
	configFile string
	apiURL     string
	userID     int64
	logLevel   string
}

// runtime is the state shared by every command of one invocation.
type runtime struct {
	opts   rootOptions
	cfg    *config.Config
	loader *config.Loader
}

func Execute(version string) error {
	return newRootCmd(version).Execute()
}

func newRootCmd(version string) *cobra.Command {
	rt := &runtime{}
	cmd := &cobra.Command{
		Use:   "closetmail",
		Short: "Read and answer campus closet messages from the terminal",
		Long: `closetmail lists your conversations about closet posts and lets you reply.

Run without arguments in a terminal to open the message page, or use the
subcommands below for scripted access.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return rt.load(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if !hasTTY() {
				return cmd.Help()
			}
			return rt.launchTUI()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&rt.opts.configFile, "config", "", "config file (default $XDG_CONFIG_HOME/closetmail/config.yaml)")
	flags.StringVar(&rt.opts.apiURL, "api", "", "messages API base URL")
	flags.Int64Var(&rt.opts.userID, "user", 0, "acting user id, sent as X-USER-ID")
	flags.StringVar(&rt.opts.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")

	cmd.AddCommand(
		newTUICmd(rt),
		newInboxCmd(rt),
		newThreadsCmd(rt),
		newConversationCmd(rt),
		newReplyCmd(rt),
		newSentCmd(rt),
		newUnreadCmd(rt),
		newReadCmd(rt),
		newConfigCmd(rt),
		newVersionCmd(version),
	)
	return cmd
}

// load resolves configuration with flags applied on top and initializes
// logging to stderr.
func (rt *runtime) load(cmd *cobra.Command) error {
	loader := config.NewLoader()
	if path := strings.TrimSpace(rt.opts.configFile); path != "" {
		loader.SetConfigFile(path)
	}

	flags := cmd.Flags()
	if flags.Changed("api") {
		loader.Set("api.base_url", strings.TrimSpace(rt.opts.apiURL))
	}
	if flags.Changed("user") {
		if rt.opts.userID <= 0 {
			return usageError(cmd, "--user must be a positive id")
		}
		loader.Set("api.user_id", rt.opts.userID)
	}
	if flags.Changed("log-level") {
		if !logging.ValidLevel(rt.opts.logLevel) {
			return usageError(cmd, "invalid --log-level %q", rt.opts.logLevel)
		}
		loader.Set("logging.level", rt.opts.logLevel)
	}

	cfg, err := loader.Load()
	if err != nil {
		return Exitf(ExitCodeFailure, "%v", err)
	}
	rt.cfg = cfg
	rt.loader = loader

	logging.Init(logging.Config{
		Level:        cfg.Logging.Level,
		Format:       cfg.Logging.Format,
		Output:       cmd.ErrOrStderr(),
		EnableCaller: cfg.Logging.EnableCaller,
	})
	logging.Logger.Debug().Str("config", loader.ConfigFileUsed()).Str("api", cfg.API.BaseURL).Msg("configuration loaded")
	return nil
}

// client returns a provider for the configured user.
func (rt *runtime) client() (data.MessageProvider, error) {
	if err := rt.cfg.ValidateClient(); err != nil {
		return nil, &ExitError{Code: ExitCodeUsage, Err: err}
	}
	provider, err := newProvider(rt.cfg)
	if err != nil {
		return nil, Exitf(ExitCodeFailure, "init client: %v", err)
	}
	return provider, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
