package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskdeck/internal/api"
	"github.com/BuzzLyutic/taskdeck/internal/cache"
	"github.com/BuzzLyutic/taskdeck/internal/config"
	"github.com/BuzzLyutic/taskdeck/internal/model"
)

// app holds what every subcommand needs once flags and config are resolved.
type app struct {
	cfg    config.Config
	logger *zap.Logger
	client *api.Client
	cache  *cache.TaskCache
}

type rootFlags struct {
	configPath string
	userID     string
	apiURL     string
	token      string
	debug      bool
}

func newRootCmd() *cobra.Command {
	var (
		flags rootFlags
		a     app
	)

	root := &cobra.Command{
		Use:           "taskdeck",
		Short:         "Manage tasks on a remote task service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd, flags)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "path to config file (default $XDG_CONFIG_HOME/taskdeck/config.yaml)")
	pf.StringVarP(&flags.userID, "user", "u", "", "user id whose tasks to manage")
	pf.StringVar(&flags.apiURL, "api-url", "", "base URL of the task service")
	pf.StringVar(&flags.token, "token", "", "bearer token")
	pf.BoolVar(&flags.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newListCmd(&a),
		newShowCmd(&a),
		newAddCmd(&a),
		newEditCmd(&a),
		newDoneCmd(&a),
		newRmCmd(&a),
		newCountsCmd(&a),
		newWatchCmd(&a),
		newHealthCmd(&a),
		newServeCmd(&a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command, flags rootFlags) error {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if flags.userID != "" {
		cfg.UserID = flags.userID
	}
	if flags.apiURL != "" {
		cfg.APIURL = flags.apiURL
	}
	if flags.token != "" {
		cfg.Token = flags.token
	}
	a.cfg = cfg

	switch {
	case cmd.Name() == "serve":
		a.logger, err = zap.NewProduction()
	case flags.debug:
		a.logger, err = zap.NewDevelopment()
	default:
		a.logger = zap.NewNop()
	}
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	a.client = api.NewClient(cfg.APIURL, a.logger,
		api.WithTimeout(cfg.Timeout),
		api.WithToken(cfg.Token),
	)
	out := cmd.OutOrStdout()
	a.cache = cache.New(a.client, a.logger,
		cache.WithDedupeInterval(cfg.DedupeInterval),
		cache.WithNotifier(cache.NotifierFunc{
			OnSuccess: func(op cache.Op, _ model.Task) {
				if msg := cache.SuccessMessage(op); msg != "" {
					fmt.Fprintln(out, msg)
				}
			},
		}),
	)
	return nil
}

func (a *app) user() (string, error) {
	if a.cfg.UserID == "" {
		return "", errors.New("no user id: pass --user or set TASKDECK_USER_ID")
	}
	return a.cfg.UserID, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q", s)
	}
	return id, nil
}
