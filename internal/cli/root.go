package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"taskpad/internal/config"
	"taskpad/internal/logger"
	"taskpad/internal/storage"
	"taskpad/internal/ui"
	"taskpad/internal/viewmodel"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	configPath string
	logLevel   string

	cfg    config.Config
	log    *logrus.Logger
	logOut io.Closer
	store  *storage.Store
	vm     *viewmodel.ViewModel
}

// NewRootCmd builds the command tree. Running it without a subcommand opens the UI.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "taskpad",
		Short: "Taskpad - a single-user task tracker",
		Long: `Taskpad keeps a prioritized task list in a local SQLite database.

Run it without arguments for the interactive view, or use a subcommand for scripting.`,
		RunE: a.wrap(func(cmd *cobra.Command, args []string) error {
			return ui.Run(a.vm, a.cfg)
		}),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to config.toml")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Override the configured log level")

	root.AddCommand(newListCmd(a))
	root.AddCommand(newAddCmd(a))
	root.AddCommand(newStatsCmd(a))
	root.AddCommand(newPurgeCmd(a))
	return root
}

// Execute runs the root command
func Execute(version string) error {
	root := NewRootCmd()
	root.Version = version
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

// wrap brackets fn with setup and teardown so resources are released on failure too.
func (a *app) wrap(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			if cerr := a.teardown(); err == nil {
				err = cerr
			}
		}()
		if err := a.setup(); err != nil {
			return err
		}
		return fn(cmd, args)
	}
}

func (a *app) setup() error {
	path := a.configPath
	if path == "" {
		path = config.ResolveConfigPath()
	}
	cfg, err := config.LoadOrCreate(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	a.cfg = cfg

	out, err := logger.OpenFile(cfg.LogFile)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	a.logOut = out
	a.log = logger.New(cfg.LogLevel, out)

	store, err := storage.New(cfg.StorageOptions(), storage.WithLogger(logger.Component(a.log, "storage")))
	if err != nil {
		return fmt.Errorf("configure storage: %w", err)
	}
	a.store = store

	a.vm = viewmodel.New(store, logger.Component(a.log, "viewmodel"))
	filters, err := cfg.InitialFilters()
	if err != nil {
		return err
	}
	return a.vm.ApplyFilters(filters)
}

func (a *app) teardown() error {
	var err error
	if a.store != nil {
		err = a.store.Close()
		a.store = nil
	}
	if a.logOut != nil {
		if cerr := a.logOut.Close(); err == nil {
			err = cerr
		}
		a.logOut = nil
	}
	return err
}
