package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/sumanthaka/TerminalTask/internal/config"
	"github.com/sumanthaka/TerminalTask/internal/github"
	"github.com/sumanthaka/TerminalTask/internal/logging"
	"github.com/sumanthaka/TerminalTask/internal/reconcile"
	"github.com/sumanthaka/TerminalTask/internal/tasks"
	"github.com/sumanthaka/TerminalTask/internal/ui"
)

// remote is the gh-backed capability set the commands need.
type remote interface {
	github.Provider
	OpenPR(ctx context.Context, repo string, number int) error
}

var newRemote = func(cfg config.GitHub) remote {
	return github.NewCLIClient(
		github.WithBinary(cfg.Binary),
		github.WithTimeout(cfg.Timeout),
	)
}

var copyToClipboard = clipboard.WriteAll

var isInteractive = func() bool {
	return isTerminal(os.Stdin) && isTerminal(os.Stdout)
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "tt error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

type rootOptions struct {
	configPath string
	dbPath     string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "tt",
		Short:         "Task terminal: monotonic task IDs linked to GitHub pull requests",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if isInteractive() {
				return runUI(cmd, opts, false)
			}
			return runList(cmd, opts, false)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config file (default ~/.tt/config.yaml)")
	flags.StringVar(&opts.dbPath, "db", "", "path to sqlite database (overrides db_path)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		newNewCmd(opts),
		newListCmd(opts),
		newShowCmd(opts),
		newLinkCmd(opts),
		newImportCmd(opts),
		newDeleteCmd(opts),
		newOpenCmd(opts),
		newStatusCmd(opts),
		newSyncCmd(opts),
		newNoteCmd(opts),
		newUICmd(opts),
		newConfigCmd(opts),
	)
	return root
}

func (o *rootOptions) loadConfig() (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if dbPath := strings.TrimSpace(o.dbPath); dbPath != "" {
		cfg.DBPath = dbPath
	}
	return cfg, nil
}

type app struct {
	cfg     config.Config
	logger  *slog.Logger
	store   *tasks.SQLiteStore
	manager *tasks.Manager
	remote  remote
	scanner *github.Scanner
	engine  *reconcile.Engine

	closeLog func() error
}

func (o *rootOptions) openApp(cmd *cobra.Command) (*app, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	logger, closeLog, err := logging.New(logging.Options{
		File:    cfg.LogFile,
		Level:   cfg.LogLevel,
		Verbose: o.verbose,
		Stderr:  cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, err
	}

	store, err := tasks.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		_ = closeLog()
		return nil, fmt.Errorf("open sqlite task store: %w", err)
	}

	manager := tasks.NewManager(store, logger)
	client := newRemote(cfg.GitHub)
	scanner := github.NewScanner(client, github.ScannerConfig{
		Repo:  cfg.GitHub.Repo,
		Limit: cfg.GitHub.Limit,
	}, logger)

	logger.Debug("tt started", "command", cmd.CommandPath(), "db", cfg.DBPath)
	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		manager:  manager,
		remote:   client,
		scanner:  scanner,
		engine:   reconcile.NewEngine(manager, scanner, logger),
		closeLog: closeLog,
	}, nil
}

func (a *app) Close() {
	_ = a.store.Close()
	_ = a.closeLog()
}

func (a *app) resolveRepo(ctx context.Context, repo string) (string, error) {
	if repo = strings.TrimSpace(repo); repo != "" {
		return repo, nil
	}
	if detected := a.scanner.CurrentRepo(ctx); detected != "" {
		return detected, nil
	}
	return "", errors.New("repository unknown; pass --repo owner/name or set github.repo")
}

func runUI(cmd *cobra.Command, opts *rootOptions, preview bool) error {
	a, err := opts.openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	model := ui.NewModel(ui.Deps{
		Context:   cmd.Context(),
		Tasks:     a.manager,
		Inbox:     reconcile.NewInbox(a.engine),
		Opener:    a.remote,
		Clipboard: copyToClipboard,
		Logger:    a.logger,
	})
	if preview {
		_, err := fmt.Fprint(cmd.OutOrStdout(), ui.Preview(model))
		return err
	}
	return ui.Run(model, cmd.InOrStdin(), cmd.OutOrStdout())
}
