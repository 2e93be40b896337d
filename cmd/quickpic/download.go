package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"quickpic/pkg/auth"
	"quickpic/pkg/cmcloud"
	"quickpic/pkg/config"
	"quickpic/pkg/logger"
	"quickpic/pkg/migrate"
	"quickpic/pkg/storage"
	"quickpic/pkg/ui"
)

// downloadOptions holds the flags of a download run
type downloadOptions struct {
	outputDir   string
	baseURL     string
	pageSize    int
	maxAttempts int
	timeout     time.Duration
	retryDelay  time.Duration
	rateLimit   int
	progress    bool
}

func (o *downloadOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.outputDir, "output", "o", "", "output directory for downloads (default: current directory)")
	cmd.Flags().StringVar(&o.baseURL, "base-url", "", "CM Cloud service root")
	cmd.Flags().IntVar(&o.pageSize, "page-size", 0, "metadata page size (default 100)")
	cmd.Flags().IntVar(&o.maxAttempts, "max-attempts", 0, "attempts per remote operation (default 9)")
	cmd.Flags().DurationVar(&o.timeout, "timeout", 0, "HTTP request timeout (default: none)")
	cmd.Flags().DurationVar(&o.retryDelay, "retry-delay", 0, "pause between a failed attempt and the next")
	cmd.Flags().IntVar(&o.rateLimit, "rate-limit", 0, "maximum requests per minute (default: unlimited)")
	cmd.Flags().BoolVarP(&o.progress, "progress", "p", false, "show a status line instead of per-file logs")
}

// flags converts the options into the map understood by config.Load
func (o *downloadOptions) flags(g *globalOptions, cmd *cobra.Command) map[string]interface{} {
	flags := map[string]interface{}{
		"output":       o.outputDir,
		"base-url":     o.baseURL,
		"page-size":    o.pageSize,
		"max-attempts": o.maxAttempts,
		"timeout":      o.timeout,
		"retry-delay":  o.retryDelay,
		"rate-limit":   o.rateLimit,
		"log-level":    g.logLevel,
	}
	if cmd.Flags().Changed("notifications") {
		flags["notifications"] = g.notifications
	}
	switch {
	case g.logLevel != "":
	case g.quiet:
		flags["log-level"] = "error"
	case o.progress:
		flags["log-level"] = "warn"
	}
	return flags
}

func newDownloadCmd(g *globalOptions) *cobra.Command {
	dl := &downloadOptions{}

	cmd := &cobra.Command{
		Use:   "download <email> [password]",
		Short: "Download all photos of an account",
		Long: `Download all photos of a CM Cloud account into the output directory.

Every remote step is attempted up to 9 times, logging in again after each
failure. A file that is already present and non-empty is not downloaded again.`,
		Example: `  quickpic download me@example.com --output ./photos
  quickpic download me@example.com --rate-limit 120 --progress`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDownload(cmd, g, dl, args)
		},
	}
	dl.register(cmd)
	return cmd
}

// newCredentialManager opens the credential stores; replaced in tests
var newCredentialManager = auth.NewManager

// passwordPrompt reads a password from the terminal without echo; replaced in tests
var passwordPrompt = func(email string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return readLine(os.Stdin)
	}

	fmt.Fprintf(os.Stderr, "Password for %s: ", email)
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(pw), nil
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// resolvePassword picks the password from the command line, the credential
// store or an interactive prompt, in that order
func resolvePassword(email string, args []string) (string, error) {
	if len(args) > 1 && args[1] != "" {
		return args[1], nil
	}

	if manager, err := newCredentialManager(); err == nil {
		if pw, err := manager.Password(email); err == nil && pw != "" {
			return pw, nil
		}
	}

	pw, err := passwordPrompt(email)
	if err != nil {
		return "", err
	}
	if pw == "" {
		return "", errors.New("a password is required")
	}
	return pw, nil
}

func runDownload(cmd *cobra.Command, g *globalOptions, dl *downloadOptions, args []string) error {
	email := strings.TrimSpace(args[0])
	if email == "" {
		return errors.New("an email address is required")
	}

	cfg, err := config.Load(g.configFile, dl.flags(g, cmd))
	if err != nil {
		return err
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log = log.WithField("version", version)

	password, err := resolvePassword(email, args)
	if err != nil {
		return err
	}

	ui.PrintBanner()
	ui.PrintInfo("Account", email)
	ui.PrintInfo("Output", cfg.Download.OutputDir)

	notifier := ui.NewNotifier(cfg.Notifications)
	summary, err := download(cmd.Context(), cfg, email, password, log, dl.progress)
	if err != nil {
		notifier.SendError("QuickPic download failed", err.Error())
		return fmt.Errorf("download failed: %w", err)
	}

	notifier.SendSuccess("QuickPic download complete", fmt.Sprintf("%s photos downloaded (%s), %s already present",
		humanize.Comma(int64(summary.Downloaded)),
		humanize.Bytes(uint64(summary.Bytes)),
		humanize.Comma(int64(summary.Skipped)),
	))
	return nil
}

// download wires the storage manager, the cloud client and the migrator
// for one run
func download(ctx context.Context, cfg *config.Config, email, password string, log logger.Logger, progress bool, opts ...cmcloud.Option) (migrate.Summary, error) {
	store, err := storage.NewManager(cfg.Download.OutputDir, log)
	if err != nil {
		return migrate.Summary{}, err
	}

	client, err := cmcloud.NewClient(cfg, email, password, store, log, opts...)
	if err != nil {
		return migrate.Summary{}, err
	}

	var migratorOpts []migrate.Option
	var tracker *ui.StatusTracker
	if progress {
		tracker = ui.NewStatusTracker()
		migratorOpts = append(migratorOpts, migrate.WithProgress(tracker))
	}

	summary, err := migrate.NewFromClient(client, store, log, migratorOpts...).Run(ctx)
	if err != nil {
		return migrate.Summary{}, err
	}

	if tracker != nil {
		tracker.Finish(summary.Downloaded, summary.Skipped, summary.Bytes, summary.Duration)
	}
	return summary, nil
}
