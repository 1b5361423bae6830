// Package main is the entry point for nvgrid, a terminal front end for
// Neovim.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dshills/nvgrid/internal/config"
	"github.com/dshills/nvgrid/internal/nvim"
	"github.com/dshills/nvgrid/internal/present"
	"github.com/dshills/nvgrid/internal/rpc"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// options are the command line flags. Empty strings leave the configured
// value alone.
type options struct {
	ConfigPath string
	NvimPath   string
	Listen     string
	LogFile    string
	LogLevel   string
	Files      []string
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	logger, closeLog, err := openLog(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open log: %v\n", err)
		return 1
	}
	defer closeLog()
	slog.SetDefault(logger)

	code, err := runSession(cfg, opts.Files, logger)
	if err != nil {
		logger.Error("session failed", slog.String("error", err.Error()))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return code
}

// runSession owns the terminal for the lifetime of the Neovim session. It
// returns the exit code of a spawned Neovim that quit on its own.
func runSession(cfg *config.Config, files []string, logger *slog.Logger) (int, error) {
	term, err := present.NewTerminal(present.WithLogger(logger))
	if err != nil {
		return 1, fmt.Errorf("failed to create terminal: %w", err)
	}
	defer term.Fini()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clientOpts := []nvim.Option{
		nvim.WithLogger(logger),
		nvim.WithRPCOptions(
			rpc.WithReadBufferSize(cfg.RPC.ReadBufferSize),
			rpc.WithWriteBufferCapacity(cfg.RPC.WriteBufferCapacity),
		),
		nvim.WithModeTimeout(cfg.RPC.ModeTimeout.Std()),
		nvim.WithRequestTimeout(cfg.RPC.RequestTimeout.Std()),
	}

	var client *nvim.Client
	if cfg.Nvim.Listen != "" {
		client, err = nvim.Connect(ctx, cfg.Nvim.Listen, term, clientOpts...)
	} else {
		client, err = nvim.Spawn(ctx, nvim.SpawnConfig{
			Path: cfg.Nvim.Path,
			Args: append(append([]string(nil), cfg.Nvim.Args...), files...),
			Env:  cfg.Nvim.Env,
			Dir:  cfg.Nvim.Dir,
		}, term, clientOpts...)
	}
	if err != nil {
		return 1, err
	}
	defer client.Close()

	width, height := term.Size()
	if cfg.UI.Width > 0 {
		width = cfg.UI.Width
	}
	if cfg.UI.Height > 0 {
		height = cfg.UI.Height
	}

	attachCtx, cancel := ctx, context.CancelFunc(func() {})
	if d := cfg.UI.AttachTimeout.Std(); d > 0 {
		attachCtx, cancel = context.WithTimeout(ctx, d)
	}
	err = client.UIAttachOptions(attachCtx, width, height, cfg.UI.AttachOptions())
	cancel()
	if err != nil {
		return 1, fmt.Errorf("attach: %w", err)
	}
	logger.Info("attached", slog.Int("width", width), slog.Int("height", height))

	if err := term.Run(ctx, client); err != nil && !errors.Is(err, context.Canceled) {
		return 1, err
	}

	if term.Closed() {
		if proc := client.Process(); proc != nil {
			<-proc.Done()
			return proc.ExitCode(), nil
		}
	}
	return 0, nil
}

func loadConfig(opts options) (*config.Config, error) {
	path := opts.ConfigPath
	if path == "" {
		path = os.Getenv(config.EnvPrefix + "CONFIG")
	}
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if opts.NvimPath != "" {
		cfg.Nvim.Path = opts.NvimPath
	}
	if opts.Listen != "" {
		cfg.Nvim.Listen = opts.Listen
	}
	if opts.LogFile != "" {
		cfg.Log.File = opts.LogFile
	}
	if opts.LogLevel != "" {
		if err := cfg.Log.Level.UnmarshalText([]byte(opts.LogLevel)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.LogLevel, err)
		}
	}
	return cfg, cfg.Validate()
}

// openLog returns a text logger writing to the configured file. The
// terminal belongs to the screen, so without a file logs are discarded.
func openLog(cfg config.LogConfig) (*slog.Logger, func(), error) {
	handlerOpts := &slog.HandlerOptions{Level: cfg.Level}
	if cfg.File == "" {
		return slog.New(slog.NewTextHandler(io.Discard, handlerOpts)), func() {}, nil
	}

	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	logger := slog.New(slog.NewTextHandler(f, handlerOpts)).With(slog.Int("pid", os.Getpid()))
	return logger, func() { _ = f.Close() }, nil
}

func parseFlags() options {
	var opts options
	var showVersion bool
	var showHelp bool

	flag.StringVar(&opts.ConfigPath, "config", "", "Path to configuration file")
	flag.StringVar(&opts.ConfigPath, "c", "", "Path to configuration file (shorthand)")
	flag.StringVar(&opts.NvimPath, "nvim", "", "Neovim executable to spawn")
	flag.StringVar(&opts.Listen, "listen", "", "Connect to Neovim listening on a socket path or host:port")
	flag.StringVar(&opts.LogFile, "log", "", "Write logs to file")
	flag.StringVar(&opts.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "nvgrid - terminal front end for Neovim\n\n")
		fmt.Fprintf(os.Stderr, "Usage: nvgrid [options] [files...]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  nvgrid main.go                     Spawn nvim --embed main.go\n")
		fmt.Fprintf(os.Stderr, "  nvgrid -listen /tmp/nvim.sock      Attach to a running Neovim\n")
		fmt.Fprintf(os.Stderr, "  nvgrid -log nvgrid.log -log-level debug\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("nvgrid %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	opts.Files = flag.Args()
	return opts
}
