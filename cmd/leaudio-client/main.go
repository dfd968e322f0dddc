// Command leaudio-client is a reference LE Audio client.
//
// It runs the control plane against an in-process simulated controller,
// so connection, group and offload flows can be exercised without radio
// hardware.
//
// Usage:
//
//	leaudio-client [flags]
//
// Flags:
//
//	-config string       YAML configuration file path
//	-log-level string    Log level: debug, info, warn, error (default "info")
//	-trace string        Write a protocol trace to this .lalog file
//	-offload             Enable the vendor offload handshake
//	-latency duration    Simulated controller reply latency
//	-interactive         Run the interactive shell (default true)
//
// Examples:
//
//	# Two simulated earbuds, interactive shell
//	leaudio-client
//
//	# Devices from a file, with a trace for leaudio-log
//	leaudio-client -config client.yaml -trace session.lalog
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/leaudio/leaudio-go/cmd/leaudio-client/interactive"
	"github.com/leaudio/leaudio-go/internal/config"
	"github.com/leaudio/leaudio-go/internal/simulator"
	"github.com/leaudio/leaudio-go/pkg/bdaddr"
	"github.com/leaudio/leaudio-go/pkg/codec"
	"github.com/leaudio/leaudio-go/pkg/log"
	"github.com/leaudio/leaudio-go/pkg/service"
)

// Options holds the command-line flags.
type Options struct {
	ConfigFile  string
	LogLevel    string
	TracePath   string
	Offload     bool
	Latency     time.Duration
	Interactive bool
}

var opts Options

func init() {
	flag.StringVar(&opts.ConfigFile, "config", "", "YAML configuration file path")
	flag.StringVar(&opts.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	flag.StringVar(&opts.TracePath, "trace", "", "Write a protocol trace to this .lalog file")
	flag.BoolVar(&opts.Offload, "offload", false, "Enable the vendor offload handshake")
	flag.DurationVar(&opts.Latency, "latency", 0, "Simulated controller reply latency")
	flag.BoolVar(&opts.Interactive, "interactive", true, "Run the interactive shell")
}

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "leaudio-client: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	file, err := loadConfig()
	if err != nil {
		return err
	}
	level, err := file.Log.SlogLevel()
	if err != nil {
		return err
	}

	sim := simulator.New(simulator.Config{Latency: opts.Latency})
	if err := addDevices(sim, file.Devices); err != nil {
		return err
	}

	cfg := service.DefaultConfig()
	file.Apply(&cfg)
	if opts.Offload {
		cfg.OffloadEnabled = true
	}

	// Log output goes through the shell's writer once it exists.
	out := &switchWriter{w: os.Stderr}
	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
	cfg.Logger = logger

	var fileLogger *log.FileLogger
	if file.Log.Trace != "" {
		fileLogger, err = log.NewFileLogger(file.Log.Trace)
		if err != nil {
			return err
		}
		defer fileLogger.Close()
	}
	cfg.ProtocolLogger = protocolLogger(fileLogger, logger, level)

	audio := &audioPrinter{out: out}
	svc, err := service.NewService(cfg, sim, audio)
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}
	sim.Attach(svc)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sim.Run(gctx)
	})

	if err := svc.Start(gctx); err != nil {
		cancel()
		_ = g.Wait()
		return fmt.Errorf("start service: %w", err)
	}
	logger.Info("service started", "session", svc.SessionID(), "devices", len(file.Devices), "offload", cfg.OffloadEnabled)
	sim.DeclareSets()

	if opts.Interactive {
		shell, err := interactive.New(svc, sim)
		if err != nil {
			logger.Error("interactive shell", "error", err)
			cancel()
		} else {
			out.set(shell.Stdout())
			g.Go(func() error {
				shell.Run(gctx, cancel)
				return nil
			})
		}
	}

	<-gctx.Done()
	logger.Info("shutting down")
	if err := svc.Stop(); err != nil {
		logger.Warn("stop service", "error", err)
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if fileLogger != nil {
		logger.Info("trace written", "path", fileLogger.Path(), "events", fileLogger.Written())
	}
	return nil
}

func loadConfig() (*config.File, error) {
	file := &config.File{}
	if opts.ConfigFile != "" {
		loaded, err := config.Load(opts.ConfigFile)
		if err != nil {
			return nil, err
		}
		file = loaded
	}
	if opts.LogLevel != "" {
		file.Log.Level = opts.LogLevel
	}
	if opts.TracePath != "" {
		file.Log.Trace = opts.TracePath
	}
	if len(file.Devices) == 0 {
		file.Devices = defaultDevices()
	}
	return file, file.Validate()
}

// defaultDevices is a pair of earbuds forming one set.
func defaultDevices() []config.Device {
	const key = "b8030c4e6fa12d7e8f0a11c2d3e4f506"
	return []config.Device{
		{Addr: bdaddr.MustParse("00:1B:DC:0F:10:01"), SetKey: key, Rank: 1, Contexts: []string{"conversational", "media"}},
		{Addr: bdaddr.MustParse("00:1B:DC:0F:10:02"), SetKey: key, Rank: 2, Contexts: []string{"conversational", "media"}},
	}
}

func addDevices(sim *simulator.Simulator, devices []config.Device) error {
	for i, d := range devices {
		key, inSet, err := d.Key()
		if err != nil {
			return err
		}
		contexts, err := d.ContextMask()
		if err != nil {
			return err
		}
		sink, source := d.Endpoints()
		p := simulator.Profile{
			Addr:            d.Addr,
			SetKey:          key,
			InSet:           inSet,
			Rank:            d.Rank,
			Contexts:        contexts,
			SinkEndpoints:   sink,
			SourceEndpoints: source,
		}
		// Alternate front left and front right like a pair of earbuds.
		p.Allocation[codec.RoleSink] = 1 << (i % 2)
		if err := sim.Add(p); err != nil {
			return err
		}
	}
	return nil
}

func protocolLogger(file *log.FileLogger, logger *slog.Logger, level slog.Level) log.Logger {
	var loggers []log.Logger
	if file != nil {
		loggers = append(loggers, file)
	}
	if level <= slog.LevelDebug {
		loggers = append(loggers, log.NewSlogAdapter(logger))
	}
	switch len(loggers) {
	case 0:
		return nil
	case 1:
		return loggers[0]
	default:
		return log.NewMultiLogger(loggers...)
	}
}

// switchWriter lets log output move to the shell's writer after startup.
type switchWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *switchWriter) set(w io.Writer) {
	s.mu.Lock()
	s.w = w
	s.mu.Unlock()
}

func (s *switchWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
