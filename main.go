package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/1061700625/SpectraTray/internal/capture"
	"github.com/1061700625/SpectraTray/internal/pipeline"
	"github.com/1061700625/SpectraTray/internal/probe"
	"github.com/1061700625/SpectraTray/internal/tray"
	"github.com/1061700625/SpectraTray/internal/ui"
)

var version = "0.1.0"

// CLI defines the command-line interface.
type CLI struct {
	TUI     bool             `help:"Render the spectrum in the terminal instead of the tray."`
	File    string           `short:"f" type:"existingfile" help:"Visualize a local audio file (wav/mp3/ogg/flac) instead of loopback capture."`
	Probe   bool             `help:"Play a short sine sweep through the speakers and exit; useful for verifying loopback capture."`
	Verbose bool             `short:"v" help:"Enable debug logging."`
	Version kong.VersionFlag `help:"Show version and exit."`
}

func main() {
	cli := &CLI{}
	kong.Parse(cli,
		kong.Name("spectratray"),
		kong.Description("A system tray spectrum display for whatever your machine is playing."),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "spectratray",
	})
	if cli.Verbose {
		logger.SetLevel(log.DebugLevel)
	}

	if cli.Probe {
		if err := probe.Run(); err != nil {
			logger.Fatal("probe failed", "err", err)
		}
		return
	}

	var (
		open    pipeline.OpenFunc
		playing string
	)
	if cli.File != "" {
		// Open once up front: surface bad files immediately and grab the
		// title for the tooltip, then let the pipeline reopen on demand.
		src, err := capture.OpenFile(cli.File)
		if err != nil {
			logger.Fatal("cannot open file", "path", cli.File, "err", err)
		}
		playing = src.Title()
		src.Close()
		path := cli.File
		open = func() (capture.Source, error) { return capture.OpenFile(path) }
	} else {
		backend, err := capture.NewBackend()
		if err != nil {
			// No audio API on this platform at all, as opposed to a missing
			// device, which the pipeline retries.
			logger.Fatal("no usable audio backend", "err", err)
		}
		defer backend.Close()
		open = func() (capture.Source, error) { return backend.OpenLoopback() }
	}

	cfg := pipeline.NewConfigStore(pipeline.DefaultConfig())
	pipe := pipeline.New(open, cfg, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	done := make(chan struct{})
	go func() {
		pipe.Run(ctx)
		close(done)
	}()

	if cli.TUI {
		program := tea.NewProgram(ui.New(pipe.Updates(), cfg), tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			logger.Error("terminal ui failed", "err", err)
		}
	} else {
		tray.Run(tray.Options{
			Version:  version,
			Config:   cfg,
			Updates:  pipe.Updates(),
			Logger:   logger,
			Playing:  playing,
			OnClosed: cancel,
		})
	}

	// Let the pipeline release the capture handle before the process exits.
	cancel()
	<-done
}
