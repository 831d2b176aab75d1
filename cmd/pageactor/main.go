// Package main provides the pageactor CLI: it opens a browser, runs a
// YAML action script through the execution engine, and prints the
// resulting journal.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fatalapps/pageactor/pkg/actor"
	"github.com/fatalapps/pageactor/pkg/actor/metrics"
	"github.com/fatalapps/pageactor/pkg/actor/observation"
	"github.com/fatalapps/pageactor/pkg/actor/result"
	"github.com/fatalapps/pageactor/pkg/actor/task"
	"github.com/fatalapps/pageactor/pkg/config"
	"github.com/fatalapps/pageactor/pkg/logging"
)

const version = "0.1.0"

// CLIConfig holds command-line configuration.
type CLIConfig struct {
	ConfigFile  string
	ScriptFile  string
	StartURL    string
	MetricsAddr string
	Timeout     time.Duration
	ShowVersion bool
}

func main() {
	cli := parseFlags()

	if cli.ShowVersion {
		fmt.Printf("pageactor v%s\n", version)
		return
	}
	if cli.ScriptFile == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nshutting down...")
		cancel()
	}()

	if err := run(ctx, cli); err != nil {
		cancel()
		log.Printf("execution failed: %v", err)
		os.Exit(1)
	}
	cancel()
}

func parseFlags() *CLIConfig {
	cli := &CLIConfig{}

	flag.StringVar(&cli.ConfigFile, "config", "", "Path to configuration file (YAML)")
	flag.StringVar(&cli.ScriptFile, "script", "", "Path to action script (YAML, required)")
	flag.StringVar(&cli.StartURL, "url", "", "URL to open before running the script")
	flag.StringVar(&cli.MetricsAddr, "metrics-addr", "", "Address to serve Prometheus metrics on (e.g. :9090)")
	flag.DurationVar(&cli.Timeout, "timeout", 5*time.Minute, "Execution timeout")
	flag.BoolVar(&cli.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "pageactor - scripted browser action pipeline\n\n")
		fmt.Fprintf(os.Stderr, "Usage: pageactor [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  pageactor -script actions.yaml -url https://example.com\n")
		fmt.Fprintf(os.Stderr, "  pageactor -config pageactor.yaml -script actions.yaml -metrics-addr :9090\n")
	}

	flag.Parse()
	return cli
}

func run(ctx context.Context, cli *CLIConfig) error {
	cfg, err := config.Load(cli.ConfigFile)
	if err != nil {
		return err
	}

	logger, logErr := logging.NewLogger("cli")
	if logErr != nil {
		log.Printf("warning: %v", logErr)
	}
	defer logger.Close()
	logger.Infof("pageactor v%s starting, session %s", version, logging.SessionID())

	script, err := loadScript(cli.ScriptFile)
	if err != nil {
		return err
	}

	var m *metrics.Metrics
	if cli.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		m = metrics.New(reg)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: cli.MetricsAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Errorf("metrics server: %v", err)
			}
		}()
		defer srv.Close()
	}

	svc, err := actor.NewService(actor.Options{
		Blocklist:   cfg.Policy.Blocklist,
		Credentials: cfg.Login.Credentials,
		SettleDelay: cfg.Observation.SettleDelay,
		Metrics:     m,
	})
	if err != nil {
		return err
	}

	pw, err := playwright.Run()
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}
	defer pw.Stop()

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Browser.Headless),
	})
	if err != nil {
		return fmt.Errorf("failed to launch browser: %w", err)
	}
	defer browser.Close()

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  cfg.Browser.ViewportWidth,
			Height: cfg.Browser.ViewportHeight,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create browser context: %w", err)
	}

	window := svc.OpenBrowserWindow(bctx)
	tab, err := window.OpenTab(true)
	if err != nil {
		return err
	}
	if cli.StartURL != "" {
		if _, err := tab.Page().Goto(cli.StartURL); err != nil {
			return fmt.Errorf("failed to open %s: %w", cli.StartURL, err)
		}
		tab.CommitNavigation(cli.StartURL)
	}

	actorTask, eng := svc.CreateTask()
	svc.Loop().Post(func() {
		actorTask.AddTab(tab.Handle(), func(result.ActionResult) {})
	})

	snap, err := observation.Capture(tab)
	if err != nil {
		logger.Warnf("initial observation failed: %v", err)
	} else {
		eng.DidObserveContext(snap)
		logger.Infof("initial observation: %d nodes at %s", snap.NodeCount(), snap.URL)
	}

	requests, err := script.Requests(tab.Handle(), window.Handle())
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithTimeout(ctx, cli.Timeout)
	defer cancel()
	go svc.Loop().Run(runCtx)

	done := make(chan struct{})
	var finalRes result.ActionResult
	var failedIdx *int
	svc.Loop().Post(func() {
		eng.Act(requests, func(res result.ActionResult, failedIndex *int) {
			finalRes = res
			failedIdx = failedIndex
			close(done)
		})
	})

	select {
	case <-done:
	case <-runCtx.Done():
		svc.Loop().Post(func() {
			eng.CancelOngoingActions(result.CodeCancelled)
		})
		<-done
	}

	printJournal(svc, actorTask.ID())

	if !result.IsOk(finalRes) {
		if failedIdx != nil {
			return fmt.Errorf("action %d failed: %s", *failedIdx, finalRes.DebugString())
		}
		return fmt.Errorf("script failed: %s", finalRes.DebugString())
	}
	logger.Infof("script finished: %d actions ok", len(requests))
	fmt.Printf("OK: %d actions completed\n", len(requests))
	return nil
}

func printJournal(svc *actor.Service, id task.ID) {
	entries := svc.Journal().EntriesForTask(id)
	if len(entries) == 0 {
		return
	}
	fmt.Println("journal:")
	for _, e := range entries {
		line := fmt.Sprintf("  %s %s", e.At.Format("15:04:05.000"), e.Event)
		if e.Phase != "" {
			line += " [" + e.Phase + "]"
		}
		if e.URL != "" {
			line += " " + e.URL
		}
		if e.Message != "" {
			line += " - " + e.Message
		}
		fmt.Println(line)
	}
}
