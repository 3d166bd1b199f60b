package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/integrii/flaggy"

	"github.com/ghalamif/VibraFlow"
	"github.com/ghalamif/VibraFlow/internal/adapters/observability"
)

const (
	appName = "vibra-monitor"
	appDesc = "real-time vibration telemetry client for ESP32/MPU6050 sensor nodes"
)

var version = "dev"

type runOptions struct {
	config  string
	envFile string
	mode    string
	host    string
}

type watchOptions struct {
	url      string
	interval time.Duration
}

func main() {
	var (
		runOpts   runOptions
		checkPath string
		watchOpts = watchOptions{
			url:      "http://localhost:9100/snapshot",
			interval: 2 * time.Second,
		}
	)

	parser := flaggy.NewParser(appName)
	parser.Description = appDesc
	parser.Version = version

	runCmd := flaggy.Subcommand{
		Name:        "run",
		ShortName:   "r",
		Description: "connect to the device and serve metrics and snapshots",
	}
	runCmd.String(&runOpts.config, "c", "config", "path to a YAML config file (optional)")
	runCmd.String(&runOpts.envFile, "e", "env-file", "dotenv file with VIBRA_* variables")
	runCmd.String(&runOpts.mode, "m", "mode", "acquisition mode: stream or poll")
	runCmd.String(&runOpts.host, "d", "host", "device host or IP")
	parser.AttachSubcommand(&runCmd, 1)

	validateCmd := flaggy.Subcommand{
		Name:        "validate",
		ShortName:   "v",
		Description: "load and validate a config file without connecting",
	}
	validateCmd.String(&checkPath, "c", "config", "path to the config file to validate")
	parser.AttachSubcommand(&validateCmd, 1)

	watchCmd := flaggy.Subcommand{
		Name:        "watch",
		ShortName:   "w",
		Description: "poll a running monitor's /snapshot endpoint and print live values",
	}
	watchCmd.String(&watchOpts.url, "u", "url", "snapshot endpoint")
	watchCmd.Duration(&watchOpts.interval, "i", "interval", "refresh interval")
	parser.AttachSubcommand(&watchCmd, 1)

	chk(parser.Parse(), "failed to parse arguments")

	var (
		cmd string
		err error
	)
	switch {
	case runCmd.Used:
		cmd = runCmd.Name
		err = runCommand(runOpts)
	case validateCmd.Used:
		cmd = validateCmd.Name
		err = validateCommand(checkPath)
	case watchCmd.Used:
		cmd = watchCmd.Name
		err = watchCommand(watchOpts)
	default:
		parser.ShowHelpAndExit("a subcommand is required")
	}

	if err != nil {
		log.Fatalf("%s %s: %v", appName, cmd, err)
	}
}

func runCommand(opts runOptions) error {
	loadOpts := []vibraflow.LoadOption{
		vibraflow.WithConfigOverride(func(c *vibraflow.Config) {
			if opts.mode != "" {
				c.Mode = opts.mode
			}
			if opts.host != "" {
				c.Device.Host = opts.host
			}
		}),
	}
	if envFile := resolveEnvFile(opts.envFile); envFile != "" {
		loadOpts = append(loadOpts, vibraflow.WithEnvFiles(envFile))
	}

	cfg, err := vibraflow.LoadConfig(opts.config, loadOpts...)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observability.NewLogger(os.Stderr, cfg.Log.Level, cfg.Log.Format, os.Getenv("NO_COLOR") != "")
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	flow, err := vibraflow.ConfFromConfig(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting",
		"mode", cfg.Mode,
		"device", cfg.Device.Host,
		"window", cfg.Store.WindowSize,
		"metrics", cfg.Metrics.Addr)

	statusLog := func(s vibraflow.ConnStatus) {
		if s.Err != "" {
			logger.Warn("connection", "state", s.State.String(), "error", s.Err)
			return
		}
		logger.Info("connection", "state", s.State.String())
	}
	return flow.Run(ctx, vibraflow.ObserveLogger(logger), vibraflow.ObserveStatus(statusLog))
}

// resolveEnvFile falls back to ./.env when present.
func resolveEnvFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if _, err := os.Stat(".env"); err == nil {
		return ".env"
	}
	return ""
}

func validateCommand(path string) error {
	cfg, err := vibraflow.LoadConfig(path)
	if err != nil {
		return err
	}
	target := cfg.Stream.URL
	if cfg.Mode == vibraflow.ModePoll {
		target = cfg.Poll.BaseURL
	}
	name := path
	if name == "" {
		name = "(defaults)"
	}
	fmt.Printf("config %s looks good: mode=%s target=%s window=%d\n", name, cfg.Mode, target, cfg.Store.WindowSize)
	return nil
}

func watchCommand(opts watchOptions) error {
	if opts.interval <= 0 {
		return errors.New("interval must be positive")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := &http.Client{Timeout: opts.interval}
	ticker := time.NewTicker(opts.interval)
	defer ticker.Stop()

	fmt.Printf("Streaming snapshots from %s (Ctrl+C to stop)\n", opts.url)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			snap, err := fetchSnapshot(ctx, client, opts.url)
			if err != nil {
				fmt.Fprintf(os.Stderr, "watch error: %v\n", err)
				continue
			}
			fmt.Println(formatSnapshot(time.Now(), snap))
		}
	}
}

func fetchSnapshot(ctx context.Context, client *http.Client, url string) (vibraflow.Snapshot, error) {
	var snap vibraflow.Snapshot
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return snap, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return snap, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return snap, fmt.Errorf("unexpected status %s", resp.Status)
	}
	err = json.NewDecoder(resp.Body).Decode(&snap)
	return snap, err
}

func formatSnapshot(now time.Time, snap vibraflow.Snapshot) string {
	line := fmt.Sprintf("[%s] %-12s", now.Format(time.TimeOnly), snap.Status.State)
	if len(snap.X)+len(snap.Y)+len(snap.Z) > 0 {
		line += fmt.Sprintf(" x=%s y=%s z=%s", latest(snap.X), latest(snap.Y), latest(snap.Z))
		line += fmt.Sprintf(" rms(x/y/z)=%.3f/%.3f/%.3f", snap.Stats.X.RMS, snap.Stats.Y.RMS, snap.Stats.Z.RMS)
	}
	line += fmt.Sprintf(" peak=%.1fHz rpm=%.0f temp=%.1fC up=%s", snap.PeakFrequency, snap.EstimatedRPM, snap.Temperature, snap.Runtime)
	for endpoint, msg := range snap.Errors {
		line += fmt.Sprintf(" err[%s]=%q", endpoint, msg)
	}
	return line
}

// latest renders the newest value of a series, or "-" when it is empty.
func latest(series []float64) string {
	if len(series) == 0 {
		return "-"
	}
	return fmt.Sprintf("%+.3f", series[len(series)-1])
}

func chk(err error, wrap string) {
	if err != nil {
		log.Fatalln(wrap+": ", err)
	}
}
