package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/verdantops/esgportal/pkg/catalog"
	"github.com/verdantops/esgportal/pkg/client"
	"github.com/verdantops/esgportal/pkg/config"
	"github.com/verdantops/esgportal/pkg/dashboard"
	"github.com/verdantops/esgportal/pkg/ingest"
	"github.com/verdantops/esgportal/pkg/models"
	"github.com/verdantops/esgportal/pkg/monitor"
	"github.com/verdantops/esgportal/pkg/portal"
	"github.com/verdantops/esgportal/pkg/state"
)

const usage = `Usage: portal -config <path> <command> [args]

Commands:
  presets                      List the built-in mock payload catalog
  realize <preset-id>          Print a freshly generated payload for a preset
  ingest <file> [-mode M]      Submit a payload file (mode: sustainability or legacy)
  mocks                        List saved custom mocks
  save-mock <name> <file>      Save a payload file as a reusable mock
  delete-mock <id>             Delete a saved mock
  watch                        Poll the dashboard and print summaries until interrupted
  health                       Check the health of all backend services
  stream                       Follow the live alert stream until interrupted
  livefeed                     Simulate sensor readings against the alerts service
  simulate <footprint> <mix> <gain>
                               Project a footprint after mix shift and efficiency gain (pct)
  validate <file>              Submit a compliance report for validation
`

func main() {
	configPath := flag.String("config", "/etc/esgportal/portal.json", "Path to config file")
	mode := flag.String("mode", string(models.IngestSustainability), "Ingestion mode for the ingest command")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	var cfg config.PortalConfig
	if err := config.LoadAndValidate(*configPath, &cfg); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	app, err := newApp(&cfg)
	if err != nil {
		log.Fatalf("Failed to initialize portal: %v", err)
	}
	defer app.close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := app.run(ctx, flag.Arg(0), flag.Args()[1:], models.IngestType(*mode)); err != nil {
		log.Fatalf("%v", err)
	}
}

type app struct {
	cfg    *config.PortalConfig
	api    *client.API
	shell  *portal.Shell
	poller *dashboard.Poller
	sqlite *state.SQLiteStore
}

func newApp(cfg *config.PortalConfig) (*app, error) {
	a := &app{cfg: cfg, api: client.NewAPI(cfg.Services)}

	var mockAdapter, tabAdapter state.Adapter

	switch cfg.StateBackend {
	case "sqlite":
		store, err := state.NewSQLiteStore(cfg.StateDir + "/portal_state.db")
		if err != nil {
			return nil, fmt.Errorf("failed to open state store: %w", err)
		}

		a.sqlite = store
		mockAdapter = store.Key(state.KeyCustomMocks)
		tabAdapter = store.Key(state.KeyActiveTab)
	default:
		mockAdapter = state.NewFileAdapter(cfg.StateDir, state.KeyCustomMocks)
		tabAdapter = state.NewFileAdapter(cfg.StateDir, state.KeyActiveTab)
	}

	a.poller = dashboard.NewPoller(a.api.MetricsReport,
		time.Duration(cfg.ActivePoll), time.Duration(cfg.InactivePoll))

	opts := client.IngestOptions{
		SourceID:        cfg.SourceID,
		IngestionSource: cfg.IngestionSource,
		Scorecard:       cfg.RequestScorecard,
	}

	tabs := state.NewTabStore(tabAdapter, models.TabIngest)
	mocks := state.NewMockStore(mockAdapter)
	a.shell = portal.NewShell(a.api, opts, tabs, mocks, a.poller)

	return a, nil
}

func (a *app) close() {
	if a.sqlite != nil {
		if err := a.sqlite.Close(); err != nil {
			log.Printf("Error closing state store: %v", err)
		}
	}
}

func (a *app) run(ctx context.Context, command string, args []string, mode models.IngestType) error {
	switch command {
	case "presets":
		return a.listPresets()
	case "realize":
		return a.realize(args)
	case "ingest":
		return a.ingest(ctx, args, mode)
	case "mocks":
		return a.listMocks()
	case "save-mock":
		return a.saveMock(args, mode)
	case "delete-mock":
		return a.deleteMock(args)
	case "watch":
		return a.watch(ctx)
	case "health":
		return a.health(ctx)
	case "stream":
		return a.stream(ctx)
	case "livefeed":
		return a.livefeed(ctx)
	case "simulate":
		return a.simulate(ctx, args)
	case "validate":
		return a.validate(ctx, args)
	default:
		flag.Usage()
		return fmt.Errorf("unknown command: %s", command)
	}
}

func (a *app) listPresets() error {
	fmt.Println("Sustainability presets:")

	for _, d := range catalog.Sustainability() {
		fmt.Printf("  %-24s %s\n", d.ID, d.Description)
	}

	fmt.Println("Legacy presets:")

	for _, d := range catalog.Legacy() {
		fmt.Printf("  %-24s %s\n", d.ID, d.Description)
	}

	return nil
}

func (a *app) realize(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("realize requires a preset id")
	}

	d, ok := catalog.Find(args[0])
	if !ok {
		return fmt.Errorf("unknown preset: %s", args[0])
	}

	text, err := catalog.PrettyJSON(d.Realize())
	if err != nil {
		return fmt.Errorf("failed to render preset: %w", err)
	}

	fmt.Println(text)

	return nil
}

func (a *app) ingest(ctx context.Context, args []string, mode models.IngestType) error {
	if len(args) != 1 {
		return fmt.Errorf("ingest requires a payload file")
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read payload: %w", err)
	}

	a.shell.SetBuffer(string(data), mode)

	entry, err := a.shell.Submit(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, ingest.Notice(err))

		return fmt.Errorf("ingestion failed: %w", err)
	}

	printJSON(entry.Data)
	log.Printf("Ingestion %s (%s)", entry.Status, entry.Type)

	return nil
}

func (a *app) listMocks() error {
	all := a.shell.Mocks().All()
	if len(all) == 0 {
		fmt.Println("No saved mocks")
		return nil
	}

	for _, m := range all {
		fmt.Printf("  %-24s %-16s %s (%s)\n", m.ID, m.Type, m.Name, m.SavedAt.Format(time.RFC3339))
	}

	return nil
}

func (a *app) saveMock(args []string, mode models.IngestType) error {
	if len(args) != 2 {
		return fmt.Errorf("save-mock requires a name and a payload file")
	}

	data, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("failed to read payload: %w", err)
	}

	a.shell.SetBuffer(string(data), mode)

	mock, err := a.shell.SaveBufferAsMock(args[0])
	if err != nil {
		return fmt.Errorf("failed to save mock: %w", err)
	}

	log.Printf("Saved mock %s (%s)", mock.ID, mock.Name)

	return nil
}

func (a *app) deleteMock(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("delete-mock requires a mock id")
	}

	a.shell.Mocks().Delete(args[0])
	log.Printf("Deleted mock %s", args[0])

	return nil
}

// watch selects the dashboard tab, which switches the poller to its fast
// cadence, then prints a summary whenever a fresh report lands.
func (a *app) watch(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.poller.Start(ctx)
	defer a.poller.Stop()

	a.shell.SelectTab(models.TabDashboard)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(time.Duration(a.cfg.ActivePoll))
	defer ticker.Stop()

	for {
		report, err := a.poller.Latest()
		if err != nil {
			log.Printf("Dashboard fetch failed: %v", err)
		}

		if report != nil {
			printSummary(dashboard.BuildSummary(report))
		}

		select {
		case sig := <-sigChan:
			log.Printf("Received signal %v, stopping watch", sig)
			return nil
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func printSummary(s dashboard.Summary) {
	status := "OK"
	if s.Critical {
		status = "CRITICAL"
	}

	fmt.Printf("[%s] carbon=%.2fkg water=%.0fL", status, s.CarbonTotal, s.WaterTotal)

	if s.PUE != nil {
		fmt.Printf(" pue=%.3f", s.PUE.Value)
	}

	if s.Utilization != nil {
		fmt.Printf(" util=%.1f%%", s.Utilization.Value)
	}

	if s.LatestObservation != nil {
		fmt.Printf(" asof=%s", s.LatestObservation.Format(time.RFC3339))
	}

	fmt.Println()
}

func (a *app) health(ctx context.Context) error {
	checker := monitor.NewHealthChecker(map[string]*client.Client{
		"telemetry":  a.api.Telemetry,
		"alerts":     a.api.Alerts,
		"compliance": a.api.Compliance,
		"simulator":  a.api.Simulator,
	})

	for _, h := range checker.CheckAll(ctx) {
		status := "healthy"
		if !h.Healthy {
			status = "unhealthy: " + h.Message
		}

		fmt.Printf("  %-12s %s\n", h.Name, status)
	}

	return nil
}

// livefeed runs the randomized sensor simulation and prints each
// reading's evaluation as it lands in the feed.
func (a *app) livefeed(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	feed := monitor.NewLiveFeed(a.api.ProcessLegacyTelemetry, 3*time.Second)
	feed.Start(ctx)

	defer feed.Stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()

	var lastSeen time.Time

	for {
		select {
		case sig := <-sigChan:
			log.Printf("Received signal %v, stopping live feed", sig)
			return nil
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		// Entries are newest first; print the backlog oldest first.
		entries := feed.Entries()
		for i := len(entries) - 1; i >= 0; i-- {
			entry := entries[i]
			if !entry.Timestamp.After(lastSeen) {
				continue
			}

			lastSeen = entry.Timestamp

			if entry.Error != "" {
				fmt.Printf("[%s] submit failed: %s\n", entry.Timestamp.Format(time.RFC3339), entry.Error)
				continue
			}

			if entry.Response != nil {
				fmt.Printf("[%s] CO2=%.1f Temp=%.1f -> %s\n", entry.Timestamp.Format(time.RFC3339),
					entry.Reading["CO2_ppm"], entry.Reading["Temperature_C"], entry.Response.Status)
			}
		}
	}
}

// stream follows the alert broadcast websocket and prints every
// triggered alert until interrupted.
func (a *app) stream(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("Received signal %v, closing alert stream", sig)
		cancel()
	}()

	wsURL := strings.Replace(a.cfg.Services.Alerts, "http", "ws", 1) + "/stream"
	log.Printf("Following alert stream at %s", wsURL)

	return monitor.Subscribe(ctx, wsURL, func(msg monitor.StreamMessage) {
		fmt.Printf("[%s] %s\n", msg.Type, string(msg.Payload))
	})
}

func (a *app) simulate(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("simulate requires footprint, mix shift and efficiency gain")
	}

	var req client.SimulationRequest
	if _, err := fmt.Sscanf(args[0]+" "+args[1]+" "+args[2], "%f %f %f",
		&req.CurrentFootprint, &req.EnergyMixShift, &req.EfficiencyGain); err != nil {
		return fmt.Errorf("simulate arguments must be numeric: %w", err)
	}

	result, err := a.api.Simulate(ctx, req)
	if err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}

	fmt.Printf("Projected footprint: %.2f %s\n", result.ProjectedFootprint, result.Unit)

	return nil
}

func (a *app) validate(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("validate requires a report file")
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read report: %w", err)
	}

	var report map[string]any
	if err := json.Unmarshal(data, &report); err != nil {
		return fmt.Errorf("report is not valid JSON: %w", err)
	}

	result, err := a.api.ValidateCompliance(ctx, report, a.cfg.APIKey)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Printf("Status: %s (validated by %s)\n", result.Status, result.ValidatedBy)

	return nil
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return
	}

	fmt.Println(string(data))
}
