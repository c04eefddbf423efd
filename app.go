package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/kwv/procrustes/align"
	"github.com/tdewolff/canvas"
)

// App encapsulates the application state and dependencies
type App struct {
	Config     *align.Config
	Store      *align.ResultStore
	MQTTClient *align.MQTTClient
	Publisher  *align.Publisher
	Out        io.Writer

	// CLI Flags (effectively dependencies)
	ConfigFile    string
	ReferenceFile string
	TargetFile    string
	OutputFile    string
	OutputFormat  string
	ResultsCache  string
	JobID         string
	HttpPort      int
	MqttMode      bool
	HttpMode      bool
}

// NewApp creates a new App instance writing its reports to out
func NewApp(out io.Writer) *App {
	return &App{Out: out}
}

// ApplyOptions applies CLI options to the App instance
func (a *App) ApplyOptions(opts AppOptions) {
	a.ConfigFile = opts.ConfigFile
	a.ReferenceFile = opts.ReferenceFile
	a.TargetFile = opts.TargetFile
	a.OutputFile = opts.OutputFile
	a.OutputFormat = opts.OutputFormat
	a.ResultsCache = opts.ResultsCache
	a.JobID = opts.JobID
	a.HttpPort = opts.HttpPort
	a.MqttMode = opts.MqttMode
	a.HttpMode = opts.HttpMode
}

// results returns the result store, opening the cache file on first use
func (a *App) results() *align.ResultStore {
	if a.Store == nil {
		a.Store = align.NewResultStoreWithCache(a.ResultsCache)
	}
	return a.Store
}

// renderConfig returns the configured overlay settings or the defaults
func (a *App) renderConfig() align.RenderConfig {
	if a.Config != nil {
		return a.Config.Render
	}
	return align.RenderConfig{
		Resolution:  align.DefaultResolution,
		PointRadius: align.DefaultPointRadius,
	}
}

// RunAlign aligns --target onto --reference, prints the fit and optionally
// writes an overlay or GeoJSON export to --output
func (a *App) RunAlign() error {
	if a.ReferenceFile == "" || a.TargetFile == "" {
		return fmt.Errorf("both --reference and --target are required")
	}

	result, err := alignFiles(context.Background(), a.ReferenceFile, a.TargetFile)
	if err != nil {
		return err
	}

	id := a.JobID
	if id == "" {
		id = strings.TrimSuffix(filepath.Base(a.TargetFile), filepath.Ext(a.TargetFile))
	}
	summary := a.results().Put(id, result)
	printSummary(a.Out, summary, result)

	if a.OutputFile == "" {
		return nil
	}

	format, err := outputFormat(a.OutputFile, a.OutputFormat)
	if err != nil {
		return err
	}
	f, err := os.Create(a.OutputFile)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := writeResult(f, format, id, result, a.renderConfig()); err != nil {
		return fmt.Errorf("writing %s: %w", a.OutputFile, err)
	}
	fmt.Fprintf(a.Out, "Wrote %s overlay to %s\n", format, a.OutputFile)
	return nil
}

// RunBatch runs every job in the config file (or only --job) and saves
// their summaries to the result cache
func (a *App) RunBatch() error {
	config, err := align.LoadConfig(a.ConfigFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a.Config = config

	jobs := config.Jobs
	if a.JobID != "" {
		job := config.GetJobByID(a.JobID)
		if job == nil {
			return fmt.Errorf("job %q not found in %s", a.JobID, a.ConfigFile)
		}
		jobs = []align.JobConfig{*job}
	}
	if len(jobs) == 0 {
		return fmt.Errorf("no jobs defined in %s", a.ConfigFile)
	}

	fmt.Fprintf(a.Out, "Running %d job(s)\n", len(jobs))
	failed := a.runJobs(context.Background(), jobs)
	if failed > 0 {
		return fmt.Errorf("%d of %d jobs failed", failed, len(jobs))
	}
	return nil
}

// runJobs aligns each job and returns the number of failures. Failures are
// logged and, when MQTT is up, published to the error topic.
func (a *App) runJobs(ctx context.Context, jobs []align.JobConfig) int {
	failed := 0
	for _, job := range jobs {
		result, err := alignFiles(ctx, job.Reference, job.Target)
		if err != nil {
			log.Printf("Job %s failed: %v", job.ID, err)
			a.publishError(job.ID, err)
			failed++
			continue
		}

		summary := a.results().Put(job.ID, result)
		fmt.Fprintf(a.Out, "  %-20s disparity=%.6g scale=%.6g reflection=%v\n",
			job.ID, summary.Disparity, summary.Scale, summary.Reflection)
		a.publishResult(summary)
	}
	return failed
}

// RunService serves alignment requests over MQTT and/or results over HTTP
// until interrupted
func (a *App) RunService() error {
	fmt.Fprintln(a.Out, "Starting procrustes service...")

	config, err := align.LoadConfig(a.ConfigFile)
	if err != nil {
		if a.MqttMode {
			return fmt.Errorf("loading config: %w", err)
		}
		log.Printf("Warning: %v; serving ad-hoc requests only", err)
		config = &align.Config{}
	} else {
		log.Printf("Loaded config from %s", a.ConfigFile)
	}
	a.Config = config
	store := a.results()
	if store.HasResults() {
		log.Printf("Loaded %d cached result(s) from %s", len(store.IDs()), a.ResultsCache)
	}

	if a.MqttMode {
		mqttClient, err := align.InitMQTT(config, a.handleAlignRequest)
		if err != nil {
			return fmt.Errorf("initializing MQTT: %w", err)
		}
		if mqttClient == nil {
			return fmt.Errorf("MQTT broker not configured (set mqtt.broker or MQTT_BROKER)")
		}
		a.MQTTClient = mqttClient
		a.Publisher = align.NewPublisher(mqttClient.GetClient(), config.MQTT.PublishPrefix)
		fmt.Fprintln(a.Out, "MQTT result publisher initialized")
	}

	if len(config.Jobs) > 0 {
		go func() {
			if failed := a.runJobs(context.Background(), config.Jobs); failed > 0 {
				log.Printf("%d of %d configured jobs failed", failed, len(config.Jobs))
			}
		}()
	}

	var srv *http.Server
	if a.HttpMode {
		srv = &http.Server{
			Addr:              fmt.Sprintf("0.0.0.0:%d", a.HttpPort),
			Handler:           newHTTPServer(store, a.renderConfig(), a.Publisher),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			log.Printf("[HTTP] Starting server on %s", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatalf("[HTTP] Server error: %v", err)
			}
		}()
	}

	fmt.Fprintln(a.Out, "\nService Running")
	fmt.Fprintln(a.Out, "===============")

	if a.MqttMode {
		prefix := config.MQTT.PublishPrefix
		fmt.Fprintln(a.Out, "\nMQTT:")
		fmt.Fprintf(a.Out, "  Requests:  %s\n", config.MQTT.RequestTopic)
		fmt.Fprintf(a.Out, "  Results:   %s/results/{id}\n", prefix)
		fmt.Fprintf(a.Out, "  Index:     %s/results\n", prefix)
		fmt.Fprintf(a.Out, "  Errors:    %s/errors/{id}\n", prefix)
	}

	if a.HttpMode {
		fmt.Fprintf(a.Out, "\nHTTP endpoints (port %d):\n", a.HttpPort)
		fmt.Fprintln(a.Out, "  GET  /health                - Health check")
		fmt.Fprintln(a.Out, "  POST /align                 - Align reference and target")
		fmt.Fprintln(a.Out, "  GET  /results               - All result summaries")
		fmt.Fprintln(a.Out, "  GET  /results/{id}          - One result summary")
		fmt.Fprintln(a.Out, "  GET  /results/{id}.svg|.png - Overlay of reference and aligned target")
		fmt.Fprintln(a.Out, "  GET  /results/{id}.geojson  - GeoJSON export")
	}

	fmt.Fprintln(a.Out, "\nPress Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	fmt.Fprintln(a.Out, "\nShutting down service...")
	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("[HTTP] Shutdown error: %v", err)
		}
	}
	if a.MQTTClient != nil {
		a.MQTTClient.Disconnect()
	}
	fmt.Fprintln(a.Out, "Service stopped")
	return nil
}

// handleAlignRequest runs a request received over MQTT and publishes the outcome
func (a *App) handleAlignRequest(req *align.AlignRequest, err error) {
	if err != nil {
		a.publishError("", err)
		return
	}

	result, err := req.Run()
	if err != nil {
		log.Printf("Align request %s failed: %v", req.ID, err)
		a.publishError(req.ID, err)
		return
	}

	summary := a.results().Put(req.ID, result)
	log.Printf("Aligned %s: %d points x %d dims, disparity=%.6g", req.ID, summary.Points, summary.Dims, summary.Disparity)
	a.publishResult(summary)
}

func (a *App) publishResult(summary align.ResultSummary) {
	if a.Publisher == nil {
		return
	}
	if err := a.Publisher.PublishResult(summary); err != nil {
		log.Printf("Error publishing result for %s: %v", summary.ID, err)
	}
}

func (a *App) publishError(id string, cause error) {
	if a.Publisher == nil {
		return
	}
	if err := a.Publisher.PublishError(id, cause); err != nil {
		log.Printf("Error publishing failure for %s: %v", id, err)
	}
}

// alignFiles loads both datasets and fits target onto reference
func alignFiles(ctx context.Context, reference, target string) (*align.Result, error) {
	data1, err := align.LoadDatasetWithContext(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("loading reference: %w", err)
	}
	data2, err := align.LoadDatasetWithContext(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("loading target: %w", err)
	}
	return align.Procrustes(data1, data2)
}

func printSummary(w io.Writer, s align.ResultSummary, r *align.Result) {
	fmt.Fprintf(w, "\n=== %s ===\n", s.ID)
	fmt.Fprintf(w, "Points:     %d x %d\n", s.Points, s.Dims)
	fmt.Fprintf(w, "Disparity:  %.10g\n", s.Disparity)
	fmt.Fprintf(w, "RMSD:       %.10g\n", r.RMSD())
	fmt.Fprintf(w, "Scale:      %.10g\n", s.Scale)
	fmt.Fprintf(w, "Reflection: %v\n", s.Reflection)
	fmt.Fprintln(w, "Rotation:")
	for _, row := range s.Rotation {
		fmt.Fprint(w, " ")
		for _, v := range row {
			fmt.Fprintf(w, " %10.6f", v)
		}
		fmt.Fprintln(w)
	}
	if t := s.Transform; t != nil {
		fmt.Fprintf(w, "Transform (target -> reference): [%.6f %.6f %.6f; %.6f %.6f %.6f]\n",
			t.A, t.B, t.Tx, t.C, t.D, t.Ty)
		fmt.Fprintf(w, "  rotation=%.2f° det=%.6g\n", t.RotationDegrees(), t.Determinant())
	}
}

// outputFormat resolves the --format flag, falling back to the file extension
func outputFormat(path, format string) (string, error) {
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
		if format == "json" {
			format = "geojson"
		}
	}
	switch format {
	case "svg", "png", "geojson":
		return format, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (want svg, png or geojson)", format)
	}
}

// writeResult renders a result in the given format
func writeResult(w io.Writer, format, id string, r *align.Result, render align.RenderConfig) error {
	switch format {
	case "geojson":
		return writeJSON(w, align.ResultToGeoJSON(id, r))
	case "svg":
		return newOverlay(r, render).RenderToSVG(w)
	case "png":
		return newOverlay(r, render).RenderToPNG(w)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

func newOverlay(r *align.Result, render align.RenderConfig) *align.OverlayRenderer {
	renderer := align.NewOverlayRenderer(r)
	if render.Resolution > 0 {
		renderer.Resolution = canvas.DPI(render.Resolution)
	}
	if render.PointRadius > 0 {
		renderer.PointRadius = render.PointRadius
	}
	return renderer
}
