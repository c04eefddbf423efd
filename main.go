package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/kwv/procrustes/align"
)

// Version is set at build time via -ldflags
var Version = "dev"

// AppOptions holds the parsed command line
type AppOptions struct {
	ConfigFile    string
	ReferenceFile string
	TargetFile    string
	OutputFile    string
	OutputFormat  string
	ResultsCache  string
	JobID         string
	Batch         bool
	MqttMode      bool
	HttpMode      bool
	HttpPort      int
}

// Runner is the set of modes the command line can dispatch to
type Runner interface {
	ApplyOptions(opts AppOptions)
	RunAlign() error
	RunBatch() error
	RunService() error
}

func run(args []string, out io.Writer, app Runner) error {
	fs := flag.NewFlagSet("procrustes", flag.ContinueOnError)
	fs.SetOutput(out)

	var opts AppOptions
	fs.StringVar(&opts.ConfigFile, "config", "config.yaml", "Path to configuration file")
	fs.StringVar(&opts.ReferenceFile, "reference", "", "Reference dataset (data1): file path or http(s) URL")
	fs.StringVar(&opts.TargetFile, "target", "", "Target dataset (data2) to fit onto the reference")
	fs.StringVar(&opts.OutputFile, "output", "", "Write the alignment overlay or GeoJSON to this file")
	fs.StringVar(&opts.OutputFormat, "format", "", "Output format: svg, png or geojson (default: from -output extension)")
	fs.StringVar(&opts.ResultsCache, "results-cache", align.DefaultResultCachePath, "Path to result cache file")
	fs.StringVar(&opts.JobID, "job", "", "Only run the config job with this id in --batch mode")
	fs.BoolVar(&opts.Batch, "batch", false, "Run every job from the config file and exit")
	fs.BoolVar(&opts.MqttMode, "mqtt", false, "Serve alignment requests over MQTT")
	fs.BoolVar(&opts.HttpMode, "http", false, "Enable HTTP server for results and overlays")
	fs.IntVar(&opts.HttpPort, "http-port", 8080, "HTTP server port")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fmt.Fprintf(out, "procrustes version: %s\n", Version)
	app.ApplyOptions(opts)

	switch {
	case opts.ReferenceFile != "" || opts.TargetFile != "":
		return app.RunAlign()
	case opts.Batch:
		return app.RunBatch()
	case opts.MqttMode || opts.HttpMode:
		return app.RunService()
	}

	fmt.Fprintln(out, "Nothing to do.")
	fmt.Fprintln(out, "Use --reference A --target B to align two datasets")
	fmt.Fprintln(out, "Use --batch to run every job in config.yaml")
	fmt.Fprintln(out, "Use --mqtt to serve alignment requests over MQTT")
	fmt.Fprintln(out, "Use --http to serve results and overlays over HTTP")
	fmt.Fprintln(out, "\nDatasets: JSON rows, {\"points\": [...]}, GeoJSON, YAML or zlib-compressed JSON")
	return nil
}

func main() {
	err := run(os.Args[1:], os.Stdout, NewApp(os.Stdout))
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatal(err)
	}
}
