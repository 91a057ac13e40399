// Command send-metrics pushes synthetic gauge and state series to the
// Datadog intake. It is a smoke tool for checking that an API key,
// endpoint, and tag set are wired correctly before instrumenting a
// real service.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/rocicorp/datadog-util/intake"
	"github.com/rocicorp/datadog-util/metrics"
	"github.com/rocicorp/datadog-util/pkg/config"
	"github.com/rocicorp/datadog-util/pkg/logging"
	"github.com/rocicorp/datadog-util/reporter"
)

var version = "v0.1.0"

type options struct {
	ConfigDir string        `short:"c" long:"config-dir" description:"directory to read datadog.yaml from" default:"."`
	Endpoint  string        `short:"e" long:"endpoint" description:"intake endpoint override"`
	Interval  time.Duration `short:"i" long:"interval" description:"reporting interval override"`
	Count     int           `short:"n" long:"count" description:"number of synthetic gauges to generate" default:"3"`
	Tags      []string      `short:"t" long:"tag" description:"extra tag to attach to every series"`
	Debug     bool          `short:"d" long:"debug" description:"debug logging"`
	Version   bool          `short:"v" long:"version" description:"display the version and exit"`
}

func main() {
	opt := parseCLI()

	if opt.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	log := logging.New()

	cfg, err := config.Load(opt.ConfigDir)
	if err != nil {
		log.Errorf("error loading configuration: %v", err)
		os.Exit(1)
	}
	applyOverrides(&cfg, opt)

	logging.Level.SetByName(cfg.LogLevel)
	if opt.Debug {
		logging.Level.Set(slog.LevelDebug)
	}

	if err := cfg.Validate(); err != nil {
		log.Errorf("invalid configuration: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runTag := fmt.Sprintf("run:%s", gonanoid.Must(6))
	reg := metrics.NewRegistry(metrics.Config{Tags: append(cfg.Tags, runTag)})

	client := intake.NewClient(cfg.APIKey)
	client.Endpoint = cfg.Endpoint

	rep, err := reporter.New(reporter.Config{
		Metrics:   reg,
		Submitter: client,
		Interval:  cfg.ReportInterval,
		Logger:    log,
		Context:   ctx,
	})
	if err != nil {
		log.Errorf("error starting reporter: %v", err)
		os.Exit(1)
	}

	log.Infof("sending %d gauges every %v, tagged %s, interrupt to stop", opt.Count, cfg.ReportInterval, runTag)
	runDemo(ctx, reg, opt.Count)
	rep.Stop()

	confirmDelivery(log, reg, cfg)
}

func parseCLI() *options {
	opt := &options{}
	parser := flags.NewParser(opt, flags.Default)
	parser.Name = "send-metrics"
	parser.Usage = "[OPTIONS]"

	if _, err := parser.Parse(); err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		os.Exit(1)
	}
	return opt
}

func applyOverrides(cfg *config.Config, opt *options) {
	if opt.Endpoint != "" {
		cfg.Endpoint = opt.Endpoint
	}
	if opt.Interval > 0 {
		cfg.ReportInterval = opt.Interval
	}
	cfg.Tags = append(cfg.Tags, opt.Tags...)
}

// runDemo keeps count synthetic gauges and one state moving until the
// context is cancelled.
func runDemo(ctx context.Context, reg *metrics.Registry, count int) {
	if count < 1 {
		count = 1
	}
	gauges := make([]*metrics.Gauge, count)
	values := make([]float64, count)
	for i := range gauges {
		gauges[i] = reg.Gauge(fmt.Sprintf("demo_gauge_%d", i))
		values[i] = 20.0
	}
	phase := reg.State("demo_phase", false)

	phases := []string{"warmup", "steady", "drain"}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for i := 0; ; i++ {
		select {
		case <-ticker.C:
			for j, g := range gauges {
				values[j] += rand.Float64()*2 - 1
				g.Set(values[j])
			}
			phase.Set(phases[i/10%len(phases)])
		case <-ctx.Done():
			return
		}
	}
}

// confirmDelivery pushes whatever is still buffered and prints the
// intake's answer, so an interrupted run still ends with proof of
// delivery.
func confirmDelivery(log *logging.Logger, reg *metrics.Registry, cfg config.Config) {
	s := reg.Flush()
	if len(s) == 0 {
		log.Infof("nothing left to deliver")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	headers := map[string]string{intake.APIKeyHeader: cfg.APIKey}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = intake.DefaultEndpoint
	}

	resp, err := intake.Post(ctx, http.DefaultClient, endpoint, headers, s)
	if err != nil {
		log.Errorf("error delivering final %d series: %v", len(s), err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	var answer struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		log.Warningf("could not decode intake response: %v", err)
		answer.Status = resp.Status
	}
	log.Infof("delivered %d series: %s", len(s), answer.Status)
}
