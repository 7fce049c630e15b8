// Command ingest runs the DWD ingestion job once: it downloads observation
// archives from an open-data index and publishes the CSV asset tree the API
// serves from. In ten-minute mode it publishes the newest readings to the
// live Kafka topic instead of writing files.
//
// Usage:
//
//	go run ./cmd/ingest -index-url https://opendata.dwd.de/.../kl/recent/ -out public
//	go run ./cmd/ingest -mode 10min -index-url https://opendata.dwd.de/.../air_temperature/now/ \
//	  -brokers localhost:9092 -topic live-climate-readings
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	kafkaadapter "github.com/halbgrad/climate-anomaly-service/internal/adapter/kafka"
	"github.com/halbgrad/climate-anomaly-service/internal/dwd"
	"github.com/halbgrad/climate-anomaly-service/internal/ingest"
	"github.com/halbgrad/climate-anomaly-service/internal/observability"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	indexURL := flag.String("index-url", "", "open-data directory listing the observation archives")
	mode := flag.String("mode", "daily", "ingestion mode: daily or 10min")
	out := flag.String("out", "public", "output directory for the published asset tree (daily mode)")
	catalogue := flag.String("catalogue", "KL_Tageswerte_Beschreibung_Stationen.txt",
		"station catalogue file on the index, empty to skip the station index asset")
	rollingRadius := flag.Int("rolling-radius", 2, "half-width of the rolling-mean window")
	limit := flag.Int("limit", 0, "process at most this many archives, 0 for all")
	timeout := flag.Duration("timeout", 60*time.Second, "timeout per index or archive request")
	brokers := flag.String("brokers", "", "comma-separated Kafka brokers (10min mode)")
	topic := flag.String("topic", "live-climate-readings", "Kafka topic for live readings (10min mode)")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	if *indexURL == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -index-url")
	}

	logger := observability.NewLogger(*logLevel, "text")
	metrics := observability.NewMetrics()

	source := dwd.NewIndexClient(*indexURL, *timeout, logger)
	job := ingest.New(source, ingest.Options{
		OutDir:        *out,
		CatalogueName: *catalogue,
		RollingRadius: *rollingRadius,
		Limit:         *limit,
	}, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch *mode {
	case "daily":
		return job.Run(ctx)
	case "10min":
		if *brokers == "" {
			return fmt.Errorf("10min mode needs -brokers")
		}
		writer := kafkaadapter.NewWriter(splitBrokers(*brokers), *topic, clockwork.NewRealClock(), logger)
		defer writer.Close()
		return job.RunTenMinute(ctx, writer)
	default:
		return fmt.Errorf("unknown mode %q, want daily or 10min", *mode)
	}
}

func splitBrokers(s string) []string {
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}
