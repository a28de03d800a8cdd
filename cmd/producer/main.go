package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var (
	brokers  = flag.String("brokers", "localhost:9092", "Comma separated Kafka brokers")
	topic    = flag.String("topic", "telemetry", "Topic to write telemetry to")
	interval = flag.Duration("interval", 200*time.Millisecond, "Delay between messages")
	hosts    = flag.Int("hosts", 20, "Number of distinct source addresses")
)

// Telemetry is a sample network flow record of the kind the profiles expect.
type Telemetry struct {
	Timestamp  int64  `json:"timestamp"` // epoch millis
	IPSrcAddr  string `json:"ip_src_addr"`
	IPDstAddr  string `json:"ip_dst_addr"`
	IPDstPort  int    `json:"ip_dst_port"`
	Protocol   string `json:"protocol"`
	Bytes      *int64 `json:"bytes"`
	DurationMs int    `json:"duration_ms"`
}

func main() {
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	sugar := logger.Sugar()

	writer := &kafka.Writer{
		Addr:     kafka.TCP(strings.Split(*brokers, ",")...),
		Topic:    *topic,
		Balancer: &kafka.LeastBytes{},
	}
	defer func() {
		if err := writer.Close(); err != nil {
			sugar.Errorw("Error closing kafka writer", zap.Error(err))
		}
	}()
	sugar.Infow("Starting sample producer", "topic", *topic, "brokers", *brokers)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-signals
		sugar.Info("Shutdown signal received, stopping producer...")
		cancel()
	}()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for {
		select {
		case <-ticker.C:
			msg := generateTelemetry(rng, *hosts)
			msgBytes, err := json.Marshal(msg)
			if err != nil {
				sugar.Errorw("Error marshalling message", zap.Error(err))
				continue
			}

			err = writer.WriteMessages(ctx, kafka.Message{Key: []byte(msg.IPSrcAddr), Value: msgBytes})
			if err != nil {
				if ctx.Err() != nil {
					sugar.Info("Context cancelled, exiting message loop.")
					return
				}
				sugar.Warnw("Error writing message", zap.Error(err))
			} else {
				sugar.Debugw("Produced message", "payload", string(msgBytes))
			}

		case <-ctx.Done():
			sugar.Info("Producer loop stopped.")
			return
		}
	}
}

// generateTelemetry produces a flow record with occasional missing byte
// counts and rare large transfers.
func generateTelemetry(rng *rand.Rand, hosts int) Telemetry {
	protocols := []string{"TCP", "UDP", "ICMP"}
	ports := []int{22, 53, 80, 443, 8080}

	var bytes *int64
	// ~5% chance of being null
	if rng.Float64() > 0.05 {
		b := int64(200 + rng.Intn(1300))
		if rng.Float64() < 0.01 { // 1% chance of exfiltration-sized transfer
			b += int64(rng.Intn(50_000_000))
		}
		bytes = &b
	}

	return Telemetry{
		Timestamp:  time.Now().UnixMilli(),
		IPSrcAddr:  fmt.Sprintf("10.0.0.%d", 1+rng.Intn(hosts)),
		IPDstAddr:  fmt.Sprintf("192.168.1.%d", 1+rng.Intn(254)),
		IPDstPort:  ports[rng.Intn(len(ports))],
		Protocol:   protocols[rng.Intn(len(protocols))],
		Bytes:      bytes,
		DurationMs: 1 + rng.Intn(500),
	}
}
