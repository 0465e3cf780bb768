// Command cherami-demo is a small CLI that exercises a live service the
// way the original client's demo/example_publisher.py and
// demo/example_consumer.py scripts did: publish a couple of messages, or
// receive and ack a couple of messages.
package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	cherami "github.com/oriys/cherami-client-go"
	"github.com/oriys/cherami-client-go/internal/config"
	"github.com/oriys/cherami-client-go/internal/logging"
	"github.com/oriys/cherami-client-go/internal/metrics"
	"github.com/oriys/cherami-client-go/transport/grpcdial"
	"github.com/spf13/cobra"
)

var (
	frontendAddr string
	deployment   string
	timeout      time.Duration
	configPath   string
	metricsAddr  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cherami-demo",
		Short: "cherami-demo talks to a cherami-like pub/sub service",
		Long:  "A small CLI demonstrating the cherami client's Publisher and Consumer.",
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (CHERAMI_* env vars override it, flags override both)")
	rootCmd.PersistentFlags().StringVar(&frontendAddr, "frontend", "", "frontend connection-key (host:port), defaults to config's frontend_addr or 127.0.0.1:4922")
	rootCmd.PersistentFlags().StringVar(&deployment, "deployment", "", "deployment string (prod/dev/empty -> canonical service name)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "RPC and owner-call timeout, defaults to config's publisher timeout (used by both publish and consume)")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "if set (and config's observability.metrics.enabled is true), serve Prometheus metrics at http://<addr>/metrics")

	rootCmd.AddCommand(publishCmd(), consumeCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	if configPath != "" {
		loaded, err := config.LoadFromFile(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.DefaultConfig()
	}
	config.LoadFromEnv(cfg)
	return cfg, nil
}

func dialClient() (*cherami.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logging.InitStructured(cfg.Observability.Logging.Format, cfg.Observability.Logging.Level)

	addr := frontendAddr
	if addr == "" {
		addr = cfg.FrontendAddr
	}
	if addr == "" {
		addr = "127.0.0.1:4922"
	}

	effTimeout := timeout
	if effTimeout == 0 {
		effTimeout = cfg.PublisherTimeout()
	}

	dep := deployment
	if dep == "" {
		dep = cfg.DeploymentStr
	}

	transport, err := grpcdial.Dial(addr)
	if err != nil {
		return nil, fmt.Errorf("dial frontend %s: %w", addr, err)
	}

	return cherami.NewClient(cherami.ClientConfig{
		Transport:        transport,
		FrontendHostport: addr,
		DeploymentStr:    dep,
		ClientName:       "cherami_demo",
		Timeout:          effTimeout,
		Metrics:          metricsSink(cfg),
	})
}

// metricsSink starts a Prometheus scrape endpoint and returns a sink backed
// by it when both the config and --metrics-addr ask for one; otherwise the
// client falls back to its own no-op default.
func metricsSink(cfg *config.Config) metrics.Sink {
	if !cfg.Observability.Metrics.Enabled || metricsAddr == "" {
		return nil
	}

	sink := metrics.NewPrometheusSink(cfg.Observability.Metrics.Namespace, cfg.Observability.Metrics.HistogramBuckets)
	mux := http.NewServeMux()
	mux.Handle("/metrics", sink.Handler())
	go func() {
		if err := http.ListenAndServe(metricsAddr, mux); err != nil {
			logging.Op().Error("metrics server stopped", "error", err)
		}
	}()
	return sink
}

func publishCmd() *cobra.Command {
	var path string
	var count int

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "publish a handful of messages to a destination",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := dialClient()
			if err != nil {
				return err
			}
			defer client.Close()

			publisher, err := client.NewPublisher(path)
			if err != nil {
				return err
			}
			if err := publisher.Open(); err != nil {
				return fmt.Errorf("open publisher: %w", err)
			}
			defer publisher.Close()

			for i := 0; i < count; i++ {
				id := uuid.NewString()
				ack := publisher.Publish(id, []byte("hello"), nil)
				fmt.Printf("publish %s -> status=%s message=%q\n", id, ack.Status, ack.Message)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "destination", "/test/dest", "destination path")
	cmd.Flags().IntVar(&count, "count", 2, "number of messages to publish")
	return cmd
}

func consumeCmd() *cobra.Command {
	var path, group string
	var count int

	cmd := &cobra.Command{
		Use:   "consume",
		Short: "receive and ack a handful of messages from a consumer group",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := dialClient()
			if err != nil {
				return err
			}
			defer client.Close()

			consumer, err := client.NewConsumer(path, group)
			if err != nil {
				return err
			}
			if err := consumer.Open(); err != nil {
				return fmt.Errorf("open consumer: %w", err)
			}
			defer consumer.Close()

			deliveries := consumer.Receive(count)
			for _, d := range deliveries {
				fmt.Printf("received: %s\n", d.Message.Payload.Data)
				if !consumer.VerifyChecksum(d.Message) {
					fmt.Println("checksum mismatch, nacking")
					consumer.Nack(d.Token)
					continue
				}
				consumer.Ack(d.Token)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "destination", "/test/dest", "destination path")
	cmd.Flags().StringVar(&group, "consumer-group", "/test/cg", "consumer group name")
	cmd.Flags().IntVar(&count, "count", 2, "number of messages to receive")
	return cmd
}
