package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gochain/consensus/pkg/consensus"
	"github.com/gochain/consensus/pkg/engine"
	"github.com/gochain/consensus/pkg/llmexec"
	"github.com/gochain/consensus/pkg/logger"
	"github.com/gochain/consensus/pkg/txstore"
)

var (
	configFile  string
	dataDir     string
	metricsAddr string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "consensusd",
		Short: "consensusd - LLM-backed validator consensus engine",
		Long: `consensusd drives Intelligent Contract transactions through the
validator-set consensus round: leader proposal, validator commit/reveal,
appeals, and finalization.`,
		RunE: runNode,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "./data", "badger data directory")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", ":9090", "prometheus metrics listen address")

	rootCmd.AddCommand(statusCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runNode(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := setupLogger()
	log.Info("starting consensusd")

	if dir := viper.GetString("storage.data_dir"); dir != "" {
		dataDir = dir
	}

	store, err := txstore.New(&txstore.Config{DataDir: dataDir, SnapshotCacheSize: 256})
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	registry := txstore.NewStaticRegistry(loadValidators())
	executor := llmexec.NewPooled(viper.GetInt("executor.concurrency"))

	e := engine.New(store, registry, executor, log, prometheus.DefaultRegisterer)

	if addr := viper.GetString("monitoring.metrics.listen_addr"); addr != "" {
		metricsAddr = addr
	}
	go serveMetrics(metricsAddr, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("shutting down consensusd")
		cancel()
	}()

	e.Run(ctx)
	log.Info("consensusd stopped")
	return nil
}

func serveMetrics(addr string, log *logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.Info("metrics endpoint listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error("metrics server stopped: %v", err)
	}
}

func loadValidators() []consensus.Validator {
	raw := viper.Get("validators")
	entries, ok := raw.([]interface{})
	if !ok || len(entries) == 0 {
		return defaultValidatorPool()
	}
	out := make([]consensus.Validator, 0, len(entries))
	for _, e := range entries {
		m, ok := e.(map[string]interface{})
		if !ok {
			continue
		}
		addr, _ := m["address"].(string)
		llmConfig, _ := m["llm_config"].(string)
		if addr == "" {
			continue
		}
		out = append(out, consensus.Validator{Address: addr, Stake: 1, LLMConfig: llmConfig})
	}
	if len(out) == 0 {
		return defaultValidatorPool()
	}
	return out
}

func defaultValidatorPool() []consensus.Validator {
	pool := make([]consensus.Validator, 8)
	for i := range pool {
		pool[i] = consensus.Validator{Address: fmt.Sprintf("validator-%d", i), Stake: 1}
	}
	return pool
}

func loadConfig() error {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}
	return nil
}

func setupLogger() *logger.Logger {
	logLevel := logger.INFO
	switch strings.ToLower(viper.GetString("logging.level")) {
	case "debug":
		logLevel = logger.DEBUG
	case "warn":
		logLevel = logger.WARN
	case "error":
		logLevel = logger.ERROR
	}

	return logger.NewLogger(&logger.Config{
		Level:   logLevel,
		Prefix:  "consensusd",
		UseJSON: strings.ToLower(viper.GetString("logging.format")) == "json",
		LogFile: viper.GetString("logging.log_file"),
	})
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the effective admin configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(); err != nil {
				return err
			}
			if dir := viper.GetString("storage.data_dir"); dir != "" {
				dataDir = dir
			}
			cfg := engine.NewAdminConfig()
			fmt.Printf("finality window: %s (%s)\n", cfg.FinalityWindow(), humanize.RelTime(time.Now(), time.Now().Add(cfg.FinalityWindow()), "", ""))
			fmt.Printf("poll interval:   %s\n", cfg.PollInterval())
			fmt.Printf("validator ceiling: %d\n", cfg.ValidatorCeiling())
			fmt.Printf("data dir: %s\n", dataDir)
			return nil
		},
	}
}
