package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"

	"github.com/finsight-ai/finsight/ai/assistant"
	"github.com/finsight-ai/finsight/ai/llm"
	"github.com/finsight-ai/finsight/ai/metadata"
	"github.com/finsight-ai/finsight/ai/metrics"
	"github.com/finsight-ai/finsight/ai/orchestrator"
	"github.com/finsight-ai/finsight/ai/queryengine"
	"github.com/finsight-ai/finsight/internal/profile"
	"github.com/finsight-ai/finsight/internal/version"
	"github.com/finsight-ai/finsight/server"
	apiv1 "github.com/finsight-ai/finsight/server/router/api/v1"
	"github.com/finsight-ai/finsight/store"
	"github.com/finsight-ai/finsight/store/db/sqlite"
)

var rootCmd = &cobra.Command{
	Use:   "finsight",
	Short: `A self-hosted AI assistant for your personal finances. Ask questions in plain language, get answers computed over your own data.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Try to load .env from the current directory (ignore error if absent).
		_ = godotenv.Load()
		return nil
	},
	Run: func(_ *cobra.Command, _ []string) {
		instanceProfile := &profile.Profile{
			Mode:    viper.GetString("mode"),
			Addr:    viper.GetString("addr"),
			Port:    viper.GetInt("port"),
			Data:    viper.GetString("data"),
			Driver:  viper.GetString("driver"),
			DSN:     viper.GetString("dsn"),
			Version: version.GetCurrentVersion(viper.GetString("mode")),
		}
		instanceProfile.FromEnv()
		if err := instanceProfile.Validate(); err != nil {
			panic(err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		dbDriver, err := sqlite.NewDB(instanceProfile)
		if err != nil {
			slog.Error("failed to create db driver", "error", err)
			return
		}

		storeInstance := store.New(dbDriver, instanceProfile)
		if err := storeInstance.Migrate(ctx); err != nil {
			slog.Error("failed to migrate", "error", err)
			return
		}
		if seed := viper.GetString("seed"); seed != "" {
			if err := storeInstance.ImportJSON(ctx, seed); err != nil {
				slog.Error("failed to import seed data", "error", err)
				return
			}
		}

		asst, exporter, notifications := buildAssistant(instanceProfile, storeInstance)

		s, err := server.NewServer(ctx, instanceProfile, storeInstance, asst, exporter, notifications)
		if err != nil {
			slog.Error("failed to create server", "error", err)
			return
		}

		c := make(chan os.Signal, 1)
		// Trigger graceful shutdown on SIGINT or SIGTERM.
		signal.Notify(c, terminationSignals...)

		if err := s.Start(ctx); err != nil {
			slog.Error("failed to start server", "error", err)
			return
		}

		printGreetings(instanceProfile)

		go func() {
			<-c
			s.Shutdown(ctx)
			cancel()
		}()

		<-ctx.Done()
	},
}

// buildAssistant wires the AI core: one adapter per known provider, the
// fallback orchestrator, metadata generator and query engine.
func buildAssistant(instanceProfile *profile.Profile, storeInstance *store.Store) (*assistant.Assistant, *metrics.Exporter, *apiv1.NotificationBuffer) {
	exporter := metrics.NewExporter(metrics.DefaultConfig())
	notifications := apiv1.NewNotificationBuffer(32)

	opts := llm.Options{
		MaxTokens:   instanceProfile.MaxTokens,
		Temperature: instanceProfile.Temperature,
		Timeout:     instanceProfile.LLMTimeout,
	}
	orchOpts := []orchestrator.Option{
		orchestrator.WithObserver(exporter),
		orchestrator.WithNotifier(notifications),
	}
	registry := make(map[string]llm.Adapter, len(instanceProfile.Providers))
	for id, cfg := range instanceProfile.Providers {
		registry[id] = llm.NewAdapter(cfg, opts)
		if cfg.RPS > 0 {
			orchOpts = append(orchOpts,
				orchestrator.WithRateLimiter(id, rate.NewLimiter(rate.Limit(cfg.RPS), 1)))
		}
	}

	orch := orchestrator.New(registry,
		func() []string { return instanceProfile.Priority },
		orchOpts...,
	)

	generator := metadata.NewGenerator(storeInstance, loadPromptAssets())

	engine, err := queryengine.NewEngine(storeInstance)
	if err != nil {
		panic(err)
	}

	return assistant.New(orch, generator, engine), exporter, notifications
}

// loadPromptAssets reads the optional YAML override for the query contract
// and worked examples, falling back to the compiled-in defaults.
func loadPromptAssets() *metadata.PromptAssets {
	path := viper.GetString("prompt-assets")
	if path == "" {
		return nil
	}
	assets, err := metadata.LoadPromptAssets(path)
	if err != nil {
		slog.Warn("failed to load prompt assets, using defaults", "path", path, "error", err)
		return nil
	}
	return assets
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("port", 28085)

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 28085, "port of server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver")
	rootCmd.PersistentFlags().String("dsn", "", "database source name (aka. DSN)")
	rootCmd.PersistentFlags().String("seed", "", "path to a JSON dataset seed file imported at startup")
	rootCmd.PersistentFlags().String("prompt-assets", "", "path to a YAML file overriding the query contract and examples")

	for _, flag := range []string{"mode", "addr", "port", "data", "driver", "dsn", "seed", "prompt-assets"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("finsight")
	viper.AutomaticEnv()
}

func printGreetings(instanceProfile *profile.Profile) {
	fmt.Printf("Finsight %s started successfully!\n", instanceProfile.Version)

	if instanceProfile.IsDev() {
		fmt.Fprint(os.Stderr, "Development mode is enabled\n")
		if instanceProfile.DSN != "" {
			fmt.Fprintf(os.Stderr, "Database: %s\n", instanceProfile.DSN)
		}
	}

	fmt.Printf("Data directory: %s\n", instanceProfile.Data)
	fmt.Printf("Mode: %s\n", instanceProfile.Mode)
	fmt.Printf("Provider priority: %v\n", instanceProfile.Priority)

	if len(instanceProfile.Addr) == 0 {
		fmt.Printf("Server running on port %d\n", instanceProfile.Port)
		fmt.Printf("Access finsight at: http://localhost:%d\n", instanceProfile.Port)
	} else {
		fmt.Printf("Server running on %s:%d\n", instanceProfile.Addr, instanceProfile.Port)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
