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

	"github.com/wellspring-io/wellspring/ai"
	"github.com/wellspring-io/wellspring/engine"
	"github.com/wellspring-io/wellspring/internal/profile"
	"github.com/wellspring-io/wellspring/internal/version"
	"github.com/wellspring-io/wellspring/metrics"
	"github.com/wellspring-io/wellspring/server"
	"github.com/wellspring-io/wellspring/store"
	"github.com/wellspring-io/wellspring/store/db"
)

var rootCmd = &cobra.Command{
	Use:   "wellspring",
	Short: "Adaptive behavior-learning and recommendation service for the Wellspring wellness app.",
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		// Ignore a missing .env; environment variables still apply.
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
			slog.Error("invalid profile", "error", err)
			os.Exit(1)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		dbDriver, err := db.NewDBDriver(instanceProfile)
		if err != nil {
			slog.Error("failed to create db driver", "error", err)
			os.Exit(1)
		}

		storeInstance := store.New(dbDriver, instanceProfile)
		if err := storeInstance.Migrate(ctx); err != nil {
			slog.Error("failed to migrate", "error", err)
			os.Exit(1)
		}

		var provider engine.SuggestionProvider
		if instanceProfile.IsAIEnabled() {
			p, err := ai.NewProvider(&ai.Config{
				BaseURL:           instanceProfile.AIBaseURL,
				APIKey:            instanceProfile.AIAPIKey,
				ChatModel:         instanceProfile.AIModel,
				MaxRetries:        instanceProfile.AIMaxRetries,
				RequestsPerMinute: int(instanceProfile.AIRateLimit * 60),
			})
			if err != nil {
				slog.Error("failed to create suggestion provider", "error", err)
				os.Exit(1)
			}
			provider = p
			slog.Info("suggestion provider enabled", "model", instanceProfile.AIModel)
		} else {
			slog.Info("suggestion provider disabled, running rule-based only")
		}

		exporter := metrics.NewExporter(nil)
		s := server.NewServer(instanceProfile, storeInstance, provider, exporter)

		c := make(chan os.Signal, 1)
		// SIGTERM is the graceful shutdown signal used by most
		// supervisors, eg. Kubernetes.
		signal.Notify(c, terminationSignals...)

		go func() {
			<-c
			s.Shutdown(ctx)
			cancel()
		}()

		printGreetings(instanceProfile)
		if err := s.Start(ctx); err != nil {
			slog.Error("failed to start server", "error", err)
			cancel()
		}
		<-ctx.Done()
	},
}

func init() {
	viper.SetDefault("mode", "demo")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("port", 8230)

	rootCmd.PersistentFlags().String("mode", "demo", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 8230, "port of server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver (sqlite, postgres)")
	rootCmd.PersistentFlags().String("dsn", "", "database source name (aka. DSN)")

	for _, flag := range []string{"mode", "addr", "port", "data", "driver", "dsn"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}
	viper.SetEnvPrefix("wellspring")
	viper.AutomaticEnv()
}

func printGreetings(p *profile.Profile) {
	fmt.Printf("wellspring %s, mode %s, driver %s\n", p.Version, p.Mode, p.Driver)
	fmt.Printf("listening on %s:%d\n", p.Addr, p.Port)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("failed to execute command", "error", err)
		os.Exit(1)
	}
}
