package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/polyglot/internal/profile"
	"github.com/hrygo/polyglot/internal/version"
	"github.com/hrygo/polyglot/server"
	"github.com/hrygo/polyglot/store"
	"github.com/hrygo/polyglot/store/db"
)

var (
	rootCmd = &cobra.Command{
		Use:   "polyglot",
		Short: `A conversational language tutor. Chat with an AI partner that corrects you gently and keeps you practicing.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Systemd units supply their environment through EnvironmentFile.
			if !isRunningAsSystemdService() {
				_ = godotenv.Load()
			}
			return nil
		},
		Run: serve,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (the default command)",
		Run:   serve,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Println(version.StringFull())
		},
	}
)

func serve(_ *cobra.Command, _ []string) {
	instanceProfile, err := loadProfile()
	if err != nil {
		panic(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	storeInstance, err := openStore(ctx, instanceProfile)
	if err != nil {
		cancel()
		return
	}

	s, err := server.NewServer(ctx, instanceProfile, storeInstance)
	if err != nil {
		cancel()
		slog.Error("failed to create server", "error", err)
		return
	}

	c := make(chan os.Signal, 1)
	// SIGTERM is what kill, systemd and kubernetes send for a graceful stop.
	signal.Notify(c, terminationSignals...)

	if err := s.Start(ctx); err != nil {
		if !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to start server", "error", err)
			cancel()
		}
	}

	printGreetings(instanceProfile)

	go func() {
		<-c
		s.Shutdown(ctx)
		cancel()
	}()

	// Wait for CTRL-C.
	<-ctx.Done()
}

// flagKeys are the persistent flags mirrored into viper.
var flagKeys = []string{
	"mode", "addr", "port", "data", "driver", "dsn",
	"llm-provider", "llm-model", "llm-base-url", "llm-timeout",
	"memory-preset", "cache-capacity", "messages-per-session", "lock-strategy",
	"level", "exercise-cadence", "min-sentences", "max-sentences", "phrasebook",
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("port", 28090)

	flags := rootCmd.PersistentFlags()
	flags.String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	flags.String("addr", "", "address of server")
	flags.Int("port", 28090, "port of server")
	flags.String("data", "", "data directory")
	flags.String("driver", "sqlite", "database driver (sqlite, postgres, redis)")
	flags.String("dsn", "", "database source name(aka. DSN)")

	flags.String("llm-provider", "", "LLM provider (deepseek, openai, siliconflow, zai, dashscope, openrouter, ollama)")
	flags.String("llm-model", "", "chat model, defaults per provider")
	flags.String("llm-base-url", "", "OpenAI-compatible base URL, defaults per provider")
	flags.Int("llm-timeout", 0, "LLM request timeout in seconds")

	flags.String("memory-preset", "", "session memory preset (default, development, production, testing)")
	flags.Int("cache-capacity", 0, "maximum cached sessions, overrides the preset")
	flags.Int("messages-per-session", 0, "cached messages per session, overrides the preset")
	flags.String("lock-strategy", "", `session memory locking, "global" or "keyed"`)

	flags.String("level", "", "default CEFR level for new sessions")
	flags.Int("exercise-cadence", 0, "user turns between micro exercises")
	flags.Int("min-sentences", 0, "minimum sentences per reply")
	flags.Int("max-sentences", 0, "maximum sentences per reply")
	flags.String("phrasebook", "", "YAML file replacing the built-in phrasebook")

	for _, key := range flagKeys {
		if err := viper.BindPFlag(key, flags.Lookup(key)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("polyglot")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if err := viper.BindEnv("llm-api-key", "POLYGLOT_LLM_API_KEY"); err != nil {
		panic(err)
	}

	rootCmd.AddCommand(serveCmd, chatCmd, versionCmd)
}

func loadProfile() (*profile.Profile, error) {
	instanceProfile := &profile.Profile{
		LLMProvider:        viper.GetString("llm-provider"),
		LLMAPIKey:          viper.GetString("llm-api-key"),
		LLMBaseURL:         viper.GetString("llm-base-url"),
		LLMModel:           viper.GetString("llm-model"),
		LLMTimeout:         viper.GetInt("llm-timeout"),
		MemoryPreset:       viper.GetString("memory-preset"),
		CacheCapacity:      viper.GetInt("cache-capacity"),
		MessagesPerSession: viper.GetInt("messages-per-session"),
		LockStrategy:       viper.GetString("lock-strategy"),
		DefaultLevel:       viper.GetString("level"),
		ExerciseCadence:    viper.GetInt("exercise-cadence"),
		MinSentences:       viper.GetInt("min-sentences"),
		MaxSentences:       viper.GetInt("max-sentences"),
		PhrasebookPath:     viper.GetString("phrasebook"),
		Mode:               viper.GetString("mode"),
		Addr:               viper.GetString("addr"),
		Port:               viper.GetInt("port"),
		Data:               viper.GetString("data"),
		Driver:             viper.GetString("driver"),
		DSN:                viper.GetString("dsn"),
		Version:            version.String(),
	}
	instanceProfile.FromEnv()
	if err := instanceProfile.Validate(); err != nil {
		return nil, err
	}
	return instanceProfile, nil
}

func openStore(ctx context.Context, instanceProfile *profile.Profile) (*store.Store, error) {
	dbDriver, err := db.NewDBDriver(instanceProfile)
	if err != nil {
		printDatabaseError(err, instanceProfile)
		slog.Error("failed to create db driver", "error", err)
		return nil, err
	}

	storeInstance := store.New(dbDriver, instanceProfile)
	if err := storeInstance.Migrate(ctx); err != nil {
		slog.Error("failed to migrate", "error", err)
		_ = storeInstance.Close()
		return nil, err
	}
	return storeInstance, nil
}

func printGreetings(profile *profile.Profile) {
	fmt.Printf("Polyglot %s started successfully!\n", profile.Version)

	if profile.IsDev() {
		fmt.Fprint(os.Stderr, "Development mode is enabled\n")
		if profile.DSN != "" {
			fmt.Fprintf(os.Stderr, "Database: %s\n", profile.DSN)
		}
	}

	fmt.Printf("Data directory: %s\n", profile.Data)
	fmt.Printf("Database driver: %s\n", profile.Driver)
	fmt.Printf("Mode: %s\n", profile.Mode)
	if profile.IsAIEnabled() {
		fmt.Printf("LLM provider: %s\n", profile.LLMProvider)
	} else {
		fmt.Println("LLM provider: none (canned replies)")
	}

	if len(profile.Addr) == 0 {
		fmt.Printf("Server running on port %d\n", profile.Port)
		fmt.Printf("API available at: http://localhost:%d/api/v1\n", profile.Port)
	} else {
		fmt.Printf("Server running on %s:%d\n", profile.Addr, profile.Port)
		fmt.Printf("API available at: http://%s:%d/api/v1\n", profile.Addr, profile.Port)
	}

	fmt.Println("\nHappy practicing!")
}

// isRunningAsSystemdService detects if the process is running under systemd
func isRunningAsSystemdService() bool {
	return os.Getenv("INVOCATION_ID") != "" || os.Getenv("WATCHDOG_USEC") != ""
}

// printDatabaseError provides user-friendly error messages for database connection issues
func printDatabaseError(err error, profile *profile.Profile) {
	fmt.Fprintln(os.Stderr, "\nDatabase connection failed")
	fmt.Fprintln(os.Stderr, strings.Repeat("-", 40))

	errMsg := err.Error()
	switch {
	case strings.Contains(errMsg, "connection refused") || strings.Contains(errMsg, "no such host"):
		fmt.Fprintf(os.Stderr, "\n%s is not reachable at the configured DSN.\n", profile.Driver)
		fmt.Fprintf(os.Stderr, "\n   Or use SQLite for local practice:\n")
		fmt.Fprintf(os.Stderr, "   - Set: POLYGLOT_DRIVER=sqlite\n")
		fmt.Fprintf(os.Stderr, "   - Or:  ./polyglot --driver=sqlite --data=./data\n")

	case strings.Contains(errMsg, "SSL is not enabled") || strings.Contains(errMsg, "sslmode"):
		fmt.Fprintln(os.Stderr, "\nPostgreSQL SSL configuration mismatch.")
		fmt.Fprintf(os.Stderr, "\n   Add ?sslmode=disable to your DSN.\n")

	case strings.Contains(errMsg, "password authentication failed") || strings.Contains(errMsg, "WRONGPASS") || strings.Contains(errMsg, "NOAUTH"):
		fmt.Fprintln(os.Stderr, "\nAuthentication failed.")
		fmt.Fprintf(os.Stderr, "\n   Check your credentials in the DSN or .env file.\n")

	default:
		fmt.Fprintln(os.Stderr, "\nError:", errMsg)
	}

	if _, statErr := os.Stat(".env"); statErr == nil {
		fmt.Fprintf(os.Stderr, "\nFound .env file, configuration loaded from current directory.\n")
	} else {
		fmt.Fprintf(os.Stderr, "\nTip: create a .env file for local configuration.\n")
	}
	fmt.Fprintln(os.Stderr, strings.Repeat("-", 40))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		panic(err)
	}
}
