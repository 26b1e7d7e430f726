// Package main is the entry point for the calcfield server and tools.
package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lemonberrylabs/calcfield/pkg/api"
	grpcapi "github.com/lemonberrylabs/calcfield/pkg/api/grpc"
	"github.com/lemonberrylabs/calcfield/pkg/config"
	"github.com/lemonberrylabs/calcfield/pkg/store"
	"github.com/lemonberrylabs/calcfield/web"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "calcfield",
	Short: "Interactive arithmetic input field server",
	Long: "calcfield serves calculator sessions over REST, gRPC and a web UI.\n" +
		"Every keystroke is validated, tokenized and evaluated with operator precedence.",
	RunE:         run,
	SilenceUsage: true,
}

func init() {
	rootCmd.Version = version + " (commit=" + commit + ", built=" + date + ")"
	rootCmd.SetVersionTemplate("calcfield version {{.Version}}\n")

	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file (env CALCFIELD_CONFIG)")
	rootCmd.PersistentFlags().String("policy", "", "Arithmetic policy: strict or lenient (default strict, env CALC_POLICY)")

	rootCmd.Flags().Int("port", 0, "HTTP server port (default 8787, env PORT)")
	rootCmd.Flags().Int("grpc-port", 0, "gRPC server port (default 8788, env GRPC_PORT)")
	rootCmd.Flags().String("host", "", "Bind address (default 0.0.0.0, env HOST)")
	rootCmd.Flags().String("scripts-dir", "", "Directory of keystroke scripts to load (env SCRIPTS_DIR)")
	rootCmd.Flags().Bool("access-log", false, "Log every HTTP request")

	rootCmd.AddCommand(evalCmd, replayCmd, tuiCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig builds the configuration from file, environment and flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := envOrDefault("CALCFIELD_CONFIG", "")
	if v, _ := cmd.Flags().GetString("config"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}

	if v, _ := cmd.Flags().GetString("policy"); v != "" {
		cfg.Calculator.Policy = v
	}
	// Server flags only exist on the root command.
	if v, _ := cmd.Flags().GetInt("port"); v != 0 {
		cfg.Server.Port = v
	}
	if v, _ := cmd.Flags().GetInt("grpc-port"); v != 0 {
		cfg.Server.GRPCPort = v
	}
	if v, _ := cmd.Flags().GetString("host"); v != "" {
		cfg.Server.Host = v
	}
	if v, _ := cmd.Flags().GetString("scripts-dir"); v != "" {
		cfg.ScriptsDir = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	opts, err := cfg.SessionOptions()
	if err != nil {
		return err
	}

	s := store.New(opts)
	var apiOpts []api.Option
	if v, _ := cmd.Flags().GetBool("access-log"); v {
		apiOpts = append(apiOpts, api.WithAccessLog())
	}
	server := api.New(s, apiOpts...)

	// Load scripts from directory if specified
	if cfg.ScriptsDir != "" {
		if _, err := server.LoadScripts(cfg.ScriptsDir); err != nil {
			log.Printf("Warning: failed to load scripts directory: %v", err)
		}
	}

	// Register the web UI (non-fatal if template parsing fails)
	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("Warning: web UI disabled due to template error: %v", r)
			}
		}()
		ui := web.New(s, cfg.Calculator.ErrorFlash)
		ui.Register(server.App())
	}()

	// Start gRPC server
	grpcServer := grpcapi.New(s)
	go func() {
		log.Printf("gRPC server listening on %s", cfg.GRPCAddr())
		if err := grpcServer.Serve(cfg.GRPCAddr()); err != nil {
			log.Fatalf("gRPC server error: %v", err)
		}
	}()

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down calcfield...")
		grpcServer.GracefulStop()
		if err := server.Shutdown(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	}()

	log.Printf("calcfield listening on %s (policy=%s, errorIndicator=%q)", cfg.Addr(), opts.Policy, opts.ErrorIndicator)
	return server.Listen(cfg.Addr())
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
