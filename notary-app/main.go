package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/docuchain/notary/log"
	"github.com/docuchain/notary/notary-app/config"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "notary",
		Short: "Notary",
		Long:  banner + "\n\nA blockchain document-notarization service: hash, anchor, verify.",
		RunE:  runApp,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run:   runVersion,
	}

	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE:  runConfig,
	}
)

const banner = `
███╗   ██╗ ██████╗ ████████╗ █████╗ ██████╗ ██╗   ██╗
████╗  ██║██╔═══██╗╚══██╔══╝██╔══██╗██╔══██╗╚██╗ ██╔╝
██╔██╗ ██║██║   ██║   ██║   ███████║██████╔╝ ╚████╔╝
██║╚██╗██║██║   ██║   ██║   ██╔══██║██╔══██╗  ╚██╔╝
██║ ╚████║╚██████╔╝   ██║   ██║  ██║██║  ██║   ██║
╚═╝  ╚═══╝ ╚═════╝    ╚═╝   ╚═╝  ╚═╝╚═╝  ╚═╝   ╚═╝`

func main() {
	if err := execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func execute() error {
	initCommands()
	return rootCmd.Execute()
}

func initCommands() {
	cobra.OnInitialize(initConfig)

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config",
		"notary-app/configs/config.yaml", "config file path")
	rootCmd.PersistentFlags().String("log-level", "", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-pretty", false, "enable pretty logging")

	// API server flags
	rootCmd.PersistentFlags().String("listen-addr", "", "API server listen address")

	// Metrics flags
	rootCmd.PersistentFlags().Bool("metrics", false, "enable metrics")

	// Chain flags
	rootCmd.PersistentFlags().String("chain.rpc-endpoint", "", "EVM node RPC endpoint")
	rootCmd.PersistentFlags().Uint64("chain.chain-id", 0, "EVM chain id")
	rootCmd.PersistentFlags().String("notary.registry-contract", "", "notary registry contract address")

	// Store flags
	rootCmd.PersistentFlags().String("store.path", "", "path to the SQLite database file")
}

func initConfig() {
	if cfgFile == "" {
		cfgFile = "notary-app/configs/config.yaml"
	}
}

func runApp(cmd *cobra.Command, _ []string) error {
	fmt.Println(banner)
	fmt.Println()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	applyFlags(cmd, cfg)

	log := log.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Str("go_version", runtime.Version()).
		Msg("Build information")

	log.Info().
		Str("config_file", cfgFile).
		Str("listen_addr", cfg.API.ListenAddr).
		Uint64("chain_id", cfg.Chain.ChainID).
		Bool("chain_configured", cfg.Chain.RPCEndpoint != "").
		Bool("metrics_enabled", cfg.Metrics.Enabled).
		Str("log_level", cfg.Log.Level).
		Msg("Configuration loaded")

	application, err := NewApp(cmd.Context(), cfg, log.Logger)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	return application.Run(cmd.Context())
}

// runConfig renders the merged file, env and flag configuration. The
// signing key is redacted.
func runConfig(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyFlags(cmd, cfg)

	if cfg.Chain.PrivateKey != "" {
		cfg.Chain.PrivateKey = "[redacted]"
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}
	fmt.Printf("# %s\n%s", cfgFile, out)
	return nil
}

func runVersion(*cobra.Command, []string) {
	fmt.Println(banner)
	fmt.Println()
	fmt.Printf("Notary\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Time: %s\n", BuildTime)
	fmt.Printf("Git Commit: %s\n", GitCommit)
	fmt.Printf("Go Version: %s\n", runtime.Version())
	fmt.Printf("OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flag("log-level").Changed {
		cfg.Log.Level, _ = cmd.Flags().GetString("log-level")
	}
	if cmd.Flag("log-pretty").Changed {
		cfg.Log.Pretty, _ = cmd.Flags().GetBool("log-pretty")
	}

	if cmd.Flag("listen-addr").Changed {
		cfg.API.ListenAddr, _ = cmd.Flags().GetString("listen-addr")
	}

	if cmd.Flag("metrics").Changed {
		cfg.Metrics.Enabled, _ = cmd.Flags().GetBool("metrics")
	}

	if cmd.Flag("chain.rpc-endpoint").Changed {
		cfg.Chain.RPCEndpoint, _ = cmd.Flags().GetString("chain.rpc-endpoint")
	}
	if cmd.Flag("chain.chain-id").Changed {
		if v, err := cmd.Flags().GetUint64("chain.chain-id"); err == nil {
			cfg.Chain.ChainID = v
		}
	}
	if cmd.Flag("notary.registry-contract").Changed {
		cfg.Notary.RegistryContract, _ = cmd.Flags().GetString("notary.registry-contract")
	}

	if cmd.Flag("store.path").Changed {
		cfg.Store.Path, _ = cmd.Flags().GetString("store.path")
	}
}
