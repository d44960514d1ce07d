package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/plantmeet/modelserve/internal/artifact"
	"github.com/plantmeet/modelserve/internal/config"
	"github.com/plantmeet/modelserve/internal/discovery"
	"github.com/plantmeet/modelserve/internal/server"
	"github.com/plantmeet/modelserve/internal/ui"
	"github.com/plantmeet/modelserve/internal/version"
)

// Serve command and flags
var (
	filePath     string
	artifactName string
	host         string
	port         int
	expectedSize int64
	reclaimPort  bool
	advertise    bool
	chunkSize    int
	logLevel     string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start serving the model file",
	Long: `Start the range-capable file server.

Before binding, the file is checked: it must exist, be non-empty and, when an
expected size is configured, have exactly that size. Unless --reclaim-port=false
is given, a stale process still listening on the port is terminated first so
repeated runs do not fail with "address already in use".`,
	Example: `  # Serve a model on the default port 8001
  modelserve serve --file ./assets/models/gemma-3n-E4B-it-int4.task

  # Verify the size and announce the server over mDNS
  modelserve serve --file ./gemma.task --expected-size 4405655031 --advertise

  # Serve under a different URL name on another port
  modelserve serve --file ./build/out.bin --name model.task --port 9000`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&filePath, "file", "f", "", "Path to the model file")
	serveCmd.Flags().StringVar(&artifactName, "name", "", "URL name of the file (default: its base name)")
	serveCmd.Flags().StringVar(&host, "host", "", "Listen address (default from config: 0.0.0.0)")
	serveCmd.Flags().IntVarP(&port, "port", "p", server.DefaultPort, "Listen port")
	serveCmd.Flags().Int64Var(&expectedSize, "expected-size", 0, "Required file size in bytes (0 = skip check)")
	serveCmd.Flags().BoolVar(&reclaimPort, "reclaim-port", true, "Terminate stale processes listening on the port")
	serveCmd.Flags().BoolVar(&advertise, "advertise", false, "Announce the server over mDNS")
	serveCmd.Flags().IntVar(&chunkSize, "chunk-size", server.DefaultChunkSize, "Transfer chunk size in bytes")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
}

// loadConfig reads the config file and applies any flags the user set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("file") {
		cfg.Artifact.Path = filePath
	}
	if flags.Changed("name") {
		cfg.Artifact.Name = artifactName
	}
	if flags.Changed("expected-size") {
		cfg.Artifact.ExpectedSize = expectedSize
	}
	if flags.Changed("host") {
		cfg.Host = host
	}
	if flags.Changed("port") {
		cfg.Port = port
	}
	if flags.Changed("reclaim-port") {
		cfg.ReclaimPort = reclaimPort
	}
	if flags.Changed("advertise") {
		cfg.Advertise = advertise
	}
	if flags.Changed("chunk-size") {
		cfg.ChunkSize = chunkSize
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Artifact.Path == "" {
		return nil, fmt.Errorf("no model file given: pass --file or set artifact.path in the config file")
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	srv, err := server.New(cfg.ServerConfig())
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	printer := ui.NewPrinter(os.Stdout)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case <-srv.Ready():
	case err := <-errCh:
		if server.IsType(err, server.ErrTypePreflight) && srv.Report() != nil {
			printer.PrintResult(ui.PreflightResult(srv.Report(), errors.Unwrap(err)))
			return fmt.Errorf("refusing to start: %s", srv.Report().Summary())
		}
		return err
	}

	printer.PrintBanner(serveBanner(srv, cfg))

	return <-errCh
}

func serveBanner(srv *server.Server, cfg *config.Config) *ui.Banner {
	a := srv.Artifact()
	local, lan := server.Endpoints(srv.Port())

	b := ui.NewBanner("Model server", "modelserve "+version.Version)
	b.AddURL("Local", local)
	b.AddURL("LAN", lan)
	b.AddURL("Model URL", a.URL(lan))
	b.Add("File", a.Path)
	if r := srv.Report(); r != nil {
		b.Add("Size", fmt.Sprintf("%s (%d bytes)", artifact.FormatSize(r.ActualSize), r.ActualSize))
	}
	if cfg.Advertise {
		b.Add("mDNS", discovery.ServiceType)
	}
	b.Add("App build", "flutter build apk --debug "+server.AppBuildFlag(lan))
	b.Hint = "Press Ctrl+C to stop"
	return b
}

// Check command

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check the model file without starting the server",
	Long: `Run the startup file check on its own: the file must exist, be non-empty
and match the expected size when one is configured. Exits non-zero on failure.`,
	Example: `  modelserve check --file ./gemma.task --expected-size 4405655031`,
	RunE:    runCheck,
}

func init() {
	checkCmd.Flags().StringVarP(&filePath, "file", "f", "", "Path to the model file")
	checkCmd.Flags().Int64Var(&expectedSize, "expected-size", 0, "Required file size in bytes (0 = skip check)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	report, err := artifact.Validate(cfg.Artifact.Path, cfg.Artifact.ExpectedSize)
	ui.NewPrinter(os.Stdout).PrintResult(ui.PreflightResult(report, err))
	return err
}

// Discover command
var scanTimeout time.Duration

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "List modelserve instances on the local network",
	Long: `Browse mDNS for servers started with --advertise and print their URLs.`,
	Example: `  modelserve discover
  modelserve discover --timeout 10s`,
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().DurationVar(&scanTimeout, "timeout", discovery.DefaultScanTimeout, "How long to listen for answers")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	fmt.Printf("Scanning for model servers (timeout: %s)...\n\n", scanTimeout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scanner := &discovery.Scanner{Timeout: scanTimeout}
	endpoints, err := scanner.Scan(ctx)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(endpoints) == 0 {
		fmt.Println("No servers found.")
		fmt.Println("\nTroubleshooting:")
		fmt.Println("  - Start the server with --advertise")
		fmt.Println("  - Make sure both machines are on the same network segment")
		fmt.Println("  - Allow UDP port 5353 through the firewall")
		return nil
	}

	fmt.Printf("Found %d server(s):\n\n", len(endpoints))
	for i, ep := range endpoints {
		fmt.Printf("%d. %s\n", i+1, ep.Instance)
		fmt.Printf("   URL:     %s\n", ep.URL())
		if ep.Size > 0 {
			fmt.Printf("   Size:    %s (%d bytes)\n", artifact.FormatSize(ep.Size), ep.Size)
		}
		if ep.Version != "" {
			fmt.Printf("   Version: %s\n", ep.Version)
		}
		fmt.Println()
	}

	fmt.Println("Use 'modelfetch <url>' to download a model")
	return nil
}

// Config commands
var forceInit bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with default values",
	Example: `  modelserve config init
  modelserve config init --file ./gemma.task --expected-size 4405655031`,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE:  runConfigShow,
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)

	configInitCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing file")
	configInitCmd.Flags().StringVarP(&filePath, "file", "f", "", "Path to the model file")
	configInitCmd.Flags().Int64Var(&expectedSize, "expected-size", 0, "Required file size in bytes (0 = skip check)")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		p, err := config.GetConfigPath()
		if err != nil {
			return err
		}
		path = p
	}

	if _, err := os.Stat(path); err == nil && !forceInit {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	cfg := config.Default()
	cfg.Artifact.Path = filePath
	cfg.Artifact.ExpectedSize = expectedSize

	if err := cfg.Save(path); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	fmt.Print(string(data))
	return nil
}
