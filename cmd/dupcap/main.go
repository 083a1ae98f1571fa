package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/breeze-rmm/duplicator/internal/capture"
	"github.com/breeze-rmm/duplicator/internal/config"
	"github.com/breeze-rmm/duplicator/internal/logging"
)

var (
	version = "0.1.0"
	cfgFile string

	monitorFlag int
	noPreview   bool
)

var rootCmd = &cobra.Command{
	Use:   "dupcap",
	Short: "Dupcap display duplicator",
	Long:  `Dupcap - GPU display duplication with live preview for Windows`,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start capturing a monitor",
	Run: func(cmd *cobra.Command, args []string) {
		runCapture()
	},
}

var monitorsCmd = &cobra.Command{
	Use:   "monitors",
	Short: "List the available monitors",
	Run: func(cmd *cobra.Command, args []string) {
		listMonitors()
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Run: func(cmd *cobra.Command, args []string) {
		showConfig()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Run: func(cmd *cobra.Command, args []string) {
		initConfig()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Dupcap v%s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is dupcap.yaml in the system config dir)")

	runCmd.Flags().IntVar(&monitorFlag, "monitor", -1, "monitor index to capture (overrides config)")
	runCmd.Flags().BoolVar(&noPreview, "no-preview", false, "capture without a preview window")

	configCmd.AddCommand(configInitCmd)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(monitorsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() *config.Config {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	for _, verr := range cfg.Validate() {
		fmt.Fprintf(os.Stderr, "config: %v\n", verr)
	}
	return cfg
}

func runCapture() {
	cfg := loadConfig()
	if monitorFlag >= 0 {
		cfg.Monitor = monitorFlag
	}
	if noPreview {
		cfg.Preview = false
	}

	logging.Init(cfg.LogFormat, cfg.LogLevel, nil)
	log := logging.L("main")

	if info, err := host.Info(); err == nil {
		log.Info("starting dupcap", "version", version,
			"hostname", info.Hostname, "platform", info.Platform, "platformVersion", info.PlatformVersion)
	} else {
		log.Info("starting dupcap", "version", version)
	}

	// The D3D11 device, the duplication sessions and the preview windows all
	// live on this thread.
	runtime.LockOSThread()

	stack, err := capture.NewStack()
	if err != nil {
		log.Error("failed to initialize capture stack", logging.KeyError, err)
		os.Exit(1)
	}
	defer stack.Close()

	registry := capture.NewRegistry(stack.Device, stack.Provider, stack.Windows, cfg.Preview)

	session := registry.Acquire(cfg.Monitor)
	if session == nil {
		log.Error("cannot start capture", logging.KeyMonitor, cfg.Monitor)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(time.Duration(cfg.TickIntervalMs) * time.Millisecond)
	defer ticker.Stop()

	log.Info("capture loop running",
		logging.KeyMonitor, cfg.Monitor, "tickIntervalMs", cfg.TickIntervalMs, "preview", cfg.Preview)

	for {
		select {
		case <-sigChan:
			log.Info("shutting down")
			registry.Release(session)
			return
		case <-ticker.C:
			stack.Windows.PumpEvents()
			registry.ResetFreshness()

			if session.UpdateFrame() {
				continue
			}

			// Mode change or desktop switch invalidated the session. Tear it
			// down and duplicate the output again.
			registry.Release(session)
			session = registry.Acquire(cfg.Monitor)
			if session == nil {
				log.Error("failed to rebuild duplication session", logging.KeyMonitor, cfg.Monitor)
				return
			}
			log.Info("duplication session rebuilt", logging.KeyMonitor, cfg.Monitor)
		}
	}
}

func listMonitors() {
	runtime.LockOSThread()

	stack, err := capture.NewStack()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize capture stack: %v\n", err)
		os.Exit(1)
	}
	defer stack.Close()

	monitors, err := capture.ListMonitors(stack.Provider)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to enumerate monitors: %v\n", err)
		os.Exit(1)
	}

	out, err := json.MarshalIndent(monitors, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode monitor list: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}

func showConfig() {
	cfg := loadConfig()
	out, err := yaml.Marshal(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode config: %v\n", err)
		os.Exit(1)
	}
	fmt.Print(string(out))
}

func initConfig() {
	if err := config.SaveTo(config.Default(), cfgFile); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write config: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Default config written")
}
