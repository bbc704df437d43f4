// Package main provides the entry point for the audio sender.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/Raikerian/go-audio-sender/internal/app"
	"github.com/Raikerian/go-audio-sender/internal/capture"
	"github.com/Raikerian/go-audio-sender/internal/config"
	"github.com/Raikerian/go-audio-sender/internal/device"
	"github.com/Raikerian/go-audio-sender/internal/infrastructure"
	"github.com/Raikerian/go-audio-sender/internal/observe"
	"github.com/Raikerian/go-audio-sender/internal/pipeline"
	"github.com/Raikerian/go-audio-sender/internal/sender"
)

const (
	startTimeout    = 30 * time.Second
	shutdownTimeout = 30 * time.Second
)

var (
	version = "0.1.0"
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "audio-sender",
	Short: "Stream microphone audio to a server over TCP or UDP",
	Long: `audio-sender captures audio from an input device and streams the raw samples
as little-endian float32 frames, one frame per capture buffer, to a TCP or UDP server.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runSender,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start streaming (default)",
	RunE:  runSender,
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio input devices",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listDevices(cmd.OutOrStdout())
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		out, err := cfg.YAML()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "audio-sender v%s\n", version)
	},
}

func init() {
	registerFlags(rootCmd)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// registerFlags adds the configuration flags shared by all commands.
func registerFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "audio-sender.yaml", "config file (missing file uses defaults)")
	config.RegisterFlags(flags)
}

// exitError carries a non-zero exit code that has already been reported.
type exitError struct {
	code int
}

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exit exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig layers defaults, the config file, environment and flags, then validates.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runSender(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	application := app.New(
		// Core modules
		config.Module(cfg),
		infrastructure.LoggerModule,
		observe.Module,

		// Audio and network modules
		device.Module,
		capture.Module,
		sender.Module,
		pipeline.Module,

		// Configure Fx to use our Zap logger for its own internal logging
		fx.WithLogger(infrastructure.NewFxLoggerAdapter),
	)
	if err := application.Err(); err != nil {
		return err
	}

	startCtx, cancel := context.WithTimeout(context.Background(), startTimeout)
	err = application.Start(startCtx)
	cancel()
	if err != nil {
		return err
	}

	// Blocks until SIGINT/SIGTERM or a fatal session error.
	sig := <-application.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	err = application.Stop(shutdownCtx)
	cancel()

	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if sig.ExitCode != 0 {
		return exitError{code: sig.ExitCode}
	}
	return nil
}

func listDevices(w io.Writer) error {
	host := device.NewPortAudioHost()
	if err := host.Open(); err != nil {
		return err
	}
	defer host.Close()

	devices, err := device.NewResolver(host).List()
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		fmt.Fprintln(w, "No input devices found.")
		return nil
	}

	return printDevices(w, devices)
}

func printDevices(w io.Writer, devices []device.Device) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tDEFAULT\tNAME\tHOST API\tSAMPLE RATE\tCHANNELS\tFORMAT")
	for i, d := range devices {
		mark := ""
		if d.IsDefault {
			mark = "*"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.0f Hz\t%d\t%s\n",
			i, mark, d.Name, d.HostAPI, d.DefaultSampleRate, d.MaxInputChannels, d.DefaultSampleFormat)
	}
	return tw.Flush()
}
