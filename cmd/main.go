package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"pipernest/internal/cli/scheme/colours"
	"pipernest/internal/config"
	"pipernest/internal/mcpserver"
	"pipernest/internal/nest"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "dev"

func main() {
	// Stdout belongs to command output and, when serving, to MCP framing.
	logrus.SetOutput(os.Stderr)

	// SIGINT/SIGTERM cancel whatever download or subprocess is running.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := nest.NewApp()

	var (
		cfgFile string
		verbose bool
	)

	rootCmd := &cobra.Command{
		Use:   "pipernest",
		Short: "🐦 A local home for the piper voice engine",
		Long: `
┌─────────────────────────────────────┐
│  🐦 pipernest                       │
│  Local text-to-speech with piper    │
└─────────────────────────────────────┘

pipernest installs the piper engine, downloads a voice and speaks text
aloud. Run it as an MCP server to give an agent a voice.
		`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Init(cfgFile); err != nil {
				return fmt.Errorf("failed to read settings: %w", err)
			}
			return configureLogging(verbose)
		},
		Run: app.ShowWelcome,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Settings file (default $HOME/.pipernest/settings.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("home", "", "Directory for binaries, voices and state")
	rootCmd.PersistentFlags().String("locale", "", "Voice locale prefix, e.g. en_GB")
	_ = viper.BindPFlag("home", rootCmd.PersistentFlags().Lookup("home"))
	_ = viper.BindPFlag("voice.locale", rootCmd.PersistentFlags().Lookup("locale"))

	setupCmd := &cobra.Command{
		Use:   "setup",
		Short: "🔧 Install piper and choose a voice",
		Long:  "Find or download the piper binary, then download a voice if none is selected",
		Args:  cobra.NoArgs,
		RunE:  app.Setup,
	}

	sayCmd := &cobra.Command{
		Use:   "say [text...]",
		Short: "🔊 Speak text aloud",
		Long:  "Synthesize the text with the selected voice and play it. Reads stdin when no text is given",
		RunE:  app.Say,
	}

	voicesCmd := &cobra.Command{
		Use:   "voices",
		Short: "📋 List available voices",
		Long:  "Fetch the voice catalogue for the configured locale, best quality first",
		Args:  cobra.NoArgs,
		RunE:  app.ListVoices,
	}

	voiceCmd := &cobra.Command{
		Use:   "voice [number|key|name]",
		Short: "🎙️ Switch voice",
		Long:  "Select a voice by list number, full key or part of its name. Prompts when no voice is given",
		RunE:  app.ChangeVoice,
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "📊 Show installed binary and voice",
		Args:  cobra.NoArgs,
		RunE:  app.ShowStatus,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "🤖 Run as an MCP server on stdio",
		Long:  "Expose speak, list_voices, select_voice and status as MCP tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), app)
		},
	}

	// Add flags
	voicesCmd.Flags().BoolP("downloaded", "d", false, "Only show downloaded voices")
	serveCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9464")
	_ = viper.BindPFlag("metrics.addr", serveCmd.Flags().Lookup("metrics-addr"))

	rootCmd.AddCommand(setupCmd, sayCmd, voicesCmd, voiceCmd, statusCmd, serveCmd)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Println("\n" + colours.Warning.Sprint("👋 Interrupted"))
			os.Exit(130)
		}
		colours.Error.Printf("❌ Error: %v\n", err)
		os.Exit(1)
	}
}

func configureLogging(verbose bool) error {
	level, err := logrus.ParseLevel(viper.GetString("log.level"))
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	if verbose {
		level = logrus.DebugLevel
	}
	logrus.SetLevel(level)
	return nil
}

// serve provisions up front, then answers MCP requests until the client
// disconnects. Provisioning failures are logged; tool calls retry them.
func serve(ctx context.Context, app *nest.App) error {
	n, err := app.Nest(false)
	if err != nil {
		return err
	}

	if addr := viper.GetString("metrics.addr"); addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", n.Metrics().Handler())
		srv := &http.Server{Addr: addr, Handler: mux}

		go func() {
			logrus.WithField("addr", addr).Info("Serving metrics")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logrus.WithError(err).Error("Metrics server stopped")
			}
		}()
		defer srv.Close()
	}

	if err := n.Provision(ctx); err != nil {
		logrus.WithError(err).Warn("Provisioning failed, will retry on first use")
	}

	return mcpserver.Run(ctx, n, version)
}
