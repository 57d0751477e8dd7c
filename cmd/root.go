package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	configx "github.com/tanpawarit/sparkpath-gateway/pkg/config"
	logx "github.com/tanpawarit/sparkpath-gateway/pkg/logger"
)

var (
	envFile string
	debug   bool
	pretty  bool
	version = "dev"
)

var rootCmd = &cobra.Command{
	Use:   "sparkpath-gateway",
	Short: "SparkPath agent orchestration gateway",
	Long: `Routes career questions from SparkPath users to the master agent and its
specialists, keeps per-session history, archives portfolio assets and bridges
voice input and spoken replies.

  sparkpath-gateway serve                      # run the HTTP API
  sparkpath-gateway ask "what does a gaffer do?"
  sparkpath-gateway history <session-id>`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configx.SetEnvFile(envFile)

		logCfg, err := configx.New[logx.Config]("LOG")
		if err != nil {
			return err
		}
		if debug {
			logCfg.Debug = true
		}
		if pretty {
			logCfg.PrettyFormat = true
		}
		logx.InitWriter(cmd.ErrOrStderr(), *logCfg)
		return nil
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "env file to load before reading configuration (default ./.env if present)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&pretty, "pretty", false, "human readable console logs")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	rootCmd.AddCommand(serveCmd, askCmd, historyCmd, speakCmd, transcribeCmd)
}
