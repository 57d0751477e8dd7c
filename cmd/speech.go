package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var speakOut string

var speakCmd = &cobra.Command{
	Use:   "speak <text...>",
	Short: "Synthesize text to an mp3 file",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := log.Logger.WithContext(cmd.Context())
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		audio, err := a.gw.SynthesizeSpeech(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		if err := os.WriteFile(speakOut, audio, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", speakOut, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bytes to %s\n", len(audio), speakOut)
		return nil
	},
}

var transcribeCmd = &cobra.Command{
	Use:   "transcribe <audio-file>",
	Short: "Transcribe a recording to text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		audio, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}

		ctx := log.Logger.WithContext(cmd.Context())
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close(ctx)

		text, err := a.gw.TranscribeAudio(ctx, audio)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	},
}

func init() {
	speakCmd.Flags().StringVarP(&speakOut, "out", "o", "reply.mp3", "output file")
}
