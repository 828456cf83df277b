package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"voicetag/internal/logging"
	"voicetag/internal/media"
	"voicetag/internal/pipeline"
	"voicetag/internal/segments"
	"voicetag/internal/services/transcriber"
	"voicetag/internal/services/verifier"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var force bool
	var rerender bool

	cmd := &cobra.Command{
		Use:   "run <recording>",
		Short: "Run the full attribution pipeline against a recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("initialize logging: %w", err)
			}

			store, err := segments.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			ffmpeg := media.NewRunner(cfg.FFmpegBinary())
			runner := pipeline.NewRunner(cfg, store, pipeline.Collaborators{
				Transcriber: transcriber.NewService(transcriber.Config{
					Binary:   cfg.Transcription.Binary,
					Model:    cfg.Transcription.Model,
					Language: cfg.Transcription.Language,
				}),
				Audio:      ffmpeg,
				Video:      ffmpeg,
				PairScorer: verifier.NewService(verifier.Config{Binary: cfg.Scoring.Binary}),
			}, logger)

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if rerender && !cfg.Render.Enabled {
				return fmt.Errorf("--rerender requires render.enabled in the configuration")
			}
			if !force && !rerender {
				done, err := runner.Completed(runCtx)
				if err != nil {
					return err
				}
				if done {
					fmt.Fprintln(cmd.OutOrStdout(), "Pipeline already complete; use --force to rerun.")
					return nil
				}
			}

			if err := runner.Run(runCtx, &pipeline.Run{Source: args[0], Force: force, Rerender: rerender}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pipeline complete. Speaker aggregates written to %s\n", cfg.SpeakerInfoPath())
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Rerun every stage even when already complete")
	cmd.Flags().BoolVar(&rerender, "rerender", false, "Rerun only the render stage on completed state")
	return cmd
}
