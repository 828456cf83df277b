package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"voicetag/internal/evaluate"
	"voicetag/internal/segments"
)

func newEvaluateCommand(ctx *commandContext) *cobra.Command {
	var labelsPath string

	cmd := &cobra.Command{
		Use:   "evaluate <ground-truth.json>",
		Short: "Score pipeline output against human-labeled ground truth",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := segments.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			if labels := strings.TrimSpace(labelsPath); labels != "" {
				if err := store.ImportLabels(cmd.Context(), labels); err != nil {
					return err
				}
			}

			gt, err := evaluate.LoadGroundTruth(args[0])
			if err != nil {
				return err
			}

			records, err := store.ListSegments(cmd.Context())
			if err != nil {
				return err
			}
			predicted := make([]evaluate.Span, 0, len(records))
			for _, record := range records {
				if record.SpeakerID == "" {
					continue
				}
				predicted = append(predicted, evaluate.Span{
					Speaker: record.SpeakerID,
					Start:   record.StartTime,
					End:     record.EndTime,
				})
			}

			transcript := ""
			if data, err := os.ReadFile(cfg.TranscriptPath()); err == nil {
				transcript = string(data)
			}

			report := evaluate.Evaluate(gt, predicted, transcript)
			out := cmd.OutOrStdout()
			if report.DiarizationErrorRate != nil {
				fmt.Fprintf(out, "Diarization error rate: %.4f\n", *report.DiarizationErrorRate)
			}
			if report.WordErrorRate != nil {
				fmt.Fprintf(out, "Word error rate: %.4f\n", *report.WordErrorRate)
			}
			if report.DiarizationErrorRate == nil && report.WordErrorRate == nil {
				fmt.Fprintln(out, "Ground truth contains neither segments nor text; nothing to evaluate.")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&labelsPath, "labels", "", "Replace stored assignments with a corrected labels file before evaluating")
	return cmd
}
