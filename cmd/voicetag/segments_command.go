package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"voicetag/internal/segments"
)

const segmentTextPreview = 60

func newSegmentsCommand(ctx *commandContext) *cobra.Command {
	var unassignedOnly bool

	cmd := &cobra.Command{
		Use:   "segments",
		Short: "List transcript segments and their speaker assignments",
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

			records, err := store.ListSegments(cmd.Context())
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(records))
			for _, record := range records {
				if unassignedOnly && record.SpeakerID != "" {
					continue
				}
				speaker := record.SpeakerID
				if speaker == "" {
					speaker = "-"
				}
				text := record.Text
				if len(text) > segmentTextPreview {
					text = text[:segmentTextPreview-3] + "..."
				}
				rows = append(rows, []string{
					strconv.FormatInt(record.ID, 10),
					fmt.Sprintf("%.2f", record.StartTime),
					fmt.Sprintf("%.2f", record.EndTime),
					speaker,
					text,
				})
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Start", "End", "Speaker", "Text"},
				rows,
				[]columnAlignment{alignRight, alignRight, alignRight, alignLeft, alignLeft}))
			return nil
		},
	}

	cmd.Flags().BoolVar(&unassignedOnly, "unassigned", false, "Only show segments without a speaker")
	return cmd
}
