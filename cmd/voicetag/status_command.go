package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"voicetag/internal/segments"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show stage completion and speaker state",
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

			markers, err := store.StageMarkers(cmd.Context())
			if err != nil {
				return err
			}
			stageRows := make([][]string, 0, len(markers))
			for _, stage := range []string{"transcribe", "match", "score", "aggregate", "render"} {
				completedAt, done := markers[stage]
				state := "pending"
				if done {
					state = "done"
				}
				stageRows = append(stageRows, []string{stage, state, completedAt})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Stage", "State", "Completed"},
				stageRows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft}))

			speakers, err := store.ListSpeakers(cmd.Context())
			if err != nil {
				return err
			}
			speakerRows := make([][]string, 0, len(speakers))
			for _, speaker := range speakers {
				reference := "none"
				if len(speaker.ReferenceSegments) > 0 {
					ids := make([]string, 0, len(speaker.ReferenceSegments))
					for _, id := range speaker.ReferenceSegments {
						ids = append(ids, strconv.FormatInt(id, 10))
					}
					reference = strings.Join(ids, ",")
				}
				sample := speaker.SamplePath
				if sample == "" {
					sample = "excluded"
				}
				speakerRows = append(speakerRows, []string{speaker.ID, reference, sample})
			}
			if len(speakerRows) > 0 {
				fmt.Fprintln(out, renderTable(
					[]string{"Speaker", "Reference Segments", "Sample"},
					speakerRows,
					[]columnAlignment{alignLeft, alignRight, alignLeft}))
			}
			return nil
		},
	}
}
