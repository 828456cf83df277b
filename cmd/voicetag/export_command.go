package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"voicetag/internal/segments"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export segment labels as JSON",
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

			target := strings.TrimSpace(outPath)
			if target == "" {
				target = filepath.Join(cfg.Paths.WorkDir, "labels.json")
			}
			if err := store.ExportLabels(cmd.Context(), target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote labels to %s\n", target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Destination file (default <work_dir>/labels.json)")
	return cmd
}
