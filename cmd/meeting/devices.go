package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/dkeye/meet/internal/adapters/devices"
)

func devicesCommand() *cobra.Command {
	var audioIn, audioOut, videoIn string
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "Show or update the preferred devices",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store := devices.NewStore(cfg.DevicesFile)
			sel, err := store.Selection(cmd.Context())
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			changed := false
			if flags.Changed("audio-input") {
				sel.AudioInput, changed = audioIn, true
			}
			if flags.Changed("audio-output") {
				sel.AudioOutput, changed = audioOut, true
			}
			if flags.Changed("video-input") {
				sel.VideoInput, changed = videoIn, true
			}
			if changed {
				if err := store.Save(sel); err != nil {
					return err
				}
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(sel)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&audioIn, "audio-input", "", "microphone device id")
	flags.StringVar(&audioOut, "audio-output", "", "speaker device id")
	flags.StringVar(&videoIn, "video-input", "", "camera device id")
	return cmd
}
