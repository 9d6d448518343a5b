package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/voicebot-cli/internal/model"
)

var voicesOutput string

var voicesCmd = &cobra.Command{
	Use:   "voices",
	Short: "List the voices available to the ElevenLabs account",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("voices"); err != nil {
			return err
		}

		list, err := newVoiceCache(newElevenLabs()).Voices(cmd.Context())
		if err != nil {
			return err
		}

		if voicesOutput == "table" {
			formatVoices(os.Stdout, list)
			return nil
		}
		return writeOutput(os.Stdout, voicesOutput, list)
	},
}

// formatVoices writes a tabular voice list to w.
func formatVoices(out io.Writer, list []model.Voice) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tVOICE_ID\tCATEGORY")
	for _, v := range list {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", v.Name, v.ID, v.Category)
	}
	_ = w.Flush()
}

func init() {
	voicesCmd.Flags().StringVarP(&voicesOutput, "output", "o", "table", "output format: table, json or yaml")
	rootCmd.AddCommand(voicesCmd)
}
