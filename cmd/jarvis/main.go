// Jarvis is a voice and text command router for a personal assistant. It
// classifies an utterance, performs the matching action on the host (or its
// cloud-safe equivalent) and narrates the outcome.
//
// Usage:
//
//	jarvis serve [--config configs/jarvis.yaml]
//	jarvis say "play daft punk on youtube"
//	jarvis say --audio clip.wav
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nadzzz/jarvis/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "jarvis",
		Short:        "Voice and text command router",
		Long:         `Jarvis turns short utterances into desktop actions or answers from a remote assistant.`,
		Version:      version,
		SilenceUsage: true,
	}
	config.Flags(root.PersistentFlags())

	root.AddCommand(newServeCommand())
	root.AddCommand(newSayCommand())
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "jarvis %s\n", version)
		},
	})
	return root
}
