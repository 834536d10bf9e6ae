package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nadzzz/jarvis/internal/message"
)

func newSayCommand() *cobra.Command {
	var (
		audioFile string
		mode      string
	)
	cmd := &cobra.Command{
		Use:   "say [utterance]",
		Short: "Run one interaction from the console",
		Long: `Routes an utterance (or an audio clip with --audio) and prints the narrations.
With no arguments, reads one utterance per line from stdin until EOF.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			s := &console{
				handle: a.dispatcher.Handle,
				mode:   message.ResponseMode(mode),
				out:    cmd.OutOrStdout(),
				errOut: cmd.ErrOrStderr(),
			}
			ctx := cmd.Context()

			switch {
			case audioFile != "":
				data, err := os.ReadFile(audioFile)
				if err != nil {
					return fmt.Errorf("reading audio: %w", err)
				}
				return s.run(ctx, &message.Message{Audio: data, ContentType: contentTypeFor(audioFile)})
			case len(args) > 0:
				return s.run(ctx, &message.Message{Text: strings.Join(args, " ")})
			default:
				return s.loop(ctx, cmd.InOrStdin())
			}
		},
	}
	cmd.Flags().StringVar(&audioFile, "audio", "", "WAV or MP3 clip to transcribe instead of text")
	cmd.Flags().StringVar(&mode, "response-mode", "", "none, text, audio or text+audio")
	return cmd
}

// console prints interactions for a terminal user.
type console struct {
	handle func(context.Context, *message.Message) (*message.Response, error)
	mode   message.ResponseMode
	out    io.Writer
	errOut io.Writer
}

func (c *console) run(ctx context.Context, msg *message.Message) error {
	msg.Source = "cli"
	msg.ResponseMode = c.mode

	resp, err := c.handle(ctx, msg)
	if err != nil {
		return err
	}
	if resp.Transcript != "" {
		fmt.Fprintf(c.out, "> %s\n", resp.Transcript)
	}
	for _, n := range resp.Narrations {
		fmt.Fprintln(c.out, n)
	}
	for _, l := range resp.Links {
		fmt.Fprintf(c.out, "  %s\n", l)
	}
	for _, d := range resp.Diagnostics {
		fmt.Fprintf(c.errOut, "! %s\n", d)
	}
	return nil
}

func (c *console) loop(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if err := c.run(ctx, &message.Message{Text: sc.Text()}); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
	}
	return sc.Err()
}

func contentTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return "audio/mpeg"
	default:
		return "audio/wav"
	}
}
