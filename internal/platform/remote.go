package platform

import (
	"context"
	"log/slog"
)

// Remote stands in for a host without a desktop. Launching and automation
// report ErrUnavailable; URLs are left to the client.
type Remote struct{}

// NewRemote creates a Remote adapter.
func NewRemote() *Remote { return &Remote{} }

func (*Remote) Name() string { return "remote" }

func (*Remote) LaunchApp(context.Context, string) error { return ErrUnavailable }

func (*Remote) Automate(context.Context, []Step) error { return ErrUnavailable }

func (*Remote) OpenURL(_ context.Context, url string) error {
	slog.Debug("url left to client", "url", url)
	return nil
}

func (*Remote) PlayVideo(context.Context, string) (string, error) { return "", ErrUnavailable }
