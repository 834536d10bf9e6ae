package platform

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/pkg/browser"

	"github.com/nadzzz/jarvis/internal/config"
)

// videoIDPattern matches the first watch link on a results page.
var videoIDPattern = regexp.MustCompile(`watch\?v=([\w-]{11})`)

// LocalOptions configures a Local adapter. Zero values fall back to the
// real host implementations.
type LocalOptions struct {
	Runner      Runner
	Keyboard    Keyboard // nil when no keystroke driver is installed
	Video       config.VideoConfig
	KeyInterval time.Duration

	HTTPClient *http.Client
	OpenURL    func(string) error
	Sleep      func(time.Duration)
}

// Local performs effects on the machine it runs on.
type Local struct {
	runner      Runner
	keyboard    Keyboard
	video       config.VideoConfig
	keyInterval time.Duration
	client      *http.Client
	openURL     func(string) error
	sleep       func(time.Duration)
}

// NewLocal creates a Local adapter.
func NewLocal(opts LocalOptions) *Local {
	l := &Local{
		runner:      opts.Runner,
		keyboard:    opts.Keyboard,
		video:       opts.Video,
		keyInterval: opts.KeyInterval,
		client:      opts.HTTPClient,
		openURL:     opts.OpenURL,
		sleep:       opts.Sleep,
	}
	if l.runner == nil {
		l.runner = ExecRunner{}
	}
	if l.client == nil {
		l.client = &http.Client{Timeout: 10 * time.Second}
	}
	if l.openURL == nil {
		l.openURL = browser.OpenURL
	}
	if l.sleep == nil {
		l.sleep = time.Sleep
	}
	return l
}

// Name returns the adapter identifier.
func (l *Local) Name() string { return "local" }

// LaunchApp starts the executable at path.
func (l *Local) LaunchApp(_ context.Context, path string) error {
	if path == "" {
		return fmt.Errorf("launch: no executable path configured")
	}
	if err := l.runner.Start(path); err != nil {
		return fmt.Errorf("launch: %w", err)
	}
	slog.Info("application launched", "path", path)
	return nil
}

// Automate runs steps through the keyboard driver. Pauses are not
// interrupted by ctx; a sequence either completes or fails at a step.
func (l *Local) Automate(ctx context.Context, steps []Step) error {
	if l.keyboard == nil {
		return ErrUnavailable
	}
	for i, s := range steps {
		var err error
		switch s.Kind {
		case StepHotkey:
			err = l.keyboard.Hotkey(ctx, s.Keys...)
		case StepType:
			err = l.keyboard.Type(ctx, s.Text)
		case StepPress:
			err = l.keyboard.Press(ctx, s.Keys[0])
		case StepWait:
			l.sleep(s.Delay)
			continue
		default:
			err = fmt.Errorf("unknown step kind %d", s.Kind)
		}
		if err != nil {
			return fmt.Errorf("automation step %d: %w", i, err)
		}
		if l.keyInterval > 0 {
			l.sleep(l.keyInterval)
		}
	}
	return nil
}

// OpenURL opens target in the default browser.
func (l *Local) OpenURL(_ context.Context, target string) error {
	if err := l.openURL(target); err != nil {
		return fmt.Errorf("open url: %w", err)
	}
	return nil
}

// PlayVideo looks up the first result for term on the video site and opens
// its watch page.
func (l *Local) PlayVideo(ctx context.Context, term string) (string, error) {
	id, err := l.firstVideoID(ctx, term)
	if err != nil {
		return "", err
	}
	watch := l.video.WatchURL + id
	if err := l.OpenURL(ctx, watch); err != nil {
		return "", err
	}
	slog.Info("video opened", "term", term, "url", watch)
	return watch, nil
}

func (l *Local) firstVideoID(ctx context.Context, term string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.video.SearchURL+url.QueryEscape(term), nil)
	if err != nil {
		return "", fmt.Errorf("video search: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("video search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("video search: status %d", resp.StatusCode)
	}

	page, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("video search: reading page: %w", err)
	}

	m := videoIDPattern.FindSubmatch(page)
	if m == nil {
		return "", fmt.Errorf("video search: no result for %q", term)
	}
	return string(m[1]), nil
}
