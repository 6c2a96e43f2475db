package cms

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/hpungsan/funnelmkt/internal/errors"
)

// BrowserOpener writes previews to Dir and opens them in the system
// browser. It backs `funnel cms preview`.
type BrowserOpener struct {
	Dir string
	// Launch opens target in a browser. Defaults to the platform launcher.
	Launch func(ctx context.Context, target string) error
}

// Open writes p to Dir/preview-<id>.html and launches it.
func (o *BrowserOpener) Open(ctx context.Context, p *Preview) (string, error) {
	dir := o.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", errors.NewInternal(fmt.Errorf("failed to create preview directory: %w", err))
	}

	path := filepath.Join(dir, "preview-"+p.ID+".html")
	file, err := openFileNoFollow(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return "", errors.NewInternal(fmt.Errorf("failed to create preview file: %w", err))
	}
	if _, err := file.Write(p.HTML); err != nil {
		file.Close()
		os.Remove(path)
		return "", errors.NewInternal(err)
	}
	if err := file.Close(); err != nil {
		os.Remove(path)
		return "", errors.NewInternal(err)
	}

	target := (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()
	launch := o.Launch
	if launch == nil {
		launch = launchBrowser
	}
	if err := launch(ctx, target); err != nil {
		return "", errors.NewPreviewBlocked(err.Error())
	}
	return target, nil
}

func launchBrowser(ctx context.Context, target string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(ctx, "open", target)
	case "windows":
		cmd = exec.CommandContext(ctx, "rundll32", "url.dll,FileProtocolHandler", target)
	default:
		cmd = exec.CommandContext(ctx, "xdg-open", target)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
