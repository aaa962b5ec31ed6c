// Package web serves the dashboard front end and opens it in a browser.
package web

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"time"
)

//go:embed static
var embedded embed.FS

// Handler serves files from dir, or the embedded dashboard when dir is empty.
func Handler(dir string) (http.Handler, error) {
	if dir == "" {
		sub, err := fs.Sub(embedded, "static")
		if err != nil {
			return nil, err
		}
		return http.FileServer(http.FS(sub)), nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("static dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("static dir %s is not a directory", dir)
	}
	return http.FileServer(http.Dir(dir)), nil
}

// Opener launches a URL in the desktop browser.
type Opener func(ctx context.Context, url string) error

// OpenBrowser uses the platform launcher: open on macOS, rundll32 on Windows
// and xdg-open elsewhere.
func OpenBrowser(ctx context.Context, url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(ctx, "open", url)
	case "windows":
		cmd = exec.CommandContext(ctx, "rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.CommandContext(ctx, "xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open browser: %w", err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// OpenAfter calls open once delay has passed, unless ctx ends first.
func OpenAfter(ctx context.Context, delay time.Duration, url string, open Opener) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			done <- ctx.Err()
		case <-t.C:
			done <- open(ctx, url)
		}
	}()
	return done
}
