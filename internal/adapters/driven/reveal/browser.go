// Package reveal opens archive locations in the platform file manager.
package reveal

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/browser"

	"github.com/custodia-labs/chronicle/internal/core/ports/driven"
	"github.com/custodia-labs/chronicle/internal/logger"
)

// Ensure Browser implements the interface.
var _ driven.Revealer = (*Browser)(nil)

// Browser reveals local directories with the system opener
// (open, xdg-open or explorer).
type Browser struct {
	// open is swapped in tests.
	open func(path string) error
}

// New creates a revealer using the system opener. Opener chatter on
// stdout and stderr is discarded.
func New() *Browser {
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
	return &Browser{open: browser.OpenFile}
}

// Reveal opens location when it is a local directory. Remote and
// in-memory locations are only logged.
func (b *Browser) Reveal(ctx context.Context, location string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if location == "" || strings.HasPrefix(location, ":") || strings.Contains(location, "://") {
		logger.Info("archive is at %s", location)
		return nil
	}
	info, err := os.Stat(location)
	if err != nil {
		return fmt.Errorf("reveal %s: %w", location, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("reveal %s: not a directory", location)
	}
	if err := b.open(location); err != nil {
		return fmt.Errorf("reveal %s: %w", location, err)
	}
	return nil
}
