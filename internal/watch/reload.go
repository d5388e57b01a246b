// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrNothingToReload is returned by Reload when neither a URL nor an HTML
// file is given.
var ErrNothingToReload = errors.New("watch: reload needs a URL or an HTML file")

type (
	// Page is the part of a window controller a reload drives.
	Page interface {
		Navigate(ctx context.Context, url string) error
		LoadHTML(ctx context.Context, html string) error
	}

	// Target says what a reload shows again. HTMLFile wins over URL.
	Target struct {
		URL      string
		HTMLFile string
		// Timeout bounds each reload call. Zero leaves the page's own
		// call timeout in effect.
		Timeout time.Duration
	}
)

// Reload returns an OnChange callback that re-reads target.HTMLFile into
// the page, or navigates to target.URL again.
func Reload(page Page, target Target) (func(ctx context.Context, changed []string) error, error) {
	if target.URL == "" && target.HTMLFile == "" {
		return nil, ErrNothingToReload
	}

	return func(ctx context.Context, _ []string) error {
		if target.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, target.Timeout)
			defer cancel()
		}

		if target.HTMLFile != "" {
			html, err := os.ReadFile(target.HTMLFile)
			if err != nil {
				return fmt.Errorf("read %s: %w", filepath.Base(target.HTMLFile), err)
			}
			return page.LoadHTML(ctx, string(html))
		}
		return page.Navigate(ctx, target.URL)
	}, nil
}
