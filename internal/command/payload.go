// SPDX-License-Identifier: MPL-2.0

package command

import (
	"errors"
	"fmt"
	"strings"
)

type (
	// NavigatePayload loads a URL into the window.
	NavigatePayload struct {
		URL string `json:"url"`
	}

	// LoadHTMLPayload replaces the window content with inline HTML.
	LoadHTMLPayload struct {
		HTML string `json:"html"`
	}

	// EvaluateScriptPayload evaluates JavaScript in the page and returns the
	// value of the last expression.
	EvaluateScriptPayload struct {
		Script string `json:"script"`
	}

	// SetTitlePayload sets the window title.
	SetTitlePayload struct {
		Title string `json:"title"`
	}

	// ResizePayload resizes the window to the given outer dimensions in pixels.
	ResizePayload struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	}

	// SetMaximizedPayload maximizes the window when Maximized is true and
	// restores it otherwise.
	SetMaximizedPayload struct {
		Maximized bool `json:"maximized"`
	}

	// PickFilesPayload opens a file picker. FileTypes are bare extensions
	// ("txt", "md"); an empty list allows any file.
	PickFilesPayload struct {
		FileTypes []string `json:"file_types,omitempty"`
		Multiple  bool     `json:"multiple,omitempty"`
	}

	// SaveFilePayload asks the user for a destination and writes Contents there.
	SaveFilePayload struct {
		FileName  string `json:"file_name"`
		Directory string `json:"directory,omitempty"`
		Contents  []byte `json:"contents"`
	}

	// Size is the result of get_size.
	Size struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	}
)

// DefaultSaveFileName is used when SaveFilePayload.FileName is empty.
const DefaultSaveFileName = "Unnamed File"

// Validate rejects an empty URL.
func (p NavigatePayload) Validate() error {
	if strings.TrimSpace(p.URL) == "" {
		return errors.New("url must be non-empty")
	}
	return nil
}

// Validate rejects non-positive dimensions.
func (p ResizePayload) Validate() error {
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("dimensions must be positive, got %dx%d", p.Width, p.Height)
	}
	return nil
}

// Filters returns the dialog filter patterns for the requested extensions,
// formatted as "ext (*.ext)".
func (p PickFilesPayload) Filters() []string {
	if len(p.FileTypes) == 0 {
		return nil
	}
	filters := make([]string, 0, len(p.FileTypes))
	for _, ext := range p.FileTypes {
		ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
		if ext == "" {
			continue
		}
		filters = append(filters, fmt.Sprintf("%s (*.%s)", ext, ext))
	}
	return filters
}

// Name returns FileName, or DefaultSaveFileName when it is empty.
func (p SaveFilePayload) Name() string {
	if strings.TrimSpace(p.FileName) == "" {
		return DefaultSaveFileName
	}
	return p.FileName
}
