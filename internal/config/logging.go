// SPDX-License-Identifier: MPL-2.0

package config

import (
	"io"

	"github.com/charmbracelet/log"
)

// NewLogger builds the charm logger described by the log section. An empty
// level means warn.
func (c LogConfig) NewLogger(w io.Writer, prefix string) (*log.Logger, error) {
	level := log.WarnLevel
	if c.Level != "" {
		var err error
		if level, err = log.ParseLevel(c.Level); err != nil {
			return nil, err
		}
	}
	if err := c.Format.Validate(); err != nil {
		return nil, err
	}

	formatter := log.TextFormatter
	switch c.Format {
	case LogFormatJSON:
		formatter = log.JSONFormatter
	case LogFormatLogfmt:
		formatter = log.LogfmtFormatter
	}

	return log.NewWithOptions(w, log.Options{
		Prefix:          prefix,
		Level:           level,
		Formatter:       formatter,
		ReportTimestamp: c.Format != "" && c.Format != LogFormatText,
	}), nil
}
