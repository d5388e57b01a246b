// SPDX-License-Identifier: MPL-2.0

package webproc

import (
	"context"
	"testing"

	"github.com/invowk/webproc/internal/backend/headless"
)

func TestPickFile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		picked []string
		want   string
		wantOK bool
	}{
		{name: "chosen", picked: []string{"/tmp/a.txt", "/tmp/b.txt"}, want: "/tmp/a.txt", wantOK: true},
		{name: "cancelled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var gotMultiple bool
			b := headless.New(headless.WithFileDialogs(
				func(_ []string, multiple bool) []string {
					gotMultiple = multiple
					return tt.picked
				},
				nil,
			))
			c := launch(t, WindowConfig{}, b)

			path, ok, err := c.PickFile(context.Background(), []string{"txt"})
			if err != nil {
				t.Fatalf("PickFile() error: %v", err)
			}
			if path != tt.want || ok != tt.wantOK {
				t.Errorf("PickFile() = (%q, %v), want (%q, %v)", path, ok, tt.want, tt.wantOK)
			}
			if gotMultiple {
				t.Error("PickFile should open a single-selection picker")
			}
		})
	}
}
