package olric

import (
	"errors"
	"fmt"
	"testing"

	olriclib "github.com/olric-data/olric"

	"github.com/DeBrosOfficial/wavechat/pkg/content"
)

var _ content.Cache = (*Client)(nil)

func TestIsKeyNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"sentinel", olriclib.ErrKeyNotFound, true},
		{"wrapped sentinel", fmt.Errorf("get: %w", olriclib.ErrKeyNotFound), true},
		{"remote message", errors.New("olric: key not found"), true},
		{"other", errors.New("connection refused"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isKeyNotFound(tt.err); got != tt.want {
				t.Errorf("isKeyNotFound(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
