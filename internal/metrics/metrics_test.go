package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResource(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"clients:new:50:0", "clients"},
		{"clients:", "clients"},
		{"templates", "templates"},
		{"dashboard_stats", "dashboard_stats"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, Resource(tt.key))
		})
	}
}
