package flagx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		allowed []string
		want    []string
	}{
		{
			name:    "separate value",
			args:    []string{"-c", "server.yaml", "-g", ":3200"},
			allowed: []string{"-c", "--config"},
			want:    []string{"-c", "server.yaml"},
		},
		{
			name:    "equals form",
			args:    []string{"--config=alt.json", "-g", ":3200"},
			allowed: []string{"-c", "--config"},
			want:    []string{"--config=alt.json"},
		},
		{
			name:    "order preserved",
			args:    []string{"--config=first.json", "-c", "second.json", "-x", "1"},
			allowed: []string{"-c", "--config"},
			want:    []string{"--config=first.json", "-c", "second.json"},
		},
		{
			name:    "unknown flags dropped",
			args:    []string{"-x", "1", "--y=2", "positional"},
			allowed: []string{"-c"},
			want:    []string{},
		},
		{
			name:    "trailing flag without value",
			args:    []string{"-c"},
			allowed: []string{"-c"},
			want:    []string{"-c"},
		},
		{
			name:    "dash token is not a value",
			args:    []string{"-c", "-d"},
			allowed: []string{"-c"},
			want:    []string{"-c"},
		},
		{
			name:    "empty",
			args:    []string{},
			allowed: []string{"-c"},
			want:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowed))
		})
	}
}

func TestConfigFileFlag(t *testing.T) {
	assert.Equal(t, "/etc/finkeeper.yaml", ConfigFileFlag([]string{"-c", "/etc/finkeeper.yaml"}))
	assert.Equal(t, "a.json", ConfigFileFlag([]string{"-config", "a.json", "-d", "dsn"}))
	assert.Equal(t, "b.json", ConfigFileFlag([]string{"--config=b.json"}))
	assert.Equal(t, "2.json", ConfigFileFlag([]string{"-c", "1.json", "-config", "2.json"}))
	assert.Empty(t, ConfigFileFlag([]string{"-x", "1"}))
}
