package memory

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSeed(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"array", `[{"id":1,"name":"Alice"},{"id":"2","name":"Bob"}]`, []string{"Alice", "Bob"}},
		{"db file", `{"patients":[{"id":3,"name":"Carol"}]}`, []string{"Carol"}},
		{"drops records without id", `[{"name":"Nobody"},{"id":4,"name":"Dan"}]`, []string{"Dan"}},
		{"empty", "  ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LoadSeed(strings.NewReader(tt.input))
			require.NoError(t, err)

			var names []string
			for _, p := range got {
				names = append(names, p.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestLoadSeedInvalid(t *testing.T) {
	_, err := LoadSeed(strings.NewReader(`{"patients": 4}`))
	assert.Error(t, err)
}
