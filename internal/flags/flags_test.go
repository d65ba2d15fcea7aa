package flags

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_Enabled(t *testing.T) {
	tests := []struct {
		name     string
		registry *Registry
		flag     string
		expected bool
	}{
		{
			name:     "assist enabled",
			registry: New(map[string]bool{FlagAssist: true}),
			flag:     FlagAssist,
			expected: true,
		},
		{
			name:     "salary estimate explicitly disabled",
			registry: New(map[string]bool{FlagSalaryEstimate: false}),
			flag:     FlagSalaryEstimate,
			expected: false,
		},
		{
			name:     "unknown flag is disabled",
			registry: New(map[string]bool{FlagAssist: true}),
			flag:     "spellcheck",
			expected: false,
		},
		{
			name:     "nil registry is disabled",
			registry: nil,
			flag:     FlagAssist,
			expected: false,
		},
		{
			name:     "nil map is disabled",
			registry: New(nil),
			flag:     FlagAssist,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, tt.registry.Enabled(tt.flag))
		})
	}
}

func TestNew_CopiesInput(t *testing.T) {
	in := map[string]bool{FlagAssist: true}
	r := New(in)

	in[FlagAssist] = false
	in[FlagSalaryEstimate] = true

	require.True(t, r.Enabled(FlagAssist))
	require.False(t, r.Enabled(FlagSalaryEstimate))
}

func TestRegistry_All(t *testing.T) {
	r := New(map[string]bool{FlagAssist: true, FlagSalaryEstimate: false})

	all := r.All()
	require.Equal(t, map[string]bool{FlagAssist: true, FlagSalaryEstimate: false}, all)

	all[FlagSalaryEstimate] = true
	require.False(t, r.Enabled(FlagSalaryEstimate), "All returns a copy")

	var nilRegistry *Registry
	require.Equal(t, map[string]bool{}, nilRegistry.All())
}
