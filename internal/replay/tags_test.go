package replay

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitizeTagName(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"v1", "v1"},
		{"Release 1.0", "Release_1_0"},
		{"build #42 (final)", "build_42_final_"},
		{"already_ok-1", "already_ok-1"},
		{"  spaced  ", "_spaced_"},
		{"ünïcode", "_n_code"},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			require.Equal(t, tt.want, SanitizeTagName(tt.label))
		})
	}
}

func TestTagRegistry_Unique(t *testing.T) {
	r := NewTagRegistry()
	require.Equal(t, "v_1_0", r.Unique("v 1.0"))
	require.Equal(t, "v_1_0-2", r.Unique("v_1_0"))
	require.Equal(t, "V_1_0-3", r.Unique("V 1 0"))
	require.Equal(t, "v_1_0-4", r.Unique("v!1?0"))
	require.Equal(t, "other", r.Unique("other"))
}

func TestEmailResolver(t *testing.T) {
	r := NewEmailResolver("", map[string]string{
		"Jane Doe": "jane@corp.example",
	})
	require.Equal(t, "jane@corp.example", r.Email("jane doe"))
	require.Equal(t, "jane@corp.example", r.Email("JANE DOE"))
	require.Equal(t, "john.smith@localhost", r.Email("John Smith"))

	r = NewEmailResolver("example.org", nil)
	require.Equal(t, "admin@example.org", r.Email("Admin"))
}
