package multiplexer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/paneruntime/workbench/internal/multiplexer"
)

func TestShellQuote(t *testing.T) {
	require.Equal(t, "''", multiplexer.ShellQuote(""))
	require.Equal(t, "'simple'", multiplexer.ShellQuote("simple"))
	require.Equal(t, `'it'"'"'s'`, multiplexer.ShellQuote("it's"))
}

func TestExportEnvCommandSortsKeys(t *testing.T) {
	got := multiplexer.ExportEnvCommand(map[string]string{"B": "2", "A": "1"})
	require.Equal(t, "export A='1'; export B='2';", got)
}

func TestExportEnvCommandEmpty(t *testing.T) {
	require.Equal(t, "", multiplexer.ExportEnvCommand(nil))
}

func TestExpandWithEnvPrefersProvidedMap(t *testing.T) {
	t.Setenv("FOO", "from-process")
	got := multiplexer.ExpandWithEnv("$FOO/$BAR", map[string]string{"FOO": "from-map"})
	require.Equal(t, "from-map/", got)
}
