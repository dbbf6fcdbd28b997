package viewer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func TestKindFor(t *testing.T) {
	cases := map[string]Kind{
		"board.kicad_pcb":      KindPCB,
		"legacy.BRD":           KindPCB,
		"case.stl":             Kind3DModel,
		"enclosure.step":       Kind3DModel,
		"junit-report.xml":     KindTestResult,
		"bringup_results.json": KindTestResult,
		"config.json":          KindNone,
		"main.c":               KindNone,
	}
	for name, want := range cases {
		assert.Equal(t, want, KindFor(name), name)
	}
}

func TestParseSexprQuotedAtoms(t *testing.T) {
	root, err := parseSexpr(`(a "b c" (d 1.5) "esc\"aped")`)
	require.NoError(t, err)
	assert.Equal(t, "a", root.head())
	assert.Equal(t, "b c", root.arg(0))
	assert.InDelta(t, 1.5, root.child("d").floatArg(0), 1e-9)
	assert.Equal(t, `esc"aped`, root.arg(2))

	_, err = parseSexpr(`(a (b)`)
	assert.Error(t, err)
	_, err = parseSexpr(`a`)
	assert.Error(t, err)
}

func TestViewerMissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "gone.kicad_pcb")
	_, err := LoadPCBDesign(missing)
	assert.ErrorIs(t, err, os.ErrNotExist)
	_, err = Load3DModel(filepath.Join(t.TempDir(), "gone.stl"))
	assert.Error(t, err)
	_, err = LoadTestResults(filepath.Join(t.TempDir(), "gone.xml"))
	assert.Error(t, err)
}
