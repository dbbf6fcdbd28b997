// Package viewer loads the data shown by the PCB, 3D model and test result
// viewers. It parses files; it does not render them.
package viewer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is wrapped by loaders given a file they cannot read.
var ErrUnsupportedFormat = errors.New("unsupported format")

// Kind identifies which viewer handles a file.
type Kind string

const (
	KindNone       Kind = ""
	KindPCB        Kind = "pcb"
	Kind3DModel    Kind = "3d-model"
	KindTestResult Kind = "test-result"
)

// KindFor picks the viewer for a file name.
func KindFor(path string) Kind {
	switch ext(path) {
	case "kicad_pcb", "brd":
		return KindPCB
	case "stl", "obj", "step", "stp":
		return Kind3DModel
	case "xml", "json":
		lower := strings.ToLower(filepath.Base(path))
		if strings.Contains(lower, "test") || strings.Contains(lower, "result") || strings.Contains(lower, "report") || strings.Contains(lower, "junit") {
			return KindTestResult
		}
	}
	return KindNone
}

func ext(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}

func requireFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("file not found: %s: %w", path, err)
	}
	return nil
}
