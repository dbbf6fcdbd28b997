package hardware

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func file(path, name string) FileEntry {
	return FileEntry{Name: name, Path: path, IsFile: true}
}

func dir(path, name string, children ...FileEntry) FileEntry {
	return FileEntry{Name: name, Path: path, IsDir: true, Children: children}
}

func sampleTree() []FileEntry {
	return []FileEntry{
		dir("/p/src", "src",
			file("/p/src/firmware.c", "firmware.c"),
			file("/p/src/startup.S", "startup.S"),
			dir("/p/src/drivers", "drivers",
				file("/p/src/drivers/uart.h", "uart.h"),
			),
		),
		dir("/p/hw", "hw",
			file("/p/hw/board.kicad_pcb", "board.kicad_pcb"),
			file("/p/hw/main_schematic.sch", "main_schematic.sch"),
			file("/p/hw/power_schematic.pdf", "power_schematic.pdf"),
			file("/p/hw/datasheet.pdf", "datasheet.pdf"),
		),
		file("/p/unit_test_report.json", "unit_test_report.json"),
		file("/p/Makefile", "Makefile"),
		file("/p/readme.md", "readme.md"),
	}
}

func TestClassifyBuckets(t *testing.T) {
	got := Classify(sampleTree())
	want := Classification{
		Firmware:   []string{"/p/src/firmware.c", "/p/src/startup.S", "/p/src/drivers/uart.h", "/p/Makefile"},
		PCB:        []string{"/p/hw/board.kicad_pcb", "/p/hw/main_schematic.sch"},
		Schematic:  []string{"/p/hw/main_schematic.sch", "/p/hw/power_schematic.pdf"},
		TestResult: []string{"/p/unit_test_report.json"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("classification mismatch (-want +got):\n%s", diff)
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	tree := sampleTree()
	first := Classify(tree)
	second := Classify(tree)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("classification not stable:\n%s", diff)
	}
}

func TestClassifyEmptyInput(t *testing.T) {
	got := Classify(nil)
	for _, category := range FileCategories() {
		paths := got.Paths(category)
		require.NotNil(t, paths, category)
		assert.Empty(t, paths, category)
	}
}

func TestClassifySkipsDirectoriesAndUnknownEntries(t *testing.T) {
	tree := []FileEntry{
		{Name: "firmware.c", Path: "/p/firmware.c", IsDir: true},
		{Name: "orphan.c", Path: "/p/orphan.c"},
		{Name: "empty", Path: "/p/empty", IsDir: true},
	}
	got := Classify(tree)
	assert.Empty(t, got.Firmware)
}

func TestCategorizeNames(t *testing.T) {
	c := NewClassifier()
	cases := []struct {
		name string
		want []FileCategory
	}{
		{"firmware.c", []FileCategory{CategoryFirmware}},
		{"board.kicad_pcb", []FileCategory{CategoryPCB}},
		{"power_schematic.pdf", []FileCategory{CategorySchematic}},
		{"datasheet.pdf", nil},
		{"unit_test_report.json", []FileCategory{CategoryTestResult}},
		{"readme.md", nil},
		{"main_schematic.sch", []FileCategory{CategoryPCB, CategorySchematic}},
		{"CMakeLists.txt", []FileCategory{CategoryFirmware}},
		{"makefile", nil},
		{"linker.LD", []FileCategory{CategoryFirmware}},
		{"c", nil},
		{"archive.", nil},
		{"TOP.GTL", []FileCategory{CategoryPCB}},
		{"circuit.kicad_sch", []FileCategory{CategorySchematic}},
		{"results.log", []FileCategory{CategoryTestResult}},
		{"test_bench.c", []FileCategory{CategoryFirmware}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, c.Categorize(tc.name))
		})
	}
}

func TestClassifyKeepsEveryPath(t *testing.T) {
	var children []FileEntry
	for i := 0; i < 25; i++ {
		name := fmt.Sprintf("f%02d.c", i)
		children = append(children, file("/p/src/"+name, name))
	}
	got := Classify([]FileEntry{dir("/p/src", "src", children...)})
	assert.Len(t, got.Firmware, 25)
	assert.Equal(t, "/p/src/f00.c", got.Firmware[0])
	assert.Equal(t, "/p/src/f24.c", got.Firmware[24])
}
