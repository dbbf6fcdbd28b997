package hardware

import (
	"strings"
)

// FileCategory is one of the four classification buckets.
type FileCategory string

const (
	CategoryFirmware   FileCategory = "firmware"
	CategoryPCB        FileCategory = "pcb"
	CategorySchematic  FileCategory = "schematic"
	CategoryTestResult FileCategory = "test-result"
)

// FileCategories returns the buckets in rendering order.
func FileCategories() []FileCategory {
	return []FileCategory{CategoryFirmware, CategoryPCB, CategorySchematic, CategoryTestResult}
}

// Classification holds classified paths per bucket in traversal order.
type Classification struct {
	Firmware   []string `json:"firmware"`
	PCB        []string `json:"pcb"`
	Schematic  []string `json:"schematic"`
	TestResult []string `json:"testResult"`
}

func newClassification() Classification {
	return Classification{
		Firmware:   []string{},
		PCB:        []string{},
		Schematic:  []string{},
		TestResult: []string{},
	}
}

// Paths returns the bucket for category.
func (c Classification) Paths(category FileCategory) []string {
	switch category {
	case CategoryFirmware:
		return c.Firmware
	case CategoryPCB:
		return c.PCB
	case CategorySchematic:
		return c.Schematic
	case CategoryTestResult:
		return c.TestResult
	}
	return nil
}

func (c *Classification) add(category FileCategory, path string) {
	switch category {
	case CategoryFirmware:
		c.Firmware = append(c.Firmware, path)
	case CategoryPCB:
		c.PCB = append(c.PCB, path)
	case CategorySchematic:
		c.Schematic = append(c.Schematic, path)
	case CategoryTestResult:
		c.TestResult = append(c.TestResult, path)
	}
}

// Classifier assigns files to hardware buckets from their names alone.
// Each bucket has an independent predicate, so one file may land in more
// than one bucket (a "main_schematic.sch" is both PCB and schematic).
type Classifier struct {
	firmwareExtensions map[string]struct{}
	firmwareNames      map[string]struct{}
	pcbSuffixes        []string
	schematicSuffixes  []string
	schematicKeywords  []string
	testSuffixes       []string
	testKeywords       []string
}

// NewClassifier seeds the default rule tables.
func NewClassifier() *Classifier {
	c := &Classifier{
		firmwareExtensions: make(map[string]struct{}),
		firmwareNames:      make(map[string]struct{}),
		pcbSuffixes: []string{
			".kicad_pcb", ".kicad_mod", ".brd", ".sch",
			".gbr", ".gtl", ".gbl", ".gbo", ".gbs", ".gto", ".gts",
		},
		schematicSuffixes: []string{".sch", ".kicad_sch", ".pdf"},
		schematicKeywords: []string{"schematic", "circuit"},
		testSuffixes:      []string{".xml", ".json", ".log", ".txt"},
		testKeywords:      []string{"test", "result", "report"},
	}
	// Extensions are compared lower-cased, which covers both ".S" and ".s".
	for _, ext := range []string{"c", "cpp", "h", "hpp", "ino", "pde", "s", "ld", "mk"} {
		c.firmwareExtensions[ext] = struct{}{}
	}
	c.firmwareNames["Makefile"] = struct{}{}
	c.firmwareNames["CMakeLists.txt"] = struct{}{}
	return c
}

var defaultClassifier = NewClassifier()

// Classify runs the default classifier over a snapshot.
func Classify(entries []FileEntry) Classification {
	return defaultClassifier.Classify(entries)
}

// Classify walks entries depth-first and buckets every file. Directories are
// never classified but their children are always visited.
func (c *Classifier) Classify(entries []FileEntry) Classification {
	out := newClassification()
	c.walk(entries, &out)
	return out
}

func (c *Classifier) walk(entries []FileEntry, out *Classification) {
	for _, entry := range entries {
		if entry.IsDir {
			if entry.Children != nil {
				c.walk(entry.Children, out)
			}
			continue
		}
		if !entry.IsFile {
			continue
		}
		for _, category := range c.Categorize(entry.Name) {
			out.add(category, entry.Path)
		}
	}
}

// Categorize returns every bucket whose predicate accepts name.
func (c *Classifier) Categorize(name string) []FileCategory {
	var matched []FileCategory
	for _, category := range FileCategories() {
		if c.Matches(category, name) {
			matched = append(matched, category)
		}
	}
	return matched
}

// Matches evaluates the predicate of a single bucket.
func (c *Classifier) Matches(category FileCategory, name string) bool {
	lower := strings.ToLower(name)
	switch category {
	case CategoryFirmware:
		if _, ok := c.firmwareNames[name]; ok {
			return true
		}
		ext, ok := extension(name)
		if !ok {
			return false
		}
		_, ok = c.firmwareExtensions[strings.ToLower(ext)]
		return ok
	case CategoryPCB:
		return hasAnySuffix(lower, c.pcbSuffixes)
	case CategorySchematic:
		return hasAnySuffix(lower, c.schematicSuffixes) && containsAny(lower, c.schematicKeywords)
	case CategoryTestResult:
		return containsAny(lower, c.testKeywords) && hasAnySuffix(lower, c.testSuffixes)
	}
	return false
}

// extension returns the text after the last dot. Names without a dot have no
// extension.
func extension(name string) (string, bool) {
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 || idx == len(name)-1 {
		return "", false
	}
	return name[idx+1:], true
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}

func containsAny(s string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}
