// Package hardware holds the domain model for hardware projects: file
// snapshots, uploaded reference documents, the structured data extracted from
// them, and the derived context handed to chat sessions.
package hardware

import (
	"time"
)

// FileEntry is one node of a file-system snapshot. Directories carry their
// children in the order the snapshot producer listed them.
type FileEntry struct {
	Name     string      `json:"name"`
	Path     string      `json:"path"`
	IsFile   bool        `json:"isFile"`
	IsDir    bool        `json:"isDir"`
	Children []FileEntry `json:"children,omitempty"`
}

// DocumentType enumerates the upload categories shown in the documents panel.
type DocumentType string

const (
	DocumentDatasheet        DocumentType = "datasheet"
	DocumentReferenceManual  DocumentType = "reference-manual"
	DocumentSchematic        DocumentType = "schematic"
	DocumentCompanyKnowledge DocumentType = "company-knowledge"
	DocumentOther            DocumentType = "other"
)

// DocumentTypes lists every document type in display order.
func DocumentTypes() []DocumentType {
	return []DocumentType{
		DocumentDatasheet,
		DocumentReferenceManual,
		DocumentSchematic,
		DocumentCompanyKnowledge,
		DocumentOther,
	}
}

// ParseDocumentType validates a wire value.
func ParseDocumentType(value string) (DocumentType, bool) {
	for _, t := range DocumentTypes() {
		if string(t) == value {
			return t, true
		}
	}
	return "", false
}

// Label is the display name of the type.
func (t DocumentType) Label() string {
	switch t {
	case DocumentDatasheet:
		return "Datasheet"
	case DocumentReferenceManual:
		return "Reference Manual"
	case DocumentSchematic:
		return "Schematic"
	case DocumentCompanyKnowledge:
		return "Company Knowledge"
	default:
		return "Other"
	}
}

// DocumentMetadata describes an uploaded document. Only Tags is always present.
type DocumentMetadata struct {
	Title        string   `json:"title,omitempty" yaml:"title"`
	Author       string   `json:"author,omitempty" yaml:"author"`
	Version      string   `json:"version,omitempty" yaml:"version"`
	Revision     string   `json:"revision,omitempty" yaml:"revision"`
	Pages        int      `json:"pages,omitempty" yaml:"pages"`
	Manufacturer string   `json:"manufacturer,omitempty" yaml:"manufacturer"`
	PartNumber   string   `json:"partNumber,omitempty" yaml:"part_number"`
	Description  string   `json:"description,omitempty" yaml:"description"`
	Tags         []string `json:"tags" yaml:"tags"`
}

// RegisterAccess is the access mode of a register.
type RegisterAccess string

const (
	AccessRead      RegisterAccess = "read"
	AccessWrite     RegisterAccess = "write"
	AccessReadWrite RegisterAccess = "read-write"
	AccessReadOnly  RegisterAccess = "read-only"
	AccessWriteOnly RegisterAccess = "write-only"
)

// RegisterMap describes a single memory-mapped register.
type RegisterMap struct {
	Name        string          `json:"name"`
	Address     string          `json:"address"`
	Description string          `json:"description"`
	BitWidth    int             `json:"bitWidth"`
	Access      RegisterAccess  `json:"access"`
	Fields      []RegisterField `json:"fields,omitempty"`
	ResetValue  string          `json:"resetValue,omitempty"`
}

// RegisterField is a bit range inside a register. BitRange is [high, low] as
// printed by the datasheet.
type RegisterField struct {
	Name        string      `json:"name"`
	BitRange    [2]int      `json:"bitRange"`
	Description string      `json:"description"`
	EnumValues  []EnumValue `json:"enumValues,omitempty"`
}

// EnumValue names one encoding of a register field.
type EnumValue struct {
	Value       string `json:"value"`
	Description string `json:"description"`
}

// TimingConstraint is a min/typ/max timing parameter.
type TimingConstraint struct {
	Name      string   `json:"name"`
	Parameter string   `json:"parameter"`
	Min       *float64 `json:"min,omitempty"`
	Typ       *float64 `json:"typ,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	Unit      string   `json:"unit"`
	Condition string   `json:"condition,omitempty"`
}

// PinType is the electrical role of a pin.
type PinType string

const (
	PinInput         PinType = "input"
	PinOutput        PinType = "output"
	PinBidirectional PinType = "bidirectional"
	PinPower         PinType = "power"
	PinGround        PinType = "ground"
)

// Pinout describes one package pin.
type Pinout struct {
	PinNumber   string  `json:"pinNumber"`
	Name        string  `json:"name"`
	Type        PinType `json:"type"`
	Description string  `json:"description,omitempty"`
	Function    string  `json:"function,omitempty"`
}

// ElectricalSpec is an electrical characteristic row.
type ElectricalSpec struct {
	Parameter string   `json:"parameter"`
	Min       *float64 `json:"min,omitempty"`
	Typ       *float64 `json:"typ,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	Unit      string   `json:"unit"`
	Condition string   `json:"condition,omitempty"`
}

// Configuration is a named set of settings. Values are strings, numbers or
// booleans.
type Configuration struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Settings    map[string]any `json:"settings"`
}

// ExtractedData is the structured payload returned by the extraction
// service. A nil collection means the service did not report it.
type ExtractedData struct {
	RegisterMaps      []RegisterMap      `json:"registerMaps,omitempty"`
	TimingConstraints []TimingConstraint `json:"timingConstraints,omitempty"`
	Pinouts           []Pinout           `json:"pinouts,omitempty"`
	ElectricalSpecs   []ElectricalSpec   `json:"electricalSpecs,omitempty"`
	Configurations    []Configuration    `json:"configurations,omitempty"`
	Summary           string             `json:"summary,omitempty"`
}

// IsEmpty reports whether no collection has entries and no summary is set.
func (d ExtractedData) IsEmpty() bool {
	return len(d.RegisterMaps) == 0 &&
		len(d.TimingConstraints) == 0 &&
		len(d.Pinouts) == 0 &&
		len(d.ElectricalSpecs) == 0 &&
		len(d.Configurations) == 0 &&
		d.Summary == ""
}

// HardwareDocument is one uploaded reference artifact.
type HardwareDocument struct {
	ID            string           `json:"id"`
	ProjectID     string           `json:"projectId"`
	Name          string           `json:"name"`
	Type          DocumentType     `json:"type"`
	FilePath      string           `json:"filePath"`
	FileSize      int64            `json:"fileSize"`
	UploadedAt    time.Time        `json:"uploadedAt"`
	LastAccessed  time.Time        `json:"lastAccessed"`
	Metadata      DocumentMetadata `json:"metadata"`
	ExtractedData *ExtractedData   `json:"extractedData,omitempty"`
}

// Clone copies the document so callers can mutate tags without touching the
// stored record. ExtractedData is shared: it is only ever replaced whole.
func (d HardwareDocument) Clone() HardwareDocument {
	out := d
	out.Metadata.Tags = append([]string{}, d.Metadata.Tags...)
	return out
}

// Project groups documents under a root folder.
type Project struct {
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	RootFolderPath string             `json:"rootFolderPath"`
	Documents      []HardwareDocument `json:"documents"`
	CreatedAt      time.Time          `json:"createdAt"`
	LastModified   time.Time          `json:"lastModified"`
}

// Clone deep-copies the document list.
func (p Project) Clone() Project {
	out := p
	out.Documents = make([]HardwareDocument, len(p.Documents))
	for i, doc := range p.Documents {
		out.Documents[i] = doc.Clone()
	}
	return out
}

// HardwareContext is the derived snapshot handed to chat sessions. It is
// rebuilt on demand and never persisted.
type HardwareContext struct {
	DocumentationContext string   `json:"documentationContext"`
	FirmwareFiles        []string `json:"firmwareFiles"`
	PCBFiles             []string `json:"pcbFiles"`
	Schematics           []string `json:"schematics"`
	TestResults          []string `json:"testResults"`
	Summary              string   `json:"summary"`
}
