package hardware

import (
	"path/filepath"
	"strings"
)

// DetectDocumentType guesses the upload category from a file name. Rules are
// checked in order; the first match wins.
func DetectDocumentType(fileName string) DocumentType {
	lower := strings.ToLower(fileName)
	switch {
	case strings.Contains(lower, "datasheet"):
		return DocumentDatasheet
	case strings.Contains(lower, "reference"), strings.Contains(lower, "manual"), strings.Contains(lower, "rm"):
		return DocumentReferenceManual
	case strings.HasSuffix(lower, ".sch"),
		strings.HasSuffix(lower, ".kicad_sch"),
		strings.HasSuffix(lower, ".pdf") && strings.Contains(lower, "schematic"):
		return DocumentSchematic
	case strings.Contains(lower, "company"), strings.Contains(lower, "knowledge"), strings.Contains(lower, "wiki"):
		return DocumentCompanyKnowledge
	case strings.HasSuffix(lower, ".pdf"):
		return DocumentDatasheet
	}
	return DocumentOther
}

var mimeTypes = map[string]string{
	".pdf":       "application/pdf",
	".txt":       "text/plain",
	".md":        "text/markdown",
	".csv":       "text/csv",
	".json":      "application/json",
	".xml":       "application/xml",
	".html":      "text/html",
	".sch":       "application/x-kicad-schematic",
	".kicad_sch": "application/x-kicad-schematic",
	".kicad_pcb": "application/x-kicad-pcb",
	".stl":       "model/stl",
	".step":      "model/step",
	".stp":       "model/step",
	".obj":       "model/obj",
	".png":       "image/png",
	".jpg":       "image/jpeg",
	".jpeg":      "image/jpeg",
}

// MimeType maps a file name to a MIME type, falling back to
// application/octet-stream.
func MimeType(fileName string) string {
	if mt, ok := mimeTypes[strings.ToLower(filepath.Ext(fileName))]; ok {
		return mt
	}
	return "application/octet-stream"
}

// UploadFilter is a named group of extensions offered by the file picker.
type UploadFilter struct {
	Name       string   `json:"name"`
	Extensions []string `json:"extensions"`
}

// UploadFilters lists the picker filters for hardware documents.
func UploadFilters() []UploadFilter {
	return []UploadFilter{
		{Name: "Hardware Documents", Extensions: []string{"pdf", "txt", "csv", "json", "xml", "md", "sch", "kicad_pcb", "stl", "step", "obj"}},
		{Name: "PDF", Extensions: []string{"pdf"}},
		{Name: "Text Files", Extensions: []string{"txt", "csv", "md"}},
		{Name: "KiCad Files", Extensions: []string{"kicad_pcb", "sch"}},
		{Name: "3D Models", Extensions: []string{"stl", "step", "obj"}},
		{Name: "All Files", Extensions: []string{"*"}},
	}
}
