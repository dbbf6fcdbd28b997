package hardware

// AggregateExtractedData concatenates every document's extracted collections
// in document order. Documents without extracted data are skipped, duplicates
// are kept, and per-document summaries are not carried over.
func AggregateExtractedData(docs []HardwareDocument) ExtractedData {
	out := ExtractedData{
		RegisterMaps:      []RegisterMap{},
		TimingConstraints: []TimingConstraint{},
		Pinouts:           []Pinout{},
		ElectricalSpecs:   []ElectricalSpec{},
		Configurations:    []Configuration{},
	}
	for _, doc := range docs {
		data := doc.ExtractedData
		if data == nil {
			continue
		}
		out.RegisterMaps = append(out.RegisterMaps, data.RegisterMaps...)
		out.TimingConstraints = append(out.TimingConstraints, data.TimingConstraints...)
		out.Pinouts = append(out.Pinouts, data.Pinouts...)
		out.ElectricalSpecs = append(out.ElectricalSpecs, data.ElectricalSpecs...)
		out.Configurations = append(out.Configurations, data.Configurations...)
	}
	return out
}
