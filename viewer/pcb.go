package viewer

import (
	"encoding/xml"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Position is a board coordinate in millimetres.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PCBComponent is a placed footprint.
type PCBComponent struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Type       string            `json:"type"`
	Footprint  string            `json:"footprint"`
	Position   Position          `json:"position"`
	Rotation   float64           `json:"rotation"`
	Value      string            `json:"value,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

// NetNode is one component pin on a net.
type NetNode struct {
	ComponentID string `json:"componentId"`
	Pin         string `json:"pin"`
}

// PCBNet is an electrical net.
type PCBNet struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	Nodes []NetNode `json:"nodes"`
}

// PCBTrace is a routed copper segment.
type PCBTrace struct {
	NetID string     `json:"netId"`
	Path  []Position `json:"path"`
	Layer string     `json:"layer"`
	Width float64    `json:"width"`
}

// PCBDesign is the data behind the PCB viewer.
type PCBDesign struct {
	FilePath   string         `json:"filePath"`
	Layers     []string       `json:"layers"`
	Components []PCBComponent `json:"components"`
	Nets       []PCBNet       `json:"nets"`
	Traces     []PCBTrace     `json:"traces"`
}

var defaultKiCadLayers = []string{"F.Cu", "B.Cu", "F.SilkS"}

// LoadPCBDesign reads a KiCad (.kicad_pcb) or Eagle (.brd) board.
func LoadPCBDesign(path string) (*PCBDesign, error) {
	if err := requireFile(path); err != nil {
		return nil, err
	}
	switch e := ext(path); e {
	case "kicad_pcb":
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return parseKiCadPCB(path, string(content))
	case "brd":
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return parseEagleBoard(path, content), nil
	default:
		return nil, fmt.Errorf("unsupported PCB format: %s: %w", e, ErrUnsupportedFormat)
	}
}

func newDesign(path string) *PCBDesign {
	return &PCBDesign{
		FilePath:   path,
		Layers:     []string{},
		Components: []PCBComponent{},
		Nets:       []PCBNet{},
		Traces:     []PCBTrace{},
	}
}

func parseKiCadPCB(path, content string) (*PCBDesign, error) {
	root, err := parseSexpr(content)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if root.head() != "kicad_pcb" {
		return nil, fmt.Errorf("parse %s: not a kicad_pcb file", path)
	}
	design := newDesign(path)

	if layers := root.child("layers"); layers != nil {
		for _, l := range layers.list[1:] {
			if l.isList {
				if name := l.arg(0); name != "" {
					design.Layers = append(design.Layers, name)
				}
			}
		}
	}
	if len(design.Layers) == 0 {
		design.Layers = append(design.Layers, defaultKiCadLayers...)
	}

	netIndex := make(map[string]int)
	for _, n := range root.children("net") {
		id, name := n.arg(0), n.arg(1)
		if name == "" {
			continue
		}
		netIndex[id] = len(design.Nets)
		design.Nets = append(design.Nets, PCBNet{ID: id, Name: name, Nodes: []NetNode{}})
	}

	footprints := append(root.children("footprint"), root.children("module")...)
	for _, fp := range footprints {
		comp := kicadComponent(fp)
		design.Components = append(design.Components, comp)
		for _, pad := range fp.children("pad") {
			net := pad.child("net")
			if net == nil {
				continue
			}
			if idx, ok := netIndex[net.arg(0)]; ok {
				design.Nets[idx].Nodes = append(design.Nets[idx].Nodes, NetNode{ComponentID: comp.ID, Pin: pad.arg(0)})
			}
		}
	}

	for _, seg := range root.children("segment") {
		trace := PCBTrace{Path: []Position{}}
		if start := seg.child("start"); start != nil {
			trace.Path = append(trace.Path, Position{X: start.floatArg(0), Y: start.floatArg(1)})
		}
		if end := seg.child("end"); end != nil {
			trace.Path = append(trace.Path, Position{X: end.floatArg(0), Y: end.floatArg(1)})
		}
		if w := seg.child("width"); w != nil {
			trace.Width = w.floatArg(0)
		}
		if l := seg.child("layer"); l != nil {
			trace.Layer = l.arg(0)
		}
		if n := seg.child("net"); n != nil {
			trace.NetID = n.arg(0)
		}
		design.Traces = append(design.Traces, trace)
	}
	return design, nil
}

func kicadComponent(fp *node) PCBComponent {
	comp := PCBComponent{Footprint: fp.arg(0), Properties: map[string]string{}}
	if at := fp.child("at"); at != nil {
		comp.Position = Position{X: at.floatArg(0), Y: at.floatArg(1)}
		comp.Rotation = at.floatArg(2)
	}
	for _, prop := range fp.children("property") {
		key, value := prop.arg(0), prop.arg(1)
		switch key {
		case "Reference":
			comp.ID = value
		case "Value":
			comp.Value = value
		default:
			comp.Properties[key] = value
		}
	}
	for _, text := range fp.children("fp_text") {
		switch text.arg(0) {
		case "reference":
			if comp.ID == "" {
				comp.ID = text.arg(1)
			}
		case "value":
			if comp.Value == "" {
				comp.Value = text.arg(1)
			}
		}
	}
	if len(comp.Properties) == 0 {
		comp.Properties = nil
	}
	comp.Name = comp.ID
	comp.Type = componentType(comp.ID)
	return comp
}

var referencePrefixes = map[string]string{
	"R":   "resistor",
	"C":   "capacitor",
	"L":   "inductor",
	"D":   "diode",
	"LED": "led",
	"Q":   "transistor",
	"U":   "ic",
	"IC":  "ic",
	"J":   "connector",
	"P":   "connector",
	"SW":  "switch",
	"Y":   "crystal",
	"X":   "crystal",
	"F":   "fuse",
	"TP":  "test-point",
	"FB":  "ferrite-bead",
}

// componentType infers a component class from its reference designator.
func componentType(ref string) string {
	prefix := strings.TrimRightFunc(ref, func(r rune) bool {
		return (r >= '0' && r <= '9') || r == '?'
	})
	if t, ok := referencePrefixes[strings.ToUpper(prefix)]; ok {
		return t
	}
	return "other"
}

type eagleDrawing struct {
	Board struct {
		Elements []struct {
			Name    string `xml:"name,attr"`
			Value   string `xml:"value,attr"`
			Library string `xml:"library,attr"`
			Package string `xml:"package,attr"`
			X       string `xml:"x,attr"`
			Y       string `xml:"y,attr"`
			Rot     string `xml:"rot,attr"`
		} `xml:"elements>element"`
		Signals []struct {
			Name     string `xml:"name,attr"`
			Contacts []struct {
				Element string `xml:"element,attr"`
				Pad     string `xml:"pad,attr"`
			} `xml:"contactref"`
			Wires []struct {
				X1    string `xml:"x1,attr"`
				Y1    string `xml:"y1,attr"`
				X2    string `xml:"x2,attr"`
				Y2    string `xml:"y2,attr"`
				Width string `xml:"width,attr"`
				Layer string `xml:"layer,attr"`
			} `xml:"wire"`
		} `xml:"signals>signal"`
	} `xml:"drawing>board"`
}

var eagleLayers = map[string]string{"1": "Top", "16": "Bottom"}

// parseEagleBoard reads an Eagle XML board. Binary (pre-6.0) boards and
// unreadable XML yield the two copper layers only.
func parseEagleBoard(path string, content []byte) *PCBDesign {
	design := newDesign(path)
	design.Layers = []string{"Top", "Bottom"}

	var doc eagleDrawing
	if err := xml.Unmarshal(content, &doc); err != nil {
		return design
	}
	for _, el := range doc.Board.Elements {
		design.Components = append(design.Components, PCBComponent{
			ID:        el.Name,
			Name:      el.Name,
			Type:      componentType(el.Name),
			Footprint: strings.Trim(el.Library+":"+el.Package, ":"),
			Position:  Position{X: parseFloat(el.X), Y: parseFloat(el.Y)},
			Rotation:  eagleRotation(el.Rot),
			Value:     el.Value,
		})
	}
	for i, sig := range doc.Board.Signals {
		net := PCBNet{ID: strconv.Itoa(i + 1), Name: sig.Name, Nodes: []NetNode{}}
		for _, c := range sig.Contacts {
			net.Nodes = append(net.Nodes, NetNode{ComponentID: c.Element, Pin: c.Pad})
		}
		design.Nets = append(design.Nets, net)
		for _, w := range sig.Wires {
			layer := eagleLayers[w.Layer]
			if layer == "" {
				layer = w.Layer
			}
			design.Traces = append(design.Traces, PCBTrace{
				NetID: net.ID,
				Path: []Position{
					{X: parseFloat(w.X1), Y: parseFloat(w.Y1)},
					{X: parseFloat(w.X2), Y: parseFloat(w.Y2)},
				},
				Layer: layer,
				Width: parseFloat(w.Width),
			})
		}
	}
	sort.SliceStable(design.Components, func(i, j int) bool {
		return design.Components[i].ID < design.Components[j].ID
	})
	return design
}

// eagleRotation parses "R90", "MR180" and similar.
func eagleRotation(rot string) float64 {
	rot = strings.TrimLeft(rot, "MS")
	return parseFloat(strings.TrimPrefix(rot, "R"))
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}
