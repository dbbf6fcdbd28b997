package runtime

import (
	"context"
	"os"
	"time"

	"github.com/adhyaay-karnwal/athas/docstore"
	"github.com/adhyaay-karnwal/athas/hardware"
	"github.com/adhyaay-karnwal/athas/llm"
	"github.com/adhyaay-karnwal/athas/workspace"
)

// OllamaReport surfaces the health of the configured Ollama endpoint.
type OllamaReport struct {
	Endpoint      string   `json:"endpoint"`
	Healthy       bool     `json:"healthy"`
	Models        []string `json:"models,omitempty"`
	SelectedModel string   `json:"selectedModel"`
	ModelPresent  bool     `json:"modelPresent"`
	Error         string   `json:"error,omitempty"`
}

// SnapshotReport describes the optional SQLite snapshot.
type SnapshotReport struct {
	Path    string `json:"path,omitempty"`
	Enabled bool   `json:"enabled"`
	Exists  bool   `json:"exists"`
}

// WorkspaceReport counts what the classifier sees in the workspace.
type WorkspaceReport struct {
	Root       string `json:"root"`
	Files      int    `json:"files"`
	Firmware   int    `json:"firmware"`
	PCB        int    `json:"pcb"`
	Schematics int    `json:"schematics"`
	Tests      int    `json:"testResults"`
	Error      string `json:"error,omitempty"`
}

// EnvironmentReport aggregates the probes.
type EnvironmentReport struct {
	Workspace WorkspaceReport `json:"workspace"`
	Extractor string          `json:"extractor"`
	Ollama    OllamaReport    `json:"ollama"`
	Snapshot  SnapshotReport  `json:"snapshot"`
	Timestamp time.Time       `json:"timestamp"`
}

// StatusSnapshot enriches the environment report with live runtime details.
type StatusSnapshot struct {
	Environment  EnvironmentReport `json:"environment"`
	State        docstore.State    `json:"state"`
	Documents    int               `json:"documents"`
	Summary      string            `json:"summary"`
	ServerActive bool              `json:"serverActive"`
}

// ProbeEnvironment inspects Ollama availability, the snapshot file and the
// workspace tree. The Ollama probe is skipped for the local extractor.
func ProbeEnvironment(ctx context.Context, cfg Config) EnvironmentReport {
	report := EnvironmentReport{
		Workspace: probeWorkspace(cfg),
		Extractor: cfg.Extractor,
		Snapshot:  probeSnapshot(cfg),
		Ollama:    OllamaReport{Endpoint: cfg.OllamaEndpoint, SelectedModel: cfg.OllamaModel},
		Timestamp: time.Now(),
	}
	if cfg.Extractor != ExtractorLocal {
		report.Ollama = detectOllama(ctx, llm.NewClient(cfg.OllamaEndpoint, cfg.OllamaModel), cfg.OllamaModel)
	}
	return report
}

// detectOllama queries the tags endpoint to confirm health and models.
func detectOllama(ctx context.Context, client *llm.Client, model string) OllamaReport {
	report := OllamaReport{Endpoint: client.Endpoint, SelectedModel: model}
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	models, err := client.ListModels(pctx)
	if err != nil {
		report.Error = err.Error()
		return report
	}
	report.Healthy = true
	report.Models = models
	for _, name := range models {
		if name == model || name == model+":latest" {
			report.ModelPresent = true
		}
	}
	return report
}

func probeSnapshot(cfg Config) SnapshotReport {
	report := SnapshotReport{Path: cfg.SnapshotPath, Enabled: cfg.SnapshotPath != ""}
	if report.Enabled {
		if _, err := os.Stat(cfg.SnapshotPath); err == nil {
			report.Exists = true
		}
	}
	return report
}

func probeWorkspace(cfg Config) WorkspaceReport {
	report := WorkspaceReport{Root: cfg.Workspace}
	entries, err := workspace.Snapshot(cfg.Workspace, cfg.Tree)
	if err != nil {
		report.Error = err.Error()
		return report
	}
	classified := hardware.Classify(entries)
	report.Files = workspace.CountFiles(entries)
	report.Firmware = len(classified.Firmware)
	report.PCB = len(classified.PCB)
	report.Schematics = len(classified.Schematic)
	report.Tests = len(classified.TestResult)
	return report
}

// Status collects runtime and environment data for the status view.
func (r *Runtime) Status(ctx context.Context) StatusSnapshot {
	state := r.Store.Snapshot()
	return StatusSnapshot{
		Environment:  ProbeEnvironment(ctx, r.Config),
		State:        state,
		Documents:    len(r.Store.ProjectDocuments(state.CurrentProjectID)),
		Summary:      r.HardwareContext(ctx).Summary,
		ServerActive: r.ServerRunning(),
	}
}
