package viewer

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// TestStatus is the outcome of one hardware test.
type TestStatus string

const (
	StatusPass    TestStatus = "pass"
	StatusFail    TestStatus = "fail"
	StatusSkipped TestStatus = "skipped"
	StatusRunning TestStatus = "running"
)

// TestResult is one row in the test result viewer. Duration is in
// milliseconds.
type TestResult struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Status    TestStatus         `json:"status"`
	Duration  float64            `json:"duration"`
	Timestamp time.Time          `json:"timestamp"`
	Output    string             `json:"output,omitempty"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
}

// TestSummary counts results by status.
type TestSummary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
	Running int `json:"running"`
}

// Summarize counts results by status.
func Summarize(results []TestResult) TestSummary {
	s := TestSummary{Total: len(results)}
	for _, r := range results {
		switch r.Status {
		case StatusPass:
			s.Passed++
		case StatusFail:
			s.Failed++
		case StatusSkipped:
			s.Skipped++
		case StatusRunning:
			s.Running++
		}
	}
	return s
}

// LoadTestResults reads JUnit XML or a JSON list of results.
func LoadTestResults(path string) ([]TestResult, error) {
	if err := requireFile(path); err != nil {
		return nil, err
	}
	e := ext(path)
	if e != "xml" && e != "json" {
		return nil, fmt.Errorf("unsupported test result format: %s: %w", e, ErrUnsupportedFormat)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if e == "xml" {
		return parseJUnit(content)
	}
	return parseJSONResults(content)
}

type junitCase struct {
	Name      string    `xml:"name,attr"`
	Classname string    `xml:"classname,attr"`
	Time      string    `xml:"time,attr"`
	Failure   *junitMsg `xml:"failure"`
	Error     *junitMsg `xml:"error"`
	Skipped   *junitMsg `xml:"skipped"`
	SystemOut string    `xml:"system-out"`
}

type junitMsg struct {
	Message string `xml:"message,attr"`
	Body    string `xml:",chardata"`
}

type junitSuite struct {
	Name      string       `xml:"name,attr"`
	Timestamp string       `xml:"timestamp,attr"`
	Cases     []junitCase  `xml:"testcase"`
	Suites    []junitSuite `xml:"testsuite"`
}

// parseJUnit accepts either a <testsuites> or a bare <testsuite> root.
func parseJUnit(content []byte) ([]TestResult, error) {
	var root struct {
		XMLName xml.Name
		junitSuite
	}
	if err := xml.Unmarshal(content, &root); err != nil {
		return nil, fmt.Errorf("parse junit: %w", err)
	}
	switch root.XMLName.Local {
	case "testsuites", "testsuite":
	default:
		return nil, fmt.Errorf("parse junit: unexpected root <%s>: %w", root.XMLName.Local, ErrUnsupportedFormat)
	}
	results := []TestResult{}
	collectJUnit(&results, root.junitSuite, time.Time{})
	return results, nil
}

func collectJUnit(out *[]TestResult, suite junitSuite, ts time.Time) {
	if t, err := time.Parse("2006-01-02T15:04:05", suite.Timestamp); err == nil {
		ts = t
	}
	for _, c := range suite.Cases {
		r := TestResult{
			Name:      c.Name,
			Status:    StatusPass,
			Timestamp: ts,
			Output:    strings.TrimSpace(c.SystemOut),
		}
		r.ID = c.Name
		if c.Classname != "" {
			r.ID = c.Classname + "." + c.Name
		}
		if secs, err := strconv.ParseFloat(c.Time, 64); err == nil {
			r.Duration = secs * 1000
		}
		switch {
		case c.Failure != nil:
			r.Status = StatusFail
			r.Output = joinOutput(c.Failure, r.Output)
		case c.Error != nil:
			r.Status = StatusFail
			r.Output = joinOutput(c.Error, r.Output)
		case c.Skipped != nil:
			r.Status = StatusSkipped
		}
		*out = append(*out, r)
	}
	for _, s := range suite.Suites {
		collectJUnit(out, s, ts)
	}
}

func joinOutput(msg *junitMsg, rest string) string {
	parts := []string{}
	for _, p := range []string{msg.Message, strings.TrimSpace(msg.Body), rest} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "\n")
}

// parseJSONResults accepts a bare array or an object with a "results" field.
// Rows without an id get their position as id.
func parseJSONResults(content []byte) ([]TestResult, error) {
	content = bytes.TrimSpace(content)
	var results []TestResult
	if len(content) > 0 && content[0] == '{' {
		var wrapper struct {
			Results []TestResult `json:"results"`
		}
		if err := json.Unmarshal(content, &wrapper); err != nil {
			return nil, fmt.Errorf("parse test results: %w", err)
		}
		results = wrapper.Results
	} else if err := json.Unmarshal(content, &results); err != nil {
		return nil, fmt.Errorf("parse test results: %w", err)
	}
	if results == nil {
		results = []TestResult{}
	}
	for i := range results {
		if results[i].ID == "" {
			results[i].ID = strconv.Itoa(i + 1)
		}
		switch results[i].Status {
		case StatusPass, StatusFail, StatusSkipped, StatusRunning:
		case "passed", "ok":
			results[i].Status = StatusPass
		case "failed", "error":
			results[i].Status = StatusFail
		default:
			return nil, fmt.Errorf("parse test results: %s: unknown status %q", results[i].ID, results[i].Status)
		}
	}
	return results, nil
}
