package composer

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Phase of a process photo
type Phase string

const (
	PhaseBefore Phase = "antes"
	PhaseDuring Phase = "durante"
	PhaseAfter  Phase = "depois"
)

// Phases in print order
var Phases = []Phase{PhaseBefore, PhaseDuring, PhaseAfter}

// Label is the upper-case name printed on separators
func (p Phase) Label() string { return strings.ToUpper(string(p)) }

// Report is everything one generation request carries
type Report struct {
	Skin                string
	Title               string
	Description         string
	Company             string
	Location            string
	Address             string
	Date                string
	StartTime           string
	EndTime             string
	FinalConsiderations string
	Services            []Service
	Images              []Image
	Flowcharts          []Image
	ResultImage         *Image
	TermsImage          *Image
	Config              ReportConfig
	GeneratedAt         time.Time
}

// Service is one activity the photos document
type Service struct {
	ID           string `json:"id"`
	Name         string `json:"name" validate:"required"`
	StartDate    string `json:"startDate"`
	EndDate      string `json:"endDate"`
	Observations string `json:"observations"`
}

// Image is an uploaded photo and its caption data
type Image struct {
	Filename    string
	MimeType    string
	Data        []byte
	ServiceID   string
	ServiceName string
	Comment     string
	CaptureDate string
	Phase       Phase `validate:"omitempty,oneof=antes durante depois"`
}

// ReportConfig toggles optional sections. Toggles never change page
// geometry.
type ReportConfig struct {
	CompanyHeader       bool `json:"companyHeader"`
	ServicesList        bool `json:"servicesList"`
	ServiceDates        bool `json:"serviceDates"`
	ServiceObservations bool `json:"serviceObservations"`
	ImageComments       bool `json:"imageComments"`
	ResultImage         bool `json:"resultImage"`
	PhotographicReport  bool `json:"photographicReport"`
	HeaderFooter        bool `json:"headerFooter"`
	FinalConsiderations bool `json:"finalConsiderations"`
	ProcessImages       bool `json:"processImages"`
}

// DefaultReportConfig enables everything except process images
func DefaultReportConfig() ReportConfig {
	return ReportConfig{
		CompanyHeader:       true,
		ServicesList:        true,
		ServiceDates:        true,
		ServiceObservations: true,
		ImageComments:       true,
		ResultImage:         true,
		PhotographicReport:  true,
		HeaderFooter:        true,
		FinalConsiderations: true,
	}
}

// ParseReportConfig merges a JSON object over the defaults. Keys absent
// from raw keep their default value.
func ParseReportConfig(raw string) (ReportConfig, error) {
	cfg := DefaultReportConfig()
	if strings.TrimSpace(raw) == "" {
		return cfg, nil
	}
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return cfg, fmt.Errorf("config inválida: %w", err)
	}
	return cfg, nil
}

// GroupSummary describes one photo group in the finished document
type GroupSummary struct {
	Key    string `json:"key"`
	Title  string `json:"title"`
	Photos int    `json:"photos"`
	Pages  int    `json:"pages"`
}

// Result is a fully rendered report
type Result struct {
	PDF      []byte
	Pages    int
	Groups   []GroupSummary
	Warnings []string
	Filename string
}

// formatDate renders ISO dates as dd/mm/yyyy and leaves anything else as is
func formatDate(s string) string {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("02/01/2006")
		}
	}
	return s
}

func dateRange(start, end string) string {
	start, end = formatDate(start), formatDate(end)
	switch {
	case start != "" && end != "":
		return start + " a " + end
	case start != "":
		return "a partir de " + start
	case end != "":
		return "até " + end
	}
	return ""
}
