package composer

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"manutencao-predial/portal-backend/internal/reports/export"
	"manutencao-predial/portal-backend/internal/reports/layout"
)

// Section is an optional part of a report a skin may enable
type Section string

const (
	SectionDescription    Section = "description"
	SectionContentList    Section = "content_list"
	SectionFlowcharts     Section = "flowcharts"
	SectionResult         Section = "result"
	SectionConsiderations Section = "final_considerations"
	SectionTerms          Section = "terms"
)

// Grouping selects how photos are organized
type Grouping string

const (
	ByService Grouping = "service"
	ByPhase   Grouping = "phase"
	// ByServiceOrPhase groups by phase when the process images toggle is on
	ByServiceOrPhase Grouping = "service_or_phase"
)

// Theme colors as "#rrggbb"
type Theme struct {
	Primary      string `yaml:"primary" json:"primary"`
	Accent       string `yaml:"accent" json:"accent"`
	GradientFrom string `yaml:"gradient_from" json:"gradient_from"`
	GradientTo   string `yaml:"gradient_to" json:"gradient_to"`
	Separator    string `yaml:"separator" json:"separator"`
}

// Skin is the per-brand configuration record driving the shared pipeline
type Skin struct {
	ID                  string             `yaml:"id" json:"id"`
	Name                string             `yaml:"name" json:"name"`
	Orientation         layout.Orientation `yaml:"orientation" json:"orientation"`
	Theme               Theme              `yaml:"theme" json:"theme"`
	Logo                string             `yaml:"logo" json:"logo"`
	Brand               string             `yaml:"brand" json:"brand"`
	CoverTitle          string             `yaml:"cover_title" json:"cover_title"`
	PhotosPerPage       int                `yaml:"photos_per_page" json:"photos_per_page"`
	Grouping            Grouping           `yaml:"grouping" json:"grouping"`
	Sections            []Section          `yaml:"sections" json:"sections"`
	ImageBudgetKB       int                `yaml:"image_budget_kb" json:"image_budget_kb"`
	MaxImagesPerService int                `yaml:"max_images_per_service" json:"max_images_per_service"`
	Protect             bool               `yaml:"protect" json:"protect"`
}

// Has reports whether the skin enables s
func (s Skin) Has(sec Section) bool {
	for _, x := range s.Sections {
		if x == sec {
			return true
		}
	}
	return false
}

// groupingFor resolves the effective grouping for a request
func (s Skin) groupingFor(cfg ReportConfig) Grouping {
	if s.Grouping == ByServiceOrPhase {
		if cfg.ProcessImages {
			return ByPhase
		}
		return ByService
	}
	return s.Grouping
}

type palette struct {
	primary, accent, from, to, separator export.PDFColor
}

func (s Skin) palette() (palette, error) {
	var p palette
	for _, c := range []struct {
		dst *export.PDFColor
		hex string
	}{
		{&p.primary, s.Theme.Primary},
		{&p.accent, s.Theme.Accent},
		{&p.from, s.Theme.GradientFrom},
		{&p.to, s.Theme.GradientTo},
		{&p.separator, s.Theme.Separator},
	} {
		parsed, err := export.ParseHexColor(c.hex)
		if err != nil {
			return p, fmt.Errorf("skin %s: %w", s.ID, err)
		}
		*c.dst = parsed
	}
	return p, nil
}

func (s Skin) validate() error {
	if s.ID == "" {
		return fmt.Errorf("skin without id")
	}
	if s.Orientation != layout.Portrait && s.Orientation != layout.Landscape {
		return fmt.Errorf("skin %s: orientation must be portrait or landscape", s.ID)
	}
	if s.PhotosPerPage < 1 || s.PhotosPerPage > 2 {
		return fmt.Errorf("skin %s: photos_per_page must be 1 or 2", s.ID)
	}
	switch s.Grouping {
	case ByService, ByPhase, ByServiceOrPhase:
	default:
		return fmt.Errorf("skin %s: unknown grouping %q", s.ID, s.Grouping)
	}
	if s.ImageBudgetKB <= 0 || s.MaxImagesPerService <= 0 {
		return fmt.Errorf("skin %s: image budget and per-service limit must be positive", s.ID)
	}
	_, err := s.palette()
	return err
}

// BuiltinSkins returns the five shipped skins
func BuiltinSkins() []Skin {
	return []Skin{
		{
			ID:          "standard",
			Name:        "Padrão",
			Orientation: layout.Portrait,
			Theme: Theme{
				Primary: "#1f4e79", Accent: "#f29900",
				GradientFrom: "#1f4e79", GradientTo: "#5b9bd5", Separator: "#1f4e79",
			},
			Logo:                "logo.png",
			Brand:               "Manutenção Predial",
			CoverTitle:          "RELATÓRIO DE SERVIÇOS",
			PhotosPerPage:       2,
			Grouping:            ByService,
			Sections:            []Section{SectionContentList, SectionResult, SectionConsiderations},
			ImageBudgetKB:       800,
			MaxImagesPerService: 60,
			Protect:             true,
		},
		{
			ID:          "premiere",
			Name:        "Premiere",
			Orientation: layout.Portrait,
			Theme: Theme{
				Primary: "#2b2b2b", Accent: "#c9a227",
				GradientFrom: "#111111", GradientTo: "#4a4a4a", Separator: "#2b2b2b",
			},
			Logo:                "logo-premiere.png",
			Brand:               "Premiere Engenharia",
			CoverTitle:          "RELATÓRIO FOTOGRÁFICO",
			PhotosPerPage:       2,
			Grouping:            ByService,
			Sections:            []Section{SectionContentList, SectionResult, SectionConsiderations, SectionTerms},
			ImageBudgetKB:       1024,
			MaxImagesPerService: 60,
			Protect:             true,
		},
		{
			ID:          "mark1",
			Name:        "Mark1",
			Orientation: layout.Landscape,
			Theme: Theme{
				Primary: "#8b1a1a", Accent: "#e0e0e0",
				GradientFrom: "#5c0f0f", GradientTo: "#b22222", Separator: "#8b1a1a",
			},
			Logo:                "logo-mark1.png",
			Brand:               "Mark1",
			CoverTitle:          "RELATÓRIO TÉCNICO",
			PhotosPerPage:       2,
			Grouping:            ByServiceOrPhase,
			Sections:            []Section{SectionDescription, SectionContentList, SectionFlowcharts, SectionConsiderations},
			ImageBudgetKB:       700,
			MaxImagesPerService: 80,
			Protect:             true,
		},
		{
			ID:          "mta",
			Name:        "MTA",
			Orientation: layout.Portrait,
			Theme: Theme{
				Primary: "#0b6e4f", Accent: "#f4d35e",
				GradientFrom: "#08415c", GradientTo: "#0b6e4f", Separator: "#0b6e4f",
			},
			Logo:                "logo-mta.png",
			Brand:               "MTA",
			CoverTitle:          "RELATÓRIO DE MANUTENÇÃO",
			PhotosPerPage:       1,
			Grouping:            ByService,
			Sections:            []Section{SectionDescription, SectionContentList, SectionResult, SectionConsiderations, SectionTerms},
			ImageBudgetKB:       1024,
			MaxImagesPerService: 40,
			Protect:             true,
		},
		{
			ID:          "process",
			Name:        "Processo",
			Orientation: layout.Landscape,
			Theme: Theme{
				Primary: "#34495e", Accent: "#e67e22",
				GradientFrom: "#2c3e50", GradientTo: "#4ca1af", Separator: "#e67e22",
			},
			Logo:                "logo.png",
			Brand:               "Manutenção Predial",
			CoverTitle:          "RELATÓRIO DE PROCESSO",
			PhotosPerPage:       1,
			Grouping:            ByPhase,
			Sections:            []Section{SectionDescription, SectionConsiderations},
			ImageBudgetKB:       500,
			MaxImagesPerService: 120,
			Protect:             true,
		},
	}
}

// SkinRegistry resolves skins by id
type SkinRegistry struct {
	skins map[string]Skin
}

// NewSkinRegistry validates and indexes skins
func NewSkinRegistry(skins []Skin) (*SkinRegistry, error) {
	r := &SkinRegistry{skins: make(map[string]Skin, len(skins))}
	for _, s := range skins {
		if err := s.validate(); err != nil {
			return nil, err
		}
		r.skins[s.ID] = s
	}
	return r, nil
}

// LoadSkins returns the built-in skins with overrides from a YAML file
// applied. A file entry with a new id adds a skin; an entry with a known id
// replaces only the fields it sets.
func LoadSkins(path string) (*SkinRegistry, error) {
	skins := BuiltinSkins()
	if path == "" {
		return NewSkinRegistry(skins)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read skins file: %w", err)
	}

	var file struct {
		Skins []yaml.Node `yaml:"skins"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse skins file: %w", err)
	}

	index := make(map[string]int, len(skins))
	for i, s := range skins {
		index[s.ID] = i
	}

	for _, node := range file.Skins {
		var head struct {
			ID string `yaml:"id"`
		}
		if err := node.Decode(&head); err != nil {
			return nil, fmt.Errorf("failed to parse skin entry: %w", err)
		}

		if i, ok := index[head.ID]; ok {
			// decoding onto the existing value keeps unset fields
			if err := node.Decode(&skins[i]); err != nil {
				return nil, fmt.Errorf("failed to apply skin %s: %w", head.ID, err)
			}
			continue
		}

		var s Skin
		if err := node.Decode(&s); err != nil {
			return nil, fmt.Errorf("failed to parse skin %s: %w", head.ID, err)
		}
		index[s.ID] = len(skins)
		skins = append(skins, s)
	}

	return NewSkinRegistry(skins)
}

// Get returns the skin with the given id
func (r *SkinRegistry) Get(id string) (Skin, bool) {
	s, ok := r.skins[id]
	return s, ok
}

// List returns every skin sorted by id
func (r *SkinRegistry) List() []Skin {
	out := make([]Skin, 0, len(r.skins))
	for _, s := range r.skins {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
