package composer

import (
	"sort"
	"strings"
	"unicode"

	"github.com/maruel/natural"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const otherGroupTitle = "Outros registros"

// DedupeServices keeps the first service of every id and returns the ids
// that were collapsed. Services without an id are never merged. Running it
// on its own output is a no-op.
func DedupeServices(services []Service) ([]Service, []string) {
	seen := make(map[string]bool, len(services))
	out := make([]Service, 0, len(services))
	var dropped []string
	for _, s := range services {
		if s.ID != "" {
			if seen[s.ID] {
				dropped = append(dropped, s.ID)
				continue
			}
			seen[s.ID] = true
		}
		out = append(out, s)
	}
	return out, dropped
}

// SortByFilename orders photos by upload filename with numeric-aware
// comparison ("foto2" before "foto10"). Ties keep upload order.
func SortByFilename(images []Image) {
	sort.SliceStable(images, func(i, j int) bool {
		return natural.Less(images[i].Filename, images[j].Filename)
	})
}

// PhotoGroup is a run of photos printed under one banner
type PhotoGroup struct {
	Key     string
	Title   string
	Service *Service
	Phase   Phase
	Images  []int // indexes into Report.Images
}

// GroupImages assigns photos to their (deduplicated) services in service
// order. Every service yields a group even without photos; photos pointing
// at no known service are collected in a trailing group.
func GroupImages(services []Service, images []Image) []PhotoGroup {
	groups := make([]PhotoGroup, len(services))
	byID := make(map[string]int, len(services))
	for i := range services {
		groups[i] = PhotoGroup{Key: services[i].ID, Title: services[i].Name, Service: &services[i]}
		if services[i].ID != "" {
			byID[services[i].ID] = i
		}
	}

	var orphans []int
	for idx, img := range images {
		if g, ok := byID[img.ServiceID]; ok {
			groups[g].Images = append(groups[g].Images, idx)
			continue
		}
		orphans = append(orphans, idx)
	}
	if len(orphans) > 0 {
		groups = append(groups, PhotoGroup{Key: "_outros", Title: otherGroupTitle, Images: orphans})
	}

	for i := range groups {
		sortIndexes(groups[i].Images, images)
	}
	return groups
}

// GroupByPhase splits photos into antes, durante and depois groups. Photos
// without a phase count as durante. Empty phases are omitted.
func GroupByPhase(images []Image) []PhotoGroup {
	buckets := make(map[Phase][]int, len(Phases))
	for idx, img := range images {
		p := img.Phase
		if p == "" {
			p = PhaseDuring
		}
		buckets[p] = append(buckets[p], idx)
	}

	var groups []PhotoGroup
	for _, p := range Phases {
		if len(buckets[p]) == 0 {
			continue
		}
		sortIndexes(buckets[p], images)
		groups = append(groups, PhotoGroup{
			Key:    string(p),
			Title:  "Fase: " + strings.ToUpper(string(p[:1])) + string(p[1:]),
			Phase:  p,
			Images: buckets[p],
		})
	}
	return groups
}

func sortIndexes(idx []int, images []Image) {
	sort.SliceStable(idx, func(a, b int) bool {
		return natural.Less(images[idx[a]].Filename, images[idx[b]].Filename)
	})
}

// Slugify folds accents and keeps [a-z0-9-]
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
