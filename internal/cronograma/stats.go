package cronograma

// Stats summarizes a schedule by status
type Stats struct {
	Total      int     `json:"total"`
	Pending    int     `json:"pending"`
	InProgress int     `json:"inProgress"`
	Done       int     `json:"done"`
	Other      int     `json:"other"`
	Percent    float64 `json:"percent"`
}

// ComputeStats counts items per status. Percent is the share of done items
// over all items, 0 for an empty schedule.
func ComputeStats(items []Item) Stats {
	s := Stats{Total: len(items)}
	for _, item := range items {
		switch item.Status {
		case StatusPending:
			s.Pending++
		case StatusInProgress:
			s.InProgress++
		case StatusDone:
			s.Done++
		default:
			s.Other++
		}
	}
	if s.Total > 0 {
		s.Percent = float64(s.Done) * 100 / float64(s.Total)
	}
	return s
}

// FillWidth is the filled part of a progress bar barWidth wide
func (s Stats) FillWidth(barWidth float64) float64 {
	return barWidth * s.Percent / 100
}
