package layout

import "math"

// Caption is the text attached to a placed photo.
type Caption struct {
	Label      string
	Date       string
	Comment    string
	LineHeight float64
}

// BlockLayout is the resolved position of a photo block inside its slot:
// label above the image, then date and comment lines below it.
type BlockLayout struct {
	LabelY       float64
	Image        Rect
	DateY        float64
	CommentY     float64
	CommentLines []string
	Height       float64
}

const (
	captionGap   = 8
	maxFitPasses = 3
)

// PlaceImageBlock fits a photo and its caption into slot. The caption height
// is known before the image is sized: comment lines wrap to the rendered
// image width, which depends on the space the lines leave, so the two are
// resolved together in a few passes. The block is centered vertically in
// the slot and never dropped, even when it overflows.
func PlaceImageBlock(measure Measure, img Size, caption Caption, slot Rect) BlockLayout {
	lh := caption.LineHeight
	if lh <= 0 {
		lh = 12
	}

	fixed := lh + captionGap // label
	if caption.Date != "" {
		fixed += lh
	}

	var lines []string
	if caption.Comment != "" {
		lines = WrapText(measure, caption.Comment, slot.W)
	}

	var size Size
	for pass := 0; pass < maxFitPasses; pass++ {
		textH := fixed + float64(len(lines))*lh
		if len(lines) > 0 || caption.Date != "" {
			textH += captionGap
		}
		size = FitImage(img, Size{W: slot.W, H: slot.H - textH}, MinImageSize)
		if caption.Comment == "" {
			break
		}
		rewrapped := WrapText(measure, caption.Comment, size.W)
		if len(rewrapped) == len(lines) {
			lines = rewrapped
			break
		}
		lines = rewrapped
	}

	textH := fixed + float64(len(lines))*lh
	if len(lines) > 0 || caption.Date != "" {
		textH += captionGap
	}
	total := size.H + textH
	top := slot.Y + math.Max(0, (slot.H-total)/2)

	imgY := top + lh + captionGap
	below := imgY + size.H + captionGap
	out := BlockLayout{
		LabelY:       top,
		Image:        Rect{X: slot.X + (slot.W-size.W)/2, Y: imgY, W: size.W, H: size.H},
		CommentLines: lines,
		Height:       total,
	}
	if caption.Date != "" {
		out.DateY = below
		below += lh
	}
	out.CommentY = below
	return out
}

// Slots splits area into perPage equal columns separated by gap.
func Slots(area Rect, perPage int, gap float64) []Rect {
	if perPage < 1 {
		perPage = 1
	}
	w := (area.W - gap*float64(perPage-1)) / float64(perPage)
	slots := make([]Rect, perPage)
	for i := range slots {
		slots[i] = Rect{X: area.X + float64(i)*(w+gap), Y: area.Y, W: w, H: area.H}
	}
	return slots
}

// Chunk returns [start, end) ranges of at most size items covering n.
func Chunk(n, size int) [][2]int {
	if size < 1 {
		size = 1
	}
	var out [][2]int
	for start := 0; start < n; start += size {
		out = append(out, [2]int{start, min(start+size, n)})
	}
	return out
}

// FlowBlocks assigns each block to a page, starting a new page whenever the
// next block would cross the content bottom. A block never spans pages; one
// taller than a whole page gets a page to itself.
func FlowBlocks(page Page, heights []float64) []int {
	budget := page.ContentHeight()
	pages := make([]int, len(heights))
	current, used := 0, 0.0
	for i, h := range heights {
		if used > 0 && used+h > budget+epsilon {
			current++
			used = 0
		}
		pages[i] = current
		used += h
	}
	return pages
}
