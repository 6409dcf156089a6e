package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/jacklau/oppradar/internal/progress"
	"github.com/jacklau/oppradar/internal/pubsub"
)

// progressBar is a simple terminal progress bar that writes to stderr.
type progressBar struct {
	total       int
	current     int
	width       int
	description string
	writer      io.Writer
}

// newProgressBar creates a new progress bar.
func newProgressBar(total int, description string, writer io.Writer) *progressBar {
	return &progressBar{
		total:       total,
		width:       30,
		description: description,
		writer:      writer,
	}
}

// Set moves the bar to n, capped at the total.
func (p *progressBar) Set(n int) {
	p.current = min(max(n, 0), p.total)
	p.render()
}

// Finish completes the progress bar and prints a newline.
func (p *progressBar) Finish() {
	p.current = p.total
	p.render()
	fmt.Fprintln(p.writer)
}

// render draws the progress bar to the writer using carriage return.
func (p *progressBar) render() {
	if p.total <= 0 {
		return
	}

	pct := float64(p.current) / float64(p.total)
	filled := int(pct * float64(p.width))
	if filled > p.width {
		filled = p.width
	}

	bar := strings.Repeat("=", filled) + strings.Repeat(" ", p.width-filled)
	fmt.Fprintf(p.writer, "\r%s [%s] %d/%d", p.description, bar, p.current, p.total)
}

// renderProgress draws tracker snapshots until a terminal event arrives or
// the channel closes. Slow readers may miss intermediate snapshots.
func renderProgress(events <-chan pubsub.Event[progress.State], description string, w io.Writer) {
	var bar *progressBar
	defer func() {
		if bar != nil && bar.current > 0 && bar.current < bar.total {
			fmt.Fprintln(w)
		}
	}()
	for evt := range events {
		st := evt.Payload
		if evt.Type == pubsub.Started || bar == nil {
			bar = newProgressBar(st.Total, description, w)
		}
		switch {
		case evt.Type == pubsub.Failed:
			return
		case evt.Type.Terminal():
			bar.Finish()
			return
		default:
			bar.Set(st.Processed)
		}
	}
}
