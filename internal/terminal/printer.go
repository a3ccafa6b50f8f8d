package terminal

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/samvad-hq/whatsnew-harvester/internal/domain"
)

// Printer writes grouped notes as plain terminal text.
type Printer struct {
	out   io.Writer
	date  *color.Color
	title *color.Color
	link  *color.Color
	image *color.Color
}

// NewPrinter builds a printer. plain disables ANSI colors regardless of
// terminal detection.
func NewPrinter(out io.Writer, plain bool) *Printer {
	p := &Printer{
		out:   out,
		date:  color.New(color.FgCyan, color.Bold),
		title: color.New(color.FgWhite, color.Bold),
		link:  color.New(color.Faint),
		image: color.New(color.FgMagenta),
	}
	if plain {
		for _, c := range []*color.Color{p.date, p.title, p.link, p.image} {
			c.DisableColor()
		}
	}
	return p
}

// PrintNotes writes notes in order. A date header is printed only for notes
// that carry a label.
func (p *Printer) PrintNotes(notes []domain.DisplayRecord) error {
	for _, n := range notes {
		if n.HasDateLabel() {
			if _, err := fmt.Fprintf(p.out, "\n%s\n", p.date.Sprintf("── %s ──", n.DateLabel)); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(p.out, "  • %s\n", p.title.Sprint(n.Title)); err != nil {
			return err
		}
		if n.Link != "" {
			if _, err := fmt.Fprintf(p.out, "    %s\n", p.link.Sprint(n.Link)); err != nil {
				return err
			}
		}
		if excerpt := strings.TrimSpace(n.Excerpt); excerpt != "" {
			if _, err := fmt.Fprintf(p.out, "    %s\n", excerpt); err != nil {
				return err
			}
		}
		if n.ImageURL != "" {
			if _, err := fmt.Fprintf(p.out, "    %s %s\n", p.image.Sprint("image:"), n.ImageURL); err != nil {
				return err
			}
		}
	}
	return nil
}

// PrintStatus writes a trailing status line such as "end of feed".
func (p *Printer) PrintStatus(msg string) error {
	_, err := fmt.Fprintf(p.out, "\n%s\n", p.link.Sprint(msg))
	return err
}
