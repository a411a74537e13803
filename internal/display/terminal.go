package display

import (
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/efejjota/wasmcanvas/internal/page"
	"golang.org/x/term"
)

// Ramp maps brightness to characters, darkest first.
const Ramp = " .:a@#"

var headerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("#FAFAFA")).
	Background(lipgloss.Color("#7D56F4")).
	Padding(0, 1)

// Char returns the ramp character for one RGBA8 pixel. Brightness is the
// largest channel scaled by alpha.
func Char(r, g, b, a uint8) byte {
	bright := max(int(r), int(g), int(b)) * int(a) / 255
	return Ramp[bright*len(Ramp)/256]
}

// ASCII renders img with one character pair per factor×factor block.
// Blocks are averaged per channel first; edge blocks average what is
// there.
func ASCII(img *image.RGBA, factor int) []string {
	factor = max(factor, 1)
	b := img.Bounds()
	cols := (b.Dx() + factor - 1) / factor
	rows := (b.Dy() + factor - 1) / factor

	lines := make([]string, rows)
	line := make([]byte, 2*cols)
	for by := 0; by < rows; by++ {
		for bx := 0; bx < cols; bx++ {
			var sum [4]int
			n := 0
			for y := by * factor; y < min((by+1)*factor, b.Dy()); y++ {
				for x := bx * factor; x < min((bx+1)*factor, b.Dx()); x++ {
					i := img.PixOffset(b.Min.X+x, b.Min.Y+y)
					for c := range sum {
						sum[c] += int(img.Pix[i+c])
					}
					n++
				}
			}
			ch := Char(uint8(sum[0]/n), uint8(sum[1]/n), uint8(sum[2]/n), uint8(sum[3]/n))
			line[2*bx] = ch
			line[2*bx+1] = ch
		}
		lines[by] = string(line)
	}
	return lines
}

// Terminal redraws canvases in place as ASCII art.
type Terminal struct {
	out io.Writer
	fd  int

	// Cols and Rows fix the drawing area; zero asks the terminal.
	Cols, Rows int

	lines int
}

// NewTerminal draws to out. fd is queried for the terminal size.
func NewTerminal(out io.Writer, fd int) *Terminal {
	return &Terminal{out: out, fd: fd}
}

func (t *Terminal) size() (int, int) {
	if t.Cols > 0 && t.Rows > 0 {
		return t.Cols, t.Rows
	}
	if term.IsTerminal(t.fd) {
		if w, h, err := term.GetSize(t.fd); err == nil && w > 0 && h > 0 {
			return w, h
		}
	}
	return 80, 24
}

// Draw renders every canvas below a caption, stacked, over the previous
// frame.
func (t *Terminal) Draw(canvases []*page.Element) error {
	if len(canvases) == 0 {
		return nil
	}
	cols, rows := t.size()
	perCanvas := max(1, rows/len(canvases)-1)

	var sb strings.Builder
	if t.lines > 0 {
		fmt.Fprintf(&sb, "\033[%dA\033[%dD", t.lines, cols)
	}
	lines := 0
	for _, el := range canvases {
		img := el.Canvas().Snapshot()
		w, h := img.Bounds().Dx(), img.Bounds().Dy()
		factor := max(1, ceilDiv(2*w, cols), ceilDiv(h, perCanvas))

		sb.WriteString(headerStyle.Render(fmt.Sprintf("%s %dx%d", el.ID, w, h)))
		sb.WriteString("\033[K\n")
		lines++
		for _, line := range ASCII(img, factor) {
			sb.WriteString(line)
			sb.WriteString("\033[K\n")
			lines++
		}
	}
	t.lines = lines

	_, err := io.WriteString(t.out, sb.String())
	return err
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
