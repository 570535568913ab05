package cmd

import (
	"github.com/alantheprice/consolepane/pkg/console"
	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
)

const (
	tabWidth         = 4
	popupVisibleRows = 3
)

// surface is the part of tcell.Screen the renderer draws on.
type surface interface {
	Size() (int, int)
	Clear()
	SetContent(x, y int, mainc rune, combc []rune, style tcell.Style)
	ShowCursor(x, y int)
	HideCursor()
}

type cell struct {
	r     rune
	style tcell.Style
	width int
}

// layout is text wrapped to a fixed width with the caret located in it.
type layout struct {
	rows      [][]cell
	cursorRow int
	cursorCol int
}

// layoutRuns wraps runs to width columns. Tabs expand to the next tab stop
// and wide runes take two cells.
func layoutRuns(runs []console.Run, caret, width int) layout {
	if width < 1 {
		width = 1
	}
	l := layout{rows: [][]cell{nil}}
	col, offset := 0, 0
	newline := func() {
		l.rows = append(l.rows, nil)
		col = 0
	}
	mark := func() {
		if offset == caret {
			l.cursorRow, l.cursorCol = len(l.rows)-1, col
		}
	}

	for _, run := range runs {
		for _, r := range run.Text {
			if r == '\n' {
				mark()
				newline()
				offset++
				continue
			}

			w := runewidth.RuneWidth(r)
			if r == '\t' {
				w = tabWidth - col%tabWidth
			} else if w < 1 {
				r, w = '?', 1
			}
			if col+w > width && col > 0 {
				newline()
			}
			mark()

			row := len(l.rows) - 1
			if r == '\t' {
				for i := 0; i < w; i++ {
					l.rows[row] = append(l.rows[row], cell{r: ' ', style: run.Style, width: 1})
				}
			} else {
				l.rows[row] = append(l.rows[row], cell{r: r, style: run.Style, width: w})
			}
			col += w
			offset++
		}
	}

	mark()
	if l.cursorCol >= width {
		newline()
		l.cursorRow, l.cursorCol = len(l.rows)-1, 0
	}
	return l
}

// drawRows paints rows starting at screen row top and returns how many it
// drew.
func drawRows(s surface, rows [][]cell, left, top, maxRows int) int {
	n := 0
	for ; n < len(rows) && n < maxRows; n++ {
		x := left
		for _, c := range rows[n] {
			s.SetContent(x, top+n, c.r, nil, c.style)
			x += c.width
		}
	}
	return n
}

func drawText(s surface, x, y, width int, text string, style tcell.Style) {
	text = runewidth.Truncate(text, width, "…")
	for _, r := range text {
		s.SetContent(x, y, r, nil, style)
		x += max(runewidth.RuneWidth(r), 1)
	}
}

// drawSnapshot renders the console with the status line at the bottom and
// an open popup docked above it.
func drawSnapshot(s surface, snap console.Snapshot, status string) {
	s.Clear()
	width, height := s.Size()
	if width <= 0 || height <= 0 {
		return
	}

	bodyHeight := height - 1
	var popup layout
	popupRows := 0
	if snap.PopupOpen && width > 2 {
		popup = layoutRuns([]console.Run{{Text: snap.PopupText}}, snap.PopupCaret, width-2)
		popupRows = min(len(popup.rows), popupVisibleRows)
		bodyHeight -= popupRows + 2
	}

	cursorX, cursorY := -1, -1
	if bodyHeight > 0 {
		body := layoutRuns(snap.Runs, snap.Caret, width)
		first := max(0, len(body.rows)-bodyHeight)
		drawRows(s, body.rows[first:], 0, 0, bodyHeight)
		if !snap.PopupOpen {
			cursorX, cursorY = body.cursorCol, body.cursorRow-first
		}
	}

	if popupRows > 0 {
		top := max(bodyHeight, 0)
		drawBox(s, top, width, popupRows+2)
		drawText(s, 2, top, width-4, " input requested ", tcell.StyleDefault.Bold(true))
		first := max(0, popup.cursorRow-popupRows+1)
		drawRows(s, popup.rows[first:], 1, top+1, popupRows)
		cursorX, cursorY = popup.cursorCol+1, top+1+popup.cursorRow-first
	}

	drawText(s, 0, height-1, width, status, tcell.StyleDefault.Reverse(true))

	if cursorY >= 0 && cursorY < height-1 && cursorX < width {
		s.ShowCursor(cursorX, cursorY)
	} else {
		s.HideCursor()
	}
}

func drawBox(s surface, top, width, height int) {
	style := tcell.StyleDefault
	bottom, right := top+height-1, width-1
	for x := 1; x < right; x++ {
		s.SetContent(x, top, tcell.RuneHLine, nil, style)
		s.SetContent(x, bottom, tcell.RuneHLine, nil, style)
	}
	for y := top + 1; y < bottom; y++ {
		s.SetContent(0, y, tcell.RuneVLine, nil, style)
		s.SetContent(right, y, tcell.RuneVLine, nil, style)
	}
	s.SetContent(0, top, tcell.RuneULCorner, nil, style)
	s.SetContent(right, top, tcell.RuneURCorner, nil, style)
	s.SetContent(0, bottom, tcell.RuneLLCorner, nil, style)
	s.SetContent(right, bottom, tcell.RuneLRCorner, nil, style)
}
