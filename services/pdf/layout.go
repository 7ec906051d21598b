// Package pdfsvc lays out attendance sheets and paints them as PDF documents.
package pdfsvc

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/formationpro/fichepresence/core/attendance"
)

// Page geometry, in mm (A4 portrait).
const (
	PageWidth   = 210.0
	PageHeight  = 297.0
	LeftEdge    = 10.0
	RightEdge   = 200.0
	TopMargin   = 10.0
	BottomLimit = 280.0

	RowHeight      = 10.0
	SectionGap     = 15.0
	CaptionHeight  = 8.0
	MetaTop        = 50.0
	MetaLineHeight = 7.0
	MetaGap        = 8.0

	TitleFontSize  = 16.0
	BodyFontSize   = 11.0
	GridFontSize   = 10.0
	FooterFontSize = 8.0

	metaLineMaxChars = 90
)

var (
	// Columns are the left x of the grid columns: last name, first name, signature, instructor signature.
	Columns = [4]float64{10, 55, 100, 150}
	Headers = [4]string{"Nom", "Prénom", "Signature", "Signature formateur"}

	HeaderFill = Color{220, 220, 220}

	logoBox  = Box{X: 150, Y: 10, W: 50, H: 20}
	titleBox = Box{X: LeftEdge, Y: 32, W: RightEdge - LeftEdge, H: 10}
)

type (
	Color struct{ R, G, B int }

	Box struct{ X, Y, W, H float64 }

	// Text is a single line written in a cell. Y is the top of the cell.
	Text struct {
		Box
		Align string // L, C or R
		Size  float64
		Bold  bool
		Value string
	}

	Line struct{ X1, Y1, X2, Y2 float64 }

	// Fill is a shaded, bordered rectangle.
	Fill struct {
		Box
		Color Color
	}

	Page struct {
		Fills []Fill
		Lines []Line
		Texts []Text
		Logo  *Box
	}

	// Row is a participant row of a grid.
	Row struct {
		Participant int // index in Sheet.Participants
		Y           float64
	}

	// Fragment is the part of a grid drawn on a single page, under its own header row.
	Fragment struct {
		Page   int // index in Layout.Pages
		Top    float64
		Bottom float64
		Rows   []Row
	}

	// Section is the block of a time slot: a caption and its attendance grid.
	Section struct {
		Slot      attendance.TimeSlot
		Caption   string
		Fragments []Fragment
	}

	Options struct {
		Logo     bool   // a logo is drawn in the top right corner
		Wordmark string // written instead of the logo
	}

	Layout struct {
		Pages    []Page
		Meta     []string
		Sections []Section
	}
)

// NewLayout positions every element of the sheet's document.
// Blocks that would cross BottomLimit move to a new page; a grid cut by a page
// break repeats its header row on the new page.
func NewLayout(sheet attendance.Sheet, generatedAt time.Time, opts Options) *Layout {
	b := &builder{l: &Layout{}}
	b.newPage()

	// header
	if opts.Logo {
		logo := logoBox
		b.page().Logo = &logo
	} else if opts.Wordmark != "" {
		b.text(Text{Box: logoBox, Align: "R", Size: TitleFontSize, Bold: true, Value: opts.Wordmark})
	}
	b.text(Text{Box: titleBox, Align: "C", Size: TitleFontSize, Bold: true, Value: "Feuille de présence"})

	// metadata
	b.l.Meta = metaLines(sheet)
	b.y = MetaTop
	for _, line := range b.l.Meta {
		b.ensure(MetaLineHeight)
		b.text(Text{
			Box:   Box{X: LeftEdge, Y: b.y, W: RightEdge - LeftEdge, H: MetaLineHeight},
			Align: "L",
			Size:  BodyFontSize,
			Value: line,
		})
		b.y += MetaLineHeight
	}
	b.y += MetaGap

	for _, slot := range sheet.Slots {
		b.section(slot, sheet.Participants)
	}

	b.footers(generatedAt)
	return b.l
}

// Caption describes a time slot above its grid.
func Caption(slot attendance.TimeSlot) string {
	return fmt.Sprintf("Pour le %s, Début : %s, Fin : %s", attendance.FormatLongDate(slot.Date), slot.Start, slot.End)
}

func metaLines(sheet attendance.Sheet) []string {
	var lines []string
	lines = append(lines, wrap("Formation : ", strings.Fields(sheet.Meta.Title), " ")...)
	lines = append(lines, wrap("Durée totale : ", strings.Fields(sheet.Meta.TotalDuration), " ")...)
	lines = append(lines, wrap("Formateur : ", strings.Fields(sheet.Meta.Instructor), " ")...)

	dates := make([]string, 0, len(sheet.Slots))
	for _, slot := range sheet.Slots {
		dates = append(dates, attendance.FormatLongDate(slot.Date))
	}
	lines = append(lines, wrap("Dates : ", dates, ", ")...)
	return lines
}

// wrap joins tokens after prefix, starting a new line before a line gets longer than metaLineMaxChars.
func wrap(prefix string, tokens []string, sep string) []string {
	var lines []string
	curr := prefix
	empty := true
	for _, tok := range tokens {
		if empty {
			curr += tok
			empty = false
			continue
		}
		if utf8.RuneCountInString(curr+sep+tok) > metaLineMaxChars {
			lines = append(lines, curr+strings.TrimRight(sep, " "))
			curr = tok
			continue
		}
		curr += sep + tok
	}
	return append(lines, curr)
}

type builder struct {
	l *Layout
	y float64
}

func (b *builder) newPage() {
	b.l.Pages = append(b.l.Pages, Page{})
	b.y = TopMargin
}

func (b *builder) page() *Page {
	return &b.l.Pages[len(b.l.Pages)-1]
}

func (b *builder) pageIndex() int {
	return len(b.l.Pages) - 1
}

// ensure starts a new page when h more mm do not fit on the current one.
func (b *builder) ensure(h float64) {
	if b.y+h > BottomLimit {
		b.newPage()
	}
}

func (b *builder) text(t Text) {
	p := b.page()
	p.Texts = append(p.Texts, t)
}

func (b *builder) line(x1, y1, x2, y2 float64) {
	p := b.page()
	p.Lines = append(p.Lines, Line{X1: x1, Y1: y1, X2: x2, Y2: y2})
}

func (b *builder) section(slot attendance.TimeSlot, participants []attendance.Participant) {
	sec := Section{Slot: slot, Caption: Caption(slot)}

	// keep the caption with the header row and the first row
	need := CaptionHeight + RowHeight
	if len(participants) > 0 {
		need += RowHeight
	}
	b.ensure(need)

	b.text(Text{
		Box:   Box{X: LeftEdge, Y: b.y, W: RightEdge - LeftEdge, H: CaptionHeight},
		Align: "L",
		Size:  BodyFontSize,
		Bold:  true,
		Value: sec.Caption,
	})
	b.y += CaptionHeight

	frag := b.headerRow()
	for i, p := range participants {
		if b.y+RowHeight > BottomLimit {
			sec.Fragments = append(sec.Fragments, b.closeFragment(frag))
			b.newPage()
			frag = b.headerRow()
		}
		row := Row{Participant: i, Y: frag.Bottom}
		b.cells(row.Y, p)
		frag.Rows = append(frag.Rows, row)
		frag.Bottom += RowHeight
		b.y = frag.Bottom
	}
	sec.Fragments = append(sec.Fragments, b.closeFragment(frag))

	b.y += SectionGap
	b.l.Sections = append(b.l.Sections, sec)
}

// headerRow draws the shaded column labels at the cursor and opens a grid fragment under it.
func (b *builder) headerRow() Fragment {
	top := b.y
	p := b.page()
	p.Fills = append(p.Fills, Fill{
		Box:   Box{X: LeftEdge, Y: top, W: RightEdge - LeftEdge, H: RowHeight},
		Color: HeaderFill,
	})
	for i, h := range Headers {
		b.text(Text{Box: cellBox(i, top), Align: "L", Size: GridFontSize, Bold: true, Value: h})
	}
	b.y = top + RowHeight
	return Fragment{Page: b.pageIndex(), Top: top, Bottom: b.y}
}

func (b *builder) cells(y float64, p attendance.Participant) {
	b.text(Text{Box: cellBox(0, y), Align: "L", Size: GridFontSize, Value: p.LastName})
	b.text(Text{Box: cellBox(1, y), Align: "L", Size: GridFontSize, Value: p.FirstName})
}

// closeFragment draws the row separators and the column separators of frag.
// The instructor signature column only gets closed under the fragment's last row.
func (b *builder) closeFragment(frag Fragment) Fragment {
	for i, row := range frag.Rows {
		bottom := row.Y + RowHeight
		b.line(LeftEdge, bottom, Columns[3], bottom)
		if i == len(frag.Rows)-1 {
			b.line(Columns[3], bottom, RightEdge, bottom)
		}
	}
	for _, x := range Columns[1:] {
		b.line(x, frag.Top, x, frag.Bottom)
	}
	return frag
}

func (b *builder) footers(generatedAt time.Time) {
	total := len(b.l.Pages)
	for i := range b.l.Pages {
		p := &b.l.Pages[i]
		p.Texts = append(p.Texts, Text{
			Box:   Box{X: LeftEdge, Y: BottomLimit + 5, W: RightEdge - LeftEdge, H: 6},
			Align: "C",
			Size:  FooterFontSize,
			Value: fmt.Sprintf("Générée le %s - Page %d/%d", attendance.FormatDisplayDate(generatedAt), i+1, total),
		})
	}
}

func cellBox(col int, y float64) Box {
	right := RightEdge
	if col < len(Columns)-1 {
		right = Columns[col+1]
	}
	return Box{X: Columns[col] + 2, Y: y, W: right - Columns[col] - 4, H: RowHeight}
}
