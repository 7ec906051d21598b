package pdfsvc

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formationpro/fichepresence/core/attendance"
)

var generatedAt = time.Date(2026, time.October, 17, 10, 30, 0, 0, time.UTC)

func participants(n int) []attendance.Participant {
	ps := make([]attendance.Participant, 0, n)
	for i := 0; i < n; i++ {
		ps = append(ps, attendance.Participant{LastName: fmt.Sprintf("Nom%02d", i), FirstName: fmt.Sprintf("Prenom%02d", i)})
	}
	return ps
}

func slots(n int) []attendance.TimeSlot {
	ss := make([]attendance.TimeSlot, 0, n)
	for i := 0; i < n; i++ {
		ss = append(ss, attendance.TimeSlot{Date: fmt.Sprintf("2026-11-%02d", i+1), Start: "09:00", End: "12:00"})
	}
	return ss
}

func sheetOf(nSlots, nParticipants int) attendance.Sheet {
	return attendance.Sheet{
		Meta:         attendance.SessionMeta{Title: "Excel avancé", TotalDuration: "14", Instructor: "Jean Martin"},
		Slots:        slots(nSlots),
		Participants: participants(nParticipants),
	}
}

func pageTexts(p Page) []string {
	texts := make([]string, 0, len(p.Texts))
	for _, t := range p.Texts {
		texts = append(texts, t.Value)
	}
	return texts
}

// checkSections verifies each slot owns exactly one section whose rows list every participant in order.
func checkSections(t *testing.T, l *Layout, sheet attendance.Sheet) {
	t.Helper()
	require.Len(t, l.Sections, len(sheet.Slots))
	for i, sec := range l.Sections {
		assert.Equal(t, sheet.Slots[i], sec.Slot)
		require.NotEmpty(t, sec.Fragments)

		var order []int
		lastPage := -1
		for _, frag := range sec.Fragments {
			assert.GreaterOrEqual(t, frag.Page, lastPage)
			lastPage = frag.Page
			assert.LessOrEqual(t, frag.Bottom, BottomLimit)
			assert.Contains(t, l.Pages[frag.Page].Fills, Fill{
				Box:   Box{X: LeftEdge, Y: frag.Top, W: RightEdge - LeftEdge, H: RowHeight},
				Color: HeaderFill,
			}, "every fragment has its header row")
			for j, row := range frag.Rows {
				assert.Equal(t, frag.Top+RowHeight+float64(j)*RowHeight, row.Y)
				order = append(order, row.Participant)
			}
		}
		want := make([]int, 0, len(sheet.Participants))
		for j := range sheet.Participants {
			want = append(want, j)
		}
		if len(want) == 0 {
			assert.Empty(t, order)
		} else {
			assert.Equal(t, want, order)
		}
	}
}

func TestNewLayout_SinglePage(t *testing.T) {
	sheet := sheetOf(2, 3)
	sheet.Slots[1] = attendance.TimeSlot{Date: "2026-11-01", Start: "14:00", End: "17:30"}
	l := NewLayout(sheet, generatedAt, Options{Wordmark: "Formation Pro"})

	require.Len(t, l.Pages, 1)
	assert.Equal(t, []string{
		"Formation : Excel avancé",
		"Durée totale : 14",
		"Formateur : Jean Martin",
		"Dates : 1 novembre 2026, 1 novembre 2026",
	}, l.Meta)
	checkSections(t, l, sheet)

	assert.Equal(t, "Pour le 1 novembre 2026, Début : 09:00, Fin : 12:00", l.Sections[0].Caption)
	assert.Equal(t, "Pour le 1 novembre 2026, Début : 14:00, Fin : 17:30", l.Sections[1].Caption)

	first := l.Sections[0].Fragments[0]
	metaEnd := MetaTop + 4*MetaLineHeight + MetaGap
	assert.Equal(t, metaEnd+CaptionHeight, first.Top)
	assert.Equal(t, first.Top+RowHeight+3*RowHeight, first.Bottom)

	second := l.Sections[1].Fragments[0]
	assert.Equal(t, first.Bottom+SectionGap+CaptionHeight, second.Top, "cursor advances by rows and section gap")

	texts := pageTexts(l.Pages[0])
	assert.Contains(t, texts, "Feuille de présence")
	assert.Contains(t, texts, "Formation Pro")
	assert.Contains(t, texts, "Générée le 17/10/2026 - Page 1/1")
	assert.Contains(t, texts, "Signature formateur")
	assert.Nil(t, l.Pages[0].Logo)
}

func TestNewLayout_Separators(t *testing.T) {
	l := NewLayout(sheetOf(1, 3), generatedAt, Options{})
	frag := l.Sections[0].Fragments[0]
	lines := l.Pages[0].Lines

	for _, row := range frag.Rows {
		assert.Contains(t, lines, Line{LeftEdge, row.Y + RowHeight, Columns[3], row.Y + RowHeight})
	}

	var instructorSeps []Line
	for _, ln := range lines {
		if ln.X1 == Columns[3] && ln.X2 == RightEdge {
			instructorSeps = append(instructorSeps, ln)
		}
	}
	assert.Equal(t, []Line{{Columns[3], frag.Bottom, RightEdge, frag.Bottom}}, instructorSeps, "only under the last row")

	for _, x := range Columns[1:] {
		assert.Contains(t, lines, Line{x, frag.Top, x, frag.Bottom})
	}
}

func TestNewLayout_PageBreaks(t *testing.T) {
	t.Run("grid cut across pages", func(t *testing.T) {
		sheet := sheetOf(1, 30)
		l := NewLayout(sheet, generatedAt, Options{})

		require.Len(t, l.Pages, 2)
		checkSections(t, l, sheet)

		frags := l.Sections[0].Fragments
		require.Len(t, frags, 2)
		assert.Equal(t, 0, frags[0].Page)
		assert.Len(t, frags[0].Rows, 17)
		assert.Equal(t, 1, frags[1].Page)
		assert.Equal(t, TopMargin, frags[1].Top)
		assert.Len(t, frags[1].Rows, 13)
		assert.Equal(t, 17, frags[1].Rows[0].Participant)

		for i, p := range l.Pages {
			texts := pageTexts(p)
			assert.Contains(t, texts, "Nom", "header row on page %d", i+1)
			assert.Contains(t, texts, "Signature formateur", "header row on page %d", i+1)
			assert.Contains(t, texts, fmt.Sprintf("Générée le 17/10/2026 - Page %d/2", i+1))
		}
		assert.NotContains(t, pageTexts(l.Pages[1]), "Feuille de présence")
	})

	t.Run("many slots", func(t *testing.T) {
		sheet := sheetOf(12, 8)
		l := NewLayout(sheet, generatedAt, Options{})

		assert.Greater(t, len(l.Pages), 1)
		checkSections(t, l, sheet)
		for i, p := range l.Pages {
			for _, txt := range p.Texts {
				if txt.Size != FooterFontSize {
					assert.LessOrEqual(t, txt.Y+txt.H, BottomLimit, "page %d: %q", i+1, txt.Value)
				}
			}
		}
	})

	t.Run("caption stays with its grid", func(t *testing.T) {
		sheet := sheetOf(20, 1)
		l := NewLayout(sheet, generatedAt, Options{})
		checkSections(t, l, sheet)

		for _, sec := range l.Sections {
			frag := sec.Fragments[0]
			var captionPage = -1
			for i, p := range l.Pages {
				for _, txt := range p.Texts {
					if txt.Value == sec.Caption && txt.Y == frag.Top-CaptionHeight {
						captionPage = i
					}
				}
			}
			assert.Equal(t, frag.Page, captionPage)
			assert.Len(t, sec.Fragments, 1)
		}
	})
}

func TestNewLayout_Blank(t *testing.T) {
	tests := []struct {
		name  string
		sheet attendance.Sheet
	}{
		{"empty", attendance.Sheet{}},
		{"default form", attendance.NewSheet(generatedAt)},
		{"no participants", attendance.Sheet{Slots: slots(2)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLayout(tt.sheet, generatedAt, Options{Logo: true})
			require.Len(t, l.Pages, 1)
			assert.Equal(t, &logoBox, l.Pages[0].Logo)
			checkSections(t, l, tt.sheet)
		})
	}

	l := NewLayout(attendance.Sheet{Slots: slots(1)}, generatedAt, Options{})
	frag := l.Sections[0].Fragments[0]
	assert.Equal(t, frag.Top+RowHeight, frag.Bottom, "header row only")
}

func TestWrap(t *testing.T) {
	dates := make([]string, 0, 10)
	for i := 1; i <= 10; i++ {
		dates = append(dates, fmt.Sprintf("%d septembre 2026", i+10))
	}
	lines := wrap("Dates : ", dates, ", ")
	require.Len(t, lines, 3)
	assert.Equal(t, "Dates : 11 septembre 2026, 12 septembre 2026, 13 septembre 2026, 14 septembre 2026,", lines[0])
	assert.Equal(t, "15 septembre 2026, 16 septembre 2026, 17 septembre 2026, 18 septembre 2026,", lines[1])
	assert.Equal(t, "19 septembre 2026, 20 septembre 2026", lines[2])

	assert.Equal(t, []string{"Formation : "}, wrap("Formation : ", nil, " "))
}
