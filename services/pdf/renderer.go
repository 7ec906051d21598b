package pdfsvc

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/pkg/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/formationpro/fichepresence/core"
	"github.com/formationpro/fichepresence/core/attendance"
)

const (
	fontFamily = "Helvetica"
	logoName   = "logo"
)

var ErrUnsupportedLogo = errors.New("unsupported logo format")

// Renderer paints attendance sheets as A4 PDF documents.
type Renderer struct {
	logo     []byte
	logoType string
	wordmark string
	compress bool
}

var _ attendance.Renderer = (*Renderer)(nil)

// NewRenderer loads the logo configured in conf.Sheet.LogoPath, if any.
// Without a logo the app name is written in its place.
func NewRenderer(conf *core.Config) (*Renderer, error) {
	r := &Renderer{wordmark: conf.AppName, compress: true}
	if conf.Sheet.LogoPath == "" {
		return r, nil
	}

	logoPath := conf.Sheet.LogoPath
	if !filepath.IsAbs(logoPath) && conf.WorkDir != "" {
		logoPath = filepath.Join(conf.WorkDir, logoPath)
	}
	imgType, err := imageType(logoPath)
	if err != nil {
		return nil, err
	}
	logo, err := os.ReadFile(logoPath)
	if err != nil {
		return nil, errors.Wrap(err, "reading logo")
	}
	r.logo, r.logoType = logo, imgType
	return r, nil
}

func (r *Renderer) Render(sheet attendance.Sheet, generatedAt time.Time) ([]byte, error) {
	layout := NewLayout(sheet, generatedAt, Options{Logo: len(r.logo) > 0, Wordmark: r.wordmark})

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetAutoPageBreak(false, 0)
	doc.SetCompression(r.compress)
	doc.SetCreationDate(generatedAt)
	doc.SetTitle(attendance.FileName(sheet.Meta.Instructor, generatedAt), true)
	doc.SetAuthor(r.wordmark, true)
	doc.SetCreator(r.wordmark, true)
	doc.SetLineWidth(0.2)
	doc.SetDrawColor(0, 0, 0)

	var logoOpts fpdf.ImageOptions
	if layout.Pages[0].Logo != nil {
		logoOpts = fpdf.ImageOptions{ImageType: r.logoType, ReadDpi: true}
		doc.RegisterImageOptionsReader(logoName, logoOpts, bytes.NewReader(r.logo))
	}

	tr := newTranslator()
	for _, page := range layout.Pages {
		doc.AddPage()
		for _, f := range page.Fills {
			doc.SetFillColor(f.Color.R, f.Color.G, f.Color.B)
			doc.Rect(f.X, f.Y, f.W, f.H, "FD")
		}
		for _, l := range page.Lines {
			doc.Line(l.X1, l.Y1, l.X2, l.Y2)
		}
		for _, t := range page.Texts {
			style := ""
			if t.Bold {
				style = "B"
			}
			doc.SetFont(fontFamily, style, t.Size)
			doc.SetXY(t.X, t.Y)
			doc.CellFormat(t.W, t.H, tr(t.Value), "", 0, t.Align, false, 0, "")
		}
		if page.Logo != nil {
			doc.ImageOptions(logoName, page.Logo.X, page.Logo.Y, page.Logo.W, page.Logo.H, false, logoOpts, 0, "")
		}
	}

	buf := new(bytes.Buffer)
	if err := doc.Output(buf); err != nil {
		return nil, errors.Wrap(err, "writing pdf")
	}
	return buf.Bytes(), nil
}

// newTranslator encodes text to cp1252, the encoding of the core fonts.
// Characters cp1252 lacks become "?".
func newTranslator() func(string) string {
	enc := encoding.ReplaceUnsupported(charmap.Windows1252.NewEncoder())
	return func(s string) string {
		out, err := enc.String(s)
		if err != nil {
			return s
		}
		return strings.ReplaceAll(out, "\x1a", "?")
	}
}

func imageType(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "PNG", nil
	case ".jpg", ".jpeg":
		return "JPG", nil
	case ".gif":
		return "GIF", nil
	default:
		return "", errors.Wrapf(ErrUnsupportedLogo, "loading %s", filepath.Base(path))
	}
}
