package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/rs/zerolog"
)

const (
	defaultFetchTimeout  = 10 * time.Second
	defaultMaxImageBytes = 8 * 1024 * 1024
	prefetchLimit        = 8
	minFontSize          = 5.0
)

var ErrSessionClosed = errors.New("render session closed")

// PDFEngine renders documents to PDF with gofpdf. Photos referenced by URL
// are downloaded once per session.
type PDFEngine struct {
	FetchTimeout  time.Duration
	MaxImageBytes int64
	Transport     http.RoundTripper
}

func NewPDFEngine(fetchTimeout time.Duration) *PDFEngine {
	return &PDFEngine{FetchTimeout: fetchTimeout, MaxImageBytes: defaultMaxImageBytes}
}

func (e *PDFEngine) Open(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	timeout := e.FetchTimeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	maxBytes := e.MaxImageBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxImageBytes
	}
	transport := e.Transport
	if transport == nil {
		transport = http.DefaultTransport.(*http.Transport).Clone()
	}

	return &pdfSession{
		client:   &http.Client{Timeout: timeout, Transport: transport},
		maxBytes: maxBytes,
		images:   map[string]*fetchedPhoto{},
	}, nil
}

type pdfSession struct {
	client   *http.Client
	maxBytes int64

	mu     sync.Mutex
	images map[string]*fetchedPhoto
	closed bool
}

func (s *pdfSession) Render(ctx context.Context, doc Document) ([]byte, error) {
	if s.isClosed() {
		return nil, ErrSessionClosed
	}
	if doc.Page.Width <= 0 || doc.Page.Height <= 0 {
		return nil, fmt.Errorf("invalid page size %.2fx%.2f", doc.Page.Width, doc.Page.Height)
	}

	if err := s.prefetch(ctx, doc); err != nil {
		return nil, err
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           gofpdf.SizeType{Wd: doc.Page.Width, Ht: doc.Page.Height},
	})
	pdf.SetMargins(doc.Margin, doc.Margin, doc.Margin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("maple-employees", false)
	if doc.Title != "" {
		pdf.SetTitle(doc.Title, true)
	}
	if !doc.CreatedAt.IsZero() {
		pdf.SetCreationDate(doc.CreatedAt)
		pdf.SetCatalogSort(true)
	}

	names := s.registerImages(ctx, pdf)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	page := -1
	for i, at := range layout(doc) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for page < at.Page {
			pdf.AddPage()
			page++
		}
		drawBlock(pdf, tr, names, doc.Blocks[i], at.X, at.Y)
	}
	if page < 0 {
		pdf.AddPage()
	}

	if pdf.Err() {
		return nil, fmt.Errorf("pdf: %w", pdf.Error())
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf output: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *pdfSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.images = nil
	s.client.CloseIdleConnections()
	return nil
}

func (s *pdfSession) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// registerImages hands every fetched photo to gofpdf and returns the image
// name per URL. Photos gofpdf cannot decode are left out and drawn as
// placeholders.
func (s *pdfSession) registerImages(ctx context.Context, pdf *gofpdf.Fpdf) map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := map[string]string{}
	for i, url := range slices.Sorted(maps.Keys(s.images)) {
		img := s.images[url]
		if img == nil {
			continue
		}
		name := fmt.Sprintf("photo%d", i)
		pdf.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: img.imageType}, bytes.NewReader(img.data))
		if pdf.Err() {
			zerolog.Ctx(ctx).Warn().Err(pdf.Error()).Str("url", url).Msg("photo could not be decoded")
			pdf.ClearError()
			continue
		}
		names[url] = name
	}
	return names
}

func drawBlock(pdf *gofpdf.Fpdf, tr func(string) string, images map[string]string, block Block, x, y float64) {
	w, h := block.Size.Width, block.Size.Height

	if block.Background != nil {
		from, to := block.Background.From, block.Background.To
		pdf.LinearGradient(x, y, w, h, from.R, from.G, from.B, to.R, to.G, to.B, 0, 0, 1, 1)
	}
	if block.Border != nil {
		pdf.SetDrawColor(block.Border.R, block.Border.G, block.Border.B)
		pdf.SetLineWidth(0.3)
		pdf.Rect(x, y, w, h, "D")
	}

	for _, el := range block.Elements {
		switch el.Kind {
		case ImageElement:
			drawPhoto(pdf, images[el.ImageURL], x+el.X, y+el.Y, el)
		case TextElement:
			drawText(pdf, tr, x+el.X, y+el.Y, el)
		}
	}
}

func drawPhoto(pdf *gofpdf.Fpdf, name string, x, y float64, el Element) {
	cx, cy, r := x+el.W/2, y+el.H/2, el.W/2

	if name == "" {
		pdf.SetFillColor(224, 224, 224)
		pdf.SetDrawColor(255, 255, 255)
		pdf.SetLineWidth(0.6)
		if el.Circle {
			pdf.Circle(cx, cy, r, "FD")
		} else {
			pdf.Rect(x, y, el.W, el.H, "FD")
		}
		pdf.SetFont("Helvetica", "B", 6)
		pdf.SetTextColor(140, 140, 140)
		pdf.SetXY(x, cy-1.5)
		pdf.CellFormat(el.W, 3, "FOTO", "", 0, "C", false, 0, "")
		return
	}

	if el.Circle {
		pdf.ClipCircle(cx, cy, r, false)
	}
	pdf.ImageOptions(name, x, y, el.W, el.H, false, gofpdf.ImageOptions{}, 0, "")
	if el.Circle {
		pdf.ClipEnd()
		pdf.SetDrawColor(255, 255, 255)
		pdf.SetLineWidth(0.6)
		pdf.Circle(cx, cy, r, "D")
	}
}

func drawText(pdf *gofpdf.Fpdf, tr func(string) string, x, y float64, el Element) {
	style := ""
	if el.Bold {
		style = "B"
	}
	size := el.FontSize
	if size <= 0 {
		size = 8
	}
	text := tr(el.Text)

	pdf.SetFont("Helvetica", style, size)
	for size > minFontSize && pdf.GetStringWidth(text) > el.W {
		size -= 0.5
		pdf.SetFontSize(size)
	}
	if pdf.GetStringWidth(text) > el.W {
		for len(text) > 0 && pdf.GetStringWidth(text+"...") > el.W {
			text = text[:len(text)-1]
		}
		text += "..."
	}

	align := el.Align
	if align == "" {
		align = "L"
	}
	pdf.SetTextColor(el.Color.R, el.Color.G, el.Color.B)
	pdf.SetXY(x, y)
	pdf.CellFormat(el.W, el.H, text, "", 0, align+"M", false, 0, "")
}
