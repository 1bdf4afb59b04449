package badges

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"mapleerp/internal/domain/employees"
	"mapleerp/internal/platform/render"
)

const (
	MaxBatchSize = 50

	PlaceholderName  = "Nome não informado"
	PlaceholderJob   = "Cargo não informado"
	PlaceholderPhoto = "/placeholder.jpg"
	PlaceholderID    = "000"
)

var (
	gradient = render.Gradient{From: render.RGB{R: 102, G: 126, B: 234}, To: render.RGB{R: 118, G: 75, B: 162}}
	border   = render.RGB{R: 204, G: 204, B: 204}
	white    = render.RGB{R: 255, G: 255, B: 255}
	muted    = render.RGB{R: 225, G: 225, B: 240}
)

// Fields are the values printed on a badge after placeholders are applied.
type Fields struct {
	Name     string
	Job      string
	PhotoURL string
	ID       string
}

func FieldsFor(emp employees.Employee) Fields {
	f := Fields{
		Name:     emp.FullName,
		Job:      emp.JobFunctions,
		PhotoURL: emp.PhotoURL,
		ID:       PlaceholderID,
	}
	if f.Name == "" {
		f.Name = PlaceholderName
	}
	if f.Job == "" {
		f.Job = PlaceholderJob
	}
	if f.PhotoURL == "" {
		f.PhotoURL = PlaceholderPhoto
	}
	if emp.ID != 0 {
		f.ID = strconv.FormatInt(emp.ID, 10)
	}
	return f
}

// Renderer turns employees into print-ready badge documents.
type Renderer struct {
	Engine  render.Engine
	Timeout time.Duration
}

func NewRenderer(engine render.Engine, timeout time.Duration) *Renderer {
	return &Renderer{Engine: engine, Timeout: timeout}
}

// Single renders one card sized page.
func (r *Renderer) Single(ctx context.Context, emp employees.Employee) ([]byte, error) {
	return r.render(ctx, SingleDocument(emp))
}

// Batch renders up to MaxBatchSize cards onto A4 pages in the given order.
func (r *Renderer) Batch(ctx context.Context, emps []employees.Employee) ([]byte, error) {
	if len(emps) == 0 || len(emps) > MaxBatchSize {
		return nil, fmt.Errorf("%w: batch must hold between 1 and %d employees", ErrInvalidRequest, MaxBatchSize)
	}
	return r.render(ctx, BatchDocument(emps))
}

func (r *Renderer) render(ctx context.Context, doc render.Document) (out []byte, err error) {
	renderCtx := ctx
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		renderCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	session, err := r.Engine.Open(renderCtx)
	if err != nil {
		return nil, r.failure(ctx, err)
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil && err == nil {
			out, err = nil, r.failure(ctx, closeErr)
		}
	}()

	out, err = session.Render(renderCtx, doc)
	if err != nil {
		return nil, r.failure(ctx, err)
	}
	return out, nil
}

// failure reports a caller cancellation as is and anything else as an
// engine failure.
func (r *Renderer) failure(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%w: %w", ErrRenderingEngine, err)
}

func SingleDocument(emp employees.Employee) render.Document {
	f := FieldsFor(emp)
	pad := render.PxToMM(8)
	photo := 30.0
	textX := pad + photo + 4
	textW := render.CardSize.Width - textX - pad

	return render.Document{
		Title: "Crachá " + f.Name,
		Page:  render.CardSize,
		Blocks: []render.Block{{
			Size:         render.CardSize,
			Background:   &gradient,
			KeepTogether: true,
			Elements: []render.Element{
				render.Photo(pad, (render.CardSize.Height-photo)/2, photo, f.PhotoURL),
				leftText(textX, 15, textW, 7, f.Name, 12, true, white),
				leftText(textX, 23, textW, 6, f.Job, 9, false, white),
				leftText(textX, 31, textW, 5, "ID: "+f.ID, 7, false, muted),
			},
		}},
	}
}

func BatchDocument(emps []employees.Employee) render.Document {
	doc := render.Document{
		Title:  "Crachás",
		Page:   render.A4,
		Margin: render.PxToMM(20),
		Gap:    render.PxToMM(10),
		Blocks: make([]render.Block, 0, len(emps)),
	}
	for _, emp := range emps {
		doc.Blocks = append(doc.Blocks, batchCard(FieldsFor(emp)))
	}
	return doc
}

func batchCard(f Fields) render.Block {
	pad := render.PxToMM(8)
	photo := render.PxToMM(40)
	textX := pad + photo + render.PxToMM(8)
	textW := render.CardSize.Width - textX - pad
	middle := render.CardSize.Height / 2

	return render.Block{
		Size:         render.CardSize,
		Background:   &gradient,
		Border:       &border,
		KeepTogether: true,
		Elements: []render.Element{
			render.Photo(pad, middle-photo/2, photo, f.PhotoURL),
			leftText(textX, middle-7, textW, 5, f.Name, 9, true, white),
			leftText(textX, middle-2, textW, 4, f.Job, 7.5, false, white),
			leftText(textX, middle+2.5, textW, 3.5, "ID: "+f.ID, 6, false, muted),
		},
	}
}

func leftText(x, y, w, h float64, text string, size float64, bold bool, color render.RGB) render.Element {
	el := render.Text(x, y, w, h, text, size, bold, color)
	el.Align = "L"
	return el
}
