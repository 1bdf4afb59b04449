package badges

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mapleerp/internal/domain/employees"
	"mapleerp/internal/platform/render"
)

type fakeEngine struct {
	mu        sync.Mutex
	openErr   error
	renderErr error
	block     bool
	opened    int
	closed    int
	documents []render.Document
}

func (e *fakeEngine) Open(ctx context.Context) (render.Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.openErr != nil {
		return nil, e.openErr
	}
	e.opened++
	return &fakeSession{engine: e}, nil
}

func (e *fakeEngine) balanced() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opened == e.closed
}

type fakeSession struct {
	engine *fakeEngine
}

func (s *fakeSession) Render(ctx context.Context, doc render.Document) ([]byte, error) {
	s.engine.mu.Lock()
	s.engine.documents = append(s.engine.documents, doc)
	block, err := s.engine.block, s.engine.renderErr
	s.engine.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	return []byte("%PDF-1.3 fake"), nil
}

func (s *fakeSession) Close() error {
	s.engine.mu.Lock()
	defer s.engine.mu.Unlock()
	s.engine.closed++
	return nil
}

func TestFieldsForPlaceholders(t *testing.T) {
	f := FieldsFor(employees.Employee{})
	assert.Equal(t, Fields{Name: "Nome não informado", Job: "Cargo não informado", PhotoURL: "/placeholder.jpg", ID: "000"}, f)

	f = FieldsFor(employees.Employee{ID: 7, FullName: "Ana Souza", JobFunctions: "Analista", PhotoURL: "https://img/a.jpg"})
	assert.Equal(t, Fields{Name: "Ana Souza", Job: "Analista", PhotoURL: "https://img/a.jpg", ID: "7"}, f)
}

func TestSingleDocumentIsCardSized(t *testing.T) {
	doc := SingleDocument(employees.Employee{ID: 3, FullName: "Ana"})
	assert.Equal(t, 85.6, doc.Page.Width)
	assert.Equal(t, 53.98, doc.Page.Height)
	assert.Zero(t, doc.Margin)
	require.Len(t, doc.Blocks, 1)
	assert.NotNil(t, doc.Blocks[0].Background)
	assert.Equal(t, []string{"Ana", "Cargo não informado", "ID: 3"}, texts(doc.Blocks[0]))
}

func TestSingleRenderIsRepeatable(t *testing.T) {
	engine := &fakeEngine{}
	renderer := NewRenderer(engine, time.Second)
	emp := employees.Employee{ID: 9, FullName: "João", JobFunctions: "Motorista", PhotoURL: "https://img/j.jpg"}

	_, err := renderer.Single(context.Background(), emp)
	require.NoError(t, err)
	_, err = renderer.Single(context.Background(), emp)
	require.NoError(t, err)

	require.Len(t, engine.documents, 2)
	assert.Equal(t, engine.documents[0], engine.documents[1])
	assert.Equal(t, 2, engine.opened)
	assert.True(t, engine.balanced())
}

func TestBatchDocumentKeepsOrderOnA4(t *testing.T) {
	doc := BatchDocument([]employees.Employee{{ID: 2, FullName: "Bruno"}, {ID: 1, FullName: "Ana"}})
	assert.Equal(t, render.A4, doc.Page)
	assert.InDelta(t, 5.29, doc.Margin, 0.01)
	assert.InDelta(t, 2.65, doc.Gap, 0.01)
	require.Len(t, doc.Blocks, 2)
	assert.Equal(t, "Bruno", texts(doc.Blocks[0])[0])
	assert.Equal(t, "ID: 1", texts(doc.Blocks[1])[2])
	for _, block := range doc.Blocks {
		assert.True(t, block.KeepTogether)
		assert.Equal(t, render.CardSize, block.Size)
	}
}

func TestBatchRejectsBadSizes(t *testing.T) {
	renderer := NewRenderer(&fakeEngine{}, time.Second)

	_, err := renderer.Batch(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = renderer.Batch(context.Background(), make([]employees.Employee, MaxBatchSize+1))
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestRendererClosesSessionOnFailure(t *testing.T) {
	engine := &fakeEngine{renderErr: errors.New("out of memory")}
	_, err := NewRenderer(engine, time.Second).Single(context.Background(), employees.Employee{ID: 1})
	assert.ErrorIs(t, err, ErrRenderingEngine)
	assert.Equal(t, 1, engine.opened)
	assert.True(t, engine.balanced())
}

func TestRendererOpenFailure(t *testing.T) {
	engine := &fakeEngine{openErr: errors.New("no fonts")}
	_, err := NewRenderer(engine, time.Second).Single(context.Background(), employees.Employee{ID: 1})
	assert.ErrorIs(t, err, ErrRenderingEngine)
}

func TestRendererTimeout(t *testing.T) {
	engine := &fakeEngine{block: true}
	_, err := NewRenderer(engine, 10*time.Millisecond).Single(context.Background(), employees.Employee{ID: 1})
	assert.ErrorIs(t, err, ErrRenderingEngine)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, engine.balanced())
}

func TestRendererCallerCancellation(t *testing.T) {
	engine := &fakeEngine{block: true}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := NewRenderer(engine, time.Minute).Single(ctx, employees.Employee{ID: 1})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrRenderingEngine)
	assert.True(t, engine.balanced())
}

func TestRendererWithPDFEngine(t *testing.T) {
	renderer := NewRenderer(render.NewPDFEngine(time.Second), 5*time.Second)
	out, err := renderer.Batch(context.Background(), []employees.Employee{
		{ID: 1, FullName: "Ana Conceição", JobFunctions: "Operações"},
		{ID: 2, FullName: "Bruno"},
	})
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(out[:4]))
}

func texts(block render.Block) []string {
	var out []string
	for _, el := range block.Elements {
		if el.Kind == render.TextElement {
			out = append(out, el.Text)
		}
	}
	return out
}
