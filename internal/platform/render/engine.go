package render

import "context"

// Engine opens rendering sessions. A session holds network and memory
// resources and must be closed by the caller.
type Engine interface {
	Open(ctx context.Context) (Session, error)
}

type Session interface {
	Render(ctx context.Context, doc Document) ([]byte, error)
	Close() error
}
