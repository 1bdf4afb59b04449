package employees

import "context"

type StoreAPI interface {
	Create(ctx context.Context, emp NewEmployee) (*Employee, error)
	Get(ctx context.Context, id int64) (*Employee, error)
	List(ctx context.Context) ([]Employee, error)
	Search(ctx context.Context, filter SearchFilter) ([]Employee, int, error)
	Update(ctx context.Context, id int64, changes map[string]any) (*Employee, error)
	Delete(ctx context.Context, id int64) error
	ListByStatus(ctx context.Context, status string) ([]Employee, error)
	ListByIDs(ctx context.Context, ids []int64) ([]Employee, error)
	Ping(ctx context.Context) error
}

// PhotoGateway hosts employee photos and returns their public URL.
type PhotoGateway interface {
	Upload(ctx context.Context, data []byte, mimeType string) (string, error)
}
