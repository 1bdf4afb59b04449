package badges

import "errors"

var (
	ErrInvalidRequest  = errors.New("invalid badge request")
	ErrNotFound        = errors.New("no employees found for badge request")
	ErrRenderingEngine = errors.New("badge rendering failed")
)
