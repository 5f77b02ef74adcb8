package position

import "errors"

var ErrPositionNotFound = errors.New("position not found")

type SetPositionParams struct {
	SourceURL string
	Seconds   float64
	UpdatedAt int64
}
