package composition

import "fmt"

// Which names one of the two composition inputs
type Which string

const (
	Background Which = "background"
	User       Which = "user"
)

// ImageLoadError reports that one of the inputs could not be fetched or
// decoded
type ImageLoadError struct {
	Which Which
	Err   error
}

func (e *ImageLoadError) Error() string {
	return fmt.Sprintf("failed to load %s image: %v", e.Which, e.Err)
}

func (e *ImageLoadError) Unwrap() error { return e.Err }

// EncodeError reports that the flattened canvas could not be serialized
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("failed to encode composite: %v", e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }
