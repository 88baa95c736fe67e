package backend

import (
	"fmt"
)

// Validator is implemented by wire types that check their own required fields
// after JSON decoding.
type Validator interface {
	Validate() error
}

// List decodes a JSON array whose elements are validated individually.
type List[T Validator] []T

// Validate validates every element, reporting the first failure with its index.
func (l List[T]) Validate() error {
	for i, item := range l {
		if err := item.Validate(); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}
	return nil
}

// Message is the {"message": "..."} acknowledgement the backend returns for
// updates and deletes.
type Message struct {
	Message string `json:"message"`
}

// Validate accepts any acknowledgement.
func (Message) Validate() error { return nil }
