package ids

import (
	"fmt"

	"github.com/google/uuid"
)

// New returns a random identifier for a preview service instance.
func New() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("rand: %w", err)
	}
	return id.String(), nil
}
