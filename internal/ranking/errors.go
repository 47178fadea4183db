package ranking

import "fmt"

// MinSections is the smallest selection a comparison accepts.
const MinSections = 2

// InsufficientSectionsError is returned when fewer than MinSections sections
// are selected for comparison.
type InsufficientSectionsError struct {
	Count int
}

func (e *InsufficientSectionsError) Error() string {
	return fmt.Sprintf("comparison needs at least %d sections, got %d", MinSections, e.Count)
}
