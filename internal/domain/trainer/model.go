package trainer

import (
	"errors"
	"strings"
	"time"
)

// MaxNameLength bounds the trainer name.
const MaxNameLength = 255

// DefaultNames are the trainers seeded into a fresh database.
var DefaultNames = []string{"Dhananjay Borse", "Abhishek Jaiswal", "Gaurav Sir"}

// Domain errors
var (
	ErrEmptyName   = errors.New("trainer name cannot be empty")
	ErrNameTooLong = errors.New("trainer name cannot exceed 255 characters")
)

// Trainer is a coach that members can be assigned to.
type Trainer struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

// Validate checks if the Trainer has valid data.
// PRE: Trainer struct is initialized
// POST: Returns error if validation fails, nil otherwise
func (t *Trainer) Validate() error {
	name := strings.TrimSpace(t.Name)
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > MaxNameLength {
		return ErrNameTooLong
	}
	return nil
}
