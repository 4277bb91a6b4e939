package domain

import "fmt"

// WindowType of the subject property; affects improvement recommendations.
type WindowType string

const (
	WindowsWood    WindowType = "wood"
	WindowsPlastic WindowType = "plastic"
	WindowsUnknown WindowType = ""
)

// SubjectProperty describes the property being priced. Built once per analysis
// request and read-only afterwards.
type SubjectProperty struct {
	TotalArea  float64 // m², basis for all price-per-area math
	LivingArea float64 // m², informational
	Rooms      int
	ListPrice  float64 // current asking price; 0 = not listed yet
	Region     string
	District   string
	BuildYear  int
	Floor      int
	Floors     int // floors in the building
	Elevators  int
	Windows    WindowType
	Renovated  bool
	PhotoCount int
}

// Validate fails fast on inconsistent input before any I/O happens.
func (p SubjectProperty) Validate() error {
	if p.TotalArea <= 0 {
		return fmt.Errorf("%w: total area must be positive, got %.2f", ErrInvalidInput, p.TotalArea)
	}
	if p.LivingArea < 0 || p.LivingArea > p.TotalArea {
		return fmt.Errorf("%w: living area %.2f outside (0, total %.2f]", ErrInvalidInput, p.LivingArea, p.TotalArea)
	}
	if p.Rooms <= 0 {
		return fmt.Errorf("%w: rooms must be positive, got %d", ErrInvalidInput, p.Rooms)
	}
	if p.ListPrice < 0 {
		return fmt.Errorf("%w: list price cannot be negative", ErrInvalidInput)
	}
	if p.Region == "" {
		return fmt.Errorf("%w: region is required", ErrInvalidInput)
	}
	if p.Floor < 0 || p.Floors < 0 || (p.Floors > 0 && p.Floor > p.Floors) {
		return fmt.Errorf("%w: floor %d does not fit a %d-floor building", ErrInvalidInput, p.Floor, p.Floors)
	}
	return nil
}
