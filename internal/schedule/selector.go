package schedule

import (
	"time"

	"rangebook/internal/domain"
	"rangebook/internal/models"
)

// Selector keeps a single selected date and slot consistent with the slot
// list regenerated on every date or range change. It is meant for
// single-goroutine use: all recomputation happens synchronously inside the
// mutating calls.
type Selector struct {
	clock    domain.Clock
	rng      *models.Range
	date     time.Time
	slots    []models.Slot
	selected *models.Slot
}

func NewSelector(clock domain.Clock) *Selector {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &Selector{clock: clock}
}

// SetRange switches the facility and regenerates slots for the current date.
func (s *Selector) SetRange(rng *models.Range) {
	s.rng = rng
	s.refresh()
}

// SetDate switches the date and regenerates slots.
func (s *Selector) SetDate(date time.Time) {
	s.date = date
	s.refresh()
}

// Select picks a slot by id. Returns false when the id is not in the current
// list; the previous selection is kept in that case.
func (s *Selector) Select(id string) bool {
	for i := range s.slots {
		if s.slots[i].ID == id {
			s.selected = &s.slots[i]
			return true
		}
	}
	return false
}

func (s *Selector) Range() *models.Range   { return s.rng }
func (s *Selector) Date() time.Time        { return s.date }
func (s *Selector) Slots() []models.Slot   { return s.slots }
func (s *Selector) Selected() *models.Slot { return s.selected }

// OpenHours reports the total open hours of the selected date, 0 when the
// day is closed or nothing is selected yet.
func (s *Selector) OpenHours() int {
	if s.rng == nil || s.date.IsZero() {
		return 0
	}
	return OpenHours(s.rng.HoursFor(s.date.Weekday().String()))
}

// refresh regenerates the slot list and repairs the selection: a selected id
// that survived the regeneration is kept (re-pointed at the new list), a
// vanished one is replaced with the first element, an empty list clears the
// selection.
func (s *Selector) refresh() {
	if s.rng == nil || s.date.IsZero() {
		s.slots = nil
		s.selected = nil
		return
	}

	s.slots = GenerateSlots(s.date, s.rng.HoursFor(s.date.Weekday().String()), s.clock.Now())

	if len(s.slots) == 0 {
		s.selected = nil
		return
	}

	if s.selected != nil {
		for i := range s.slots {
			if s.slots[i].ID == s.selected.ID {
				s.selected = &s.slots[i]
				return
			}
		}
	}
	s.selected = &s.slots[0]
}
