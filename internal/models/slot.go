package models

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// MealType is the meal of the day a slot stands for.
type MealType int

const (
	Breakfast MealType = iota
	Lunch
	Dinner
)

// MealTypes lists the meal types in serving order.
var MealTypes = []MealType{Breakfast, Lunch, Dinner}

func (m MealType) String() string {
	switch m {
	case Breakfast:
		return "breakfast"
	case Lunch:
		return "lunch"
	case Dinner:
		return "dinner"
	}
	return fmt.Sprintf("meal_type(%d)", int(m))
}

func (m MealType) Valid() bool { return m >= Breakfast && m <= Dinner }

// ParseMealType accepts the lower- or title-case meal type name.
func ParseMealType(s string) (MealType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "breakfast":
		return Breakfast, nil
	case "lunch":
		return Lunch, nil
	case "dinner":
		return Dinner, nil
	}
	return 0, fmt.Errorf("unknown meal type %q", s)
}

const DaysPerWeek = 7

var dayNames = [DaysPerWeek]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// DayName returns the weekday name of a 1-based plan day.
func DayName(day int) string {
	if day < 1 || day > DaysPerWeek {
		return fmt.Sprintf("Day %d", day)
	}
	return dayNames[day-1]
}

// Slot is a (day, meal type) position in the weekly plan. Day is 1..7.
type Slot struct {
	Day  int      `mapstructure:"day" json:"day"`
	Meal MealType `mapstructure:"meal" json:"meal"`
}

func (s Slot) String() string {
	return fmt.Sprintf("%d:%s", s.Day, s.Meal)
}

func (s Slot) Valid() bool {
	return s.Day >= 1 && s.Day <= DaysPerWeek && s.Meal.Valid()
}

// Less orders slots by day, then by meal type.
func (s Slot) Less(o Slot) bool {
	if s.Day != o.Day {
		return s.Day < o.Day
	}
	return s.Meal < o.Meal
}

// ParseSlot accepts "3:lunch", "wednesday:lunch" or "wed:lunch".
func ParseSlot(s string) (Slot, error) {
	day, meal, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return Slot{}, fmt.Errorf("invalid slot %q: want day:meal_type", s)
	}
	d, err := parseDay(day)
	if err != nil {
		return Slot{}, fmt.Errorf("invalid slot %q: %w", s, err)
	}
	m, err := ParseMealType(meal)
	if err != nil {
		return Slot{}, fmt.Errorf("invalid slot %q: %w", s, err)
	}
	return Slot{Day: d, Meal: m}, nil
}

func parseDay(s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		if n < 1 || n > DaysPerWeek {
			return 0, fmt.Errorf("day %d out of range 1..7", n)
		}
		return n, nil
	}
	for i, name := range dayNames {
		lower := strings.ToLower(name)
		if s == lower || (len(s) >= 3 && strings.HasPrefix(lower, s)) {
			return i + 1, nil
		}
	}
	return 0, fmt.Errorf("unknown day %q", s)
}

// StandardSlots returns the 21 slots of a full week.
func StandardSlots() []Slot {
	return CrossSlots(nil, nil)
}

// CrossSlots returns days × meal types. Empty arguments mean all days / all meal types.
func CrossSlots(days []int, meals []MealType) []Slot {
	if len(days) == 0 {
		days = []int{1, 2, 3, 4, 5, 6, 7}
	}
	if len(meals) == 0 {
		meals = MealTypes
	}
	slots := make([]Slot, 0, len(days)*len(meals))
	for _, d := range days {
		for _, m := range meals {
			slots = append(slots, Slot{Day: d, Meal: m})
		}
	}
	return slots
}

// SlotGrid enumerates the slots a plan must fill in canonical order.
type SlotGrid struct {
	slots []Slot
	index map[Slot]int
}

// NewSlotGrid validates, de-duplicates and orders the slots.
func NewSlotGrid(slots []Slot) (*SlotGrid, error) {
	if len(slots) == 0 {
		return nil, &ConfigError{Field: "slots_in_scope", Reason: "no slots in scope"}
	}
	g := &SlotGrid{index: make(map[Slot]int, len(slots))}
	for _, s := range slots {
		if !s.Valid() {
			return nil, &ConfigError{Field: "slots_in_scope", Reason: fmt.Sprintf("invalid slot %s", s)}
		}
		if _, dup := g.index[s]; dup {
			continue
		}
		g.index[s] = 0
		g.slots = append(g.slots, s)
	}
	sort.Slice(g.slots, func(i, j int) bool { return g.slots[i].Less(g.slots[j]) })
	for i, s := range g.slots {
		g.index[s] = i
	}
	return g, nil
}

func (g *SlotGrid) Len() int { return len(g.slots) }

// Slots returns a copy of the slots in canonical order.
func (g *SlotGrid) Slots() []Slot {
	out := make([]Slot, len(g.slots))
	copy(out, g.slots)
	return out
}

func (g *SlotGrid) At(i int) Slot { return g.slots[i] }

// Index returns the position of s in the grid.
func (g *SlotGrid) Index(s Slot) (int, bool) {
	i, ok := g.index[s]
	return i, ok
}

func (g *SlotGrid) Has(s Slot) bool {
	_, ok := g.index[s]
	return ok
}

// Days returns the distinct days present, ascending.
func (g *SlotGrid) Days() []int {
	var days []int
	for _, s := range g.slots {
		if len(days) == 0 || days[len(days)-1] != s.Day {
			days = append(days, s.Day)
		}
	}
	return days
}

// SlotsOn returns the slots of one day in meal order.
func (g *SlotGrid) SlotsOn(day int) []Slot {
	var out []Slot
	for _, s := range g.slots {
		if s.Day == day {
			out = append(out, s)
		}
	}
	return out
}

func (m MealType) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *MealType) UnmarshalText(b []byte) error {
	v, err := ParseMealType(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
