package model

import "time"

// Block is one of the standard teaching blocks. 90-minute sessions may only start at a block start.
type Block struct {
	Start TimeOfDay
	End   TimeOfDay
}

// Options holds the scheduling constants of an institution
type Options struct {
	FirstClass   TimeOfDay // Earliest instant of the horizon
	LastClass    TimeOfDay // Every session must end by this time
	FirstSeminar TimeOfDay // Floor for non-standard sessions that ask to start late
	Blocks       []Block

	FreeTime        TimeSlot // Institution-wide period in which nothing is scheduled
	EnforceFreeTime bool

	Granularity time.Duration // Step between candidate starts and horizon instants
	PrefEpsilon float64       // Preference weight floor
	DayPenalty  float64       // Objective penalty for a non-preferred day pattern

	PlaceholderCapacity int // Capacity given to rooms outside the inventory
}

// DefaultOptions returns the Sloan block schedule
func DefaultOptions() Options {
	return Options{
		FirstClass:   Clock(8, 30),
		LastClass:    Clock(20, 0),
		FirstSeminar: Clock(16, 0),
		Blocks: []Block{
			{Clock(8, 30), Clock(10, 0)},
			{Clock(10, 0), Clock(11, 30)},
			{Clock(11, 30), Clock(13, 0)},
			{Clock(13, 0), Clock(14, 30)},
			{Clock(14, 30), Clock(16, 0)},
			{Clock(16, 0), Clock(17, 30)},
		},
		FreeTime: TimeSlot{
			Half:  Full,
			Days:  Monday | Tuesday | Wednesday | Thursday,
			Start: Clock(11, 30),
			End:   Clock(13, 0),
		},
		EnforceFreeTime:     true,
		Granularity:         30 * time.Minute,
		PrefEpsilon:         1e-3,
		DayPenalty:          1e3,
		PlaceholderCapacity: 200,
	}
}

// ForbiddenSlot is the slot no generated candidate may overlap (nil when the free time is not enforced)
func (opts Options) ForbiddenSlot() *TimeSlot {
	if !opts.EnforceFreeTime {
		return nil
	}
	slot := opts.FreeTime
	return &slot
}
