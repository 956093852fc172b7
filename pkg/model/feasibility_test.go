package model

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowedTimesBlocks(t *testing.T) {
	//** Arrange
	first := mustSlot(t, "F", "M W", "10:00 AM", "11:30 AM")
	course := mustCourse(t, "15.051", "", "", 70, "Arnie", first)
	warnings := &WarningLog{}
	opts := DefaultOptions()

	//** Act
	times, err := AllowedTimes(course, opts, opts.ForbiddenSlot(), warnings)

	//** Assert
	require.NoError(t, err)
	expected := []TimeSlot{
		mustSlot(t, "F", "M W", "8:30 AM", "10:00 AM"),
		mustSlot(t, "F", "T Th", "8:30 AM", "10:00 AM"),
		mustSlot(t, "F", "M W", "10:00 AM", "11:30 AM"),
		mustSlot(t, "F", "T Th", "10:00 AM", "11:30 AM"),
		// 11:30 AM falls in the free time
		mustSlot(t, "F", "M W", "1:00 PM", "2:30 PM"),
		mustSlot(t, "F", "T Th", "1:00 PM", "2:30 PM"),
		mustSlot(t, "F", "M W", "2:30 PM", "4:00 PM"),
		mustSlot(t, "F", "T Th", "2:30 PM", "4:00 PM"),
		mustSlot(t, "F", "M W", "4:00 PM", "5:30 PM"),
		mustSlot(t, "F", "T Th", "4:00 PM", "5:30 PM"),
	}
	assert.Empty(t, cmp.Diff(expected, times))
	assert.Equal(t, 0, warnings.Len())
	for _, slot := range times {
		assert.True(t, course.IsViableTime(slot))
	}
}

func TestAllowedTimesWithoutFreeTime(t *testing.T) {
	course := mustCourse(t, "15.051", "", "", 70, "Arnie", mustSlot(t, "F", "M W F", "10:00 AM", "11:30 AM"))
	opts := DefaultOptions()
	opts.EnforceFreeTime = false

	times, err := AllowedTimes(course, opts, opts.ForbiddenSlot(), Discard)

	require.NoError(t, err)
	assert.Len(t, times, 6)
}

func TestAllowedTimesHourLongRecitation(t *testing.T) {
	course := mustCourse(t, "15.051", "", "REC", 30, "Dimitris", mustSlot(t, "F", "Th", "10:00 AM", "11:00 AM"))
	opts := DefaultOptions()

	times, err := AllowedTimes(course, opts, opts.ForbiddenSlot(), Discard)

	require.NoError(t, err)
	// 12 starts over W, Th, F: 11:30 AM and 12:00 PM clash with the free time on W and Th
	assert.Len(t, times, 32)
	for _, slot := range times {
		assert.True(t, slot.Days == Wednesday || slot.Days == Thursday || slot.Days == Friday)
		assert.Equal(t, Clock(1, 0), slot.End-slot.Start)
	}
}

func TestAllowedTimesHourLongLecture(t *testing.T) {
	course := mustCourse(t, "15.051", "", "", 30, "Dimitris", mustSlot(t, "F", "Th", "10:00 AM", "11:00 AM"))
	opts := DefaultOptions()
	opts.EnforceFreeTime = false

	times, err := AllowedTimes(course, opts, nil, Discard)

	require.NoError(t, err)
	assert.Len(t, times, 60)
}

func TestAllowedTimesSeminars(t *testing.T) {
	opts := DefaultOptions()

	late := mustCourse(t, "15.052", "", "", 50, "Arnie", mustSlot(t, "H1", "F", "4:00 PM", "7:00 PM"))
	times, err := AllowedTimes(late, opts, opts.ForbiddenSlot(), Discard)
	require.NoError(t, err)
	// 4:00, 4:30 and 5:00 PM on each weekday
	assert.Len(t, times, 15)
	for _, slot := range times {
		assert.Equal(t, FirstHalf, slot.Half)
		assert.GreaterOrEqual(t, slot.Start, opts.FirstSeminar)
		assert.LessOrEqual(t, slot.End, opts.LastClass)
	}

	early := mustCourse(t, "15.053", "", "", 50, "Arnie", mustSlot(t, "F", "F", "9:00 AM", "11:00 AM"))
	times, err = AllowedTimes(early, opts, nil, Discard)
	require.NoError(t, err)
	// Every half hour from 8:30 AM to 6:00 PM
	assert.Len(t, times, 20*5)
}

func TestAllowedTimesKeepsPreferences(t *testing.T) {
	//** Arrange
	first := mustSlot(t, "F", "M W", "11:30 AM", "1:00 PM")
	course := mustCourse(t, "15.051", "", "", 70, "Arnie", first)
	warnings := &WarningLog{}
	opts := DefaultOptions()

	//** Act
	times, err := AllowedTimes(course, opts, opts.ForbiddenSlot(), warnings)

	//** Assert
	require.NoError(t, err)
	assert.Equal(t, first, times[len(times)-1])
	assert.Equal(t, 1, warnings.Len())
}

func TestAllowedTimesRespectTime(t *testing.T) {
	first := mustSlot(t, "F", "M W", "11:30 AM", "1:00 PM")
	course, err := NewCourse(NewCourseKey("15.051", "", ""), CourseDetails{Enrollment: 10, RespectTime: true}, first)
	require.NoError(t, err)
	opts := DefaultOptions()

	times, err := AllowedTimes(course, opts, opts.ForbiddenSlot(), Discard)

	require.NoError(t, err)
	assert.Equal(t, []TimeSlot{first}, times)
}

func TestAllowedTimesErrors(t *testing.T) {
	opts := DefaultOptions()

	fourTimes := mustCourse(t, "15.051", "", "", 70, "Arnie", mustSlot(t, "F", "M T W Th", "10:00 AM", "11:00 AM"))
	_, err := AllowedTimes(fourTimes, opts, nil, Discard)
	assert.True(t, IsSchedulingError(err))

	short := mustCourse(t, "15.052", "", "", 70, "Arnie", mustSlot(t, "F", "M", "10:00 AM", "10:20 AM"))
	_, err = AllowedTimes(short, opts, nil, Discard)
	assert.True(t, IsSchedulingError(err))
}

func TestAllowedTimesFollowGranularity(t *testing.T) {
	opts := DefaultOptions()
	opts.Granularity = 15 * time.Minute
	short := mustCourse(t, "15.052", "", "", 70, "Arnie", mustSlot(t, "F", "M", "4:00 PM", "4:20 PM"))

	times, err := AllowedTimes(short, opts, nil, Discard)
	require.NoError(t, err)
	assert.Contains(t, times, mustSlot(t, "F", "M", "4:15 PM", "4:35 PM"))

	opts.Granularity = time.Hour
	hour := mustCourse(t, "15.053", "", "", 70, "Arnie", mustSlot(t, "F", "M", "4:00 PM", "4:45 PM"))
	_, err = AllowedTimes(hour, opts, nil, Discard)
	assert.ErrorContains(t, err, "less than 1h0m0s")
}

func TestAllowedRooms(t *testing.T) {
	//** Arrange
	slot := mustSlot(t, "F", "M W", "10:00 AM", "11:30 AM")
	small := mustRoom(t, "E52-140", 50, "camera")
	big := mustRoom(t, "E52-135", 100, "projector")
	camera := mustRoom(t, "E62-223", 120, "camera")
	inventory := []*Room{small, big, camera}

	course := mustCourse(t, "15.051", "", "", 70, "Arnie", slot)
	require.NoError(t, course.AddRoomPrefs([]*Room{small, big}, false, Discard))
	warnings := &WarningLog{}

	//** Act
	rooms := AllowedRooms(course, inventory, warnings)

	//** Assert
	assert.Equal(t, []*Room{big, camera}, rooms)
	assert.Equal(t, 1, warnings.Len())

	course.Equipment = []string{"CAMERA"}
	assert.Equal(t, []*Room{camera}, AllowedRooms(course, inventory, Discard))

	require.NoError(t, course.AddRoomPrefs([]*Room{small}, true, Discard))
	assert.Equal(t, []*Room{small}, AllowedRooms(course, inventory, warnings))
}

func TestAllowedRoomTimes(t *testing.T) {
	opts := DefaultOptions()
	slot := mustSlot(t, "F", "M W F", "10:00 AM", "11:30 AM")
	course := mustCourse(t, "15.051", "", "", 70, "Arnie", slot)
	rooms := []*Room{mustRoom(t, "E52-135", 100), mustRoom(t, "E52-140", 100)}

	candidates, err := AllowedRoomTimes(course, opts, rooms, Discard)
	require.NoError(t, err)
	// M W F at 8:30 AM, 10:00 AM, 1:00 PM, 2:30 PM and 4:00 PM
	assert.Len(t, candidates, 10)
	assert.Equal(t, rooms[0], candidates[0].Room)
	assert.Equal(t, rooms[1], candidates[5].Room)

	_, err = AllowedRoomTimes(course, opts, []*Room{mustRoom(t, "E52-150", 20)}, Discard)
	assert.True(t, IsSchedulingError(err))
}

func TestExcessCapacity(t *testing.T) {
	slot := mustSlot(t, "F", "M W", "10:00 AM", "11:30 AM")
	room := mustRoom(t, "E52-135", 100)

	assert.InDelta(t, 0.3, ExcessCapacity(mustCourse(t, "15.051", "", "", 70, "Arnie", slot), room), 1e-12)
	assert.Equal(t, 0.0, ExcessCapacity(mustCourse(t, "15.052", "", "", 100, "Arnie", slot), room))
	assert.Equal(t, 0.0, ExcessCapacity(mustCourse(t, "15.053", "", "", 130, "Arnie", slot), room))
	assert.Less(t, ExcessCapacity(mustCourse(t, "15.054", "", "", 1, "Arnie", slot), room), 1.0)
}

func TestHorizonInstants(t *testing.T) {
	opts := DefaultOptions()

	instants := HorizonInstants(opts)

	assert.Len(t, instants, 2*5*23)
	assert.Equal(t, TimeSlot{Half: FirstHalf, Days: Monday, Start: Clock(8, 30), End: Clock(9, 0)}, instants[0])
	assert.Equal(t, TimeSlot{Half: SecondHalf, Days: Friday, Start: Clock(19, 30), End: Clock(20, 0)}, instants[len(instants)-1])
}
