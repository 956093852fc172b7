package model

import (
	"testing"
	"time"

	"github.com/limaJavier/roomscheduler/pkg/lp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultWeights() Weights {
	return Weights{
		Scores:     []float64{3, 2, 1},
		Preference: 1,
	}
}

func solve(t *testing.T, input ModelInput, weights Weights) *ModelBuilder {
	t.Helper()
	builder := NewModelBuilder(lp.NewEngine(lp.NewEnumerationSolver(lp.Parameters{})), input, DefaultOptions(), Discard)
	require.NoError(t, builder.Build())
	require.NoError(t, builder.UpdateObjectiveAndSolve(weights))
	return builder
}

func deptCourse(t *testing.T, number, department, instructor string, first TimeSlot, prefs ...TimeSlot) *Course {
	t.Helper()
	course, err := NewCourse(NewCourseKey(number, "", ""), CourseDetails{
		Department: department,
		Enrollment: 50,
		Instructor: NewInstructor(instructor),
	}, first)
	require.NoError(t, err)
	course.AddTimePrefs(prefs, Discard)
	return course
}

// interrupted solves to optimality and reports the result as if the time limit had stopped the search
type interrupted struct{}

func (interrupted) Solve(program *lp.Program) (lp.Solution, error) {
	solution, err := lp.NewEnumerationSolver(lp.Parameters{}).Solve(program)
	solution.Status = lp.Feasible
	return solution, err
}

func fixedTime(course *Course) *Course {
	course.RespectTime = true
	return course
}

func TestBuilderOneRoomTimePerCourse(t *testing.T) {
	//** Arrange
	room := mustRoom(t, "E52-135", 100)
	course := mustCourse(t, "15.051", "", "", 70, "Arnie", mustSlot(t, "F", "M W", "10:00 AM", "11:30 AM"))
	require.NoError(t, course.AddRoomPrefs([]*Room{room}, false, Discard))
	input := ModelInput{Rooms: []*Room{room}, Courses: []*Course{course}}

	//** Act
	builder := solve(t, input, defaultWeights())

	//** Assert
	assert.Equal(t, map[CourseKey]int{course.Key: 10}, builder.Candidates())
	assert.True(t, course.IsAssigned())
	assert.Equal(t, 1, course.GotTimePref())
	assert.Equal(t, 1, course.GotRoomPref())

	congestion, err := builder.MaxCongestion()
	require.NoError(t, err)
	assert.InDelta(t, 1, congestion, 1e-9)
	assert.Empty(t, Verify(builder.Courses(), input, DefaultOptions()))

	variables, constraints := builder.Size()
	assert.Equal(t, 12, variables) // Ten placements plus the congestion and fairness variables
	assert.Positive(t, constraints)
}

func TestBuilderIsDeterministic(t *testing.T) {
	objective := func() (float64, TimeSlot) {
		room := mustRoom(t, "E52-135", 100)
		course := mustCourse(t, "15.051", "", "", 70, "Arnie", mustSlot(t, "F", "T Th", "1:00 PM", "2:30 PM"))
		other := mustCourse(t, "15.052", "", "", 70, "Dimitris", mustSlot(t, "F", "T Th", "1:00 PM", "2:30 PM"))
		builder := solve(t, ModelInput{Rooms: []*Room{room}, Courses: []*Course{course, other}}, defaultWeights())

		value, err := builder.ObjectiveValue()
		require.NoError(t, err)
		slot, _ := other.AssignedTime()
		return value, slot
	}

	firstValue, firstSlot := objective()
	secondValue, secondSlot := objective()

	assert.Equal(t, firstValue, secondValue)
	assert.Equal(t, firstSlot, secondSlot)
}

func TestBuilderResolveIsStable(t *testing.T) {
	//** Arrange
	rooms := []*Room{mustRoom(t, "E52-135", 100), mustRoom(t, "E52-140", 100)}
	first := mustCourse(t, "15.051", "", "", 70, "Arnie", mustSlot(t, "F", "T Th", "1:00 PM", "2:30 PM"))
	second := mustCourse(t, "15.052", "", "", 70, "Arnie", mustSlot(t, "F", "T Th", "1:00 PM", "2:30 PM"))
	third := mustCourse(t, "15.053", "", "", 70, "Dimitris", mustSlot(t, "F", "T Th", "1:00 PM", "2:30 PM"))
	input := ModelInput{Rooms: rooms, Courses: []*Course{first, second, third}}
	builder := solve(t, input, defaultWeights())

	value, err := builder.ObjectiveValue()
	require.NoError(t, err)
	slots := make([]TimeSlot, 0, len(input.Courses))
	for _, course := range input.Courses {
		slot, _ := course.AssignedTime()
		slots = append(slots, slot)
	}

	//** Act
	require.NoError(t, builder.UpdateObjectiveAndSolve(defaultWeights()))

	//** Assert
	again, err := builder.ObjectiveValue()
	require.NoError(t, err)
	assert.Equal(t, value, again)
	for i, course := range input.Courses {
		slot, _ := course.AssignedTime()
		assert.Equal(t, slots[i], slot, course.Key.String())
	}
}

func TestBuilderDeptFairness(t *testing.T) {
	build := func(weight float64) (*Course, *Course) {
		contested := mustSlot(t, "F", "M W", "10:00 AM", "11:30 AM")
		early := mustSlot(t, "F", "M W", "8:30 AM", "10:00 AM")

		// Economics is large and loses little average score when a single course misses its time
		econ := deptCourse(t, "15.051", "Economics", "Arnie", contested)
		others := []*Course{
			deptCourse(t, "15.052", "Economics", "Bo", mustSlot(t, "F", "M W", "1:00 PM", "2:30 PM")),
			deptCourse(t, "15.053", "Economics", "Cy", mustSlot(t, "F", "M W", "2:30 PM", "4:00 PM")),
		}
		// The first choice of the math course is taken by its own instructor
		calculus := deptCourse(t, "18.01", "Mathematics", "Dimitris", early, contested)
		fixed := fixedTime(deptCourse(t, "18.02", "Mathematics", "Dimitris", early))

		weights := defaultWeights()
		weights.DeptFairness = weight
		input := ModelInput{
			Rooms:   []*Room{mustRoom(t, "E52-135", 100)},
			Courses: append([]*Course{econ, calculus, fixed}, others...),
		}
		builder := solve(t, input, weights)
		assert.Empty(t, Verify(builder.Courses(), input, DefaultOptions()))
		return econ, calculus
	}

	t.Run("ignored", func(t *testing.T) {
		econ, calculus := build(0)

		assert.Equal(t, 1, econ.GotTimePref())
		assert.Equal(t, 0, calculus.GotTimePref())
	})

	t.Run("rewarded", func(t *testing.T) {
		econ, calculus := build(10)

		assert.Equal(t, 0, econ.GotTimePref())
		assert.Equal(t, 2, calculus.GotTimePref())
	})
}

func TestBuilderConcurrency(t *testing.T) {
	slot := mustSlot(t, "F", "M W", "10:00 AM", "11:30 AM")
	rooms := []*Room{mustRoom(t, "E52-135", 100), mustRoom(t, "E52-140", 100)}

	t.Run("lecture and recitation", func(t *testing.T) {
		lecture := mustCourse(t, "15.051", "A", "LEC", 60, "Arnie", slot)
		recitation := mustCourse(t, "15.051", "A", "REC", 60, "Dimitris", slot)
		input := ModelInput{Rooms: rooms, Courses: []*Course{lecture, recitation}}

		builder := solve(t, input, defaultWeights())

		lectureSlot, _ := lecture.AssignedTime()
		recitationSlot, _ := recitation.AssignedTime()
		assert.False(t, lectureSlot.Overlaps(recitationSlot), "%v / %v", lectureSlot, recitationSlot)
		assert.Equal(t, 1, lecture.GotTimePref()+recitation.GotTimePref())
		assert.Empty(t, Verify(builder.Courses(), input, DefaultOptions()))
	})

	t.Run("co-instructor", func(t *testing.T) {
		first := mustCourse(t, "15.051", "", "", 60, "Arnie", slot)
		second := mustCourse(t, "15.052", "", "", 60, "Dimitris", slot)
		second.AddExtraInstructors([]Instructor{NewInstructor("Arnie")})
		input := ModelInput{Rooms: rooms, Courses: []*Course{first, second}}

		builder := solve(t, input, defaultWeights())

		firstSlot, _ := first.AssignedTime()
		secondSlot, _ := second.AssignedTime()
		assert.False(t, firstSlot.Overlaps(secondSlot), "%v / %v", firstSlot, secondSlot)
		assert.Empty(t, Verify(builder.Courses(), input, DefaultOptions()))
	})
}

func TestBuilderBoundedSolve(t *testing.T) {
	//** Arrange
	rooms := []*Room{mustRoom(t, "E52-135", 100), mustRoom(t, "E52-140", 80), mustRoom(t, "E62-223", 60)}
	courses := []*Course{
		mustCourse(t, "15.051", "", "", 90, "Arnie", mustSlot(t, "F", "M W", "10:00 AM", "11:30 AM")),
		mustCourse(t, "15.052", "", "", 70, "Dimitris", mustSlot(t, "F", "M W", "10:00 AM", "11:30 AM")),
		mustCourse(t, "15.053", "", "", 50, "Bo", mustSlot(t, "F", "T Th", "1:00 PM", "2:30 PM")),
		mustCourse(t, "15.054", "", "", 50, "Arnie", mustSlot(t, "F", "T Th", "1:00 PM", "2:30 PM")),
		mustCourse(t, "15.055", "", "", 40, "Cy", mustSlot(t, "F", "M W", "8:30 AM", "10:00 AM")),
	}
	for _, course := range courses {
		require.NoError(t, course.AddRoomPrefs(rooms[:1], false, Discard))
	}
	input := ModelInput{Rooms: rooms, Courses: courses}
	solver := lp.NewEnumerationSolver(lp.Parameters{RelativeGap: 1e-2, TimeLimit: 5 * time.Second})
	builder := NewModelBuilder(lp.NewEngine(solver), input, DefaultOptions(), Discard)
	require.NoError(t, builder.Build())

	//** Act
	start := time.Now()
	err := builder.UpdateObjectiveAndSolve(defaultWeights())

	//** Assert
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 30*time.Second)
	for _, course := range courses {
		assert.True(t, course.IsAssigned(), course.Key.String())
	}
	assert.Empty(t, Verify(builder.Courses(), input, DefaultOptions()))
}

func TestBuilderAcceptsTimeLimitedSolution(t *testing.T) {
	room := mustRoom(t, "E52-135", 100)
	course := mustCourse(t, "15.051", "", "", 70, "Arnie", mustSlot(t, "F", "M W", "10:00 AM", "11:30 AM"))
	warnings := &WarningLog{}
	builder := NewModelBuilder(lp.NewEngine(interrupted{}), ModelInput{Rooms: []*Room{room}, Courses: []*Course{course}}, DefaultOptions(), warnings)
	require.NoError(t, builder.Build())

	require.NoError(t, builder.UpdateObjectiveAndSolve(defaultWeights()))

	assert.True(t, course.IsAssigned())
	assert.Equal(t, 1, course.GotTimePref())
	assert.Contains(t, warnings.Warnings(), "solver stopped at its time limit: the assignment may not be optimal")
}

func TestBuilderBackToBack(t *testing.T) {
	build := func(weight float64) (*Course, *Course) {
		rooms := []*Room{mustRoom(t, "E52-135", 100), mustRoom(t, "E52-140", 100)}
		first := mustCourse(t, "15.051", "", "", 60, "Arnie", mustSlot(t, "F", "M W", "8:30 AM", "10:00 AM"))
		second := mustCourse(t, "15.052", "", "", 60, "Dimitris", mustSlot(t, "F", "M W", "1:00 PM", "2:30 PM"))
		input := ModelInput{
			Rooms:           rooms,
			Courses:         []*Course{first, second},
			BackToBackPairs: []BackToBackPair{{First: first, Second: second}},
		}

		weights := defaultWeights()
		weights.BackToBack = weight
		solve(t, input, weights)
		return first, second
	}

	t.Run("rewarded", func(t *testing.T) {
		first, second := build(10)

		firstSlot, _ := first.AssignedTime()
		secondSlot, _ := second.AssignedTime()
		assert.True(t, first.AssignedRoom().Equal(second.AssignedRoom()))
		assert.True(t, firstSlot.IsBackToBack(secondSlot), "%v / %v", firstSlot, secondSlot)
	})

	t.Run("ignored", func(t *testing.T) {
		first, second := build(0)

		assert.Equal(t, 1, first.GotTimePref())
		assert.Equal(t, 1, second.GotTimePref())
	})
}

func TestBuilderBreakoutOnLectureFloor(t *testing.T) {
	//** Arrange
	slot := mustSlot(t, "F", "M W", "10:00 AM", "11:30 AM")
	lectureRoom := mustRoom(t, "E52-135", 100)
	sameFloor := mustRoom(t, "E52-140", 60)
	upstairs := mustRoom(t, "E52-240", 60)
	elsewhere := mustRoom(t, "E62-140", 60)

	lecture := fixedTime(mustCourse(t, "15.051", "A", "LEC", 90, "Arnie", slot))
	breakout := fixedTime(mustCourse(t, "15.051", "A", "BREAKOUT", 50, "Dimitris", slot))
	require.NoError(t, breakout.AddRoomPrefs([]*Room{upstairs}, false, Discard))
	input := ModelInput{
		Rooms:   []*Room{lectureRoom, sameFloor, upstairs, elsewhere},
		Courses: []*Course{lecture, breakout},
	}

	//** Act
	builder := solve(t, input, defaultWeights())

	//** Assert
	assert.Same(t, lectureRoom, lecture.AssignedRoom())
	assert.Same(t, sameFloor, breakout.AssignedRoom())
	assert.Empty(t, Verify(builder.Courses(), input, DefaultOptions()))
}

func TestBuilderRespectRoomOutsideInventory(t *testing.T) {
	//** Arrange
	raw := RawModelInput{
		Rooms: []RoomRecord{{Name: "E52-135", Capacity: 100}},
		Courses: []CourseRecord{{
			Number: "15.051", Department: "Economics", Enrollment: 70, Instructors: []string{"Arnie"},
			TimePrefs:   []TimeRecord{{Days: "M W", Start: "10:00 AM", End: "11:30 AM"}},
			RoomPrefs:   []string{"E62-223"},
			RespectRoom: true,
			RespectTime: true,
		}},
	}
	warnings := &WarningLog{}
	input, err := ProcessRawInput(raw, DefaultOptions(), warnings)
	require.NoError(t, err)

	//** Act
	builder := NewModelBuilder(lp.NewEngine(lp.NewEnumerationSolver(lp.Parameters{})), input, DefaultOptions(), warnings)
	require.NoError(t, builder.Build())
	require.NoError(t, builder.UpdateObjectiveAndSolve(defaultWeights()))

	//** Assert
	course := input.Courses[0]
	assert.Equal(t, "E62-223", course.AssignedRoom().Name())
	assert.True(t, course.AssignedRoom().IsPlaceholder())
	assert.Equal(t, []string{"room E62-223 not in inventory"}, warnings.Warnings())
}

func TestBuilderCongestion(t *testing.T) {
	build := func(weight float64) *ModelBuilder {
		rooms := []*Room{mustRoom(t, "E52-135", 100), mustRoom(t, "E52-140", 100)}
		first := mustCourse(t, "15.051", "", "", 90, "Arnie", mustSlot(t, "F", "M W", "10:00 AM", "11:30 AM"))
		second := mustCourse(t, "15.052", "", "", 90, "Dimitris", mustSlot(t, "F", "M W", "10:00 AM", "11:30 AM"))

		weights := defaultWeights()
		weights.Congestion = weight
		return solve(t, ModelInput{Rooms: rooms, Courses: []*Course{first, second}}, weights)
	}

	congestion, err := build(0).MaxCongestion()
	require.NoError(t, err)
	assert.InDelta(t, 2, congestion, 1e-9)

	congestion, err = build(1).MaxCongestion()
	require.NoError(t, err)
	assert.InDelta(t, 1, congestion, 1e-9)
}

func TestBuilderNoConflictGroup(t *testing.T) {
	rooms := []*Room{mustRoom(t, "E52-135", 100), mustRoom(t, "E52-140", 100)}
	first := mustCourse(t, "15.051", "", "", 90, "Arnie", mustSlot(t, "F", "T Th", "10:00 AM", "11:30 AM"))
	second := mustCourse(t, "15.052", "", "", 90, "Dimitris", mustSlot(t, "F", "T Th", "10:00 AM", "11:30 AM"))
	input := ModelInput{
		Rooms:            rooms,
		Courses:          []*Course{first, second},
		NoConflictGroups: []NoConflictGroup{{Name: "Core", Courses: []*Course{first, second}}},
	}

	builder := solve(t, input, defaultWeights())

	firstSlot, _ := first.AssignedTime()
	secondSlot, _ := second.AssignedTime()
	assert.False(t, firstSlot.Overlaps(secondSlot))
	assert.Empty(t, Verify(builder.Courses(), input, DefaultOptions()))
}

func TestBuilderInfeasible(t *testing.T) {
	//** Arrange
	slot := mustSlot(t, "F", "M W", "10:00 AM", "11:30 AM")
	rooms := []*Room{mustRoom(t, "E52-135", 100), mustRoom(t, "E52-140", 100)}
	first := fixedTime(mustCourse(t, "15.051", "", "", 50, "Arnie", slot))
	second := fixedTime(mustCourse(t, "15.052", "", "", 50, "Arnie", slot))
	builder := NewModelBuilder(lp.NewEngine(lp.NewEnumerationSolver(lp.Parameters{})), ModelInput{Rooms: rooms, Courses: []*Course{first, second}}, DefaultOptions(), Discard)
	require.NoError(t, builder.Build())

	//** Act
	err := builder.UpdateObjectiveAndSolve(defaultWeights())

	//** Assert
	var schedulingErr *SchedulingError
	require.ErrorAs(t, err, &schedulingErr)
	assert.Contains(t, schedulingErr.Message, "infeasible")
	assert.Contains(t, schedulingErr.Explanation, "Prof ARNIE")
	assert.False(t, first.IsAssigned())

	_, err = builder.ObjectiveValue()
	assert.Error(t, err)
}

func TestBuilderLifecycle(t *testing.T) {
	room := mustRoom(t, "E52-135", 100)
	course := fixedTime(mustCourse(t, "15.051", "", "", 70, "Arnie", mustSlot(t, "F", "M W", "10:00 AM", "11:30 AM")))
	builder := NewModelBuilder(lp.NewEngine(lp.NewEnumerationSolver(lp.Parameters{})), ModelInput{Rooms: []*Room{room}, Courses: []*Course{course}}, DefaultOptions(), Discard)

	assert.Error(t, builder.UpdateObjectiveAndSolve(defaultWeights()))
	require.NoError(t, builder.Build())
	assert.Error(t, builder.Build())

	// Solving again replaces the fairness constraints instead of piling them up
	require.NoError(t, builder.UpdateObjectiveAndSolve(defaultWeights()))
	_, constraints := builder.Size()
	require.NoError(t, builder.UpdateObjectiveAndSolve(Weights{Scores: []float64{0, 0, 0}, DeptFairness: 1}))
	_, again := builder.Size()
	assert.Equal(t, constraints, again)
	assert.True(t, course.IsAssigned())
}

func TestNormalizeScores(t *testing.T) {
	assert.Equal(t, []float64{1, 0.5, 0.25}, normalizeScores([]float64{4, 2, 1}))
	assert.Equal(t, []float64{1, 1, 1}, normalizeScores([]float64{0, 0, 0}))
	assert.Equal(t, 0.0, scoreAt([]float64{1, 0.5}, 3))
	assert.Equal(t, 0.0, scoreAt([]float64{1, 0.5}, 0))
}
