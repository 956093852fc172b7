package report

import (
	"cmp"
	"errors"
	"slices"

	"github.com/limaJavier/roomscheduler/pkg/model"
	"github.com/samber/lo"
)

// Ranks a preference can be matched at, 0 meaning no preference was met
var Ranks = []int{0, 1, 2, 3}

type Share struct {
	Count    int     `json:"count"`
	Fraction float64 `json:"fraction"`
}

type CourseTypes struct {
	Lectures   Share `json:"lectures"`
	Other      Share `json:"other"`
	Total      Share `json:"total"`
	FixedRooms Share `json:"fixedRooms"`
	FixedTimes Share `json:"fixedTimes"`
}

type DeptScore struct {
	Department string  `json:"department"`
	Room       float64 `json:"room"`
	Time       float64 `json:"time"`
}

// HeatMap counts the meetings at every instant of one half of the term. Counts[d][t] is the number of
// courses meeting on Days[d] at Times[t].
type HeatMap struct {
	Half   model.Half        `json:"-"`
	Days   []model.DaySet    `json:"-"`
	Times  []model.TimeOfDay `json:"-"`
	Counts [][]int           `json:"counts"`
}

func (heatMap HeatMap) Max() int {
	return lo.Max(lo.Map(heatMap.Counts, func(row []int, _ int) int { return lo.Max(row) }))
}

type BuildingCount struct {
	Building string `json:"building"`
	Count    int    `json:"count"`
}

//** Filters

func FilterByDept(courses []*model.Course, department string) []*model.Course {
	return lo.Filter(courses, func(course *model.Course, _ int) bool { return course.IsDept(department) })
}

func FilterByBuilding(courses []*model.Course, building string) []*model.Course {
	return lo.Filter(courses, func(course *model.Course, _ int) bool {
		return course.IsAssigned() && course.AssignedRoom().IsInBuilding(building)
	})
}

func FilterByKind(courses []*model.Course, kinds ...model.ClassKind) []*model.Course {
	return lo.Filter(courses, func(course *model.Course, _ int) bool { return lo.Contains(kinds, course.Kind) })
}

func assigned(courses []*model.Course) []*model.Course {
	return lo.Filter(courses, func(course *model.Course, _ int) bool { return course.IsAssigned() })
}

//** Statistics

// PrefStats counts how many courses got their first, second or third room and time preference. Every
// rank is present in both maps.
func PrefStats(courses []*model.Course) (rooms map[int]int, times map[int]int) {
	rooms, times = make(map[int]int, len(Ranks)), make(map[int]int, len(Ranks))
	for _, rank := range Ranks {
		rooms[rank], times[rank] = 0, 0
	}
	for _, course := range courses {
		rooms[course.GotRoomPref()]++
		times[course.GotTimePref()]++
	}
	return rooms, times
}

// ExcessCapacities returns the excess capacity of every assigned course
func ExcessCapacities(courses []*model.Course) []float64 {
	return lo.Map(assigned(courses), func(course *model.Course, _ int) float64 {
		return model.ExcessCapacity(course, course.AssignedRoom())
	})
}

// AverageExcessCapacity is the mean excess capacity of the assigned courses, as a percentage
func AverageExcessCapacity(courses []*model.Course) float64 {
	capacities := ExcessCapacities(courses)
	if len(capacities) == 0 {
		return 0
	}
	return 100 * lo.Sum(capacities) / float64(len(capacities))
}

func Heat(courses []*model.Course, opts model.Options, half model.Half) HeatMap {
	heatMap := HeatMap{Half: half, Days: model.Weekdays}
	for start := opts.FirstClass; start < opts.LastClass; start = start.Add(opts.Granularity) {
		heatMap.Times = append(heatMap.Times, start)
	}

	slots := lo.Map(assigned(courses), func(course *model.Course, _ int) model.TimeSlot {
		slot, _ := course.AssignedTime()
		return slot
	})
	for _, day := range heatMap.Days {
		row := make([]int, len(heatMap.Times))
		for i, start := range heatMap.Times {
			instant := model.TimeSlot{Half: half, Days: day, Start: start, End: start.Add(opts.Granularity)}
			row[i] = lo.CountBy(slots, func(slot model.TimeSlot) bool { return slot.Overlaps(instant) })
		}
		heatMap.Counts = append(heatMap.Counts, row)
	}
	return heatMap
}

// PeakCongestion recomputes the largest number of simultaneous meetings over both halves
func PeakCongestion(courses []*model.Course, opts model.Options) int {
	return max(Heat(courses, opts, model.FirstHalf).Max(), Heat(courses, opts, model.SecondHalf).Max())
}

// DeptPrefScores averages, per department, the normalized score of the room and time preference each
// course got. Departments are sorted.
func DeptPrefScores(courses []*model.Course, weights []float64) []DeptScore {
	maxWeight := lo.Max(weights)
	if maxWeight <= 0 {
		maxWeight = 1
	}
	score := func(rank int) float64 {
		if rank < 1 || rank > len(weights) {
			return 0
		}
		return weights[rank-1] / maxWeight
	}

	byDepartment := lo.GroupBy(courses, func(course *model.Course) string { return course.Department })
	departments := lo.Keys(byDepartment)
	slices.Sort(departments)

	return lo.Map(departments, func(department string, _ int) DeptScore {
		group := byDepartment[department]
		return DeptScore{
			Department: department,
			Room:       lo.SumBy(group, func(course *model.Course) float64 { return score(course.GotRoomPref()) }) / float64(len(group)),
			Time:       lo.SumBy(group, func(course *model.Course) float64 { return score(course.GotTimePref()) }) / float64(len(group)),
		}
	})
}

func CountCourseTypes(courses []*model.Course) (CourseTypes, error) {
	if len(courses) == 0 {
		return CourseTypes{}, errors.New("cannot count the types of an empty course list")
	}
	total := float64(len(courses))
	share := func(count int) Share {
		return Share{Count: count, Fraction: float64(count) / total}
	}

	lectures := lo.CountBy(courses, func(course *model.Course) bool { return course.Kind == model.Lecture })
	return CourseTypes{
		Lectures:   share(lectures),
		Other:      share(len(courses) - lectures),
		Total:      share(len(courses)),
		FixedRooms: share(lo.CountBy(courses, func(course *model.Course) bool { return course.RespectRoom })),
		FixedTimes: share(lo.CountBy(courses, func(course *model.Course) bool { return course.RespectTime })),
	}, nil
}

// TopBuildings orders the buildings by the number of courses assigned to them, most used first. A
// non-positive k returns every building.
func TopBuildings(courses []*model.Course, k int) []BuildingCount {
	counts := lo.CountValuesBy(assigned(courses), func(course *model.Course) string { return course.AssignedRoom().Building })
	buildings := lo.MapToSlice(counts, func(building string, count int) BuildingCount {
		return BuildingCount{Building: building, Count: count}
	})
	slices.SortFunc(buildings, func(a, b BuildingCount) int {
		if a.Count != b.Count {
			return b.Count - a.Count
		}
		return cmp.Compare(a.Building, b.Building)
	})

	if k > 0 && k < len(buildings) {
		return buildings[:k]
	}
	return buildings
}

//** Summary

// Summary gathers every statistic of a set of assigned courses
type Summary struct {
	RoomPrefs             map[int]int     `json:"roomPrefs"`
	TimePrefs             map[int]int     `json:"timePrefs"`
	AverageExcessCapacity float64         `json:"averageExcessCapacity"`
	PeakCongestion        int             `json:"peakCongestion"`
	DeptScores            []DeptScore     `json:"deptScores"`
	CourseTypes           CourseTypes     `json:"courseTypes"`
	TopBuildings          []BuildingCount `json:"topBuildings"`
	Unassigned            int             `json:"unassigned"`
}

// Summarize computes the statistics of the courses. A solved peak congestion, when known, replaces
// the recomputed one.
func Summarize(courses []*model.Course, opts model.Options, weights []float64, solvedPeak *float64) (Summary, error) {
	types, err := CountCourseTypes(courses)
	if err != nil {
		return Summary{}, err
	}

	rooms, times := PrefStats(courses)
	summary := Summary{
		RoomPrefs:             rooms,
		TimePrefs:             times,
		AverageExcessCapacity: AverageExcessCapacity(courses),
		PeakCongestion:        PeakCongestion(courses, opts),
		DeptScores:            DeptPrefScores(courses, weights),
		CourseTypes:           types,
		TopBuildings:          TopBuildings(courses, 0),
		Unassigned:            len(courses) - len(assigned(courses)),
	}
	if solvedPeak != nil {
		summary.PeakCongestion = int(*solvedPeak + 0.5)
	}
	return summary, nil
}
