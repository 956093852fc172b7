package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/limaJavier/roomscheduler/internal/service"
	"github.com/limaJavier/roomscheduler/pkg/model"
	"github.com/limaJavier/roomscheduler/pkg/report"
	"github.com/samber/lo"
)

func writeAssignments(path string, courses []*model.Course) error {
	return writeFile(path, func(w io.Writer) error { return report.WriteAssignments(w, courses) })
}

// writeReports writes the grid and PDF reports requested on the command line
func writeReports(run *service.Run, opts model.Options) error {
	if gridOut != "" {
		if err := writeFile(gridOut, func(w io.Writer) error { return report.WriteGrid(w, run.Courses(), opts) }); err != nil {
			return err
		}
	}
	if pdfOut != "" {
		content, err := report.RenderPDF(run.Courses(), run.Summary, "Room assignments")
		if err != nil {
			return err
		}
		if err := os.WriteFile(pdfOut, content, 0666); err != nil {
			return fmt.Errorf("an error occurred while writing to %v: %w", pdfOut, err)
		}
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create %v: %w", path, err)
	}
	if err := write(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func ranks(counts map[int]int) string {
	return strings.Join(lo.Map(report.Ranks, func(rank int, _ int) string { return fmt.Sprint(counts[rank]) }), " / ")
}

func printRun(w io.Writer, run *service.Run) {
	summary := run.Summary

	fmt.Fprintf(w, "Run: %v\n", run.ID)
	if run.Variables > 0 {
		fmt.Fprintf(w, "Variables: %v\n", run.Variables)
		fmt.Fprintf(w, "Constraints: %v\n", run.Constraints)
		fmt.Fprintf(w, "Objective: %.4f\n", run.Objective)
	}
	fmt.Fprintf(w, "Room preferences met (none/1st/2nd/3rd): %v\n", ranks(summary.RoomPrefs))
	fmt.Fprintf(w, "Time preferences met (none/1st/2nd/3rd): %v\n", ranks(summary.TimePrefs))
	fmt.Fprintf(w, "Average excess capacity: %.1f%%\n", summary.AverageExcessCapacity)
	fmt.Fprintf(w, "Peak congestion: %v\n", summary.PeakCongestion)
	fmt.Fprintf(w, "Lectures: %v, other: %v, fixed rooms: %v, fixed times: %v\n",
		summary.CourseTypes.Lectures.Count, summary.CourseTypes.Other.Count,
		summary.CourseTypes.FixedRooms.Count, summary.CourseTypes.FixedTimes.Count)
	if summary.Unassigned > 0 {
		fmt.Fprintf(w, "Unassigned courses: %v\n", summary.Unassigned)
	}

	for _, score := range summary.DeptScores {
		fmt.Fprintf(w, "  %-12v room %.2f  time %.2f\n", score.Department, score.Room, score.Time)
	}
	for _, building := range lo.Slice(summary.TopBuildings, 0, 5) {
		fmt.Fprintf(w, "  %-12v %v\n", building.Building, building.Count)
	}

	for _, department := range departments {
		printSubset(w, "Department "+department, report.FilterByDept(run.Courses(), department))
	}
	for _, building := range buildings {
		printSubset(w, "Building "+building, report.FilterByBuilding(run.Courses(), building))
	}

	for _, warning := range run.Warnings {
		fmt.Fprintf(w, "Warning: %v\n", warning)
	}
	for _, violation := range run.Violations {
		fmt.Fprintf(w, "Violation: %v\n", violation)
	}
}

// printSubset reports the preferences met by a subset of the courses
func printSubset(w io.Writer, label string, courses []*model.Course) {
	rooms, times := report.PrefStats(courses)
	fmt.Fprintf(w, "%v: %v courses, room preferences %v, time preferences %v\n", label, len(courses), ranks(rooms), ranks(times))
}

func printCheck(w io.Writer, check *service.Check) {
	fmt.Fprintf(w, "Courses: %v\n", len(check.Input.Courses))
	fmt.Fprintf(w, "Variables: %v\n", check.Variables)
	fmt.Fprintf(w, "Constraints: %v\n", check.Constraints)

	if len(check.Pressure) == 0 {
		fmt.Fprintln(w, "Fixed-time courses can always be given a room")
	}
	for _, point := range check.Pressure {
		courses := lo.Map(point.Courses, func(course *model.Course, _ int) string { return course.Key.String() })
		rooms := lo.Map(point.Rooms, func(room *model.Room, _ int) string { return room.Name() })
		fmt.Fprintf(w, "%v: %v of %v fixed-time courses fit (%v) in rooms %v\n",
			point.Instant, point.Matched, len(point.Courses), strings.Join(courses, ", "), strings.Join(rooms, ", "))
	}

	for _, warning := range check.Warnings {
		fmt.Fprintf(w, "Warning: %v\n", warning)
	}
}
