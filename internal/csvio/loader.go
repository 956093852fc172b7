package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/limaJavier/roomscheduler/pkg/model"
	"github.com/limaJavier/roomscheduler/pkg/report"
	"github.com/samber/lo"
)

// Files names the CSV inputs of a run. NoConflict and BackToBack are optional.
type Files struct {
	Rooms      string
	Courses    string
	NoConflict string
	BackToBack string
}

// YesNo reads the Y/N flags of the course requests; a blank cell is false
type YesNo bool

func (flag *YesNo) UnmarshalCSV(value string) error {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "Y":
		*flag = true
	case "N", "":
		*flag = false
	default:
		return fmt.Errorf("%q must be one of 'Y', 'N' or blank", value)
	}
	return nil
}

// CourseRow is one line of the course requests sheet
type CourseRow struct {
	Number         string `csv:"Course"`
	Section        string `csv:"Section"`
	ClassType      string `csv:"classtype"`
	Title          string `csv:"Title"`
	Department     string `csv:"Dept"`
	Half           string `csv:"Half"`
	Enrollment     int    `csv:"Anticipated Enrollment"`
	Instructors    string `csv:"Instructors"`
	AVRequirements string `csv:"AV Requirements"`
	RespectRoom    YesNo  `csv:"Respect Room"`
	RespectTime    YesNo  `csv:"Respect Time"`
	Room1          string `csv:"Room 1"`
	Room2          string `csv:"Room 2"`
	Room3          string `csv:"Room 3"`
	Days1          string `csv:"Days 1"`
	Start1         string `csv:"Start Time 1"`
	End1           string `csv:"End Time 1"`
	Days2          string `csv:"Days 2"`
	Start2         string `csv:"Start Time 2"`
	End2           string `csv:"End Time 2"`
	Days3          string `csv:"Days 3"`
	Start3         string `csv:"Start Time 3"`
	End3           string `csv:"End Time 3"`
}

func (row CourseRow) Record() model.CourseRecord {
	times := lo.Filter([]model.TimeRecord{
		{Days: row.Days1, Start: row.Start1, End: row.End1},
		{Days: row.Days2, Start: row.Start2, End: row.End2},
		{Days: row.Days3, Start: row.Start3, End: row.End3},
	}, func(record model.TimeRecord, _ int) bool { return strings.TrimSpace(record.Days) != "" })

	return model.CourseRecord{
		Number:      row.Number,
		Section:     row.Section,
		ClassType:   row.ClassType,
		Title:       row.Title,
		Department:  row.Department,
		Enrollment:  row.Enrollment,
		Instructors: splitList(row.Instructors),
		Half:        row.Half,
		RoomPrefs:   splitList(strings.Join([]string{row.Room1, row.Room2, row.Room3}, ",")),
		TimePrefs:   times,
		RespectRoom: bool(row.RespectRoom),
		RespectTime: bool(row.RespectTime),
		Equipment:   splitList(row.AVRequirements),
	}
}

// NoConflictRow is one member of a no-conflict group. A blank group continues the previous one.
type NoConflictRow struct {
	Group     string `csv:"Group"`
	Number    string `csv:"Course"`
	Section   string `csv:"Section"`
	ClassType string `csv:"classtype"`
}

// BackToBackRow is read by position: the first course and then the second one
type BackToBackRow struct {
	FirstNumber     string
	FirstSection    string
	FirstClassType  string
	SecondNumber    string
	SecondSection   string
	SecondClassType string
}

//** Readers

func newReader(in io.Reader, delim rune) *csv.Reader {
	reader := csv.NewReader(in)
	reader.Comma = delim
	reader.TrimLeadingSpace = true
	return reader
}

const (
	roomColumn    = "Room"
	sizeColumn    = "Size"
	seatingColumn = "Seating Style"
)

// ReadRooms reads the room inventory: name, size, seating style and one column per equipment item. A
// nonblank equipment cell gives the room that item.
func ReadRooms(in io.Reader, delim rune) ([]model.RoomRecord, error) {
	reader := newReader(in, delim)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read room inventory header: %w", err)
	}
	if !lo.Every(header, []string{roomColumn, sizeColumn}) {
		return nil, fmt.Errorf("room inventory must have %q and %q columns", roomColumn, sizeColumn)
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read room inventory: %w", err)
	}

	rooms := make([]model.RoomRecord, 0, len(rows))
	for line, row := range rows {
		cells := make(map[string]string, len(header))
		for i, column := range header {
			cells[column] = strings.TrimSpace(row[i])
		}

		capacity, err := strconv.Atoi(cells[sizeColumn])
		if err != nil {
			return nil, fmt.Errorf("room inventory line %d: invalid size %q", line+2, cells[sizeColumn])
		}

		equipment := lo.Compact([]string{cells[seatingColumn]})
		for _, column := range header {
			if column != roomColumn && column != sizeColumn && column != seatingColumn && cells[column] != "" {
				equipment = append(equipment, column)
			}
		}
		rooms = append(rooms, model.RoomRecord{Name: cells[roomColumn], Capacity: capacity, Equipment: equipment})
	}
	return rooms, nil
}

func ReadCourses(in io.Reader, delim rune) ([]model.CourseRecord, error) {
	rows := []*CourseRow{}
	if err := gocsv.UnmarshalCSV(newReader(in, delim), &rows); err != nil {
		return nil, fmt.Errorf("failed to parse course requests: %w", err)
	}
	return lo.Map(rows, func(row *CourseRow, _ int) model.CourseRecord { return row.Record() }), nil
}

func ReadNoConflictGroups(in io.Reader, delim rune) ([]model.NoConflictRecord, error) {
	rows := []*NoConflictRow{}
	if err := gocsv.UnmarshalCSV(newReader(in, delim), &rows); err != nil {
		return nil, fmt.Errorf("failed to parse no-conflict groups: %w", err)
	}

	groups := make([]model.NoConflictRecord, 0)
	for line, row := range rows {
		if name := strings.TrimSpace(row.Group); name != "" {
			groups = append(groups, model.NoConflictRecord{Name: name})
		} else if len(groups) == 0 {
			return nil, fmt.Errorf("no-conflict line %d: the first member has no group", line+2)
		}
		last := &groups[len(groups)-1]
		last.Courses = append(last.Courses, model.CourseKeyRecord{Number: row.Number, Section: row.Section, ClassType: row.ClassType})
	}
	return groups, nil
}

func ReadBackToBackPairs(in io.Reader, delim rune) ([]model.BackToBackRecord, error) {
	reader := newReader(in, delim)
	if _, err := reader.Read(); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read back-to-back header: %w", err)
	}

	rows := []*BackToBackRow{}
	if err := gocsv.UnmarshalCSVWithoutHeaders(reader, &rows); err != nil && !errors.Is(err, gocsv.ErrEmptyCSVFile) {
		return nil, fmt.Errorf("failed to parse back-to-back pairs: %w", err)
	}
	return lo.Map(rows, func(row *BackToBackRow, _ int) model.BackToBackRecord {
		return model.BackToBackRecord{
			First:  model.CourseKeyRecord{Number: row.FirstNumber, Section: row.FirstSection, ClassType: row.FirstClassType},
			Second: model.CourseKeyRecord{Number: row.SecondNumber, Section: row.SecondSection, ClassType: row.SecondClassType},
		}
	}), nil
}

// ReadAssignments reads an assignments file in the format written by report.WriteAssignments
func ReadAssignments(in io.Reader, delim rune) ([]model.AssignmentRecord, error) {
	rows := []*report.AssignmentRow{}
	if err := gocsv.UnmarshalCSV(newReader(in, delim), &rows); err != nil {
		return nil, fmt.Errorf("failed to parse assignments: %w", err)
	}
	return lo.Map(rows, func(row *report.AssignmentRow, _ int) model.AssignmentRecord { return row.Record() }), nil
}

//** Files

// LoadInput reads every file of a run. A missing back-to-back file only warns.
func LoadInput(files Files, delim rune, sink model.WarningSink) (model.RawModelInput, error) {
	var raw model.RawModelInput
	var err error

	if raw.Rooms, err = readFile(files.Rooms, delim, ReadRooms); err != nil {
		return raw, err
	}
	if raw.Courses, err = readFile(files.Courses, delim, ReadCourses); err != nil {
		return raw, err
	}
	if files.NoConflict != "" {
		if raw.NoConflictGroups, err = readFile(files.NoConflict, delim, ReadNoConflictGroups); err != nil {
			return raw, err
		}
	}
	if files.BackToBack != "" {
		raw.BackToBackPairs, err = readFile(files.BackToBack, delim, ReadBackToBackPairs)
		if errors.Is(err, fs.ErrNotExist) {
			sink.Warn(fmt.Sprintf("back-to-back file %v not found: no back-to-back pairs will be used", files.BackToBack))
		} else if err != nil {
			return raw, err
		}
	}
	return raw, nil
}

func LoadAssignments(path string, delim rune) ([]model.AssignmentRecord, error) {
	return readFile(path, delim, ReadAssignments)
}

func readFile[T any](path string, delim rune, read func(io.Reader, rune) ([]T, error)) ([]T, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %v: %w", path, err)
	}
	defer file.Close()

	records, err := read(file, delim)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", path, err)
	}
	return records, nil
}

func splitList(raw string) []string {
	return lo.Compact(lo.Map(strings.Split(raw, ","), func(item string, _ int) string { return strings.TrimSpace(item) }))
}
