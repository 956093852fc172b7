package report

import (
	"bytes"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/jung-kurt/gofpdf"
	"github.com/limaJavier/roomscheduler/pkg/model"
	"github.com/samber/lo"
)

// AssignmentRow is one line of the assignments CSV. Unassigned courses leave the placement columns blank.
type AssignmentRow struct {
	Number      string `csv:"Course" json:"course"`
	Section     string `csv:"Section" json:"section"`
	ClassType   string `csv:"classtype" json:"classType"`
	Title       string `csv:"Title" json:"title"`
	Half        string `csv:"Half" json:"half"`
	Days        string `csv:"Days" json:"days"`
	Start       string `csv:"StartTime" json:"startTime"`
	End         string `csv:"EndTime" json:"endTime"`
	Room        string `csv:"Room" json:"room"`
	IsFixedTime bool   `csv:"IsFixedTime" json:"isFixedTime"`
	IsFixedRoom bool   `csv:"IsFixedRoom" json:"isFixedRoom"`
	TimePref    int    `csv:"Time Pref" json:"timePref"`
	RoomPref    int    `csv:"Room Pref" json:"roomPref"`
}

func NewAssignmentRow(course *model.Course) AssignmentRow {
	row := AssignmentRow{
		Number:      course.Key.Number,
		Section:     course.Key.Section,
		ClassType:   course.Key.ClassType,
		Title:       course.Title,
		IsFixedTime: course.RespectTime,
		IsFixedRoom: course.RespectRoom,
		TimePref:    course.GotTimePref(),
		RoomPref:    course.GotRoomPref(),
	}
	if slot, ok := course.AssignedTime(); ok {
		row.Half = slot.Half.String()
		row.Days = slot.Days.String()
		row.Start = slot.Start.String()
		row.End = slot.End.String()
	}
	if room := course.AssignedRoom(); room != nil {
		row.Room = room.Name()
	}
	return row
}

// Record converts the row back into an assignment that can be replayed onto an input
func (row AssignmentRow) Record() model.AssignmentRecord {
	return model.AssignmentRecord{
		Number:    row.Number,
		Section:   row.Section,
		ClassType: row.ClassType,
		Half:      row.Half,
		Days:      row.Days,
		Start:     row.Start,
		End:       row.End,
		Room:      row.Room,
	}
}

func WriteAssignments(w io.Writer, courses []*model.Course) error {
	rows := lo.Map(courses, func(course *model.Course, _ int) *AssignmentRow {
		row := NewAssignmentRow(course)
		return &row
	})
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("failed to write assignments: %w", err)
	}
	return nil
}

var dayTitles = map[model.DaySet]string{
	model.Monday:    "Monday",
	model.Tuesday:   "Tuesday",
	model.Wednesday: "Wednesday",
	model.Thursday:  "Thursday",
	model.Friday:    "Friday",
}

// WriteGrid lays the assignments out as one block per half and weekday: a header row with every used
// room, then one row per instant naming the course held in each room
func WriteGrid(w io.Writer, courses []*model.Course, opts model.Options) error {
	placed := assigned(courses)
	rooms := lo.Uniq(lo.Map(placed, func(course *model.Course, _ int) string { return course.AssignedRoom().Name() }))
	slices.Sort(rooms)

	writer := gocsv.DefaultCSVWriter(w)
	for _, half := range model.Halves {
		for _, day := range model.Weekdays {
			if err := writer.Write(append([]string{fmt.Sprintf("%v %v", half, dayTitles[day])}, rooms...)); err != nil {
				return fmt.Errorf("failed to write grid: %w", err)
			}
			for start := opts.FirstClass; start < opts.LastClass; start = start.Add(opts.Granularity) {
				instant := model.TimeSlot{Half: half, Days: day, Start: start, End: start.Add(opts.Granularity)}
				row := make([]string, len(rooms)+1)
				row[0] = start.String()
				for _, course := range placed {
					if slot, _ := course.AssignedTime(); slot.Overlaps(instant) {
						column := slices.Index(rooms, course.AssignedRoom().Name()) + 1
						row[column] = strings.TrimSpace(row[column] + " " + course.Key.String())
					}
				}
				if err := writer.Write(row); err != nil {
					return fmt.Errorf("failed to write grid: %w", err)
				}
			}
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to write grid: %w", err)
	}
	return nil
}

var pdfHeaders = []string{"Course", "Type", "Half", "Days", "Start", "End", "Room", "Time Pref", "Room Pref"}

// RenderPDF renders the assignments as a landscape table followed by the summary figures
func RenderPDF(courses []*model.Course, summary Summary, title string) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, strings.ToUpper(title), "", 1, "C", false, 0, "")
		pdf.Ln(5)
	}

	pdf.SetFont("Arial", "B", 10)
	colWidth := 277.0 / float64(len(pdfHeaders))
	for _, header := range pdfHeaders {
		pdf.CellFormat(colWidth, 8, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, course := range courses {
		row := NewAssignmentRow(course)
		values := []string{
			strings.TrimSpace(row.Number + " " + row.Section), row.ClassType, row.Half, row.Days,
			row.Start, row.End, row.Room, fmt.Sprint(row.TimePref), fmt.Sprint(row.RoomPref),
		}
		for _, value := range values {
			pdf.CellFormat(colWidth, 7, value, "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.Ln(5)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(0, 8, "Summary", "", 1, "", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	lines := []string{
		fmt.Sprintf("Room preferences met (none/1st/2nd/3rd): %d / %d / %d / %d", summary.RoomPrefs[0], summary.RoomPrefs[1], summary.RoomPrefs[2], summary.RoomPrefs[3]),
		fmt.Sprintf("Time preferences met (none/1st/2nd/3rd): %d / %d / %d / %d", summary.TimePrefs[0], summary.TimePrefs[1], summary.TimePrefs[2], summary.TimePrefs[3]),
		fmt.Sprintf("Average excess capacity: %.1f%%", summary.AverageExcessCapacity),
		fmt.Sprintf("Peak congestion: %d", summary.PeakCongestion),
		fmt.Sprintf("Unassigned courses: %d", summary.Unassigned),
	}
	for _, line := range lines {
		pdf.CellFormat(0, 6, line, "", 1, "", false, 0, "")
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
