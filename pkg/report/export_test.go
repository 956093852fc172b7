package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/gocarina/gocsv"
	"github.com/limaJavier/roomscheduler/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteAssignments(t *testing.T) {
	//** Arrange
	courses := schedule(t)
	unassigned := mustCourse(t, "15.053", "", "Finance", 20, mustSlot(t, "F", "M W", "8:30 AM", "10:00 AM"))
	courses = append(courses, unassigned)
	buffer := &bytes.Buffer{}

	//** Act
	err := WriteAssignments(buffer, courses)

	//** Assert
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(buffer.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "Course,Section,classtype,Title,Half,Days,StartTime,EndTime,Room,IsFixedTime,IsFixedRoom,Time Pref,Room Pref", lines[0])
	assert.Equal(t, "15.051,,LEC,Course 15.051,F,M W,10:00 AM,11:30 AM,E52-135,false,false,1,1", lines[1])
	assert.Equal(t, "15.052,,LEC,Course 15.052,F,T Th,01:00 PM,02:30 PM,E52-140,false,true,2,2", lines[2])
	assert.Equal(t, "15.053,,LEC,Course 15.053,,,,,,false,false,0,0", lines[4])
}

func TestAssignmentRowsReplay(t *testing.T) {
	//** Arrange
	courses := schedule(t)
	buffer := &bytes.Buffer{}
	require.NoError(t, WriteAssignments(buffer, courses))

	var rows []AssignmentRow
	require.NoError(t, gocsv.Unmarshal(buffer, &rows))
	require.Len(t, rows, 3)

	//** Act
	record := rows[1].Record()
	slot, err := model.ParseTimeSlot(record.Half, record.Days, record.Start, record.End)

	//** Assert
	require.NoError(t, err)
	expected, _ := courses[1].AssignedTime()
	assert.Equal(t, expected, slot)
	assert.Equal(t, "E52-140", record.Room)
	assert.Equal(t, "15.052", record.Number)
}

func TestWriteGrid(t *testing.T) {
	//** Arrange
	courses := schedule(t)
	buffer := &bytes.Buffer{}

	//** Act
	err := WriteGrid(buffer, courses, model.DefaultOptions())

	//** Assert
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(buffer.String()), "\n")
	// One header and 23 instants per half and weekday
	require.Len(t, lines, 2*5*24)
	assert.Equal(t, "H1 Monday,E52-135,E52-140,E62-223", lines[0])
	assert.Equal(t, "08:30 AM,,,", lines[1])
	assert.Equal(t, "10:00 AM,15.051 LEC,,15.051 REC", lines[4])
	assert.Equal(t, "H1 Tuesday,E52-135,E52-140,E62-223", lines[24])
	assert.Equal(t, "01:00 PM,,15.052 LEC,", lines[24+10])
	assert.Equal(t, "H2 Monday,E52-135,E52-140,E62-223", lines[5*24])
}

func TestRenderPDF(t *testing.T) {
	courses := schedule(t)
	summary, err := Summarize(courses, model.DefaultOptions(), []float64{3, 2, 1}, nil)
	require.NoError(t, err)

	content, err := RenderPDF(courses, summary, "Fall assignments")

	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(content, []byte("%PDF")))
}
