package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTeeWarnings(t *testing.T) {
	first, second := &WarningLog{}, &WarningLog{}
	var forwarded []string
	sink := TeeWarnings(first, nil, second, WarningFunc(func(message string) { forwarded = append(forwarded, message) }))

	warnf(sink, "course %v skipped", "15.051")
	warnf(nil, "dropped")
	Discard.Warn("dropped")

	assert.Equal(t, []string{"course 15.051 skipped"}, first.Warnings())
	assert.Equal(t, first.Warnings(), second.Warnings())
	assert.Equal(t, []string{"course 15.051 skipped"}, forwarded)
}

func TestSchedulingError(t *testing.T) {
	err := schedulingErrorf("course %v has no partner lecture", "15.051 A REC")
	assert.Equal(t, "course 15.051 A REC has no partner lecture", err.Error())

	err.Explanation = "irreducible infeasible subsystem:"
	assert.Equal(t, "course 15.051 A REC has no partner lecture\nirreducible infeasible subsystem:", err.Error())
	assert.False(t, IsSchedulingError(nil))
}
