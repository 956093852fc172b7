package model

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Room is a physical room identified by "BLDG-NUM". Rooms are shared between courses and never mutated.
type Room struct {
	Building    string
	Number      string
	Capacity    int
	equipment   []string
	placeholder bool
}

func NewRoom(name string, capacity int, equipment []string) (*Room, error) {
	parts := strings.Split(strings.TrimSpace(name), "-")
	if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
		return nil, schedulingErrorf("room %q not recognized: expected a name such as 'E51-325'", name)
	}

	room := &Room{
		Building:  strings.ToUpper(strings.TrimSpace(parts[0])),
		Number:    strings.ToUpper(strings.TrimSpace(parts[1])),
		Capacity:  capacity,
		equipment: normalizeTags(equipment),
	}
	if capacity <= 0 {
		return nil, schedulingErrorf("room %v has nonpositive capacity %d", room, capacity)
	}
	return room, nil
}

// NewPlaceholderRoom stands in for a room referenced by a preference but absent from the inventory
func NewPlaceholderRoom(name string, opts Options) (*Room, error) {
	room, err := NewRoom(name, opts.PlaceholderCapacity, nil)
	if err != nil {
		return nil, err
	}
	room.placeholder = true
	return room, nil
}

func (room *Room) Name() string {
	return room.Building + "-" + room.Number
}

func (room *Room) String() string {
	return room.Name()
}

func (room *Room) Equipment() []string {
	return append([]string(nil), room.equipment...)
}

// IsPlaceholder is true for rooms created for preferences outside the inventory
func (room *Room) IsPlaceholder() bool {
	return room.placeholder
}

func (room *Room) Equal(other *Room) bool {
	return other != nil && room.Name() == other.Name()
}

func (room *Room) IsInBuilding(building string) bool {
	return room.Building == strings.ToUpper(strings.TrimSpace(building))
}

// SameFloor compares the first character of the room numbers of two rooms in the same building
func (room *Room) SameFloor(other *Room) bool {
	return room.Building == other.Building && room.Number[0] == other.Number[0]
}

func (room *Room) HasEquipment(items []string) bool {
	return lo.Every(room.equipment, normalizeTags(items))
}

func normalizeTags(tags []string) []string {
	normalized := lo.FilterMap(tags, func(tag string, _ int) (string, bool) {
		tag = strings.ToUpper(strings.TrimSpace(tag))
		return tag, tag != ""
	})
	return lo.Uniq(normalized)
}

//** Instructor

// Instructor is compared by canonical (uppercased) name
type Instructor struct {
	name string
}

func NewInstructor(name string) Instructor {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		name = fmt.Sprintf("UNNAMED-%v", uuid.NewString())
	}
	return Instructor{name: name}
}

func (instructor Instructor) Name() string {
	return instructor.name
}

func (instructor Instructor) String() string {
	return instructor.name
}
