package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMakeBedID(t *testing.T) {
	assert.Equal(t, "101-1", MakeBedID(101, 1))
	assert.Equal(t, "3-12", MakeBedID(3, 12))
}

func TestRoomTypeForBedCount(t *testing.T) {
	assert.Equal(t, "single", RoomTypeForBedCount(1))
	assert.Equal(t, "double", RoomTypeForBedCount(2))
	assert.Equal(t, "four-sharing", RoomTypeForBedCount(4))
	assert.Equal(t, "dormitory", RoomTypeForBedCount(6))
}

func TestFindBed_ReturnsMutablePointer(t *testing.T) {
	room := &Room{Beds: []Bed{{BedID: "101-1", Status: BedStatusVacant}}}

	bed := room.FindBed("101-1")
	assert.NotNil(t, bed)

	bed.Status = BedStatusOccupied
	assert.Equal(t, BedStatusOccupied, room.Beds[0].Status)

	assert.Nil(t, room.FindBed("101-9"))
}

func TestAggregateRoomStatus(t *testing.T) {
	vacant := Bed{Status: BedStatusVacant}
	occupied := Bed{Status: BedStatusOccupied}

	assert.Equal(t, RoomStatusVacant, AggregateRoomStatus([]Bed{vacant, vacant}))
	assert.Equal(t, RoomStatusPartiallyOccupied, AggregateRoomStatus([]Bed{occupied, vacant}))
	assert.Equal(t, RoomStatusOccupied, AggregateRoomStatus([]Bed{occupied, occupied}))
	assert.Equal(t, RoomStatusVacant, AggregateRoomStatus(nil))
}
