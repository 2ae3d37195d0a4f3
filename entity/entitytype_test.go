package entity_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/adaptive-junction/entity"
)

func TestLaneID(t *testing.T) {
	lanes := entity.AllLanes()
	assert.Len(t, lanes, entity.NumLanes)
	names := make([]string, 0, len(lanes))
	for _, id := range lanes {
		names = append(names, id.String())
	}
	assert.Equal(t, []string{
		"AL1", "AL2", "AL3",
		"BL1", "BL2", "BL3",
		"CL1", "CL2", "CL3",
		"DL1", "DL2", "DL3",
	}, names)

	id := entity.Lane(entity.ApproachC, entity.LaneIndexLeft)
	assert.Equal(t, entity.ApproachC, id.Approach())
	assert.Equal(t, entity.LaneIndexLeft, id.Index())
	assert.True(t, id.Outgoing())
	assert.False(t, entity.Lane(entity.ApproachB, entity.LaneIndexReceiving).Outgoing())
	assert.False(t, entity.LaneID(entity.NumLanes).Valid())

	assert.Panics(t, func() { entity.Lane(entity.ApproachA, 4) })
	assert.Panics(t, func() { entity.Lane(entity.ApproachA, 0) })
}

func TestParseLaneID(t *testing.T) {
	for _, id := range entity.AllLanes() {
		parsed, err := entity.ParseLaneID(id.String())
		assert.NoError(t, err)
		assert.Equal(t, id, parsed)
	}
	for _, s := range []string{"", "AL", "AL0", "AL4", "EL1", "aL1", "AX1", "AL12"} {
		_, err := entity.ParseLaneID(s)
		assert.True(t, errors.Is(err, entity.ErrInvalidLaneID), s)
	}

	var id entity.LaneID
	assert.NoError(t, id.UnmarshalText([]byte("DL2")))
	assert.Equal(t, entity.Lane(entity.ApproachD, entity.LaneIndexThrough), id)
	text, err := id.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "DL2", string(text))
	_, err = entity.LaneID(200).MarshalText()
	assert.Error(t, err)
}

func TestApproachGroup(t *testing.T) {
	assert.Equal(t, entity.GroupAC, entity.ApproachA.Group())
	assert.Equal(t, entity.GroupBD, entity.ApproachB.Group())
	assert.Equal(t, entity.GroupAC, entity.ApproachC.Group())
	assert.Equal(t, entity.GroupBD, entity.ApproachD.Group())
	assert.Equal(t, entity.GroupBD, entity.GroupAC.Other())
	assert.Equal(t, entity.GroupAC, entity.GroupBD.Other())
	assert.Equal(t, "A", entity.ApproachA.String())
	assert.Equal(t, "BD", entity.GroupBD.String())
}

func TestVehicleString(t *testing.T) {
	v := entity.Vehicle{ID: 12, Origin: entity.Lane(entity.ApproachA, entity.LaneIndexLeft)}
	assert.Equal(t, "AL3_12", v.String())
}
