package uuidx

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewString(t *testing.T) {
	idStr := NewString()
	id, err := uuid.Parse(idStr)
	assert.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
	assert.Equal(t, uuid.RFC4122, id.Variant())
	assert.NotEqual(t, idStr, NewString(), "group ids must be unique")
}

func TestNewString_SortsByCreation(t *testing.T) {
	first := NewString()
	second := NewString()
	assert.LessOrEqual(t, first[:13], second[:13], "the timestamp prefix must not go backwards")
}

func TestValid(t *testing.T) {
	assert.True(t, Valid(NewString()))
	assert.False(t, Valid("group-1"))
	assert.False(t, Valid(""))
}
