package allocation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/desk-allocation/internal/model"
)

func TestValidateQuery(t *testing.T) {
	sitting := model.DeskTypeSitting
	quiet := model.NoiseQuiet
	floor := "3"
	empty := "  "
	bogusType := "treadmill"
	bogusNoise := "silent"

	cases := []struct {
		name    string
		query   model.DeskQuery
		wantErr bool
	}{
		{"empty query is valid", model.DeskQuery{}, false},
		{"full valid query", model.DeskQuery{Floor: &floor, DeskType: &sitting, NoiseLevel: &quiet}, false},
		{"blank floor", model.DeskQuery{Floor: &empty}, true},
		{"blank preferred floor", model.DeskQuery{PreferredFloor: &empty}, true},
		{"blank team zone", model.DeskQuery{TeamZone: &empty}, true},
		{"unknown desk type", model.DeskQuery{DeskType: &bogusType}, true},
		{"unknown noise level", model.DeskQuery{NoiseLevel: &bogusNoise}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateQuery(tc.query)
			if tc.wantErr {
				assert.Equal(t, KindInvalidQuery, KindOf(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestQueryIsZero(t *testing.T) {
	assert.True(t, model.DeskQuery{}.IsZero())

	f := "2"
	assert.False(t, model.DeskQuery{Floor: &f}.IsZero())
}
