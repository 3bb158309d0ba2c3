package bot

import (
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{in: "passive", want: LevelPassive},
		{in: " Value ", want: LevelValue},
		{in: "", want: LevelPassive},
		{in: "god", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				check.Error(t, err)
				return
			}
			assert.NoError(t, err)
			check.Equal(t, tt.want, got)
		})
	}
}

func TestNewAgents(t *testing.T) {
	agents, err := NewAgents(map[string]string{"dave": "passive", "carol": "value"})
	assert.NoError(t, err)
	assert.Equal(t, 2, len(agents))
	check.Equal(t, "carol", agents[0].ID)
	_, isValue := agents[0].Strategy.(*ValueBot)
	check.True(t, isValue)
	_, isPassive := agents[1].Strategy.(*PassiveBot)
	check.True(t, isPassive)

	_, err = NewAgents(map[string]string{"dave": "chaos"})
	check.Error(t, err)
}
