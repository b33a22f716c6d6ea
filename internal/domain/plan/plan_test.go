package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	track := Track{ID: "se", TotalDays: 2}
	ok := []Task{
		{ID: "se-1-a", Day: 1, Kind: KindReading, XPReward: 50},
		{ID: "se-2-a", Day: 2, Kind: KindProject, XPReward: 100},
	}
	assert.NoError(t, Validate(track, ok))

	assert.Error(t, Validate(Track{ID: "se"}, ok))
	assert.Error(t, Validate(track, []Task{{ID: "x", Day: 3, Kind: KindReading}}))
	assert.Error(t, Validate(track, []Task{{ID: "x", Day: 1, Kind: "dance"}}))
	assert.Error(t, Validate(track, []Task{{ID: "x", Day: 1, Kind: KindReading}, {ID: "x", Day: 2, Kind: KindReading}}))
	assert.Error(t, Validate(track, []Task{{ID: "x", Day: 1, Kind: KindReading, XPReward: -1}}))
}

func TestSortTasks(t *testing.T) {
	tasks := []Task{{ID: "b", Day: 2}, {ID: "z", Day: 1}, {ID: "a", Day: 1}}
	SortTasks(tasks)
	assert.Equal(t, []string{"a", "z", "b"}, []string{tasks[0].ID, tasks[1].ID, tasks[2].ID})
}
