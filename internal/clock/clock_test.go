package clock

import (
	"testing"
	"time"

	"github.com/royalbit/daneel/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShouldCycleFalseImmediatelyAfterConstruction(t *testing.T) {
	c := New(config.HumanCognitiveConfig())
	assert.False(t, c.ShouldCycle())
}

func TestShouldCycleTrueAfterInterval(t *testing.T) {
	fast := config.HumanCognitiveConfig()
	fast.CycleBaseMs = 1
	fast.CycleMinMs = 0.1
	c := New(fast)

	require.Eventually(t, c.ShouldCycle, time.Second, time.Millisecond)
}

func TestTickResetsWindowAndIncrementsCount(t *testing.T) {
	fast := config.HumanCognitiveConfig()
	fast.CycleBaseMs = 1
	fast.CycleMinMs = 0.1
	c := New(fast)

	require.Eventually(t, c.ShouldCycle, time.Second, time.Millisecond)
	n := c.Tick()
	assert.Equal(t, uint64(1), n)
	assert.False(t, c.ShouldCycle())
	assert.Equal(t, uint64(1), c.CycleCount())
}

func TestTimeUntilNextCycleSaturatesAtZero(t *testing.T) {
	fast := config.HumanCognitiveConfig()
	fast.CycleBaseMs = 1
	fast.CycleMinMs = 0.1
	c := New(fast)

	require.Eventually(t, func() bool { return c.TimeUntilNextCycle() == 0 }, time.Second, time.Millisecond)
}

func TestUpdateSpeedModeChangesInterval(t *testing.T) {
	c := New(config.HumanCognitiveConfig())
	before := c.Cognitive().CycleMs()

	c.UpdateSpeedMode(config.SpeedSupercomputer)
	after := c.Cognitive().CycleMs()

	assert.Less(t, after, before)
}
