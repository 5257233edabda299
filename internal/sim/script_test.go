package sim

import (
	"context"
	"strings"
	"testing"

	"github.com/annel0/voxel-sandbox/internal/world"
	"github.com/annel0/voxel-sandbox/internal/world/block"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const demoScript = `
# разминка
walk forward+right 2
wait 1
look 0 -1 0   # смотрим под ноги
hotbar 3
jump
camera
`

func TestParseScript(t *testing.T) {
	actions, err := ParseScript(strings.NewReader(demoScript))
	require.NoError(t, err)
	require.Len(t, actions, 6)

	assert.Equal(t, ActionWalk, actions[0].Kind)
	assert.Equal(t, 2, actions[0].Ticks)
	assert.Equal(t, ControlIntent{Forward: true, Right: true}, actions[0].Move)
	assert.Equal(t, mgl64.Vec3{0, -1, 0}, actions[2].Look)
	assert.Equal(t, 3, actions[3].Slot)
	assert.Equal(t, ActionCamera, actions[5].Kind)
}

func TestParseScript_Errors(t *testing.T) {
	bad := []string{
		"fly 10",
		"walk up 3",
		"walk forward -1",
		"wait",
		"look 0 0",
		"look 0 0 0",
		"hotbar x",
		"jump now",
	}
	for _, src := range bad {
		_, err := ParseScript(strings.NewReader(src))
		assert.Error(t, err, "Сценарий %q должен быть отклонён", src)
	}

	_, err := ParseScript(strings.NewReader("wait 1\nteleport\n"))
	assert.ErrorContains(t, err, "строка 2")
}

func TestScriptInput_Playback(t *testing.T) {
	actions, err := ParseScript(strings.NewReader(demoScript))
	require.NoError(t, err)

	mgr := world.NewManager(context.Background(), nil, testSeed, testRadius, nil)
	s := NewSession(mgr, NewStepper(DefaultConfig(), nil), nil, nil, DefaultSpawn)
	in := NewScriptInput(actions)
	ctx := context.Background()

	intent, cam := in.Next(ctx, s)
	assert.Equal(t, ControlIntent{Forward: true, Right: true}, intent)
	assert.Equal(t, mgl64.Vec3{0, 0, 1}, cam.Look)

	intent, _ = in.Next(ctx, s)
	assert.Equal(t, ControlIntent{Forward: true, Right: true}, intent, "walk длится два тика")

	intent, _ = in.Next(ctx, s)
	assert.Equal(t, ControlIntent{}, intent, "wait")

	// look и hotbar применяются мгновенно, тик занимает jump
	intent, cam = in.Next(ctx, s)
	assert.Equal(t, ControlIntent{Jump: true}, intent)
	assert.Equal(t, mgl64.Vec3{0, -1, 0}, cam.Look)
	assert.Equal(t, block.Stone, s.Player().Held)

	// camera в конце, затем сценарий начинается заново
	intent, _ = in.Next(ctx, s)
	assert.Equal(t, ThirdPerson, s.Player().Camera)
	assert.Equal(t, ControlIntent{Forward: true, Right: true}, intent)
}

func TestScriptInput_OnlyInstantActions(t *testing.T) {
	actions, err := ParseScript(strings.NewReader("camera\n"))
	require.NoError(t, err)

	mgr := world.NewManager(context.Background(), nil, testSeed, testRadius, nil)
	s := NewSession(mgr, NewStepper(DefaultConfig(), nil), nil, nil, DefaultSpawn)
	in := NewScriptInput(actions)

	intent, _ := in.Next(context.Background(), s)
	assert.Equal(t, ControlIntent{}, intent, "Без команд с тиками возвращается пустой ввод")

	empty := NewScriptInput(nil)
	intent, _ = empty.Next(context.Background(), s)
	assert.Equal(t, ControlIntent{}, intent)
}
