package sim

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/annel0/voxel-sandbox/internal/logging"
	"github.com/go-gl/mathgl/mgl64"
)

// ActionKind вид команды сценария
type ActionKind string

const (
	ActionWalk        ActionKind = "walk"
	ActionWait        ActionKind = "wait"
	ActionJump        ActionKind = "jump"
	ActionPlace       ActionKind = "place"
	ActionDestroy     ActionKind = "destroy"
	ActionLook        ActionKind = "look"
	ActionHotbar      ActionKind = "hotbar"
	ActionCamera      ActionKind = "camera"
	ActionRestart     ActionKind = "restart"
	ActionNewLocation ActionKind = "newlocation"
	ActionResume      ActionKind = "resume"
)

// Action одна команда сценария
type Action struct {
	Kind  ActionKind
	Ticks int           // Сколько тиков длится команда (walk, wait)
	Move  ControlIntent // Удерживаемые направления для walk
	Look  mgl64.Vec3
	Slot  int
}

// ParseScript разбирает сценарий ввода: одна команда в строке, # — комментарий.
//
//	walk forward+right 30
//	wait 10
//	jump | place | destroy
//	look 0 -1 0
//	hotbar 3
//	camera | restart | newlocation | resume
func ParseScript(r io.Reader) ([]Action, error) {
	var actions []Action
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		a, err := parseAction(fields)
		if err != nil {
			return nil, fmt.Errorf("строка %d: %w", line, err)
		}
		actions = append(actions, a)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("чтение сценария: %w", err)
	}
	return actions, nil
}

func parseAction(fields []string) (Action, error) {
	a := Action{Kind: ActionKind(strings.ToLower(fields[0])), Ticks: 1}
	args := fields[1:]

	switch a.Kind {
	case ActionWalk:
		if len(args) < 1 || len(args) > 2 {
			return a, fmt.Errorf("walk: ожидается направление и число тиков")
		}
		for _, dir := range strings.Split(strings.ToLower(args[0]), "+") {
			switch dir {
			case "forward":
				a.Move.Forward = true
			case "backward":
				a.Move.Backward = true
			case "left":
				a.Move.Left = true
			case "right":
				a.Move.Right = true
			default:
				return a, fmt.Errorf("walk: неизвестное направление %q", dir)
			}
		}
		if len(args) == 2 {
			n, err := parsePositive(args[1])
			if err != nil {
				return a, fmt.Errorf("walk: %w", err)
			}
			a.Ticks = n
		}
	case ActionWait:
		if len(args) != 1 {
			return a, fmt.Errorf("wait: ожидается число тиков")
		}
		n, err := parsePositive(args[0])
		if err != nil {
			return a, fmt.Errorf("wait: %w", err)
		}
		a.Ticks = n
	case ActionLook:
		if len(args) != 3 {
			return a, fmt.Errorf("look: ожидается три координаты")
		}
		for i, s := range args {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return a, fmt.Errorf("look: %w", err)
			}
			a.Look[i] = v
		}
		if a.Look.Dot(a.Look) == 0 {
			return a, fmt.Errorf("look: нулевое направление")
		}
	case ActionHotbar:
		if len(args) != 1 {
			return a, fmt.Errorf("hotbar: ожидается номер ячейки")
		}
		n, err := parsePositive(args[0])
		if err != nil {
			return a, fmt.Errorf("hotbar: %w", err)
		}
		a.Slot = n
	case ActionJump, ActionPlace, ActionDestroy, ActionCamera, ActionRestart, ActionNewLocation, ActionResume:
		if len(args) != 0 {
			return a, fmt.Errorf("%s: аргументы не нужны", a.Kind)
		}
	default:
		return a, fmt.Errorf("неизвестная команда %q", fields[0])
	}
	return a, nil
}

func parsePositive(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("ожидается положительное число, получено %d", n)
	}
	return n, nil
}

// ScriptInput проигрывает сценарий по кругу как внешний источник ввода.
type ScriptInput struct {
	actions   []Action
	idx       int
	remaining int
	cam       Camera
}

// NewScriptInput создаёт источник ввода. Камера изначально смотрит на +Z.
func NewScriptInput(actions []Action) *ScriptInput {
	return &ScriptInput{
		actions: actions,
		cam:     Camera{Look: mgl64.Vec3{0, 0, 1}},
	}
}

// Camera возвращает текущее направление взгляда
func (si *ScriptInput) Camera() Camera {
	return si.cam
}

// Next возвращает ввод на очередной тик. Мгновенные команды (look, hotbar,
// camera, restart, newlocation, resume) применяются к сессии сразу,
// и выполнение продолжается до первой команды, занимающей тик.
func (si *ScriptInput) Next(ctx context.Context, s *Session) (ControlIntent, Camera) {
	if len(si.actions) == 0 {
		return ControlIntent{}, si.cam
	}

	// Защита от сценария только из мгновенных команд
	for guard := 0; guard <= len(si.actions); guard++ {
		a := si.actions[si.idx]
		if si.remaining == 0 {
			si.remaining = a.Ticks
		}

		switch a.Kind {
		case ActionWalk, ActionWait, ActionJump, ActionPlace, ActionDestroy:
			intent := a.Move
			intent.Jump = a.Kind == ActionJump
			intent.Place = a.Kind == ActionPlace
			intent.Destroy = a.Kind == ActionDestroy
			si.remaining--
			if si.remaining == 0 {
				si.advance()
			}
			return intent, si.cam
		default:
			si.apply(ctx, s, a)
			si.remaining = 0
			si.advance()
		}
	}
	return ControlIntent{}, si.cam
}

func (si *ScriptInput) advance() {
	si.idx = (si.idx + 1) % len(si.actions)
}

func (si *ScriptInput) apply(ctx context.Context, s *Session, a Action) {
	switch a.Kind {
	case ActionLook:
		si.cam.Look = a.Look
	case ActionHotbar:
		if _, err := s.SelectHotbar(a.Slot); err != nil {
			logging.GetSimLogger().Warn("Сценарий: %v", err)
		}
	case ActionCamera:
		s.ToggleCamera()
	case ActionRestart:
		s.Restart(ctx)
	case ActionNewLocation:
		s.NewLocation(ctx)
	case ActionResume:
		s.Resume()
	}
}
