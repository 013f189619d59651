// Package script lets behaviors be written as Lua files. Each behavior
// instance owns one VM; hook functions are plain Lua globals, all
// optional. Script errors are logged and contained, never fatal to the
// frame.
package script

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/clokk/bonkgo/engine"
	"github.com/clokk/bonkgo/prefab"
	"github.com/clokk/bonkgo/vmath"
)

// Lua global names looked up after the chunk runs
const (
	fnAwake          = "awake"
	fnStart          = "start"
	fnUpdate         = "update"
	fnFixedUpdate    = "fixed_update"
	fnLateUpdate     = "late_update"
	fnOnDestroy      = "on_destroy"
	fnCollisionEnter = "on_collision_enter"
	fnCollisionExit  = "on_collision_exit"
	fnTriggerEnter   = "on_trigger_enter"
	fnTriggerExit    = "on_trigger_exit"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type luaProps struct {
	File   string `json:"file,omitempty"`
	Source string `json:"source,omitempty"`
}

func init() {
	prefab.RegisterBehavior("lua", func(props []byte) (engine.Behavior, error) {
		var p luaProps
		if len(props) > 0 {
			if err := json.Unmarshal(props, &p); err != nil {
				return nil, err
			}
		}
		switch {
		case p.File != "":
			return NewBehavior(p.File, nil)
		case p.Source != "":
			return NewBehaviorFromSource("inline", p.Source, nil)
		default:
			return nil, fmt.Errorf("script: lua behavior needs file or source")
		}
	})
}

// Behavior runs a Lua script through the standard behavior lifecycle
type Behavior struct {
	engine.BehaviorCore

	vm   *lua.LState
	log  *zap.Logger
	name string
}

// NewBehavior loads a Lua file into a fresh VM. A nil logger silences
// script diagnostics.
func NewBehavior(path string, log *zap.Logger) (*Behavior, error) {
	b := newBehavior(path, log)
	if err := b.vm.DoFile(path); err != nil {
		b.vm.Close()
		return nil, fmt.Errorf("script: load %s: %w", path, err)
	}
	return b, nil
}

// NewBehaviorFromSource loads Lua source text directly; name shows up
// in diagnostics only.
func NewBehaviorFromSource(name, source string, log *zap.Logger) (*Behavior, error) {
	b := newBehavior(name, log)
	if err := b.vm.DoString(source); err != nil {
		b.vm.Close()
		return nil, fmt.Errorf("script: load %s: %w", name, err)
	}
	return b, nil
}

func newBehavior(name string, log *zap.Logger) *Behavior {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState()
	b := &Behavior{vm: vm, log: log, name: name}
	b.registerAPI()
	return b
}

// PrefabName lets lua behaviors survive prefab export
func (b *Behavior) PrefabName() string { return "lua" }

// registerAPI exposes the entity surface to the script
func (b *Behavior) registerAPI() {
	vm := b.vm

	vm.SetGlobal("self_name", vm.NewFunction(func(L *lua.LState) int {
		if e := b.Entity(); e != nil {
			L.Push(lua.LString(e.Name()))
		} else {
			L.Push(lua.LString(""))
		}
		return 1
	}))

	vm.SetGlobal("self_position", vm.NewFunction(func(L *lua.LState) int {
		var p vmath.Vec2
		if e := b.Entity(); e != nil {
			p = e.Transform().WorldPosition()
		}
		L.Push(lua.LNumber(p.X))
		L.Push(lua.LNumber(p.Y))
		return 2
	}))

	vm.SetGlobal("self_set_position", vm.NewFunction(func(L *lua.LState) int {
		x := float64(L.CheckNumber(1))
		y := float64(L.CheckNumber(2))
		if e := b.Entity(); e != nil {
			e.Transform().SetWorldPosition(vmath.Vec2{X: x, Y: y})
		}
		return 0
	}))

	vm.SetGlobal("self_destroy", vm.NewFunction(func(L *lua.LState) int {
		if e := b.Entity(); e != nil {
			e.Destroy()
		}
		return 0
	}))

	vm.SetGlobal("apply_impulse", vm.NewFunction(func(L *lua.LState) int {
		x := float64(L.CheckNumber(1))
		y := float64(L.CheckNumber(2))
		if e := b.Entity(); e != nil {
			if rb, ok := engine.ComponentOf[*engine.RigidBody2D](e); ok {
				rb.ApplyImpulse(vmath.Vec2{X: x, Y: y})
			}
		}
		return 0
	}))

	vm.SetGlobal("emit", vm.NewFunction(func(L *lua.LState) int {
		event := L.CheckString(1)
		b.Events().Emit(event, nil)
		return 0
	}))

	vm.SetGlobal("log_info", vm.NewFunction(func(L *lua.LState) int {
		b.log.Info("script", zap.String("behavior", b.name), zap.String("msg", L.CheckString(1)))
		return 0
	}))
}

// call invokes a Lua global if it exists, isolating script errors
func (b *Behavior) call(name string, args ...lua.LValue) {
	fn := b.vm.GetGlobal(name)
	if fn == lua.LNil {
		return
	}
	err := b.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, args...)
	if err != nil {
		b.log.Error("lua hook failed",
			zap.String("behavior", b.name),
			zap.String("hook", name),
			zap.Error(err))
	}
}

// === engine.Behavior lifecycle ===

func (b *Behavior) Awake(*engine.Context) { b.call(fnAwake) }

func (b *Behavior) Start(*engine.Context) { b.call(fnStart) }

func (b *Behavior) Update(ctx *engine.Context) {
	b.call(fnUpdate, lua.LNumber(ctx.Clock.Delta()))
}

func (b *Behavior) FixedUpdate(ctx *engine.Context) {
	b.call(fnFixedUpdate, lua.LNumber(ctx.Clock.FixedDelta()))
}

func (b *Behavior) LateUpdate(ctx *engine.Context) {
	b.call(fnLateUpdate, lua.LNumber(ctx.Clock.Delta()))
}

func (b *Behavior) OnDestroy(*engine.Context) {
	b.call(fnOnDestroy)
	b.vm.Close()
}

// === Optional collision capabilities ===

func (b *Behavior) OnCollisionEnter(_ *engine.Context, hit engine.Collision) {
	b.call(fnCollisionEnter, lua.LString(hit.Other.Name()),
		lua.LNumber(hit.Normal.X), lua.LNumber(hit.Normal.Y))
}

func (b *Behavior) OnCollisionExit(_ *engine.Context, hit engine.Collision) {
	b.call(fnCollisionExit, lua.LString(hit.Other.Name()),
		lua.LNumber(hit.Normal.X), lua.LNumber(hit.Normal.Y))
}

func (b *Behavior) OnTriggerEnter(_ *engine.Context, hit engine.Collision) {
	b.call(fnTriggerEnter, lua.LString(hit.Other.Name()))
}

func (b *Behavior) OnTriggerExit(_ *engine.Context, hit engine.Collision) {
	b.call(fnTriggerExit, lua.LString(hit.Other.Name()))
}
