// Command bonkgo runs a small physics playground demonstrating the
// runtime: a kinematic paddle driven by input, dynamic crates falling
// under gravity, collision-triggered sound and scripted behaviors.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/clokk/bonkgo/audio"
	"github.com/clokk/bonkgo/config"
	"github.com/clokk/bonkgo/engine"
	"github.com/clokk/bonkgo/input"
	"github.com/clokk/bonkgo/physics"
	_ "github.com/clokk/bonkgo/physics/chipmunk"
	"github.com/clokk/bonkgo/render"
	"github.com/clokk/bonkgo/vmath"
)

func main() {
	configPath := flag.String("config", "", "path to TOML config")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		cfg = loaded
	}

	log, err := config.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Error("runtime exited with error", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	clock := engine.NewClock(cfg.Time.FixedDelta)
	clock.SetTimeScale(cfg.Time.TimeScale)

	scene, err := engine.NewScene(engine.SceneConfig{
		Backend: cfg.Physics.Backend,
		Gravity: vmath.Vec2{X: cfg.Physics.GravityX, Y: cfg.Physics.GravityY},
		Clock:   clock,
		Log:     log,
	})
	if err != nil {
		return err
	}
	defer scene.Unload()

	renderer, err := render.New()
	if err != nil {
		return err
	}
	defer renderer.Close()

	poller := input.NewPoller(renderer.Screen())
	player := audio.NewPlayer(log)

	if err := populate(scene, poller); err != nil {
		return err
	}
	scene.Start()

	// Host loop: the phase order is the runtime's contract
	ticker := time.NewTicker(time.Second / 60)
	defer ticker.Stop()
	last := time.Now()

	for range ticker.C {
		now := time.Now()
		dt := now.Sub(last).Seconds()
		last = now

		poller.Update()
		if poller.Held(input.ButtonQuit) {
			return nil
		}

		clock.Update(dt)
		scene.FixedUpdate()
		scene.Update()
		scene.LateUpdate()
		scene.ProcessPendingDestroy()

		player.Update(scene)
		renderer.Draw(scene)
	}
	return nil
}

// populate builds the playground: a static floor, a kinematic paddle,
// and a stack of dynamic crates.
func populate(scene *engine.Scene, poller *input.Poller) error {
	floor := engine.NewEntity("floor")
	floor.Transform().Position = vmath.Vec2{Y: -200}
	floor.AddComponent(&engine.RigidBody2D{BodyType: physics.BodyStatic, Friction: 0.8})
	floor.AddComponent(&engine.Collider2D{
		Shape: physics.ShapeBox,
		Size:  vmath.Vec2{X: 2000, Y: 40},
		Layer: "world",
	})
	floor.AddComponent(&engine.Sprite{Glyph: '='})
	if err := scene.Add(floor); err != nil {
		return err
	}

	paddle := engine.NewEntity("paddle")
	paddle.Transform().Position = vmath.Vec2{Y: -160}
	paddle.AddComponent(&engine.RigidBody2D{BodyType: physics.BodyKinematic, Friction: 0.4})
	paddle.AddComponent(&engine.Collider2D{
		Shape: physics.ShapeBox,
		Size:  vmath.Vec2{X: 120, Y: 20},
		Layer: "paddle",
	})
	paddle.AddComponent(&engine.Sprite{Glyph: '^'})
	paddle.AddComponent(&engine.AudioSource{Freq: 880, Duration: 0.05})
	paddle.AddBehavior(&paddleBehavior{poller: poller})
	if err := scene.Add(paddle); err != nil {
		return err
	}

	camera := engine.NewEntity("camera")
	camera.AddComponent(&engine.Camera{Primary: true})
	if err := scene.Add(camera); err != nil {
		return err
	}

	for i := 0; i < 8; i++ {
		crate := engine.NewEntity(fmt.Sprintf("crate-%d", i))
		crate.SetTag("crate")
		crate.Transform().Position = vmath.Vec2{
			X: float64(i%4)*60 - 90,
			Y: 200 + float64(i/4)*80,
		}
		crate.AddComponent(&engine.RigidBody2D{
			BodyType:    physics.BodyDynamic,
			Mass:        2,
			Friction:    0.5,
			Restitution: 0.3,
		})
		crate.AddComponent(&engine.Collider2D{
			Shape: physics.ShapeBox,
			Size:  vmath.Vec2{X: 40, Y: 40},
			Layer: "crate",
		})
		crate.AddComponent(&engine.Sprite{Glyph: 'O'})
		crate.AddBehavior(&crateBehavior{})
		if err := scene.Add(crate); err != nil {
			return err
		}
	}
	return nil
}

// paddleBehavior moves the kinematic paddle from input polls
type paddleBehavior struct {
	engine.BehaviorCore
	poller *input.Poller
}

const paddleSpeed = 400.0

func (p *paddleBehavior) Update(ctx *engine.Context) {
	t := p.Entity().Transform()
	switch {
	case p.poller.Held(input.ButtonLeft):
		t.Position.X -= paddleSpeed * ctx.Clock.Delta()
	case p.poller.Held(input.ButtonRight):
		t.Position.X += paddleSpeed * ctx.Clock.Delta()
	}
}

// crateBehavior blips on paddle hits and despawns crates that fall off
// the world
type crateBehavior struct {
	engine.BehaviorCore
}

func (c *crateBehavior) OnCollisionEnter(_ *engine.Context, hit engine.Collision) {
	if hit.Other.Name() != "paddle" {
		return
	}
	if src, ok := engine.ComponentOf[*engine.AudioSource](hit.Other); ok {
		src.Play()
	}
}

func (c *crateBehavior) OnCollisionExit(*engine.Context, engine.Collision) {}

func (c *crateBehavior) LateUpdate(*engine.Context) {
	if c.Entity().Transform().WorldPosition().Y < -1000 {
		c.Entity().Destroy()
	}
}
