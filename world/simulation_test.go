package world

import (
	"testing"
	"time"
)

func TestResolveHungerBottomsOut(t *testing.T) {
	w := testWorld()
	e := NewPlayer(1, NewCoords(5, 5, 0), w.Rules())
	e.Stats.Hunger = 1
	e.Resolve(w.Env())
	e.Resolve(w.Env())
	if e.Stats.Hunger != 0 {
		t.Fatalf("expected hunger 0, got %d", e.Stats.Hunger)
	}
}

func TestResolveShellKinematics(t *testing.T) {
	w := testWorld()
	r := w.Rules()
	s := NewShell(1, NewCoords(10, 10, 20), r)
	s.Vel = Vec3{X: 1, Y: -2, Z: 0.5}
	s.Resolve(w.Env())

	if want := NewCoords(11, 8, 20.5); s.Coords != want {
		t.Fatalf("expected position %v, got %v", want, s.Coords)
	}
	if want := 0.5 - r.Gravity; s.Vel.Z != want {
		t.Fatalf("expected vertical velocity %v, got %v", want, s.Vel.Z)
	}
}

func TestResolveExplosionDecays(t *testing.T) {
	w := testWorld()
	e := NewExplosion(1, NewCoords(5, 5, 0), w.Rules())
	e.Resolve(w.Env())
	if want := 100 - w.Rules().ExplosionDecay; e.Stats.Health != want {
		t.Fatalf("expected health %d, got %d", want, e.Stats.Health)
	}
}

func TestResolveCannonFiresOnPeriod(t *testing.T) {
	w := testWorld()
	c := NewConstruct(1, NewCoords(5, 5, 0), Cannon, 0, w.Rules())

	c.Resolve(w.Env())
	if c.Tasks.Fire {
		t.Fatalf("expected no fire off period")
	}

	w.SetClock(func() time.Time { return time.UnixMilli(2 * w.Rules().CannonPeriod) })
	c.Resolve(w.Env())
	if !c.Tasks.Fire {
		t.Fatalf("expected fire on period")
	}
}

func TestResolveRecomputesChunk(t *testing.T) {
	w := testWorld()
	s := NewShell(1, NewCoords(63.5, 10, 20), w.Rules())
	s.Vel = Vec3{X: 1}
	s.Resolve(w.Env())
	if s.CCoords != (CCoords{X: 1}) {
		t.Fatalf("expected chunk (1,0) after crossing, got %v", s.CCoords)
	}
}

func TestResolveAgainst(t *testing.T) {
	w := testWorld()
	r := w.Rules()
	w.SetRoll(func(int) int { return 3 })

	near := NewCoords(10, 10, 0)
	far := NewCoords(10+float32(r.VicinityDist)+1, 10, 0)

	t.Run("explosion nearby", func(t *testing.T) {
		e := NewPlayer(1, near, r)
		e.ResolveAgainst(ptr(NewExplosion(2, near, r)), w.Env())
		if want := 100 - r.ExplosionDamage; e.Stats.Health != want {
			t.Fatalf("expected health %d, got %d", want, e.Stats.Health)
		}
	})

	t.Run("explosion far away", func(t *testing.T) {
		e := NewPlayer(1, near, r)
		e.ResolveAgainst(ptr(NewExplosion(2, far, r)), w.Env())
		if e.Stats.Health != 100 {
			t.Fatalf("expected untouched health, got %d", e.Stats.Health)
		}
	})

	t.Run("landmine triggered", func(t *testing.T) {
		m := NewConstruct(1, near, Landmine, 0, r)
		m.ResolveAgainst(ptr(NewCattle(2, near, r)), w.Env())
		if m.Stats.Health > 0 {
			t.Fatalf("expected landmine to be spent, got health %d", m.Stats.Health)
		}
	})

	t.Run("fight spreads to the aggressive", func(t *testing.T) {
		attacker := NewNPC(2, near, Irregular, r)
		attacker.Status = Fighting
		attacker.Stats.Skills[Strength] = 10

		calm := NewNPC(1, near, Marine, r)
		calm.Alignment.Aggression = r.FightThreshold
		calm.ResolveAgainst(&attacker, w.Env())
		if calm.Stats.Health != 70 || calm.Status != Idle {
			t.Fatalf("expected calm victim at 70 and idle, got %d %v", calm.Stats.Health, calm.Status)
		}

		hot := NewNPC(3, near, Marine, r)
		hot.Alignment.Aggression = r.FightThreshold + 1
		hot.ResolveAgainst(&attacker, w.Env())
		if hot.Stats.Health != 70 || hot.Status != Fighting {
			t.Fatalf("expected aggressive victim at 70 and fighting, got %d %v", hot.Stats.Health, hot.Status)
		}
	})
}

func ptr[T any](v T) *T {
	return &v
}
