package world

// Resolve advances e by one step.
func (e *Entity) Resolve(env *Env) {
	if e.Stats.Hunger > 0 {
		e.Stats.Hunger--
	}

	switch e.Type {
	case Shell:
		e.Coords.X += Floored(e.Vel.X)
		e.Coords.Y += Floored(e.Vel.Y)
		e.Coords.Z += Floored(e.Vel.Z)
		e.Vel.Z -= env.Rules.Gravity
	case Explosion:
		e.Stats.Health -= env.Rules.ExplosionDecay
	case Cannon:
		// Jittered on purpose: the tick rate and the wall clock drift apart.
		if p := env.Rules.CannonPeriod; p > 0 && env.Now().UnixMilli()%p == 0 {
			e.Fire()
		}
	}

	e.CCoords = env.Rules.ChunkOf(e.Coords)
}

// ResolveAgainst applies the effects other has on e when the two are close.
// other is read only.
func (e *Entity) ResolveAgainst(other *Entity, env *Env) {
	if e.Coords.Dist(other.Coords) > env.Rules.VicinityDist {
		return
	}
	if other.Type == Explosion {
		e.Stats.Health -= env.Rules.ExplosionDamage
	}
	if e.Type == Landmine {
		e.Stats.Health = -1
	}
	if other.Status == Fighting {
		dmg := int32(other.Stats.Skills[Strength]) * int32(env.Roll(env.Rules.FightRoll))
		e.Stats.Health -= dmg
		if e.Alignment.Aggression > env.Rules.FightThreshold {
			e.Status = Fighting
		}
	}
}

// launchShell builds the projectile e fires.
func (e *Entity) launchShell(env *Env) Entity {
	s := NewShell(env.IDs.Next(), e.Coords, env.Rules)
	s.Ang = e.Ang
	s.Traj = e.Traj
	s.Vel = heading(e.Ang, e.Traj, env.Rules.ShellSpeed, env.Rules.ShellLift)
	return s
}
