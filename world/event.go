package world

// ApplyIntent folds one client request into the world. It reports whether the
// world changed; requests addressing positions outside the world are dropped.
func (w *World) ApplyIntent(cd *ClientData) bool {
	r := &w.rules
	src := cd.Entity
	ang, traj := cd.Action.Ang, cd.Action.Traj

	switch cd.Action.Type {
	case Empty, Refresh:
		// Ids above the allocator base belong to the server. Clients may steer
		// ones it already handed out but never claim fresh ones.
		if src.Index >= allocatorBase && !w.env.IDs.Issued(src.Index) {
			return false
		}
		return w.UpdateChunkWithEntity(src.clone())

	case ConstructCannon:
		return w.construct(src, Cannon, ang)
	case ConstructRoad:
		return w.construct(src, Road, ang)
	case ConstructLandmine:
		return w.construct(src, Landmine, ang)

	case ConstructShell:
		s := NewShell(w.env.IDs.Next(), src.Coords.Snap(r.TileSize), r)
		s.Ang, s.Traj = ang, traj
		s.Vel = heading(ang, traj, r.ShellSpeed, r.ShellLift)
		return w.UpdateChunkWithEntity(s)
	case ConstructCar:
		c := NewCar(w.env.IDs.Next(), src.Coords.Snap(r.TileSize), r)
		c.Ang, c.Traj = ang, traj
		c.Vel = heading(ang, traj, r.ShellSpeed, r.ShellLift)
		return w.UpdateChunkWithEntity(c)

	case Interact:
		return w.interact(src)
	}
	return false
}

func (w *World) construct(src Entity, typ EntityType, ang float32) bool {
	r := &w.rules
	e := NewConstruct(w.env.IDs.Next(), src.Coords.Snap(r.TileSize), typ, ang, r)
	return w.UpdateChunkWithEntity(e)
}

// interact links the first other entity sharing src's tile to src. It scans
// the chunk src says it is in.
func (w *World) interact(src Entity) bool {
	r := &w.rules
	c, err := w.ChunkAt(src.CCoords)
	if err != nil {
		return false
	}
	tx, ty := src.Coords.Tile(r.TileSize)
	for i := range c.Entities {
		e := &c.Entities[i]
		if e.Index == src.Index {
			continue
		}
		if ex, ey := e.Coords.Tile(r.TileSize); ex == tx && ey == ty {
			e.LinkedEntityID = uint64(src.Index)
			return true
		}
	}
	return false
}
