package world

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// The wire format is plain protobuf laid out by hand. Field numbers are part
// of the protocol and must not be renumbered:
//
//	message ClientData {
//	  Entity entity = 1;
//	  Action action = 2;
//	  uint32 data_type = 3;  // DataChunk, DataRefresh
//	  CCoords ccoords = 4;
//	}
//	message Action { uint32 type = 1; float ang = 2; float traj = 3; }
//	message Chunk {
//	  repeated Tile tiles = 1;
//	  repeated Entity entities = 2;
//	  CCoords coords = 3;    // always written
//	  uint32 index = 4;
//	  fixed64 hash = 5;
//	  uint32 timezone = 6;
//	  bool observed = 7;     // always written, last
//	}
//	message Tile {
//	  CCoords coords = 1; uint32 index = 2; CCoords size = 3; uint32 type = 4;
//	  Entity holds = 5; optional uint32 designed = 6;
//	}
//	message Entity {
//	  uint64 index = 1; Vec3 coords = 2; CCoords ccoords = 3; uint32 action = 4;
//	  Vec3 vel = 5; float ang = 6; float traj = 7; uint32 type = 8; Stats stats = 9;
//	  uint32 status = 10; Alignment alignment = 11; repeated ItemStack items = 12;
//	  string name = 13; uint32 gender = 14; uint64 tasks = 15; uint32 current_world = 16;
//	  uint64 linked_entity_id = 17; uint32 class = 18; sint32 experience = 19;
//	  sint32 level = 20; repeated BodyPart parts = 21;
//	}
//	message Stats { sint32 health = 1; uint32 hunger = 2; bytes skills = 3; }
//	message Alignment { uint32 faction = 1; uint32 aggression = 2; }
//	message ItemStack { uint32 item = 1; uint32 count = 2; }
//	message BodyPart { uint32 type = 1; uint32 disease = 2; sint32 health = 3; }
//	message CCoords { sint32 x = 1; sint32 y = 2; sint32 z = 3; }
//	message Vec3 { float x = 1; float y = 2; float z = 3; }

var ErrMalformed = errors.New("malformed message")

func (cd *ClientData) MarshalBinary() ([]byte, error) {
	return appendClientData(nil, cd), nil
}

func (cd *ClientData) UnmarshalBinary(b []byte) error {
	var out ClientData
	var hasEntity bool
	err := decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			hasEntity = true
			return messageField(typ, b, func(m []byte) error { return decodeEntity(m, &out.Entity) })
		case 2:
			return messageField(typ, b, func(m []byte) error { return decodeAction(m, &out.Action) })
		case 3:
			return varintField(typ, b, &out.DataType)
		case 4:
			return messageField(typ, b, func(m []byte) error { return decodeCCoords(m, &out.CCoords) })
		}
		return 0, nil
	})
	if err != nil {
		return err
	}
	if !hasEntity {
		return fmt.Errorf("%w: client data without entity", ErrMalformed)
	}
	if out.DataType >= numClientDataTypes || out.Action.Type >= numActionTypes {
		return fmt.Errorf("%w: unknown request kind", ErrMalformed)
	}
	*cd = out
	return nil
}

func (c *Chunk) MarshalBinary() ([]byte, error) {
	return appendChunk(nil, c), nil
}

// UnmarshalBinary decodes a chunk. The trailing fields are always written, so
// a frame cut short on a field boundary is still rejected.
func (c *Chunk) UnmarshalBinary(b []byte) error {
	var out Chunk
	var hasCoords, hasObserved bool
	err := decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return messageField(typ, b, func(m []byte) error {
				var t Tile
				if err := decodeTile(m, &t); err != nil {
					return err
				}
				out.Tiles = append(out.Tiles, t)
				return nil
			})
		case 2:
			return messageField(typ, b, func(m []byte) error {
				var e Entity
				if err := decodeEntity(m, &e); err != nil {
					return err
				}
				out.Entities = append(out.Entities, e)
				return nil
			})
		case 3:
			hasCoords = true
			return messageField(typ, b, func(m []byte) error { return decodeCCoords(m, &out.Coords) })
		case 4:
			return varintField(typ, b, &out.Index)
		case 5:
			return fixed64Field(typ, b, &out.Hash)
		case 6:
			return varintField(typ, b, &out.Timezone)
		case 7:
			hasObserved = true
			return boolField(typ, b, &out.Observed)
		}
		return 0, nil
	})
	if err != nil {
		return err
	}
	if !hasCoords || !hasObserved {
		return fmt.Errorf("%w: truncated chunk", ErrMalformed)
	}
	*c = out
	return nil
}

func appendClientData(b []byte, cd *ClientData) []byte {
	b = appendMessage(b, 1, func(b []byte) []byte { return appendEntity(b, &cd.Entity) })
	b = appendMessage(b, 2, func(b []byte) []byte { return appendAction(b, &cd.Action) })
	b = appendVarint(b, 3, uint64(cd.DataType))
	b = appendMessage(b, 4, func(b []byte) []byte { return appendCCoords(b, cd.CCoords) })
	return b
}

func appendChunk(b []byte, c *Chunk) []byte {
	b = appendTiles(b, c.Tiles)
	b = appendEntitiesField(b, 2, c.Entities)
	b = appendMessage(b, 3, func(b []byte) []byte { return appendCCoords(b, c.Coords) })
	b = appendVarint(b, 4, uint64(c.Index))
	b = protowire.AppendTag(b, 5, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, c.Hash)
	b = appendVarint(b, 6, uint64(c.Timezone))
	b = appendVarint(b, 7, protowire.EncodeBool(c.Observed))
	return b
}

func appendTiles(b []byte, tiles []Tile) []byte {
	for i := range tiles {
		b = appendMessage(b, 1, func(b []byte) []byte { return appendTile(b, &tiles[i]) })
	}
	return b
}

func appendEntities(b []byte, entities []Entity) []byte {
	return appendEntitiesField(b, 2, entities)
}

func appendEntitiesField(b []byte, num protowire.Number, entities []Entity) []byte {
	for i := range entities {
		b = appendMessage(b, num, func(b []byte) []byte { return appendEntity(b, &entities[i]) })
	}
	return b
}

func appendTile(b []byte, t *Tile) []byte {
	b = appendMessage(b, 1, func(b []byte) []byte { return appendCCoords(b, t.Coords) })
	b = appendVarint(b, 2, uint64(t.Index))
	b = appendMessage(b, 3, func(b []byte) []byte { return appendCCoords(b, t.Size) })
	b = appendVarint(b, 4, uint64(t.Type))
	if t.Holds != nil {
		b = appendMessage(b, 5, func(b []byte) []byte { return appendEntity(b, t.Holds) })
	}
	if t.Designed != nil {
		b = appendVarint(b, 6, uint64(*t.Designed))
	}
	return b
}

func decodeTile(b []byte, t *Tile) error {
	err := decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return messageField(typ, b, func(m []byte) error { return decodeCCoords(m, &t.Coords) })
		case 2:
			return varintField(typ, b, &t.Index)
		case 3:
			return messageField(typ, b, func(m []byte) error { return decodeCCoords(m, &t.Size) })
		case 4:
			return varintField(typ, b, &t.Type)
		case 5:
			return messageField(typ, b, func(m []byte) error {
				t.Holds = new(Entity)
				return decodeEntity(m, t.Holds)
			})
		case 6:
			t.Designed = new(TileType)
			return varintField(typ, b, t.Designed)
		}
		return 0, nil
	})
	if err != nil {
		return err
	}
	if t.Type >= numTileTypes || (t.Designed != nil && *t.Designed >= numTileTypes) {
		return fmt.Errorf("%w: unknown tile type", ErrMalformed)
	}
	return nil
}

func appendEntity(b []byte, e *Entity) []byte {
	b = appendVarint(b, 1, uint64(e.Index))
	b = appendMessage(b, 2, func(b []byte) []byte { return appendCoords(b, e.Coords) })
	b = appendMessage(b, 3, func(b []byte) []byte { return appendCCoords(b, e.CCoords) })
	b = appendVarint(b, 4, uint64(e.Action))
	b = appendMessage(b, 5, func(b []byte) []byte { return appendVec3(b, e.Vel) })
	b = appendFloat(b, 6, e.Ang)
	b = appendFloat(b, 7, e.Traj)
	b = appendVarint(b, 8, uint64(e.Type))
	b = appendMessage(b, 9, func(b []byte) []byte { return appendStats(b, &e.Stats) })
	b = appendVarint(b, 10, uint64(e.Status))
	b = appendMessage(b, 11, func(b []byte) []byte {
		b = appendVarint(b, 1, uint64(e.Alignment.Faction))
		return appendVarint(b, 2, uint64(e.Alignment.Aggression))
	})
	for _, s := range e.Inventory.Items {
		b = appendMessage(b, 12, func(b []byte) []byte {
			b = appendVarint(b, 1, uint64(s.Item))
			return appendVarint(b, 2, uint64(s.Count))
		})
	}
	b = protowire.AppendTag(b, 13, protowire.BytesType)
	b = protowire.AppendString(b, e.Name)
	b = appendVarint(b, 14, uint64(e.Gender))
	b = appendVarint(b, 15, e.Tasks.bits())
	b = appendVarint(b, 16, uint64(e.CurrentWorld))
	b = appendVarint(b, 17, e.LinkedEntityID)
	b = appendVarint(b, 18, uint64(e.Class))
	b = appendSint(b, 19, e.Experience)
	b = appendSint(b, 20, e.Level)
	for _, p := range e.Parts {
		b = appendMessage(b, 21, func(b []byte) []byte {
			b = appendVarint(b, 1, uint64(p.Type))
			b = appendVarint(b, 2, uint64(p.Disease))
			return appendSint(b, 3, p.Health)
		})
	}
	return b
}

func decodeEntity(b []byte, e *Entity) error {
	err := decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return varintField(typ, b, &e.Index)
		case 2:
			return messageField(typ, b, func(m []byte) error { return decodeCoords(m, &e.Coords) })
		case 3:
			return messageField(typ, b, func(m []byte) error { return decodeCCoords(m, &e.CCoords) })
		case 4:
			return varintField(typ, b, &e.Action)
		case 5:
			return messageField(typ, b, func(m []byte) error { return decodeVec3(m, &e.Vel) })
		case 6:
			return floatField(typ, b, &e.Ang)
		case 7:
			return floatField(typ, b, &e.Traj)
		case 8:
			return varintField(typ, b, &e.Type)
		case 9:
			return messageField(typ, b, func(m []byte) error { return decodeStats(m, &e.Stats) })
		case 10:
			return varintField(typ, b, &e.Status)
		case 11:
			return messageField(typ, b, func(m []byte) error {
				return decodeFields(m, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
					switch num {
					case 1:
						return varintField(typ, b, &e.Alignment.Faction)
					case 2:
						return varintField(typ, b, &e.Alignment.Aggression)
					}
					return 0, nil
				})
			})
		case 12:
			return messageField(typ, b, func(m []byte) error {
				var s ItemStack
				err := decodeFields(m, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
					switch num {
					case 1:
						return varintField(typ, b, &s.Item)
					case 2:
						return varintField(typ, b, &s.Count)
					}
					return 0, nil
				})
				e.Inventory.Items = append(e.Inventory.Items, s)
				return err
			})
		case 13:
			if typ != protowire.BytesType {
				return 0, wireTypeError(typ)
			}
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return 0, malformed(n)
			}
			e.Name = v
			return n, nil
		case 14:
			return varintField(typ, b, &e.Gender)
		case 15:
			var bits uint64
			n, err := varintField(typ, b, &bits)
			e.Tasks = tasksFromBits(bits)
			return n, err
		case 16:
			return varintField(typ, b, &e.CurrentWorld)
		case 17:
			return varintField(typ, b, &e.LinkedEntityID)
		case 18:
			return varintField(typ, b, &e.Class)
		case 19:
			return sintField(typ, b, &e.Experience)
		case 20:
			return sintField(typ, b, &e.Level)
		case 21:
			return messageField(typ, b, func(m []byte) error {
				var p BodyPart
				err := decodeFields(m, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
					switch num {
					case 1:
						return varintField(typ, b, &p.Type)
					case 2:
						return varintField(typ, b, &p.Disease)
					case 3:
						return sintField(typ, b, &p.Health)
					}
					return 0, nil
				})
				e.Parts = append(e.Parts, p)
				return err
			})
		}
		return 0, nil
	})
	if err != nil {
		return err
	}
	return e.validate()
}

func (e *Entity) validate() error {
	switch {
	case e.Type >= numEntityTypes, e.Action >= numActionTypes, e.Status >= numStatuses,
		e.Gender >= numGenders, e.Class >= numClasses, e.Alignment.Faction >= numFactions:
		return fmt.Errorf("%w: entity %d has an unknown tag", ErrMalformed, e.Index)
	}
	for _, s := range e.Inventory.Items {
		if s.Item >= numItems {
			return fmt.Errorf("%w: unknown item", ErrMalformed)
		}
	}
	for _, p := range e.Parts {
		if p.Type >= numBodyParts || p.Disease >= numDiseases {
			return fmt.Errorf("%w: unknown body part", ErrMalformed)
		}
	}
	return nil
}

func appendStats(b []byte, s *Stats) []byte {
	b = appendSint(b, 1, s.Health)
	b = appendVarint(b, 2, uint64(s.Hunger))
	b = protowire.AppendTag(b, 3, protowire.BytesType)
	return protowire.AppendBytes(b, s.Skills[:])
}

func decodeStats(b []byte, s *Stats) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return sintField(typ, b, &s.Health)
		case 2:
			return varintField(typ, b, &s.Hunger)
		case 3:
			if typ != protowire.BytesType {
				return 0, wireTypeError(typ)
			}
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return 0, malformed(n)
			}
			copy(s.Skills[:], v)
			return n, nil
		}
		return 0, nil
	})
}

func appendAction(b []byte, a *ActionContent) []byte {
	b = appendVarint(b, 1, uint64(a.Type))
	b = appendFloat(b, 2, a.Ang)
	return appendFloat(b, 3, a.Traj)
}

func decodeAction(b []byte, a *ActionContent) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return varintField(typ, b, &a.Type)
		case 2:
			return floatField(typ, b, &a.Ang)
		case 3:
			return floatField(typ, b, &a.Traj)
		}
		return 0, nil
	})
}

func appendCCoords(b []byte, c CCoords) []byte {
	b = appendSint(b, 1, c.X)
	b = appendSint(b, 2, c.Y)
	return appendSint(b, 3, c.Z)
}

func decodeCCoords(b []byte, c *CCoords) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return sintField(typ, b, &c.X)
		case 2:
			return sintField(typ, b, &c.Y)
		case 3:
			return sintField(typ, b, &c.Z)
		}
		return 0, nil
	})
}

func appendCoords(b []byte, c Coords) []byte {
	return appendVec3(b, Vec3{X: float32(c.X), Y: float32(c.Y), Z: float32(c.Z)})
}

func decodeCoords(b []byte, c *Coords) error {
	var v Vec3
	if err := decodeVec3(b, &v); err != nil {
		return err
	}
	*c = NewCoords(v.X, v.Y, v.Z)
	return nil
}

func appendVec3(b []byte, v Vec3) []byte {
	b = appendFloat(b, 1, v.X)
	b = appendFloat(b, 2, v.Y)
	return appendFloat(b, 3, v.Z)
}

func decodeVec3(b []byte, v *Vec3) error {
	return decodeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return floatField(typ, b, &v.X)
		case 2:
			return floatField(typ, b, &v.Y)
		case 3:
			return floatField(typ, b, &v.Z)
		}
		return 0, nil
	})
}

func appendMessage(b []byte, num protowire.Number, fn func([]byte) []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, fn(nil))
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendSint(b []byte, num protowire.Number, v int32) []byte {
	return appendVarint(b, num, protowire.EncodeZigZag(int64(v)))
}

func appendFloat(b []byte, num protowire.Number, v float32) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed32Type)
	return protowire.AppendFixed32(b, math.Float32bits(v))
}

// fieldFunc consumes the value of one field and returns its length, or 0 to
// have the field skipped.
type fieldFunc func(num protowire.Number, typ protowire.Type, b []byte) (int, error)

func decodeFields(b []byte, fn fieldFunc) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return malformed(n)
		}
		b = b[n:]
		m, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		if m == 0 {
			m = protowire.ConsumeFieldValue(num, typ, b)
		}
		if m < 0 {
			return malformed(m)
		}
		b = b[m:]
	}
	return nil
}

func malformed(n int) error {
	return fmt.Errorf("%w: %v", ErrMalformed, protowire.ParseError(n))
}

func wireTypeError(typ protowire.Type) error {
	return fmt.Errorf("%w: unexpected wire type %d", ErrMalformed, typ)
}

func messageField(typ protowire.Type, b []byte, fn func([]byte) error) (int, error) {
	if typ != protowire.BytesType {
		return 0, wireTypeError(typ)
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return 0, malformed(n)
	}
	return n, fn(v)
}

func varintField[T ~uint8 | ~uint32 | ~uint64](typ protowire.Type, b []byte, dst *T) (int, error) {
	if typ != protowire.VarintType {
		return 0, wireTypeError(typ)
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, malformed(n)
	}
	if uint64(T(v)) != v {
		return 0, fmt.Errorf("%w: value %d overflows field", ErrMalformed, v)
	}
	*dst = T(v)
	return n, nil
}

func boolField(typ protowire.Type, b []byte, dst *bool) (int, error) {
	var v uint64
	n, err := varintField(typ, b, &v)
	*dst = protowire.DecodeBool(v)
	return n, err
}

func sintField(typ protowire.Type, b []byte, dst *int32) (int, error) {
	var v uint64
	n, err := varintField(typ, b, &v)
	if err != nil {
		return 0, err
	}
	s := protowire.DecodeZigZag(v)
	if s < math.MinInt32 || s > math.MaxInt32 {
		return 0, fmt.Errorf("%w: value %d overflows int32", ErrMalformed, s)
	}
	*dst = int32(s)
	return n, nil
}

func floatField(typ protowire.Type, b []byte, dst *float32) (int, error) {
	if typ != protowire.Fixed32Type {
		return 0, wireTypeError(typ)
	}
	v, n := protowire.ConsumeFixed32(b)
	if n < 0 {
		return 0, malformed(n)
	}
	*dst = math.Float32frombits(v)
	return n, nil
}

func fixed64Field(typ protowire.Type, b []byte, dst *uint64) (int, error) {
	if typ != protowire.Fixed64Type {
		return 0, wireTypeError(typ)
	}
	v, n := protowire.ConsumeFixed64(b)
	if n < 0 {
		return 0, malformed(n)
	}
	*dst = v
	return n, nil
}
