package world

type EntityType uint8

const (
	Cactus EntityType = iota
	Tumbleweed
	Human
	Cow
	Cannon
	Cauliflower
	Lily
	Tulip
	Stone
	Shell
	Road
	Explosion
	Landmine
	Car
	numEntityTypes
)

var entityTypeNames = [...]string{
	"Cactus", "Tumbleweed", "Human", "Cow", "Cannon", "Cauliflower", "Lily",
	"Tulip", "Stone", "Shell", "Road", "Explosion", "Landmine", "Car",
}

func (t EntityType) String() string {
	if t >= numEntityTypes {
		return "EntityType(?)"
	}
	return entityTypeNames[t]
}

type Status uint8

const (
	Talking Status = iota
	Fighting
	Idle
	numStatuses
)

type Gender uint8

const (
	Male Gender = iota
	Female
	Other
	numGenders
)

type Class uint8

const (
	Detective Class = iota
	Mailcarrier
	Businessman
	Chemist
	Engineer
	numClasses
)

type Faction uint8

const (
	NoFaction Faction = iota
	Marine
	Irregular
	Worm
	numFactions
)

type Alignment struct {
	Faction    Faction
	Aggression uint8
}

type Item uint8

const (
	Bread Item = iota
	Coin
	numItems
)

type ItemStack struct {
	Item  Item
	Count uint32
}

type Inventory struct {
	Items []ItemStack
}

func NewInventory() Inventory {
	return Inventory{Items: []ItemStack{{Item: Coin, Count: 1}}}
}

func (inv Inventory) Coins() uint32 {
	var n uint32
	for _, s := range inv.Items {
		if s.Item == Coin {
			n += s.Count
		}
	}
	return n
}

type DiseaseType uint8

const (
	Healthy DiseaseType = iota
	FusariumWilt
	VerticilliumWilt
	numDiseases
)

type BodyPartType uint8

const (
	Head BodyPartType = iota
	LeftArm
	RightArm
	Torso
	LeftLeg
	RightLeg
	Stem
	Areoles
	Flower
	numBodyParts
)

type BodyPart struct {
	Type    BodyPartType
	Disease DiseaseType
	Health  int32
}

// Tasks are one-shot flags raised during a step and consumed by the chunk resolver.
type Tasks struct {
	Build   bool
	Fire    bool
	Explode bool
	Migrate bool
}

func (t Tasks) bits() uint64 {
	var b uint64
	for i, set := range [...]bool{t.Build, t.Fire, t.Explode, t.Migrate} {
		if set {
			b |= 1 << i
		}
	}
	return b
}

func tasksFromBits(b uint64) Tasks {
	return Tasks{
		Build:   b&1 != 0,
		Fire:    b&2 != 0,
		Explode: b&4 != 0,
		Migrate: b&8 != 0,
	}
}

// Entity is any simulated object: avatars, NPCs, plants, projectiles,
// explosions and constructed objects.
type Entity struct {
	Index   EntityID
	Coords  Coords
	CCoords CCoords // cached chunk of Coords
	Action  ActionType
	Vel     Vec3
	Ang     float32 // facing
	Traj    float32 // launch elevation
	Type    EntityType
	Stats   Stats
	Status  Status

	Alignment Alignment
	Inventory Inventory
	Name      string
	Gender    Gender
	Class     Class
	Tasks     Tasks

	CurrentWorld   uint32
	LinkedEntityID uint64
	Experience     int32
	Level          int32
	Parts          []BodyPart
}

// NewEntity builds an idle entity of the given type with default stats.
func NewEntity(id EntityID, coords Coords, typ EntityType, r *Rules) Entity {
	return Entity{
		Index:     id,
		Coords:    coords,
		CCoords:   r.ChunkOf(coords),
		Type:      typ,
		Stats:     NewStats(),
		Status:    Idle,
		Alignment: Alignment{Faction: NoFaction},
		Inventory: NewInventory(),
		Name:      typ.String(),
		Gender:    Other,
		Class:     Mailcarrier,
		Level:     1,
	}
}

func (e *Entity) Fire() {
	e.Tasks.Fire = true
}

// clone copies e so the copy shares no slices with it.
func (e *Entity) clone() Entity {
	c := *e
	c.Inventory.Items = append([]ItemStack(nil), e.Inventory.Items...)
	c.Parts = append([]BodyPart(nil), e.Parts...)
	return c
}
