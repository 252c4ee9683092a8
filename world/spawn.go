package world

import "math/rand/v2"

var humanNames = []string{
	"Aaron", "Abel", "Adrian", "Albert", "Alfred", "Amos", "Arthur", "Barnaby",
	"Benedict", "Bernard", "Calvin", "Cecil", "Clement", "Cyril", "Dexter", "Edgar",
	"Edmund", "Elias", "Ezra", "Felix", "Gideon", "Harold", "Horace", "Ignatius",
	"Jasper", "Leopold", "Lionel", "Magnus", "Milo", "Neville", "Oswald", "Percival",
	"Quentin", "Rupert", "Silas", "Thaddeus", "Ulysses", "Victor", "Wendell", "Zachary",
}

func HumanName() string {
	return humanNames[rand.IntN(len(humanNames))]
}

func NewPlayer(id EntityID, c Coords, r *Rules) Entity {
	e := NewEntity(id, c, Human, r)
	e.Name = "Player"
	e.Gender = Female
	return e
}

func NewNPC(id EntityID, c Coords, faction Faction, r *Rules) Entity {
	e := NewEntity(id, c, Human, r)
	e.Name = HumanName()
	e.Gender = Male
	e.Alignment = Alignment{Faction: faction, Aggression: uint8(rand.IntN(100))}
	return e
}

func NewShell(id EntityID, c Coords, r *Rules) Entity {
	return NewEntity(id, c, Shell, r)
}

func NewExplosion(id EntityID, c Coords, r *Rules) Entity {
	return NewEntity(id, c, Explosion, r)
}

func NewCar(id EntityID, c Coords, r *Rules) Entity {
	return NewEntity(id, c, Car, r)
}

func NewCrop(id EntityID, c Coords, r *Rules) Entity {
	e := NewEntity(id, c, Cauliflower, r)
	e.Name = ""
	e.Stats = PlantStats(true)
	e.Parts = []BodyPart{{Type: Stem, Disease: Healthy, Health: 100}}
	return e
}

func NewSickPlant(id EntityID, c Coords, r *Rules) Entity {
	e := NewEntity(id, c, Cauliflower, r)
	e.Name = ""
	e.Stats = PlantStats(false)
	e.Parts = []BodyPart{{Type: Stem, Disease: VerticilliumWilt, Health: 10}}
	return e
}

func NewCattle(id EntityID, c Coords, r *Rules) Entity {
	e := NewEntity(id, c, Cow, r)
	e.Name = ""
	return e
}

// NewConstruct builds a stationary object placed by a player.
func NewConstruct(id EntityID, c Coords, typ EntityType, ang float32, r *Rules) Entity {
	e := NewEntity(id, c, typ, r)
	e.Stats = RandomStats()
	e.Alignment = Alignment{Faction: Marine, Aggression: uint8(rand.IntN(100))}
	e.Name = HumanName()
	e.Ang = ang
	return e
}
