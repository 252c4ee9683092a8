package world

import "math/rand/v2"

// Skill indexes Stats.Skills.
type Skill uint8

const (
	Strength Skill = iota
	Intelligence
	Charisma
	Agility
	Senses
	Endurance
	Luck
	Botanist
	Zoology
	Ecology
	Explosives
	Mechanic
	Social
	Doctor
	Sneak
	Marksmanship
	Cook
	Fisher
	Sailor
	Unarmed
	Mining
	Mathematic
	Gambler
	NumSkills
)

type Stats struct {
	Health int32
	Hunger uint8
	Skills [NumSkills]uint8
}

func NewStats() Stats {
	s := Stats{Health: 100, Hunger: 100}
	for i := range s.Skills {
		s.Skills[i] = 10
	}
	return s
}

// RandomStats rolls every skill in [0, 10).
func RandomStats() Stats {
	s := Stats{Health: 100, Hunger: 100}
	for i := range s.Skills {
		s.Skills[i] = uint8(rand.IntN(10))
	}
	return s
}

// PlantStats fixes the physical attributes and rolls the rest. Crops are
// better botanists than wild plants.
func PlantStats(crop bool) Stats {
	s := RandomStats()
	copy(s.Skills[:Botanist+1], []uint8{5, 5, 3, 5, 5, 6, 5, 5})
	if crop {
		s.Skills[Botanist] = 15
	}
	return s
}

var classSkills = map[Class]map[Skill]uint8{
	Detective:   {Strength: 5, Intelligence: 8, Agility: 6, Charisma: 4, Senses: 6, Endurance: 2, Luck: 5, Social: 15, Gambler: 10},
	Mailcarrier: {Strength: 6, Agility: 8, Endurance: 8, Senses: 5, Social: 8},
	Businessman: {Charisma: 9, Intelligence: 6, Social: 12, Gambler: 12, Mathematic: 8},
	Chemist:     {Intelligence: 9, Doctor: 10, Explosives: 12, Botanist: 6, Mathematic: 8},
	Engineer:    {Intelligence: 8, Strength: 6, Mechanic: 15, Explosives: 8, Mining: 8},
}

// ClassStats rolls a stat block and overrides the skills the class is known for.
func ClassStats(c Class) Stats {
	s := RandomStats()
	for skill, v := range classSkills[c] {
		s.Skills[skill] = v
	}
	return s
}
