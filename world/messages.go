package world

type ActionType uint8

const (
	Empty ActionType = iota
	Refresh
	ConstructCannon
	ConstructRoad
	ConstructShell
	ConstructLandmine
	ConstructCar
	Interact
	numActionTypes
)

var actionTypeNames = [...]string{
	"Empty", "Refresh", "ConstructCannon", "ConstructRoad", "ConstructShell",
	"ConstructLandmine", "ConstructCar", "Interact",
}

func (a ActionType) String() string {
	if a >= numActionTypes {
		return "ActionType(?)"
	}
	return actionTypeNames[a]
}

type ActionContent struct {
	Type ActionType
	Ang  float32
	Traj float32
}

type ClientDataType uint8

const (
	DataChunk ClientDataType = iota
	DataRefresh
	numClientDataTypes
)

// ClientData is the one request a client sends: its view of its own avatar,
// what it wants done, and which chunk it wants back.
type ClientData struct {
	Entity   Entity
	Action   ActionContent
	DataType ClientDataType
	CCoords  CCoords
}

func NewClientData(e Entity, action ActionContent, dataType ClientDataType) ClientData {
	return ClientData{
		Entity:   e,
		Action:   action,
		DataType: dataType,
		CCoords:  e.CCoords,
	}
}
