package constraints

type Action int32

const (
	DELETE    Action = 0
	PUT       Action = 1
	HEARTBEAT Action = 2
)

const (
	TypeBool   = "bool"
	TypeString = "string"
	TypeJSON   = "json"
	TypeNumber = "number"
)
