package types

// Role orders dashboard privileges: root > admin > user. It plays no part in
// the access decision.
type Role string

const (
	RoleRoot  Role = "root"
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

func (r Role) rank() int {
	switch r {
	case RoleRoot:
		return 3
	case RoleAdmin:
		return 2
	case RoleUser:
		return 1
	}
	return 0
}

func (r Role) Valid() bool { return r.rank() > 0 }

// AtLeast reports whether r has at least the privilege of other.
func (r Role) AtLeast(other Role) bool {
	return r.Valid() && r.rank() >= other.rank()
}

// Direction tags which way a reader faces.
type Direction string

const (
	DirectionEntry Direction = "entry"
	DirectionExit  Direction = "exit"
	DirectionBoth  Direction = "both"
)

func (d Direction) Valid() bool {
	switch d {
	case DirectionEntry, DirectionExit, DirectionBoth:
		return true
	}
	return false
}
