package entity

// Roles reconocidos.
const (
	RoleAdmin     = "admin"
	RoleBodeguero = "bodeguero"
	RoleCocinero  = "cocinero"
)

// Actor quien ejecuta una operación (se pasa explícitamente, sin contexto de sesión implícito).
type Actor struct {
	UserID string
	Role   string
}

// IsAdmin indica si el actor puede ejecutar operaciones administrativas.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }
