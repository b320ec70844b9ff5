package domain

// Actor is the caller of a lifecycle operation.
type Actor struct {
	UserID string
	Staff  bool
	// System marks the scheduler and other internal callers.
	System bool
}

// SystemActor is used by background jobs.
var SystemActor = Actor{System: true}

// CanManage reports whether the actor may operate on e: the owning
// professor, staff and the system may.
func (a Actor) CanManage(e Eclass) bool {
	return a.System || a.Staff || (a.UserID != "" && a.UserID == e.ProfessorID)
}
