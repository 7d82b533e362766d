package authclient

import "time"

// Snapshot is a point-in-time copy of the session state. The invariant the
// store maintains is authenticated ⟺ token ∧ user; a token without a user only
// exists transiently while verification is in flight.
type Snapshot struct {
	Token     string
	User      *User
	IsLoading bool
	LastError string
	LastSync  time.Time
}

// IsAuthenticated reports whether both a token and a user are present.
func (s Snapshot) IsAuthenticated() bool {
	return s.Token != "" && s.User != nil
}

// Role returns the current user's role, RoleStudent when signed out.
func (s Snapshot) Role() Role {
	if s.User == nil || s.User.Role == "" {
		return RoleStudent
	}
	return s.User.Role
}

// Permissions returns the current user's permission set.
func (s Snapshot) Permissions() []string {
	if s.User == nil {
		return nil
	}
	return s.User.Permissions
}

func (s Snapshot) IsAdmin() bool            { return s.Role() == RoleAdmin }
func (s Snapshot) IsHeadOfDepartment() bool { return s.Role() == RoleHeadOfDepartment }
func (s Snapshot) IsTeacher() bool          { return s.Role() == RoleTeacher }
func (s Snapshot) IsStudent() bool          { return s.Role() == RoleStudent }
