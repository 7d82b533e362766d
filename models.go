package authclient

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"
)

// User is the authenticated account as held by the session.
type User struct {
	ID          string         `json:"id,omitempty"`
	Email       string         `json:"email,omitempty"`
	Name        string         `json:"name,omitempty"`
	Role        Role           `json:"role,omitempty"`
	Permissions []string       `json:"permissions,omitempty"`
	Profile     map[string]any `json:"profile,omitempty"`
	// RawRoles keeps the unmapped role strings the API returned, useful when
	// debugging the role resolution heuristic.
	RawRoles []string `json:"raw_roles,omitempty"`
}

// HasPermission checks membership in the user's permission set.
func (u *User) HasPermission(permission string) bool {
	if u == nil {
		return false
	}
	for _, p := range u.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// Clone returns a copy safe to hand to callers; the session keeps the only
// mutable instance.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	out := *u
	if u.Permissions != nil {
		out.Permissions = make([]string, len(u.Permissions))
		copy(out.Permissions, u.Permissions)
	}
	if u.RawRoles != nil {
		out.RawRoles = make([]string, len(u.RawRoles))
		copy(out.RawRoles, u.RawRoles)
	}
	if u.Profile != nil {
		out.Profile = make(map[string]any, len(u.Profile))
		for k, v := range u.Profile {
			out.Profile[k] = v
		}
	}
	return &out
}

// Credentials is the login payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate implements payload validation before the credentials go on the wire.
func (c Credentials) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Email, validation.Required, is.Email),
		validation.Field(&c.Password, validation.Required),
	)
}

// APIUser is the loosely shaped user object the backend returns. Fields vary
// between endpoints, so everything is optional and normalized in buildUser.
type APIUser struct {
	ID       any            `json:"id,omitempty"`
	Name     string         `json:"name,omitempty"`
	FullName string         `json:"full_name,omitempty"`
	Email    string         `json:"email,omitempty"`
	Role     string         `json:"role,omitempty"`
	Roles    []string       `json:"roles,omitempty"`
	Profile  map[string]any `json:"profile,omitempty"`
}

func (a *APIUser) displayName() string {
	if a == nil {
		return "User"
	}
	if a.Name != "" {
		return a.Name
	}
	if a.FullName != "" {
		return a.FullName
	}
	return "User"
}

func (a *APIUser) identifier() string {
	if a == nil || a.ID == nil {
		return uuid.New().String()
	}
	id := fmt.Sprint(a.ID)
	if id == "" {
		return uuid.New().String()
	}
	return id
}

// buildUser assembles the session user from a login response.
func buildUser(api *APIUser, email string, roles []string) *User {
	role := ResolveRoles(roles, email)

	user := &User{
		ID:          api.identifier(),
		Email:       email,
		Name:        api.displayName(),
		Role:        role,
		Permissions: role.Permissions(),
		RawRoles:    roles,
	}

	if api != nil && api.Profile != nil {
		user.Profile = api.Profile
	} else {
		user.Profile = map[string]any{}
	}

	return user
}

// mergeVerifiedUser folds a fresh profile from the verification endpoint into
// the session user. The verify payload rarely carries roles, so the resolved
// role and permissions survive unless the backend says otherwise.
func mergeVerifiedUser(prev *User, api *APIUser) *User {
	role := Role("")
	if api != nil {
		switch {
		case len(api.Roles) > 0:
			role = ResolveRoles(api.Roles, api.Email)
		case api.Role != "":
			role = ResolveRole(api.Role, api.Email)
		}
	}

	if role == "" && prev != nil {
		role = prev.Role
	}
	if role == "" {
		role = RoleStudent
	}

	user := &User{
		ID:          api.identifier(),
		Email:       api.Email,
		Name:        api.displayName(),
		Role:        role,
		Permissions: role.Permissions(),
	}

	if prev != nil {
		if user.Email == "" {
			user.Email = prev.Email
		}
		user.RawRoles = prev.RawRoles
	}

	if api != nil && api.Profile != nil {
		user.Profile = api.Profile
	} else if prev != nil && prev.Profile != nil {
		user.Profile = prev.Profile
	} else {
		user.Profile = map[string]any{}
	}

	return user
}
