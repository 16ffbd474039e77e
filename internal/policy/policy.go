// Package policy is the access table of the API: for every resource and
// action it names, per role, whether the call is denied, allowed, or allowed
// on a filtered view of the collection.
package policy

import "github.com/iliyamo/room-booking/internal/model"

// Role is the caller's privilege level as supplied by the identity layer.
type Role int

const (
	Anonymous Role = iota
	Member
	Staff
)

// Role claim values carried in access tokens.
const (
	ClaimStaff  = "STAFF"
	ClaimMember = "USER"
)

func (r Role) String() string {
	switch r {
	case Member:
		return "member"
	case Staff:
		return "staff"
	default:
		return "anonymous"
	}
}

// Claim returns the token claim for an authenticated role.
func (r Role) Claim() string {
	if r == Staff {
		return ClaimStaff
	}
	return ClaimMember
}

// RoleFromClaim maps a token's role claim to a Role. Any authenticated
// caller that is not staff is a member.
func RoleFromClaim(claim string) Role {
	if claim == ClaimStaff {
		return Staff
	}
	return Member
}

// RoleOf returns the role of a stored user.
func RoleOf(u model.User) Role {
	if u.IsStaff {
		return Staff
	}
	return Member
}

// Principal is the caller of one request.
type Principal struct {
	UserID uint64
	Role   Role
}

// Guest is the principal of a request without credentials.
var Guest = Principal{Role: Anonymous}

func (p Principal) Authenticated() bool { return p.Role != Anonymous }

func (p Principal) IsStaff() bool { return p.Role == Staff }

// Resource names an entity collection of the API.
type Resource string

const (
	Rooms        Resource = "rooms"
	Events       Resource = "events"
	Reservations Resource = "reservations"
	Users        Resource = "users"
)

// Action is an operation on a collection or one of its records.
type Action string

const (
	List     Action = "list"
	Retrieve Action = "retrieve"
	Create   Action = "create"
	Update   Action = "update"
	Delete   Action = "delete"
)

// Access is the outcome of a policy lookup.
type Access int

const (
	// Deny rejects the call with a permission error.
	Deny Access = iota
	// Allow grants the call on the whole collection.
	Allow
	// Public grants the call on public events only.
	Public
	// Own grants the call on the caller's own records only.
	Own
)

func (a Access) String() string {
	switch a {
	case Allow:
		return "allow"
	case Public:
		return "public"
	case Own:
		return "own"
	default:
		return "deny"
	}
}

// rule holds one Access per Role, indexed anonymous, member, staff.
type rule [3]Access

var (
	everyone  = rule{Allow, Allow, Allow}
	staffOnly = rule{Deny, Deny, Allow}
	publicOr  = rule{Public, Public, Allow}
	ownOr     = rule{Deny, Own, Allow}
)

var table = map[Resource]map[Action]rule{
	Rooms: {
		List:     everyone,
		Retrieve: everyone,
		Create:   staffOnly,
		Update:   staffOnly,
		Delete:   staffOnly,
	},
	Events: {
		List:     publicOr,
		Retrieve: publicOr,
		Create:   staffOnly,
		Update:   staffOnly,
		Delete:   staffOnly,
	},
	Reservations: {
		List:     ownOr,
		Retrieve: ownOr,
		Create:   ownOr,
		Update:   ownOr,
		Delete:   ownOr,
	},
	// Users are read-only through the entity API.
	Users: {
		List:     everyone,
		Retrieve: everyone,
	},
}

// Decide looks up the access p has for act on res. Pairs missing from the
// table are denied.
func Decide(p Principal, res Resource, act Action) Access {
	actions, ok := table[res]
	if !ok {
		return Deny
	}
	r, ok := actions[act]
	if !ok {
		return Deny
	}
	if p.Role < Anonymous || p.Role > Staff {
		return Deny
	}
	return r[p.Role]
}

// Authorize is Decide that turns Deny into a permission error.
func Authorize(p Principal, res Resource, act Action) (Access, error) {
	a := Decide(p, res, act)
	if a == Deny {
		return Deny, model.Errorf(model.ErrPermissionDenied,
			"You do not have permission to perform this action.")
	}
	return a, nil
}

// EventVisible reports whether e passes the read filter of a.
func EventVisible(a Access, e model.Event) bool {
	return a == Allow || (a == Public && e.IsPublic)
}

// ReservationVisible reports whether r passes the read filter of a for p.
func ReservationVisible(a Access, p Principal, r model.Reservation) bool {
	return a == Allow || (a == Own && r.UserID == p.UserID)
}
