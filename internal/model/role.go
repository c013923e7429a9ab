package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Role is the immutable role of a principal.
type Role string

const (
	RoleStudent   Role = "Student"
	RoleProfessor Role = "Professor"
	RoleVillain   Role = "Villain"
	RoleMuggle    Role = "Muggle"
	RoleAdmin     Role = "Admin"
)

// Stat bounds and role defaults.
const (
	MaxHeart     = 3
	DefaultHeart = 3

	StudentAttackPower = 10
	VillainAttackPower = 15
	MuggleAttackPower  = 5
)

// DefaultMoney is the starting wallet of a Muggle.
var DefaultMoney = decimal.RequireFromString("1000.00")

// ParseRole validates a role name.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleStudent, RoleProfessor, RoleVillain, RoleMuggle, RoleAdmin:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// HasCombatStats reports whether principals of this role carry heart and attack power.
func (r Role) HasCombatStats() bool {
	return r == RoleStudent || r == RoleVillain || r == RoleMuggle
}

// HasWallet reports whether principals of this role carry money.
func (r Role) HasWallet() bool {
	return r == RoleMuggle
}

// DefaultStats returns the stats a new principal of this role starts with.
// ok is false for roles without combat stats.
func (r Role) DefaultStats() (stats CombatStats, ok bool) {
	switch r {
	case RoleStudent:
		return CombatStats{Heart: DefaultHeart, AttackPower: StudentAttackPower}, true
	case RoleVillain:
		return CombatStats{Heart: DefaultHeart, AttackPower: VillainAttackPower}, true
	case RoleMuggle:
		return CombatStats{Heart: DefaultHeart, AttackPower: MuggleAttackPower}, true
	}
	return CombatStats{}, false
}

// Profile is the role-specific record of a principal. The concrete types are
// StudentProfile, ProfessorProfile, VillainProfile, MuggleProfile and AdminProfile.
type Profile interface {
	Role() Role
	profile()
}

// Combatant is implemented by profiles that can fight and be mutated by the stat mutator.
type Combatant interface {
	Profile
	Combat() CombatStats
}

type StudentProfile struct{ Stats CombatStats }

type ProfessorProfile struct{}

type VillainProfile struct{ Stats CombatStats }

type MuggleProfile struct {
	Stats  CombatStats
	Wallet Wallet
}

type AdminProfile struct{}

func (StudentProfile) Role() Role   { return RoleStudent }
func (ProfessorProfile) Role() Role { return RoleProfessor }
func (VillainProfile) Role() Role   { return RoleVillain }
func (MuggleProfile) Role() Role    { return RoleMuggle }
func (AdminProfile) Role() Role     { return RoleAdmin }

func (StudentProfile) profile()   {}
func (ProfessorProfile) profile() {}
func (VillainProfile) profile()   {}
func (MuggleProfile) profile()    {}
func (AdminProfile) profile()     {}

func (p StudentProfile) Combat() CombatStats { return p.Stats }
func (p VillainProfile) Combat() CombatStats { return p.Stats }
func (p MuggleProfile) Combat() CombatStats  { return p.Stats }

// NewProfile assembles the tagged profile for a role from stored columns.
// stats must be non-nil for combat roles and wallet for Muggles.
func NewProfile(role Role, stats *CombatStats, wallet *Wallet) (Profile, error) {
	if role.HasCombatStats() && stats == nil {
		return nil, fmt.Errorf("role %s requires combat stats", role)
	}
	switch role {
	case RoleStudent:
		return StudentProfile{Stats: *stats}, nil
	case RoleVillain:
		return VillainProfile{Stats: *stats}, nil
	case RoleMuggle:
		if wallet == nil {
			return nil, fmt.Errorf("role %s requires a wallet", role)
		}
		return MuggleProfile{Stats: *stats, Wallet: *wallet}, nil
	case RoleProfessor:
		return ProfessorProfile{}, nil
	case RoleAdmin:
		return AdminProfile{}, nil
	}
	return nil, fmt.Errorf("unknown role %q", role)
}

// Account is a principal together with its role profile.
type Account struct {
	Principal
	Profile Profile
}

// Combatant returns the combat view of the account, if its role has one.
func (a *Account) Combatant() (Combatant, bool) {
	c, ok := a.Profile.(Combatant)
	return c, ok
}
