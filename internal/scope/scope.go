// Package scope computes the data-visibility predicate applied to every
// tenancy query. Predicates are typed fragments that compose only through
// And, so the "scope is always conjoined with caller filters" rule is a
// structural property rather than a per-route convention.
package scope

import (
	"strings"

	"portal/internal/auth"
	"portal/internal/model"

	"gorm.io/gorm"
)

// Resource identifies a scoped resource type
type Resource string

const (
	Sections      Resource = "sections"
	Organizations Resource = "organizations"
)

// Predicate is an opaque, composable filter condition
type Predicate struct {
	expr string
	args []interface{}
	all  bool
	none bool
}

// All matches everything (the admin predicate)
func All() Predicate {
	return Predicate{all: true}
}

// None matches nothing (e.g. sections under the client predicate)
func None() Predicate {
	return Predicate{none: true}
}

// Where builds a predicate from a SQL fragment and its arguments
func Where(expr string, args ...interface{}) Predicate {
	return Predicate{expr: expr, args: args}
}

// And conjoins predicates. All is the identity; None dominates.
func And(ps ...Predicate) Predicate {
	exprs := make([]string, 0, len(ps))
	var args []interface{}
	for _, p := range ps {
		if p.none {
			return None()
		}
		if p.all || p.expr == "" {
			continue
		}
		exprs = append(exprs, "("+p.expr+")")
		args = append(args, p.args...)
	}
	if len(exprs) == 0 {
		return All()
	}
	return Predicate{expr: strings.Join(exprs, " AND "), args: args}
}

// MatchesAll reports whether the predicate is unrestricted
func (p Predicate) MatchesAll() bool {
	return p.all || (!p.none && p.expr == "")
}

// MatchesNone reports whether the predicate can never match a row
func (p Predicate) MatchesNone() bool {
	return p.none
}

// SQL returns the fragment and arguments the predicate renders to
func (p Predicate) SQL() (string, []interface{}) {
	switch {
	case p.none:
		return "1 = 0", nil
	case p.MatchesAll():
		return "", nil
	default:
		return p.expr, p.args
	}
}

// Apply narrows a gorm query with the predicate
func (p Predicate) Apply(db *gorm.DB) *gorm.DB {
	expr, args := p.SQL()
	if expr == "" {
		return db
	}
	return db.Where(expr, args...)
}

// For resolves the visibility predicate for a resource type and identity:
//   - admin: unrestricted;
//   - manager/accountant: rows whose owning Section has a SectionMember row
//     for this user (organizations transitively through their section);
//   - otherwise (client-only): rows with a direct OrganizationMember row;
//     sections are invisible entirely.
//
// Restrictiveness is monotonic: admin ⊇ manager/accountant ⊇ client.
func For(resource Resource, id auth.Identity) Predicate {
	if id.HasRole(model.RoleAdmin) {
		return All()
	}

	if id.HasRole(model.RoleManager) || id.HasRole(model.RoleAccountant) {
		switch resource {
		case Sections:
			return Where(
				"sections.id IN (SELECT section_id FROM section_members WHERE user_id = ?)",
				id.UserID,
			)
		case Organizations:
			return Where(
				"organizations.section_id IN (SELECT section_id FROM section_members WHERE user_id = ?)",
				id.UserID,
			)
		}
		return None()
	}

	// Client tier: direct organization membership only
	switch resource {
	case Organizations:
		return Where(
			"organizations.id IN (SELECT organization_id FROM organization_members WHERE user_id = ?)",
			id.UserID,
		)
	default:
		return None()
	}
}
