package credence

import (
	"github.com/Harshitk-cp/credence/internal/domain"
	"github.com/Harshitk-cp/credence/internal/registry"
)

// Policy names
const (
	NameAny         registry.Name = "any"
	NameMaySubject  registry.Name = "may_subject"
	NameMustSubject registry.Name = "must_subject"
	NameMayLocal    registry.Name = "may_local"
	NameMustLocal   registry.Name = "must_local"
)

// Purpose is used in unknown-name errors.
const Purpose = "credibility policy"

// NewRegistry returns a registry holding the built-in policies under their
// short names and their long-form aliases.
func NewRegistry() *registry.Registry[Policy] {
	r := registry.New[Policy](Purpose)
	register := func(short registry.Name, long registry.Name, p Policy) {
		r.Register(short, p)
		r.Register(long, p)
	}

	register(NameAny, "accept-all", Any{})
	register(NameMaySubject, "prefer-if-available(subject)", PreferIfAvailable{Role: domain.RoleSubject})
	register(NameMustSubject, "reject-unless(subject)", RejectUnless{Role: domain.RoleSubject})
	register(NameMayLocal, "prefer-if-available(local)", PreferIfAvailable{Role: domain.RoleLocal})
	register(NameMustLocal, "reject-unless(local)", RejectUnless{Role: domain.RoleLocal})
	return r
}
