package fixtureauth

// Package fixtureauth provides the fixed demo identities consulted when the
// primary sign-in path fails. Lookup is by email only; any password is
// accepted for these accounts.

import (
	"strings"
	"time"

	domainauth "github.com/buswatch/buswatch-api/internal/domain/auth"
)

// Directory implements ports.FallbackDirectory over a static identity list.
type Directory struct {
	byEmail map[string]domainauth.Identity
}

// NewDirectory builds a directory from the given identities.
func NewDirectory(identities []domainauth.Identity) *Directory {
	byEmail := make(map[string]domainauth.Identity, len(identities))
	for _, id := range identities {
		byEmail[strings.ToLower(strings.TrimSpace(id.Email))] = id
	}
	return &Directory{byEmail: byEmail}
}

// NewDemoDirectory builds the stock demo directory with one account per role.
// The two school-scoped accounts share a school so school-admin triage of
// driver reports can be exercised end to end.
func NewDemoDirectory(schoolID string) *Directory {
	scoped := func() *string {
		if schoolID == "" {
			return nil
		}
		s := schoolID
		return &s
	}
	now := time.Now().UTC()
	return NewDirectory([]domainauth.Identity{
		{
			ID:        "fixture-driver",
			Name:      "John Driver",
			Email:     "driver@buswatch.com",
			Role:      domainauth.RoleDriver,
			SchoolID:  scoped(),
			CreatedAt: now,
		},
		{
			ID:        "fixture-school-admin",
			Name:      "Sarah Admin",
			Email:     "schooladmin@buswatch.com",
			Role:      domainauth.RoleSchoolAdmin,
			SchoolID:  scoped(),
			CreatedAt: now,
		},
		{
			ID:        "fixture-super-admin",
			Name:      "Mike Super",
			Email:     "superadmin@buswatch.com",
			Role:      domainauth.RoleSuperAdmin,
			CreatedAt: now,
		},
	})
}

// LookupByEmail returns the fixture identity for the email, if one exists.
// Matching is case-insensitive.
func (d *Directory) LookupByEmail(email string) (domainauth.Identity, bool) {
	id, ok := d.byEmail[strings.ToLower(strings.TrimSpace(email))]
	return id, ok
}
