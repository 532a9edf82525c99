package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/buswatch/buswatch-api/internal/domain/auth"
)

func strPtr(s string) *string { return &s }

func validCreateUserRequest() CreateUserRequest {
	return CreateUserRequest{
		Name:     "John Driver",
		Email:    "driver@buswatch.com",
		Role:     domainauth.RoleDriver,
		SchoolID: strPtr("school-1"),
		Password: "correct horse battery",
	}
}

func TestCreateUserRequest_Validate(t *testing.T) {
	req := validCreateUserRequest()
	require.NoError(t, req.Validate())

	noName := validCreateUserRequest()
	noName.Name = " "
	assert.Error(t, noName.Validate())

	badEmail := validCreateUserRequest()
	badEmail.Email = "not-an-address"
	assert.Error(t, badEmail.Validate())

	badRole := validCreateUserRequest()
	badRole.Role = "teacher"
	assert.Error(t, badRole.Validate())

	shortPassword := validCreateUserRequest()
	shortPassword.Password = "short"
	assert.Error(t, shortPassword.Validate())
}

func TestCreateUserRequest_Validate_SchoolScope(t *testing.T) {
	driverWithoutSchool := validCreateUserRequest()
	driverWithoutSchool.SchoolID = nil
	assert.Error(t, driverWithoutSchool.Validate())

	superWithSchool := validCreateUserRequest()
	superWithSchool.Role = domainauth.RoleSuperAdmin
	assert.Error(t, superWithSchool.Validate())

	superUnscoped := validCreateUserRequest()
	superUnscoped.Role = domainauth.RoleSuperAdmin
	superUnscoped.SchoolID = nil
	require.NoError(t, superUnscoped.Validate())
}

func TestUpdateUserRequest_Validate(t *testing.T) {
	empty := UpdateUserRequest{}
	assert.Error(t, empty.Validate())

	nameOnly := UpdateUserRequest{Name: strPtr("Sarah Admin")}
	require.NoError(t, nameOnly.Validate())

	blankName := UpdateUserRequest{Name: strPtr("  ")}
	assert.Error(t, blankName.Validate())

	badEmail := UpdateUserRequest{Email: strPtr("nope")}
	assert.Error(t, badEmail.Validate())
}

func TestValidateRoleScope(t *testing.T) {
	require.NoError(t, ValidateRoleScope(domainauth.RoleDriver, strPtr("school-1")))
	require.NoError(t, ValidateRoleScope(domainauth.RoleSuperAdmin, nil))
	assert.Error(t, ValidateRoleScope(domainauth.RoleSchoolAdmin, nil))
	assert.Error(t, ValidateRoleScope(domainauth.RoleSuperAdmin, strPtr("school-1")))
}
