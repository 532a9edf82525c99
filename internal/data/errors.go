package data

import "errors"

// Shared sentinel errors for data-layer repositories.
var (
	// User repository sentinels.
	ErrUserNotFound    = errors.New("user not found")
	ErrUserEmailExists = errors.New("user email already exists")

	// Credential sentinels.
	ErrCredentialNotFound = errors.New("credential not found")

	// School repository sentinels.
	ErrSchoolNotFound   = errors.New("school not found")
	ErrSchoolNameExists = errors.New("school name already exists")

	// Report repository sentinels.
	ErrReportNotFound = errors.New("report not found")
)

// Sort direction constants shared by repository list queries.
const (
	sortDirAsc  = "ASC"
	sortDirDesc = "DESC"
)
