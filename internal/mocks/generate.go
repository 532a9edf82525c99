// Package mocks contains generated mocks for core repository interfaces.
//
// Regenerate with: go generate ./internal/mocks/...
package mocks

//go:generate go run go.uber.org/mock/mockgen -destination=user_repository_mock.go -package=mocks github.com/buswatch/buswatch-api/internal/core UserRepository
//go:generate go run go.uber.org/mock/mockgen -destination=school_repository_mock.go -package=mocks github.com/buswatch/buswatch-api/internal/core SchoolRepository
//go:generate go run go.uber.org/mock/mockgen -destination=report_repository_mock.go -package=mocks github.com/buswatch/buswatch-api/internal/core ReportRepository
//go:generate go run go.uber.org/mock/mockgen -destination=audit_log_repository_mock.go -package=mocks github.com/buswatch/buswatch-api/internal/core AuditLogRepository
