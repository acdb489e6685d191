// Package migration creates the schema on startup so the service is
// usable out of the box for local and self-hosted environments.
package migration

import (
	"errors"

	"gorm.io/gorm"

	invoicedomain "github.com/tracklane/tracklane/internal/invoice/domain"
	issuedomain "github.com/tracklane/tracklane/internal/issue/domain"
	notificationdomain "github.com/tracklane/tracklane/internal/notification/domain"
	projectdomain "github.com/tracklane/tracklane/internal/project/domain"
	timedomain "github.com/tracklane/tracklane/internal/timeentry/domain"
	userdomain "github.com/tracklane/tracklane/internal/user/domain"
)

// Models lists every persisted table in dependency order. Tests reuse it
// to migrate their in-memory databases.
func Models() []any {
	return []any{
		&userdomain.User{},
		&projectdomain.Project{},
		&projectdomain.Member{},
		&issuedomain.Issue{},
		&issuedomain.Assignee{},
		&issuedomain.Link{},
		&issuedomain.Favorite{},
		&issuedomain.Comment{},
		&issuedomain.Reaction{},
		&notificationdomain.Notification{},
		&timedomain.TimeEntry{},
		&invoicedomain.Invoice{},
	}
}

// RunMigrations applies the schema. AutoMigrate keeps the service
// portable across the postgres and sqlite dialects the config accepts.
func RunMigrations(conn *gorm.DB) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	return conn.AutoMigrate(Models()...)
}
