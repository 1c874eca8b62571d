package migration

import (
	"errors"

	assignmentdomain "github.com/smallbiznis/printfan/internal/assignment/domain"
	printerdomain "github.com/smallbiznis/printfan/internal/printer/domain"
	"gorm.io/gorm"
)

// Run creates the schema on startup so the service is usable out of the
// box against an empty sqlite file or a fresh database.
func Run(conn *gorm.DB) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	return conn.AutoMigrate(
		&printerdomain.PrinterEndpoint{},
		&assignmentdomain.Assignment{},
	)
}
