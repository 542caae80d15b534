package types

import "fmt"

// DriverType identifies a storage backend implementation.
type DriverType string

const (
	DriverMemory     DriverType = "memory"
	DriverSQLite     DriverType = "sqlite"
	DriverMySQL      DriverType = "mysql"
	DriverPostgreSQL DriverType = "postgresql"
	DriverMongoDB    DriverType = "mongodb"
)

func (d DriverType) String() string {
	return string(d)
}

// ParseDriverType accepts any non-empty name so new drivers can register
// without touching this list.
func ParseDriverType(s string) (DriverType, error) {
	if s == "" {
		return "", fmt.Errorf("driver type cannot be empty")
	}
	return DriverType(s), nil
}
