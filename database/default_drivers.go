package database

// Import the bundled drivers so Open works without extra imports.
import (
	_ "github.com/rediwo/redi-eager/drivers/memory"
	_ "github.com/rediwo/redi-eager/drivers/mongodb"
	_ "github.com/rediwo/redi-eager/drivers/sqldb"
)
