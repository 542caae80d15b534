package types

// URIParser turns a database URI into whatever the driver needs to connect.
type URIParser interface {
	// ParseURI returns the native DSN for uri, or an error when this driver
	// does not handle it.
	ParseURI(uri string) (string, error)

	// GetSupportedSchemes returns the URI schemes this parser handles.
	GetSupportedSchemes() []string

	GetDriverType() DriverType
}
