package mongodb

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/rediwo/redi-eager/types"
)

// MongoDBURIParser validates mongodb:// and mongodb+srv:// URIs. The
// official driver takes them unchanged.
type MongoDBURIParser struct{}

// NewMongoDBURIParser creates a new MongoDB URI parser
func NewMongoDBURIParser() *MongoDBURIParser {
	return &MongoDBURIParser{}
}

// ParseURI validates a MongoDB URI and returns it unchanged
func (p *MongoDBURIParser) ParseURI(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("invalid URI format: %w", err)
	}
	if !slices.Contains(p.GetSupportedSchemes(), u.Scheme) {
		return "", fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("host is required in MongoDB URI")
	}
	if strings.TrimPrefix(u.Path, "/") == "" {
		return "", fmt.Errorf("database name is required in MongoDB URI")
	}
	return uri, nil
}

// GetSupportedSchemes returns the supported URI schemes
func (p *MongoDBURIParser) GetSupportedSchemes() []string {
	return []string{"mongodb", "mongodb+srv"}
}

// GetDriverType returns the driver type
func (p *MongoDBURIParser) GetDriverType() types.DriverType {
	return types.DriverMongoDB
}
