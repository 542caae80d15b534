package memory

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/rediwo/redi-eager/types"
)

// MemoryURIParser handles memory:// URIs. Query parameters configure the
// reported capabilities:
//
//	memory://?batched=false&adhocSort=false&maxKeys=100
type MemoryURIParser struct{}

// NewMemoryURIParser creates a new memory URI parser
func NewMemoryURIParser() *MemoryURIParser {
	return &MemoryURIParser{}
}

// ParseURI returns the capability parameters as the native DSN.
func (p *MemoryURIParser) ParseURI(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("invalid URI: %w", err)
	}
	if u.Scheme != "memory" {
		return "", fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if _, err := parseCapabilities(u.RawQuery); err != nil {
		return "", err
	}
	return u.RawQuery, nil
}

// GetSupportedSchemes returns the supported URI schemes
func (p *MemoryURIParser) GetSupportedSchemes() []string {
	return []string{"memory"}
}

// GetDriverType returns the driver type
func (p *MemoryURIParser) GetDriverType() types.DriverType {
	return types.DriverMemory
}

func parseCapabilities(query string) (types.Capabilities, error) {
	caps := DefaultCapabilities
	values, err := url.ParseQuery(query)
	if err != nil {
		return caps, fmt.Errorf("invalid memory parameters: %w", err)
	}
	for key := range values {
		v := values.Get(key)
		switch key {
		case "batched":
			caps.BatchedKeyLookup, err = strconv.ParseBool(v)
		case "adhocSort":
			caps.AdHocSortOnBatchedQuery, err = strconv.ParseBool(v)
		case "maxKeys":
			caps.MaxKeysPerBatch, err = strconv.Atoi(v)
			if err == nil && caps.MaxKeysPerBatch < 0 {
				err = fmt.Errorf("must not be negative")
			}
		default:
			return caps, fmt.Errorf("unknown memory parameter %q", key)
		}
		if err != nil {
			return caps, fmt.Errorf("invalid memory parameter %s=%q: %w", key, v, err)
		}
	}
	return caps, nil
}
