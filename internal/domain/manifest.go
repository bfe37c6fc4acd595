package domain

import (
	"bytes"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
)

type RegionInfo struct {
	LastUpdate    int64 `json:"last_update"`
	TotalAccounts int   `json:"total_accounts"`
}

type IndexManifest struct {
	LastUpdate    int64                 `json:"last_update"`
	Regions       map[string]RegionInfo `json:"regions"`
	TotalAccounts int                   `json:"total_accounts"`
}

func (m IndexManifest) LastUpdated() time.Time {
	return time.Unix(m.LastUpdate, 0).UTC()
}

type ServerInfo struct {
	IPAddress   string `json:"IP Address"`
	Hostname    string `json:"Hostname"`
	ASN         string `json:"ASN"`
	ISP         string `json:"ISP"`
	Services    string `json:"Services,omitempty"`
	Country     string `json:"Country"`
	StateRegion string `json:"State Region,omitempty"`
	City        string `json:"City"`
	Latitude    string `json:"Latitude"`
	Longitude   string `json:"Longitude"`
}

type LocationKind string

const (
	LocationSingle   LocationKind = "single"
	LocationMultiple LocationKind = "multiple"
)

// ServerLocation is either one server or a set of named servers. The shape
// is decided once while decoding.
type ServerLocation struct {
	Kind     LocationKind          `json:"kind"`
	Single   *ServerInfo           `json:"single,omitempty"`
	Multiple map[string]ServerInfo `json:"multiple,omitempty"`
}

func (l *ServerLocation) UnmarshalJSON(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return fmt.Errorf("server location: %w", err)
	}

	if _, ok := probe["IP Address"]; ok {
		var info ServerInfo
		if err := json.Unmarshal(data, &info); err != nil {
			return fmt.Errorf("server location: %w", err)
		}
		*l = ServerLocation{Kind: LocationSingle, Single: &info}
		return nil
	}

	servers := make(map[string]ServerInfo, len(probe))
	for name, raw := range probe {
		if len(bytes.TrimSpace(raw)) == 0 || raw[0] != '{' {
			continue
		}
		var info ServerInfo
		if err := json.Unmarshal(raw, &info); err != nil {
			return fmt.Errorf("server %q: %w", name, err)
		}
		servers[name] = info
	}
	*l = ServerLocation{Kind: LocationMultiple, Multiple: servers}
	return nil
}

// Servers returns every server in the location keyed by name. A single
// server is keyed by its hostname.
func (l ServerLocation) Servers() map[string]ServerInfo {
	if l.Kind == LocationSingle && l.Single != nil {
		return map[string]ServerInfo{l.Single.Hostname: *l.Single}
	}
	return l.Multiple
}

type ServerManifest struct {
	OS map[string]ServerLocation `json:"os"`
	CN map[string]ServerInfo     `json:"cn,omitempty"`
}
