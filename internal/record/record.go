// Package record defines the server record model shared by the store,
// the renderer, and the protocol collaborators.
package record

import (
	"strconv"
	"time"
)

// Player is one entry of a server's player sample.
type Player struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	LastSeen int64  `json:"lastSeen,omitempty"`
	Online   bool   `json:"online,omitempty"`
}

// Mod is one entry of a Forge server's mod list.
type Mod struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Version  string `json:"version"`
	Required bool   `json:"required"`
}

// Version identifies the server software version.
type Version struct {
	Name     string `json:"name"`
	Protocol int    `json:"protocol"`
}

// Players holds the server's player counts and sample.
type Players struct {
	Online int      `json:"online"`
	Max    int      `json:"max"`
	Sample []Player `json:"sample,omitempty"`
}

// Geo is the server's IP geolocation, when known.
type Geo struct {
	Country string `json:"country"`
	City    string `json:"city"`
}

// Record is one discovered server. Nullable booleans (Cracked, Whitelist)
// are pointers: nil means never determined.
type Record struct {
	ID           string  `json:"id,omitempty"`
	IP           string  `json:"ip"`
	Port         int     `json:"port"`
	Hostname     string  `json:"hostname,omitempty"`
	Description  string  `json:"description"`
	Version      Version `json:"version"`
	Players      Players `json:"players"`
	Favicon      string  `json:"favicon,omitempty"`
	Cracked      *bool   `json:"cracked,omitempty"`
	HasForgeData bool    `json:"hasForgeData,omitempty"`
	Mods         []Mod   `json:"mods,omitempty"`
	Whitelist    *bool   `json:"whitelist,omitempty"`
	LastSeen     int64   `json:"lastSeen"`
	Geo          *Geo    `json:"geo,omitempty"`
}

// Address returns the host:port form used in embed titles and probes.
func (r *Record) Address() string {
	return r.IP + ":" + strconv.Itoa(r.Port)
}

// HasSample reports whether the record carries a non-empty player sample.
func (r *Record) HasSample() bool {
	return len(r.Players.Sample) > 0
}

// Modded reports whether the server advertises Forge data or a mod list.
func (r *Record) Modded() bool {
	return r.HasForgeData || len(r.Mods) > 0
}

// SeenWithin reports whether the record was last observed inside the window.
func (r *Record) SeenWithin(window time.Duration, now time.Time) bool {
	return r.LastSeen > now.Add(-window).Unix()
}

// Merge overlays live-probed fields onto the stored record, keeping stored
// values where the probe left a field empty.
func (r *Record) Merge(live *Record) {
	if live == nil {
		return
	}
	if live.Description != "" {
		r.Description = live.Description
	}
	if live.Version.Name != "" {
		r.Version = live.Version
	}
	r.Players.Online = live.Players.Online
	r.Players.Max = live.Players.Max
	if len(live.Players.Sample) > 0 {
		r.Players.Sample = live.Players.Sample
	}
	if live.Favicon != "" {
		r.Favicon = live.Favicon
	}
	if live.Cracked != nil {
		r.Cracked = live.Cracked
	}
	if live.HasForgeData {
		r.HasForgeData = true
	}
	if len(live.Mods) > 0 {
		r.Mods = live.Mods
	}
	if live.LastSeen > r.LastSeen {
		r.LastSeen = live.LastSeen
	}
}
