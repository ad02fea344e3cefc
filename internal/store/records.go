package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/spyglass-mc/spyglass/internal/record"
)

const recordColumns = `id, ip, port, hostname, description, version_name,
	version_protocol, players_online, players_max, sample_json, sample_count,
	favicon, cracked, has_forge_data, mods_json, whitelist, last_seen,
	geo_country, geo_city`

// Upsert inserts or refreshes a record keyed by (ip, port). New rows are
// minted a ULID; existing rows keep theirs.
func (s *Store) Upsert(ctx context.Context, r *record.Record) (string, error) {
	id := r.ID
	if id == "" {
		var err error
		id, err = generateULID()
		if err != nil {
			return "", err
		}
	}

	sampleJSON, err := marshalOrNull(r.Players.Sample)
	if err != nil {
		return "", err
	}
	modsJSON, err := marshalOrNull(r.Mods)
	if err != nil {
		return "", err
	}

	var geoCountry, geoCity any
	if r.Geo != nil {
		geoCountry, geoCity = r.Geo.Country, r.Geo.City
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO servers (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(ip, port) DO UPDATE SET
		  hostname = excluded.hostname,
		  description = excluded.description,
		  version_name = excluded.version_name,
		  version_protocol = excluded.version_protocol,
		  players_online = excluded.players_online,
		  players_max = excluded.players_max,
		  sample_json = excluded.sample_json,
		  sample_count = excluded.sample_count,
		  favicon = excluded.favicon,
		  cracked = COALESCE(excluded.cracked, servers.cracked),
		  has_forge_data = excluded.has_forge_data,
		  mods_json = excluded.mods_json,
		  whitelist = COALESCE(excluded.whitelist, servers.whitelist),
		  last_seen = excluded.last_seen,
		  geo_country = COALESCE(excluded.geo_country, servers.geo_country),
		  geo_city = COALESCE(excluded.geo_city, servers.geo_city)`,
		id, r.IP, r.Port, nullIfEmpty(r.Hostname), r.Description,
		r.Version.Name, r.Version.Protocol,
		r.Players.Online, r.Players.Max, sampleJSON, len(r.Players.Sample),
		nullIfEmpty(r.Favicon), boolPtrArg(r.Cracked), r.HasForgeData, modsJSON,
		boolPtrArg(r.Whitelist), r.LastSeen, geoCountry, geoCity,
	)
	if err != nil {
		return "", fmt.Errorf("upsert server: %w", err)
	}

	// the conflicting row keeps its original id
	var stored string
	err = s.db.QueryRowContext(ctx,
		"SELECT id FROM servers WHERE ip = ? AND port = ?", r.IP, r.Port,
	).Scan(&stored)
	if err != nil {
		return "", fmt.Errorf("read upserted id: %w", err)
	}
	return stored, nil
}

// FindByAddress returns the stored record for ip:port, or nil when absent.
func (s *Store) FindByAddress(ctx context.Context, ip string, port int) (*record.Record, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+recordColumns+" FROM servers WHERE ip = ? AND port = ?", ip, port)
	r, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*record.Record, error) {
	var (
		r           record.Record
		hostname    sql.NullString
		sampleJSON  sql.NullString
		sampleCount int
		favicon     sql.NullString
		cracked     sql.NullBool
		modsJSON    sql.NullString
		whitelist   sql.NullBool
		geoCountry  sql.NullString
		geoCity     sql.NullString
	)

	err := row.Scan(
		&r.ID, &r.IP, &r.Port, &hostname, &r.Description,
		&r.Version.Name, &r.Version.Protocol,
		&r.Players.Online, &r.Players.Max, &sampleJSON, &sampleCount,
		&favicon, &cracked, &r.HasForgeData, &modsJSON,
		&whitelist, &r.LastSeen, &geoCountry, &geoCity,
	)
	if err != nil {
		return nil, err
	}

	r.Hostname = hostname.String
	r.Favicon = favicon.String
	if sampleJSON.Valid && sampleJSON.String != "" {
		if err := json.Unmarshal([]byte(sampleJSON.String), &r.Players.Sample); err != nil {
			return nil, fmt.Errorf("decode sample_json: %w", err)
		}
	}
	if modsJSON.Valid && modsJSON.String != "" {
		if err := json.Unmarshal([]byte(modsJSON.String), &r.Mods); err != nil {
			return nil, fmt.Errorf("decode mods_json: %w", err)
		}
	}
	if cracked.Valid {
		v := cracked.Bool
		r.Cracked = &v
	}
	if whitelist.Valid {
		v := whitelist.Bool
		r.Whitelist = &v
	}
	if geoCountry.Valid || geoCity.Valid {
		r.Geo = &record.Geo{Country: geoCountry.String, City: geoCity.String}
	}
	return &r, nil
}

func marshalOrNull(v any) (any, error) {
	switch t := v.(type) {
	case []record.Player:
		if len(t) == 0 {
			return nil, nil
		}
	case []record.Mod:
		if len(t) == 0 {
			return nil, nil
		}
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolPtrArg(b *bool) any {
	if b == nil {
		return nil
	}
	return *b
}

// generateULID generates a new ULID.
func generateULID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
