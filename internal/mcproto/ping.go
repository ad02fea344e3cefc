package mcproto

import (
	"bufio"
	"context"
	"encoding/json"
	"log"
	"net"
	"strconv"
	"time"

	"github.com/spyglass-mc/spyglass/internal/record"
)

// statusProtocol is sent in the status handshake; servers answer a status
// request regardless of the version claimed.
const statusProtocol = 765

// DefaultTimeout bounds one full ping exchange.
const DefaultTimeout = 5 * time.Second

// statusResponse mirrors the server list ping JSON.
type statusResponse struct {
	Version struct {
		Name     string `json:"name"`
		Protocol int    `json:"protocol"`
	} `json:"version"`
	Players struct {
		Online int `json:"online"`
		Max    int `json:"max"`
		Sample []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"sample"`
	} `json:"players"`
	Description     json.RawMessage `json:"description"`
	Favicon         string          `json:"favicon"`
	EnforcesSecure  bool            `json:"enforcesSecureChat"`
	PreventsReports bool            `json:"preventsChatReports"`
	ForgeData       *struct {
		Mods []struct {
			ModID   string `json:"modId"`
			Version string `json:"modmarker"`
		} `json:"mods"`
	} `json:"forgeData"`
	ModInfo *struct {
		ModList []struct {
			ModID   string `json:"modid"`
			Version string `json:"version"`
		} `json:"modList"`
	} `json:"modinfo"`
}

// Pinger performs the server list ping.
type Pinger struct {
	// Timeout defaults to DefaultTimeout when zero.
	Timeout time.Duration
	Logger  *log.Logger
}

func (p *Pinger) timeout() time.Duration {
	if p.Timeout > 0 {
		return p.Timeout
	}
	return DefaultTimeout
}

// Probe pings one server. An unreachable or unresponsive target yields
// (nil, nil); a reachable target that answers garbage is an error.
func (p *Pinger) Probe(ctx context.Context, ip string, port int) (*record.Record, error) {
	d := net.Dialer{Timeout: p.timeout()}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(ip, strconv.Itoa(port)))
	if err != nil {
		if p.Logger != nil {
			p.Logger.Printf("[mcproto.ping] dial %s:%d: %v", ip, port, err)
		}
		return nil, nil
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(p.timeout()))

	if err := handshake(conn, statusProtocol, ip, port, 1); err != nil {
		return nil, nil
	}
	if err := writePacket(conn, 0x00, nil); err != nil {
		return nil, nil
	}

	r := bufio.NewReader(conn)
	id, body, err := readPacket(r)
	if err != nil {
		return nil, nil
	}

	var raw string
	if id == 0x00 {
		raw, err = readString(body)
	}
	if id != 0x00 || err != nil {
		return nil, &ProtocolError{Op: "status response", Detail: "unexpected packet"}
	}

	var status statusResponse
	if err := json.Unmarshal([]byte(raw), &status); err != nil {
		return nil, &ProtocolError{Op: "status response", Detail: err.Error()}
	}

	return statusToRecord(ip, port, &status), nil
}

// ProtocolError marks a reachable server that violated the ping protocol.
type ProtocolError struct {
	Op     string
	Detail string
}

func (e *ProtocolError) Error() string {
	return "mcproto: " + e.Op + ": " + e.Detail
}

func statusToRecord(ip string, port int, s *statusResponse) *record.Record {
	r := &record.Record{
		IP:   ip,
		Port: port,
		// kept as raw chat JSON; the presentation layer flattens it
		Description: string(s.Description),
		Version: record.Version{
			Name:     s.Version.Name,
			Protocol: s.Version.Protocol,
		},
		Favicon:  s.Favicon,
		LastSeen: time.Now().Unix(),
	}

	r.Players.Online = s.Players.Online
	r.Players.Max = s.Players.Max
	for _, sp := range s.Players.Sample {
		r.Players.Sample = append(r.Players.Sample, record.Player{
			ID:     sp.ID,
			Name:   sp.Name,
			Online: true,
		})
	}

	switch {
	case s.ForgeData != nil:
		r.HasForgeData = true
		for _, m := range s.ForgeData.Mods {
			r.Mods = append(r.Mods, record.Mod{ID: m.ModID, Name: m.ModID, Version: m.Version})
		}
	case s.ModInfo != nil:
		r.HasForgeData = true
		for _, m := range s.ModInfo.ModList {
			r.Mods = append(r.Mods, record.Mod{ID: m.ModID, Name: m.ModID, Version: m.Version})
		}
	}

	return r
}
