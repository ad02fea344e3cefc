package bot

import (
	"context"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spyglass-mc/spyglass/internal/browse"
	"github.com/spyglass-mc/spyglass/internal/errors"
	"github.com/spyglass-mc/spyglass/internal/gateway"
	"github.com/spyglass-mc/spyglass/internal/query"
)

// Find runs a filtered search and opens a fresh browse message for it.
// A player filter may be a username; it is resolved to a UUID first.
func (b *Bot) Find(ctx context.Context, channelID string, in query.FindInput) (gateway.MessageRef, error) {
	var none gateway.MessageRef

	if in.PlayerID != "" && !looksLikeUUID(in.PlayerID) && b.Resolver != nil {
		id, err := b.Resolver.UUID(ctx, in.PlayerID)
		if err != nil {
			return none, errors.NewInternal(err)
		}
		if id == "" {
			ref, serr := b.Gateway.Send(ctx, channelID, b.Renderer.EmptyStateView())
			if serr != nil {
				return none, errors.NewInternal(serr)
			}
			return ref, nil
		}
		in.PlayerID = id
	}

	d := query.Build(in)
	total, err := b.Store.Count(ctx, d)
	if err != nil {
		return none, err
	}
	if total == 0 {
		ref, serr := b.Gateway.Send(ctx, channelID, b.Renderer.EmptyStateView())
		if serr != nil {
			return none, errors.NewInternal(serr)
		}
		return ref, nil
	}

	return b.open(ctx, channelID, d)
}

// Pin opens a single-record browse message for one address, probing it
// first so the stored copy is current.
func (b *Bot) Pin(ctx context.Context, channelID, address string) (gateway.MessageRef, error) {
	var none gateway.MessageRef

	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		host, portStr = address, "25565"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return none, errors.NewMalformedState("bad port in " + address)
	}

	rec, err := b.Store.FindByAddress(ctx, host, port)
	if err != nil {
		return none, err
	}

	live, perr := b.Renderer.Prober.Probe(ctx, host, port)
	if perr == nil && live != nil {
		if rec == nil {
			rec = live
		} else {
			rec.Merge(live)
		}
		rec.LastSeen = time.Now().Unix()
		if id, uerr := b.Store.Upsert(ctx, rec); uerr == nil {
			rec.ID = id
		}
	}
	if rec == nil {
		return none, errors.NewTargetOffline(address)
	}

	return b.open(ctx, channelID, query.NewLiteral(rec))
}

// looksLikeUUID reports whether s is a 32-hex-digit id, dashed or not.
func looksLikeUUID(s string) bool {
	stripped := strings.ReplaceAll(s, "-", "")
	if len(stripped) != 32 {
		return false
	}
	for _, c := range stripped {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// open posts the fast snapshot as a new message, then runs the usual
// fast-then-slow publish against it.
func (b *Bot) open(ctx context.Context, channelID string, d *query.Descriptor) (gateway.MessageRef, error) {
	var none gateway.MessageRef

	fast, err := b.Renderer.Render(ctx, d, 0, browse.Fast)
	if err != nil {
		return none, err
	}
	ref, err := b.Gateway.Send(ctx, channelID, fast.View)
	if err != nil {
		return none, errors.NewInternal(err)
	}
	if err := b.Renderer.Publish(ctx, b.Gateway, ref, d, 0); err != nil {
		return none, err
	}
	return ref, nil
}
