package browse

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spyglass-mc/spyglass/internal/continuation"
	"github.com/spyglass-mc/spyglass/internal/errors"
	"github.com/spyglass-mc/spyglass/internal/format"
	"github.com/spyglass-mc/spyglass/internal/gateway"
	"github.com/spyglass-mc/spyglass/internal/query"
	"github.com/spyglass-mc/spyglass/internal/record"
)

// Mode selects the render phase.
type Mode int

const (
	// Fast renders store-only fields with placeholders; never probes.
	Fast Mode = iota
	// Slow probes the target and merges live fields in.
	Slow
)

// DefaultFreshnessWindow bounds how stale lastSeen may be for a record to
// render as online.
const DefaultFreshnessWindow = 5 * time.Minute

// RecordSource is the store contract the renderer consumes.
type RecordSource interface {
	Count(ctx context.Context, d *query.Descriptor) (int, error)
	RecordAt(ctx context.Context, d *query.Descriptor, index int) (*record.Record, error)
}

// Prober is the record-liveness contract. A nil record with a nil error
// means the target is offline/unreachable.
type Prober interface {
	Probe(ctx context.Context, ip string, port int) (*record.Record, error)
}

// Stream is a live broadcast found for a sample player.
type Stream struct {
	Name    string
	Title   string
	URL     string
	Viewers int
}

// Presence looks a username up on the streaming platform. A nil stream
// means the player is not live.
type Presence interface {
	Lookup(ctx context.Context, username string) (*Stream, error)
}

// Snapshot is one rendered (content, availability) pair for a position.
type Snapshot struct {
	View   gateway.View
	Record *record.Record
	Index  int
	Total  int

	LivenessKnown bool
	Online        bool
}

// Renderer builds render snapshots from the store and the live
// collaborators.
type Renderer struct {
	Store    RecordSource
	Prober   Prober
	Presence Presence
	Style    gateway.Style

	// FreshnessWindow defaults to DefaultFreshnessWindow when zero.
	FreshnessWindow time.Duration
	// Now is replaceable in tests; defaults to time.Now.
	Now    func() time.Time
	Logger *log.Logger
}

func (r *Renderer) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Renderer) window() time.Duration {
	if r.FreshnessWindow > 0 {
		return r.FreshnessWindow
	}
	return DefaultFreshnessWindow
}

func (r *Renderer) logf(msg string, args ...any) {
	if r.Logger != nil {
		r.Logger.Printf(msg, args...)
	}
}

// Render produces the snapshot for one position. Fast mode never touches
// the network; slow mode probes and recomputes the authoritative
// affordance vector. Returns NOT_FOUND when the result set is empty.
func (r *Renderer) Render(ctx context.Context, d *query.Descriptor, index int, mode Mode) (*Snapshot, error) {
	total, err := r.Store.Count(ctx, d)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return nil, errors.NewNotFound()
	}

	// totals change between renders; wrap rather than fail
	index = ((index % total) + total) % total

	stored, err := r.Store.RecordAt(ctx, d, index)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, errors.NewNotFound()
	}

	snap := &Snapshot{Index: index, Total: total}

	if mode == Fast {
		snap.Record = placeholderRecord(stored)
		snap.View = r.buildView(d, snap, nil, markerUnknown)
		snap.View.Disabled = AllDisabled()
		return snap, nil
	}

	rec := *stored
	var streams []Stream
	hasLiveSample := false
	marker := markerUnknown

	live, probeErr := r.Prober.Probe(ctx, rec.IP, rec.Port)
	switch {
	case probeErr != nil:
		// transient failure degrades to unknown liveness, not an error
		r.logf("[browse.render] probe %s failed: %v", rec.Address(), probeErr)
	case live == nil:
		// unreachable counts as unknown liveness for affordances, but the
		// rendering can still say the target refused us
		marker = markerOffline
	default:
		live.LastSeen = r.now().Unix()
		rec.Merge(live)
		snap.LivenessKnown = true
		snap.Online = rec.SeenWithin(r.window(), r.now())
		if snap.Online {
			marker = markerOnline
		} else {
			marker = markerOffline
		}
		hasLiveSample = live.HasSample()
		streams = r.findStreams(ctx, live.Players.Sample)
	}

	snap.Record = &rec
	snap.View = r.buildView(d, snap, streams, marker)
	snap.View.Disabled = Derive(AffordanceInput{
		Total:         total,
		Index:         index,
		Literal:       d.IsLiteral(),
		HasLiveSample: hasLiveSample,
		LivenessKnown: snap.LivenessKnown,
	})
	return snap, nil
}

// Publish performs the full fast-then-slow sequence for one navigation
// step. The slow edit is never skipped; if the slow pass fails the message
// keeps the fast snapshot plus a non-fatal notice.
func (r *Renderer) Publish(ctx context.Context, gw gateway.Gateway, ref gateway.MessageRef, d *query.Descriptor, index int) error {
	fast, err := r.Render(ctx, d, index, Fast)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return gw.Edit(ctx, ref, r.EmptyStateView())
		}
		return err
	}
	if err := gw.Edit(ctx, ref, fast.View); err != nil {
		return err
	}

	slow, err := r.Render(ctx, d, index, Slow)
	if err != nil {
		// leave the fast snapshot readable rather than an error state
		r.logf("[browse.render] slow pass failed: %v", err)
		notice := fast.View
		notice.Embed.Fields = append(notice.Embed.Fields, gateway.EmbedField{
			Name:  "Notice",
			Value: "Live data is unavailable right now",
		})
		return gw.Edit(ctx, ref, notice)
	}
	return gw.Edit(ctx, ref, slow.View)
}

// EmptyStateView is the distinct rendering for an empty result set.
func (r *Renderer) EmptyStateView() gateway.View {
	return gateway.View{
		Embed: gateway.Embed{
			Title:       "No servers found",
			Description: "Try again with different parameters",
			Color:       r.Style.Color(gateway.OutcomeWarning),
			Timestamp:   r.now(),
		},
		Disabled: AllDisabled(),
	}
}

// placeholderRecord copies the address identity of a stored record and
// blanks every field that would need a live probe.
func placeholderRecord(stored *record.Record) *record.Record {
	return &record.Record{
		ID:          stored.ID,
		IP:          stored.IP,
		Port:        stored.Port,
		Hostname:    stored.Hostname,
		Description: "...",
		Version:     record.Version{Name: "...", Protocol: 0},
	}
}

func (r *Renderer) findStreams(ctx context.Context, sample []record.Player) []Stream {
	if r.Presence == nil {
		return nil
	}

	seen := make(map[string]bool, len(sample))
	var streams []Stream
	for _, p := range sample {
		name := strings.ToLower(p.Name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		stream, err := r.Presence.Lookup(ctx, name)
		if err != nil {
			r.logf("[browse.render] presence lookup %q failed: %v", name, err)
			continue
		}
		if stream != nil {
			streams = append(streams, *stream)
		}
	}
	return streams
}

// Status markers shown before the address in the embed title.
const (
	markerOnline  = "🟢"
	markerOffline = "🔴"
	markerUnknown = "🟡"
)

// buildView assembles the embed, footer, and attachment for a snapshot.
func (r *Renderer) buildView(d *query.Descriptor, snap *Snapshot, streams []Stream, marker string) gateway.View {
	var color gateway.Color
	switch marker {
	case markerOnline:
		color = r.Style.Color(gateway.OutcomeSuccess)
	case markerOffline:
		color = r.Style.Color(gateway.OutcomeOffline)
	default:
		color = r.Style.Color(gateway.OutcomeInfo)
	}

	rec := snap.Record
	motd := format.MOTD(rec.Description)
	desc := ""
	if rec.Hostname != "" {
		desc = fmt.Sprintf("**Hostname:** `%s`\n", rec.Hostname)
	}
	desc += "```ansi\n" + format.ANSI(motd) + "\n```"

	versionName := format.Clean(rec.Version.Name)
	if versionName == "" {
		versionName = format.ProtocolName(rec.Version.Protocol)
	}

	fields := []gateway.EmbedField{
		{
			Name:   "Version",
			Value:  fmt.Sprintf("%s (%d)", versionName, rec.Version.Protocol),
			Inline: true,
		},
		{
			Name:   "Players",
			Value:  fmt.Sprintf("%d/%d", rec.Players.Online, rec.Players.Max),
			Inline: true,
		},
		{
			Name:   "Cracked",
			Value:  yesNo(rec.Cracked != nil && *rec.Cracked),
			Inline: true,
		},
		{
			Name:   "Modded",
			Value:  yesNo(rec.Modded()),
			Inline: true,
		},
		{
			Name:   "Time since last scan",
			Value:  format.TimeAgo(time.Unix(rec.LastSeen, 0), r.now()),
			Inline: true,
		},
	}

	if rec.Geo != nil && rec.Geo.Country != "" {
		fields = append(fields, gateway.EmbedField{
			Name:   "Location",
			Value:  fmt.Sprintf(":flag_%s: %s", strings.ToLower(rec.Geo.Country), rec.Geo.City),
			Inline: true,
		})
	}

	if len(streams) > 0 {
		lines := make([]string, len(streams))
		for i, s := range streams {
			lines[i] = fmt.Sprintf("[%s](%s)", s.Title, s.URL)
		}
		fields = append(fields, gateway.EmbedField{
			Name:  "Streams",
			Value: strings.Join(lines, "\n"),
		})
	}

	blob, err := query.Encode(d)
	if err != nil {
		r.logf("[browse.render] encode descriptor failed: %v", err)
	}

	return gateway.View{
		Embed: gateway.Embed{
			Title:       fmt.Sprintf("%s %s", marker, rec.Address()),
			Description: desc,
			Color:       color,
			Fields:      fields,
			Footer:      continuation.PositionLine(snap.Index, snap.Total),
			Timestamp:   r.now(),
			ImageData:   faviconBytes(rec.Favicon),
		},
		Attachment: blob,
	}
}

// faviconBytes decodes a data-URI favicon; anything unreadable renders as
// no image.
func faviconBytes(favicon string) []byte {
	if favicon == "" {
		return nil
	}
	payload := favicon
	if i := strings.IndexByte(favicon, ','); i >= 0 {
		payload = favicon[i+1:]
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil
	}
	return data
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
