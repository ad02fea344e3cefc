package web

import (
	"context"
	"html/template"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/spyglass-mc/spyglass/internal/errors"
	"github.com/spyglass-mc/spyglass/internal/format"
	"github.com/spyglass-mc/spyglass/internal/query"
	"github.com/spyglass-mc/spyglass/internal/record"
)

// Store is the record-layer surface the web UI reads from.
type Store interface {
	Count(ctx context.Context, d *query.Descriptor) (int, error)
	RecordAt(ctx context.Context, d *query.Descriptor, index int) (*record.Record, error)
	FindByAddress(ctx context.Context, ip string, port int) (*record.Record, error)
}

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	store    Store
	renderer *Renderer
}

// listFilters echoes the query parameters back into the filter form.
type listFilters struct {
	Version     string
	Country     string
	Description string
	OnlineGte   string
}

// HandleList handles GET /servers — filtered, paginated server listing.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filters := listFilters{
		Version:     q.Get("version"),
		Country:     q.Get("country"),
		Description: q.Get("description"),
		OnlineGte:   q.Get("online_gte"),
	}

	in := query.FindInput{
		Version:     filters.Version,
		Country:     filters.Country,
		Description: filters.Description,
	}
	if filters.OnlineGte != "" {
		if n, err := strconv.Atoi(filters.OnlineGte); err == nil && n > 0 {
			in.OnlineGte = n
		}
	}
	d := query.Build(in)

	total, err := h.store.Count(r.Context(), d)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	limit := parseIntParam(r, "limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := parseIntParam(r, "offset", 0)
	if offset < 0 || offset >= total {
		offset = 0
	}

	end := offset + limit
	if end > total {
		end = total
	}

	rows := make([]serverRow, 0, end-offset)
	for i := offset; i < end; i++ {
		rec, err := h.store.RecordAt(r.Context(), d, i)
		if err != nil {
			h.renderer.renderError(w, r, err)
			return
		}
		if rec == nil {
			break
		}
		rows = append(rows, rowFor(rec))
	}

	h.renderer.renderPage(w, "list", ListPageData{
		PageData: PageData{
			Title:   "Servers",
			Version: h.renderer.version,
			Nav:     "servers",
		},
		Rows: rows,
		Pagination: Pagination{
			Total:      total,
			Offset:     offset,
			Limit:      limit,
			HasPrev:    offset > 0,
			HasNext:    end < total,
			PrevOffset: max(0, offset-limit),
			NextOffset: end,
		},
		Filters: filters,
	})
}

// HandleDetail handles GET /servers/{address} — one server's stored record.
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("address")
	ip, port, err := splitAddress(address)
	if err != nil {
		h.renderer.renderError(w, r, errors.NewMalformedState("address must be ip or ip:port"))
		return
	}

	rec, err := h.store.FindByAddress(r.Context(), ip, port)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if rec == nil {
		h.renderer.renderError(w, r, errors.NewNotFound())
		return
	}

	row := rowFor(rec)

	sample := make([]sampleRow, 0, len(rec.Players.Sample))
	for _, p := range rec.Players.Sample {
		sample = append(sample, sampleRow{Name: format.Clean(p.Name), ID: p.ID, LastSeen: p.LastSeen})
	}

	mods := make([]modRow, 0, len(rec.Mods))
	for _, m := range rec.Mods {
		mods = append(mods, modRow{ID: m.ID, Version: m.Version})
	}

	data := DetailPageData{
		PageData: PageData{
			Title:   row.Address,
			Version: h.renderer.version,
			Nav:     "servers",
		},
		Row:         row,
		Sample:      sample,
		Mods:        mods,
		Cracked:     triState(rec.Cracked),
		Whitelisted: triState(rec.Whitelist),
	}
	if strings.HasPrefix(rec.Favicon, "data:image/") {
		data.FaviconURI = template.URL(rec.Favicon)
	}

	h.renderer.renderPage(w, "detail", data)
}

// HandleDocs handles GET /docs — usage notes rendered from embedded markdown.
func (h *Handlers) HandleDocs(w http.ResponseWriter, r *http.Request) {
	h.renderer.renderPage(w, "docs", DocsPageData{
		PageData: PageData{
			Title:   "Docs",
			Version: h.renderer.version,
			Nav:     "docs",
		},
		RenderedHTML: renderMarkdown(docsMarkdown),
	})
}

func rowFor(rec *record.Record) serverRow {
	country := ""
	if rec.Geo != nil {
		country = rec.Geo.Country
	}
	return serverRow{
		ID:          rec.ID,
		Address:     rec.Address(),
		Description: format.Clean(format.MOTD(rec.Description)),
		Version:     format.Clean(rec.Version.Name),
		Online:      rec.Players.Online,
		Max:         rec.Players.Max,
		Country:     country,
		Modded:      rec.Modded(),
		LastSeen:    rec.LastSeen,
	}
}

// splitAddress parses "ip" or "ip:port", defaulting the port to 25565.
func splitAddress(address string) (string, int, error) {
	if !strings.Contains(address, ":") {
		return address, 25565, nil
	}
	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return "", 0, errors.NewMalformedState("port out of range")
	}
	return host, port, nil
}

func triState(v *bool) string {
	if v == nil {
		return "unknown"
	}
	if *v {
		return "yes"
	}
	return "no"
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
