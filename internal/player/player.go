// Package player works with player samples: merging live and stored
// samples, paginating them for display, and resolving usernames against
// the Mojang profile API.
package player

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/spyglass-mc/spyglass/internal/record"
)

// PageSize is how many players one embed page shows; platform embeds cap
// out at 25 fields.
const PageSize = 25

const profileURL = "https://api.mojang.com/users/profiles/minecraft/"

// MergeSamples combines a stored sample with the live one, deduplicating
// by player id. Live entries win; players only present in the stored
// sample carry over as offline history.
func MergeSamples(stored, live []record.Player) []record.Player {
	seen := make(map[string]bool, len(live))
	merged := make([]record.Player, 0, len(stored)+len(live))

	for _, p := range live {
		key := sampleKey(p)
		if seen[key] {
			continue
		}
		seen[key] = true
		p.Online = true
		merged = append(merged, p)
	}
	for _, p := range stored {
		key := sampleKey(p)
		if seen[key] {
			continue
		}
		seen[key] = true
		p.Online = false
		merged = append(merged, p)
	}

	// online first, then alphabetical, so pages are stable
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Online != merged[j].Online {
			return merged[i].Online
		}
		return strings.ToLower(merged[i].Name) < strings.ToLower(merged[j].Name)
	})
	return merged
}

func sampleKey(p record.Player) string {
	if p.ID != "" {
		return p.ID
	}
	return strings.ToLower(p.Name)
}

// Pages splits a merged sample into display pages of PageSize.
func Pages(players []record.Player) [][]record.Player {
	if len(players) == 0 {
		return nil
	}
	pages := make([][]record.Player, 0, (len(players)+PageSize-1)/PageSize)
	for start := 0; start < len(players); start += PageSize {
		end := start + PageSize
		if end > len(players) {
			end = len(players)
		}
		pages = append(pages, players[start:end])
	}
	return pages
}

// Resolver looks player usernames up on the Mojang profile API.
type Resolver struct {
	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client
	// BaseURL overrides the Mojang endpoint in tests.
	BaseURL string
	Timeout time.Duration
}

func (r *Resolver) client() *http.Client {
	if r.HTTPClient != nil {
		return r.HTTPClient
	}
	return http.DefaultClient
}

func (r *Resolver) base() string {
	if r.BaseURL != "" {
		return r.BaseURL
	}
	return profileURL
}

// UUID resolves a username to its dashed UUID. An unknown username yields
// ("", nil).
func (r *Resolver) UUID(ctx context.Context, name string) (string, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.base()+name, nil)
	if err != nil {
		return "", err
	}

	res, err := r.client().Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound || res.StatusCode == http.StatusNoContent {
		return "", nil
	}
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("mojang profile lookup: %s", res.Status)
	}

	var payload struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return "", err
	}
	if len(payload.ID) != 32 {
		return "", fmt.Errorf("mojang profile lookup: malformed id %q", payload.ID)
	}
	return Dashed(payload.ID), nil
}

// Dashed formats a 32-hex-character UUID with dashes. Already-dashed
// input passes through.
func Dashed(uuid string) string {
	plain := strings.ReplaceAll(uuid, "-", "")
	if len(plain) != 32 {
		return uuid
	}
	return fmt.Sprintf("%s-%s-%s-%s-%s",
		plain[:8], plain[8:12], plain[12:16], plain[16:20], plain[20:])
}
