// Package bot dispatches chat interactions to the browse core. Every
// handler is stateless: it recovers the descriptor and position from the
// triggering message, applies one transition, and publishes the result
// back through the gateway.
package bot

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/spyglass-mc/spyglass/internal/browse"
	"github.com/spyglass-mc/spyglass/internal/continuation"
	"github.com/spyglass-mc/spyglass/internal/errors"
	"github.com/spyglass-mc/spyglass/internal/format"
	"github.com/spyglass-mc/spyglass/internal/gateway"
	"github.com/spyglass-mc/spyglass/internal/player"
	"github.com/spyglass-mc/spyglass/internal/query"
	"github.com/spyglass-mc/spyglass/internal/record"
	"github.com/spyglass-mc/spyglass/internal/workflow"
)

// PlayerResolver looks up the UUID for a username. Empty result with a
// nil error means the name is unknown.
type PlayerResolver interface {
	UUID(ctx context.Context, name string) (string, error)
}

// Store is what the handlers need from the record layer.
type Store interface {
	Count(ctx context.Context, d *query.Descriptor) (int, error)
	RecordAt(ctx context.Context, d *query.Descriptor, index int) (*record.Record, error)
	Upsert(ctx context.Context, r *record.Record) (string, error)
	FindByAddress(ctx context.Context, ip string, port int) (*record.Record, error)
}

// Event is one incoming interaction.
type Event struct {
	Action    string
	Principal string
	Ref       gateway.MessageRef
}

// Handler processes one event kind.
type Handler func(ctx context.Context, ev Event) error

// Bot owns the handler registry and the collaborators behind it.
type Bot struct {
	Gateway  gateway.Gateway
	Store    Store
	Renderer *browse.Renderer
	Workflow *workflow.Workflow
	Style    gateway.Style

	// Resolver turns player usernames into UUIDs for find filters.
	// nil disables name resolution; filters then match ids only.
	Resolver PlayerResolver

	// PromptTimeout bounds the jump modal and sort menu.
	PromptTimeout time.Duration
	Logger        *log.Logger

	handlers map[string]Handler
}

// Actions beyond the seven-slot vector.
const (
	ActionMods   = "mods"
	ActionSubmit = "submit"
)

// New wires the registry.
func New(gw gateway.Gateway, st Store, r *browse.Renderer, wf *workflow.Workflow, style gateway.Style) *Bot {
	b := &Bot{
		Gateway:  gw,
		Store:    st,
		Renderer: r,
		Workflow: wf,
		Style:    style,
	}
	b.handlers = map[string]Handler{
		"previous":   b.handlePrevious,
		"next":       b.handleNext,
		"jump":       b.handleJump,
		"update":     b.handleUpdate,
		"players":    b.handlePlayers,
		"sort":       b.handleSort,
		"join":       b.handleJoin,
		ActionMods:   b.handleMods,
		ActionSubmit: b.handleSubmit,
	}
	return b
}

func (b *Bot) promptTimeout() time.Duration {
	if b.PromptTimeout > 0 {
		return b.PromptTimeout
	}
	return 60 * time.Second
}

func (b *Bot) logf(msg string, args ...any) {
	if b.Logger != nil {
		b.Logger.Printf(msg, args...)
	}
}

// Handle dispatches one event. Recoverable errors are reported to the
// user and swallowed; only internal faults propagate.
func (b *Bot) Handle(ctx context.Context, ev Event) error {
	h, ok := b.handlers[ev.Action]
	if !ok {
		return fmt.Errorf("unknown action %q", ev.Action)
	}

	err := h(ctx, ev)
	if err == nil {
		return nil
	}

	serr, ok := err.(*errors.SpyglassError)
	if !ok {
		return err
	}

	b.logf("[bot] %s: %s", ev.Action, serr.Error())

	// a message whose state cannot be read is reset to the default
	// browse rather than left stranded
	if serr.Code == errors.ErrMalformedState {
		if perr := b.Renderer.Publish(ctx, b.Gateway, ev.Ref, query.Build(query.FindInput{}), 0); perr != nil {
			b.logf("[bot] default browse fallback: %v", perr)
		}
		return nil
	}

	notice := gateway.Embed{
		Title:       "Error",
		Description: serr.Message,
		Color:       b.Style.Color(gateway.OutcomeError),
	}
	if serr.Code == errors.ErrNotAuthorized {
		notice.Description = "You are not allowed to do that."
	}
	if nerr := b.Gateway.Notify(ctx, ev.Ref, notice); nerr != nil {
		b.logf("[bot] notify failed: %v", nerr)
	}
	return nil
}

// recoverState reads the descriptor and position back out of the
// triggering message.
func (b *Bot) recoverState(ctx context.Context, ref gateway.MessageRef) (*query.Descriptor, int, int, error) {
	msg, err := b.Gateway.Message(ctx, ref)
	if err != nil {
		return nil, 0, 0, errors.NewInternal(err)
	}
	if msg == nil {
		return nil, 0, 0, errors.NewMalformedState("message no longer exists")
	}

	d, err := query.Decode(msg.Attachment)
	if err != nil {
		return nil, 0, 0, err
	}
	index, total, err := continuation.ParsePosition(msg.Footer)
	if err != nil {
		return nil, 0, 0, err
	}
	return d, index, total, nil
}

func (b *Bot) handlePrevious(ctx context.Context, ev Event) error {
	d, index, total, err := b.recoverState(ctx, ev.Ref)
	if err != nil {
		return err
	}
	return b.Renderer.Publish(ctx, b.Gateway, ev.Ref, d, browse.Previous(index, total))
}

func (b *Bot) handleNext(ctx context.Context, ev Event) error {
	d, index, total, err := b.recoverState(ctx, ev.Ref)
	if err != nil {
		return err
	}
	return b.Renderer.Publish(ctx, b.Gateway, ev.Ref, d, browse.Next(index, total))
}

func (b *Bot) handleJump(ctx context.Context, ev Event) error {
	d, _, total, err := b.recoverState(ctx, ev.Ref)
	if err != nil {
		return err
	}

	reply, err := b.Gateway.Prompt(ctx, ev.Ref, gateway.Prompt{
		Title:       "Jump to server",
		Label:       fmt.Sprintf("Server number (1-%d)", total),
		Placeholder: "1",
		MinLength:   1,
		MaxLength:   10,
		Timeout:     b.promptTimeout(),
	})
	if err != nil {
		if errors.Is(err, errors.ErrTimedOut) {
			return nil // abandoned modal, nothing to do
		}
		return errors.NewInternal(err)
	}

	target, err := strconv.Atoi(reply)
	if err != nil {
		return errors.NewOutOfRange(0, total)
	}
	index, err := browse.Jump(target, total)
	if err != nil {
		return err
	}
	return b.Renderer.Publish(ctx, b.Gateway, ev.Ref, d, index)
}

func (b *Bot) handleSort(ctx context.Context, ev Event) error {
	d, _, _, err := b.recoverState(ctx, ev.Ref)
	if err != nil {
		return err
	}

	options := make([]gateway.SelectOption, len(query.SortMethods))
	for i, m := range query.SortMethods {
		options[i] = gateway.SelectOption{Label: string(m), Value: string(m)}
	}
	choice, err := b.Gateway.Choose(ctx, ev.Ref, gateway.Select{
		Title:       "Sort servers",
		Placeholder: "Sort by...",
		Options:     options,
		Timeout:     b.promptTimeout(),
	})
	if err != nil {
		if errors.Is(err, errors.ErrTimedOut) {
			return nil
		}
		return errors.NewInternal(err)
	}

	index, err := browse.Resort(d, query.SortMethod(choice))
	if err != nil {
		return err
	}
	return b.Renderer.Publish(ctx, b.Gateway, ev.Ref, d, index)
}

// handleUpdate re-probes a pinned record and re-renders it in place.
func (b *Bot) handleUpdate(ctx context.Context, ev Event) error {
	d, index, _, err := b.recoverState(ctx, ev.Ref)
	if err != nil {
		return err
	}
	if !d.IsLiteral() {
		return errors.NewMalformedState("refresh only applies to a pinned record")
	}

	live, perr := b.Renderer.Prober.Probe(ctx, d.Literal.IP, d.Literal.Port)
	if perr == nil && live != nil {
		d.Literal.Merge(live)
		d.Literal.LastSeen = time.Now().Unix()
		if _, err := b.Store.Upsert(ctx, d.Literal); err != nil {
			b.logf("[bot] upsert refreshed record: %v", err)
		}
	}
	return b.Renderer.Publish(ctx, b.Gateway, ev.Ref, d, index)
}

// handlePlayers lists the deduplicated sample, a page per notice.
func (b *Bot) handlePlayers(ctx context.Context, ev Event) error {
	d, index, _, err := b.recoverState(ctx, ev.Ref)
	if err != nil {
		return err
	}
	rec, err := b.Store.RecordAt(ctx, d, index)
	if err != nil {
		return err
	}
	if rec == nil {
		return errors.NewNotFound()
	}

	var live []record.Player
	if probed, perr := b.Renderer.Prober.Probe(ctx, rec.IP, rec.Port); perr == nil && probed != nil {
		live = probed.Players.Sample
	}

	merged := player.MergeSamples(rec.Players.Sample, live)
	if len(merged) == 0 {
		return errors.NewNotFound()
	}

	pages := player.Pages(merged)
	for n, page := range pages {
		fields := make([]gateway.EmbedField, len(page))
		for i, p := range page {
			status := "offline"
			if p.Online {
				status = "online"
			}
			fields[i] = gateway.EmbedField{
				Name:   format.Clean(p.Name),
				Value:  fmt.Sprintf("%s\n`%s`", status, p.ID),
				Inline: true,
			}
		}
		embed := gateway.Embed{
			Title:  fmt.Sprintf("Players (%d/%d)", n+1, len(pages)),
			Color:  b.Style.Color(gateway.OutcomeInfo),
			Fields: fields,
		}
		if err := b.Gateway.Notify(ctx, ev.Ref, embed); err != nil {
			return errors.NewInternal(err)
		}
	}
	return nil
}

// handleMods lists a Forge server's declared mods.
func (b *Bot) handleMods(ctx context.Context, ev Event) error {
	d, index, _, err := b.recoverState(ctx, ev.Ref)
	if err != nil {
		return err
	}
	rec, err := b.Store.RecordAt(ctx, d, index)
	if err != nil {
		return err
	}
	if rec == nil || len(rec.Mods) == 0 {
		return errors.NewNotFound()
	}

	fields := make([]gateway.EmbedField, 0, player.PageSize)
	for _, m := range rec.Mods {
		if len(fields) == player.PageSize {
			break
		}
		fields = append(fields, gateway.EmbedField{
			Name:   format.Clean(m.Name),
			Value:  m.Version,
			Inline: true,
		})
	}
	return b.Gateway.Notify(ctx, ev.Ref, gateway.Embed{
		Title:  fmt.Sprintf("Mods (%d)", len(rec.Mods)),
		Color:  b.Style.Color(gateway.OutcomeInfo),
		Fields: fields,
	})
}

func (b *Bot) handleJoin(ctx context.Context, ev Event) error {
	d, index, _, err := b.recoverState(ctx, ev.Ref)
	if err != nil {
		return err
	}
	rec, err := b.Store.RecordAt(ctx, d, index)
	if err != nil {
		return err
	}
	if rec == nil {
		return errors.NewNotFound()
	}

	_, err = b.Workflow.Challenge(ctx, ev.Principal, ev.Ref, rec)
	return err
}

func (b *Bot) handleSubmit(ctx context.Context, ev Event) error {
	return b.Workflow.Submit(ctx, ev.Ref)
}
