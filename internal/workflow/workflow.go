// Package workflow drives the four-step join authorization flow:
// challenge, code submission, token exchange, action execution. No state
// lives in the process between steps; everything a later step needs
// travels inside the continuation token embedded in the challenge
// message's footer.
package workflow

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spyglass-mc/spyglass/internal/browse"
	"github.com/spyglass-mc/spyglass/internal/continuation"
	"github.com/spyglass-mc/spyglass/internal/errors"
	"github.com/spyglass-mc/spyglass/internal/format"
	"github.com/spyglass-mc/spyglass/internal/gateway"
	"github.com/spyglass-mc/spyglass/internal/query"
	"github.com/spyglass-mc/spyglass/internal/record"
)

// DefaultPromptTimeout bounds the code-submission modal.
const DefaultPromptTimeout = 60 * time.Second

// Identity is a linked account able to perform protocol actions.
type Identity struct {
	Name       string
	UUID       string
	Credential string
}

// Linker is the account-linking collaborator: it mints sign-in
// challenges and exchanges submitted codes for identities.
type Linker interface {
	BeginSignIn() (url, verify string)
	Exchange(ctx context.Context, userCode, verify string) (*Identity, error)
}

// Actor performs the protocol-level action against the selected record
// and returns a result record describing what happened.
type Actor interface {
	Perform(ctx context.Context, rec *record.Record, id Identity) (*record.Record, error)
}

// Workflow wires the collaborators for one deployment.
type Workflow struct {
	Gateway gateway.Gateway
	Store   browse.RecordSource
	Prober  browse.Prober
	Linker  Linker
	Actor   Actor
	Style   gateway.Style

	// Operator is the only principal allowed to start the flow.
	Operator string
	// FreshnessWindow bounds how stale a target may be at challenge time.
	FreshnessWindow time.Duration
	// PromptTimeout bounds the code-submission modal.
	PromptTimeout time.Duration

	Now    func() time.Time
	Logger *log.Logger
}

func (w *Workflow) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}

func (w *Workflow) window() time.Duration {
	if w.FreshnessWindow > 0 {
		return w.FreshnessWindow
	}
	return browse.DefaultFreshnessWindow
}

func (w *Workflow) promptTimeout() time.Duration {
	if w.PromptTimeout > 0 {
		return w.PromptTimeout
	}
	return DefaultPromptTimeout
}

func (w *Workflow) logf(msg string, args ...any) {
	if w.Logger != nil {
		w.Logger.Printf(msg, args...)
	}
}

// Challenge starts the flow for a selected record. Only the configured
// operator may trigger it and the target must still be reachable. On
// success a challenge message carrying the sign-in URL and the
// continuation token is posted, and its reference returned.
func (w *Workflow) Challenge(ctx context.Context, principal string, origin gateway.MessageRef, rec *record.Record) (gateway.MessageRef, error) {
	var none gateway.MessageRef

	if principal == "" || principal != w.Operator {
		return none, errors.NewNotAuthorized()
	}

	live, err := w.Prober.Probe(ctx, rec.IP, rec.Port)
	if err != nil {
		w.logf("[workflow] challenge probe %s: %v", rec.Address(), err)
	}
	if live == nil {
		// unreachable now; a recent sighting still counts as fresh
		if !rec.SeenWithin(w.window(), w.now()) {
			return none, errors.NewTargetOffline(rec.Address())
		}
	}

	url, verify := w.Linker.BeginSignIn()
	token := continuation.Token{OriginID: origin.MessageID, Verify: verify}

	view := gateway.View{
		Embed: gateway.Embed{
			Title:       "Sign in to continue",
			Description: fmt.Sprintf("[Sign in with your Microsoft account](%s), then press **Submit** and paste the code you receive.", url),
			Color:       w.Style.Color(gateway.OutcomeInfo),
			Footer:      continuation.TokenLine(token),
			Timestamp:   w.now(),
		},
		Disabled: browse.AllDisabled(),
	}
	ref, err := w.Gateway.Send(ctx, origin.ChannelID, view)
	if err != nil {
		return none, errors.NewInternal(err)
	}
	return ref, nil
}

// Submit runs the remaining three steps from a challenge message: parse
// the continuation token, prompt for the code, exchange it, and perform
// the action against the originally selected record. Terminal failures
// edit the challenge message into the matching error state.
func (w *Workflow) Submit(ctx context.Context, challenge gateway.MessageRef) error {
	msg, err := w.Gateway.Message(ctx, challenge)
	if err != nil {
		return errors.NewInternal(err)
	}
	if msg == nil {
		return errors.NewMalformedContinuation("challenge message no longer exists")
	}

	token, err := continuation.ParseToken(msg.Footer)
	if err != nil {
		return err
	}

	// Recover the selected record before anything irreversible happens.
	// A token pointing at a vanished browse message aborts the step here,
	// with no modal opened and no exchange attempted.
	rec, err := w.originRecord(ctx, challenge.ChannelID, token.OriginID)
	if err != nil {
		return err
	}

	code, err := w.Gateway.Prompt(ctx, challenge, gateway.Prompt{
		Title:     "Verification code",
		Label:     "Paste the code from the sign-in page",
		MinLength: 1,
		MaxLength: 512,
		Timeout:   w.promptTimeout(),
	})
	if err != nil {
		if errors.Is(err, errors.ErrTimedOut) {
			w.editTerminal(ctx, challenge, gateway.OutcomeWarning, "Timed out",
				"No code arrived in time. Start over from the server message.")
			return errors.NewTimedOut()
		}
		return errors.NewInternal(err)
	}

	id, err := w.Linker.Exchange(ctx, code, token.Verify)
	if err != nil {
		w.editTerminal(ctx, challenge, gateway.OutcomeError, "Sign-in failed",
			"The code could not be exchanged. Start over from the server message.")
		if errors.Is(err, errors.ErrExchangeFailed) {
			return err
		}
		return errors.NewExchangeFailed(err.Error())
	}

	// the challenge message is spent once the exchange succeeds
	if err := w.Gateway.Delete(ctx, challenge); err != nil {
		w.logf("[workflow] delete challenge: %v", err)
	}

	return w.execute(ctx, challenge, rec, *id)
}

// originRecord recovers the selected record from the originating browse
// message named by the continuation token.
func (w *Workflow) originRecord(ctx context.Context, channelID, messageID string) (*record.Record, error) {
	origin, err := w.Gateway.Message(ctx, gateway.MessageRef{ChannelID: channelID, MessageID: messageID})
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if origin == nil {
		return nil, errors.NewMalformedContinuation("originating message no longer exists")
	}

	d, err := query.Decode(origin.Attachment)
	if err != nil {
		return nil, err
	}
	index, _, err := continuation.ParsePosition(origin.Footer)
	if err != nil {
		return nil, err
	}

	rec, err := w.Store.RecordAt(ctx, d, index)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, errors.NewNotFound()
	}
	return rec, nil
}

// execute performs the protocol action and reports the outcome on the
// origin channel. Any large preview field is stripped from the result
// before it renders.
func (w *Workflow) execute(ctx context.Context, ref gateway.MessageRef, rec *record.Record, id Identity) error {
	result, err := w.Actor.Perform(ctx, rec, id)
	if err != nil {
		w.Gateway.Notify(ctx, ref, gateway.Embed{
			Title:       "Action failed",
			Description: format.Clean(err.Error()),
			Color:       w.Style.Color(gateway.OutcomeError),
			Timestamp:   w.now(),
		})
		return errors.NewActionFailed(err)
	}

	result.Favicon = ""

	embed := gateway.Embed{
		Title:       fmt.Sprintf("Connected to %s", result.Address()),
		Description: format.Clean(result.Description),
		Color:       w.Style.Color(gateway.OutcomeSuccess),
		Fields: []gateway.EmbedField{
			{Name: "Account", Value: id.Name, Inline: true},
			{Name: "Version", Value: fmt.Sprintf("%s (%d)", format.Clean(result.Version.Name), result.Version.Protocol), Inline: true},
		},
		Timestamp: w.now(),
	}
	if err := w.Gateway.Notify(ctx, ref, embed); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

func (w *Workflow) editTerminal(ctx context.Context, ref gateway.MessageRef, outcome, title, detail string) {
	view := gateway.View{
		Embed: gateway.Embed{
			Title:       title,
			Description: detail,
			Color:       w.Style.Color(outcome),
			Timestamp:   w.now(),
		},
		Disabled: browse.AllDisabled(),
	}
	if err := w.Gateway.Edit(ctx, ref, view); err != nil {
		w.logf("[workflow] terminal edit: %v", err)
	}
}
