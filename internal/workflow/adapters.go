package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/spyglass-mc/spyglass/internal/errors"
	"github.com/spyglass-mc/spyglass/internal/mcproto"
	"github.com/spyglass-mc/spyglass/internal/msa"
	"github.com/spyglass-mc/spyglass/internal/record"
)

// MSALinker adapts the Microsoft sign-in chain to the linker contract.
type MSALinker struct {
	Auth *msa.Authenticator
}

func (l MSALinker) BeginSignIn() (string, string) {
	s := l.Auth.BeginSignIn()
	return s.URL, s.Verify
}

func (l MSALinker) Exchange(ctx context.Context, userCode, verify string) (*Identity, error) {
	session, err := l.Auth.Exchange(ctx, extractCode(userCode), verify)
	if err != nil {
		return nil, err
	}
	return &Identity{
		Name:       session.Username,
		UUID:       session.UUID,
		Credential: session.AccessToken,
	}, nil
}

// extractCode accepts either a bare authorization code or the full
// redirect URL the user pasted.
func extractCode(input string) string {
	input = strings.TrimSpace(input)
	if i := strings.Index(input, "code="); i >= 0 {
		code := input[i+len("code="):]
		if j := strings.IndexAny(code, "&# "); j >= 0 {
			code = code[:j]
		}
		return code
	}
	return input
}

// JoinAction performs the login attempt against the selected server.
type JoinAction struct {
	Joiner *mcproto.Joiner
}

func (a JoinAction) Perform(ctx context.Context, rec *record.Record, id Identity) (*record.Record, error) {
	outcome, err := a.Joiner.Join(ctx, rec.IP, rec.Port, rec.Version.Protocol, mcproto.Credentials{
		Username:    id.Name,
		UUID:        id.UUID,
		AccessToken: id.Credential,
	})
	if err != nil {
		return nil, err
	}
	if outcome == mcproto.OutcomeOffline {
		return nil, errors.NewTargetOffline(rec.Address())
	}

	result := *rec
	result.Description = fmt.Sprintf("Login result: %s", outcome)
	switch outcome {
	case mcproto.OutcomeCracked:
		result.Cracked = boolPtr(true)
	case mcproto.OutcomePremium:
		result.Cracked = boolPtr(false)
	case mcproto.OutcomeWhitelisted:
		result.Whitelist = boolPtr(true)
	case mcproto.OutcomeModded:
		result.HasForgeData = true
	}
	return &result, nil
}

func boolPtr(b bool) *bool { return &b }
