package mcproto

import (
	"bufio"
	"bytes"
	"context"
	"crypto/aes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/x509"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/spyglass-mc/spyglass/internal/format"
)

// Outcome classifies how a server answered a login attempt.
type Outcome string

const (
	OutcomeCracked     Outcome = "CRACKED"     // login succeeded without encryption
	OutcomePremium     Outcome = "PREMIUM"     // server requires Mojang authentication
	OutcomeWhitelisted Outcome = "WHITELISTED" // authenticated but not allow-listed
	OutcomeModded      Outcome = "MODDED"      // server wants a modded client
	OutcomeNoGame      Outcome = "NO_GAME"     // account does not own the game
	OutcomeBadToken    Outcome = "BAD_TOKEN"   // access token rejected upstream
	OutcomeOffline     Outcome = "OFFLINE"     // target unreachable
	OutcomeUnknown     Outcome = "UNKNOWN"
)

const (
	entitlementsURL = "https://api.minecraftservices.com/entitlements/mcstore"
	sessionJoinURL  = "https://sessionserver.mojang.com/session/minecraft/join"
)

// Credentials identifies the joining player.
type Credentials struct {
	Username    string
	UUID        string // dashed or plain hex
	AccessToken string // empty probes cracked access only
}

// Joiner performs login attempts against discovered servers.
type Joiner struct {
	// Timeout bounds each network exchange; defaults to DefaultTimeout.
	Timeout time.Duration
	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client
	Logger     *log.Logger

	// URL overrides for tests.
	EntitlementsURL string
	SessionJoinURL  string
}

func (j *Joiner) timeout() time.Duration {
	if j.Timeout > 0 {
		return j.Timeout
	}
	return DefaultTimeout
}

func (j *Joiner) client() *http.Client {
	if j.HTTPClient != nil {
		return j.HTTPClient
	}
	return http.DefaultClient
}

func (j *Joiner) logf(msg string, args ...any) {
	if j.Logger != nil {
		j.Logger.Printf(msg, args...)
	}
}

// Join attempts a login with the given protocol version and classifies
// the server's response. Network-level failures classify as OFFLINE
// rather than erroring; only broken inputs return an error.
func (j *Joiner) Join(ctx context.Context, ip string, port, protocol int, creds Credentials) (Outcome, error) {
	if creds.Username == "" || len(creds.Username) > 16 {
		return OutcomeUnknown, fmt.Errorf("invalid username %q", creds.Username)
	}
	uuid := strings.ReplaceAll(creds.UUID, "-", "")
	if len(uuid) != 32 {
		return OutcomeUnknown, fmt.Errorf("invalid uuid %q", creds.UUID)
	}

	if creds.AccessToken != "" {
		if outcome, ok := j.checkEntitlement(ctx, creds.AccessToken); !ok {
			return outcome, nil
		}
	}

	d := net.Dialer{Timeout: j.timeout()}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(ip, strconv.Itoa(port)))
	if err != nil {
		return OutcomeOffline, nil
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(j.timeout()))

	if err := handshake(conn, protocol, ip, port, 2); err != nil {
		return OutcomeOffline, nil
	}
	if err := writePacket(conn, 0x00, loginStartPayload(protocol, creds.Username, uuid)); err != nil {
		return OutcomeOffline, nil
	}

	r := bufio.NewReader(conn)
	threshold := 0

	id, body, err := readPacket(r)
	if err != nil {
		return OutcomeOffline, nil
	}
	if id == 0x03 {
		threshold, err = readVarInt(body)
		if err != nil {
			return OutcomeUnknown, nil
		}
		id, body, err = readPacketCompressed(r)
		if err != nil {
			return OutcomeOffline, nil
		}
	}

	switch id {
	case 0x02:
		return OutcomeCracked, nil
	case 0x00:
		reason, _ := readString(body)
		return classifyDisconnect(reason), nil
	case 0x04:
		return OutcomeModded, nil
	case 0x01:
		if creds.AccessToken == "" {
			return OutcomePremium, nil
		}
		return j.completeEncryptedLogin(ctx, conn, r, body, uuid, creds.AccessToken, threshold), nil
	default:
		j.logf("[mcproto.join] unexpected login packet 0x%02x", id)
		return OutcomeUnknown, nil
	}
}

// checkEntitlement verifies the account owns the game. The second return
// is false when the attempt must stop with the given outcome.
func (j *Joiner) checkEntitlement(ctx context.Context, token string) (Outcome, bool) {
	url := j.EntitlementsURL
	if url == "" {
		url = entitlementsURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return OutcomeBadToken, false
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	res, err := j.client().Do(req)
	if err != nil {
		j.logf("[mcproto.join] entitlement check: %v", err)
		return OutcomeBadToken, false
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return OutcomeBadToken, false
	}

	var payload struct {
		Items []json.RawMessage `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return OutcomeBadToken, false
	}
	if len(payload.Items) == 0 {
		return OutcomeNoGame, false
	}
	return "", true
}

// loginStartPayload builds the protocol-dependent Login Start body.
func loginStartPayload(protocol int, username, uuid string) []byte {
	var p bytes.Buffer
	writeString(&p, username)

	if protocol > 758 {
		if protocol <= 760 {
			writeBool(&p, false) // no signature data
		}
		if protocol >= 760 && protocol <= 763 {
			writeBool(&p, true) // uuid present
		}
		hi, _ := strconv.ParseUint(uuid[:16], 16, 64)
		lo, _ := strconv.ParseUint(uuid[16:], 16, 64)
		writeUint64(&p, hi)
		writeUint64(&p, lo)
	}
	return p.Bytes()
}

// classifyDisconnect maps a pre-encryption disconnect reason to an
// outcome by keyword, the way server implementations actually phrase
// these messages.
func classifyDisconnect(reason string) Outcome {
	text := strings.ToLower(format.MOTD(reason))
	switch {
	case containsAny(text, "fml", "forge", "modded", "mods"):
		return OutcomeModded
	case strings.Contains(text, "whitelist"):
		return OutcomeWhitelisted
	default:
		return OutcomeUnknown
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// completeEncryptedLogin answers an encryption request: announce the
// session to Mojang, send the encrypted secret, then classify whatever
// the server says next through the negotiated cipher.
func (j *Joiner) completeEncryptedLogin(ctx context.Context, conn net.Conn, r *bufio.Reader, body *bytes.Reader, uuid, token string, threshold int) Outcome {
	serverID, err := readBytes(body)
	if err != nil {
		return OutcomeUnknown
	}
	publicKeyDER, err := readBytes(body)
	if err != nil {
		return OutcomeUnknown
	}
	verifyToken, err := readBytes(body)
	if err != nil {
		return OutcomeUnknown
	}

	pub, err := x509.ParsePKIXPublicKey(publicKeyDER)
	if err != nil {
		j.logf("[mcproto.join] bad server public key: %v", err)
		return OutcomeUnknown
	}
	rsaKey, ok := pub.(*rsa.PublicKey)
	if !ok {
		return OutcomeUnknown
	}

	secret := make([]byte, 16)
	if _, err := rand.Read(secret); err != nil {
		return OutcomeUnknown
	}

	digest := sha1.New()
	digest.Write(serverID)
	digest.Write(secret)
	digest.Write(publicKeyDER)
	serverHash := hex.EncodeToString(digest.Sum(nil))

	if err := j.sessionJoin(ctx, token, uuid, serverHash); err != nil {
		j.logf("[mcproto.join] session join: %v", err)
	}

	encSecret, err := rsa.EncryptPKCS1v15(rand.Reader, rsaKey, secret)
	if err != nil {
		return OutcomeUnknown
	}
	encVerify, err := rsa.EncryptPKCS1v15(rand.Reader, rsaKey, verifyToken)
	if err != nil {
		return OutcomeUnknown
	}

	var payload bytes.Buffer
	writeVarInt(&payload, len(encSecret))
	payload.Write(encSecret)
	writeVarInt(&payload, len(encVerify))
	payload.Write(encVerify)
	if err := writePacketCompressed(conn, 0x01, payload.Bytes(), threshold); err != nil {
		return OutcomeOffline
	}

	block, err := aes.NewCipher(secret)
	if err != nil {
		return OutcomeUnknown
	}
	stream := newCFB8(block, secret, true)
	enc := bufio.NewReader(&cipherReader{r: r, stream: stream})

	// servers occasionally spray config/play packets before the login
	// result; a couple of nonsense ids in a row reads as modded
	weird := 0
	for {
		var id int
		var body *bytes.Reader
		var err error
		if threshold > 0 {
			id, body, err = readPacketCompressed(enc)
		} else {
			id, body, err = readPacket(enc)
		}
		if err != nil {
			return OutcomeUnknown
		}

		if id >= 1000 {
			weird++
			if weird > 2 {
				return OutcomeModded
			}
			continue
		}

		switch id {
		case 0x03:
			if _, err := readVarInt(body); err != nil {
				return OutcomeUnknown
			}
			threshold = 1
			continue
		case 0x00:
			reason, _ := readString(body)
			text := strings.ToLower(format.MOTD(reason))
			if strings.Contains(text, "whitelist") || strings.Contains(text, " ban ") {
				return OutcomeWhitelisted
			}
			return OutcomeUnknown
		default:
			// login success or the start of play traffic
			return OutcomePremium
		}
	}
}

// sessionJoin announces the pending server join to the Mojang session
// service.
func (j *Joiner) sessionJoin(ctx context.Context, token, uuid, serverHash string) error {
	url := j.SessionJoinURL
	if url == "" {
		url = sessionJoinURL
	}

	payload, err := json.Marshal(map[string]string{
		"accessToken":     token,
		"selectedProfile": uuid,
		"serverId":        serverHash,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := j.client().Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	io.Copy(io.Discard, res.Body)

	if res.StatusCode != http.StatusNoContent && res.StatusCode != http.StatusOK {
		return fmt.Errorf("session join rejected: %s", res.Status)
	}
	return nil
}
