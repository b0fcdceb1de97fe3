// Package gateway orchestrates encrypted direct messaging: it gates on
// the trust ledger, resolves peer keys, drives the crypto engine and
// hands envelopes to the relay. A send walks Gated → Resolving →
// Encrypting → Dispatching and stops at the first failure; the trust
// check runs before anything that could touch the network, so intent to
// contact a blocked peer never leaks off the machine.
package gateway

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/gravyxbt/clawchat-skill/internal/credstore"
	"github.com/gravyxbt/clawchat-skill/internal/crypto"
	"github.com/gravyxbt/clawchat-skill/internal/keystore"
	"github.com/gravyxbt/clawchat-skill/internal/models"
	"github.com/gravyxbt/clawchat-skill/internal/secfilter"
	"github.com/gravyxbt/clawchat-skill/internal/trust"
)

// Relay is the slice of the relay collaborator the gateway needs.
type Relay interface {
	SubmitEnvelope(ctx context.Context, env models.Envelope) (*models.Envelope, error)
	FetchInbox(ctx context.Context) ([]models.Envelope, error)
	FetchHistory(ctx context.Context, agentID string, limit int) ([]models.Envelope, error)
}

// Gateway wires the local identity, trust ledger, peer cache and crypto
// engine to a relay.
type Gateway struct {
	self   credstore.Identity
	keys   crypto.KeyPair
	ledger *trust.Ledger
	peers  *keystore.PeerCache
	relay  Relay
	filter *secfilter.Filter
	log    zerolog.Logger
}

// New assembles a gateway. The filter is applied to every plaintext the
// gateway surfaces.
func New(self credstore.Identity, keys crypto.KeyPair, ledger *trust.Ledger, peers *keystore.PeerCache, relay Relay, filter *secfilter.Filter, log zerolog.Logger) *Gateway {
	return &Gateway{
		self:   self,
		keys:   keys,
		ledger: ledger,
		peers:  peers,
		relay:  relay,
		filter: filter,
		log:    log,
	}
}

// Send encrypts text for the recipient and dispatches it. It fails with
// trust.ErrBlockedContact before any key resolution or network traffic
// if the recipient is blocked.
func (g *Gateway) Send(ctx context.Context, recipientID, text string) (*models.Envelope, error) {
	ok, err := g.ledger.IsPermitted(recipientID, trust.ActionSendDM)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: cannot send to %s", trust.ErrBlockedContact, recipientID)
	}

	peerKey, err := g.peers.Lookup(ctx, recipientID)
	if err != nil {
		return nil, err
	}

	nonce, ciphertext, err := crypto.Seal([]byte(text), &g.keys.Secret, &peerKey)
	if err != nil {
		return nil, err
	}

	env := models.Envelope{
		From:       g.self.AgentID,
		To:         recipientID,
		Nonce:      crypto.EncodeNonce(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
	}
	ack, err := g.relay.SubmitEnvelope(ctx, env)
	if err != nil {
		return nil, err
	}

	g.log.Debug().Str("to", recipientID).Str("envelope_id", ack.ID).Msg("dm delivered")
	return ack, nil
}

// InboxMessage is one fetched envelope after local processing. Exactly
// one of Plaintext (with optional Findings) or Err is meaningful: a
// per-message failure is reported here instead of aborting the batch.
type InboxMessage struct {
	Envelope  models.Envelope
	Plaintext string
	Findings  []secfilter.Finding
	Err       error
}

// Fetch drains the relay inbox and processes each envelope: blocked
// senders are policy-dropped undelivered, undecryptable envelopes are
// reported distinctly, and every surfaced plaintext carries its filter
// findings.
func (g *Gateway) Fetch(ctx context.Context) ([]InboxMessage, error) {
	envelopes, err := g.relay.FetchInbox(ctx)
	if err != nil {
		return nil, err
	}

	messages := make([]InboxMessage, 0, len(envelopes))
	for _, env := range envelopes {
		messages = append(messages, g.open(ctx, env))
	}
	return messages, nil
}

// History returns the stored conversation with one peer, decrypted where
// possible. Both directions open with the same shared key, so the
// agent's own sent messages decrypt too.
func (g *Gateway) History(ctx context.Context, peerID string, limit int) ([]InboxMessage, error) {
	ok, err := g.ledger.IsPermitted(peerID, trust.ActionReceiveDM)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: history with %s", trust.ErrBlockedContact, peerID)
	}

	envelopes, err := g.relay.FetchHistory(ctx, peerID, limit)
	if err != nil {
		return nil, err
	}

	messages := make([]InboxMessage, 0, len(envelopes))
	for _, env := range envelopes {
		messages = append(messages, g.open(ctx, env))
	}
	return messages, nil
}

func (g *Gateway) open(ctx context.Context, env models.Envelope) InboxMessage {
	msg := InboxMessage{Envelope: env}

	peerID := env.From
	if peerID == g.self.AgentID {
		peerID = env.To
	}

	ok, err := g.ledger.IsPermitted(peerID, trust.ActionReceiveDM)
	if err != nil {
		msg.Err = err
		return msg
	}
	if !ok {
		msg.Err = fmt.Errorf("%w: sender %s", trust.ErrBlockedContact, peerID)
		return msg
	}

	peerKey, err := g.peers.Lookup(ctx, peerID)
	if err != nil {
		msg.Err = err
		return msg
	}

	nonce, err := crypto.DecodeNonce(env.Nonce)
	if err != nil {
		msg.Err = fmt.Errorf("%w: %v", crypto.ErrDecryptionFailed, err)
		return msg
	}
	ciphertext, err := base64.StdEncoding.DecodeString(env.Ciphertext)
	if err != nil {
		msg.Err = fmt.Errorf("%w: %v", crypto.ErrDecryptionFailed, err)
		return msg
	}

	plaintext, err := crypto.Open(nonce, ciphertext, &g.keys.Secret, &peerKey)
	if err != nil {
		g.log.Warn().Str("from", env.From).Str("envelope_id", env.ID).Msg("undeliverable envelope")
		msg.Err = err
		return msg
	}

	msg.Plaintext = string(plaintext)
	msg.Findings = g.filter.ScanAll(msg.Plaintext)
	return msg
}
