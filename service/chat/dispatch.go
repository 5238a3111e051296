package chat

import (
	"context"
	"encoding/json"
	"time"

	"ChatRelay/global/config"
	"ChatRelay/logger"
	"ChatRelay/tools/errs"
	"ChatRelay/tools/ids"
)

// Client-facing routing and parse failure messages. The connection
// survives all of these.
const (
	msgNoRecipient       = "No recipient specified."
	msgRecipientNotFound = "Recipient not found."
	msgRecipientOffline  = "Recipient offline."
	msgDirectParseError  = "Error processing message."
	msgGroupParseError   = "Error processing group message."
)

// handleDirect routes a one-one-message: resolve the recipient account,
// look up its live connection and forward a synthesized message as a
// reply event. Delivery is fire-and-forget.
func (g *Gateway) handleDirect(sender *Client, raw json.RawMessage) {
	msg, err := DecodeDirect(raw)
	if err != nil {
		logger.Infof("[WS] direct parse err conn=%s err=%v", sender.ConnID, err)
		g.sendError(sender, msgDirectParseError)
		return
	}
	if msg.RecipientID == "" {
		g.sendError(sender, msgNoRecipient)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	recipient, err := g.store.FindByID(ctx, msg.RecipientID)
	if err != nil {
		if errs.ErrRecordNotFound.Is(err) {
			g.sendError(sender, msgRecipientNotFound)
			return
		}
		logger.Errorf("[WS] resolve recipient=%s err=%v", msg.RecipientID, err)
		g.sendError(sender, msgDirectParseError)
		return
	}

	target, ok := g.registry.Lookup(recipient.UserID)
	if !ok {
		// Offline recipient: named policy, default is the silent drop.
		if g.cfg.OfflinePolicy == config.OfflineNotify {
			g.sendError(sender, msgRecipientOffline)
		}
		return
	}

	senderID := msg.SenderID
	if senderID == "" {
		senderID = sender.UserID
	}
	out := DeliveredMessage{
		ID:        ids.GenerateString(),
		Text:      msg.Text,
		CreatedAt: time.Now(),
		Sender: Sender{
			ID:     senderID,
			Name:   recipient.GetNickname(),
			Avatar: defaultAvatarURL,
		},
	}
	frame, err := EncodeFrame(EventReply, out)
	if err != nil {
		logger.Errorf("[WS] encode reply err=%v", err)
		return
	}
	if !target.TrySend(frame) {
		logger.Warnf("[WS] reply dropped, slow client user=%s conn=%s", target.UserID, target.ConnID)
	}
}

// handleBroadcast fans a group-message out to every connected client,
// excluding the sender's own connection unless configured otherwise.
// The raw text is forwarded as the reply payload; no completion-order
// guarantee across connections.
func (g *Gateway) handleBroadcast(sender *Client, raw json.RawMessage) {
	msg, err := DecodeBroadcast(raw)
	if err != nil {
		logger.Infof("[WS] group parse err conn=%s err=%v", sender.ConnID, err)
		g.sendError(sender, msgGroupParseError)
		return
	}

	frame, err := EncodeFrame(EventReply, msg.Text)
	if err != nil {
		logger.Errorf("[WS] encode broadcast err=%v", err)
		return
	}

	all := g.registry.ListAll()
	targets := all[:0:0]
	for _, c := range all {
		if !g.cfg.BroadcastSelf && c.ConnID == sender.ConnID {
			continue
		}
		targets = append(targets, c)
	}
	g.fanout.Broadcast(targets, frame)
}
