package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/hfi/betabet/internal/metrics"
	"github.com/hfi/betabet/internal/session"
)

// Field names accepted on the live translator connection
const (
	FieldPlaintext  = "plaintext"
	FieldCiphertext = "ciphertext"
	FieldSwap       = "swap"
	FieldClear      = "clear"
)

type liveMessage struct {
	Field string `json:"field"`
	Text  string `json:"text"`
}

type liveReply struct {
	session.Snapshot
	Error string `json:"error,omitempty"`
}

// Live upgrades to a websocket and runs a translator session on it. Every
// message edits one field and is answered with both fields.
func (a *API) Live(w http.ResponseWriter, r *http.Request) {
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Warn().Err(err).Msg("unable to upgrade websocket connection")
		return
	}
	defer ignoreClose(conn)

	conn.SetReadLimit(maxMessageBytes)

	requestID := RequestID(r.Context())
	sess := session.New(a.cipher)
	messages := 0

	metrics.LiveSessions.Inc()
	a.auditor.LogLiveSession(requestID, true, 0)
	defer func() {
		metrics.LiveSessions.Dec()
		a.auditor.LogLiveSession(requestID, false, messages)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				a.logger.Debug().Err(err).Str("request_id", requestID).Msg("live session closed")
			}
			return
		}
		messages++

		reply := a.handleLiveMessage(sess, data)
		if err := conn.WriteJSON(reply); err != nil {
			a.logger.Debug().Err(err).Str("request_id", requestID).Msg("unable to write live reply")
			return
		}
	}
}

func (a *API) handleLiveMessage(sess *session.Session, data []byte) liveReply {
	var msg liveMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		metrics.LiveMessagesTotal.WithLabelValues("invalid").Inc()
		return liveReply{Snapshot: sess.Snapshot(), Error: "invalid message: " + err.Error()}
	}

	switch msg.Field {
	case FieldPlaintext:
		metrics.LiveMessagesTotal.WithLabelValues(msg.Field).Inc()
		return liveReply{Snapshot: sess.SetPlaintext(a.prepare(msg.Text))}
	case FieldCiphertext:
		metrics.LiveMessagesTotal.WithLabelValues(msg.Field).Inc()
		return liveReply{Snapshot: sess.SetCiphertext(a.prepare(msg.Text))}
	case FieldSwap:
		metrics.LiveMessagesTotal.WithLabelValues(msg.Field).Inc()
		return liveReply{Snapshot: sess.Swap()}
	case FieldClear:
		metrics.LiveMessagesTotal.WithLabelValues(msg.Field).Inc()
		return liveReply{Snapshot: sess.Clear()}
	default:
		metrics.LiveMessagesTotal.WithLabelValues("invalid").Inc()
		return liveReply{Snapshot: sess.Snapshot(), Error: "unknown field: " + msg.Field}
	}
}

func ignoreClose(conn *websocket.Conn) {
	_ = conn.Close()
}
