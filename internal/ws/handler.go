package ws

import (
	"encoding/json"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/net/websocket"
)

type Handler struct {
	hub *Hub
}

func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

type subscribeMessage struct {
	Action  string `json:"action"`
	Channel string `json:"channel"`
	LoanID  string `json:"loanId"`
}

func (h *Handler) HandleWebSocket(c *gin.Context) {
	websocket.Handler(func(conn *websocket.Conn) {
		client := NewClient(conn)
		go h.writer(client)
		h.reader(client)
	}).ServeHTTP(c.Writer, c.Request)
}

func (h *Handler) reader(client *Client) {
	defer func() {
		h.hub.UnsubscribeAll(client)
		client.close()
		_ = client.conn.Close()
	}()

	for {
		var raw string
		if err := websocket.Message.Receive(client.conn, &raw); err != nil {
			return
		}
		var msg subscribeMessage
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			client.send(controlFrame("error", "", "invalid_message"))
			continue
		}
		topic := subscriptionTopic(msg)
		if topic == "" {
			client.send(controlFrame("error", msg.Channel, "unknown_channel"))
			continue
		}
		switch strings.ToLower(strings.TrimSpace(msg.Action)) {
		case "subscribe":
			h.hub.Subscribe(topic, client)
			client.send(controlFrame("subscribed", topic, ""))
		case "unsubscribe":
			h.hub.Unsubscribe(topic, client)
			client.send(controlFrame("unsubscribed", topic, ""))
		default:
			client.send(controlFrame("error", topic, "unknown_action"))
		}
	}
}

func (h *Handler) writer(client *Client) {
	for payload := range client.out {
		if err := websocket.Message.Send(client.conn, string(payload)); err != nil {
			return
		}
	}
}

func subscriptionTopic(msg subscribeMessage) string {
	switch strings.ToLower(strings.TrimSpace(msg.Channel)) {
	case "loan:status":
		loanID := strings.TrimSpace(msg.LoanID)
		if loanID == "" {
			return ""
		}
		return LoanStatusChannel(loanID)
	case QueueChannel:
		return QueueChannel
	default:
		return ""
	}
}

func controlFrame(kind, channel, errCode string) []byte {
	frame := map[string]string{"type": kind}
	if channel != "" {
		frame["channel"] = channel
	}
	if errCode != "" {
		frame["error"] = errCode
	}
	payload, _ := json.Marshal(frame)
	return payload
}
