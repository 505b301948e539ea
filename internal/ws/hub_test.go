package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/kural1554/Finance/internal/domain/loan"
)

func receive(t *testing.T, client *Client) []byte {
	t.Helper()
	select {
	case msg := <-client.out:
		return msg
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timed out waiting for message")
		return nil
	}
}

func TestHubSubscribeAndPublish(t *testing.T) {
	hub := NewHub()
	client := NewClient(nil)

	hub.Subscribe(LoanStatusChannel("loan-1"), client)
	hub.Publish(LoanStatusChannel("loan-1"), []byte(`{"event":"loan_status_changed"}`))

	if msg := receive(t, client); string(msg) != `{"event":"loan_status_changed"}` {
		t.Fatalf("unexpected payload: %s", string(msg))
	}

	hub.UnsubscribeAll(client)
	if n := hub.SubscriberCount(LoanStatusChannel("loan-1")); n != 0 {
		t.Fatalf("expected no subscribers, got %d", n)
	}
}

func TestHubUnsubscribeStopsDelivery(t *testing.T) {
	hub := NewHub()
	client := NewClient(nil)

	hub.Subscribe(QueueChannel, client)
	hub.Unsubscribe(QueueChannel, client)
	hub.Publish(QueueChannel, []byte(`{}`))

	select {
	case msg := <-client.out:
		t.Fatalf("unexpected delivery: %s", string(msg))
	default:
	}
}

func TestClosedClientIgnoresPublish(t *testing.T) {
	hub := NewHub()
	client := NewClient(nil)
	hub.Subscribe(QueueChannel, client)
	client.close()

	hub.Publish(QueueChannel, []byte(`{}`))
}

func TestSubscriptionTopic(t *testing.T) {
	cases := []struct {
		msg  subscribeMessage
		want string
	}{
		{subscribeMessage{Channel: "loan:status", LoanID: "abc"}, "loan:status:abc"},
		{subscribeMessage{Channel: " LOANS:QUEUE "}, QueueChannel},
		{subscribeMessage{Channel: "loan:status"}, ""},
		{subscribeMessage{Channel: "pool:repayments", LoanID: "abc"}, ""},
	}
	for _, tc := range cases {
		if got := subscriptionTopic(tc.msg); got != tc.want {
			t.Fatalf("subscriptionTopic(%+v) = %q, want %q", tc.msg, got, tc.want)
		}
	}
}

type fakeSource struct {
	events []loan.Event
}

func (f *fakeSource) ListSince(_ context.Context, lastID int64, limit int32) ([]loan.Event, error) {
	out := make([]loan.Event, 0)
	for _, ev := range f.events {
		if ev.ID > lastID && int32(len(out)) < limit {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *fakeSource) LatestID(context.Context) (int64, error) {
	if len(f.events) == 0 {
		return 0, nil
	}
	return f.events[len(f.events)-1].ID, nil
}

func TestNotifierPublishesToLoanAndQueueChannels(t *testing.T) {
	hub := NewHub()
	loanClient := NewClient(nil)
	queueClient := NewClient(nil)
	hub.Subscribe(LoanStatusChannel("rec-1"), loanClient)
	hub.Subscribe(QueueChannel, queueClient)

	loanID := "SPK001"
	source := &fakeSource{events: []loan.Event{
		{ID: 7, LoanRecordID: "rec-1", LoanID: &loanID, FromStatus: loan.StatusManagerApproved, ToStatus: loan.StatusApproved, ActorUsername: "admin1", ActorRole: "ADMIN", CreatedAt: time.Now()},
	}}
	n := NewNotifier(source, hub, time.Second, nil)
	if err := n.tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}

	var got struct {
		Event string            `json:"event"`
		Data  statusChangedData `json:"data"`
	}
	if err := json.Unmarshal(receive(t, loanClient), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Event != "loan_status_changed" || got.Data.ToStatus != loan.StatusApproved || got.Data.LoanID == nil || *got.Data.LoanID != "SPK001" {
		t.Fatalf("unexpected message: %+v", got)
	}
	receive(t, queueClient)

	if n.lastID != 7 {
		t.Fatalf("expected cursor at 7, got %d", n.lastID)
	}
	if err := n.tick(context.Background()); err != nil {
		t.Fatalf("second tick: %v", err)
	}
	select {
	case msg := <-loanClient.out:
		t.Fatalf("event delivered twice: %s", string(msg))
	default:
	}
}

func TestControlFrame(t *testing.T) {
	var got map[string]string
	if err := json.Unmarshal(controlFrame("subscribed", QueueChannel, ""), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["type"] != "subscribed" || got["channel"] != QueueChannel {
		t.Fatalf("unexpected frame %v", got)
	}
	if _, ok := got["error"]; ok {
		t.Fatalf("ack frame should not carry an error: %v", got)
	}

	got = nil
	if err := json.Unmarshal(controlFrame("error", "", "invalid_message"), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["error"] != "invalid_message" {
		t.Fatalf("unexpected frame %v", got)
	}
}

func TestNotifierPublishesLateCommittedEvents(t *testing.T) {
	hub := NewHub()
	queueClient := NewClient(nil)
	hub.Subscribe(QueueChannel, queueClient)

	at := time.Now()
	source := &fakeSource{events: []loan.Event{
		{ID: 10, LoanRecordID: "rec-0", ToStatus: loan.StatusPending, CreatedAt: at},
	}}
	n := NewNotifier(source, hub, time.Second, nil)
	n.startID = 10
	n.lastID = 10

	// 12 commits first; 11 becomes visible one poll later.
	source.events = append(source.events, loan.Event{ID: 12, LoanRecordID: "rec-2", ToStatus: loan.StatusManagerApproved, CreatedAt: at})
	if err := n.tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	source.events = []loan.Event{source.events[0], {ID: 11, LoanRecordID: "rec-1", ToStatus: loan.StatusRejected, CreatedAt: at}, source.events[1]}
	if err := n.tick(context.Background()); err != nil {
		t.Fatalf("second tick: %v", err)
	}
	if err := n.tick(context.Background()); err != nil {
		t.Fatalf("third tick: %v", err)
	}

	var order []string
	for i := 0; i < 2; i++ {
		var got struct {
			Data statusChangedData `json:"data"`
		}
		if err := json.Unmarshal(receive(t, queueClient), &got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		order = append(order, got.Data.LoanRecordID)
	}
	if order[0] != "rec-2" || order[1] != "rec-1" {
		t.Fatalf("unexpected delivery order %v", order)
	}
	select {
	case msg := <-queueClient.out:
		t.Fatalf("unexpected extra delivery: %s", string(msg))
	default:
	}
}
