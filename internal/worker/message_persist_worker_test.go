package worker

import (
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"

	"linguachat/internal/model"
)

// callLog records the order of repository calls across both fakes.
type callLog struct {
	calls []string
}

type fakeSessionStore struct {
	log *callLog
	err error
}

func (f *fakeSessionStore) EnsureExists(sessionID, name string) error {
	f.log.calls = append(f.log.calls, "ensure:"+sessionID+":"+name)
	return f.err
}

type fakeMessageStore struct {
	log   *callLog
	err   error
	saved []model.Message
}

func (f *fakeMessageStore) Create(msg *model.Message) error {
	f.log.calls = append(f.log.calls, "create:"+msg.SessionID)
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, *msg)
	return nil
}

type fakeAcknowledger struct {
	acked    bool
	nacked   bool
	requeued bool
}

func (f *fakeAcknowledger) Ack(uint64, bool) error {
	f.acked = true
	return nil
}

func (f *fakeAcknowledger) Nack(_ uint64, _ bool, requeue bool) error {
	f.nacked = true
	f.requeued = requeue
	return nil
}

func (f *fakeAcknowledger) Reject(_ uint64, requeue bool) error {
	f.nacked = true
	f.requeued = requeue
	return nil
}

func deliveryFor(t *testing.T, msg model.Message, ack amqp.Acknowledger) amqp.Delivery {
	t.Helper()
	body, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal message: %v", err)
	}
	return amqp.Delivery{Acknowledger: ack, Body: body}
}

func TestMessagePersistWorker_SessionRowBeforeMessageRow(t *testing.T) {
	log := &callLog{}
	sessions := &fakeSessionStore{log: log}
	messages := &fakeMessageStore{log: log}
	w := NewMessagePersistWorker(nil, messages, sessions, "q")

	ack := &fakeAcknowledger{}
	w.handleDelivery(deliveryFor(t, model.Message{
		SessionID: "s1",
		Role:      model.RoleUser,
		Content:   "hello",
	}, ack))

	want := []string{"ensure:s1:Untitled Chat", "create:s1"}
	if len(log.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", log.calls, want)
	}
	for i := range want {
		if log.calls[i] != want[i] {
			t.Fatalf("call %d = %q, want %q (session row must exist before the message row)", i, log.calls[i], want[i])
		}
	}
	if !ack.acked || ack.nacked {
		t.Errorf("delivery should be acked, got ack=%v nack=%v", ack.acked, ack.nacked)
	}
	if len(messages.saved) != 1 || messages.saved[0].Content != "hello" {
		t.Errorf("saved messages = %+v", messages.saved)
	}
}

func TestMessagePersistWorker_EnsureFailureRequeues(t *testing.T) {
	log := &callLog{}
	sessions := &fakeSessionStore{log: log, err: errors.New("db down")}
	messages := &fakeMessageStore{log: log}
	w := NewMessagePersistWorker(nil, messages, sessions, "q")

	ack := &fakeAcknowledger{}
	w.handleDelivery(deliveryFor(t, model.Message{SessionID: "s1", Role: model.RoleUser, Content: "x"}, ack))

	if len(messages.saved) != 0 {
		t.Error("message must not be written when the session row cannot be ensured")
	}
	if !ack.nacked || !ack.requeued {
		t.Errorf("transient failure should requeue, got nack=%v requeue=%v", ack.nacked, ack.requeued)
	}
}

func TestMessagePersistWorker_BadPayloadDropped(t *testing.T) {
	log := &callLog{}
	sessions := &fakeSessionStore{log: log}
	messages := &fakeMessageStore{log: log}
	w := NewMessagePersistWorker(nil, messages, sessions, "q")

	ack := &fakeAcknowledger{}
	w.handleDelivery(amqp.Delivery{Acknowledger: ack, Body: []byte("not json")})

	if len(log.calls) != 0 {
		t.Errorf("undecodable payload must touch no store, got calls %v", log.calls)
	}
	if !ack.nacked || ack.requeued {
		t.Errorf("undecodable payload should be dropped without requeue, got nack=%v requeue=%v", ack.nacked, ack.requeued)
	}
}

func TestMessagePersistWorker_CreateFailureDropped(t *testing.T) {
	log := &callLog{}
	sessions := &fakeSessionStore{log: log}
	messages := &fakeMessageStore{log: log, err: errors.New("constraint violation")}
	w := NewMessagePersistWorker(nil, messages, sessions, "q")

	ack := &fakeAcknowledger{}
	w.handleDelivery(deliveryFor(t, model.Message{SessionID: "s1", Role: model.RoleUser, Content: "x"}, ack))

	if !ack.nacked || ack.requeued {
		t.Errorf("insert failure should not requeue, got nack=%v requeue=%v", ack.nacked, ack.requeued)
	}
}
