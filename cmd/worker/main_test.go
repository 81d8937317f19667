package main

import (
	"context"
	"errors"
	"testing"

	"github.com/streadway/amqp"

	"skillgap-backend/internal/analyses"
	"skillgap-backend/internal/engine"
	"skillgap-backend/internal/queue"
)

type settlement struct {
	kind    string
	requeue bool
}

type fakeAcknowledger struct {
	settled []settlement
}

func (f *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	f.settled = append(f.settled, settlement{kind: "ack"})
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, multiple bool, requeue bool) error {
	f.settled = append(f.settled, settlement{kind: "nack", requeue: requeue})
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	f.settled = append(f.settled, settlement{kind: "reject", requeue: requeue})
	return nil
}

type fakeProcessor struct {
	err error
}

func (f fakeProcessor) ProcessAnalysis(ctx context.Context, analysisID string) error {
	return f.err
}

func delivery(t *testing.T, ack amqp.Acknowledger, body string, redelivered bool) amqp.Delivery {
	t.Helper()
	return amqp.Delivery{
		Acknowledger: ack,
		DeliveryTag:  1,
		MessageId:    "m1",
		Body:         []byte(body),
		Redelivered:  redelivered,
	}
}

func encoded(t *testing.T, id string) string {
	t.Helper()
	body, err := queue.EncodeMessage(queue.Message{AnalysisID: id, RequestID: "req-1", Version: queue.MessageVersion})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return string(body)
}

func expectSettlement(t *testing.T, ack *fakeAcknowledger, want settlement) {
	t.Helper()
	if len(ack.settled) != 1 {
		t.Fatalf("expected one settlement, got %d", len(ack.settled))
	}
	if ack.settled[0] != want {
		t.Fatalf("expected %+v, got %+v", want, ack.settled[0])
	}
}

func TestWorkerAcksOnSuccess(t *testing.T) {
	ack := &fakeAcknowledger{}
	handleDelivery(context.Background(), fakeProcessor{}, delivery(t, ack, encoded(t, "analysis-1"), false))
	expectSettlement(t, ack, settlement{kind: "ack"})
}

func TestWorkerRejectsInvalidJSON(t *testing.T) {
	ack := &fakeAcknowledger{}
	handleDelivery(context.Background(), fakeProcessor{}, delivery(t, ack, "{bad-json", false))
	expectSettlement(t, ack, settlement{kind: "reject"})
}

func TestWorkerRejectsMissingID(t *testing.T) {
	ack := &fakeAcknowledger{}
	handleDelivery(context.Background(), fakeProcessor{}, delivery(t, ack, `{"requestId":"r"}`, false))
	expectSettlement(t, ack, settlement{kind: "reject"})
}

func TestWorkerRequeuesRetryableOnce(t *testing.T) {
	retryable := fakeProcessor{err: &engine.Error{Kind: engine.KindTimeout, Retryable: true}}

	ack := &fakeAcknowledger{}
	handleDelivery(context.Background(), retryable, delivery(t, ack, encoded(t, "analysis-2"), false))
	expectSettlement(t, ack, settlement{kind: "nack", requeue: true})

	ack = &fakeAcknowledger{}
	handleDelivery(context.Background(), retryable, delivery(t, ack, encoded(t, "analysis-2"), true))
	expectSettlement(t, ack, settlement{kind: "nack", requeue: false})
}

func TestWorkerDropsPermanentFailure(t *testing.T) {
	ack := &fakeAcknowledger{}
	handleDelivery(context.Background(), fakeProcessor{err: analyses.ErrNotFound}, delivery(t, ack, encoded(t, "analysis-3"), false))
	expectSettlement(t, ack, settlement{kind: "nack", requeue: false})

	ack = &fakeAcknowledger{}
	handleDelivery(context.Background(), fakeProcessor{err: errors.New("boom")}, delivery(t, ack, encoded(t, "analysis-3"), false))
	expectSettlement(t, ack, settlement{kind: "nack", requeue: false})
}
