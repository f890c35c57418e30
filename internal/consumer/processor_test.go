package consumer

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"example.com/gardenlog/internal/platform/logger"
)

func framed(schemaID int, payload []byte) []byte {
	value := make([]byte, 5+len(payload))
	value[0] = 0
	binary.BigEndian.PutUint32(value[1:5], uint32(schemaID))
	copy(value[5:], payload)
	return value
}

func TestProcessorCommitsOnSuccess(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	payload := []byte(`{"space_id":"abc"}`)
	msg := kafka.Message{
		Topic:     "garden_records",
		Partition: 0,
		Offset:    10,
		Time:      time.Now().UTC(),
		Value:     framed(42, payload),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("space.created")},
			{Key: "user_id", Value: []byte("user-1")},
			{Key: "schema_subject", Value: []byte("garden_records-space_created-value")},
		},
	}

	reader := &stubReader{
		messages: []kafka.Message{msg},
		after:    contextCanceled,
	}
	handler := &stubHandler{}

	committed := messagesTotal.WithLabelValues("garden_records", "space.created", outcomeCommitted)
	before := testutil.ToFloat64(committed)

	processor := NewProcessor(reader, handler, WithLogger(logger.Nop()))

	err := processor.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.InDelta(t, before+1, testutil.ToFloat64(committed), 0.0001)
	require.Equal(t, float64(msg.Time.Unix()), testutil.ToFloat64(eventWatermark.WithLabelValues("garden_records")))

	require.Equal(t, 1, handler.calls)
	require.Equal(t, 1, reader.commitCalls)
	require.Equal(t, "space.created", handler.last.EventType)
	require.Equal(t, "user-1", handler.last.UserID)
	require.Equal(t, "garden_records-space_created-value", handler.last.SchemaSubject)
	require.Equal(t, 42, handler.last.SchemaID)
	require.JSONEq(t, string(payload), string(handler.last.Payload))
}

func completedTaskMessage(offset int64) kafka.Message {
	return kafka.Message{
		Topic:  "garden_tasks",
		Offset: offset,
		Time:   time.Now().UTC(),
		Value:  framed(99, []byte(`{"task_id":"def"}`)),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("task.completed")},
			{Key: "user_id", Value: []byte("user-2")},
		},
	}
}

func TestProcessorStopsWithoutCommitWhenHandlerKeepsFailing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &stubReader{
		messages: []kafka.Message{completedTaskMessage(20), completedTaskMessage(21)},
		after:    contextCanceled,
	}
	handler := &stubHandler{err: errors.New("boom")}
	failed := messagesTotal.WithLabelValues("garden_tasks", "task.completed", outcomeHandlerError)
	before := testutil.ToFloat64(failed)

	processor := NewProcessor(reader, handler, WithRetries(3, 0))

	err := processor.Run(ctx)
	require.ErrorContains(t, err, "boom")
	require.ErrorContains(t, err, "offset 20")
	require.NotErrorIs(t, err, context.Canceled)
	require.InDelta(t, before+1, testutil.ToFloat64(failed), 0.0001)

	require.Equal(t, 3, handler.calls)
	require.Equal(t, 0, reader.commitCalls)
	require.Equal(t, 1, reader.index, "the next offset is never fetched past a failed one")
}

func TestProcessorRetriesTransientHandlerErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &stubReader{
		messages: []kafka.Message{completedTaskMessage(30)},
		after:    contextCanceled,
	}
	handler := &stubHandler{failFirst: 2}

	err := NewProcessor(reader, handler, WithRetries(3, time.Millisecond)).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 3, handler.calls)
	require.Equal(t, 1, reader.commitCalls)
}

func TestProcessorStopsRetryingWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	reader := &stubReader{messages: []kafka.Message{completedTaskMessage(40)}}
	handler := &stubHandler{err: errors.New("boom"), onCall: cancel}

	err := NewProcessor(reader, handler, WithRetries(5, time.Hour)).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, handler.calls)
	require.Equal(t, 0, reader.commitCalls)
}

func TestProcessorCommitsMalformedMessages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &stubReader{
		messages: []kafka.Message{
			{Topic: "garden_records", Value: []byte{0, 1}},
			{Topic: "garden_records", Value: framed(1, []byte(`{}`))},
		},
		after: contextCanceled,
	}
	handler := &stubHandler{}
	dropped := messagesTotal.WithLabelValues("garden_records", "unknown", outcomeDecodeError)
	before := testutil.ToFloat64(dropped)

	err := NewProcessor(reader, handler).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.InDelta(t, before+2, testutil.ToFloat64(dropped), 0.0001)

	require.Zero(t, handler.calls, "short values and missing event_type never reach the handler")
	require.Equal(t, 2, reader.commitCalls)
}

func TestHandlersRunEveryHandlerAndJoinErrors(t *testing.T) {
	first := &stubHandler{err: errors.New("first failed")}
	second := &stubHandler{}
	third := &stubHandler{err: errors.New("third failed")}

	err := Handlers{first, second, third}.Handle(context.Background(), Message{EventType: "note.created"})
	require.ErrorContains(t, err, "first failed")
	require.ErrorContains(t, err, "third failed")
	require.Equal(t, 1, first.calls)
	require.Equal(t, 1, second.calls)
	require.Equal(t, 1, third.calls)

	require.NoError(t, Handlers{second}.Handle(context.Background(), Message{}))
}

type stubReader struct {
	messages    []kafka.Message
	index       int
	commitCalls int
	after       func() error
}

func (r *stubReader) FetchMessage(context.Context) (kafka.Message, error) {
	if r.index >= len(r.messages) {
		if r.after != nil {
			return kafka.Message{}, r.after()
		}
		return kafka.Message{}, context.Canceled
	}
	msg := r.messages[r.index]
	r.index++
	return msg, nil
}

func (r *stubReader) CommitMessages(_ context.Context, _ ...kafka.Message) error {
	r.commitCalls++
	return nil
}

func (r *stubReader) Close() error { return nil }

func contextCanceled() error { return context.Canceled }

type stubHandler struct {
	calls     int
	err       error
	failFirst int
	onCall    func()
	last      Message
}

func (h *stubHandler) Handle(_ context.Context, msg Message) error {
	h.calls++
	h.last = msg
	if h.onCall != nil {
		h.onCall()
	}
	if h.calls <= h.failFirst {
		return errors.New("transient")
	}
	return h.err
}
