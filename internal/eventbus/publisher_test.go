package eventbus

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeJetStream overrides the few JetStream calls the publisher makes.
type fakeJetStream struct {
	nats.JetStreamContext
	streams   map[string]*nats.StreamConfig
	published []*nats.Msg
}

func (f *fakeJetStream) StreamInfo(name string, _ ...nats.JSOpt) (*nats.StreamInfo, error) {
	cfg, ok := f.streams[name]
	if !ok {
		return nil, nats.ErrStreamNotFound
	}
	return &nats.StreamInfo{Config: *cfg}, nil
}

func (f *fakeJetStream) AddStream(cfg *nats.StreamConfig, _ ...nats.JSOpt) (*nats.StreamInfo, error) {
	if f.streams == nil {
		f.streams = map[string]*nats.StreamConfig{}
	}
	f.streams[cfg.Name] = cfg
	return &nats.StreamInfo{Config: *cfg}, nil
}

func (f *fakeJetStream) PublishMsg(m *nats.Msg, _ ...nats.PubOpt) (*nats.PubAck, error) {
	f.published = append(f.published, m)
	return &nats.PubAck{Stream: StreamName, Sequence: uint64(len(f.published))}, nil
}

func TestNewJetStreamPublisher_CreatesStreamOnce(t *testing.T) {
	js := &fakeJetStream{}

	_, err := NewJetStreamPublisher(js, zap.NewNop())
	require.NoError(t, err)
	require.Contains(t, js.streams, StreamName)
	assert.Equal(t, []string{"promptforge.>"}, js.streams[StreamName].Subjects)

	_, err = NewJetStreamPublisher(js, zap.NewNop())
	require.NoError(t, err)
	assert.Len(t, js.streams, 1)
}

func TestNewJetStreamPublisher_NilContext(t *testing.T) {
	_, err := NewJetStreamPublisher(nil, zap.NewNop())

	assert.Error(t, err)
}

func TestPublish_WrapsPayloadInEnvelope(t *testing.T) {
	js := &fakeJetStream{}
	pub, err := NewJetStreamPublisher(js, zap.NewNop())
	require.NoError(t, err)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	pub.now = func() time.Time { return fixed }

	err = pub.Publish(context.Background(), SubjectSummaryCompleted, map[string]int{"summary_length": 42})
	require.NoError(t, err)

	require.Len(t, js.published, 1)
	msg := js.published[0]
	assert.Equal(t, SubjectSummaryCompleted, msg.Subject)

	var evt Event
	require.NoError(t, json.Unmarshal(msg.Data, &evt))
	assert.Equal(t, evt.ID, msg.Header.Get(nats.MsgIdHdr))
	assert.Equal(t, fixed, evt.Timestamp)
	assert.JSONEq(t, `{"summary_length":42}`, string(evt.Data))
}

func TestNopPublisher(t *testing.T) {
	assert.NoError(t, NopPublisher{}.Publish(context.Background(), "x", nil))
}
