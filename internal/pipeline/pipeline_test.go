package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sanspareilsmyn/profilelens/internal/config"
	"github.com/sanspareilsmyn/profilelens/internal/expression"
	"github.com/sanspareilsmyn/profilelens/internal/profile"
	"github.com/sanspareilsmyn/profilelens/internal/profiler"
)

const testProfiles = `
profiles:
  - profile: bytes-out
    foreach: ip_src_addr
    onlyif: exists(bytes)
    init:
      total: "0"
    update:
      total: total + bytes
    result: total
`

func newTestPipeline(t *testing.T, reader *fakeReader, writer *fakeWriter) *Pipeline {
	t.Helper()
	logger := zaptest.NewLogger(t)

	profiles, err := profile.ParseProfilerConfig([]byte(testProfiles))
	require.NoError(t, err)

	p := newChannels(logger)
	err = p.wire(
		newConsumer(reader, p.rawMessages, logger),
		newEmitter(writer, p.measurements, logger),
		profiles,
		profiler.Options{
			PeriodDuration: time.Hour,
			TTL:            time.Hour,
			Evaluator:      expression.NewExprEvaluator(),
		},
	)
	require.NoError(t, err)
	return p
}

func TestPipelineProfilesUntilInputIsExhausted(t *testing.T) {
	reader := &fakeReader{payloads: [][]byte{
		[]byte(`{"ip_src_addr":"10.0.0.1","bytes":100}`),
		[]byte(`not json`),
		[]byte(`{"ip_src_addr":"10.0.0.1","bytes":250}`),
		[]byte(`{"ip_src_addr":"10.0.0.2","bytes":7}`),
		[]byte(`{"ip_src_addr":"10.0.0.3"}`),
	}}
	writer := &fakeWriter{}
	p := newTestPipeline(t, reader, writer)

	require.NoError(t, p.Run(context.Background()))
	assert.True(t, reader.closed)
	assert.True(t, writer.closed)

	msgs := writer.written()
	require.Len(t, msgs, 2)

	totals := make(map[string]float64)
	for _, m := range msgs {
		var env map[string]any
		require.NoError(t, json.Unmarshal(m.Value, &env))
		assert.Equal(t, "bytes-out", env["profile"])
		totals[string(m.Key)] = env["value"].(float64)
	}
	assert.Equal(t, map[string]float64{"10.0.0.1": 350, "10.0.0.2": 7}, totals)
}

func TestPipelineReportsConsumerFailure(t *testing.T) {
	reader := &fakeReader{
		payloads: [][]byte{[]byte(`{"ip_src_addr":"10.0.0.1","bytes":100}`)},
		err:      errors.New("group coordinator not available"),
	}
	writer := &fakeWriter{}
	p := newTestPipeline(t, reader, writer)

	err := p.Run(context.Background())
	assert.ErrorIs(t, err, ErrConsumerRunFailed)
	assert.ErrorIs(t, err, ErrKafkaFetchFailed)
	assert.True(t, writer.closed)
}

func TestNewPipelineValidation(t *testing.T) {
	profiles := &profile.ProfilerConfig{}
	opts := profiler.Options{PeriodDuration: time.Minute, TTL: time.Minute, Evaluator: expression.NewExprEvaluator()}

	_, err := New(&config.Config{}, profiles, opts, zaptest.NewLogger(t))
	assert.ErrorIs(t, err, ErrEmitterCreationFailed)
	assert.ErrorIs(t, err, ErrInvalidKafkaConfig)

	cfg := &config.Config{Kafka: config.KafkaConfig{
		Brokers:     []string{"localhost:9092"},
		OutputTopic: "profiles",
	}}
	_, err = New(cfg, profiles, opts, zaptest.NewLogger(t))
	assert.ErrorIs(t, err, ErrConsumerCreationFailed)
}

func TestWireRejectsInvalidRunnerOptions(t *testing.T) {
	logger := zaptest.NewLogger(t)
	p := newChannels(logger)

	err := p.wire(
		newConsumer(&fakeReader{}, p.rawMessages, logger),
		newEmitter(&fakeWriter{}, p.measurements, logger),
		&profile.ProfilerConfig{},
		profiler.Options{PeriodDuration: time.Minute, TTL: time.Minute},
	)
	assert.ErrorIs(t, err, ErrRunnerCreationFailed)
	assert.ErrorIs(t, err, profiler.ErrMissingEvaluator)
}

func TestParserLogsCancellationCause(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	p := newChannels(zap.New(core))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	p.runParser(ctx, &wg)

	_, open := <-p.parsedMessages
	assert.False(t, open)

	entries := logs.FilterMessage("Parser context cancelled while waiting for raw message.").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "pipeline.parser", entries[0].LoggerName)
	assert.Equal(t, context.Canceled.Error(), entries[0].ContextMap()["error"])
}
