package retry

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFlaky = errors.New("flaky")

type recorder struct {
	waits []time.Duration
}

func (r *recorder) sleep(ctx context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return ctx.Err()
}

func testPolicy(buf *bytes.Buffer, rec *recorder, attempts int, b Backoff) Policy {
	return Policy{
		Name:        "test",
		MaxAttempts: attempts,
		Backoff:     b,
		Logger:      slog.New(slog.NewJSONHandler(buf, nil)),
		Sleep:       rec.sleep,
	}
}

func countLines(buf *bytes.Buffer) int {
	s := strings.TrimSpace(buf.String())
	if s == "" {
		return 0
	}
	return len(strings.Split(s, "\n"))
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	var buf bytes.Buffer
	rec := &recorder{}
	calls := 0

	v, err := Do(context.Background(), testPolicy(&buf, rec, 5, Doubling(time.Second)), func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errFlaky
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, countLines(&buf))
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, rec.waits)
	assert.Contains(t, buf.String(), `"attempt":1`)
	assert.Contains(t, buf.String(), `"wait":"2s"`)
}

func TestDoStopsAtMaxAttempts(t *testing.T) {
	var buf bytes.Buffer
	rec := &recorder{}
	calls := 0

	_, err := Do(context.Background(), testPolicy(&buf, rec, 3, Doubling(time.Second)), func(context.Context) (int, error) {
		calls++
		return 0, errFlaky
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, errFlaky)
	assert.Contains(t, err.Error(), "failed after 3 attempts")
	assert.Equal(t, 3, calls)
	assert.Len(t, rec.waits, 2)
	assert.Equal(t, 2, countLines(&buf))
}

func TestDoPermanentErrorStopsImmediately(t *testing.T) {
	var buf bytes.Buffer
	rec := &recorder{}
	calls := 0

	_, err := Do(context.Background(), testPolicy(&buf, rec, 5, Power(5)), func(context.Context) (int, error) {
		calls++
		return 0, Permanent(errFlaky)
	})

	require.Error(t, err)
	assert.True(t, IsPermanent(err))
	assert.ErrorIs(t, err, errFlaky)
	assert.Equal(t, 1, calls)
	assert.Empty(t, rec.waits)
}

func TestDoContextCancelledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	p := Policy{
		Name:        "test",
		MaxAttempts: 5,
		Backoff:     Power(5),
		Logger:      slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
		Sleep: func(ctx context.Context, _ time.Duration) error {
			cancel()
			return ctx.Err()
		},
	}

	_, err := Do(ctx, p, func(context.Context) (int, error) {
		calls++
		return 0, errFlaky
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, errFlaky)
	assert.Equal(t, 1, calls)
}

func TestBackoffSchedules(t *testing.T) {
	d := Doubling(time.Second)
	assert.Equal(t, time.Second, d(1))
	assert.Equal(t, 2*time.Second, d(2))
	assert.Equal(t, 4*time.Second, d(3))

	p := Power(5)
	assert.Equal(t, 5*time.Second, p(1))
	assert.Equal(t, 25*time.Second, p(2))
	assert.Equal(t, 125*time.Second, p(3))
}

func TestIngestionPolicies(t *testing.T) {
	dl := DownloadPolicy(nil)
	assert.Equal(t, 3, dl.MaxAttempts)
	assert.Equal(t, time.Second, dl.Backoff(1))
	assert.Equal(t, 2*time.Second, dl.Backoff(2))

	em := EmbedPolicy(nil)
	assert.Equal(t, 5, em.MaxAttempts)
	assert.Equal(t, 5*time.Second, em.Backoff(1))
}

func TestPermanentNil(t *testing.T) {
	assert.NoError(t, Permanent(nil))
	assert.False(t, IsPermanent(errFlaky))
}
