package relay

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatrelay/internal/upstream"
)

// fakeUpstream scripts the provider: StartRun reports statuses[0], each
// GetRun reports the next status in the script.
type fakeUpstream struct {
	statuses []upstream.RunStatus
	next     int
	messages []upstream.Message

	appended  []string
	polls     int
	listCalls int

	appendErr error
	startErr  error

	streamFn func(ctx context.Context, turns []upstream.Turn) (upstream.TokenStream, error)
	turns    []upstream.Turn
}

func (f *fakeUpstream) CreateThread(ctx context.Context) (string, error) {
	return "thread_new", nil
}

func (f *fakeUpstream) AddUserMessage(ctx context.Context, threadID, text string) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appended = append(f.appended, text)
	return nil
}

func (f *fakeUpstream) StartRun(ctx context.Context, threadID, assistantID string) (upstream.Run, error) {
	if f.startErr != nil {
		return upstream.Run{}, f.startErr
	}
	status := upstream.RunQueued
	if len(f.statuses) > 0 {
		status = f.statuses[0]
		f.next = 1
	}
	return upstream.Run{ID: "run_1", ThreadID: threadID, Status: status}, nil
}

func (f *fakeUpstream) GetRun(ctx context.Context, threadID, runID string) (upstream.Run, error) {
	f.polls++
	status := upstream.RunQueued
	if f.next < len(f.statuses) {
		status = f.statuses[f.next]
		f.next++
	} else if len(f.statuses) > 0 {
		status = f.statuses[len(f.statuses)-1]
	}
	return upstream.Run{ID: runID, ThreadID: threadID, Status: status}, nil
}

func (f *fakeUpstream) ListMessages(ctx context.Context, threadID string, limit int) ([]upstream.Message, error) {
	f.listCalls++
	return f.messages, nil
}

func (f *fakeUpstream) StreamReply(ctx context.Context, turns []upstream.Turn) (upstream.TokenStream, error) {
	f.turns = turns
	if f.streamFn != nil {
		return f.streamFn(ctx, turns)
	}
	return nil, errors.New("no stream scripted")
}

// newTestCoordinator wires a coordinator to a fake clock: every sleep
// advances time by the requested duration, so poll loops run instantly.
func newTestCoordinator(f *fakeUpstream, cfg CoordinatorConfig) *Coordinator {
	c := NewCoordinator(f, cfg)
	now := time.Unix(1700000000, 0)
	c.now = func() time.Time { return now }
	c.sleep = func(ctx context.Context, d time.Duration) error {
		now = now.Add(d)
		return ctx.Err()
	}
	return c
}

func TestRunTurn_PollsToCompletion(t *testing.T) {
	f := &fakeUpstream{
		statuses: []upstream.RunStatus{upstream.RunQueued, upstream.RunInProgress, upstream.RunInProgress, upstream.RunCompleted},
		messages: []upstream.Message{
			{ID: "msg_2", Role: "assistant", Segments: []string{"  Hello", "world  "}},
			{ID: "msg_1", Role: "user", Segments: []string{"hi"}},
		},
	}
	c := newTestCoordinator(f, CoordinatorConfig{AssistantID: "asst_1"})

	reply, err := c.RunTurn(context.Background(), "thread_1", "hi", "")
	require.NoError(t, err)
	assert.Equal(t, "Hello\nworld", reply)
	assert.Equal(t, []string{"hi"}, f.appended)
	assert.Equal(t, 3, f.polls)
}

func TestRunTurn_TakesNewestAssistantMessage(t *testing.T) {
	f := &fakeUpstream{
		statuses: []upstream.RunStatus{upstream.RunCompleted},
		messages: []upstream.Message{
			{ID: "msg_4", Role: "user", Segments: []string{"and this?"}},
			{ID: "msg_3", Role: "assistant", Segments: []string{"newest reply"}},
			{ID: "msg_2", Role: "assistant", Segments: []string{"older reply"}},
		},
	}
	c := newTestCoordinator(f, CoordinatorConfig{AssistantID: "asst_1"})

	reply, err := c.RunTurn(context.Background(), "thread_1", "and this?", "")
	require.NoError(t, err)
	assert.Equal(t, "newest reply", reply)
}

func TestRunTurn_ExtractionIsIdempotent(t *testing.T) {
	f := &fakeUpstream{
		statuses: []upstream.RunStatus{upstream.RunCompleted},
		messages: []upstream.Message{
			{ID: "msg_2", Role: "assistant", Segments: []string{"stable"}},
		},
	}
	c := newTestCoordinator(f, CoordinatorConfig{AssistantID: "asst_1"})

	first, err := c.extractReply(context.Background(), "thread_1")
	require.NoError(t, err)
	second, err := c.extractReply(context.Background(), "thread_1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 2, f.listCalls)
}

func TestRunTurn_FailedRun(t *testing.T) {
	f := &fakeUpstream{
		statuses: []upstream.RunStatus{upstream.RunQueued, upstream.RunInProgress, upstream.RunInProgress, upstream.RunFailed},
	}
	c := newTestCoordinator(f, CoordinatorConfig{AssistantID: "asst_1"})

	_, err := c.RunTurn(context.Background(), "thread_1", "hi", "")
	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, upstream.RunFailed, runErr.Status)
	assert.Equal(t, "failed", ClientMessage(err))
	assert.Zero(t, f.listCalls, "no reply must be fabricated for a failed run")
}

func TestRunTurn_Timeout(t *testing.T) {
	f := &fakeUpstream{
		statuses: []upstream.RunStatus{upstream.RunQueued},
	}
	c := newTestCoordinator(f, CoordinatorConfig{
		AssistantID:  "asst_1",
		PollInterval: time.Second,
		PollTimeout:  3 * time.Second,
	})

	_, err := c.RunTurn(context.Background(), "thread_1", "hi", "")
	require.ErrorIs(t, err, ErrRunTimeout)
	assert.LessOrEqual(t, f.polls, 3, "poll attempts must stay within the budget")
}

func TestRunTurn_EmptyReplySentinel(t *testing.T) {
	f := &fakeUpstream{
		statuses: []upstream.RunStatus{upstream.RunCompleted},
		messages: []upstream.Message{
			{ID: "msg_1", Role: "user", Segments: []string{"hi"}},
		},
	}
	c := newTestCoordinator(f, CoordinatorConfig{AssistantID: "asst_1"})

	reply, err := c.RunTurn(context.Background(), "thread_1", "hi", "")
	require.NoError(t, err)
	assert.Empty(t, reply)
}

func TestRunTurn_MissingAssistantConfiguration(t *testing.T) {
	f := &fakeUpstream{}
	c := newTestCoordinator(f, CoordinatorConfig{})

	_, err := c.RunTurn(context.Background(), "thread_1", "hi", "")
	require.ErrorIs(t, err, ErrConfiguration)
	assert.Empty(t, f.appended, "no upstream call before configuration is resolved")
}

func TestRunTurn_SuppliedAssistantWins(t *testing.T) {
	f := &fakeUpstream{statuses: []upstream.RunStatus{upstream.RunCancelled}}
	c := newTestCoordinator(f, CoordinatorConfig{AssistantID: "asst_default"})

	_, err := c.RunTurn(context.Background(), "thread_1", "hi", "asst_override")
	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, upstream.RunCancelled, runErr.Status)
}

func TestRunTurn_AppendFailurePropagates(t *testing.T) {
	f := &fakeUpstream{appendErr: errors.New("boom")}
	c := newTestCoordinator(f, CoordinatorConfig{AssistantID: "asst_1"})

	_, err := c.RunTurn(context.Background(), "thread_1", "hi", "")
	require.Error(t, err)
	assert.Equal(t, "upstream request failed", ClientMessage(err))
}
