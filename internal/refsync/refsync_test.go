package refsync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Rana718/Portal/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type created struct {
	group, tableColumnID, order int
}

type fakeStore struct {
	mu        sync.Mutex
	groups    []types.ReferenceGroup
	creates   []created
	updates   []types.Reference
	updateErr error
}

func (f *fakeStore) References(context.Context, int) ([]types.ReferenceGroup, error) {
	return f.groups, nil
}

func (f *fakeStore) CreateReference(_ context.Context, group, tableColumnID, order int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, created{group, tableColumnID, order})
	return nil
}

func (f *fakeStore) UpdateReference(_ context.Context, ref types.Reference) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, ref)
	return nil
}

func (f *fakeStore) updateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.updates)
}

const (
	refA = 101
	refB = 102
	refC = 103
	refD = 104
)

func newTestSync(t *testing.T, opts ...Option) (*Synchronizer, *fakeStore) {
	t.Helper()
	store := &fakeStore{groups: []types.ReferenceGroup{
		{WidgetColumnID: 1, Alias: "Main", References: []types.Reference{
			{TableColumnID: refC, RefColumnOrder: 2, Width: 80},
			{TableColumnID: refA, RefColumnOrder: 0, Width: 100, Visible: true},
			{TableColumnID: refB, RefColumnOrder: 1},
		}},
		{WidgetColumnID: 2, Alias: "Extra", References: []types.Reference{
			{TableColumnID: refD, RefColumnOrder: 0},
		}},
	}}
	s := New(store, opts...)
	require.NoError(t, s.Load(context.Background(), 7))
	return s, store
}

func order(refs []types.Reference) []int {
	out := make([]int, len(refs))
	for i, r := range refs {
		out[i] = r.TableColumnID
	}
	return out
}

func TestLoadOrdersByRefColumnOrder(t *testing.T) {
	s, _ := newTestSync(t)

	assert.Equal(t, []int{refA, refB, refC}, order(s.Items(1)))
	assert.Equal(t, 1, s.Items(1)[0].WidgetColumnID)
	assert.False(t, s.Pending())

	groups := s.Groups()
	require.Len(t, groups, 2)
	assert.Equal(t, "Main", groups[0].Alias)
}

func TestReorderIssuesOnlyMovedItems(t *testing.T) {
	s, store := newTestSync(t)

	require.True(t, s.Move(1, 0, 1, 1))
	assert.Equal(t, []int{refB, refA, refC}, order(s.Items(1)))
	assert.True(t, s.Pending())

	require.NoError(t, s.Flush(context.Background()))

	assert.Empty(t, store.creates)
	require.Len(t, store.updates, 2)
	assert.Equal(t, refB, store.updates[0].TableColumnID)
	assert.Equal(t, 0, store.updates[0].RefColumnOrder)
	assert.Equal(t, refA, store.updates[1].TableColumnID)
	assert.Equal(t, 1, store.updates[1].RefColumnOrder)
	assert.Equal(t, 100, store.updates[1].Width, "reorders carry the full item")
	assert.False(t, s.Pending())

	require.NoError(t, s.Flush(context.Background()))
	assert.Len(t, store.updates, 2, "a clean baseline issues nothing")
}

func TestCrossGroupMoveCreatesWithoutDeleting(t *testing.T) {
	s, store := newTestSync(t)

	require.True(t, s.Move(1, 0, 2, 1))
	assert.Equal(t, []int{refB, refC}, order(s.Items(1)))
	assert.Equal(t, []int{refD, refA}, order(s.Items(2)))
	assert.Equal(t, 2, s.Items(2)[1].WidgetColumnID)

	require.NoError(t, s.Flush(context.Background()))

	assert.Equal(t, []created{{group: 2, tableColumnID: refA, order: 1}}, store.creates)
	var reordered []int
	for _, u := range store.updates {
		reordered = append(reordered, u.TableColumnID)
	}
	assert.Equal(t, []int{refB, refC}, reordered)
}

func TestDuplicateMoveIsRejected(t *testing.T) {
	s, store := newTestSync(t)
	require.True(t, s.Move(2, 0, 1, 0))

	require.NoError(t, s.Flush(context.Background()))
	store.creates = nil
	store.updates = nil

	s.mu.Lock()
	s.groups[2] = []types.Reference{{TableColumnID: refA, WidgetColumnID: 2}}
	s.snapshot[2] = []int{refA}
	s.mu.Unlock()

	assert.False(t, s.Move(1, 1, 2, 0), "refA already lives in group 2")
	assert.Equal(t, []int{refD, refA, refB, refC}, order(s.Items(1)))
	assert.False(t, s.Move(1, 9, 2, 0))
	assert.False(t, s.Move(1, 0, 42, 0))

	require.NoError(t, s.Flush(context.Background()))
	assert.Empty(t, store.creates)
	assert.Empty(t, store.updates)
}

func TestRunCoalescesBursts(t *testing.T) {
	s, store := newTestSync(t, WithDebounce(30*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.True(t, s.Move(1, 0, 1, 2))
	require.True(t, s.Move(1, 0, 1, 1))
	assert.Equal(t, []int{refC, refB, refA}, order(s.Items(1)))

	require.Eventually(t, func() bool { return store.updateCount() == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, 2, store.updateCount())

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestFailedPassKeepsBaseline(t *testing.T) {
	s, store := newTestSync(t)
	store.updateErr = errors.New("unavailable")

	require.True(t, s.Move(1, 2, 1, 0))
	err := s.Flush(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, store.updateErr)
	assert.True(t, s.Pending())

	store.updateErr = nil
	require.NoError(t, s.Flush(context.Background()))
	assert.Len(t, store.updates, 3)
	assert.False(t, s.Pending())
}

func TestUpdateAppliesOptimistically(t *testing.T) {
	s, store := newTestSync(t)
	ctx := context.Background()

	require.NoError(t, s.Update(ctx, 1, refA, func(r *types.Reference) { r.Width = 240 }))
	assert.Equal(t, 240, s.Items(1)[0].Width)
	require.Len(t, store.updates, 1)
	assert.Equal(t, 240, store.updates[0].Width)

	store.updateErr = errors.New("forbidden")
	err := s.Update(ctx, 1, refA, func(r *types.Reference) { r.Visible = false })
	require.Error(t, err)
	assert.True(t, s.Items(1)[0].Visible, "failed write is rolled back")

	assert.Error(t, s.Update(ctx, 1, 999, func(*types.Reference) {}))
}
