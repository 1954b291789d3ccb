package workspace

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"gigdesk/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type msgErr struct{ msg string }

func (e msgErr) Error() string         { return "request failed with status 422" }
func (e msgErr) ServerMessage() string { return e.msg }

func TestLoad_WithoutOwnerFailsFast(t *testing.T) {
	src := &fakeSource{snap: snapOf(widget{ID: "1"})}
	c := New(src.fetch, Config{Name: "events"})

	err := c.Load(context.Background(), nil)
	require.ErrorIs(t, err, ErrOwnerRequired)

	st := c.State()
	assert.False(t, st.Loading)
	assert.Nil(t, st.Snapshot)
	assert.Equal(t, "userId is required", st.Error)
	assert.Equal(t, 0, src.callCount(), "no network call expected")
}

func TestLoad_FailureKeepsPreviousSnapshot(t *testing.T) {
	src := &fakeSource{snap: snapOf(widget{ID: "1", Name: "a"})}
	c := newLoaded(t, src, Config{})

	src.mu.Lock()
	src.err = errors.New("dial tcp: connection refused")
	src.mu.Unlock()

	err := c.Refresh(context.Background())
	require.Error(t, err)

	st := c.State()
	assert.False(t, st.Loading)
	assert.Equal(t, "dial tcp: connection refused", st.Error)
	require.NotNil(t, st.Snapshot)
	assert.Len(t, st.Snapshot.Entities, 1)
	assert.Equal(t, 2, src.callCount(), "no retry on failure")
}

func TestLoad_RefreshReusesParams(t *testing.T) {
	src := &fakeSource{snap: snapOf()}
	c := New(src.fetch, Config{Owner: "u-1"})

	params := url.Values{"status": {"scheduled"}}
	require.NoError(t, c.Load(context.Background(), params))
	params.Set("status", "mutated-by-caller")
	require.NoError(t, c.Refresh(context.Background()))

	src.mu.Lock()
	defer src.mu.Unlock()
	assert.Equal(t, "scheduled", src.last.Get("status"))
}

func TestLoad_NewerLoadSupersedesOlder(t *testing.T) {
	src := &fakeSource{snap: snapOf(widget{ID: "old"}), block: make(chan struct{})}
	c := New(src.fetch, Config{Owner: "u-1"})

	firstDone := make(chan error, 1)
	go func() { firstDone <- c.Load(context.Background(), url.Values{"q": {"first"}}) }()

	require.Eventually(t, func() bool { return src.callCount() == 1 }, time.Second, time.Millisecond)

	src.mu.Lock()
	src.block = nil
	src.snap = snapOf(widget{ID: "new"})
	src.mu.Unlock()

	require.NoError(t, c.Load(context.Background(), url.Values{"q": {"second"}}))
	require.ErrorIs(t, <-firstDone, ErrSuperseded)

	st := c.State()
	require.NotNil(t, st.Snapshot)
	assert.Equal(t, []widget{{ID: "new"}}, st.Snapshot.Entities)
	assert.False(t, st.Loading)
	assert.Empty(t, st.Error)
}

func TestClose_CancelsInflightLoad(t *testing.T) {
	src := &fakeSource{snap: snapOf(), block: make(chan struct{})}
	c := New(src.fetch, Config{Owner: "u-1"})

	done := make(chan error, 1)
	go func() { done <- c.Load(context.Background(), nil) }()
	require.Eventually(t, c.Loading, time.Second, time.Millisecond)

	c.Close()
	require.ErrorIs(t, <-done, ErrSuperseded)
	assert.False(t, c.Loading())
}

func TestMutate_CreateMergesAndRefreshesOnce(t *testing.T) {
	src := &fakeSource{snap: snapOf(widget{ID: "1", Name: "first"})}
	refreshes := 0
	c := newLoaded(t, src, Config{OnRefresh: func(context.Context) error { refreshes++; return nil }})

	err := c.Mutate(context.Background(), func(context.Context) (Result[widget], error) {
		return Upserted(widget{ID: "7", Name: "created"}), nil
	}, MutateOptions{SuccessMessage: "Created"})
	require.NoError(t, err)

	st := c.State()
	want := []widget{{ID: "7", Name: "created"}, {ID: "1", Name: "first"}}
	if diff := cmp.Diff(want, st.Snapshot.Entities); diff != "" {
		t.Fatalf("entities mismatch (-want +got):\n%s", diff)
	}
	require.NotNil(t, st.Feedback)
	assert.Equal(t, ToneSuccess, st.Feedback.Tone)
	assert.Equal(t, "Created", st.Feedback.Message)
	assert.Equal(t, 1, refreshes)
	assert.False(t, st.Busy)
}

func TestMutate_UpdateReplacesInPlace(t *testing.T) {
	src := &fakeSource{snap: snapOf(widget{ID: "1", Name: "a"}, widget{ID: "2", Name: "b"})}
	c := newLoaded(t, src, Config{OnRefresh: func(context.Context) error { return nil }})

	require.NoError(t, c.Mutate(context.Background(), func(context.Context) (Result[widget], error) {
		return Upserted(widget{ID: "2", Name: "b2"}), nil
	}, MutateOptions{}))

	assert.Equal(t, []widget{{ID: "1", Name: "a"}, {ID: "2", Name: "b2"}}, c.Entities())
}

func TestMutate_DefaultRefreshRefetches(t *testing.T) {
	src := &fakeSource{snap: snapOf(widget{ID: "1"})}
	c := newLoaded(t, src, Config{})

	src.mu.Lock()
	src.snap = snapOf(widget{ID: "1"}, widget{ID: "server-side"})
	src.mu.Unlock()

	require.NoError(t, c.Mutate(context.Background(), func(context.Context) (Result[widget], error) {
		return Refetch[widget](), nil
	}, MutateOptions{}))

	assert.Equal(t, 2, src.callCount())
	assert.Len(t, c.Entities(), 2)
}

func TestMutate_FailureLeavesSnapshotAndSetsError(t *testing.T) {
	src := &fakeSource{snap: snapOf(widget{ID: "1", Name: "a"})}
	refreshes := 0
	c := newLoaded(t, src, Config{OnRefresh: func(context.Context) error { refreshes++; return nil }})
	before := c.Entities()

	err := c.Mutate(context.Background(), func(context.Context) (Result[widget], error) {
		return Result[widget]{}, msgErr{msg: "Title is required"}
	}, MutateOptions{SuccessMessage: "Saved"})
	require.Error(t, err)

	st := c.State()
	assert.Equal(t, before, st.Snapshot.Entities)
	assert.Equal(t, "Title is required", st.Error)
	require.NotNil(t, st.Feedback)
	assert.Equal(t, ToneError, st.Feedback.Tone)
	assert.Zero(t, refreshes)
}

func TestMutate_RemovedAndPatched(t *testing.T) {
	src := &fakeSource{snap: snapOf(widget{ID: "1", Name: "a"}, widget{ID: "2", Name: "b"})}
	c := newLoaded(t, src, Config{OnRefresh: func(context.Context) error { return nil }})
	require.True(t, c.Select("2"))

	require.NoError(t, c.Mutate(context.Background(), func(context.Context) (Result[widget], error) {
		return Patched[widget]("1", func(w widget) widget { w.Name = "patched"; return w }), nil
	}, MutateOptions{}))
	require.NoError(t, c.Mutate(context.Background(), func(context.Context) (Result[widget], error) {
		return Removed[widget]("2"), nil
	}, MutateOptions{}))

	assert.Equal(t, []widget{{ID: "1", Name: "patched"}}, c.Entities())
	_, ok := c.Selected()
	assert.False(t, ok, "selection must clear when its entity disappears")
	assert.Empty(t, c.State().SelectedID)
}

func TestMutate_ConcurrentCallsStayBusyUntilLast(t *testing.T) {
	src := &fakeSource{snap: snapOf()}
	c := newLoaded(t, src, Config{OnRefresh: func(context.Context) error { return nil }})

	releaseFast := make(chan struct{})
	releaseSlow := make(chan struct{})
	op := func(release chan struct{}, id model.ID) Op[widget] {
		return func(context.Context) (Result[widget], error) {
			<-release
			return Upserted(widget{ID: id}), nil
		}
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); _ = c.Mutate(context.Background(), op(releaseSlow, "slow"), MutateOptions{Label: "slow"}) }()
	go func() { defer wg.Done(); _ = c.Mutate(context.Background(), op(releaseFast, "fast"), MutateOptions{Label: "fast"}) }()

	require.Eventually(t, func() bool { return len(c.State().Pending) == 2 }, time.Second, time.Millisecond)

	close(releaseFast)
	require.Eventually(t, func() bool { return len(c.State().Pending) == 1 }, time.Second, time.Millisecond)
	assert.True(t, c.Busy(), "slow mutation still in flight")

	close(releaseSlow)
	wg.Wait()
	assert.False(t, c.Busy())
	assert.Len(t, c.Entities(), 2)
}

func TestMutate_PanickingOpDoesNotLeaveBusy(t *testing.T) {
	src := &fakeSource{snap: snapOf(widget{ID: "1"})}
	c := newLoaded(t, src, Config{})

	require.Panics(t, func() {
		_ = c.Mutate(context.Background(), func(context.Context) (Result[widget], error) {
			panic("boom")
		}, MutateOptions{Label: "explode"})
	})
	assert.False(t, c.Busy())
	assert.Empty(t, c.State().Pending)

	require.Panics(t, func() {
		_ = c.UpdateSettings(context.Background(), func(context.Context) (map[string]any, error) {
			panic("boom")
		}, MutateOptions{Label: "settings"})
	})
	assert.False(t, c.Busy())
}

func TestRequire_DeniesWithoutPermission(t *testing.T) {
	src := &fakeSource{snap: &Snapshot[widget]{Permissions: Permissions{"view": true}}}
	c := newLoaded(t, src, Config{})

	require.ErrorIs(t, c.Require(PermManage), ErrAccessDenied)
	assert.Equal(t, "access denied: missing management permission", c.Error())
	require.NoError(t, c.Require("view"))
}

func TestUpdateSettings_ReplacesSettings(t *testing.T) {
	src := &fakeSource{snap: &Snapshot[widget]{Settings: map[string]any{"autoReply": false}}}
	refreshes := 0
	c := newLoaded(t, src, Config{OnRefresh: func(context.Context) error { refreshes++; return nil }})

	require.NoError(t, c.UpdateSettings(context.Background(), func(context.Context) (map[string]any, error) {
		return map[string]any{"autoReply": true}, nil
	}, MutateOptions{SuccessMessage: "Settings saved"}))

	st := c.State()
	assert.Equal(t, true, st.Snapshot.Settings["autoReply"])
	assert.Equal(t, 1, refreshes)
}

func TestPutSetting_SetsAndRemovesKeys(t *testing.T) {
	src := &fakeSource{snap: &Snapshot[widget]{Settings: map[string]any{"currency": "NOK"}}}
	c := newLoaded(t, src, Config{OnRefresh: func(context.Context) error { return nil }})

	var saved []map[string]any
	save := func(_ context.Context, owner string, settings map[string]any) (map[string]any, error) {
		assert.Equal(t, "u-1", owner)
		saved = append(saved, settings)
		return settings, nil
	}

	require.NoError(t, c.PutSetting(context.Background(), " reminder ", "1d", save))
	assert.Equal(t, map[string]any{"currency": "NOK", "reminder": "1d"}, c.Settings())

	require.NoError(t, c.PutSetting(context.Background(), "currency", "  ", save))
	assert.Equal(t, map[string]any{"reminder": "1d"}, c.Settings())
	require.Len(t, saved, 2)

	err := c.PutSetting(context.Background(), "", "x", save)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "key", ve.Field)
	assert.Len(t, saved, 2)

	// The copy handed out is not the controller's map.
	c.Settings()["reminder"] = "tampered"
	assert.Equal(t, "1d", c.Settings()["reminder"])
}

func TestPutSetting_DeniedWithoutPermission(t *testing.T) {
	src := &fakeSource{snap: &Snapshot[widget]{Permissions: Permissions{"view": true}}}
	c := newLoaded(t, src, Config{})

	err := c.PutSetting(context.Background(), "currency", "EUR", func(context.Context, string, map[string]any) (map[string]any, error) {
		t.Fatal("save should not run")
		return nil, nil
	})
	require.ErrorIs(t, err, ErrAccessDenied)
}

func TestSelect_UnknownIDYieldsNoSelection(t *testing.T) {
	src := &fakeSource{snap: snapOf(widget{ID: "1"})}
	c := newLoaded(t, src, Config{})

	assert.False(t, c.Select("missing"))
	_, ok := c.Selected()
	assert.False(t, ok)
	assert.Nil(t, c.State().Selected)

	assert.True(t, c.Select("1"))
	sel, ok := c.Selected()
	require.True(t, ok)
	assert.Equal(t, model.ID("1"), sel.ID)
}

func TestSelect_AutoSelectAfterReload(t *testing.T) {
	src := &fakeSource{snap: snapOf(widget{ID: "1"}, widget{ID: "2"})}
	c := newLoaded(t, src, Config{AutoSelect: true})
	assert.Equal(t, model.ID("1"), c.State().SelectedID)

	require.True(t, c.Select("2"))
	src.mu.Lock()
	src.snap = snapOf(widget{ID: "3"})
	src.mu.Unlock()
	require.NoError(t, c.Refresh(context.Background()))

	assert.Equal(t, model.ID("3"), c.State().SelectedID)
}

func TestWizard_Transitions(t *testing.T) {
	c := New((&fakeSource{}).fetch, Config{Owner: "u-1"})

	c.OpenEditWizard(nil)
	assert.False(t, c.Wizard().Open, "edit without target is a no-op")

	c.OpenCreateWizard(&widget{Name: "draft"})
	w := c.Wizard()
	assert.True(t, w.Open)
	assert.Equal(t, WizardCreate, w.Mode)
	assert.Equal(t, "draft", w.Initial.Name)

	target := widget{ID: "9", Name: "existing"}
	c.OpenEditWizard(&target)
	w = c.Wizard()
	assert.Equal(t, WizardEdit, w.Mode)
	assert.Equal(t, model.ID("9"), w.Initial.ID)

	c.CloseWizard()
	w = c.Wizard()
	assert.False(t, w.Open)
	assert.Nil(t, w.Initial)
	assert.Equal(t, WizardCreate, w.Mode)
}

func TestConfirm_Lifecycle(t *testing.T) {
	ctx := context.Background()
	c := New((&fakeSource{}).fetch, Config{Owner: "u-1"})

	t.Run("no bound action only closes", func(t *testing.T) {
		c.RequestConfirm("Delete", "Sure?", nil)
		require.True(t, c.Confirm().Open)
		require.NoError(t, c.ConfirmAction(ctx))
		assert.False(t, c.Confirm().Open)
	})

	t.Run("failed action keeps dialog open", func(t *testing.T) {
		c.RequestConfirm("Delete", "Sure?", func(context.Context) error { return errors.New("boom") })
		require.Error(t, c.ConfirmAction(ctx))
		assert.True(t, c.Confirm().Open)
		c.CloseConfirm()
		assert.False(t, c.Confirm().Open)
	})

	t.Run("request delete binds target", func(t *testing.T) {
		var deleted model.ID
		c.RequestDelete(widget{ID: "4"}, "Widget 4", func(_ context.Context, w widget) error {
			deleted = w.ID
			return nil
		})
		view := c.Confirm()
		assert.Contains(t, view.Message, "Widget 4")
		assert.True(t, view.HasAction)
		require.NoError(t, c.ConfirmAction(ctx))
		assert.Equal(t, model.ID("4"), deleted)
		assert.False(t, c.Confirm().Open)
	})

	t.Run("close discards without running", func(t *testing.T) {
		ran := false
		c.RequestConfirm("Delete", "Sure?", func(context.Context) error { ran = true; return nil })
		c.CloseConfirm()
		assert.False(t, ran)
	})
}

func TestDismissFeedback_OnlyMatchingSeq(t *testing.T) {
	src := &fakeSource{snap: snapOf()}
	c := newLoaded(t, src, Config{OnRefresh: func(context.Context) error { return nil }})
	ok := func(context.Context) (Result[widget], error) { return Refetch[widget](), nil }

	require.NoError(t, c.Mutate(context.Background(), ok, MutateOptions{SuccessMessage: "one"}))
	first := c.State().Feedback.Seq
	require.NoError(t, c.Mutate(context.Background(), ok, MutateOptions{SuccessMessage: "two"}))

	c.DismissFeedback(first)
	require.NotNil(t, c.State().Feedback, "stale timer must not clear the newer banner")
	c.DismissFeedback(0)
	assert.Nil(t, c.State().Feedback)
}
