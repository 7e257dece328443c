package store_test

import (
	"context"
	"sync"
	"testing"

	"seqwork/internal/store"
	"seqwork/internal/testsupport"
	"seqwork/internal/worktype"
)

func TestInsertIfAbsentCreatesQueuedInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	key := testsupport.MustKey(t, "/seq/run42", "ARTICNextflow")

	inst, disposition, err := st.InsertIfAbsent(ctx, key, key.Type.Repeatable())
	if err != nil {
		t.Fatalf("InsertIfAbsent failed: %v", err)
	}
	if disposition != store.DispositionCreated {
		t.Fatalf("expected created, got %s", disposition)
	}
	if inst.ID == 0 {
		t.Fatal("expected instance ID to be assigned")
	}
	if inst.State != store.StateQueued {
		t.Fatalf("expected queued, got %s", inst.State)
	}
	if inst.CreatedAt.IsZero() || inst.UpdatedAt.IsZero() {
		t.Fatalf("expected timestamps on insert: %#v", inst)
	}

	fetched, err := st.Get(ctx, inst.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if fetched.Key() != key {
		t.Fatalf("unexpected key: %s", fetched.Key())
	}
}

func TestInsertIfAbsentIsIdempotentForActiveKey(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	key := testsupport.MustKey(t, "/seq/run42", "ARTICNextflow")
	first := testsupport.MustEnqueue(t, st, key)

	// Same key, different request casing.
	dup := testsupport.MustKey(t, "/seq/run42/", "articNEXTFLOW")
	inst, disposition, err := st.InsertIfAbsent(ctx, dup, dup.Type.Repeatable())
	if err != nil {
		t.Fatalf("InsertIfAbsent failed: %v", err)
	}
	if disposition != store.DispositionAlreadyActive {
		t.Fatalf("expected already-active, got %s", disposition)
	}
	if inst.ID != first.ID {
		t.Fatalf("expected existing instance %d, got %d", first.ID, inst.ID)
	}

	// The started instance still blocks a re-enqueue.
	if ok, err := st.Transition(ctx, first.ID, store.StateQueued, store.StateStarted); err != nil || !ok {
		t.Fatalf("claim failed: ok=%v err=%v", ok, err)
	}
	_, disposition, err = st.InsertIfAbsent(ctx, key, key.Type.Repeatable())
	if err != nil {
		t.Fatalf("InsertIfAbsent failed: %v", err)
	}
	if disposition != store.DispositionAlreadyActive {
		t.Fatalf("expected already-active for started instance, got %s", disposition)
	}
}

func TestInsertIfAbsentRepeatablePolicy(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	complete := func(key worktype.Key) {
		t.Helper()
		inst := testsupport.MustEnqueue(t, st, key)
		if ok, err := st.Transition(ctx, inst.ID, store.StateQueued, store.StateStarted); err != nil || !ok {
			t.Fatalf("claim failed: ok=%v err=%v", ok, err)
		}
		if ok, err := st.Transition(ctx, inst.ID, store.StateStarted, store.StateCompleted); err != nil || !ok {
			t.Fatalf("complete failed: ok=%v err=%v", ok, err)
		}
	}

	once := testsupport.MustKey(t, "/seq/run42", "ARTICNextflow")
	complete(once)
	inst, disposition, err := st.InsertIfAbsent(ctx, once, once.Type.Repeatable())
	if err != nil {
		t.Fatalf("InsertIfAbsent failed: %v", err)
	}
	if disposition != store.DispositionAlreadyCompleted {
		t.Fatalf("expected already-completed, got %s", disposition)
	}
	if inst.State != store.StateCompleted {
		t.Fatalf("expected the completed instance back, got %s", inst.State)
	}

	again := testsupport.MustKey(t, "/seq/run42", "ONTRunMetadataUpdate")
	complete(again)
	_, disposition, err = st.InsertIfAbsent(ctx, again, again.Type.Repeatable())
	if err != nil {
		t.Fatalf("InsertIfAbsent failed: %v", err)
	}
	if disposition != store.DispositionCreated {
		t.Fatalf("expected repeatable work to re-enqueue, got %s", disposition)
	}
}

func TestInsertIfAbsentReEnqueueAfterFailureAndCancel(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	key := testsupport.MustKey(t, "/seq/run7", "ARTICNextflow")
	inst := testsupport.MustEnqueue(t, st, key)
	if ok, err := st.Transition(ctx, inst.ID, store.StateQueued, store.StateStarted); err != nil || !ok {
		t.Fatalf("claim failed: ok=%v err=%v", ok, err)
	}
	if ok, err := st.TransitionFailed(ctx, inst.ID, "analysis exited 1"); err != nil || !ok {
		t.Fatalf("fail failed: ok=%v err=%v", ok, err)
	}

	// A failed instance does not block a fresh enqueue.
	second := testsupport.MustEnqueue(t, st, key)
	if second.ID == inst.ID {
		t.Fatal("expected a new instance after failure")
	}

	if ok, err := st.Cancel(ctx, second.ID); err != nil || !ok {
		t.Fatalf("cancel failed: ok=%v err=%v", ok, err)
	}
	third := testsupport.MustEnqueue(t, st, key)
	if third.ID == second.ID {
		t.Fatal("expected a new instance after cancellation")
	}

	history, err := st.History(ctx, key)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected 3 instances in history, got %d", len(history))
	}
	if history[0].ID != third.ID {
		t.Fatalf("expected newest first, got id %d", history[0].ID)
	}
	if history[2].ErrorMessage != "analysis exited 1" {
		t.Fatalf("expected failure message preserved, got %q", history[2].ErrorMessage)
	}
}

func TestConcurrentEnqueueCreatesSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	key := testsupport.MustKey(t, "/seq/run42", "ARTICNextflow")

	const attempts = 8
	dispositions := make([]store.Disposition, attempts)
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, dispositions[i], errs[i] = st.InsertIfAbsent(ctx, key, key.Type.Repeatable())
		}(i)
	}
	wg.Wait()

	created := 0
	for i := 0; i < attempts; i++ {
		if errs[i] != nil {
			t.Fatalf("attempt %d failed: %v", i, errs[i])
		}
		if dispositions[i] == store.DispositionCreated {
			created++
		}
	}
	if created != 1 {
		t.Fatalf("expected exactly one created disposition, got %d", created)
	}

	queued, err := st.FindByState(ctx, store.StateQueued)
	if err != nil {
		t.Fatalf("FindByState failed: %v", err)
	}
	if len(queued) != 1 {
		t.Fatalf("expected one queued instance, got %d", len(queued))
	}
}

func TestTransitionClaimRaceHasOneWinner(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	key := testsupport.MustKey(t, "/seq/run42", "ARTICNextflow")
	inst := testsupport.MustEnqueue(t, st, key)

	const claimants = 8
	wins := make([]bool, claimants)
	errs := make([]error, claimants)
	var wg sync.WaitGroup
	for i := 0; i < claimants; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			wins[i], errs[i] = st.Transition(ctx, inst.ID, store.StateQueued, store.StateStarted)
		}(i)
	}
	wg.Wait()

	winners := 0
	for i := 0; i < claimants; i++ {
		if errs[i] != nil {
			t.Fatalf("claimant %d errored: %v", i, errs[i])
		}
		if wins[i] {
			winners++
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one claim winner, got %d", winners)
	}

	claimed, err := st.Get(ctx, inst.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if claimed.State != store.StateStarted {
		t.Fatalf("expected started, got %s", claimed.State)
	}
	if claimed.StartedAt == nil {
		t.Fatal("expected started_at to be stamped")
	}
}

func TestTransitionRejectsDisallowedEdges(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	key := testsupport.MustKey(t, "/seq/run42", "ARTICNextflow")
	inst := testsupport.MustEnqueue(t, st, key)

	if _, err := st.Transition(ctx, inst.ID, store.StateQueued, store.StateCompleted); err == nil {
		t.Fatal("expected queued -> completed to be rejected")
	}
	if _, err := st.Transition(ctx, inst.ID, store.StateCompleted, store.StateQueued); err == nil {
		t.Fatal("expected transitions out of a terminal state to be rejected")
	}

	unchanged, err := st.Get(ctx, inst.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if unchanged.State != store.StateQueued {
		t.Fatalf("expected state untouched, got %s", unchanged.State)
	}
}

func TestTransitionStampsCompletedAt(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	key := testsupport.MustKey(t, "/seq/run42", "ARTICNextflow")
	inst := testsupport.MustEnqueue(t, st, key)
	if ok, err := st.Transition(ctx, inst.ID, store.StateQueued, store.StateStarted); err != nil || !ok {
		t.Fatalf("claim failed: ok=%v err=%v", ok, err)
	}
	if ok, err := st.Transition(ctx, inst.ID, store.StateStarted, store.StateCompleted); err != nil || !ok {
		t.Fatalf("complete failed: ok=%v err=%v", ok, err)
	}

	done, err := st.Get(ctx, inst.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if done.CompletedAt == nil {
		t.Fatal("expected completed_at to be stamped")
	}
	if done.StartedAt == nil {
		t.Fatal("expected started_at preserved")
	}
}

func TestUpdatePaths(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	key := testsupport.MustKey(t, "/seq/run42", "ARTICNextflow")
	inst := testsupport.MustEnqueue(t, st, key)

	if err := st.UpdatePaths(ctx, inst.ID, "/tmp/staging/1", "/archive/articnextflow/1"); err != nil {
		t.Fatalf("UpdatePaths failed: %v", err)
	}
	updated, err := st.Get(ctx, inst.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if updated.StagingPath != "/tmp/staging/1" || updated.ArchivePath != "/archive/articnextflow/1" {
		t.Fatalf("unexpected paths: %#v", updated)
	}

	if err := st.UpdatePaths(ctx, inst.ID, "", updated.ArchivePath); err != nil {
		t.Fatalf("UpdatePaths failed: %v", err)
	}
	cleared, err := st.Get(ctx, inst.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if cleared.StagingPath != "" {
		t.Fatalf("expected staging path cleared, got %q", cleared.StagingPath)
	}
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	_, err := st.Get(context.Background(), 999)
	if err == nil {
		t.Fatal("expected error for missing instance")
	}
}

func TestStatsGroupsByState(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	first := testsupport.MustEnqueue(t, st, testsupport.MustKey(t, "/seq/run1", "ARTICNextflow"))
	testsupport.MustEnqueue(t, st, testsupport.MustKey(t, "/seq/run2", "ARTICNextflow"))
	if ok, err := st.Transition(ctx, first.ID, store.StateQueued, store.StateStarted); err != nil || !ok {
		t.Fatalf("claim failed: ok=%v err=%v", ok, err)
	}

	stats, err := st.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats[store.StateQueued] != 1 || stats[store.StateStarted] != 1 {
		t.Fatalf("unexpected stats: %#v", stats)
	}
}
