package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/hylla/folio/internal/domain"
)

type fakeRepo struct {
	activities map[string]domain.Activity
	puts       int
	listCalls  int
	failPut    map[string]error
	failDelete map[string]error
	failList   error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		activities: map[string]domain.Activity{},
		failPut:    map[string]error{},
		failDelete: map[string]error{},
	}
}

func (f *fakeRepo) GetActivity(_ context.Context, id string) (domain.Activity, error) {
	a, ok := f.activities[id]
	if !ok {
		return domain.Activity{}, ErrNotFound
	}
	a.LinkedActivityIDs = slices.Clone(a.LinkedActivityIDs)
	return a, nil
}

func (f *fakeRepo) ListActivities(_ context.Context) ([]domain.Activity, error) {
	f.listCalls++
	if f.failList != nil {
		return nil, f.failList
	}
	out := make([]domain.Activity, 0, len(f.activities))
	for _, a := range f.activities {
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeRepo) PutActivity(_ context.Context, a domain.Activity) error {
	if err := f.failPut[a.ID]; err != nil {
		return err
	}
	f.puts++
	f.activities[a.ID] = a
	return nil
}

func (f *fakeRepo) DeleteActivity(_ context.Context, id string) error {
	if err := f.failDelete[id]; err != nil {
		return err
	}
	delete(f.activities, id)
	return nil
}

type stepClock struct {
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

type fakeFlusher struct {
	calls int
	err   error
}

func (f *fakeFlusher) ForceSave(context.Context) (bool, error) {
	f.calls++
	return f.err == nil, f.err
}

func newTestService(t *testing.T) (*Service, *fakeRepo, *stepClock) {
	t.Helper()
	repo := newFakeRepo()
	clock := &stepClock{now: time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)}
	n := 0
	idGen := func() string {
		n++
		return fmt.Sprintf("gen-%d", n)
	}
	return NewService(repo, idGen, clock.Now, ServiceConfig{}), repo, clock
}

func mustCreate(t *testing.T, svc *Service, id, content string) domain.Activity {
	t.Helper()
	a, err := svc.CreateActivity(context.Background(), CreateActivityInput{ID: id, Title: id, Content: content})
	if err != nil {
		t.Fatalf("CreateActivity(%q) error = %v", id, err)
	}
	return a
}

func TestCreateAndGetActivity(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created := mustCreate(t, svc, "a", "one two three")
	if created.WordCount != 3 {
		t.Fatalf("expected word count 3, got %d", created.WordCount)
	}
	got, found, err := svc.GetActivity(ctx, "a")
	if err != nil || !found {
		t.Fatalf("GetActivity() = found %t, error %v", found, err)
	}
	if got.Content != "one two three" {
		t.Fatalf("unexpected content %q", got.Content)
	}

	_, found, err = svc.GetActivity(ctx, "missing")
	if err != nil || found {
		t.Fatalf("expected absent without error, got found=%t err=%v", found, err)
	}
	if _, err := svc.CreateActivity(ctx, CreateActivityInput{ID: " "}); !errors.Is(err, domain.ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
}

func TestListActivitiesOrdering(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.activities["b"] = domain.Activity{ID: "b", CreatedAt: ts, UpdatedAt: ts}
	repo.activities["a"] = domain.Activity{ID: "a", CreatedAt: ts, UpdatedAt: ts}
	repo.activities["c"] = domain.Activity{ID: "c", CreatedAt: ts, UpdatedAt: ts.Add(time.Hour)}

	got, err := svc.ListActivities(context.Background())
	if err != nil {
		t.Fatalf("ListActivities() error = %v", err)
	}
	ids := make([]string, 0, len(got))
	for _, a := range got {
		ids = append(ids, a.ID)
	}
	if !slices.Equal(ids, []string{"c", "a", "b"}) {
		t.Fatalf("unexpected order %#v", ids)
	}
}

func TestSaveActivityStampsDerivedFields(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	a := mustCreate(t, svc, "a", "")

	a.Content = "alpha beta"
	a.WordCount = 99
	a.LinkedActivityIDs = []string{"b", "b", "a"}
	saved, err := svc.SaveActivity(ctx, a)
	if err != nil {
		t.Fatalf("SaveActivity() error = %v", err)
	}
	if saved.WordCount != 2 {
		t.Fatalf("expected recomputed word count 2, got %d", saved.WordCount)
	}
	if !slices.Equal(saved.LinkedActivityIDs, []string{"b"}) {
		t.Fatalf("expected normalized links, got %#v", saved.LinkedActivityIDs)
	}
	if !saved.UpdatedAt.After(a.UpdatedAt) {
		t.Fatalf("expected updated_at to advance, got %v then %v", a.UpdatedAt, saved.UpdatedAt)
	}
}

func TestLifecycleScenarioThroughService(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	mustCreate(t, svc, "x", "hello")

	archived, found, err := svc.ArchiveActivity(ctx, "x")
	if err != nil || !found {
		t.Fatalf("ArchiveActivity() found=%t error = %v", found, err)
	}
	if !archived.Archived || archived.Deleted {
		t.Fatalf("expected archived, got %#v", archived)
	}
	trashed, _, err := svc.TrashActivity(ctx, "x")
	if err != nil {
		t.Fatalf("TrashActivity() error = %v", err)
	}
	if !trashed.Deleted || !trashed.Archived {
		t.Fatalf("expected trashed with archived kept, got %#v", trashed)
	}

	puts := repo.puts
	if _, _, err := svc.ArchiveActivity(ctx, "x"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if repo.puts != puts {
		t.Fatal("rejected archive must not write")
	}

	restored, _, err := svc.RestoreActivity(ctx, "x")
	if err != nil {
		t.Fatalf("RestoreActivity() error = %v", err)
	}
	if restored.Archived || restored.Deleted {
		t.Fatalf("expected active after restore, got %#v", restored)
	}
	if restored.UpdatedAt.Before(trashed.UpdatedAt) {
		t.Fatal("updated_at went backwards")
	}
}

func TestLifecycleOnMissingRecordIsNoop(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	for name, op := range map[string]func() (domain.Activity, bool, error){
		"archive":   func() (domain.Activity, bool, error) { return svc.ArchiveActivity(ctx, "nope") },
		"trash":     func() (domain.Activity, bool, error) { return svc.TrashActivity(ctx, "nope") },
		"restore":   func() (domain.Activity, bool, error) { return svc.RestoreActivity(ctx, "nope") },
		"duplicate": func() (domain.Activity, bool, error) { return svc.DuplicateActivity(ctx, "nope") },
		"color":     func() (domain.Activity, bool, error) { return svc.SetActivityColor(ctx, "nope", "#FCA5A5") },
	} {
		if _, found, err := op(); err != nil || found {
			t.Fatalf("%s on missing id: found=%t err=%v", name, found, err)
		}
	}
	if err := svc.DeleteActivity(ctx, "nope"); err != nil {
		t.Fatalf("DeleteActivity() error = %v", err)
	}
	if repo.puts != 0 {
		t.Fatalf("expected no writes, got %d", repo.puts)
	}
}

func TestUpdateActivityPartial(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	mustCreate(t, svc, "a", "body")

	title := "Renamed"
	got, found, err := svc.UpdateActivity(ctx, "a", UpdateActivityInput{Title: &title})
	if err != nil || !found {
		t.Fatalf("UpdateActivity() found=%t error = %v", found, err)
	}
	if got.Title != "Renamed" || got.Content != "body" {
		t.Fatalf("unexpected update result %#v", got)
	}
}

func TestDuplicateActivity(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	src := mustCreate(t, svc, "a", "body text")
	if _, _, err := svc.LinkActivities(ctx, "a", "b"); err != nil {
		t.Fatalf("LinkActivities() error = %v", err)
	}
	if _, _, err := svc.ArchiveActivity(ctx, "a"); err != nil {
		t.Fatalf("ArchiveActivity() error = %v", err)
	}

	dup, found, err := svc.DuplicateActivity(ctx, "a")
	if err != nil || !found {
		t.Fatalf("DuplicateActivity() found=%t error = %v", found, err)
	}
	if dup.ID != "gen-1" || dup.Title != src.Title+" (Copy)" {
		t.Fatalf("unexpected duplicate %#v", dup)
	}
	if dup.Archived || dup.Deleted {
		t.Fatal("duplicate must be active")
	}
	if !slices.Equal(dup.LinkedActivityIDs, []string{"b"}) || dup.WordCount != 2 {
		t.Fatalf("unexpected duplicate links/words %#v", dup)
	}
}

func TestLinkScenarioAndRejections(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	mustCreate(t, svc, "A", "")
	mustCreate(t, svc, "B", "")

	if _, _, err := svc.LinkActivities(ctx, "A", "B"); err != nil {
		t.Fatalf("LinkActivities() error = %v", err)
	}
	puts := repo.puts
	got, _, err := svc.LinkActivities(ctx, "A", "B")
	if !errors.Is(err, domain.ErrDuplicateLinkRejected) {
		t.Fatalf("expected ErrDuplicateLinkRejected, got %v", err)
	}
	if repo.puts != puts {
		t.Fatal("rejected link must not write")
	}
	if !slices.Equal(got.LinkedActivityIDs, []string{"B"}) {
		t.Fatalf("unexpected links %#v", got.LinkedActivityIDs)
	}
	if _, _, err := svc.LinkActivities(ctx, "A", "A"); !errors.Is(err, domain.ErrSelfLinkRejected) {
		t.Fatalf("expected ErrSelfLinkRejected, got %v", err)
	}
	target, _, _ := svc.GetActivity(ctx, "B")
	if len(target.LinkedActivityIDs) != 0 {
		t.Fatalf("link must be one-directional, target has %#v", target.LinkedActivityIDs)
	}

	for _, id := range []string{"C", "D", "E", "F"} {
		if _, _, err := svc.LinkActivities(ctx, "A", id); err != nil {
			t.Fatalf("LinkActivities(%q) error = %v", id, err)
		}
	}
	if _, _, err := svc.LinkActivities(ctx, "A", "G"); !errors.Is(err, domain.ErrLinkCapacityExceeded) {
		t.Fatalf("expected ErrLinkCapacityExceeded, got %v", err)
	}

	unlinked, _, err := svc.UnlinkActivities(ctx, "A", "C")
	if err != nil {
		t.Fatalf("UnlinkActivities() error = %v", err)
	}
	if !slices.Equal(unlinked.LinkedActivityIDs, []string{"B", "D", "E", "F"}) {
		t.Fatalf("unexpected links after unlink %#v", unlinked.LinkedActivityIDs)
	}
	puts = repo.puts
	if _, _, err := svc.UnlinkActivities(ctx, "A", "C"); err != nil {
		t.Fatalf("UnlinkActivities() second call error = %v", err)
	}
	if repo.puts != puts {
		t.Fatal("unlinking an absent link must not write")
	}
}

func TestSwitchFocusScenario(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	mustCreate(t, svc, "A", "")
	mustCreate(t, svc, "B", "")
	flusher := &fakeFlusher{}

	target, found, err := svc.SwitchFocus(ctx, flusher, "A", "B")
	if err != nil || !found {
		t.Fatalf("SwitchFocus() found=%t error = %v", found, err)
	}
	if flusher.calls != 1 {
		t.Fatalf("expected pending edits flushed once, got %d", flusher.calls)
	}
	if target.ID != "B" || len(target.LinkedActivityIDs) == 0 || target.LinkedActivityIDs[0] != "A" {
		t.Fatalf("expected B to link back to A first, got %#v", target)
	}

	puts := repo.puts
	again, _, err := svc.SwitchFocus(ctx, nil, "A", "B")
	if err != nil {
		t.Fatalf("SwitchFocus() second call error = %v", err)
	}
	if repo.puts != puts {
		t.Fatal("second switch must be a no-op")
	}
	if !slices.Equal(again.LinkedActivityIDs, []string{"A"}) {
		t.Fatalf("unexpected links %#v", again.LinkedActivityIDs)
	}
}

func TestSwitchFocusEvictsOldestLink(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.activities["B"] = domain.Activity{ID: "B", CreatedAt: ts, UpdatedAt: ts, LinkedActivityIDs: []string{"1", "2", "3", "4", "5"}}

	target, _, err := svc.SwitchFocus(ctx, nil, "A", "B")
	if err != nil {
		t.Fatalf("SwitchFocus() error = %v", err)
	}
	if !slices.Equal(target.LinkedActivityIDs, []string{"A", "1", "2", "3", "4"}) {
		t.Fatalf("unexpected links %#v", target.LinkedActivityIDs)
	}
}

func TestSwitchFocusFlushFailureAborts(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	mustCreate(t, svc, "B", "")
	puts := repo.puts
	flushErr := errors.Join(ErrStorageUnavailable, errors.New("disk full"))

	if _, _, err := svc.SwitchFocus(ctx, &fakeFlusher{err: flushErr}, "A", "B"); !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected flush error, got %v", err)
	}
	if repo.puts != puts {
		t.Fatal("switch must not write after a failed flush")
	}
}

func TestLinkedActivitiesAndCandidates(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	for _, id := range []string{"A", "B", "C", "D"} {
		mustCreate(t, svc, id, "")
	}
	_, _, _ = svc.LinkActivities(ctx, "A", "B")
	_, _, _ = svc.LinkActivities(ctx, "A", "ghost")
	_, _, _ = svc.TrashActivity(ctx, "D")

	linked, found, err := svc.LinkedActivities(ctx, "A")
	if err != nil || !found {
		t.Fatalf("LinkedActivities() found=%t error = %v", found, err)
	}
	if len(linked) != 1 || linked[0].ID != "B" {
		t.Fatalf("expected only B resolved, got %#v", linked)
	}

	candidates, err := svc.LinkCandidates(ctx, "A")
	if err != nil {
		t.Fatalf("LinkCandidates() error = %v", err)
	}
	if len(candidates) != 1 || candidates[0].ID != "C" {
		t.Fatalf("expected only C as candidate, got %#v", candidates)
	}
}

func TestDeleteAllActivitiesReportsPartialBatch(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		mustCreate(t, svc, id, "")
	}
	repo.failDelete["b"] = errors.Join(ErrStorageUnavailable, errors.New("locked"))

	result, err := svc.DeleteAllActivities(ctx)
	if !errors.Is(err, ErrPartialBatch) || !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected partial batch storage error, got %v", err)
	}
	if result.Attempted != 3 || result.Succeeded != 2 || len(result.Failures) != 1 || result.Failures[0].ID != "b" {
		t.Fatalf("unexpected batch result %#v", result)
	}
	if _, ok := repo.activities["b"]; !ok || len(repo.activities) != 1 {
		t.Fatalf("expected only b to survive, got %#v", repo.activities)
	}
}

func TestStorageErrorsPropagate(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	storageErr := errors.Join(ErrStorageUnavailable, errors.New("quota exceeded"))
	repo.failPut["a"] = storageErr
	if _, err := svc.CreateActivity(ctx, CreateActivityInput{ID: "a"}); !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
	repo.failList = storageErr
	if _, err := svc.ListActivities(ctx); !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable from list, got %v", err)
	}
	if _, err := svc.DeleteAllActivities(ctx); !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable from delete all, got %v", err)
	}
}

func TestCaptureClipboardNote(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.CaptureClipboardNote(ctx, "c1", "  too short "); !errors.Is(err, ErrNothingToCapture) {
		t.Fatalf("expected ErrNothingToCapture, got %v", err)
	}
	if _, err := svc.CaptureClipboardNote(ctx, "c1", "0123456789"); !errors.Is(err, ErrNothingToCapture) {
		t.Fatalf("expected exactly-min text to be rejected, got %v", err)
	}
	note, err := svc.CaptureClipboardNote(ctx, "c1", "captured from the clipboard")
	if err != nil {
		t.Fatalf("CaptureClipboardNote() error = %v", err)
	}
	if note.Title != ClipboardNoteTitle || note.WordCount != 4 || note.State() != domain.StateActive {
		t.Fatalf("unexpected clipboard note %#v", note)
	}
}

// gatedListRepo blocks ListActivities until release is closed.
type gatedListRepo struct {
	*fakeRepo
	started chan struct{}
	release chan struct{}
}

func (g *gatedListRepo) ListActivities(ctx context.Context) ([]domain.Activity, error) {
	g.started <- struct{}{}
	<-g.release
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]domain.Activity, 0, len(g.activities))
	for _, a := range g.activities {
		out = append(out, a)
	}
	return out, nil
}

func TestListActivitiesSharedReadSurvivesOtherCallerCancel(t *testing.T) {
	base := newFakeRepo()
	base.activities["a"] = domain.Activity{ID: "a", Title: "a"}
	repo := &gatedListRepo{fakeRepo: base, started: make(chan struct{}, 2), release: make(chan struct{})}
	svc := NewService(repo, func() string { return "id" }, nil, ServiceConfig{})

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := svc.ListActivities(ctxA)
		errA <- err
	}()
	<-repo.started

	type listResult struct {
		activities []domain.Activity
		err        error
	}
	resB := make(chan listResult, 1)
	go func() {
		got, err := svc.ListActivities(context.Background())
		resB <- listResult{got, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	select {
	case err := <-errA:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("cancelled caller error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(repo.release)
	select {
	case res := <-resB:
		if res.err != nil {
			t.Fatalf("ListActivities() error = %v", res.err)
		}
		if len(res.activities) != 1 || res.activities[0].ID != "a" {
			t.Fatalf("unexpected activities %#v", res.activities)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("uncancelled caller did not return")
	}
}
