package changelog

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/samvad-hq/whatsnew-harvester/internal/domain"
)

// fakeSource serves canned pages; pages beyond the map are empty.
type fakeSource struct {
	mu     sync.Mutex
	pages  map[int][]domain.RawRecord
	errs   map[int]error
	called []int
}

func (f *fakeSource) FetchPage(_ context.Context, page int) ([]domain.RawRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.called = append(f.called, page)
	if err := f.errs[page]; err != nil {
		return nil, err
	}
	return f.pages[page], nil
}

func (f *fakeSource) calls() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.called...)
}

func unlabeled(id int64, merged string) domain.RawRecord {
	return domain.RawRecord{ID: id, MergedAt: mergedAt(merged), Labels: labels("chore")}
}

func visibleHeaders(recs []domain.DisplayRecord) int {
	n := 0
	for _, r := range recs {
		if r.HasDateLabel() {
			n++
		}
	}
	return n
}

func TestControllerFirstPageGroupsRecords(t *testing.T) {
	src := &fakeSource{pages: map[int][]domain.RawRecord{
		1: {
			relevant(3, "2019-03-05T10:00:00Z", "c"),
			relevant(2, "2019-03-04T18:00:00Z", "b"),
			relevant(1, "2019-03-04T09:00:00Z", "a"),
		},
	}}
	c := NewController(src, Options{})
	if c.State() != AwaitingFirstPage {
		t.Fatalf("initial state = %v", c.State())
	}

	u, err := c.LoadNext(context.Background())
	if err != nil {
		t.Fatalf("LoadNext: %v", err)
	}
	if u.State != IdleHasMore || !u.HasMore {
		t.Fatalf("unexpected update %+v", u)
	}
	if len(u.Appended) != 3 {
		t.Fatalf("expected 3 appended, got %d", len(u.Appended))
	}
	if n := visibleHeaders(u.Appended); n != 2 {
		t.Fatalf("expected 2 visible headers, got %d", n)
	}

	snap := c.Snapshot()
	if len(snap.Records) != 3 || snap.NextPage != 2 || snap.LastLabel != "Mar 5, 2019" {
		t.Fatalf("unexpected snapshot: records=%d next=%d last=%q", len(snap.Records), snap.NextPage, snap.LastLabel)
	}
}

func TestControllerIrrelevantPageStaysLoadable(t *testing.T) {
	src := &fakeSource{pages: map[int][]domain.RawRecord{
		1: {unlabeled(1, "2019-03-04T09:00:00Z"), {ID: 2, Labels: labels(DefaultInclusionLabel)}},
	}}
	c := NewController(src, Options{})

	u, err := c.LoadNext(context.Background())
	if err != nil {
		t.Fatalf("LoadNext: %v", err)
	}
	if u.State != IdleHasMore || !u.HasMore || !u.NeedsMore || len(u.Appended) != 0 {
		t.Fatalf("unexpected update %+v", u)
	}

	snap := c.Snapshot()
	if len(snap.Records) != 0 || snap.LastLabel != "" {
		t.Fatalf("expected empty feed, got %d records last=%q", len(snap.Records), snap.LastLabel)
	}
	if snap.NextPage != 2 {
		t.Fatalf("consumed page should not be requested again, next=%d", snap.NextPage)
	}
}

func TestControllerEmptyPageExhausts(t *testing.T) {
	src := &fakeSource{pages: map[int][]domain.RawRecord{
		1: {relevant(1, "2019-03-04T09:00:00Z", "a")},
	}}
	c := NewController(src, Options{})

	if _, err := c.LoadNext(context.Background()); err != nil {
		t.Fatalf("LoadNext: %v", err)
	}

	u, err := c.LoadNext(context.Background())
	if err != nil {
		t.Fatalf("LoadNext: %v", err)
	}
	if u.State != Exhausted || u.HasMore || c.HasMore() {
		t.Fatalf("expected exhausted, got %+v", u)
	}

	u, err = c.LoadNext(context.Background())
	if err != nil {
		t.Fatalf("LoadNext: %v", err)
	}
	if !u.Skipped || u.State != Exhausted {
		t.Fatalf("expected skipped call after exhaustion, got %+v", u)
	}
	if got := src.calls(); !reflect.DeepEqual(got, []int{1, 2}) {
		t.Fatalf("no fetch expected after exhaustion, calls=%v", got)
	}
	if n := len(c.Snapshot().Records); n != 1 {
		t.Fatalf("expected 1 record, got %d", n)
	}
}

func TestControllerAccumulatesMonotonically(t *testing.T) {
	src := &fakeSource{pages: map[int][]domain.RawRecord{
		1: {
			relevant(2, "2019-03-05T10:00:00Z", "b"),
			relevant(1, "2019-03-04T10:00:00Z", "a"),
		},
		2: {unlabeled(9, "2019-03-03T10:00:00Z")},
		3: {
			relevant(4, "2019-03-05T08:00:00Z", "d"),
			relevant(3, "2019-03-01T10:00:00Z", "c"),
		},
		4: {relevant(5, "2019-03-05T07:00:00Z", "e")},
	}}
	c := NewController(src, Options{})

	var previous []domain.DisplayRecord
	for c.HasMore() {
		if _, err := c.LoadNext(context.Background()); err != nil {
			t.Fatalf("LoadNext: %v", err)
		}

		snap := c.Snapshot()
		if len(snap.Records) < len(previous) {
			t.Fatalf("feed shrank from %d to %d", len(previous), len(snap.Records))
		}
		if len(previous) > 0 && !reflect.DeepEqual(previous, snap.Records[:len(previous)]) {
			t.Fatalf("existing entries changed")
		}
		previous = snap.Records

		assertNoRepeatedHeaders(t, snap.Records)
		if want := lastVisibleLabel(snap.Records); snap.LastLabel != want {
			t.Fatalf("last label = %q, want %q", snap.LastLabel, want)
		}
	}

	if got := ids(previous); !reflect.DeepEqual(got, []int64{1, 2, 3, 4, 5}) {
		t.Fatalf("unexpected ids %v", got)
	}
	want := []string{"Mar 4, 2019", "Mar 5, 2019", "Mar 1, 2019", "Mar 5, 2019", ""}
	if got := dateLabels(previous); !reflect.DeepEqual(got, want) {
		t.Fatalf("date labels = %q, want %q", got, want)
	}
}

func TestControllerSuppressesLabelAcrossPages(t *testing.T) {
	src := &fakeSource{pages: map[int][]domain.RawRecord{
		1: {relevant(1, "2019-03-04T18:00:00Z", "a")},
		2: {relevant(2, "2019-03-04T09:00:00Z", "b")},
	}}
	c := NewController(src, Options{})

	if _, err := c.LoadNext(context.Background()); err != nil {
		t.Fatalf("LoadNext: %v", err)
	}
	u, err := c.LoadNext(context.Background())
	if err != nil {
		t.Fatalf("LoadNext: %v", err)
	}
	if len(u.Appended) != 1 {
		t.Fatalf("expected 1 appended, got %d", len(u.Appended))
	}
	if u.Appended[0].HasDateLabel() {
		t.Fatalf("same-day record on next page should have no header, got %q", u.Appended[0].DateLabel)
	}
}

func TestControllerIgnoresLoadWhileLoading(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var calls int
	var mu sync.Mutex
	src := PageSourceFunc(func(ctx context.Context, page int) ([]domain.RawRecord, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		close(started)
		<-release
		return []domain.RawRecord{relevant(1, "2019-03-04T09:00:00Z", "a")}, nil
	})
	c := NewController(src, Options{})

	done := make(chan error, 1)
	go func() {
		_, err := c.LoadNext(context.Background())
		done <- err
	}()
	<-started

	if c.State() != Loading {
		t.Fatalf("state = %v, want loading", c.State())
	}
	u, err := c.LoadNext(context.Background())
	if err != nil {
		t.Fatalf("LoadNext: %v", err)
	}
	if !u.Skipped || u.State != Loading {
		t.Fatalf("expected skipped call while loading, got %+v", u)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("in-flight LoadNext: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Fatalf("expected 1 fetch, got %d", calls)
	}
	if c.State() != IdleHasMore {
		t.Fatalf("state = %v after load", c.State())
	}
}

func TestControllerFetchErrorRestoresState(t *testing.T) {
	boom := errors.New("connection reset")
	src := &fakeSource{
		pages: map[int][]domain.RawRecord{1: {relevant(1, "2019-03-04T09:00:00Z", "a")}},
		errs:  map[int]error{2: boom},
	}
	c := NewController(src, Options{})

	if _, err := c.LoadNext(context.Background()); err != nil {
		t.Fatalf("LoadNext: %v", err)
	}

	_, err := c.LoadNext(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected fetch error, got %v", err)
	}
	snap := c.Snapshot()
	if c.State() != IdleHasMore || snap.NextPage != 2 || len(snap.Records) != 1 {
		t.Fatalf("state not restored: state=%v next=%d records=%d", c.State(), snap.NextPage, len(snap.Records))
	}

	src.mu.Lock()
	delete(src.errs, 2)
	src.mu.Unlock()

	u, err := c.LoadNext(context.Background())
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if u.Page != 2 {
		t.Fatalf("failed page should be requested again, got page %d", u.Page)
	}
}

func TestControllerMalformedFirstPage(t *testing.T) {
	src := &fakeSource{errs: map[int]error{1: fmt.Errorf("%w: not a list", ErrMalformedPage)}}
	c := NewController(src, Options{})

	_, err := c.LoadNext(context.Background())
	if !errors.Is(err, ErrMalformedPage) {
		t.Fatalf("expected ErrMalformedPage, got %v", err)
	}
	if c.State() != AwaitingFirstPage || !c.HasMore() {
		t.Fatalf("state = %v has_more=%v", c.State(), c.HasMore())
	}
}

func TestControllerCloseDiscardsInFlightResult(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	src := PageSourceFunc(func(ctx context.Context, page int) ([]domain.RawRecord, error) {
		close(started)
		<-release
		return []domain.RawRecord{relevant(1, "2019-03-04T09:00:00Z", "a")}, nil
	})
	c := NewController(src, Options{})

	done := make(chan error, 1)
	go func() {
		_, err := c.LoadNext(context.Background())
		done <- err
	}()
	<-started
	c.Close()
	close(release)

	if err := <-done; !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed from in-flight load, got %v", err)
	}
	if n := len(c.Snapshot().Records); n != 0 {
		t.Fatalf("in-flight result applied after close: %d records", n)
	}

	if _, err := c.LoadNext(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestControllerLoadVisibleSkipsIrrelevantPages(t *testing.T) {
	src := &fakeSource{pages: map[int][]domain.RawRecord{
		1: {unlabeled(1, "2019-03-04T09:00:00Z")},
		2: {unlabeled(2, "2019-03-03T09:00:00Z")},
		3: {relevant(3, "2019-03-02T09:00:00Z", "c")},
	}}
	c := NewController(src, Options{})

	u, err := c.LoadVisible(context.Background(), 0)
	if err != nil {
		t.Fatalf("LoadVisible: %v", err)
	}
	if len(u.Appended) != 1 || u.Page != 3 || u.NeedsMore {
		t.Fatalf("unexpected update %+v", u)
	}
	if got := src.calls(); !reflect.DeepEqual(got, []int{1, 2, 3}) {
		t.Fatalf("calls = %v", got)
	}
}

func TestControllerLoadVisibleRespectsPageBudget(t *testing.T) {
	src := &fakeSource{pages: map[int][]domain.RawRecord{
		1: {unlabeled(1, "2019-03-04T09:00:00Z")},
		2: {unlabeled(2, "2019-03-03T09:00:00Z")},
		3: {relevant(3, "2019-03-02T09:00:00Z", "c")},
	}}
	c := NewController(src, Options{})

	u, err := c.LoadVisible(context.Background(), 2)
	if err != nil {
		t.Fatalf("LoadVisible: %v", err)
	}
	if len(u.Appended) != 0 || !u.NeedsMore {
		t.Fatalf("unexpected update %+v", u)
	}
	if got := src.calls(); !reflect.DeepEqual(got, []int{1, 2}) {
		t.Fatalf("calls = %v", got)
	}
}

func TestControllerCustomLabelAndFirstPage(t *testing.T) {
	rec := relevant(1, "2019-03-04T09:00:00Z", "a")
	rec.Labels = labels("changelog")
	src := &fakeSource{pages: map[int][]domain.RawRecord{0: {rec}}}

	c := NewController(src, Options{Label: "changelog", FirstPage: 1})
	if _, err := c.LoadNext(context.Background()); err != nil {
		t.Fatalf("LoadNext: %v", err)
	}
	if c.State() != Exhausted {
		t.Fatalf("page 0 should never be requested, state=%v", c.State())
	}

	src.pages[1] = src.pages[0]
	c = NewController(src, Options{Label: "changelog"})
	u, err := c.LoadNext(context.Background())
	if err != nil {
		t.Fatalf("LoadNext: %v", err)
	}
	if len(u.Appended) != 1 {
		t.Fatalf("expected 1 appended, got %d", len(u.Appended))
	}
}

func assertNoRepeatedHeaders(t *testing.T, recs []domain.DisplayRecord) {
	t.Helper()
	prev := ""
	for i, r := range recs {
		if !r.HasDateLabel() {
			continue
		}
		if r.DateLabel == prev {
			t.Fatalf("record %d repeats the previous visible header %q", i, prev)
		}
		prev = r.DateLabel
	}
}

func lastVisibleLabel(recs []domain.DisplayRecord) string {
	for i := len(recs) - 1; i >= 0; i-- {
		if recs[i].HasDateLabel() {
			return recs[i].DateLabel
		}
	}
	return ""
}
