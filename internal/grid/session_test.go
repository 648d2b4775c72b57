package grid_test

import (
	"errors"
	"runtime"
	"sort"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"datagrid/internal/domain"
	"datagrid/internal/grid"
)

func TestSession_OnDataChange(t *testing.T) {
	var calls [][]string
	s := grid.NewSession(mustState(t, grid.DefaultOptions()), func(rows []domain.Record) error {
		calls = append(calls, keysOf(rows))
		return nil
	})

	if _, err := s.Dispatch(grid.SetQuery{Query: "a"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Dispatch(grid.ReorderRows{From: 1, To: 1}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Dispatch(grid.ReorderRows{From: 0, To: 9}); !errors.Is(err, domain.ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
	if len(calls) != 0 {
		t.Fatalf("expected no data change yet, got %v", calls)
	}

	if _, err := s.Dispatch(grid.ReorderRows{From: 4, To: 0}); err != nil {
		t.Fatal(err)
	}
	want := [][]string{{"5", "1", "2", "3", "4"}}
	if diff := cmp.Diff(want, calls); diff != "" {
		t.Errorf("data change mismatch (-want +got):\n%s", diff)
	}
}

func TestSession_ViewMemoized(t *testing.T) {
	s := grid.NewSession(mustState(t, grid.DefaultOptions()), nil)

	rev := s.Revision()
	a := s.View()
	b := s.View()
	if diff := cmp.Diff(a, b, cmp.Comparer(func(x, y domain.RenderFunc) bool { return true })); diff != "" {
		t.Errorf("views differ (-a +b):\n%s", diff)
	}
	if s.Revision() != rev {
		t.Error("reading the view should not advance the revision")
	}

	v, err := s.Dispatch(grid.ToggleColumn{Key: "status"})
	if err != nil {
		t.Fatal(err)
	}
	if s.Revision() != rev+1 {
		t.Errorf("expected revision %d, got %d", rev+1, s.Revision())
	}
	if len(v.Columns) != 3 || len(s.View().Columns) != 3 {
		t.Errorf("expected 3 visible columns, got %d", len(v.Columns))
	}
}

func TestSession_ReplaceDoesNotNotify(t *testing.T) {
	called := false
	s := grid.NewSession(mustState(t, grid.DefaultOptions()), func([]domain.Record) error {
		called = true
		return nil
	})

	next, err := s.State().WithRows(numbered(3))
	if err != nil {
		t.Fatal(err)
	}
	s.Replace(next)

	if called {
		t.Error("Replace should not trigger a data change")
	}
	if got := s.View().TotalRows; got != 3 {
		t.Errorf("expected 3 rows after replace, got %d", got)
	}
}

func TestSession_ConcurrentDispatch(t *testing.T) {
	s := grid.NewSession(mustState(t, grid.DefaultOptions()), nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := s.Dispatch(grid.ReorderRows{From: i % 5, To: (i * 3) % 5}); err != nil {
				t.Errorf("dispatch %d: %v", i, err)
			}
			s.View()
		}(i)
	}
	wg.Wait()

	got := keysOf(s.State().Rows())
	sort.Strings(got)
	if diff := cmp.Diff([]string{"1", "2", "3", "4", "5"}, got); diff != "" {
		t.Errorf("rows are no longer a permutation (-want +got):\n%s", diff)
	}
}

func TestSession_DataChangeFollowsCommitOrder(t *testing.T) {
	var mu sync.Mutex
	var calls [][]string
	firstEntered := make(chan struct{})
	releaseFirst := make(chan struct{})
	first := true
	s := grid.NewSession(mustState(t, grid.DefaultOptions()), func(rows []domain.Record) error {
		mu.Lock()
		hold := first
		first = false
		mu.Unlock()
		if hold {
			close(firstEntered)
			<-releaseFirst
		}
		mu.Lock()
		calls = append(calls, keysOf(rows))
		mu.Unlock()
		return nil
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := s.Dispatch(grid.ReorderRows{From: 2, To: 0}); err != nil {
			t.Errorf("first dispatch: %v", err)
		}
	}()
	<-firstEntered

	second := make(chan struct{})
	go func() {
		defer close(second)
		if _, err := s.Dispatch(grid.ReorderRows{From: 0, To: 2}); err != nil {
			t.Errorf("second dispatch: %v", err)
		}
	}()

	// The second transition commits while the first notification is pending.
	for s.Revision() < 2 {
		runtime.Gosched()
	}
	close(releaseFirst)
	<-done
	<-second

	committed := keysOf(s.State().Rows())
	want := [][]string{{"3", "1", "2", "4", "5"}, committed}
	if diff := cmp.Diff(want, calls); diff != "" {
		t.Errorf("notifications out of commit order (-want +got):\n%s", diff)
	}
}

func TestSession_ConcurrentDispatchLastNotificationMatchesState(t *testing.T) {
	var mu sync.Mutex
	var last []string
	s := grid.NewSession(mustState(t, grid.DefaultOptions()), func(rows []domain.Record) error {
		mu.Lock()
		defer mu.Unlock()
		last = keysOf(rows)
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := s.Dispatch(grid.ReorderRows{From: i % 5, To: (i*3 + 1) % 5}); err != nil {
				t.Errorf("dispatch %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	if diff := cmp.Diff(keysOf(s.State().Rows()), last); diff != "" {
		t.Errorf("last notification differs from committed rows (-state +last):\n%s", diff)
	}
}

func TestSession_DataChangeError(t *testing.T) {
	boom := errors.New("disk full")
	s := grid.NewSession(mustState(t, grid.DefaultOptions()), func([]domain.Record) error { return boom })

	v, err := s.Dispatch(grid.ReorderRows{From: 0, To: 1})
	var dce *grid.DataChangeError
	if !errors.As(err, &dce) || !errors.Is(err, boom) {
		t.Fatalf("expected DataChangeError wrapping %v, got %v", boom, err)
	}
	if got := v.Rows[0].Key; got != "2" {
		t.Errorf("expected the committed view, first row %q", got)
	}
	if got := keysOf(s.State().Rows())[0]; got != "2" {
		t.Errorf("transition should stay committed, first row %q", got)
	}
}
