package repository

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/timmy/mediafetch/internal/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func running() *domain.JobStatus {
	s := domain.JobStatusRunning
	return &s
}

func TestJobStoreCreateAndGet(t *testing.T) {
	store := NewJobStore(newFakeClock())

	id := store.CreateJob([]string{"A", "B"}, nil, domain.FormatMP3)
	if len(id) != 32 {
		t.Errorf("id length = %d, want 32", len(id))
	}

	job, err := store.GetJob(id)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if job.Status != domain.JobStatusQueued {
		t.Errorf("status = %s, want queued", job.Status)
	}
	if len(job.Items) != 2 || job.Items[0].URL != "A" || job.Items[1].URL != "B" {
		t.Errorf("items = %+v", job.Items)
	}
	if len(job.Files) != 0 {
		t.Errorf("files = %v, want empty", job.Files)
	}
}

func TestJobStoreGetMissing(t *testing.T) {
	store := NewJobStore(nil)
	if _, err := store.GetJob("never-created"); !errors.Is(err, domain.ErrJobNotFound) {
		t.Errorf("err = %v, want ErrJobNotFound", err)
	}
}

func TestJobStoreSnapshotIsolation(t *testing.T) {
	store := NewJobStore(nil)
	id := store.CreateJob([]string{"A"}, nil, domain.FormatMP4)

	snap, _ := store.GetJob(id)
	snap.Items[0].Status = domain.ItemStatusError
	snap.Files = append(snap.Files, "leak")

	again, _ := store.GetJob(id)
	if again.Items[0].Status != domain.ItemStatusQueued || len(again.Files) != 0 {
		t.Errorf("snapshot mutation leaked into store: %+v", again)
	}
}

func TestJobStoreUpdateBumpsUpdatedAt(t *testing.T) {
	clock := newFakeClock()
	store := NewJobStore(clock)
	id := store.CreateJob([]string{"A"}, nil, domain.FormatMP3)

	clock.Advance(time.Minute)
	if !store.UpdateJob(id, domain.JobUpdate{Status: running()}) {
		t.Fatal("expected update to apply")
	}

	job, _ := store.GetJob(id)
	if !job.UpdatedAt.Equal(clock.Now()) {
		t.Errorf("updated_at = %v, want %v", job.UpdatedAt, clock.Now())
	}
	if job.CreatedAt.Equal(job.UpdatedAt) {
		t.Error("created_at changed with update")
	}
}

func TestJobStoreUpdateMissingIsNoop(t *testing.T) {
	store := NewJobStore(nil)
	if store.UpdateJob("gone", domain.JobUpdate{Status: running()}) {
		t.Error("update on missing job reported a change")
	}
}

func TestJobStoreDeleteIdempotent(t *testing.T) {
	store := NewJobStore(nil)
	id := store.CreateJob([]string{"A"}, nil, domain.FormatMP3)

	store.DeleteJob(id)
	store.DeleteJob(id)

	if _, err := store.GetJob(id); !errors.Is(err, domain.ErrJobNotFound) {
		t.Errorf("err = %v, want ErrJobNotFound", err)
	}
}

func TestJobStoreListRecent(t *testing.T) {
	clock := newFakeClock()
	store := NewJobStore(clock)

	var ids []string
	for i := 0; i < 5; i++ {
		ids = append(ids, store.CreateJob([]string{"A", "B", "C"}[:i%3+1], nil, domain.FormatMP3))
		clock.Advance(time.Second)
	}

	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{name: "truncated", limit: 3, want: 3},
		{name: "larger than table", limit: 10, want: 5},
		{name: "unbounded", limit: 0, want: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := store.ListRecent(tt.limit)
			if len(got) != tt.want {
				t.Fatalf("len = %d, want %d", len(got), tt.want)
			}
			for i := 1; i < len(got); i++ {
				if got[i].CreatedAt.After(got[i-1].CreatedAt) {
					t.Errorf("not sorted descending at %d", i)
				}
			}
			if got[0].ID != ids[len(ids)-1] {
				t.Errorf("first = %s, want newest %s", got[0].ID, ids[len(ids)-1])
			}
		})
	}

	summary := store.ListRecent(1)[0]
	if summary.URLCount != 2 {
		t.Errorf("url_count = %d, want 2", summary.URLCount)
	}
}

func TestJobStoreConcurrentCreate(t *testing.T) {
	store := NewJobStore(nil)

	const n = 100
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i] = store.CreateJob([]string{"A"}, nil, domain.FormatMP3)
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for _, id := range ids {
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
	if got := len(store.ListRecent(0)); got != n {
		t.Errorf("listed %d jobs, want %d", got, n)
	}
}

func TestJobStoreCreateRerollsCollision(t *testing.T) {
	store := NewJobStore(nil)
	ids := []string{"same", "same", "other"}
	store.newID = func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}

	first := store.CreateJob([]string{"A"}, nil, domain.FormatMP3)
	second := store.CreateJob([]string{"B"}, nil, domain.FormatMP3)
	if first != "same" || second != "other" {
		t.Errorf("ids = %s, %s", first, second)
	}
}

func TestJobStoreEvictExpired(t *testing.T) {
	clock := newFakeClock()
	store := NewJobStore(clock)

	old := store.CreateJob([]string{"A"}, nil, domain.FormatMP3)
	clock.Advance(2 * time.Hour)
	fresh := store.CreateJob([]string{"B"}, nil, domain.FormatMP3)

	evicted := store.EvictExpired(clock.Now().Add(-time.Hour))
	if len(evicted) != 1 || evicted[0].ID != old {
		t.Fatalf("evicted = %+v, want only %s", evicted, old)
	}
	if _, err := store.GetJob(old); !errors.Is(err, domain.ErrJobNotFound) {
		t.Error("expired job still visible")
	}
	if _, err := store.GetJob(fresh); err != nil {
		t.Errorf("fresh job evicted: %v", err)
	}
}

func TestJobStoreCount(t *testing.T) {
	store := NewJobStore(nil)
	a := store.CreateJob([]string{"A"}, nil, domain.FormatMP3)
	store.CreateJob([]string{"B"}, nil, domain.FormatMP3)
	store.UpdateJob(a, domain.JobUpdate{Status: running()})

	counts := store.Count()
	if counts[domain.JobStatusQueued] != 1 || counts[domain.JobStatusRunning] != 1 {
		t.Errorf("counts = %v", counts)
	}
}
