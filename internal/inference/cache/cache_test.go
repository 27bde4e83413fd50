package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/classifier"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/internal/inference"
	"github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/metrics"
)

type fakeKV struct {
	mu      sync.Mutex
	data    map[string]string
	failing bool
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string]string)}
}

func (f *fakeKV) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return "", errors.New("connection refused")
	}
	v, ok := f.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (f *fakeKV) Set(_ context.Context, key string, value any, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errors.New("connection refused")
	}
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	return nil
}

func (f *fakeKV) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	var n int64
	for k := range f.data {
		if strings.HasPrefix(k, prefix) {
			delete(f.data, k)
			n++
		}
	}
	return n, nil
}

func (f *fakeKV) Ping(context.Context) error { return nil }

func result(label string) inference.ConfidenceResult {
	return inference.ConfidenceResult{
		PrimaryPrediction: label,
		ConfidenceScore:   0.9,
		TopPredictions:    []classifier.Ranked{{Label: label, Probability: 0.9}},
		ModelID:           "m1",
	}
}

func newCache(t *testing.T, kv *fakeKV) *PredictionCache {
	t.Helper()
	opts := Options{LocalSize: 16, Metrics: metrics.NewWithRegistry(prometheus.NewRegistry())}
	var c *PredictionCache
	var err error
	if kv == nil {
		c, err = New(nil, opts)
	} else {
		c, err = New(kv, opts)
	}
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestGetOrComputeLocal(t *testing.T) {
	c := newCache(t, nil)
	calls := 0
	compute := func() (inference.ConfidenceResult, error) {
		calls++
		return result("flu"), nil
	}
	ctx := context.Background()

	res, hit, err := c.GetOrCompute(ctx, "m1", "Fever  cough", compute)
	if err != nil || hit || res.PrimaryPrediction != "flu" {
		t.Fatalf("first call: res=%+v hit=%v err=%v", res, hit, err)
	}
	res, hit, err = c.GetOrCompute(ctx, "m1", "fever cough", compute)
	if err != nil || !hit || res.PrimaryPrediction != "flu" {
		t.Fatalf("second call: res=%+v hit=%v err=%v", res, hit, err)
	}
	if calls != 1 {
		t.Fatalf("compute called %d times", calls)
	}
	s := c.Stats()
	if s.LocalHits != 1 || s.Misses != 1 || s.RedisEnabled || s.HitRatio != 0.5 {
		t.Fatalf("stats = %+v", s)
	}
}

func TestKeyDependsOnModel(t *testing.T) {
	c := newCache(t, nil)
	if c.Key("m1", "fever") == c.Key("m2", "fever") {
		t.Fatal("keys for different models collide")
	}
	if c.Key("m1", "  FEVER ") != c.Key("m1", "fever") {
		t.Fatal("case and whitespace should not change the key")
	}
	if !strings.HasPrefix(c.Key("m1", "fever"), "predict:") {
		t.Fatalf("key %q lacks prefix", c.Key("m1", "fever"))
	}
}

func TestComputeErrorNotCached(t *testing.T) {
	c := newCache(t, nil)
	boom := errors.New("boom")
	_, _, err := c.GetOrCompute(context.Background(), "m1", "fever", func() (inference.ConfidenceResult, error) {
		return inference.ConfidenceResult{}, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if c.Stats().LocalEntries != 0 {
		t.Fatal("failed computation was cached")
	}
}

func TestRedisTier(t *testing.T) {
	kv := newFakeKV()
	first := newCache(t, kv)
	ctx := context.Background()
	if _, _, err := first.GetOrCompute(ctx, "m1", "fever", func() (inference.ConfidenceResult, error) {
		return result("flu"), nil
	}); err != nil {
		t.Fatal(err)
	}
	if len(kv.data) != 1 {
		t.Fatalf("redis entries = %d", len(kv.data))
	}

	// A second replica with a cold local tier hits Redis.
	second := newCache(t, kv)
	res, hit, err := second.GetOrCompute(ctx, "m1", "fever", func() (inference.ConfidenceResult, error) {
		t.Fatal("compute must not run on a redis hit")
		return inference.ConfidenceResult{}, nil
	})
	if err != nil || !hit || res.PrimaryPrediction != "flu" || len(res.TopPredictions) != 1 {
		t.Fatalf("res=%+v hit=%v err=%v", res, hit, err)
	}
	if s := second.Stats(); s.RedisHits != 1 || s.LocalEntries != 1 || s.RedisBreaker != "closed" {
		t.Fatalf("stats = %+v", s)
	}
}

func TestRedisFailureFallsBackToCompute(t *testing.T) {
	kv := newFakeKV()
	kv.failing = true
	c := newCache(t, kv)
	for i := 0; i < 3; i++ {
		res, _, err := c.GetOrCompute(context.Background(), "m1", "rash", func() (inference.ConfidenceResult, error) {
			return result("allergy"), nil
		})
		if err != nil || res.PrimaryPrediction != "allergy" {
			t.Fatalf("res=%+v err=%v", res, err)
		}
	}
}

func TestInvalidate(t *testing.T) {
	kv := newFakeKV()
	c := newCache(t, kv)
	ctx := context.Background()
	for _, text := range []string{"fever", "cough", "rash"} {
		if _, _, err := c.GetOrCompute(ctx, "m1", text, func() (inference.ConfidenceResult, error) {
			return result("flu"), nil
		}); err != nil {
			t.Fatal(err)
		}
	}
	kv.data["other:key"] = "kept"
	if err := c.Invalidate(ctx); err != nil {
		t.Fatal(err)
	}
	if c.Stats().LocalEntries != 0 {
		t.Fatal("local tier not purged")
	}
	if len(kv.data) != 1 || kv.data["other:key"] != "kept" {
		t.Fatalf("redis after invalidate = %v", kv.data)
	}
}

func TestConcurrentMissesShareComputation(t *testing.T) {
	c := newCache(t, nil)
	var calls atomic.Int32
	release := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := c.GetOrCompute(context.Background(), "m1", "fever", func() (inference.ConfidenceResult, error) {
				calls.Add(1)
				<-release
				return result("flu"), nil
			})
			if err != nil {
				t.Error(err)
			}
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	if calls.Load() > 2 {
		t.Fatalf("compute ran %d times", calls.Load())
	}
}
