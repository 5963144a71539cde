package rank

import (
	"math/rand"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizedUsage(t *testing.T) {
	assert.Zero(t, NormalizedUsage(0, 0))
	assert.Zero(t, NormalizedUsage(0, 10))
	assert.Equal(t, 1.0, NormalizedUsage(10, 10))
	assert.Equal(t, 1.0, NormalizedUsage(12, 10))

	t.Run("monotonic and bounded", func(t *testing.T) {
		prev := 0.0
		for c := uint64(1); c <= 1000; c++ {
			v := NormalizedUsage(c, 1000)
			assert.GreaterOrEqual(t, v, prev)
			assert.LessOrEqual(t, v, 1.0)
			prev = v
		}
	})

	t.Run("log compressed", func(t *testing.T) {
		// Half the launches keep far more than half the weight.
		assert.Greater(t, NormalizedUsage(500, 1000), 0.8)
	})
}

func TestRecencyBonus(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	p := RecencyParams{Max: 2, HalfLife: time.Hour, Horizon: 24 * time.Hour}

	assert.Zero(t, RecencyBonus(time.Time{}, now, p), "never used")
	assert.InDelta(t, 2.0, RecencyBonus(now, now, p), 1e-9)
	assert.InDelta(t, 1.0, RecencyBonus(now.Add(-time.Hour), now, p), 1e-9)
	assert.InDelta(t, 0.5, RecencyBonus(now.Add(-2*time.Hour), now, p), 1e-9)
	assert.Zero(t, RecencyBonus(now.Add(-25*time.Hour), now, p), "past horizon")
	assert.InDelta(t, 2.0, RecencyBonus(now.Add(time.Hour), now, p), 1e-9, "future counts as now")

	p.Max = 0
	assert.Zero(t, RecencyBonus(now, now, p))
}

func TestFinal(t *testing.T) {
	assert.Equal(t, 10.0, Final(10, 0, 0, 0.5))
	assert.Equal(t, 15.0, Final(10, 1, 0, 0.5))
	assert.Equal(t, 16.5, Final(10, 1, 1.5, 0.5))

	t.Run("empty query uses usage", func(t *testing.T) {
		assert.Greater(t, Final(0, 0.7, 0, 0.5), Final(0, 0.2, 0, 0.5))
	})

	t.Run("usage never beats a much better match", func(t *testing.T) {
		// Saturated usage at the default factor scales by at most 1.5.
		assert.Greater(t, Final(20, 0, 0, 0.5), Final(10, 1, 0, 0.5))
	})
}

func TestCompare_TieBreaks(t *testing.T) {
	tests := []struct {
		name   string
		better Candidate
		worse  Candidate
	}{
		{
			name:   "exact first",
			better: Candidate{Name: "git", NameLen: 3, Exact: true, Final: 1},
			worse:  Candidate{Name: "github", NameLen: 6, Final: 1e9},
		},
		{
			name:   "higher final",
			better: Candidate{Name: "bbbb", NameLen: 4, Final: 2},
			worse:  Candidate{Name: "a", NameLen: 1, Final: 1},
		},
		{
			name:   "shorter name",
			better: Candidate{Name: "web", NameLen: 3, Final: 1},
			worse:  Candidate{Name: "web1", NameLen: 4, Final: 1},
		},
		{
			name:   "lexical name",
			better: Candidate{Name: "abc", NameLen: 3, Final: 1},
			worse:  Candidate{Name: "abd", NameLen: 3, Final: 1},
		},
		{
			name:   "lexical target",
			better: Candidate{Name: "abc", NameLen: 3, Target: "ssh a", Final: 1},
			worse:  Candidate{Name: "abc", NameLen: 3, Target: "ssh b", Final: 1},
		},
		{
			name:   "precedence",
			better: Candidate{Name: "abc", NameLen: 3, Target: "ssh a", Precedence: 0, Final: 1},
			worse:  Candidate{Name: "abc", NameLen: 3, Target: "ssh a", Precedence: 1, Final: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, Less(tt.better, tt.worse))
			assert.False(t, Less(tt.worse, tt.better))
		})
	}
}

func randomCandidates(n int, seed int64) []Candidate {
	r := rand.New(rand.NewSource(seed))
	out := make([]Candidate, n)
	for i := range out {
		name := string(rune('a'+r.Intn(26))) + string(rune('a'+r.Intn(26))) + string(rune('a'+r.Intn(26)))
		out[i] = Candidate{
			Name:    name,
			NameLen: 3,
			Target:  "ssh " + name,
			Final:   float64(r.Intn(50)),
			Exact:   r.Intn(40) == 0,
			Index:   i,
		}
	}
	return out
}

func TestTopK(t *testing.T) {
	for _, k := range []int{0, 1, 5, 20, 100, 1000, 2000} {
		cands := randomCandidates(1000, 42)

		want := slices.Clone(cands)
		slices.SortFunc(want, Compare)
		if k > 0 && k < len(want) {
			want = want[:k]
		}

		got := TopK(slices.Clone(cands), k)
		require.Len(t, got, len(want), "k=%d", k)
		for i := range want {
			assert.Equal(t, 0, Compare(want[i], got[i]), "k=%d position %d", k, i)
		}
	}
}

func TestTopK_InputOrderIndependent(t *testing.T) {
	a := randomCandidates(500, 7)
	b := slices.Clone(a)
	rand.New(rand.NewSource(99)).Shuffle(len(b), func(i, j int) { b[i], b[j] = b[j], b[i] })

	ga := TopK(a, 10)
	gb := TopK(b, 10)
	require.Len(t, gb, len(ga))
	for i := range ga {
		assert.Equal(t, 0, Compare(ga[i], gb[i]))
	}
}

func BenchmarkTopK(b *testing.B) {
	base := randomCandidates(5000, 1)
	buf := make([]Candidate, len(base))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		copy(buf, base)
		TopK(buf, 20)
	}
}
