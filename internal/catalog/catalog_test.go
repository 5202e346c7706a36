package catalog

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/arbiter/internal/ir"
)

func pattern(name string, cat ir.Category, confidence float64) ir.PatternRecord {
	return ir.PatternRecord{
		Name:        name,
		Category:    cat,
		Confidence:  confidence,
		Description: name + " description",
		Phases:      []ir.Phase{{Name: "apply", Steps: []string{"do " + name}}},
	}
}

func TestRegisterAndGet(t *testing.T) {
	c := New()
	require.NoError(t, c.Register(pattern("config-centralization", ir.CategoryConfiguration, 92)))

	got, err := c.Get("config-centralization")
	require.NoError(t, err)
	assert.Equal(t, ir.CategoryConfiguration, got.Category)
	assert.Equal(t, 92.0, got.Confidence)
	assert.Equal(t, 1, c.Len())
}

func TestRegisterDuplicate(t *testing.T) {
	c := New()
	require.NoError(t, c.Register(pattern("X", ir.CategoryWorkflow, 60)))

	err := c.Register(pattern("X", ir.CategoryQuality, 99))
	require.Error(t, err)
	assert.True(t, ir.IsDuplicateName(err))

	assert.Equal(t, 1, c.Len())
	got, err := c.Get("X")
	require.NoError(t, err)
	assert.Equal(t, ir.CategoryWorkflow, got.Category, "first registration wins")
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name string
		rec  ir.PatternRecord
	}{
		{"empty name", pattern("", ir.CategoryQuality, 50)},
		{"unknown category", pattern("p", ir.Category("misc"), 50)},
		{"negative confidence", pattern("p", ir.CategoryQuality, -1)},
		{"confidence above 100", pattern("p", ir.CategoryQuality, 100.5)},
		{"unnamed phase", ir.PatternRecord{
			Name: "p", Category: ir.CategoryQuality, Confidence: 50,
			Phases: []ir.Phase{{Steps: []string{"x"}}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New()
			err := c.Register(tt.rec)
			require.Error(t, err)
			assert.True(t, ir.IsInvalidInput(err), "got %v", err)
			assert.Equal(t, 0, c.Len())
		})
	}
}

func TestGetNotFound(t *testing.T) {
	_, err := New().Get("missing")
	require.Error(t, err)
	assert.True(t, ir.IsNotFound(err))
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	c := New()
	rec := pattern("p", ir.CategoryQuality, 70)
	require.NoError(t, c.Register(rec))

	// Mutating the caller's value after registration has no effect.
	rec.Phases[0].Steps[0] = "mutated"

	got, err := c.Get("p")
	require.NoError(t, err)
	got.Phases[0].Name = "mutated"

	again, err := c.Get("p")
	require.NoError(t, err)
	assert.Equal(t, "apply", again.Phases[0].Name)
	assert.Equal(t, "do p", again.Phases[0].Steps[0])
}

func TestListByCategoryPreservesInsertionOrder(t *testing.T) {
	c := New()
	require.NoError(t, c.Register(pattern("zeta", ir.CategoryQuality, 40)))
	require.NoError(t, c.Register(pattern("alpha", ir.CategoryWorkflow, 90)))
	require.NoError(t, c.Register(pattern("mid", ir.CategoryQuality, 95)))
	require.NoError(t, c.Register(pattern("beta", ir.CategoryQuality, 10)))

	got, err := c.ListByCategory(ir.CategoryQuality)
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "mid", "beta"}, names(got))

	empty, err := c.ListByCategory(ir.CategoryArchitecture)
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.NotNil(t, empty)

	_, err = c.ListByCategory(ir.Category("nope"))
	assert.True(t, ir.IsNotFound(err))
}

func TestFilterByMinConfidence(t *testing.T) {
	c := New()
	require.NoError(t, c.Register(pattern("b", ir.CategoryQuality, 80)))
	require.NoError(t, c.Register(pattern("a", ir.CategoryQuality, 80)))
	require.NoError(t, c.Register(pattern("low", ir.CategoryQuality, 49.99)))
	require.NoError(t, c.Register(pattern("top", ir.CategoryWorkflow, 97)))
	require.NoError(t, c.Register(pattern("edge", ir.CategoryWorkflow, 50)))

	got := c.FilterByMinConfidence(50)
	assert.Equal(t, []string{"top", "a", "b", "edge"}, names(got))

	for _, threshold := range []float64{0, 25, 50, 80, 97, 100} {
		t.Run(fmt.Sprintf("threshold=%v", threshold), func(t *testing.T) {
			res := c.FilterByMinConfidence(threshold)
			for i, rec := range res {
				assert.GreaterOrEqual(t, rec.Confidence, threshold)
				if i > 0 {
					assert.GreaterOrEqual(t, res[i-1].Confidence, rec.Confidence)
				}
			}
		})
	}

	assert.Empty(t, c.FilterByMinConfidence(100))
}

func TestReviseConfidence(t *testing.T) {
	c := New()
	require.NoError(t, c.Register(pattern("p", ir.CategoryQuality, 70)))

	require.NoError(t, c.ReviseConfidence("p", 85))
	got, err := c.Get("p")
	require.NoError(t, err)
	assert.Equal(t, 85.0, got.Confidence)

	assert.True(t, ir.IsNotFound(c.ReviseConfidence("missing", 50)))
	assert.True(t, ir.IsInvalidInput(c.ReviseConfidence("p", 101)))
}

func TestAllInsertionOrder(t *testing.T) {
	c := New()
	for _, n := range []string{"c", "a", "b"} {
		require.NoError(t, c.Register(pattern(n, ir.CategoryQuality, 50)))
	}
	assert.Equal(t, []string{"c", "a", "b"}, names(c.All()))
}

func TestConcurrentRegister(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Every name is registered twice; exactly one of each pair wins.
			errs <- c.Register(pattern(fmt.Sprintf("p%d", i%25), ir.CategoryQuality, 50))
		}(i)
	}
	wg.Wait()
	close(errs)

	dups := 0
	for err := range errs {
		if err != nil {
			require.True(t, ir.IsDuplicateName(err))
			dups++
		}
	}
	assert.Equal(t, 25, dups)
	assert.Equal(t, 25, c.Len())
}

func names(recs []ir.PatternRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Name
	}
	return out
}
