package pool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolResetOnPut(t *testing.T) {
	type counter struct{ n int }
	p := New(
		func() *counter { return &counter{} },
		func(c *counter) { c.n = 0 },
	)

	c := p.Get()
	c.n = 42
	p.Put(c)

	got := p.Get()
	assert.Equal(t, 0, got.n, "objects come back reset")
	p.Put(got)
}

func TestPoolStats(t *testing.T) {
	p := New(func() []byte { return make([]byte, 0, 64) }, nil)

	a := p.Get()
	b := p.Get()
	allocated, inUse := p.Stats()
	assert.GreaterOrEqual(t, allocated, int64(2))
	assert.Equal(t, int64(2), inUse)

	p.Put(a)
	p.Put(b)
	_, inUse = p.Stats()
	assert.Equal(t, int64(0), inUse)
}

func TestRowPoolClearsMaps(t *testing.T) {
	row := GetRow()
	row["id"] = 1
	row["name"] = "x"
	PutRow(row)

	again := GetRow()
	require.Empty(t, again, "recycled row maps must be empty")
	PutRow(again)

	PutRow(nil) // must not panic
}

func TestBufferPoolResets(t *testing.T) {
	buf := GetBuffer()
	buf.WriteString("hello")
	PutBuffer(buf)

	again := GetBuffer()
	assert.Zero(t, again.Len())
	PutBuffer(again)

	PutBuffer(nil) // must not panic
}

func TestPoolConcurrentUse(t *testing.T) {
	p := New(
		func() map[int]int { return make(map[int]int) },
		func(m map[int]int) {
			for k := range m {
				delete(m, k)
			}
		},
	)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m := p.Get()
				m[n] = j
				p.Put(m)
			}
		}(i)
	}
	wg.Wait()

	m := p.Get()
	assert.Empty(t, m)
	p.Put(m)
}
