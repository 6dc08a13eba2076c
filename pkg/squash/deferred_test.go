package squash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessera-db/tessera/pkg/columnar"
	"github.com/tessera-db/tessera/pkg/testutil"
)

func TestDeferredSquasherMaterializesGroup(t *testing.T) {
	d := NewDeferredSquasher(testutil.TestLogger(t))

	payload := &Deferred{
		Batches: []*columnar.Batch{
			makeBatch(t, 0, 400),
			makeBatch(t, 400, 400),
			makeBatch(t, 800, 400),
		},
		Schema: testSchema(),
	}

	out, err := d.Add(payload)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, 1200, out.Rows())

	got := ids(out)
	for i, id := range got {
		assert.Equal(t, int64(i), id)
	}
}

// Lazy balancing plus deferred squashing must produce the same stream the
// eager squasher produces from the same input.
func TestDeferredPathMatchesEagerPath(t *testing.T) {
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	thresholds := Thresholds{MinRows: 10}
	sizes := []int{3, 4, 5, 2, 9, 1, 12, 6}

	eager := NewSquasher(thresholds, testutil.TestLogger(t))
	var eagerOut []int64
	next := 0
	for _, n := range sizes {
		out, err := eager.Add(makeBatch(t, next, n))
		require.NoError(t, err)
		next += n
		if out != nil {
			eagerOut = append(eagerOut, ids(out)...)
		}
	}
	out, err := eager.Add(columnar.Sentinel())
	require.NoError(t, err)
	if out != nil {
		eagerOut = append(eagerOut, ids(out)...)
	}

	balancer := NewBalancer(nil, thresholds, nil, testutil.TestLogger(t))
	dsq := NewDeferredSquasher(testutil.TestLogger(t))
	var deferredOut []int64
	next = 0
	consume := func(p Payload) {
		def, ok := p.(*Deferred)
		if !ok {
			return
		}
		batch, err := dsq.Add(def)
		require.NoError(t, err)
		require.NotNil(t, batch)
		deferredOut = append(deferredOut, ids(batch)...)
	}
	for _, n := range sizes {
		p, err := balancer.Add(ctx, makeBatch(t, next, n))
		require.NoError(t, err)
		next += n
		consume(p)
	}
	if balancer.DataLeft() {
		p, err := balancer.Add(ctx, columnar.Sentinel())
		require.NoError(t, err)
		consume(p)
	}

	assert.Equal(t, eagerOut, deferredOut, "both paths deliver the same rows in the same order")
	require.Len(t, deferredOut, next)
}

func TestDeferredSquasherFlushOnNonDeferred(t *testing.T) {
	d := NewDeferredSquasher(testutil.TestLogger(t))

	out, err := d.Add(nil)
	require.NoError(t, err)
	assert.Nil(t, out, "nothing accumulated, nothing flushed")

	out, err = d.Add(&Materialized{Batch: makeBatch(t, 0, 3)})
	require.NoError(t, err)
	assert.Nil(t, out, "materialized payloads only signal a flush, their data is not adopted")
}

func TestDeferredSquasherSkipsSentinelsInGroup(t *testing.T) {
	d := NewDeferredSquasher(testutil.TestLogger(t))

	payload := &Deferred{
		Batches: []*columnar.Batch{
			makeBatch(t, 0, 2),
			columnar.Sentinel(),
			makeBatch(t, 2, 3),
		},
		Schema: testSchema(),
	}

	out, err := d.Add(payload)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, 5, out.Rows())
}

func TestDeferredSquasherEmptyGroup(t *testing.T) {
	d := NewDeferredSquasher(testutil.TestLogger(t))

	out, err := d.Add(&Deferred{})
	require.NoError(t, err)
	assert.Nil(t, out)
}
