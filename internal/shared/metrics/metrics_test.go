package metrics

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHistogramBucketsAreCumulative(t *testing.T) {
	h := newHistogram([]float64{10, 100})
	h.Observe(5)
	h.Observe(50)
	h.Observe(500)

	snap := h.Snapshot()
	assert.Equal(t, uint64(3), snap.count)
	assert.Equal(t, []uint64{1, 1}, snap.counts)

	var buf bytes.Buffer
	writeHistogram(&buf, "h", "test", snap)
	assert.Contains(t, buf.String(), `h_bucket{le="10"} 1`)
	assert.Contains(t, buf.String(), `h_bucket{le="100"} 2`)
	assert.Contains(t, buf.String(), `h_bucket{le="+Inf"} 3`)
}

func TestRenderIncludesCatalogGauges(t *testing.T) {
	ObserveCatalogRefresh(12, 3, nil)
	ObserveCatalogRefresh(0, 0, errors.New("boom"))

	out := Render()
	assert.Contains(t, out, "catalog_skills 12")
	assert.Contains(t, out, "catalog_roles 3")
	assert.Contains(t, out, "# TYPE catalog_refresh_failed_total counter")
}
