package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewWithRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)

	m.DocsIndexedTotal.Add(3)
	m.DocsRemovedTotal.WithLabelValues("par").Inc()
	m.SearchQueriesTotal.WithLabelValues("zero_result").Inc()
	m.DocumentsLive.Set(2)

	if got := testutil.ToFloat64(m.DocsIndexedTotal); got != 3 {
		t.Errorf("docs_indexed_total = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.DocsRemovedTotal.WithLabelValues("par")); got != 1 {
		t.Errorf("docs_removed_total{policy=par} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.DocumentsLive); got != 2 {
		t.Errorf("documents_live = %v, want 2", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("expected gathered metric families")
	}
}

func TestNewWithRegistryTwice(t *testing.T) {
	NewWithRegistry(prometheus.NewRegistry())
	NewWithRegistry(prometheus.NewRegistry())
}
