package unionfs

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/picofiber/picofiber/pkg/vfs"
	"github.com/picofiber/picofiber/pkg/vfs/ramfs"
)

func TestMetricsCountsOperationsByLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	u := New(WithMetrics(m))
	if err := u.Mount("/", "/", ramfs.New()); err != nil {
		t.Fatal(err)
	}

	h, err := u.Open("/a.txt", vfs.WriteOnly)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := u.Close(h); err != nil {
		t.Fatalf("close: %v", err)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var found bool
	for _, fam := range families {
		if fam.GetName() != "picofiber_vfs_ops_total" {
			continue
		}
		for _, metric := range fam.Metric {
			if labelValue(metric, "op") == "open" && metric.GetCounter().GetValue() == 1 {
				found = true
			}
		}
	}
	if !found {
		t.Fatal("expected one picofiber_vfs_ops_total{op=\"open\"} observation")
	}
}

func labelValue(m *dto.Metric, name string) string {
	for _, l := range m.Label {
		if l.GetName() == name {
			return l.GetValue()
		}
	}
	return ""
}
