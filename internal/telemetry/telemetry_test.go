package telemetry

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// counterValue reads the current value of a counter series.
func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

func histogramCount(t *testing.T, o prometheus.Observer) uint64 {
	t.Helper()
	var m dto.Metric
	if err := o.(prometheus.Metric).Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}

func TestMetrics_AllRegistered(t *testing.T) {
	cases := []struct {
		name string
		c    prometheus.Collector
	}{
		{"http_requests_total", HTTPRequestsTotal},
		{"http_request_duration_seconds", HTTPRequestDuration},
		{"org_lifecycle_operations_total", LifecycleOperationsTotal},
		{"org_lifecycle_operation_duration_seconds", LifecycleOperationDuration},
		{"org_saga_compensations_total", SagaCompensationsTotal},
		{"tenant_collection_documents_copied_total", TenantDocumentsCopiedTotal},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ch := make(chan *prometheus.Desc, 10)
			tc.c.Describe(ch)
			close(ch)
			found := false
			for desc := range ch {
				if strings.Contains(desc.String(), `"`+tc.name+`"`) {
					found = true
				}
			}
			if !found {
				t.Errorf("metric %s not described", tc.name)
			}
		})
	}
}

func TestLifecycleRecorder(t *testing.T) {
	var r LifecycleRecorder

	ops := LifecycleOperationsTotal.WithLabelValues("create", "conflict")
	before := counterValue(t, ops)
	durations := histogramCount(t, LifecycleOperationDuration.WithLabelValues("create"))

	r.ObserveOperation("create", "conflict", 20*time.Millisecond)

	if got := counterValue(t, ops); got != before+1 {
		t.Errorf("operations counter = %v, want %v", got, before+1)
	}
	if got := histogramCount(t, LifecycleOperationDuration.WithLabelValues("create")); got != durations+1 {
		t.Errorf("duration samples = %d, want %d", got, durations+1)
	}

	comp := SagaCompensationsTotal.WithLabelValues("update", "migrate_collection", "success")
	before = counterValue(t, comp)
	r.ObserveCompensation("update", "migrate_collection", "success")
	if got := counterValue(t, comp); got != before+1 {
		t.Errorf("compensations counter = %v, want %v", got, before+1)
	}
}

func TestObserveCopiedDocuments(t *testing.T) {
	before := counterValue(t, TenantDocumentsCopiedTotal)
	ObserveCopiedDocuments(500)
	ObserveCopiedDocuments(12)
	if got := counterValue(t, TenantDocumentsCopiedTotal); got != before+512 {
		t.Errorf("copied counter = %v, want %v", got, before+512)
	}
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "JSON", "info")
	logger.Info("organization created", "slug", "acme_inc")

	var obj map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &obj); err != nil {
		t.Fatalf("output is not valid JSON: %v\noutput: %s", err, buf.String())
	}
	if obj["msg"] != "organization created" {
		t.Errorf("msg = %v, want organization created", obj["msg"])
	}
	if obj["slug"] != "acme_inc" {
		t.Errorf("slug = %v, want acme_inc", obj["slug"])
	}
}

func TestNewLogger_TextAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "text", "warn")
	logger.Info("should be suppressed")
	logger.Warn("should appear", "env", "development")

	output := buf.String()
	if strings.Contains(output, "should be suppressed") {
		t.Error("Info record appeared despite warn level")
	}
	if !strings.Contains(output, "env=development") {
		t.Errorf("text output does not contain env=development: %q", output)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSetupLogger_InstallsDefault(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	logger := SetupLogger("text", "error")
	if slog.Default() != logger {
		t.Error("SetupLogger should install the logger as default")
	}
}
