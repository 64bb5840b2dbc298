package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danmuck/g2ctl/internal/testutil/testlog"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog/log"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	testlog.Start(t)
	RegisterMetrics()
	RegisterMetrics()

	RecordHTTPRequest("g2ctl", "GET", "/health", 200, 12*time.Millisecond)
	RecordDispatch("param_update", true)
	RecordTask("set_param", 3*time.Millisecond, true)

	before := testutil.ToFloat64(sectionOps.WithLabelValues("CableList0", "decode", "true"))
	RecordSection("CableList0", "decode", 7, true)
	RecordSection("CableList0", "decode", 7, false)
	if got := testutil.ToFloat64(sectionOps.WithLabelValues("CableList0", "decode", "true")); got != before+1 {
		t.Fatalf("section decode count: got=%v want=%v", got, before+1)
	}
}

func TestMiddlewareTagsRequests(t *testing.T) {
	testlog.Start(t)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestLogger(log.Logger), RequestMetrics("mw-test"))
	r.GET("/patches/:name", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/patches/lead", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Header().Get(RequestIDHeader) == "" {
		t.Fatalf("expected a generated request id")
	}
	count := testutil.ToFloat64(httpRequests.WithLabelValues("mw-test", "GET", "/patches/:name", "204"))
	if count != 1 {
		t.Fatalf("request count: got=%v", count)
	}

	req = httptest.NewRequest(http.MethodGet, "/patches/lead", nil)
	req.Header.Set(RequestIDHeader, "abc")
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if got := rr.Header().Get(RequestIDHeader); got != "abc" {
		t.Fatalf("request id not echoed: %q", got)
	}
}
