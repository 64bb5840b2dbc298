package server

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/danmuck/g2ctl/internal/protocol/field"
	"github.com/danmuck/g2ctl/internal/protocol/section"
	"github.com/danmuck/g2ctl/internal/report"
	"github.com/danmuck/g2ctl/internal/state"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var contentTypes = map[report.Format]string{
	report.FormatJSON: "application/json; charset=utf-8",
	report.FormatYAML: "application/yaml; charset=utf-8",
	report.FormatTOML: "application/toml; charset=utf-8",
}

func (s *Server) RegisterRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Appeared).String(),
			"service": s.Name,
			"version": "0.0.1",
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ready":   true,
			"loaded":  len(s.Entries()),
			"uptime":  time.Since(s.Appeared).String(),
			"service": s.Name,
		})
	})

	s.router.GET("/patches", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"patches": s.Entries()})
	})

	s.router.GET("/patches/:name", func(c *gin.Context) {
		e, p, perf, err := s.lookup(c.Param("name"))
		if err != nil {
			abort(c, err)
			return
		}
		var summary any
		switch e.Kind {
		case KindPerformance:
			summary = report.SummarizePerformance(perf)
		default:
			summary = report.Summarize(p)
		}
		render(c, summary)
	})

	s.router.GET("/patches/:name/sections/:section", func(c *gin.Context) {
		v, err := s.sectionValues(c.Param("name"), c.Param("section"), c.Query("slot"))
		if err != nil {
			abort(c, err)
			return
		}
		render(c, report.ValuesMap(v))
	})
}

// sectionValues resolves a section of a loaded model. Patch sections of a
// performance are read from slot, or from the selected slot when empty.
func (s *Server) sectionValues(name, kindName, slot string) (*field.Values, error) {
	e, p, perf, err := s.lookup(name)
	if err != nil {
		return nil, err
	}
	kind, ok := section.ByName(kindName)
	if !ok {
		return nil, fmt.Errorf("%w: section %s", ErrNotFound, kindName)
	}
	if e.Kind == KindPerformance {
		switch kind {
		case section.PerformanceSettings:
			if ps := perf.Settings(); ps != nil {
				return ps.Values(), nil
			}
			return nil, fmt.Errorf("%w: %s", ErrNotFound, kind.Name())
		case section.GlobalKnobAssignments:
			if gk := perf.GlobalKnobs(); gk != nil {
				return gk.Values(), nil
			}
			return nil, fmt.Errorf("%w: %s", ErrNotFound, kind.Name())
		}
		if p, err = slotPatch(perf, slot); err != nil {
			return nil, err
		}
	}
	v, ok := p.Section(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %s not loaded", ErrNotFound, kind.Name())
	}
	return v, nil
}

func slotPatch(perf *state.Performance, slot string) (*state.Patch, error) {
	if slot == "" {
		return perf.SelectedPatch()
	}
	for _, sl := range state.Slots {
		if strings.EqualFold(sl.String(), slot) {
			return perf.Patch(sl), nil
		}
	}
	return nil, fmt.Errorf("%w: %s", state.ErrSlot, slot)
}

func render(c *gin.Context, v any) {
	format, err := report.ParseFormat(c.DefaultQuery("format", "json"))
	if err != nil {
		abort(c, err)
		return
	}
	var buf bytes.Buffer
	if err := report.Encode(&buf, v, format); err != nil {
		abort(c, err)
		return
	}
	c.Data(http.StatusOK, contentTypes[format], buf.Bytes())
}

func abort(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, report.ErrFormat), errors.Is(err, state.ErrSlot):
		status = http.StatusBadRequest
	case errors.Is(err, state.ErrNotLoaded):
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
