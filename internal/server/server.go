// Package server exposes loaded patches and performances over HTTP for
// inspection.
//
// Ownership boundary:
// - Holds decoded models by name; handlers only read them.
// - Models are added before Serve or under the server lock.
// - No device I/O.
package server

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/danmuck/g2ctl/internal/config"
	"github.com/danmuck/g2ctl/internal/observability"
	"github.com/danmuck/g2ctl/internal/state"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

var (
	ErrNotFound  = errors.New("server: not found")
	ErrDuplicate = errors.New("server: name already loaded")
)

type Kind string

const (
	KindPatch       Kind = "patch"
	KindPerformance Kind = "performance"
)

// Entry is one loaded model as listed by /patches.
type Entry struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
	Path string `json:"path,omitempty"`
}

type Server struct {
	Name     string
	Addr     string
	Appeared time.Time

	router *gin.Engine

	mu      sync.RWMutex
	entries map[string]Entry
	patches map[string]*state.Patch
	perfs   map[string]*state.Performance
}

func New(name, addr string, corsOrigins []string) *Server {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetrics(name))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(corsOrigins),
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		Name:     name,
		Addr:     addr,
		Appeared: time.Now(),
		router:   r,
		entries:  map[string]Entry{},
		patches:  map[string]*state.Patch{},
		perfs:    map[string]*state.Performance{},
	}
	s.RegisterRoutes()
	return s
}

// FromConfig builds a server and loads every file cfg names.
func FromConfig(cfg config.ServeConfig) (*Server, error) {
	s := New(cfg.Name, cfg.Addr, cfg.CorsOrigins)
	scfg := state.Config{DumpDir: cfg.DumpDir}
	for _, pc := range cfg.Patches {
		p, err := state.ReadPatchFile(state.SlotA, pc.Path, scfg)
		if err != nil {
			return nil, fmt.Errorf("patch %s: %w", pc.Name, err)
		}
		if err := s.AddPatch(pc.Name, pc.Path, p); err != nil {
			return nil, err
		}
	}
	for _, pc := range cfg.Performances {
		perf, err := state.ReadPerformanceFile(pc.Path, scfg)
		if err != nil {
			return nil, fmt.Errorf("performance %s: %w", pc.Name, err)
		}
		if err := s.AddPerformance(pc.Name, pc.Path, perf); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Server) HTTPRouter() *gin.Engine {
	return s.router
}

func (s *Server) AddPatch(name, path string, p *state.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, name)
	}
	s.entries[name] = Entry{Name: name, Kind: KindPatch, Path: path}
	s.patches[name] = p
	log.Info().Str("server", s.Name).Str("patch", name).Msg("patch loaded")
	return nil
}

func (s *Server) AddPerformance(name, path string, perf *state.Performance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, name)
	}
	s.entries[name] = Entry{Name: name, Kind: KindPerformance, Path: path}
	s.perfs[name] = perf
	log.Info().Str("server", s.Name).Str("performance", name).Msg("performance loaded")
	return nil
}

// Entries lists loaded models by name.
func (s *Server) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Server) lookup(name string) (Entry, *state.Patch, *state.Performance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[name]
	if !ok {
		return Entry{}, nil, nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return e, s.patches[name], s.perfs[name], nil
}

func (s *Server) Serve() error {
	log.Info().Str("server", s.Name).Str("addr", s.Addr).Msg("serving")
	return s.router.Run(s.Addr)
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
