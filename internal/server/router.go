package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ShenMinX/duallauncher/internal/engine"
	"github.com/ShenMinX/duallauncher/internal/profile"
)

// Router exposes the control API over HTTP. Endpoints (relative to basePath):
//
//	GET    /status            all profile snapshots, or one with ?name=
//	GET    /events            recent activity feed
//	GET    /profiles          configured profiles
//	POST   /profiles          upsert a profile (JSON body), persists launch.conf
//	DELETE /profiles          remove a profile, query: name=...
//	POST   /start             query: name=...
//	POST   /stop              query: name=...
//	POST   /start-all
//	POST   /stop-all
//	POST   /groups/start      query: name=... (repeatable)
//	POST   /groups/stop       query: name=...
//	GET    /healthz
type Router struct {
	eng      *engine.Engine
	basePath string
}

// NewRouter constructs a Router with a configurable basePath.
// Example basePath "/duallauncher" yields /duallauncher/status etc.
func NewRouter(eng *engine.Engine, basePath string) *Router {
	return &Router{eng: eng, basePath: sanitizeBase(basePath)}
}

// Handler returns an http.Handler powered by gin, mountable in any mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.GET("/status", r.handleStatus)
	group.GET("/events", r.handleEvents)
	group.GET("/profiles", r.handleProfiles)
	group.POST("/profiles", r.handlePutProfile)
	group.DELETE("/profiles", r.handleDeleteProfile)
	group.POST("/start", r.handleStart)
	group.POST("/stop", r.handleStop)
	group.POST("/start-all", r.handleStartAll)
	group.POST("/stop-all", r.handleStopAll)
	group.POST("/groups/start", r.handleGroupStart)
	group.POST("/groups/stop", r.handleGroupStop)
	group.GET("/healthz", func(c *gin.Context) { writeJSON(c, http.StatusOK, okResp{OK: true}) })
	return g
}

// NewServer starts a standalone HTTP server on addr using this router.
func NewServer(addr, basePath string, eng *engine.Engine) (*http.Server, error) {
	r := NewRouter(eng, basePath)
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.ListenAndServe() }()
	return server, nil
}

type errorResp struct {
	Error string `json:"error"`
}

type okResp struct {
	OK bool `json:"ok"`
}

func (r *Router) handleStatus(c *gin.Context) {
	if name := c.Query("name"); name != "" {
		st, err := r.eng.Status(name)
		if err != nil {
			writeJSON(c, http.StatusNotFound, errorResp{Error: err.Error()})
			return
		}
		writeJSON(c, http.StatusOK, st)
		return
	}
	writeJSON(c, http.StatusOK, r.eng.Statuses())
}

func (r *Router) handleEvents(c *gin.Context) {
	writeJSON(c, http.StatusOK, r.eng.Events())
}

func (r *Router) handleProfiles(c *gin.Context) {
	writeJSON(c, http.StatusOK, r.eng.Store().Profiles())
}

func (r *Router) handlePutProfile(c *gin.Context) {
	var p profile.Profile
	if err := c.ShouldBindJSON(&p); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	if p.Name != "" && !isSafeName(p.Name) {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid name: allowed [A-Za-z0-9._-]"})
		return
	}
	if err := r.eng.Store().Put(p); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: err.Error()})
		return
	}
	if err := r.eng.Store().Save(); err != nil {
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handleDeleteProfile(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "name query param required"})
		return
	}
	if _, ok := r.eng.Store().Get(name); !ok {
		writeJSON(c, http.StatusNotFound, errorResp{Error: "unknown profile " + name})
		return
	}
	_ = r.eng.StopProfile(name)
	r.eng.Store().Delete(name)
	if err := r.eng.Store().Save(); err != nil {
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handleStart(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "name query param required"})
		return
	}
	if err := r.eng.StartProfile(name); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handleStop(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "name query param required"})
		return
	}
	if err := r.eng.StopProfile(name); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handleStartAll(c *gin.Context) {
	r.eng.StartAll()
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handleStopAll(c *gin.Context) {
	r.eng.StopAll()
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handleGroupStart(c *gin.Context) {
	names := c.QueryArray("name")
	if len(names) == 0 {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "name query param required"})
		return
	}
	r.eng.StartGroups(names...)
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handleGroupStop(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "name query param required"})
		return
	}
	r.eng.StopGroup(name)
	writeJSON(c, http.StatusOK, okResp{OK: true})
}
