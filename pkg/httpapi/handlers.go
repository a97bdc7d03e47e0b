package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/taskforge/taskforge/pkg/models"
)

// health reports liveness and store reachability, mirroring the reference
// backend's healthCheck shape.
func (s *Server) health(c *gin.Context) {
	deps := map[string]bool{
		"store": s.store != nil,
		"pool":  s.pool != nil,
	}

	if s.store != nil {
		if _, err := s.store.Stats(c.Request.Context()); err != nil {
			deps["store"] = false
		}
	}

	// The pool entry is informational: the dashboard runs in its own
	// process without a pool, so only the store decides health.
	healthy := deps["store"]

	status := "healthy"
	httpStatus := http.StatusOK
	if !healthy {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, gin.H{
		"status":       status,
		"dependencies": deps,
		"timestamp":    time.Now().UTC(),
	})
}

// listJobs handles GET /api/v1/jobs?state=&limit=
func (s *Server) listJobs(c *gin.Context) {
	var statePtr *models.State
	if raw := c.Query("state"); raw != "" {
		st := models.State(raw)
		statePtr = &st
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	jobs, err := s.store.List(c.Request.Context(), statePtr, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": jobs, "count": len(jobs)})
}

// getJob handles GET /api/v1/jobs/:id
func (s *Server) getJob(c *gin.Context) {
	job, err := s.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	c.JSON(http.StatusOK, job)
}

// listDLQ handles GET /api/v1/dlq
func (s *Server) listDLQ(c *gin.Context) {
	dead := models.StateDead
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	jobs, err := s.store.List(c.Request.Context(), &dead, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": jobs, "count": len(jobs)})
}

// stats handles GET /api/v1/stats
func (s *Server) stats(c *gin.Context) {
	st, err := s.store.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := gin.H{"jobs": st}
	if s.pool != nil {
		resp["workers"] = s.pool.Status()
	}
	c.JSON(http.StatusOK, resp)
}

// host handles GET /api/v1/host, reporting the logical CPU count and
// memory pressure of the machine running the worker pool.
func (s *Server) host(c *gin.Context) {
	cpuCounts, err := cpu.Counts(true)
	if err != nil {
		cpuCounts = 0
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"cpu_count": cpuCounts})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cpu_count":        cpuCounts,
		"memory_total":     vm.Total,
		"memory_used":      vm.Used,
		"memory_percent":   vm.UsedPercent,
	})
}
