package server

import (
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemStatusResponse describes the process and its registry at a glance.
type SystemStatusResponse struct {
	Status      string  `json:"status"`
	UptimeHours float64 `json:"uptime_hours"`
	CPUPercent  float64 `json:"cpu_percent"`
	RAMPercent  float64 `json:"ram_percent"`
	Goroutines  int     `json:"goroutines"`
	RunCount    int     `json:"run_count"`
	LastRunID   string  `json:"last_run_id,omitempty"`
	LastRunAt   string  `json:"last_run_at,omitempty"`
	LastStatus  string  `json:"last_status,omitempty"`
}

// DatabaseStatsResponse reports registry database file statistics.
type DatabaseStatsResponse struct {
	SizeMB        float64 `json:"size_mb"`
	WALSizeMB     float64 `json:"wal_size_mb"`
	PageCount     int64   `json:"page_count"`
	PageSize      int64   `json:"page_size"`
	FreelistCount int64   `json:"freelist_count"`
	RunCount      int     `json:"run_count"`
	LastChecked   string  `json:"last_checked"`
}

// DiskUsageResponse reports on-disk footprint of the data directory.
type DiskUsageResponse struct {
	DataDirMB  float64 `json:"data_dir_mb"`
	ReportsMB  float64 `json:"reports_mb"`
	RegistryMB float64 `json:"registry_mb"`
}

// handleSystemStatus returns process health plus the most recent run.
func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	s.log.Debug().Msg("Getting system status")

	cpuAvg, ramPercent := s.getSystemStats()

	response := SystemStatusResponse{
		Status:      "running",
		UptimeHours: time.Since(s.startupTime).Hours(),
		CPUPercent:  cpuAvg,
		RAMPercent:  ramPercent,
		Goroutines:  runtime.NumGoroutine(),
	}

	if count, err := s.runs.Count(); err == nil {
		response.RunCount = count
	} else {
		s.log.Error().Err(err).Msg("Failed to count runs")
	}

	if last, err := s.runs.Latest(); err == nil && last != nil {
		response.LastRunID = last.ID
		response.LastRunAt = last.CreatedAt.Format(time.RFC3339)
		response.LastStatus = last.Status
	}

	s.writeJSON(w, http.StatusOK, response)
}

// handleDatabaseStats returns registry database statistics
func (s *Server) handleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	s.log.Debug().Msg("Getting database stats")

	stats, err := s.db.GetStats()
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to get database stats")
		s.writeError(w, http.StatusInternalServerError, "failed to get database stats")
		return
	}

	response := DatabaseStatsResponse{
		SizeMB:        float64(stats.SizeBytes) / 1024 / 1024,
		WALSizeMB:     float64(stats.WALSizeBytes) / 1024 / 1024,
		PageCount:     stats.PageCount,
		PageSize:      stats.PageSize,
		FreelistCount: stats.FreelistCount,
		LastChecked:   time.Now().Format(time.RFC3339),
	}

	if count, err := s.runs.Count(); err == nil {
		response.RunCount = count
	}

	s.writeJSON(w, http.StatusOK, response)
}

// handleDiskUsage returns disk usage statistics
func (s *Server) handleDiskUsage(w http.ResponseWriter, r *http.Request) {
	s.log.Debug().Msg("Getting disk usage")

	registryMB := 0.0
	if info, err := os.Stat(s.cfg.DatabasePath()); err == nil {
		registryMB = float64(info.Size()) / 1024 / 1024
	}

	response := DiskUsageResponse{
		DataDirMB:  s.getDirSize(s.cfg.DataDir),
		ReportsMB:  s.getDirSize(s.cfg.ReportsDir()),
		RegistryMB: registryMB,
	}

	s.writeJSON(w, http.StatusOK, response)
}

// getSystemStats samples CPU and RAM usage. CPU is averaged over 100ms
// rather than the library's 1s default so the status endpoint stays fast.
func (s *Server) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

// getDirSize calculates total size of a directory in MB
func (s *Server) getDirSize(dirPath string) float64 {
	var totalSize int64

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})

	if err != nil {
		s.log.Warn().Err(err).Str("dir", dirPath).Msg("Failed to calculate directory size")
		return 0
	}

	return float64(totalSize) / 1024 / 1024
}
