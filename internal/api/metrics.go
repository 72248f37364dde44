package api

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v3/process"
)

// ProcessMetrics содержит метрики процесса
type ProcessMetrics struct {
	StartTime time.Time
	proc      *process.Process
}

// NewProcessMetrics создает новый экземпляр метрик
func NewProcessMetrics() *ProcessMetrics {
	pm := &ProcessMetrics{StartTime: time.Now()}
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		pm.proc = proc
	}
	return pm
}

// Register добавляет метрики процесса в reg
func (pm *ProcessMetrics) Register(reg prometheus.Registerer) {
	reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "voxel",
			Subsystem: "process",
			Name:      "rss_bytes",
			Help:      "Resident set size процесса.",
		}, func() float64 {
			rss, _ := pm.GetRSS()
			return float64(rss)
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "voxel",
			Subsystem: "process",
			Name:      "uptime_seconds",
			Help:      "Время работы процесса.",
		}, func() float64 {
			return time.Since(pm.StartTime).Seconds()
		}),
	)
}

// GetUptime возвращает время работы сервера
func (pm *ProcessMetrics) GetUptime() string {
	uptime := time.Since(pm.StartTime)

	days := int(uptime.Hours()) / 24
	hours := int(uptime.Hours()) % 24
	minutes := int(uptime.Minutes()) % 60
	seconds := int(uptime.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dд %dч %dм %dс", days, hours, minutes, seconds)
	} else if hours > 0 {
		return fmt.Sprintf("%dч %dм %dс", hours, minutes, seconds)
	} else if minutes > 0 {
		return fmt.Sprintf("%dм %dс", minutes, seconds)
	}
	return fmt.Sprintf("%dс", seconds)
}

// GetRSS возвращает resident set size процесса в байтах
func (pm *ProcessMetrics) GetRSS() (uint64, error) {
	if pm.proc == nil {
		return 0, fmt.Errorf("процесс недоступен")
	}
	info, err := pm.proc.MemoryInfo()
	if err != nil {
		return 0, err
	}
	return info.RSS, nil
}

// GetDetailedMemoryStats возвращает детальную статистику памяти
func (pm *ProcessMetrics) GetDetailedMemoryStats() map[string]interface{} {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	stats := map[string]interface{}{
		"alloc_mb":      float64(m.Alloc) / 1024 / 1024,
		"sys_mb":        float64(m.Sys) / 1024 / 1024,
		"heap_alloc_mb": float64(m.HeapAlloc) / 1024 / 1024,
		"num_gc":        m.NumGC,
		"goroutines":    runtime.NumGoroutine(),
	}
	if rss, err := pm.GetRSS(); err == nil {
		stats["rss_mb"] = float64(rss) / 1024 / 1024
	}
	return stats
}
