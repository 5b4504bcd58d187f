// Package system reports host information for the info endpoint.
package system

import (
	"context"
	"runtime"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/nuclearlighters/netcube/internal/models"
)

// Info gathers static host information plus a memory snapshot. Fields that
// cannot be read are left at their zero value rather than failing the whole
// request.
func Info(ctx context.Context) models.SystemInfo {
	info := models.SystemInfo{
		CPUCount: runtime.NumCPU(),
	}

	if hi, err := host.InfoWithContext(ctx); err == nil {
		info.Hostname = hi.Hostname
		info.OS = hi.OS
		info.Platform = hi.Platform
		info.KernelVersion = hi.KernelVersion
		info.UptimeSeconds = hi.Uptime
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		info.MemoryTotal = vm.Total
		info.MemoryUsed = vm.Used
		info.MemoryPercent = vm.UsedPercent
	}

	return info
}
