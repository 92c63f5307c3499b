package utils

import (
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"go.uber.org/zap"
)

// GetCPUUsage returns host CPU usage since the previous call, without blocking.
func GetCPUUsage() float64 {
	percentage, err := cpu.Percent(0, false)
	if err != nil {
		Logger.Warn("error getting CPU usage", zap.Error(err))
		return 0
	}
	if len(percentage) > 0 {
		return percentage[0]
	}
	return 0
}

// GetMemoryUsage returns the share of host memory in use.
func GetMemoryUsage() float64 {
	vm, err := mem.VirtualMemory()
	if err != nil {
		Logger.Warn("error getting memory usage", zap.Error(err))
		return 0
	}
	return vm.UsedPercent
}
