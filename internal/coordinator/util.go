package coordinator

import "runtime"

func cpuCount() int {
	return runtime.NumCPU()
}
