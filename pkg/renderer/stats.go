package renderer

import "runtime"

// RenderStats summarizes a render run
type RenderStats struct {
	TotalPixels  int
	TotalSamples int
	Passes       int
}

// AverageSamples returns the mean samples per pixel
func (s RenderStats) AverageSamples() float64 {
	if s.TotalPixels == 0 {
		return 0
	}
	return float64(s.TotalSamples) / float64(s.TotalPixels)
}

// numCPU returns the default worker count
func numCPU() int {
	return runtime.NumCPU()
}
