package compute

import (
	"errors"
	"fmt"
	"image"
	"runtime"
	"sync"
	"time"
)

var (
	ErrDeviceClosed = errors.New("compute: device closed")
	ErrInvalidGrid  = errors.New("compute: invalid dispatch grid")
)

// Kernel is invoked exactly once for every pixel of a dispatch. Invocations
// run concurrently and in no particular order, so a kernel must only write
// to the pixel it was invoked for.
type Kernel func(x, y int)

// Options configures a Device
type Options struct {
	Name       string // Identifies the device in logs and stats
	NumWorkers int    // Number of worker goroutines (0 = logical core count)
	TileSize   int    // Edge length of a dispatch tile in pixels (0 = 32)
}

// DefaultOptions returns sensible default values
func DefaultOptions() Options {
	return Options{
		Name:       "cpu",
		NumWorkers: 0,  // Auto-detect
		TileSize:   32, // Small enough to balance, large enough to amortize scheduling
	}
}

// DispatchStats describes a completed dispatch
type DispatchStats struct {
	Kernel   string
	Tiles    int
	Pixels   int
	Duration time.Duration
}

// tileTask represents a tile of a dispatch for the worker pool
type tileTask struct {
	bounds image.Rectangle
	kernel Kernel
	done   *sync.WaitGroup
}

// Device executes per-pixel kernels on a pool of worker goroutines. Every
// dispatch is a barrier: Exec2D returns only after all pixels completed.
// A Device may be shared by several callers; concurrent dispatches
// interleave their tiles on the same workers.
type Device struct {
	name       string
	tileSize   int
	numWorkers int

	mu        sync.RWMutex
	closed    bool
	taskQueue chan tileTask
	wg        sync.WaitGroup
}

// NewDevice creates a device and starts its workers
func NewDevice(opts Options) *Device {
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = defaultWorkerCount()
	}
	if opts.TileSize <= 0 {
		opts.TileSize = DefaultOptions().TileSize
	}
	if opts.Name == "" {
		opts.Name = DefaultOptions().Name
	}

	d := &Device{
		name:       opts.Name,
		tileSize:   opts.TileSize,
		numWorkers: opts.NumWorkers,
		taskQueue:  make(chan tileTask, opts.NumWorkers*4),
	}

	for i := 0; i < d.numWorkers; i++ {
		d.wg.Add(1)
		go d.run()
	}

	return d
}

// Name returns the device name
func (d *Device) Name() string {
	return d.name
}

// NumWorkers returns the number of workers in the pool
func (d *Device) NumWorkers() int {
	return d.numWorkers
}

// TileSize returns the dispatch tile edge length
func (d *Device) TileSize() int {
	return d.tileSize
}

// Exec2D runs kernel for every pixel of a width x height grid and waits for
// completion.
func (d *Device) Exec2D(name string, width, height int, kernel Kernel) (DispatchStats, error) {
	if width <= 0 || height <= 0 {
		return DispatchStats{}, fmt.Errorf("%w: kernel %s on %dx%d", ErrInvalidGrid, name, width, height)
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return DispatchStats{}, fmt.Errorf("%w: cannot run kernel %s on %s", ErrDeviceClosed, name, d.name)
	}

	start := time.Now()
	tiles := NewTileGrid(width, height, d.tileSize)

	var done sync.WaitGroup
	done.Add(len(tiles))
	for _, bounds := range tiles {
		d.taskQueue <- tileTask{bounds: bounds, kernel: kernel, done: &done}
	}
	done.Wait()

	return DispatchStats{
		Kernel:   name,
		Tiles:    len(tiles),
		Pixels:   width * height,
		Duration: time.Since(start),
	}, nil
}

// Close stops all workers. Pending dispatches complete first.
func (d *Device) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	close(d.taskQueue) // No more tasks
	d.wg.Wait()        // Wait for workers to finish
}

// run is the main worker loop
func (d *Device) run() {
	defer d.wg.Done()

	for task := range d.taskQueue {
		// Tiles never overlap, so every pixel is written by exactly one worker
		for y := task.bounds.Min.Y; y < task.bounds.Max.Y; y++ {
			for x := task.bounds.Min.X; x < task.bounds.Max.X; x++ {
				task.kernel(x, y)
			}
		}
		task.done.Done()
	}
}

// NewTileGrid splits a width x height grid into tiles of at most
// tileSize x tileSize pixels, in row-major order
func NewTileGrid(width, height, tileSize int) []image.Rectangle {
	if tileSize <= 0 {
		tileSize = max(width, height)
	}

	// Calculate number of tiles in each dimension
	tilesX := (width + tileSize - 1) / tileSize // Ceiling division
	tilesY := (height + tileSize - 1) / tileSize

	tiles := make([]image.Rectangle, 0, tilesX*tilesY)
	for tileY := 0; tileY < tilesY; tileY++ {
		for tileX := 0; tileX < tilesX; tileX++ {
			x0 := tileX * tileSize
			y0 := tileY * tileSize
			x1 := min(x0+tileSize, width) // Don't exceed grid bounds
			y1 := min(y0+tileSize, height)
			tiles = append(tiles, image.Rect(x0, y0, x1, y1))
		}
	}

	return tiles
}

func defaultWorkerCount() int {
	if info := Info(); info.LogicalCores > 0 {
		return info.LogicalCores
	}
	return runtime.NumCPU()
}
