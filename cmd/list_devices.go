package cmd

import (
	"bytes"
	"fmt"

	"github.com/philcn/RaysRenderer/pkg/compute"
	"github.com/urfave/cli"
)

// ListDevices prints the processor backing the compute device.
func ListDevices(ctx *cli.Context) error {
	setupLogging(ctx, "")

	var buf bytes.Buffer
	writeDeviceTable(&buf, compute.Info())
	logger.Noticef("available compute devices\n%s", buf.String())
	return nil
}

func writeDeviceTable(buf *bytes.Buffer, info compute.DeviceInfo) {
	table := newTable(buf, []string{"Property", "Value"})
	table.AppendBulk([][]string{
		{"Brand", info.Brand},
		{"Physical cores", fmt.Sprintf("%d", info.PhysicalCores)},
		{"Logical cores", fmt.Sprintf("%d", info.LogicalCores)},
		{"Threads per core", fmt.Sprintf("%d", info.ThreadsPerCore)},
		{"Cache line", fmt.Sprintf("%d bytes", info.CacheLine)},
		{"AVX2", fmt.Sprintf("%t", info.AVX2)},
		{"SSE4", fmt.Sprintf("%t", info.SSE4)},
		{"GOMAXPROCS", fmt.Sprintf("%d", info.GoMaxProcs)},
	})
	table.Render()
}
