package system

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePVReport(t *testing.T) {
	out := []byte(`{
		"report": [
			{
				"pv": [
					{"pv_name": "/dev/sdb1", "vg_name": "vgdata"},
					{"pv_name": "/dev/sdc1", "vg_name": ""}
				]
			}
		]
	}`)

	pvs, err := parsePVReport(out)
	require.NoError(t, err)
	require.Len(t, pvs, 2)
	assert.Equal(t, "/dev/sdb1", pvs[0].Path)
	assert.Equal(t, "vgdata", pvs[0].VG)
	assert.Equal(t, "/dev/sdc1", pvs[1].Path)
	assert.Empty(t, pvs[1].VG)
}

func TestParsePVReportBadJSON(t *testing.T) {
	_, err := parsePVReport([]byte("not json"))
	assert.Error(t, err)
}

func TestDryRunReportsEveryCall(t *testing.T) {
	var lines []string
	d := &DryRun{Log: func(format string, args ...any) {
		lines = append(lines, format)
	}}

	require.NoError(t, d.UnmountLazy("/mnt/a"))
	require.NoError(t, d.WipeSignatures("/dev/sdb"))
	require.NoError(t, d.ZeroRange("/dev/sdb", 0, 1024))
	require.NoError(t, d.SettleUdev())
	assert.Len(t, lines, 4)
}
