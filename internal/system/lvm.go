package system

import (
	"encoding/json"

	"github.com/sigreer/diskzap/internal/blockdev"
)

// pvReport represents pvs JSON output
type pvReport struct {
	Report []struct {
		PV []struct {
			PVName string `json:"pv_name"`
			VGName string `json:"vg_name"`
		} `json:"pv"`
	} `json:"report"`
}

func parsePVReport(out []byte) ([]PV, error) {
	var report pvReport
	if err := json.Unmarshal(out, &report); err != nil {
		return nil, err
	}
	var pvs []PV
	for _, r := range report.Report {
		for _, pv := range r.PV {
			pvs = append(pvs, PV{
				Path: blockdev.Canonicalize(pv.PVName),
				VG:   pv.VGName,
			})
		}
	}
	return pvs, nil
}
