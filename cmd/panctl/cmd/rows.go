package cmd

import (
	"fmt"
	"time"

	"github.com/ystepanoff/uwbpan"
	"github.com/ystepanoff/uwbpan/master"
	"github.com/ystepanoff/uwbpan/protocol"
)

type allocationRow struct {
	UUID        string `json:"uuid" yaml:"uuid"`
	ID          string `json:"id" yaml:"id"`
	PANID       string `json:"pan_id" yaml:"pan_id"`
	Slot        uint16 `json:"slot" yaml:"slot"`
	AllocatedAt string `json:"allocated_at" yaml:"allocated_at"`
}

func allocationRows(list []master.Allocation) []allocationRow {
	rows := make([]allocationRow, 0, len(list))
	for _, a := range list {
		rows = append(rows, allocationRow{
			UUID:        protocol.UUID(a.LongAddress),
			ID:          fmt.Sprintf("%04X", a.ShortAddress),
			PANID:       fmt.Sprintf("%04X", a.PANID),
			Slot:        a.SlotID,
			AllocatedAt: a.AllocatedAt.UTC().Format(time.RFC3339),
		})
	}
	return rows
}

type resultRow struct {
	UUID   string `json:"uuid" yaml:"uuid"`
	ID     string `json:"id" yaml:"id"`
	PANID  string `json:"pan_id" yaml:"pan_id"`
	Slot   uint16 `json:"slot" yaml:"slot"`
	Status string `json:"status" yaml:"status"`
}

func resultRows(results []uwbpan.Result) []resultRow {
	rows := make([]resultRow, 0, len(results))
	for _, r := range results {
		row := resultRow{UUID: protocol.UUID(r.LongAddress), Status: "allocated"}
		if r.Err != nil {
			row.Status = r.Err.Error()
		} else {
			row.ID = fmt.Sprintf("%04X", r.Identity.ShortAddress)
			row.PANID = fmt.Sprintf("%04X", r.Identity.PANID)
			row.Slot = r.Identity.SlotID
		}
		rows = append(rows, row)
	}
	return rows
}
