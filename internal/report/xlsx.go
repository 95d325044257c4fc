package report

import (
	"io"

	"github.com/xuri/excelize/v2"

	"ciasx/domain/core"
	"ciasx/domain/experiment"
	"ciasx/internal/analysis"
)

const (
	SheetExperiments = "Experiments"
	SheetFamilies    = "Families"
)

var experimentHeaders = []interface{}{
	"id", "recon_family", "uq_scheme", "psnr", "coverage", "latency", "calibration_error", "pareto", "timestamp",
}

// WriteXLSX writes one row per experiment plus a per-family summary sheet.
func WriteXLSX(w io.Writer, records []experiment.Record, paretoIDs []core.ID) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetExperiments); err != nil {
		return err
	}
	if err := f.SetSheetRow(SheetExperiments, "A1", &experimentHeaders); err != nil {
		return err
	}

	front := analysis.NewIDSet(paretoIDs...)
	for i, r := range records {
		var calib interface{} = ""
		if r.Metrics.CalibrationError != nil {
			calib = *r.Metrics.CalibrationError
		}
		row := []interface{}{
			string(r.ID),
			string(r.Config.ReconFamily),
			string(r.Config.UQScheme),
			r.Metrics.PSNR,
			r.Metrics.Coverage,
			r.Metrics.Latency,
			calib,
			front.Contains(r.ID),
			r.Timestamp.UTC().Format("2006-01-02T15:04:05Z07:00"),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetExperiments, cell, &row); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(SheetFamilies); err != nil {
		return err
	}
	header := []interface{}{"recon_family", "mean_psnr", "experiments"}
	if err := f.SetSheetRow(SheetFamilies, "A1", &header); err != nil {
		return err
	}
	for i, fam := range Analyze(records, paretoIDs, nil).Families {
		row := []interface{}{string(fam.Family), fam.MeanPSNR, fam.Count}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(SheetFamilies, cell, &row); err != nil {
			return err
		}
	}

	return f.Write(w)
}
