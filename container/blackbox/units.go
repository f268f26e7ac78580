/*
NAME
  units.go - conversion helpers from raw columns to physical units.

DESCRIPTION
  See Readme.md

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package blackbox

// This file is the "helpers exposed to consumer" surface of spec.md §6: it
// converts raw ADC/sensor columns into physical units. The decoder itself
// never calls these; unit interpretation is explicitly an external
// collaborator per spec.md §1's scope note, and callers apply them
// selectively to whichever columns they care about.

// EstimateCellCount estimates the number of battery cells in use from a
// single vbat ADC reading and the header's per-cell voltage thresholds,
// mirroring original_source's flightLogEstimateNumCells.
func EstimateCellCount(cfg *SystemConfig, vbatLatest uint16) int {
	if cfg.VbatMaxCellVoltage == 0 {
		return 0
	}
	mv := VbatMillivolts(cfg, vbatLatest)
	cells := 1
	// A cell count is plausible if the per-cell voltage it implies doesn't
	// exceed the maximum configured cell voltage (in 0.1V units, per
	// convention shared with the header's vbatcellvoltage key).
	for cells < 8 && mv/uint32(cells) > uint32(cfg.VbatMaxCellVoltage)*100 {
		cells++
	}
	return cells
}

// VbatMillivolts converts a raw vbat ADC reading to millivolts using the
// header's vbatscale and vbatref values.
func VbatMillivolts(cfg *SystemConfig, vbatADC uint16) uint32 {
	if cfg.VbatRef == 0 {
		return 0
	}
	return uint32(vbatADC) * uint32(cfg.VbatScale) * 100 / uint32(cfg.VbatRef)
}

// AmperageMilliamps converts a raw current-meter ADC reading to
// milliamps using the header's currentMeter offset/scale.
func AmperageMilliamps(cfg *SystemConfig, amperageADC uint16) int32 {
	return (int32(amperageADC)*int32(cfg.CurrentMeterScale))/1000 + int32(cfg.CurrentMeterOffset)
}

// GyroRadiansPerSecond converts a raw gyro reading to radians per second
// using the header's gyro.scale value.
func GyroRadiansPerSecond(cfg *SystemConfig, gyroRaw int32) float64 {
	return float64(gyroRaw) * cfg.GyroScale
}

// AccelerationGs converts a raw accelerometer reading to g using the
// header's acc_1G calibration constant.
func AccelerationGs(cfg *SystemConfig, accRaw int32) float64 {
	if cfg.Acc1G == 0 {
		return 0
	}
	return float64(accRaw) / float64(cfg.Acc1G)
}
