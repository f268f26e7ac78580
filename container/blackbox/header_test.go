/*
DESCRIPTION
  header_test.go provides testing for header parsing found in header.go.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package blackbox

import "testing"

func TestHeaderParserScalars(t *testing.T) {
	p := NewHeaderParser(nil)
	lines := []string{
		"Firmware type:Betaflight",
		"Firmware revision:4.3.0",
		"Data version:2",
		"I interval:32",
		"P interval:1/3",
		"minthrottle:1070",
		"maxthrottle:2000",
		"motorOutput:1000,2000",
		"vbatscale:110",
		"vbatref:4095",
		"vbatcellvoltage:330,350,430",
		"currentMeter:0,400",
		"rollPID:45,40,20",
		"pitchPID:45,40,20,10",
	}
	for _, l := range lines {
		if err := p.ParseLine(l); err != nil {
			t.Errorf("ParseLine(%q): unexpected error: %v", l, err)
		}
	}

	cfg := p.Config()
	if cfg.Firmware != FirmwareBetaflight {
		t.Errorf("Firmware = %v, want Betaflight", cfg.Firmware)
	}
	if cfg.DataVersion != 2 {
		t.Errorf("DataVersion = %d, want 2", cfg.DataVersion)
	}
	if cfg.IInterval != 32 {
		t.Errorf("IInterval = %d, want 32", cfg.IInterval)
	}
	if cfg.PNumerator != 1 || cfg.PDenominator != 3 {
		t.Errorf("P interval = %d/%d, want 1/3", cfg.PNumerator, cfg.PDenominator)
	}
	if cfg.MinThrottle != 1070 || cfg.MaxThrottle != 2000 {
		t.Errorf("throttle range = %d..%d, want 1070..2000", cfg.MinThrottle, cfg.MaxThrottle)
	}
	if cfg.MotorOutputLow != 1000 || cfg.MotorOutputHigh != 2000 {
		t.Errorf("motor output range = %d..%d, want 1000..2000", cfg.MotorOutputLow, cfg.MotorOutputHigh)
	}
	if cfg.VbatMinCellVoltage != 330 || cfg.VbatWarningCellVoltage != 350 || cfg.VbatMaxCellVoltage != 430 {
		t.Errorf("vbat cell voltages = %d/%d/%d, want 330/350/430",
			cfg.VbatMinCellVoltage, cfg.VbatWarningCellVoltage, cfg.VbatMaxCellVoltage)
	}
	if cfg.CurrentMeterOffset != 0 || cfg.CurrentMeterScale != 400 {
		t.Errorf("current meter = %d/%d, want 0/400", cfg.CurrentMeterOffset, cfg.CurrentMeterScale)
	}
	if cfg.PID[0] != (PIDValues{P: 45, I: 40, D: 20}) {
		t.Errorf("rollPID = %+v, want {45 40 20 0}", cfg.PID[0])
	}
	if cfg.PID[1] != (PIDValues{P: 45, I: 40, D: 20, FF: 10}) {
		t.Errorf("pitchPID = %+v, want {45 40 20 10}", cfg.PID[1])
	}
}

func TestHeaderParserFieldDefinitions(t *testing.T) {
	p := NewHeaderParser(nil)
	lines := []string{
		"Field I name:loopIteration,time,motor[0],motor[1]",
		"Field I signed:0,0,0,0",
		"Field I predictor:0,0,0,0",
		"Field I encoding:1,1,1,1",
		"Field P name:loopIteration,time,motor[0],motor[1]",
		"Field P predictor:6,10,1,1",
		"Field P encoding:0,0,0,0",
	}
	for _, l := range lines {
		if err := p.ParseLine(l); err != nil {
			t.Fatalf("ParseLine(%q): unexpected error: %v", l, err)
		}
	}

	iDef := p.Definitions(FrameIntra)
	if iDef == nil || len(iDef.Fields) != 4 {
		t.Fatalf("I frame definition = %+v, want 4 fields", iDef)
	}
	if iDef.Fields[0].Name != "loopIteration" || iDef.Fields[2].Name != "motor[0]" {
		t.Errorf("I frame field names = %+v", iDef.Fields)
	}
	if iDef.Fields[0].Encoding != 1 {
		t.Errorf("I frame loopIteration encoding = %v, want UnsignedVB", iDef.Fields[0].Encoding)
	}

	pDef := p.Definitions(FramePredicted)
	if pDef == nil || len(pDef.Fields) != 4 {
		t.Fatalf("P frame definition = %+v, want 4 fields", pDef)
	}
	if pDef.Fields[0].Predictor != PredictorIncrement {
		t.Errorf("P frame loopIteration predictor = %v, want Increment", pDef.Fields[0].Predictor)
	}
	if pDef.Fields[1].Predictor != PredictorLastMainFrameTime {
		t.Errorf("P frame time predictor = %v, want LastMainFrameTime", pDef.Fields[1].Predictor)
	}
}

func TestHeaderParserMalformedLine(t *testing.T) {
	p := NewHeaderParser(nil)
	err := p.ParseLine("this line has no colon")
	if err != ErrMalformedHeader {
		t.Errorf("ParseLine with no colon: err = %v, want ErrMalformedHeader", err)
	}
	if err := p.ParseLine("Some Unknown Key:123"); err == nil {
		t.Errorf("ParseLine with unknown key: expected an error")
	}
}

func TestFieldIndexesMatchWellKnownNames(t *testing.T) {
	p := NewHeaderParser(nil)
	for _, l := range []string{
		"Field I name:loopIteration,time,motor[0],motor[1],rcCommand[0],gyroADC[0],vbatLatest",
		"Field I signed:0,0,0,0,1,1,0",
	} {
		if err := p.ParseLine(l); err != nil {
			t.Fatalf("ParseLine(%q): %v", l, err)
		}
	}
	fi := newFieldIndexes()
	fi.indexFields(FrameIntra, p.Definitions(FrameIntra))

	if fi.Main.LoopIteration != 0 {
		t.Errorf("LoopIteration index = %d, want 0", fi.Main.LoopIteration)
	}
	if fi.Main.Time != 1 {
		t.Errorf("Time index = %d, want 1", fi.Main.Time)
	}
	if fi.Main.Motor[0] != 2 || fi.Main.Motor[1] != 3 {
		t.Errorf("Motor indexes = %v, want [2 3 ...]", fi.Main.Motor)
	}
	if fi.Main.RCCommand[0] != 4 {
		t.Errorf("RCCommand[0] index = %d, want 4", fi.Main.RCCommand[0])
	}
	if fi.Main.GyroADC[0] != 5 {
		t.Errorf("GyroADC[0] index = %d, want 5", fi.Main.GyroADC[0])
	}
	if fi.Main.VbatLatest != 6 {
		t.Errorf("VbatLatest index = %d, want 6", fi.Main.VbatLatest)
	}
	if fi.Main.BaroAlt != absent {
		t.Errorf("BaroAlt index = %d, want absent", fi.Main.BaroAlt)
	}
}
