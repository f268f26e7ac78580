/*
NAME
  fieldindex.go - well-known column lookups for each frame type.

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

import "strconv"

// absent is the sentinel column index used throughout FieldIndexes for a
// well-known field that isn't present in this session's frame definitions.
const absent = -1

// PIDIndexes locates the roll/pitch/yaw P, I, D (and feed-forward) columns
// within the main ('I'/'P') frame, when the firmware logs gains as data
// columns rather than only in header PID values.
type PIDIndexes struct {
	P, I, D, FF [3]int
}

// MainFieldIndexes locates well-known columns within the main ('I'/'P')
// frame definition. Absent fields are -1. Mirrors original_source's
// mainFieldIndexes_t.
type MainFieldIndexes struct {
	LoopIteration int
	Time          int

	PID PIDIndexes

	RCCommand [4]int

	VbatLatest     int
	AmperageLatest int
	MagADC         [3]int
	BaroAlt        int
	SonarRaw       int
	RSSI           int

	GyroADC    [3]int
	AccSmooth  [3]int

	Motor [MaxMotors]int
	Servo [MaxServos]int
}

// GPSFieldIndexes locates well-known columns within the 'G' frame
// definition.
type GPSFieldIndexes struct {
	Time         int
	NumSat       int
	Coord        [2]int // 0 = latitude, 1 = longitude
	Altitude     int
	Speed        int
	GroundCourse int
}

// GPSHomeFieldIndexes locates well-known columns within the 'H' frame
// definition.
type GPSHomeFieldIndexes struct {
	Coord [2]int
}

// SlowFieldIndexes locates well-known columns within the 'S' frame
// definition.
type SlowFieldIndexes struct {
	FlightModeFlags int
	StateFlags      int
	FailsafePhase   int
}

// FieldIndexes bundles the well-known column lookups for every frame type,
// populated once after header parsing by name-matching against each
// FrameDefinition (spec.md §3).
type FieldIndexes struct {
	Main     MainFieldIndexes
	GPS      GPSFieldIndexes
	GPSHome  GPSHomeFieldIndexes
	Slow     SlowFieldIndexes
}

// newFieldIndexes returns a FieldIndexes with every lookup defaulted to
// absent.
func newFieldIndexes() FieldIndexes {
	var fi FieldIndexes
	fi.Main.LoopIteration, fi.Main.Time = absent, absent
	fi.Main.VbatLatest, fi.Main.AmperageLatest = absent, absent
	fi.Main.BaroAlt, fi.Main.SonarRaw, fi.Main.RSSI = absent, absent, absent
	for i := range fi.Main.RCCommand {
		fi.Main.RCCommand[i] = absent
	}
	for i := range fi.Main.MagADC {
		fi.Main.MagADC[i] = absent
	}
	for i := range fi.Main.GyroADC {
		fi.Main.GyroADC[i] = absent
	}
	for i := range fi.Main.AccSmooth {
		fi.Main.AccSmooth[i] = absent
	}
	for i := range fi.Main.Motor {
		fi.Main.Motor[i] = absent
	}
	for i := range fi.Main.Servo {
		fi.Main.Servo[i] = absent
	}
	for axis := 0; axis < 3; axis++ {
		fi.Main.PID.P[axis] = absent
		fi.Main.PID.I[axis] = absent
		fi.Main.PID.D[axis] = absent
		fi.Main.PID.FF[axis] = absent
	}
	fi.GPS.Time, fi.GPS.NumSat, fi.GPS.Altitude = absent, absent, absent
	fi.GPS.Speed, fi.GPS.GroundCourse = absent, absent
	fi.GPS.Coord[0], fi.GPS.Coord[1] = absent, absent
	fi.GPSHome.Coord[0], fi.GPSHome.Coord[1] = absent, absent
	fi.Slow.FlightModeFlags, fi.Slow.StateFlags, fi.Slow.FailsafePhase = absent, absent, absent
	return fi
}

// indexFields matches a frame definition's column names against the
// well-known fields listed in spec.md §3 and fills in the corresponding
// FieldIndexes slots.
func (fi *FieldIndexes) indexFields(kind FrameKind, def *FrameDefinition) {
	for i, f := range def.Fields {
		switch kind {
		case FrameIntra, FramePredicted:
			fi.indexMainField(f.Name, i)
		case FrameGPS:
			fi.indexGPSField(f.Name, i)
		case FrameGPSHome:
			fi.indexGPSHomeField(f.Name, i)
		case FrameSlow:
			fi.indexSlowField(f.Name, i)
		}
	}
}

func axisSuffix(name, prefix string) (axis int, ok bool) {
	if len(name) <= len(prefix)+1 || name[:len(prefix)] != prefix || name[len(name)-1] != ']' {
		return 0, false
	}
	n, err := strconv.Atoi(name[len(prefix) : len(name)-1])
	if err != nil || n < 0 || n > 7 {
		return 0, false
	}
	return n, true
}

func (fi *MainFieldIndexes) indexMainField(name string, col int) {
	switch name {
	case "loopIteration":
		fi.LoopIteration = col
	case "time":
		fi.Time = col
	case "vbatLatest":
		fi.VbatLatest = col
	case "amperageLatest":
		fi.AmperageLatest = col
	case "BaroAlt":
		fi.BaroAlt = col
	case "sonarRaw":
		fi.SonarRaw = col
	case "rssi":
		fi.RSSI = col
	default:
		if axis, ok := axisSuffix(name, "rcCommand["); ok && axis < 4 {
			fi.RCCommand[axis] = col
		} else if axis, ok := axisSuffix(name, "magADC["); ok && axis < 3 {
			fi.MagADC[axis] = col
		} else if axis, ok := axisSuffix(name, "gyroADC["); ok && axis < 3 {
			fi.GyroADC[axis] = col
		} else if axis, ok := axisSuffix(name, "accSmooth["); ok && axis < 3 {
			fi.AccSmooth[axis] = col
		} else if axis, ok := axisSuffix(name, "motor["); ok && axis < MaxMotors {
			fi.Motor[axis] = col
		} else if axis, ok := axisSuffix(name, "servo["); ok && axis < MaxServos {
			fi.Servo[axis] = col
		} else {
			indexPIDField(&fi.PID, name, col)
		}
	}
}

// indexPIDField matches names like "axisP[0]", "axisI[1]", "axisD[2]",
// "axisF[0]" for data-logged PID terms, distinct from the header's
// rollPID/pitchPID/yawPID scalar values (SystemConfig.PID).
func indexPIDField(pid *PIDIndexes, name string, col int) {
	var target *[3]int
	var prefix string
	switch {
	case len(name) > 6 && name[:6] == "axisP[":
		target, prefix = &pid.P, "axisP["
	case len(name) > 6 && name[:6] == "axisI[":
		target, prefix = &pid.I, "axisI["
	case len(name) > 6 && name[:6] == "axisD[":
		target, prefix = &pid.D, "axisD["
	case len(name) > 6 && name[:6] == "axisF[":
		target, prefix = &pid.FF, "axisF["
	default:
		return
	}
	if axis, ok := axisSuffix(name, prefix); ok && axis < 3 {
		target[axis] = col
	}
}

func (fi *GPSFieldIndexes) indexGPSField(name string, col int) {
	switch name {
	case "time":
		fi.Time = col
	case "GPS_numSat":
		fi.NumSat = col
	case "GPS_coord[0]":
		fi.Coord[0] = col
	case "GPS_coord[1]":
		fi.Coord[1] = col
	case "GPS_altitude":
		fi.Altitude = col
	case "GPS_speed":
		fi.Speed = col
	case "GPS_ground_course":
		fi.GroundCourse = col
	}
}

func (fi *GPSHomeFieldIndexes) indexGPSHomeField(name string, col int) {
	switch name {
	case "GPS_home[0]":
		fi.Coord[0] = col
	case "GPS_home[1]":
		fi.Coord[1] = col
	}
}

func (fi *SlowFieldIndexes) indexSlowField(name string, col int) {
	switch name {
	case "flightModeFlags":
		fi.FlightModeFlags = col
	case "stateFlags":
		fi.StateFlags = col
	case "failsafePhase":
		fi.FailsafePhase = col
	}
}
