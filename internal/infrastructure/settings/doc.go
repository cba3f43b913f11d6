// Package settings reads the OPC UA client settings file.
//
// The file is a YAML tree of groups. Scalar reads take a default that is
// returned when the key is absent; a value of the wrong shape fails with
// ErrParse. Lists follow the size + KeyNN convention:
//
//	NodesToRead:
//	  size: 2
//	  Variable00: ns=2;s=Panel_1121.State
//	  Variable01: ns=2;s=Panel_1121.Temperature
//
// which List("Variable") returns as a two-element slice.
package settings
