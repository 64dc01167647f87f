// Package model defines stable boundary types for the CLI and API layers.
//
// Block identity (DAG-CBOR bytes and CIDs) is unaffected by any projection.
// These structs, and the DAG-JSON projection of values, are the only shapes
// intended for direct JSON serialization by consumers.
package model
