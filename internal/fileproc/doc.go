// Package fileproc turns record files on disk into a uniform parsed form.
//
// Every processor runs the same fixed pipeline: Validate checks the file kind,
// Read loads the raw bytes, Parse decodes them into Content. Process is the only
// place that sequences those steps. JSON files may hold either a list of records
// or a single record at the root; Content carries whichever shape was found and
// callers pick the arm they expect.
package fileproc
