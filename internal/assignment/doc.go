// Package assignment persists which modules each staff member or student is
// assigned to.
//
// Each owner kind has its own JSON file of the form
//
//	{"assignments": [{"staffId": 1, "moduleIds": ["M1"], "lastUpdated": "..."}]}
//
// A Repository always loads and saves the whole file. Every mutation runs
// load, change and save inside a lock shared by all repositories that point at
// the same file, so concurrent updates for different owners cannot overwrite
// each other. Saves go through a temporary file and a rename.
package assignment
