package domain

// ModuleOutcome is the assembly decision taken for one library.
type ModuleOutcome struct {
	Library LibraryPath
	// Reused is set when the previous module output was kept verbatim.
	Reused bool
	// Output is the path of the assembled module.
	Output string
}

// Report summarizes one build or status run.
type Report struct {
	// Dirty is the set of files that were, or would be, compiled.
	Dirty       []FileKey
	Diagnostics Diagnostics
	// Rounds counts the propagation rounds of the invalidation.
	Rounds  int
	Removed []FileKey
	Modules []ModuleOutcome
	// Cold is set when the incremental cache was discarded before building.
	Cold bool
	// DryRun is set when nothing was compiled or committed.
	DryRun bool
}
