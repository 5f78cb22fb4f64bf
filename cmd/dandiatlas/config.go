package main

// Flag names for Viper binding
const (
	// Global flags
	FlagVerbose = "verbose"
	FlagConfig  = "config"
	FlagData    = "data"

	// Browse command flags
	FlagForce     = "force"
	FlagResume    = "resume"
	FlagNoTitles  = "no-titles"
	FlagPageSize  = "page-size"
	FlagChunkSize = "chunk-size"

	// Headless command flags
	FlagNav    = "nav"
	FlagOut    = "out"
	FlagPlane  = "plane"
	FlagWidth  = "width"
	FlagHeight = "height"
	FlagTitles = "titles"

	// Events command flags
	FlagFollow = "follow"
	FlagCount  = "count"
	FlagRaw    = "raw"

	// Config init flags
	FlagGlobal = "global"
)

// flagKeys maps flags to the configuration keys they override.
var flagKeys = map[string]string{
	FlagData:      "data.source",
	FlagPageSize:  "panel.page_size",
	FlagChunkSize: "mesh.chunk_size",
	FlagPlane:     "render.plane",
	FlagWidth:     "render.width",
	FlagHeight:    "render.height",
}
