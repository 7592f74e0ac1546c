// Package main is the entry point for epgcast.
//
// epgcast turns an XMLTV guide into live channels: each programme is looked
// up by its IMDB id, resolved to a playable file and streamed from the
// current position, with generated filler covering gaps in the schedule.
package main

import (
	"os"

	"github.com/stwalsh4118/epgcast/cmd/epgcast/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
