package main

import (
	"time"

	"github.com/spf13/cast"
)

// parseDuration accepts Go durations ("90s", "2m") and bare seconds ("90").
func parseDuration(s string) (time.Duration, error) {
	if secs, err := cast.ToIntE(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return cast.ToDurationE(s)
}
