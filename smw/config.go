package smw

import (
	"io"
	"os"
	"strconv"
	"strings"
)

// Options configures query execution. A Client never mutates its Options.
type Options struct {
	// DivisionFactor is the number of time windows a query is split into.
	// 1 (the default) disables partitioning.
	DivisionFactor int

	// Split selects the monotonic property used to partition queries
	Split SplitClause

	// Progress receives one '.' per API request when set
	Progress io.Writer

	// Debug logs every print request and deserialized value at debug level
	Debug bool
}

// DefaultOptions returns options for plain paginated queries
func DefaultOptions() Options {
	return Options{
		DivisionFactor: 1,
		Split:          DefaultSplitClause(),
	}
}

// LoadOptions reads query options from environment variables
func LoadOptions() Options {
	opts := DefaultOptions()

	if d := os.Getenv("SMW_QUERY_DIVISION"); d != "" {
		if n, err := strconv.Atoi(d); err == nil && n >= 1 {
			opts.DivisionFactor = n
		}
	}
	if p := os.Getenv("SMW_SPLIT_PROPERTY"); p != "" {
		opts.Split.Name = p
	}
	if l := os.Getenv("SMW_SPLIT_LABEL"); l != "" {
		opts.Split.Label = l
	}
	if os.Getenv("SMW_SHOW_PROGRESS") == "true" {
		opts.Progress = os.Stderr
	}
	opts.Debug = strings.EqualFold(os.Getenv("SMW_DEBUG"), "true")

	return opts
}

// normalized fills in defaults for zero fields
func (o Options) normalized() Options {
	if o.DivisionFactor < 1 {
		o.DivisionFactor = 1
	}
	if o.Split.Name == "" {
		o.Split.Name = DefaultSplitProperty
	}
	if o.Split.Label == "" {
		o.Split.Label = DefaultSplitLabel
	}
	return o
}
