package utils

import "github.com/davecgh/go-spew/spew"

// dumper prints stable output: no pointer addresses, maps in key order.
var dumper = spew.ConfigState{
	Indent:                  "  ",
	DisableCapacities:       true,
	DisablePointerAddresses: true,
	SortKeys:                true,
}

// SDump renders values for debug logs and tool output.
func SDump(a ...interface{}) string {
	return dumper.Sdump(a...)
}
