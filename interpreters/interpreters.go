// Package interpreters assembles the standard script interpreters.
package interpreters

import (
	"github.com/Comcast/shoots/core"
	"github.com/Comcast/shoots/interpreters/ecmascript"
	"github.com/Comcast/shoots/interpreters/noop"
)

// Standard returns the interpreters by name.  "javascript" is an
// alias for "ecmascript".
func Standard() core.InterpretersMap {
	is := core.NewInterpretersMap()

	es := ecmascript.NewInterpreter()
	is["ecmascript"] = es
	is["javascript"] = es

	is["noop"] = noop.NewInterpreter()

	return is
}
