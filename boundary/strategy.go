package boundary

import (
	"github.com/stdexport/stdexport-sdk/domain/entities"
	"github.com/stdexport/stdexport-sdk/domain/errors"
)

// linkedStrategy is stamped at link time:
//
//	-ldflags "-X github.com/stdexport/stdexport-sdk/boundary.linkedStrategy=abort"
var linkedStrategy = string(entities.StrategyAbort)

// StrategySymbol is the fully qualified name of the variable stamped by the
// build plan.
const StrategySymbol = "github.com/stdexport/stdexport-sdk/boundary.linkedStrategy"

// Strategy returns the failure strategy the library was linked with.
func Strategy() entities.FailureStrategy {
	return entities.FailureStrategy(linkedStrategy)
}

func checkStrategy() error {
	if s := Strategy(); s != entities.StrategyAbort {
		return &errors.StrategyConflictError{
			Requested: s,
			Required:  entities.StrategyAbort,
			Where:     "linked library",
		}
	}
	return nil
}
