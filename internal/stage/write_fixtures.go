package stage

import (
	"context"
	"fmt"
)

const writeFixturesStage = "write-fixtures"

// write-fixtures persists the store when it has unsaved mutations. The
// fixture file is one shared artifact, so a write failure is fatal in
// every error mode; skipping it would lose the captures this run just
// recorded.
func writeFixturesRunner(ctx context.Context, in Envelope, deps Deps) (Envelope, error) {
	if deps.Store == nil {
		return Envelope{}, fmt.Errorf("%s: no fixture store", writeFixturesStage)
	}
	if !deps.Store.Dirty() {
		if deps.Logger != nil {
			deps.Logger.Debug("fixture store clean, nothing to write")
		}
		return in, nil
	}
	path := ""
	if in.Meta != nil && in.Meta.Fixtures != nil {
		path = in.Meta.Fixtures.Path
	}
	if err := deps.Store.Save(path); err != nil {
		return Envelope{}, fmt.Errorf("%s: %v", writeFixturesStage, err)
	}
	if deps.Logger != nil {
		deps.Logger.WithField("path", deps.Store.Path()).Infof("wrote %d fixtures", deps.Store.Len())
	}
	return in, nil
}

func init() { Register(writeFixturesStage, writeFixturesRunner) }
