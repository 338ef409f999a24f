package stage

import (
	"context"
	"os"
	"path/filepath"
)

const enrichFileinfoStage = "enrich-fileinfo"

// enrich-fileinfo stats every sample source and records size and mtime.
// A missing source is not an error here: the record is flagged and later
// stages decide what a fixture without a source means. When the source is
// newer than its stored capture the fixture is marked stale in the store,
// which leaves approval untouched.
func enrichFileinfoRunner(ctx context.Context, in Envelope, deps Deps) (Envelope, error) {
	root := determineRoot(in)
	mode, embed := errorMode(in.Meta)
	return runSequentialRecordStage(in, enrichFileinfoStage, mode, embed, func(r Record) (Record, *Error, error) {
		path := filepath.Join(root, filepath.FromSlash(r.Locator))
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				r.Source = &SourceInfo{Missing: true}
				return r, nil, nil
			}
			return r, &Error{Stage: enrichFileinfoStage, Locator: r.Locator, Message: err.Error()}, err
		}
		mtime := float64(info.ModTime().UnixNano()) / 1e9
		r.Source = &SourceInfo{SizeBytes: info.Size(), Mtime: mtime}
		if r.Fixture != nil && r.Fixture.Present && deps.Store != nil {
			r.Fixture.Stale = deps.Store.MarkStale(r.Locator, mtime)
		}
		return r, nil, nil
	})
}

func init() { Register(enrichFileinfoStage, enrichFileinfoRunner) }
