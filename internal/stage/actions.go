package stage

import "fmt"

// PreparedActionStages returns the deterministic stage order used for a
// harness action. The same orders serve the CLI commands and the
// interactive session, so a batch `record` and a menu `gen-all` are the
// exact same pipeline.
func PreparedActionStages(action string) ([]string, error) {
	switch action {
	case "check":
		return []string{
			"load-fixtures",
			"validate-locators",
			"enrich-fileinfo",
			"compile-stages",
			"execute-capture",
			"normalize-output",
			"compare-fixtures",
		}, nil
	case "record":
		return []string{
			"load-fixtures",
			"validate-locators",
			"enrich-fileinfo",
			"enrich-provenance",
			"compile-stages",
			"execute-capture",
			"normalize-output",
			"record-results",
			"write-fixtures",
		}, nil
	case "record-all":
		return []string{
			"load-fixtures",
			"discover-sources",
			"validate-locators",
			"enrich-fileinfo",
			"enrich-provenance",
			"compile-stages",
			"execute-capture",
			"normalize-output",
			"record-results",
			"write-fixtures",
		}, nil
	case "doctor":
		return []string{
			"load-fixtures",
			"discover-sources",
			"enrich-fileinfo",
			"compare-fixtures",
		}, nil
	default:
		return nil, fmt.Errorf("invalid action %q", action)
	}
}
