package couch

import "github.com/fivetwenty-io/couchdb-client/internal/constants"

// CompileDesignDoc builds the design document "_design/<name>" from map and
// reduce sources. Views is nil when params defines no view.
func CompileDesignDoc(name string, params *CompileDesignDocParams) *DesignDoc {
	designDoc := &DesignDoc{
		Doc:      Doc{ID: constants.DesignPrefix + name},
		Language: constants.DesignLanguage,
	}

	if params == nil {
		return designDoc
	}

	if len(params.MapViews) > 0 || len(params.ReduceViews) > 0 {
		designDoc.Views = make(map[string]DesignDocView)
	}

	for view, source := range params.MapViews {
		definition := designDoc.Views[view]
		definition.Map = source
		designDoc.Views[view] = definition
	}

	for view, source := range params.ReduceViews {
		definition := designDoc.Views[view]
		definition.Reduce = source
		designDoc.Views[view] = definition
	}

	return designDoc
}
