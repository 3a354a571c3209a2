package telemetry

import (
	"fmt"
)

// API is where components report what happens to them. Logging and metrics hang off of
// implementations of it, and tests swap in a Recorder to assert on reports.
type API interface {
	// ReportBroken reports a component that failed and needs attention.
	//
	// `id` names the component, not the line that failed: a failed GET inside the kworb
	// fetcher is `client.fetch`. Put finer detail (status, track id) into params or the
	// wrapped error. Ids are lowercase, underscores separate words of a component and
	// dots separate a component from its method. ScopedAPI adds the package prefix.
	ReportBroken(id string, params ...any)

	// ReportWarning reports something that still worked but looks wrong, such as a page
	// that needed the container fallback. Ids follow ReportBroken.
	ReportWarning(id string, params ...any)

	// ReportDebug is only surfaced in verbose runs.
	ReportDebug(msg string, params ...any)

	// ReportCount records a point in time value, counts are gauges and are not summed.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every id with a namespace, ex. "kworb: batch.run".
type ScopedAPI struct {
	scope string
	api   API
}

func NewScopedAPI(scope string, api API) ScopedAPI {
	return ScopedAPI{scope: scope, api: api}
}

func (s ScopedAPI) qualify(id string) string {
	return fmt.Sprintf("%s: %s", s.scope, id)
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.api.ReportBroken(s.qualify(id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.api.ReportWarning(s.qualify(id), params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.api.ReportDebug(s.qualify(msg), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.api.ReportCount(s.qualify(id), count)
}
