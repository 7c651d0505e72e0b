package telemetry

import (
	"fmt"
)

// API is what components report problems and counts through. Production code
// uses SlogAPI, tests use a Recorder to assert on what was reported.
type API interface {
	// ReportBroken reports a failure that stops the current operation.
	//
	// `id` names the component and step that broke, ex. `fetcher: write-raw`,
	// keys, paths and errors go in `params`. Ids are lowercase with dashes,
	// packages declare them as `report_...` constants.
	ReportBroken(id string, params ...any)

	// ReportWarning reports something that was skipped or fixed up, the
	// operation continues.
	ReportWarning(id string, params ...any)

	// ReportDebug is only visible at the debug log level.
	ReportDebug(msg string, params ...any)

	// ReportCount reports the total of something at the end of a run.
	ReportCount(id string, count int64)
}

// ScopedAPI prefixes every id with a namespace, usually the package name.
type ScopedAPI struct {
	namespace string
	inner     API
}

func NewScopedAPI(namespace string, inner API) ScopedAPI {
	return ScopedAPI{namespace: namespace, inner: inner}
}

func (s ScopedAPI) scoped(id string) string {
	return fmt.Sprintf("%s: %s", s.namespace, id)
}

func (s ScopedAPI) ReportBroken(id string, params ...any) {
	s.inner.ReportBroken(s.scoped(id), params...)
}

func (s ScopedAPI) ReportWarning(id string, params ...any) {
	s.inner.ReportWarning(s.scoped(id), params...)
}

func (s ScopedAPI) ReportDebug(msg string, params ...any) {
	s.inner.ReportDebug(s.scoped(msg), params...)
}

func (s ScopedAPI) ReportCount(id string, count int64) {
	s.inner.ReportCount(s.scoped(id), count)
}
