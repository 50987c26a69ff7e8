package temporal

import (
	"reflect"
	"runtime"
	"testing"
)

// fakeActivityRegistrar records every function handed to RegisterActivity
// by its underlying code pointer, so a test can assert a specific method
// was registered without dialing a real Temporal cluster.
type fakeActivityRegistrar struct {
	registered map[string]bool
}

func (f *fakeActivityRegistrar) RegisterActivity(fn interface{}) {
	if f.registered == nil {
		f.registered = make(map[string]bool)
	}
	f.registered[funcName(fn)] = true
}

func funcName(fn interface{}) string {
	return runtime.FuncForPC(reflect.ValueOf(fn).Pointer()).Name()
}

// TestRegisterActivitiesIncludesEveryWorkflowDependency guards the bug
// where AggregateMeetingSummaryActivity was called by
// ProcessQueueEntryWorkflow's item-level path but never registered on the
// worker: against a real cluster that fails every item-level execution with
// "unable to find activityType", a failure the testsuite-mocked workflow
// tests can't catch because OnActivity bypasses registration entirely.
func TestRegisterActivitiesIncludesEveryWorkflowDependency(t *testing.T) {
	acts := &Activities{}
	reg := &fakeActivityRegistrar{}
	registerActivities(reg, acts)

	required := []interface{}{
		acts.FetchMeetingsActivity,
		acts.StoreMeetingActivity,
		acts.MarkCitySyncedActivity,
		acts.ExtractTextActivity,
		acts.SummarizeActivity,
		acts.SummarizeBatchActivity,
		acts.AggregateMeetingSummaryActivity,
		acts.PersistResultActivity,
	}
	for _, fn := range required {
		name := funcName(fn)
		if !reg.registered[name] {
			t.Errorf("expected %s to be registered on the worker", name)
		}
	}
}
