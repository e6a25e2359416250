package progress

import (
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
)

func TestSilentReporterNeverLogs(t *testing.T) {
	log, hook := test.NewNullLogger()
	entry := log.WithField("test", true)
	r := New(entry, 100, true)
	r.Update(50)
	r.Update(100)
	r.Done(100, true)
	if len(hook.Entries) != 0 {
		t.Fatalf("expected no log entries while silent, got %d", len(hook.Entries))
	}
}

func TestDoneLogsErrorOnFailure(t *testing.T) {
	log, hook := test.NewNullLogger()
	entry := log.WithField("test", true)
	r := New(entry, 100, false)
	r.Done(40, false)
	if len(hook.Entries) != 1 {
		t.Fatalf("expected exactly one log entry, got %d", len(hook.Entries))
	}
	if hook.LastEntry().Level.String() != "error" {
		t.Fatalf("expected error level, got %s", hook.LastEntry().Level)
	}
}

func TestUpdateAlwaysLogsOnCompletion(t *testing.T) {
	log, hook := test.NewNullLogger()
	entry := log.WithField("test", true)
	r := New(entry, 10, false)
	r.Update(10)
	if len(hook.Entries) != 1 {
		t.Fatalf("expected completion to force a log line even inside the tick window, got %d", len(hook.Entries))
	}
}
