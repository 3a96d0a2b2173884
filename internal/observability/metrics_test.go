package observability

import (
	"testing"

	"github.com/tengenbot/tengen/internal/logging"
	"github.com/tengenbot/tengen/internal/testutil/testlog"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	testlog.Start(t)
	RegisterMetrics()
	RegisterMetrics()

	RecordCommand("genmove", true)
	RecordCommand("boardsize", false)
	RecordThink("ponder")
	RecordThinkCancel()

	LogSummary(logging.Logger())
}
