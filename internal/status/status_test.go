package status

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestReporterTagsLines(t *testing.T) {
	color.NoColor = true
	out := &bytes.Buffer{}
	r := NewReporter(out)

	r.Step("Building %s", "gridapi")
	r.OK("done")
	r.Warn("slow")
	r.Fail("broke")

	s := out.String()
	assert.Contains(t, s, "[RUNNING] Building gridapi\n")
	assert.Contains(t, s, "[SUCCESS] done\n")
	assert.Contains(t, s, "[WARNING] slow\n")
	assert.Contains(t, s, "[ERROR] broke\n")
}

func TestRawPassthrough(t *testing.T) {
	out := &bytes.Buffer{}
	r := NewReporter(out)

	r.Raw("tool output\nsecond line")
	assert.Equal(t, "tool output\nsecond line\n", out.String())

	out.Reset()
	r.Raw("already terminated\n")
	assert.Equal(t, "already terminated\n", out.String())

	out.Reset()
	r.Raw("")
	assert.Zero(t, out.Len(), "empty output must not emit a blank line")
}
