package logx

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type captureLog struct {
	lines  []string
	closed bool
}

func (c *captureLog) add(level, format string, a ...interface{}) {
	c.lines = append(c.lines, level+" "+fmt.Sprintf(format, a...))
}

func (c *captureLog) Close()                                    { c.closed = true }
func (c *captureLog) Debugf(format string, a ...interface{})    { c.add("D", format, a...) }
func (c *captureLog) Infof(format string, a ...interface{})     { c.add("I", format, a...) }
func (c *captureLog) Warnf(format string, a ...interface{})     { c.add("W", format, a...) }
func (c *captureLog) Errorf(format string, a ...interface{})    { c.add("E", format, a...) }
func (c *captureLog) Criticalf(format string, a ...interface{}) { c.add("C", format, a...) }

func TestForComponent(t *testing.T) {
	base := &captureLog{}
	l := ForComponent(base, "Plates")
	l.Infof("Found %v", 3)
	l.Warnf("Model %v missing", "x")
	ForComponent(base, "Faces").Errorf("Retrying with %v layout", "packed")
	require.Equal(t, []string{
		"I Plates: Found 3",
		"W Plates: Model x missing",
		"E Faces: Retrying with packed layout",
	}, base.lines)

	l.Close()
	require.False(t, base.closed)
}

func TestForComponentGCP(t *testing.T) {
	// No client is needed to build the labels
	root := &GCPLogger{}
	l := ForComponent(root, "Pipeline").(*GCPLogger)
	require.Equal(t, map[string]string{"component": "Pipeline"}, l.labels)
	require.True(t, l.shared)
	nested := ForComponent(l, "Plates").(*GCPLogger)
	require.Equal(t, "Pipeline/Plates", nested.labels["component"])
	require.Equal(t, "Pipeline", l.labels["component"])
	require.Nil(t, root.labels)
}
