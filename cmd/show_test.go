package cmd

import (
	"bytes"
	"context"
	"testing"

	"github.com/theirongolddev/allot/internal/model"
	"github.com/theirongolddev/allot/internal/pipeline"
	"github.com/theirongolddev/allot/internal/source"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportPlan(t *testing.T) {
	eng, err := pipeline.NewEngine(source.SamplePlan())
	require.NoError(t, err)
	snap, out := eng.Apply(context.Background(), model.EditRequest{ID: "phones", Raw: "1000"})
	require.True(t, out.Applied)

	tests := []struct {
		flag   string
		format source.Format
	}{
		{"toml", source.FormatTOML},
		{"json", source.FormatJSON},
		{" YAML ", source.FormatYAML},
	}
	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, exportPlan(&buf, snap, tt.flag))

			plan, err := source.Parse(buf.Bytes(), tt.format)
			require.NoError(t, err)
			assert.Equal(t, "sample", plan.Name)

			phones, ok := model.Find(plan.Nodes, "phones")
			require.True(t, ok)
			assert.Equal(t, 1000.0, phones.Value)
			electronics, _ := model.Find(plan.Nodes, "electronics")
			assert.Equal(t, 1700.0, electronics.Value)
		})
	}
}

func TestExportPlanRejectsUnknownFormat(t *testing.T) {
	eng, err := pipeline.NewEngine(source.SamplePlan())
	require.NoError(t, err)

	var buf bytes.Buffer
	err = exportPlan(&buf, eng.Snapshot(), "csv")
	assert.ErrorIs(t, err, source.ErrUnsupportedFormat)
	assert.Zero(t, buf.Len())
}
