package cmd

import (
	"testing"

	"github.com/theirongolddev/allot/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEditArg(t *testing.T) {
	tests := []struct {
		arg  string
		def  model.EditKind
		want model.EditRequest
	}{
		{"phones=1000", model.EditAbsolute, model.EditRequest{ID: "phones", Raw: "1000", Kind: model.EditAbsolute}},
		{"phones=+10%", model.EditAbsolute, model.EditRequest{ID: "phones", Raw: "+10", Kind: model.EditPercent}},
		{"furniture=-25 %", model.EditAbsolute, model.EditRequest{ID: "furniture", Raw: "-25 ", Kind: model.EditPercent}},
		{"phones=10", model.EditPercent, model.EditRequest{ID: "phones", Raw: "10", Kind: model.EditPercent}},
		{" chairs =abc", model.EditAbsolute, model.EditRequest{ID: "chairs", Raw: "abc", Kind: model.EditAbsolute}},
		{"chairs=", model.EditAbsolute, model.EditRequest{ID: "chairs", Raw: "", Kind: model.EditAbsolute}},
		{"a=b=c", model.EditAbsolute, model.EditRequest{ID: "a", Raw: "b=c", Kind: model.EditAbsolute}},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			got, err := parseEditArg(tt.arg, tt.def)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseEditArgRejectsMissingID(t *testing.T) {
	for _, arg := range []string{"phones", "=10", "  =10"} {
		_, err := parseEditArg(arg, model.EditAbsolute)
		assert.Error(t, err, arg)
	}
}
