package importer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmaia/kakeibo/internal/importer"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{name: "WholeUnits", input: "100", want: 10000},
		{name: "DotSeparator", input: "12.50", want: 1250},
		{name: "CommaSeparator", input: "12,50", want: 1250},
		{name: "SingleFractionDigit", input: "3.5", want: 350},
		{name: "SurroundingWhitespace", input: " 7,25 ", want: 725},
		{name: "One", input: "1", want: 100},
		{name: "Empty", input: "", wantErr: true},
		{name: "Negative", input: "-10", wantErr: true},
		{name: "Zero", input: "0", wantErr: true},
		{name: "ZeroWithFraction", input: "0.00", wantErr: true},
		{name: "TooManyFractionDigits", input: "1.505", wantErr: true},
		{name: "TrailingSeparator", input: "12.", wantErr: true},
		{name: "NotANumber", input: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := importer.ParseAmount(tt.input)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
