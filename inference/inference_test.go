package inference

import (
	"testing"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	ort "github.com/yalue/onnxruntime_go"

	detrack "github.com/swdee/go-detrack"
	"github.com/swdee/go-detrack/tensor"
)

func TestResolveShape(t *testing.T) {

	tests := []struct {
		name string
		dims ort.Shape
		want []int
		exp  []int
		err  bool
	}{
		{"fixed", ort.NewShape(1, 84, 5040), nil, []int{1, 84, 5040}, false},
		{"dynamic batch", ort.NewShape(-1, 84, 5040), nil, []int{1, 84, 5040}, false},
		{"dynamic output", ort.NewShape(1, 84, -1), nil, nil, true},
		{"dynamic input", ort.NewShape(-1, 3, -1, -1), []int{1, 3, 384, 640}, []int{1, 3, 384, 640}, false},
		{"input mismatch", ort.NewShape(1, 3, 640, 640), []int{1, 3, 384, 640}, nil, true},
		{"rank mismatch", ort.NewShape(1, 3, 640), []int{1, 3, 384, 640}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveShape(tt.dims, tt.want)

			if tt.err {
				assert.ErrorIs(t, err, ErrUnsupportedModel)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.exp, got)
		})
	}
}

func TestCheckInput(t *testing.T) {

	shape := []int{1, 3, 4, 4}

	assert.NoError(t, checkInput(tensor.Zeros(1, 3, 4, 4), shape))
	assert.ErrorIs(t, checkInput(tensor.Zeros(1, 3, 4, 5), shape), ErrInputShape)
	assert.ErrorIs(t, checkInput(nil, shape), ErrInputShape)

	short := tensor.Zeros(1, 3, 4, 4)
	short.Data = short.Data[:10]
	assert.ErrorIs(t, checkInput(short, shape), ErrInputShape)
}

func TestNewFactoryUnknownBackend(t *testing.T) {

	cfg := detrack.DefaultConfig()
	cfg.Backend = "tflite"

	_, err := NewFactory(cfg, logs.NewTestingLog(t))
	assert.ErrorIs(t, err, detrack.ErrConfig)
	assert.True(t, detrack.IsConfigError(err))
}
