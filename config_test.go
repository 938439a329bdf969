package serial

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cases := map[string]Config{
		"zero baud":    {BaudRate: 0},
		"flow control": {BaudRate: 9600, FlowControl: 7},
		"parity":       {BaudRate: 9600, Parity: 3},
		"stop bits":    {BaudRate: 9600, StopBits: 2},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestNewConfig(t *testing.T) {
	cfg, err := NewConfig(9600, FlowControlHardware, ParityEven, StopBitsTwo)
	require.NoError(t, err)
	require.Equal(t, Config{BaudRate: 9600, FlowControl: FlowControlHardware, Parity: ParityEven, StopBits: StopBitsTwo}, cfg)
	require.Equal(t, "9600 even parity, 2 stop bit(s), flow control hardware", cfg.String())

	_, err = NewConfig(0, FlowControlNone, ParityNone, StopBitsOne)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestParseSettings(t *testing.T) {
	flow, err := ParseFlowControl("RTSCTS")
	require.NoError(t, err)
	require.Equal(t, FlowControlHardware, flow)
	flow, err = ParseFlowControl("software")
	require.NoError(t, err)
	require.Equal(t, FlowControlSoftware, flow)
	flow, err = ParseFlowControl("")
	require.NoError(t, err)
	require.Equal(t, FlowControlNone, flow)
	_, err = ParseFlowControl("dtrdsr")
	require.ErrorIs(t, err, ErrInvalidConfig)

	parity, err := ParseParity("O")
	require.NoError(t, err)
	require.Equal(t, ParityOdd, parity)
	parity, err = ParseParity("even")
	require.NoError(t, err)
	require.Equal(t, ParityEven, parity)
	_, err = ParseParity("mark")
	require.ErrorIs(t, err, ErrInvalidConfig)

	stop, err := ParseStopBits("2")
	require.NoError(t, err)
	require.Equal(t, StopBitsTwo, stop)
	_, err = ParseStopBits("1.5")
	require.ErrorIs(t, err, ErrInvalidConfig)

	// String and Parse agree
	for _, f := range []FlowControl{FlowControlNone, FlowControlSoftware, FlowControlHardware} {
		got, err := ParseFlowControl(f.String())
		require.NoError(t, err)
		require.Equal(t, f, got)
	}
	for _, p := range []Parity{ParityNone, ParityOdd, ParityEven} {
		got, err := ParseParity(p.String())
		require.NoError(t, err)
		require.Equal(t, p, got)
	}
	for _, s := range []StopBits{StopBitsOne, StopBitsTwo} {
		got, err := ParseStopBits(s.String())
		require.NoError(t, err)
		require.Equal(t, s, got)
	}
}
