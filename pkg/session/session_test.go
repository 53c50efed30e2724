package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/swapi-resupply/pkg/resupply"
	"github.com/Sternrassler/swapi-resupply/pkg/swapi"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testShips() []swapi.Starship {
	return []swapi.Starship{
		{Name: "Y-wing", MGLT: "80", Consumables: "1 week"},
		{Name: "Millennium Falcon", MGLT: "75", Consumables: "2 months"},
		{Name: "Death Star", MGLT: "10", Consumables: "3 years"},
		{Name: "Rebel transport", MGLT: "unknown", Consumables: "6 months"},
	}
}

func TestRun_ExitAnyCase(t *testing.T) {
	for _, input := range []string{"exit", "EXIT", "Exit", "  eXiT  ", "exit\r"} {
		t.Run(strings.TrimSpace(input), func(t *testing.T) {
			s := New(testShips(), nil)
			var out bytes.Buffer

			err := s.Run(context.Background(), strings.NewReader(input+"\n1000\n"), &out)
			require.NoError(t, err)

			assert.Equal(t, Prompt, out.String(), "nothing calculated after exit")
			assert.Nil(t, s.Results())
			assert.Equal(t, StateExiting, s.State())
		})
	}
}

func TestRun_ReleasesReaderOnReturn(t *testing.T) {
	before := runtime.NumGoroutine()

	for i := 0; i < 50; i++ {
		s := New(testShips(), nil)
		err := s.Run(context.Background(), strings.NewReader("exit\n1\n2\n"), io.Discard)
		require.NoError(t, err)
	}

	assert.Eventually(t, func() bool {
		return runtime.NumGoroutine() <= before
	}, 2*time.Second, 10*time.Millisecond, "line readers still running after exit")
}

func TestRun_EOFExits(t *testing.T) {
	s := New(testShips(), nil)
	var out bytes.Buffer

	err := s.Run(context.Background(), strings.NewReader(""), &out)
	require.NoError(t, err)
	assert.Equal(t, Prompt, out.String())
}

func TestRun_PrintsResults(t *testing.T) {
	s := New(testShips(), nil)
	var out bytes.Buffer

	err := s.Run(context.Background(), strings.NewReader("1000000\nexit\n"), &out)
	require.NoError(t, err)

	want := Prompt +
		"Your results for a travel distance of 1000000 are:\n" +
		"\n" +
		"Y-wing: 75\n" +
		"Millennium Falcon: 10\n" +
		"Death Star: 4\n" +
		"Rebel transport: Cannot Calculate\n" +
		"\n" +
		Prompt
	if diff := cmp.Diff(want, out.String()); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestHandle_ThousandsSeparators(t *testing.T) {
	ships := []swapi.Starship{{Name: "Slowpoke", MGLT: "1", Consumables: "1 hour"}}
	s := New(ships, nil)
	var out bytes.Buffer

	done, err := s.Handle("1234567", &out)
	require.NoError(t, err)
	assert.False(t, done)
	assert.Contains(t, out.String(), "Slowpoke: 1,234,567\n")
}

func TestHandle_ZeroStops(t *testing.T) {
	s := New(testShips()[:1], nil)
	var out bytes.Buffer

	_, err := s.Handle("0", &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Y-wing: 0\n")
}

func TestHandle_InvalidInputKeepsResults(t *testing.T) {
	s := New(testShips(), nil)
	var out bytes.Buffer

	_, err := s.Handle("1000000", &out)
	require.NoError(t, err)
	before := s.Results()
	require.Len(t, before, 4)

	for _, input := range []string{"abc", "12.5", "-100", "", "1e6"} {
		t.Run(input, func(t *testing.T) {
			out.Reset()

			done, err := s.Handle(input, &out)
			require.NoError(t, err)
			assert.False(t, done)
			assert.Equal(t, input+" is not a valid distance value\n\n", out.String())
			assert.Equal(t, before, s.Results())
			assert.Equal(t, StatePrompting, s.State())
		})
	}
}

func TestHandle_RecalculationReplacesResults(t *testing.T) {
	s := New(testShips(), nil)
	var out bytes.Buffer

	_, err := s.Handle("1000000", &out)
	require.NoError(t, err)
	first := s.Results()

	_, err = s.Handle("100", &out)
	require.NoError(t, err)
	second := s.Results()

	require.Len(t, second, len(testShips()))
	assert.NotEqual(t, first, second)
	assert.Equal(t, []resupply.Result{
		{Name: "Y-wing", Stops: 1},
		{Name: "Millennium Falcon", Stops: 1},
		{Name: "Death Star", Stops: 1},
		{Name: "Rebel transport", Stops: resupply.CannotCalculate},
	}, second)
}

func TestResults_ReturnsCopy(t *testing.T) {
	s := New(testShips(), nil)
	_, err := s.Handle("1000", io.Discard)
	require.NoError(t, err)

	got := s.Results()
	got[0].Stops = 999

	assert.NotEqual(t, int64(999), s.Results()[0].Stops)
}

func TestRun_CalculationErrorIsFatal(t *testing.T) {
	ships := []swapi.Starship{{Name: "Broken", MGLT: "0", Consumables: "1 day"}}
	s := New(ships, nil)
	var out bytes.Buffer

	err := s.Run(context.Background(), strings.NewReader("100\n200\n"), &out)
	require.Error(t, err)
	assert.ErrorIs(t, err, resupply.ErrDivisionByZero)
	assert.Equal(t, Prompt, out.String(), "no second prompt after a fatal error")
}

func TestRun_SkipInvalidKeepsGoing(t *testing.T) {
	ships := []swapi.Starship{
		{Name: "Broken", MGLT: "0", Consumables: "1 day"},
		{Name: "Fine", MGLT: "10", Consumables: "1 day"},
	}
	calc := resupply.NewCalculator()
	calc.SkipInvalid = true
	s := New(ships, calc)
	var out bytes.Buffer

	err := s.Run(context.Background(), strings.NewReader("1000\nexit\n"), &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Broken: Cannot Calculate\n")
	assert.Contains(t, out.String(), "Fine: 5\n")
}

func TestRun_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pr, pw := io.Pipe()
	defer pw.Close()

	s := New(testShips(), nil)
	errc := make(chan error, 1)
	go func() {
		errc <- s.Run(ctx, pr, io.Discard)
	}()

	cancel()

	select {
	case err := <-errc:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestRun_WriteError(t *testing.T) {
	s := New(testShips(), nil)
	err := s.Run(context.Background(), strings.NewReader("100\n"), failingWriter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write prompt")
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "prompting", StatePrompting.String())
	assert.Equal(t, "exiting", StateExiting.String())
	assert.Equal(t, "state(42)", State(42).String())
}
