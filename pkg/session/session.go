// Package session runs the interactive distance prompt over a fetched
// starship dataset.
package session

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Sternrassler/swapi-resupply/pkg/resupply"
	"github.com/Sternrassler/swapi-resupply/pkg/swapi"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	// Prompt is written before every read.
	Prompt = "Enter total distance to travel: "

	exitCommand = "exit"
)

// State is the position of the session in its prompt loop.
type State int

const (
	// StatePrompting waits for the next input line
	StatePrompting State = iota
	// StateValidating parses a line as exit or a distance
	StateValidating
	// StateCalculating runs the calculator over the dataset
	StateCalculating
	// StateDisplaying writes the results table
	StateDisplaying
	// StateExiting is terminal
	StateExiting
)

func (s State) String() string {
	switch s {
	case StatePrompting:
		return "prompting"
	case StateValidating:
		return "validating"
	case StateCalculating:
		return "calculating"
	case StateDisplaying:
		return "displaying"
	case StateExiting:
		return "exiting"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Session owns the dataset and the latest result set. It is not safe for
// concurrent use.
type Session struct {
	ships   []swapi.Starship
	results []resupply.Result
	state   State

	calculator *resupply.Calculator
	printer    *message.Printer
	logger     zerolog.Logger
}

// New creates a session over ships. A nil calculator uses
// resupply.NewCalculator.
func New(ships []swapi.Starship, calculator *resupply.Calculator) *Session {
	if calculator == nil {
		calculator = resupply.NewCalculator()
	}
	return &Session{
		ships:      ships,
		state:      StatePrompting,
		calculator: calculator,
		printer:    message.NewPrinter(language.English),
		logger:     log.With().Str("component", "session").Logger(),
	}
}

// State returns the current loop state.
func (s *Session) State() State {
	return s.state
}

// Results returns a copy of the latest result set.
func (s *Session) Results() []resupply.Result {
	if s.results == nil {
		return nil
	}
	out := make([]resupply.Result, len(s.results))
	copy(out, s.results)
	return out
}

// Run prompts on out and reads lines from in until the user types exit,
// in reaches EOF, or ctx is cancelled. Exit and EOF return nil.
func (s *Session) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines, readErr := readLines(ctx, in)

	for {
		s.state = StatePrompting
		if _, err := fmt.Fprint(out, Prompt); err != nil {
			return fmt.Errorf("write prompt: %w", err)
		}

		select {
		case <-ctx.Done():
			s.state = StateExiting
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				s.state = StateExiting
				if err := <-readErr; err != nil {
					return fmt.Errorf("read input: %w", err)
				}
				s.logger.Debug().Msg("Input closed")
				return nil
			}

			done, err := s.Handle(line, out)
			if err != nil {
				return err
			}
			if done {
				return nil
			}
		}
	}
}

// Handle processes one input line and reports whether the session is done.
func (s *Session) Handle(line string, out io.Writer) (bool, error) {
	s.state = StateValidating
	input := strings.TrimRight(line, "\r\n")
	trimmed := strings.TrimSpace(input)

	if strings.EqualFold(trimmed, exitCommand) {
		s.state = StateExiting
		s.logger.Debug().Msg("Exit requested")
		return true, nil
	}

	distance, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil || distance < 0 {
		s.logger.Debug().Str("input", input).Msg("Rejected distance")
		_, werr := fmt.Fprintf(out, "%s is not a valid distance value\n\n", input)
		s.state = StatePrompting
		return false, werr
	}

	s.state = StateCalculating
	results, err := s.calculator.Calculate(distance, s.ships)
	if err != nil {
		s.state = StateExiting
		return true, fmt.Errorf("calculate for distance %d: %w", distance, err)
	}
	s.results = results

	s.state = StateDisplaying
	if err := s.display(out, distance); err != nil {
		return true, err
	}

	s.state = StatePrompting
	return false, nil
}

func (s *Session) display(out io.Writer, distance int64) error {
	w := bufio.NewWriter(out)

	fmt.Fprintf(w, "Your results for a travel distance of %d are:\n\n", distance)
	for _, r := range s.results {
		fmt.Fprintf(w, "%s: %s\n", r.Name, s.formatStops(r))
	}
	fmt.Fprintln(w)

	if err := w.Flush(); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	return nil
}

func (s *Session) formatStops(r resupply.Result) string {
	if !r.Calculable() {
		return "Cannot Calculate"
	}
	return s.printer.Sprintf("%d", r.Stops)
}

// readLines feeds in line by line until EOF or ctx is done. The error
// channel receives the scanner error before lines is closed.
func readLines(ctx context.Context, in io.Reader) (<-chan string, <-chan error) {
	lines := make(chan string)
	errc := make(chan error, 1)

	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- scanner.Err()
		close(lines)
	}()

	return lines, errc
}
