// Package resupply computes how many resupply stops a starship needs to
// cover a distance given in megalights.
package resupply

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Sternrassler/swapi-resupply/pkg/duration"
	"github.com/Sternrassler/swapi-resupply/pkg/swapi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// CannotCalculate marks a result whose speed or endurance is unknown.
const CannotCalculate int64 = -1

var (
	calculationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "resupply_calculations_total",
		Help: "Total number of completed calculation passes",
	})

	calculationErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resupply_calculation_errors_total",
		Help: "Total number of starship records that could not be calculated, by reason",
	}, []string{"reason"})

	calculationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "resupply_calculation_duration_seconds",
		Help:    "Duration of a calculation pass over the whole dataset",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
	})
)

// ErrDivisionByZero is matched by every ArithmeticError.
var ErrDivisionByZero = errors.New("division by zero")

// ArithmeticError reports an invalid divisor in StopCount.
type ArithmeticError struct {
	Operand string
}

// Error implements the error interface.
func (e *ArithmeticError) Error() string {
	return fmt.Sprintf("stop count: %s must be positive: %v", e.Operand, ErrDivisionByZero)
}

// Is reports ErrDivisionByZero for every ArithmeticError.
func (e *ArithmeticError) Is(target error) bool {
	return target == ErrDivisionByZero
}

// RecordError ties a failure to the starship it happened on.
type RecordError struct {
	Starship string
	Err      error
}

// Error implements the error interface.
func (e *RecordError) Error() string {
	return fmt.Sprintf("starship %q: %v", e.Starship, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *RecordError) Unwrap() error {
	return e.Err
}

// Result is the stop count for one starship.
type Result struct {
	Name  string
	Stops int64
}

// Calculable reports whether Stops holds a real count.
func (r Result) Calculable() bool {
	return r.Stops != CannotCalculate
}

// StopCount returns ceil((distance / mglt) / consumableHours), where
// distance / mglt is truncated to whole hours of travel.
func StopCount(distance, mglt, consumableHours int64) (int64, error) {
	if mglt <= 0 {
		return 0, &ArithmeticError{Operand: "MGLT"}
	}
	if consumableHours <= 0 {
		return 0, &ArithmeticError{Operand: "consumable hours"}
	}
	if distance < 0 {
		return 0, fmt.Errorf("stop count: distance must not be negative (got %d)", distance)
	}

	hours := distance / mglt
	stops := hours / consumableHours
	if hours%consumableHours != 0 {
		stops++
	}
	return stops, nil
}

// Calculator runs StopCount over a dataset.
type Calculator struct {
	// SkipInvalid marks records that fail to parse or divide as
	// CannotCalculate instead of aborting the pass.
	SkipInvalid bool

	logger zerolog.Logger
}

// NewCalculator returns a Calculator that aborts on the first bad record.
func NewCalculator() *Calculator {
	return &Calculator{
		logger: log.With().Str("component", "resupply").Logger(),
	}
}

// Calculate returns one Result per starship, in dataset order.
func Calculate(distance int64, ships []swapi.Starship) ([]Result, error) {
	return NewCalculator().Calculate(distance, ships)
}

// Calculate returns one Result per starship, in dataset order. A record
// with an unknown MGLT or consumables value yields CannotCalculate.
func (c *Calculator) Calculate(distance int64, ships []swapi.Starship) ([]Result, error) {
	start := time.Now()

	results := make([]Result, 0, len(ships))
	for _, ship := range ships {
		stops, err := c.stopsFor(distance, ship)
		if err != nil {
			reason := "parse"
			if errors.Is(err, ErrDivisionByZero) {
				reason = "arithmetic"
			}
			calculationErrorsTotal.WithLabelValues(reason).Inc()

			if !c.SkipInvalid {
				return nil, &RecordError{Starship: ship.Name, Err: err}
			}

			c.logger.Warn().
				Err(err).
				Str("starship", ship.Name).
				Msg("Skipping starship that cannot be calculated")
			stops = CannotCalculate
		}

		results = append(results, Result{Name: ship.Name, Stops: stops})
	}

	calculationsTotal.Inc()
	calculationDuration.Observe(time.Since(start).Seconds())

	c.logger.Debug().
		Int64("distance", distance).
		Int("starships", len(results)).
		Msg("Calculation complete")

	return results, nil
}

func (c *Calculator) stopsFor(distance int64, ship swapi.Starship) (int64, error) {
	if ship.HasUnknownSpeed() || ship.HasUnknownConsumables() {
		return CannotCalculate, nil
	}

	mglt, err := strconv.ParseInt(ship.MGLT, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse MGLT %q: %w", ship.MGLT, err)
	}

	hours, err := duration.ParseHours(ship.Consumables)
	if err != nil {
		return 0, err
	}

	return StopCount(distance, mglt, hours)
}
