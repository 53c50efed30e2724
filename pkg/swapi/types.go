package swapi

import "github.com/Sternrassler/swapi-resupply/pkg/pagination"

// Unknown is the literal SWAPI uses for values it does not know.
const Unknown = "unknown"

// Starship is one record of the SWAPI starships listing.
// All numeric-looking fields are strings in the API and may hold "unknown".
type Starship struct {
	Name                 string   `json:"name"`
	Model                string   `json:"model"`
	Manufacturer         string   `json:"manufacturer"`
	CostInCredits        string   `json:"cost_in_credits"`
	Length               string   `json:"length"`
	MaxAtmospheringSpeed string   `json:"max_atmosphering_speed"`
	Crew                 string   `json:"crew"`
	Passengers           string   `json:"passengers"`
	CargoCapacity        string   `json:"cargo_capacity"`
	Consumables          string   `json:"consumables"`
	HyperdriveRating     string   `json:"hyperdrive_rating"`
	MGLT                 string   `json:"MGLT"`
	StarshipClass        string   `json:"starship_class"`
	Pilots               []string `json:"pilots"`
	Films                []string `json:"films"`
	Created              string   `json:"created"`
	Edited               string   `json:"edited"`
	URL                  string   `json:"url"`
}

// HasUnknownSpeed reports whether the MGLT rating is unknown.
func (s Starship) HasUnknownSpeed() bool {
	return s.MGLT == Unknown
}

// HasUnknownConsumables reports whether the consumables endurance is unknown.
func (s Starship) HasUnknownConsumables() bool {
	return s.Consumables == Unknown
}

// StarshipPage is one page of the starships listing.
type StarshipPage = pagination.Page[Starship]
