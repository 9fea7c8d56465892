package policy

import "errors"

var (
	// ErrUnavailable indicates no policy is loaded for a scenario.
	ErrUnavailable = errors.New("no policy loaded for scenario")
	// ErrChanceOutOfRange indicates a spawn chance outside [0, 1].
	ErrChanceOutOfRange = errors.New("chance must be between 0 and 1 (both inclusive)")
	// ErrNonPositiveWeight indicates a weight that is not a positive finite number.
	ErrNonPositiveWeight = errors.New("weight must be a positive finite number")
	// ErrNoEntries indicates an empty spawned-block section.
	ErrNoEntries = errors.New("there must be at least 1 entry")
	// ErrUnknownBlockType indicates a block-type the host does not recognise.
	ErrUnknownBlockType = errors.New("material not found")
)

// Configuration keys.
const (
	KeyScenarios    = "scenario"
	KeySpawnChance  = "spawn-chance"
	KeySpawnedBlock = "spawned-block"
	KeyBlockType    = "block-type"
	KeyBlockData    = "block-data"
	KeyWeight       = "weight"
)
