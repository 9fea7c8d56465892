package policy

import "fmt"

// Scenario is the situation in which a dragon egg is about to appear.
type Scenario int

const (
	// First is the first ender dragon death in a world.
	First Scenario = iota
	// Subsequent is any later ender dragon death.
	Subsequent
)

// Scenarios returns every scenario in declaration order.
func Scenarios() []Scenario {
	return []Scenario{First, Subsequent}
}

// MatchBattle picks the scenario for a dragon battle.
func MatchBattle(previouslyKilled bool) Scenario {
	if previouslyKilled {
		return Subsequent
	}
	return First
}

// ConfigKey returns the key under which the scenario is configured.
func (s Scenario) ConfigKey() string {
	switch s {
	case First:
		return "first"
	case Subsequent:
		return "subsequent"
	default:
		return ""
	}
}

func (s Scenario) String() string {
	if key := s.ConfigKey(); key != "" {
		return key
	}
	return fmt.Sprintf("scenario(%d)", int(s))
}

// ParseScenario resolves a configuration key.
func ParseScenario(key string) (Scenario, bool) {
	for _, s := range Scenarios() {
		if s.ConfigKey() == key {
			return s, true
		}
	}
	return 0, false
}
