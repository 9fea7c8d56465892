package policy

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"strconv"

	"github.com/searchforge/hatchery/blockdata"
	"github.com/searchforge/hatchery/config"
	"github.com/searchforge/hatchery/weighted"
)

// Policy decides whether an egg may spawn in one scenario and which block
// replaces it. It is immutable once built.
type Policy struct {
	name        string
	spawnChance float64
	blocks      *weighted.Sampler[blockdata.Data]
	logger      *slog.Logger
	metrics     *Metrics
}

// NewPolicy builds a Policy from one scenario section. Any malformed
// spawned-block entry fails the whole policy.
func NewPolicy(section *config.Node, logger *slog.Logger, metrics *Metrics) (*Policy, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "policy", "scenario", section.Name())

	spawnChance, err := config.ParseValue(section, KeySpawnChance, parseChance)
	if err != nil {
		return nil, err
	}
	logger.Debug("parsed spawn chance", "spawn_chance", spawnChance)

	blocksSection, err := config.ComputeValue(section, KeySpawnedBlock, nonEmptySection)
	if err != nil {
		return nil, err
	}

	entries := make([]weighted.Entry[blockdata.Data], 0, blocksSection.Len())
	for _, key := range blocksSection.Keys() {
		entry, err := config.GetSection(blocksSection, key)
		if err != nil {
			return nil, err
		}

		material, err := config.ParseValue(entry, KeyBlockType, parseMaterial)
		if err != nil {
			return nil, err
		}
		data, err := config.ParseValue(entry, KeyBlockData, func(raw string) (blockdata.Data, error) {
			return blockdata.CreateData(material, raw)
		})
		if err != nil {
			return nil, err
		}
		weight, err := config.ParseValue(entry, KeyWeight, parseWeight)
		if err != nil {
			return nil, err
		}

		logger.Debug("parsed spawned block",
			"entry", entry.Path(),
			"block", data.AsString(),
			"weight", weight,
		)
		entries = append(entries, weighted.Entry[blockdata.Data]{Value: data, Weight: weight})
	}

	blocks, err := weighted.New(entries)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", blocksSection.Path(), err)
	}

	return &Policy{
		name:        section.Name(),
		spawnChance: spawnChance,
		blocks:      blocks,
		logger:      logger,
		metrics:     metrics,
	}, nil
}

// Name returns the configuration key the policy was built from.
func (p *Policy) Name() string {
	return p.name
}

// SpawnChance returns the probability that Decide allows a spawn.
func (p *Policy) SpawnChance() float64 {
	return p.spawnChance
}

// Outcomes returns every configured block in configuration order.
func (p *Policy) Outcomes() []blockdata.Data {
	return p.blocks.Entries()
}

// Decide rolls whether the egg may spawn.
func (p *Policy) Decide() bool {
	roll := rand.Float64()
	allowed := roll < p.spawnChance
	p.logger.Debug("rolled spawn value", "roll", roll, "allowed", allowed)
	p.metrics.ObserveDecision(p.name, allowed)
	return allowed
}

// Apply writes a randomly chosen block into target and returns it. Callers
// invoke it only after Decide returned true for the same event.
func (p *Policy) Apply(target blockdata.Target) blockdata.Data {
	block := p.blocks.Pick()
	p.logger.Debug("rolled block", "block", block.AsString())
	target.SetBlockData(block.Clone())
	p.metrics.ObserveOutcome(p.name, block.Material())
	return block
}

func parseChance(raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if !(v >= 0 && v <= 1) {
		return 0, ErrChanceOutOfRange
	}
	return v, nil
}

func parseWeight(raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if !(v > 0) || math.IsInf(v, 0) {
		return 0, ErrNonPositiveWeight
	}
	return v, nil
}

func parseMaterial(raw string) (blockdata.Material, error) {
	m, ok := blockdata.MatchMaterial(raw)
	if !ok {
		return "", ErrUnknownBlockType
	}
	return m, nil
}

func nonEmptySection(n *config.Node, key string) (*config.Node, error) {
	section, ok := n.Section(key)
	if !ok {
		return nil, errors.New("missing section")
	}
	if section.Len() == 0 {
		return nil, ErrNoEntries
	}
	return section, nil
}
