package blockdata

import (
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Namespace prefixes every material identifier.
const Namespace = "minecraft"

// Material identifies a block type, e.g. "minecraft:dragon_egg".
type Material string

// Key returns the identifier without its namespace.
func (m Material) Key() string {
	return strings.TrimPrefix(string(m), Namespace+":")
}

func (m Material) String() string {
	return string(m)
}

// property lists the legal values of one block-state property; the first is the default.
type property []string

func (p property) allows(v string) bool {
	for _, candidate := range p {
		if candidate == v {
			return true
		}
	}
	return false
}

var (
	horizontal   = property{"north", "south", "west", "east"}
	allFacing    = property{"north", "east", "south", "west", "up", "down"}
	boolean      = property{"false", "true"}
	axis         = property{"y", "x", "z"}
	stairsShape  = property{"straight", "inner_left", "inner_right", "outer_left", "outer_right"}
	halfTopBot   = property{"bottom", "top"}
	slabType     = property{"bottom", "top", "double"}
	chestType    = property{"single", "left", "right"}
	rotation16   = property{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "11", "12", "13", "14", "15"}
	fluidLevel   = property{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "11", "12", "13", "14", "15"}
	respawnLevel = property{"0", "1", "2", "3", "4"}
)

// catalog maps each supported block to its property schema.
var catalog = map[Material]map[string]property{
	"minecraft:air":                {},
	"minecraft:dragon_egg":         {},
	"minecraft:bedrock":            {},
	"minecraft:obsidian":           {},
	"minecraft:crying_obsidian":    {},
	"minecraft:end_stone":          {},
	"minecraft:end_stone_bricks":   {},
	"minecraft:gold_block":         {},
	"minecraft:diamond_block":      {},
	"minecraft:purpur_block":       {},
	"minecraft:purpur_pillar":      {"axis": axis},
	"minecraft:purpur_stairs":      {"facing": horizontal, "half": halfTopBot, "shape": stairsShape, "waterlogged": boolean},
	"minecraft:purpur_slab":        {"type": slabType, "waterlogged": boolean},
	"minecraft:end_rod":            {"facing": allFacing},
	"minecraft:chest":              {"facing": horizontal, "type": chestType, "waterlogged": boolean},
	"minecraft:ender_chest":        {"facing": horizontal, "waterlogged": boolean},
	"minecraft:dragon_head":        {"rotation": rotation16, "powered": boolean},
	"minecraft:dragon_wall_head":   {"facing": horizontal, "powered": boolean},
	"minecraft:respawn_anchor":     {"charges": respawnLevel},
	"minecraft:water":              {"level": fluidLevel},
	"minecraft:lava":               {"level": fluidLevel},
	"minecraft:shulker_box":        {"facing": allFacing},
	"minecraft:purple_shulker_box": {"facing": allFacing},
}

// MatchMaterial resolves a user-supplied block type. It accepts the plain key
// ("dragon_egg"), the enum-style name ("DRAGON_EGG") and the namespaced form.
func MatchMaterial(raw string) (Material, bool) {
	s := norm.NFKC.String(strings.TrimSpace(raw))
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, " ", "_")
	if s == "" {
		return "", false
	}
	if !strings.Contains(s, ":") {
		s = Namespace + ":" + s
	}
	m := Material(s)
	if _, ok := catalog[m]; !ok {
		return "", false
	}
	return m, true
}

// Materials lists every known material, sorted.
func Materials() []Material {
	out := make([]Material, 0, len(catalog))
	for m := range catalog {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
