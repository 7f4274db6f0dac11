package chat

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/kasuganosora/miniworld/server/game/world"
	"go.uber.org/zap"
)

// MissingPersonaMarker prefixes replies for roles without a persona.
const MissingPersonaMarker = "[persona missing]"

// Generator produces one reply line for a role.
type Generator interface {
	Generate(role, prompt string) string
}

// LocalGenerator fills templates from a seeded random sequence, so the same
// seed and call order always give the same text.
type LocalGenerator struct {
	rnd       *rand.Rand
	templates []string
}

// NewLocalGenerator needs at least one template. Templates may reference
// {role}, {prompt} and {token}.
func NewLocalGenerator(seed int64, templates []string) (*LocalGenerator, error) {
	if len(templates) == 0 {
		return nil, errors.New("chat: at least one reply template is required")
	}
	return &LocalGenerator{
		rnd:       rand.New(rand.NewPCG(uint64(seed), 0)),
		templates: append([]string(nil), templates...),
	}, nil
}

func (g *LocalGenerator) Generate(role, prompt string) string {
	tpl := g.templates[g.rnd.IntN(len(g.templates))]
	token := 100 + g.rnd.IntN(900)
	return strings.NewReplacer(
		"{role}", role,
		"{prompt}", prompt,
		"{token}", strconv.Itoa(token),
	).Replace(tpl)
}

// PersonaAwareGenerator prefixes the base reply with the world description,
// the quest digest and the speaker's persona.
type PersonaAwareGenerator struct {
	base    Generator
	state   world.State
	catalog *Catalog
	quests  string
	logger  *zap.Logger
}

// NewPersonaAwareGenerator wraps base. questDigest may be empty.
func NewPersonaAwareGenerator(base Generator, ws world.State, catalog *Catalog, questDigest string, logger *zap.Logger) *PersonaAwareGenerator {
	return &PersonaAwareGenerator{
		base:    base,
		state:   ws,
		catalog: catalog,
		quests:  questDigest,
		logger:  logger,
	}
}

func (g *PersonaAwareGenerator) Generate(role, prompt string) string {
	reply := g.base.Generate(role, prompt)
	p, ok := g.catalog.Get(role)
	if !ok {
		g.logger.Warn("no persona for role", zap.String("role", role))
		return MissingPersonaMarker + reply
	}
	questHint := "No active quests."
	if g.quests != "" {
		questHint = "Current quests: " + g.quests + "."
	}
	personaHint := fmt.Sprintf("%s, %s, aims to %s; speaks %s; knows %s. ",
		p.Name, p.Archetype, p.Goal, p.SpeakingStyle, strings.Join(p.KnowledgeTags, ", "))
	return g.state.Describe() + "|" + questHint + "|" + personaHint + reply
}
