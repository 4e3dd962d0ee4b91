package catalog

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/mcdev12/bidroom/go/internal/models"
)

type catalogFile struct {
	Players []filePlayer `yaml:"players"`
}

type filePlayer struct {
	ID        string         `yaml:"id"`
	Name      string         `yaml:"name"`
	Role      string         `yaml:"role"`
	BasePrice int64          `yaml:"base_price"`
	Country   string         `yaml:"country"`
	Rating    int            `yaml:"rating"`
	Stats     map[string]any `yaml:"stats"`
}

// LoadFile reads a YAML catalog from path.
func LoadFile(path string) ([]models.Player, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog file: %w", err)
	}
	defer f.Close()

	players, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return players, nil
}

// Decode parses a YAML catalog document. Players without an id get one
// derived from their name.
func Decode(r io.Reader) ([]models.Player, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc catalogFile
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	players := make([]models.Player, 0, len(doc.Players))
	seen := make(map[uuid.UUID]string, len(doc.Players))
	for i, fp := range doc.Players {
		p, err := fp.toPlayer()
		if err != nil {
			return nil, fmt.Errorf("player %d: %w", i+1, err)
		}
		if prev, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("player %d: %w: %s duplicates %s", i+1, models.ErrInvalidPlayer, p.Name, prev)
		}
		seen[p.ID] = p.Name
		players = append(players, p)
	}
	if len(players) == 0 {
		return nil, ErrEmptyCatalog
	}
	return players, nil
}

func (fp filePlayer) toPlayer() (models.Player, error) {
	role, err := models.ParseRole(fp.Role)
	if err != nil {
		return models.Player{}, fmt.Errorf("%w: %s: %w", models.ErrInvalidPlayer, fp.Name, err)
	}

	id := models.PlayerID(fp.Name)
	if s := strings.TrimSpace(fp.ID); s != "" {
		if id, err = uuid.Parse(s); err != nil {
			return models.Player{}, fmt.Errorf("%w: %s: bad id: %w", models.ErrInvalidPlayer, fp.Name, err)
		}
	}

	var stats models.Attributes
	if len(fp.Stats) > 0 {
		if stats, err = models.AttributesFrom(fp.Stats); err != nil {
			return models.Player{}, fmt.Errorf("%w: %s: %w", models.ErrInvalidPlayer, fp.Name, err)
		}
	}

	p := models.Player{
		ID:        id,
		Name:      strings.TrimSpace(fp.Name),
		Role:      role,
		BasePrice: fp.BasePrice,
		Country:   fp.Country,
		Rating:    fp.Rating,
		Stats:     stats,
	}
	return p, p.Validate()
}
