package domain

import (
	"fmt"
	"strings"
	"time"
)

type Streamer struct {
	ID        string   `yaml:"id" json:"id"`
	Name      string   `yaml:"name" json:"name"`
	Character []string `yaml:"character" json:"character,omitempty"`
	Values    []string `yaml:"values" json:"values,omitempty"`
	Avatar    string   `yaml:"avatar" json:"avatar,omitempty"`
	BaseVideo string   `yaml:"baseVideo" json:"base_video,omitempty"`
}

// Persona — короткое описание ведущего для промптов.
func (s Streamer) Persona() string {
	var b strings.Builder
	b.WriteString(s.Name)
	if len(s.Character) > 0 {
		b.WriteString(", character: ")
		b.WriteString(strings.Join(s.Character, ", "))
	}
	if len(s.Values) > 0 {
		b.WriteString("; values: ")
		b.WriteString(strings.Join(s.Values, ", "))
	}
	return b.String()
}

type Product struct {
	ID              string   `yaml:"id" json:"id"`
	Name            string   `yaml:"name" json:"name"`
	Class           string   `yaml:"class" json:"class,omitempty"`
	Highlights      []string `yaml:"highlights" json:"highlights,omitempty"`
	Instruction     string   `yaml:"instruction" json:"instruction,omitempty"`
	DeparturePlace  string   `yaml:"departurePlace" json:"departure_place,omitempty"`
	DeliveryCompany string   `yaml:"deliveryCompany" json:"delivery_company,omitempty"`
	Price           float64  `yaml:"price" json:"price"`
	ImagePath       string   `yaml:"imagePath" json:"image_path,omitempty"`
}

type ProductSlot struct {
	Product    Product       `yaml:"product" json:"product"`
	SalesDoc   string        `yaml:"salesDoc" json:"sales_doc"`
	StartVideo string        `yaml:"startVideo" json:"start_video,omitempty"`
	StartAt    time.Duration `yaml:"startAt" json:"-"`
}

// RoomConfig is read-only for the lifetime of a session.
type RoomConfig struct {
	RoomID          string        `yaml:"id" json:"room_id"`
	Name            string        `yaml:"name" json:"name"`
	Streamer        Streamer      `yaml:"streamer" json:"streamer"`
	BackgroundImage string        `yaml:"backgroundImage" json:"background_image,omitempty"`
	Poster          string        `yaml:"poster" json:"poster,omitempty"`
	Slots           []ProductSlot `yaml:"products" json:"products"`
}

func (c *RoomConfig) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: nil config", ErrInvalidConfig)
	}
	if c.RoomID == "" {
		return fmt.Errorf("%w: missing room id", ErrInvalidConfig)
	}
	if len(c.Slots) == 0 {
		return fmt.Errorf("%w: room %s has no products", ErrInvalidConfig, c.RoomID)
	}
	for i, s := range c.Slots {
		if s.StartAt < 0 {
			return fmt.Errorf("%w: product %d has negative start offset", ErrInvalidConfig, i)
		}
	}
	return nil
}

// SlotDuration — сколько показывать слот i до автопереключения.
// Берётся разница смещений соседних слотов, иначе def.
func (c *RoomConfig) SlotDuration(i int, def time.Duration) time.Duration {
	if i < 0 || i+1 >= len(c.Slots) {
		return def
	}
	if d := c.Slots[i+1].StartAt - c.Slots[i].StartAt; d > 0 {
		return d
	}
	return def
}

// IntroVideo returns the video shown when slot i goes on air.
func (c *RoomConfig) IntroVideo(i int) string {
	if i >= 0 && i < len(c.Slots) && c.Slots[i].StartVideo != "" {
		return c.Slots[i].StartVideo
	}
	return c.Streamer.BaseVideo
}
