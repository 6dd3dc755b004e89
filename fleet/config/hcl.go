package config

import (
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/wricardo/rover-grid/fleet/rover"
)

// hclGridFile is the decoding target for .hcl grid files
type hclGridFile struct {
	Name        string        `hcl:"name"`
	Description string        `hcl:"description,optional"`
	Width       int           `hcl:"width"`
	Height      int           `hcl:"height"`
	Obstacles   []hclObstacle `hcl:"obstacle,block"`
}

type hclObstacle struct {
	X int `hcl:"x"`
	Y int `hcl:"y"`
}

// parseHCLGrid decodes an HCL grid file
func parseHCLGrid(path string) (*GridDefinition, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}

	var parsed hclGridFile
	diags = gohcl.DecodeBody(file.Body, nil, &parsed)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}

	def := &GridDefinition{
		Name:        parsed.Name,
		Description: parsed.Description,
		Width:       parsed.Width,
		Height:      parsed.Height,
		Obstacles:   make([]rover.Coordinates, 0, len(parsed.Obstacles)),
	}
	for _, o := range parsed.Obstacles {
		def.Obstacles = append(def.Obstacles, rover.NewCoordinates(o.X, o.Y))
	}
	return def, nil
}
