// Package config provides grid catalog and settings management for the Rover Grid Server.
//
// The config package handles:
//   - Loading named grid definitions from JSON and HCL files
//   - Grid validation (positive dimensions, obstacles inside the bounds)
//   - Default grid management
//   - Grid discovery and listing
//   - Server settings from file, environment and defaults (viper)
//
// Grid Format:
//
// Grid definitions live in the grids directory, one per file. JSON:
//
//	{
//	  "name": "crater",
//	  "description": "Impact crater with a rim of boulders",
//	  "width": 12,
//	  "height": 8,
//	  "obstacles": [{"x": 3, "y": 4}, {"x": 4, "y": 4}]
//	}
//
// HCL:
//
//	name        = "crater"
//	description = "Impact crater with a rim of boulders"
//	width       = 12
//	height      = 8
//
//	obstacle {
//	  x = 3
//	  y = 4
//	}
//
// Usage:
//
//	manager, err := config.NewManager("grids")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	def, err := manager.LoadGrid("crater")
//	if err != nil {
//		log.Fatal(err)
//	}
//	grid, err := def.Build()
//
// When no file is configured as default, the built-in 10x10 grid without
// obstacles is used.
package config
