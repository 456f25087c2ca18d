// Command analyze prints quick, human-readable heuristics about theme files
// in the project's themes directory. It summarizes pool sizes, the largest
// square board each pool can fill, and pool utilization per board size,
// highlighting themes too small for the common 4x4 game.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// AnalysisTheme is a light struct for reading theme files used by analysis.
type AnalysisTheme struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Cards       []string `json:"cards"`
}

// boardSizes are the square boards worth reporting on.
var boardSizes = []int{2, 3, 4, 5, 6, 7, 8}

func main() {
	themesDir := "themes"
	if len(os.Args) > 1 {
		themesDir = os.Args[1]
	}

	files, err := filepath.Glob(filepath.Join(themesDir, "*.json"))
	if err != nil || len(files) == 0 {
		fmt.Printf("No theme files found in %s\n", themesDir)
		os.Exit(1)
	}

	for _, themeFile := range files {
		fmt.Printf("\n=== Analyzing %s ===\n", filepath.Base(themeFile))
		analyzeTheme(themeFile)
	}
}

func analyzeTheme(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("Error reading file: %v\n", err)
		return
	}

	var theme AnalysisTheme
	if err := json.Unmarshal(data, &theme); err != nil {
		fmt.Printf("Error parsing JSON: %v\n", err)
		return
	}

	pool := len(theme.Cards)
	fmt.Printf("Name: %s\n", theme.Name)
	fmt.Printf("Pool Size: %d faces\n", pool)

	unique := map[string]bool{}
	duplicates := 0
	for _, card := range theme.Cards {
		if unique[card] {
			duplicates++
		}
		unique[card] = true
	}
	if duplicates > 0 {
		fmt.Printf("⚠️  WARNING: %d duplicate faces (a deck could deal more than one pair of the same face)\n", duplicates)
	}

	largest := 0
	for _, size := range boardSizes {
		pairs := size * size / 2
		if pairs <= pool {
			largest = size
		}
	}

	if largest == 0 {
		fmt.Printf("⚠️  CRITICAL: pool too small for any board (need at least %d faces for 2x2)\n", 2)
		return
	}

	fmt.Printf("Largest Board: %dx%d (%d pairs)\n", largest, largest, largest*largest/2)

	// Per-board utilization: how much of the pool each board consumes
	for _, size := range boardSizes {
		pairs := size * size / 2
		if pairs > pool {
			fmt.Printf("  %dx%d: unavailable (needs %d pairs, pool has %d)\n", size, size, pairs, pool)
			continue
		}
		utilization := 100 * pairs / pool
		fmt.Printf("  %dx%d: %d pairs, %d%% of pool\n", size, size, pairs, utilization)
	}

	if largest < 4 {
		fmt.Printf("⚠️  WARNING: pool cannot fill the standard 4x4 board (needs 8 faces)\n")
	} else {
		fmt.Printf("✅ Theme supports the standard 4x4 board\n")
	}
}
