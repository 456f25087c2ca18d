// Command validate provides a small CLI that validates card theme JSON
// files in the ../themes directory. It checks:
//   - JSON structure and required fields
//   - Non-empty card pool with no empty or duplicate faces
//   - A minimum pool size of 2 (the smallest board, 2x2, needs two pairs)
//
// For valid themes it also reports the largest square board the pool can fill.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Theme mirrors the JSON schema for a card theme file.
type Theme struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Cards       []string `json:"cards"`
}

// minPoolSize is the smallest usable pool: a 2x2 board needs 2 pairs.
const minPoolSize = 2

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

// validateTheme loads and validates a single theme JSON file.
func validateTheme(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Failed to read file: %v", err))
		return result
	}

	var theme Theme
	if err := json.Unmarshal(data, &theme); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Invalid JSON: %v", err))
		return result
	}

	if theme.Name == "" {
		result.Valid = false
		result.Errors = append(result.Errors, "Missing required field: name")
	}

	if len(theme.Cards) == 0 {
		result.Valid = false
		result.Errors = append(result.Errors, "Card pool is empty")
	} else if len(theme.Cards) < minPoolSize {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Card pool too small: %d faces, need at least %d for a 2x2 board", len(theme.Cards), minPoolSize))
	}

	seen := map[string]int{}
	for i, card := range theme.Cards {
		if card == "" {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf("Empty card face at index %d", i))
			continue
		}
		if prev, dup := seen[card]; dup {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf("Duplicate card face %q at indexes %d and %d", card, prev, i))
			continue
		}
		seen[card] = i
	}

	// Add informational data
	if result.Valid {
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Name: %s", theme.Name))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Card pool: %d faces", len(theme.Cards)))
		board := largestBoard(len(theme.Cards))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Largest board: %dx%d (%d pairs)", board, board, board*board/2))
	}

	return result
}

// largestBoard returns the biggest square board size whose pair count
// (size*size/2) the pool can still cover without repeating a value.
func largestBoard(poolSize int) int {
	board := 0
	for n := 2; ; n++ {
		if n*n/2 > poolSize {
			break
		}
		board = n
	}
	return board
}

// main scans ../themes for *.json files and validates each one, printing a
// concise report and exiting with non-zero status if any are invalid.
func main() {
	themesDir := "../themes"
	if len(os.Args) > 1 {
		themesDir = os.Args[1]
	}

	files, err := filepath.Glob(filepath.Join(themesDir, "*.json"))
	if err != nil {
		fmt.Printf("Error finding theme files: %v\n", err)
		os.Exit(1)
	}

	if len(files) == 0 {
		fmt.Printf("No theme files found in %s\n", themesDir)
		os.Exit(1)
	}

	allValid := true
	for _, file := range files {
		result := validateTheme(file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Println("  ❌ " + err)
				}
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All themes are valid!")
	} else {
		fmt.Println("❌ Some themes have errors")
		os.Exit(1)
	}
}
