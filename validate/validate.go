// Command validate checks content pack files before they are handed to the
// server with --content-file. It checks:
//   - The file parses as JSON, YAML or TOML
//   - Every game kind has a non-empty pool
//   - Quiz questions have text, at least two options and an in-range answer
//   - Prompts are not empty
//   - No question or prompt appears twice in the same pool
//
// Arguments are pack files or directories to scan; the default is the
// current directory.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wricardo/socialspot/room/content"
	"github.com/wricardo/socialspot/room/games"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

// validatePack loads and validates a single content pack file.
func validatePack(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	pack, err := content.Load(filePath)
	if err != nil {
		result.Valid = false
		if errors.Is(err, content.ErrInvalidPack) {
			for _, e := range leafErrors(err) {
				if e != content.ErrInvalidPack {
					result.Errors = append(result.Errors, e.Error())
				}
			}
			return result
		}
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	for _, k := range games.Kinds() {
		result.Errors = append(result.Errors, fmt.Sprintf("✓ %s: %d items", k, pack.Size(k)))
	}

	if dups := duplicates(pack); len(dups) > 0 {
		result.Valid = false
		result.Errors = append(result.Errors, dups...)
	}

	return result
}

// leafErrors flattens joined and multiply wrapped errors.
func leafErrors(err error) []error {
	switch e := err.(type) {
	case interface{ Unwrap() []error }:
		var out []error
		for _, inner := range e.Unwrap() {
			out = append(out, leafErrors(inner)...)
		}
		return out
	}
	return []error{err}
}

func duplicates(pack *games.Pack) []string {
	var out []string
	check := func(kind games.Kind, items []string) {
		seen := make(map[string]int, len(items))
		for i, item := range items {
			key := strings.ToLower(strings.TrimSpace(item))
			if first, ok := seen[key]; ok {
				out = append(out, fmt.Sprintf("%s[%d]: duplicate of %s[%d]", kind, i, kind, first))
				continue
			}
			seen[key] = i
		}
	}

	questions := make([]string, len(pack.Quiz))
	for i, q := range pack.Quiz {
		questions[i] = q.Text
	}
	check(games.KindQuiz, questions)
	check(games.KindTruthDare, pack.TruthDare)
	check(games.KindNeverHaveIEver, pack.NeverHaveIEver)
	return out
}

// collectFiles expands directories into the pack files they contain.
func collectFiles(args []string) ([]string, error) {
	if len(args) == 0 {
		args = []string{"."}
	}

	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		for _, ext := range []string{"json", "yaml", "yml", "toml"} {
			matches, err := filepath.Glob(filepath.Join(arg, "*."+ext))
			if err != nil {
				return nil, err
			}
			files = append(files, matches...)
		}
	}
	return files, nil
}

// main validates each pack, printing a concise report and exiting with
// non-zero status if any are invalid.
func main() {
	files, err := collectFiles(os.Args[1:])
	if err != nil {
		fmt.Printf("Error finding content packs: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Println("No content packs found")
		os.Exit(1)
	}

	allValid := true
	for _, file := range files {
		result := validatePack(file)

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
		fmt.Println("✅ All content packs are valid!")
	} else {
		fmt.Println("❌ Some content packs have errors")
		os.Exit(1)
	}
}
