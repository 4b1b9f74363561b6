package sandbox

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/shlex"

	"github.com/isdmx/coderunner/config"
)

// LanguageName constants
const (
	LanguagePython = "python"
	LanguageCPP    = "cpp"
	LanguageScala  = "scala"
)

// Recipe describes how to run one language inside a sandbox image.
//
// Interpreted recipes name an interpreter that reads the program from stdin.
// Compiled recipes hold a shell pipeline that saves stdin to a file, compiles
// it and runs the produced binary only if compilation succeeded.
type Recipe struct {
	ID            string
	Image         string
	Invocation    string
	Compiled      bool
	FileExtension string
}

// Command returns the argv appended after the image in the run invocation.
func (r Recipe) Command() ([]string, error) {
	if r.Compiled {
		return []string{"bash", "-c", r.Invocation}, nil
	}

	argv, err := shlex.Split(r.Invocation)
	if err != nil {
		return nil, fmt.Errorf("invalid invocation for %s: %w", r.ID, err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty invocation for %s", r.ID)
	}
	return argv, nil
}

// DefaultRecipes returns the built-in language recipes.
func DefaultRecipes() []Recipe {
	return []Recipe{
		{
			ID:            LanguagePython,
			Image:         "compiler-bot-python-rt:latest",
			Invocation:    "python3",
			FileExtension: "py",
		},
		{
			ID:            LanguageCPP,
			Image:         "compiler-bot-cpp-rt:latest",
			Invocation:    "cat > /output.cpp && g++ -std=c++17 -Wall -Wextra -o /output /output.cpp && /output",
			Compiled:      true,
			FileExtension: "cpp",
		},
		{
			ID:            LanguageScala,
			Image:         "compiler-bot-scala-rt:latest",
			Invocation:    "mkdir -p /out && cat > /Main.scala && scalac -d /out /Main.scala && scala -cp /out Main",
			Compiled:      true,
			FileExtension: "scala",
		},
	}
}

// Registry maps language identifiers to recipes. It is built once at startup
// and never mutated, so it is safe for concurrent use without locking.
type Registry struct {
	recipes map[string]Recipe
	ids     []string
}

// NewRegistry builds a registry from the given recipes. Identifiers are
// normalized to lower case and must be unique.
func NewRegistry(recipes ...Recipe) (*Registry, error) {
	r := &Registry{
		recipes: make(map[string]Recipe, len(recipes)),
		ids:     make([]string, 0, len(recipes)),
	}

	for _, recipe := range recipes {
		recipe.ID = normalizeLanguage(recipe.ID)
		if recipe.ID == "" {
			return nil, fmt.Errorf("language recipe has an empty id")
		}
		if recipe.Image == "" {
			return nil, fmt.Errorf("language %s has no image", recipe.ID)
		}
		if _, err := recipe.Command(); err != nil {
			return nil, err
		}
		if _, exists := r.recipes[recipe.ID]; exists {
			return nil, fmt.Errorf("duplicate language id: %s", recipe.ID)
		}
		r.recipes[recipe.ID] = recipe
		r.ids = append(r.ids, recipe.ID)
	}

	sort.Strings(r.ids)
	return r, nil
}

// Lookup returns the recipe for id. Matching is case-insensitive and exact.
func (r *Registry) Lookup(id string) (Recipe, error) {
	recipe, ok := r.recipes[normalizeLanguage(id)]
	if !ok {
		return Recipe{}, &UnsupportedLanguageError{Language: id}
	}
	return recipe, nil
}

// List returns the supported identifiers in sorted order.
func (r *Registry) List() []string {
	ids := make([]string, len(r.ids))
	copy(ids, r.ids)
	return ids
}

// RecipesFromConfig merges configured language overrides into the built-in
// recipes. Unknown languages must provide both an image and an invocation.
func RecipesFromConfig(languages map[string]config.Language) ([]Recipe, error) {
	recipes := DefaultRecipes()
	index := make(map[string]int, len(recipes))
	for i, recipe := range recipes {
		index[recipe.ID] = i
	}

	ids := make([]string, 0, len(languages))
	for id := range languages {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, rawID := range ids {
		lang := languages[rawID]
		id := normalizeLanguage(rawID)

		i, exists := index[id]
		if !exists {
			if lang.Image == "" || lang.Invocation == "" {
				return nil, fmt.Errorf("languages.%s requires both image and invocation", id)
			}
			index[id] = len(recipes)
			recipes = append(recipes, Recipe{
				ID:            id,
				Image:         lang.Image,
				Invocation:    lang.Invocation,
				Compiled:      lang.Compiled,
				FileExtension: lang.FileExtension,
			})
			continue
		}

		if lang.Image != "" {
			recipes[i].Image = lang.Image
		}
		if lang.Invocation != "" {
			recipes[i].Invocation = lang.Invocation
			recipes[i].Compiled = lang.Compiled
		}
		if lang.FileExtension != "" {
			recipes[i].FileExtension = lang.FileExtension
		}
	}

	return recipes, nil
}

func normalizeLanguage(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
