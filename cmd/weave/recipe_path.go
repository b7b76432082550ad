package main

import (
	"fmt"

	"weave/internal/recipe"
)

// loadRecipe loads the recipe named on the command line, or the nearest
// weave.toml above the working directory.
func loadRecipe(args []string) (*recipe.Recipe, error) {
	if len(args) > 0 {
		return recipe.Load(args[0])
	}
	path, ok, err := recipe.Find(".")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no %s found\nplease name the recipe explicitly, e.g.:\n  weave build path/to/%s", recipe.DefaultFile, recipe.DefaultFile)
	}
	return recipe.Load(path)
}
